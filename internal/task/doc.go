// Package task runs asynchronous host jobs. Tasks are persisted before they
// are queued so that a restart recovers anything still pending or in
// progress, and HTTP handlers never wait on long-running host work.
package task
