// Package events fans host operation events out to the components that
// record them.
//
// Services emit one OperationEvent per host operation without knowing
// which handlers consume it. The server registers an AuditRecorder, which
// persists the audit trail, and a MetricsRecorder, which feeds prometheus.
//
// The primary components are:
// - OperationEvent: the outcome of one host operation
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
