// Package service contains the gateway's use cases. It sits between the
// HTTP handlers and the infrastructure: the IBM i host client, the stores
// in internal/store and the background task runner.
//
// Key components:
//
// 1. HostService:
//   - Validates host requests, applies the command policy and the
//     read-only SQL rule, then drives the host client
//   - Emits one OperationEvent per host operation for auditing and metrics
//
// 2. JobService:
//   - Persists and queues asynchronous CL commands and reports their state
//   - Keeps jobs private to the user who submitted them
//
// 3. AuthService and UserService:
//   - Password login, token refresh with rotation, user provisioning
//
// Services receive their dependencies through constructor injection and
// depend on interfaces, never on concrete infrastructure.
package service
