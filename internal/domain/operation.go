package domain

// Operation names recorded in the audit trail and metrics.
const (
	OperationCommand      = "command"
	OperationCommandAsync = "command_async"
	OperationQuery        = "query"
	OperationProgramCall  = "program_call"
	OperationSystemStatus = "system_status"
	OperationListObjects  = "list_objects"
	OperationActiveJobs   = "active_jobs"
	OperationDataArea     = "data_area"
)

// Outcomes of a host operation.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)
