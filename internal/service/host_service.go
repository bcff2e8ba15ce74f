package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/as400"
	"github.com/phrazzld/as400-api/internal/config"
	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/events"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/redact"
)

// Catalog statements. Every value is bound as a parameter.
const (
	systemStatusSQL = `SELECT * FROM QSYS2.SYSTEM_STATUS_INFO`

	listObjectsSQL = `SELECT OBJNAME, OBJTYPE, OBJATTRIBUTE, OBJTEXT, OBJSIZE, OBJCREATED, LAST_USED_TIMESTAMP ` +
		`FROM TABLE(QSYS2.OBJECT_STATISTICS(?, ?)) ORDER BY OBJNAME, OBJTYPE`

	activeJobsSQL = `SELECT JOB_NAME, SUBSYSTEM, JOB_TYPE, JOB_STATUS, AUTHORIZATION_NAME, FUNCTION, ` +
		`ELAPSED_CPU_PERCENTAGE, TEMPORARY_STORAGE FROM TABLE(QSYS2.ACTIVE_JOB_INFO(DETAILED_INFO => 'NONE'))`

	activeJobsBySubsystemSQL = `SELECT JOB_NAME, SUBSYSTEM, JOB_TYPE, JOB_STATUS, AUTHORIZATION_NAME, FUNCTION, ` +
		`ELAPSED_CPU_PERCENTAGE, TEMPORARY_STORAGE FROM TABLE(QSYS2.ACTIVE_JOB_INFO(` +
		`SUBSYSTEM_LIST_FILTER => ?, DETAILED_INFO => 'NONE'))`

	dataAreaSQL = `SELECT DATA_AREA_LIBRARY, DATA_AREA_NAME, DATA_AREA_TYPE, LENGTH, DECIMAL_POSITIONS, DATA_AREA_VALUE ` +
		`FROM TABLE(QSYS2.DATA_AREA_INFO(DATA_AREA_NAME => ?, DATA_AREA_LIBRARY => ?))`
)

// maxTargetLength bounds the audit target summary.
const maxTargetLength = 256

// HostService runs host operations on behalf of authenticated users.
type HostService struct {
	client        as400.Client
	policy        *as400.Policy
	emitter       events.EventEmitter
	maxRows       int
	allowWriteSQL bool
	logger        *slog.Logger
}

// NewHostService creates a HostService. A nil policy means the built-in
// deny list only.
func NewHostService(
	client as400.Client,
	policy *as400.Policy,
	emitter events.EventEmitter,
	cfg config.HostConfig,
	logger *slog.Logger,
) (*HostService, error) {
	if client == nil {
		return nil, domain.NewValidationError("client", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		return nil, domain.NewValidationError("emitter", "cannot be nil", domain.ErrValidation)
	}
	if cfg.MaxRows <= 0 {
		return nil, domain.NewValidationError("max_rows", "must be positive", domain.ErrValidation)
	}
	if policy == nil {
		policy = as400.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HostService{
		client:        client,
		policy:        policy,
		emitter:       emitter,
		maxRows:       cfg.MaxRows,
		allowWriteSQL: cfg.AllowWriteSQL,
		logger:        logger.With("component", "host_service"),
	}, nil
}

// RunCommand validates cmd, checks it against the policy and runs it.
// A failed command returns its result together with the error.
func (s *HostService) RunCommand(ctx context.Context, userID uuid.UUID, cmd string) (*domain.CommandResult, error) {
	cmd, err := s.PrepareCommand(ctx, userID, cmd)
	if err != nil {
		return nil, err
	}
	return s.runCommand(ctx, userID, domain.OperationCommand, cmd, cmd)
}

// PrepareCommand normalizes and validates cmd and checks it against the
// policy. A policy denial is audited.
func (s *HostService) PrepareCommand(ctx context.Context, userID uuid.UUID, cmd string) (string, error) {
	cmd = domain.NormalizeCommand(cmd)
	if err := domain.ValidateCommand(cmd); err != nil {
		return "", err
	}
	if err := s.policy.CheckCommand(cmd); err != nil {
		s.emitDenied(ctx, userID, domain.OperationCommand, cmd, err)
		return "", err
	}
	return cmd, nil
}

// ExecuteQueuedCommand runs a command that was accepted by PrepareCommand
// when it was submitted. The policy is checked again since it may have
// changed while the job was queued.
func (s *HostService) ExecuteQueuedCommand(ctx context.Context, userID uuid.UUID, cmd string) (*domain.CommandResult, error) {
	if err := s.policy.CheckCommand(cmd); err != nil {
		s.emitDenied(ctx, userID, domain.OperationCommandAsync, cmd, err)
		return nil, err
	}
	return s.runCommand(ctx, userID, domain.OperationCommandAsync, cmd, cmd)
}

// CallProgram validates call, checks the program policy and runs it as a
// CALL command.
func (s *HostService) CallProgram(ctx context.Context, userID uuid.UUID, call domain.ProgramCall) (*domain.CommandResult, error) {
	if err := call.Validate(); err != nil {
		return nil, err
	}
	if err := s.policy.CheckProgram(call); err != nil {
		s.emitDenied(ctx, userID, domain.OperationProgramCall, call.QualifiedName(), err)
		return nil, err
	}
	return s.runCommand(ctx, userID, domain.OperationProgramCall, as400.BuildProgramCall(call), call.QualifiedName())
}

func (s *HostService) runCommand(ctx context.Context, userID uuid.UUID, operation, cmd, target string) (*domain.CommandResult, error) {
	start := time.Now()
	result, err := s.client.RunCommand(ctx, cmd)
	s.emit(ctx, userID, operation, target, time.Since(start), err)
	if err != nil {
		s.logFailure(ctx, operation, err)
	}
	return result, err
}

// Query runs a caller supplied SQL statement. Unless write SQL is enabled
// only SELECT, WITH and VALUES statements are accepted. MaxRows is clamped
// to the configured maximum; zero selects the maximum.
func (s *HostService) Query(ctx context.Context, userID uuid.UUID, req domain.QueryRequest) (*domain.QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.allowWriteSQL && !domain.IsReadOnlySQL(req.SQL) {
		s.emitDenied(ctx, userID, domain.OperationQuery, req.SQL, domain.ErrWriteSQLNotAllowed)
		return nil, domain.ErrWriteSQLNotAllowed
	}
	return s.query(ctx, userID, domain.OperationQuery, req.SQL, req.SQL, req.Params, s.clampRows(req.MaxRows))
}

// SystemStatus returns QSYS2.SYSTEM_STATUS_INFO.
func (s *HostService) SystemStatus(ctx context.Context, userID uuid.UUID) (*domain.QueryResult, error) {
	return s.query(ctx, userID, domain.OperationSystemStatus, systemStatusSQL, "SYSTEM_STATUS_INFO", nil, s.maxRows)
}

// ListObjects lists the objects of library, optionally filtered by an
// object type such as *PGM. An empty type lists all objects.
func (s *HostService) ListObjects(ctx context.Context, userID uuid.UUID, library, objectType string) (*domain.QueryResult, error) {
	lib, err := domain.ValidateLibraryName("library", library)
	if err != nil {
		return nil, err
	}
	objectType = strings.ToUpper(strings.TrimSpace(objectType))
	if objectType == "" {
		objectType = "*ALL"
	}
	if !domain.IsValidObjectType(objectType) {
		return nil, domain.NewValidationError("type", "must be an object type such as *PGM", domain.ErrValidation)
	}
	return s.query(ctx, userID, domain.OperationListObjects, listObjectsSQL, lib+" "+objectType, []string{lib, objectType}, s.maxRows)
}

// ActiveJobs lists active jobs, optionally only those of subsystem.
func (s *HostService) ActiveJobs(ctx context.Context, userID uuid.UUID, subsystem string) (*domain.QueryResult, error) {
	if strings.TrimSpace(subsystem) == "" {
		return s.query(ctx, userID, domain.OperationActiveJobs, activeJobsSQL, "*ALL", nil, s.maxRows)
	}
	sbs, err := domain.ValidateObjectName("subsystem", subsystem)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, userID, domain.OperationActiveJobs, activeJobsBySubsystemSQL, sbs, []string{sbs}, s.maxRows)
}

// DataArea returns the attributes and value of a data area.
func (s *HostService) DataArea(ctx context.Context, userID uuid.UUID, library, name string) (*domain.QueryResult, error) {
	lib, err := domain.ValidateLibraryName("library", library)
	if err != nil {
		return nil, err
	}
	dtaara, err := domain.ValidateObjectName("name", name)
	if err != nil {
		return nil, err
	}
	result, err := s.query(ctx, userID, domain.OperationDataArea, dataAreaSQL, lib+"/"+dtaara, []string{dtaara, lib}, 1)
	if err != nil {
		return nil, err
	}
	if result.RowCount == 0 {
		return nil, fmt.Errorf("%w: data area %s/%s", domain.ErrHostObjectNotFound, lib, dtaara)
	}
	return result, nil
}

func (s *HostService) query(
	ctx context.Context,
	userID uuid.UUID,
	operation, statement, target string,
	params []string,
	maxRows int,
) (*domain.QueryResult, error) {
	start := time.Now()
	result, err := s.client.Query(ctx, statement, params, maxRows)
	s.emit(ctx, userID, operation, target, time.Since(start), err)
	if err != nil {
		s.logFailure(ctx, operation, err)
		return nil, err
	}
	return result, nil
}

// Ping checks the host connection.
func (s *HostService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *HostService) clampRows(n int) int {
	if n <= 0 || n > s.maxRows {
		return s.maxRows
	}
	return n
}

// emit publishes the outcome of one host operation. Emission failures are
// logged and never fail the operation.
func (s *HostService) emit(ctx context.Context, userID uuid.UUID, operation, target string, d time.Duration, opErr error) {
	event := events.NewOperationEvent(userID, operation, summarize(target))
	event.Duration = d
	event.TraceID = logger.TraceID(ctx)
	event.Outcome = domain.OutcomeSuccess
	if opErr != nil {
		event.Outcome = domain.OutcomeFailure
		event.MessageID = messageID(opErr)
	}
	s.publish(ctx, event)
}

func (s *HostService) emitDenied(ctx context.Context, userID uuid.UUID, operation, target string, reason error) {
	event := events.NewOperationEvent(userID, operation, summarize(target))
	event.TraceID = logger.TraceID(ctx)
	event.Outcome = domain.OutcomeDenied
	s.publish(ctx, event)

	logger.FromContextOrDefault(ctx, s.logger).Warn("host operation denied",
		"operation", operation,
		"user_id", userID,
		"reason", reason.Error())
}

func (s *HostService) publish(ctx context.Context, event *events.OperationEvent) {
	// the audit record must be written even if the request was cancelled
	if err := s.emitter.EmitEvent(context.WithoutCancel(ctx), event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to emit operation event",
			"event_id", event.ID,
			"operation", event.Operation,
			"error", redact.Error(err))
	}
}

func (s *HostService) logFailure(ctx context.Context, operation string, err error) {
	logger.FromContextOrDefault(ctx, s.logger).Warn("host operation failed",
		"operation", operation,
		"message_id", messageID(err),
		"error", redact.Error(err))
}

// messageID extracts the IBM i message or SQL code from err, if any.
func messageID(err error) string {
	var msgErr *as400.MessageError
	if errors.As(err, &msgErr) {
		return msgErr.ID
	}
	return ""
}

// summarize redacts credentials from a command or statement and shortens it
// to a single bounded line for the audit trail. Redaction runs first so a
// secret cut by the limit is never stored.
func summarize(target string) string {
	target = redact.Credentials(strings.Join(strings.Fields(target), " "))
	if len(target) > maxTargetLength {
		target = strings.ToValidUTF8(target[:maxTargetLength], "")
	}
	return target
}
