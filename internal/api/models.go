package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/service"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// RefreshTokenRequest is the body of POST /api/auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string      `json:"expires_at"`
	Role      domain.Role `json:"role"`
}

func tokenPairToResponse(pair *service.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    pair.ExpiresAt.Format(time.RFC3339),
		Role:         pair.Role,
	}
}

// CommandRequest is the body of the command endpoints.
type CommandRequest struct {
	Command string `json:"command" validate:"required,max=6000"`
}

// QueryRequest is the body of POST /api/as400/query. MaxRows of zero
// selects the configured maximum.
type QueryRequest struct {
	SQL     string   `json:"sql"      validate:"required,max=32740"`
	Params  []string `json:"params"   validate:"max=100"`
	MaxRows int      `json:"max_rows" validate:"gte=0"`
}

func (q QueryRequest) toDomain() domain.QueryRequest {
	return domain.QueryRequest{SQL: q.SQL, Params: q.Params, MaxRows: q.MaxRows}
}

// ProgramCallRequest is the body of POST /api/as400/programs/call.
type ProgramCallRequest struct {
	Library    string   `json:"library"    validate:"required,max=10"`
	Program    string   `json:"program"    validate:"required,max=10"`
	Parameters []string `json:"parameters" validate:"max=255,dive,max=256"`
}

func (p ProgramCallRequest) toDomain() domain.ProgramCall {
	return domain.ProgramCall{Library: p.Library, Program: p.Program, Parameters: p.Parameters}
}

// JobResponse describes an asynchronous job.
type JobResponse struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func jobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:           job.ID.String(),
		Type:         job.Type,
		Status:       string(job.Status),
		Payload:      job.Payload,
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// AuditEntryResponse is one entry of GET /api/audit.
type AuditEntryResponse struct {
	ID         uuid.UUID `json:"id"`
	Operation  string    `json:"operation"`
	Target     string    `json:"target"`
	Outcome    string    `json:"outcome"`
	MessageID  string    `json:"message_id,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	TraceID    string    `json:"trace_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditListResponse wraps the caller's audit entries, newest first.
type AuditListResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

func auditEntriesToResponse(entries []domain.AuditEntry) AuditListResponse {
	resp := AuditListResponse{Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, AuditEntryResponse{
			ID:         e.ID,
			Operation:  e.Operation,
			Target:     e.Target,
			Outcome:    e.Outcome,
			MessageID:  e.MessageID,
			DurationMS: e.DurationMS,
			TraceID:    e.TraceID,
			CreatedAt:  e.CreatedAt,
		})
	}
	return resp
}
