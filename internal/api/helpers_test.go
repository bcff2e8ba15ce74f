package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/domain"
)

// fakeHost implements HostOperations with overridable functions. Unset
// functions succeed with an empty result.
type fakeHost struct {
	runCommand   func(ctx context.Context, userID uuid.UUID, cmd string) (*domain.CommandResult, error)
	callProgram  func(ctx context.Context, userID uuid.UUID, call domain.ProgramCall) (*domain.CommandResult, error)
	query        func(ctx context.Context, userID uuid.UUID, req domain.QueryRequest) (*domain.QueryResult, error)
	listObjects  func(ctx context.Context, userID uuid.UUID, library, objectType string) (*domain.QueryResult, error)
	activeJobs   func(ctx context.Context, userID uuid.UUID, subsystem string) (*domain.QueryResult, error)
	dataArea     func(ctx context.Context, userID uuid.UUID, library, name string) (*domain.QueryResult, error)
	systemStatus func(ctx context.Context, userID uuid.UUID) (*domain.QueryResult, error)
}

func emptyQueryResult() *domain.QueryResult {
	return &domain.QueryResult{Columns: []string{}, Rows: []map[string]any{}}
}

func (f *fakeHost) RunCommand(ctx context.Context, userID uuid.UUID, cmd string) (*domain.CommandResult, error) {
	if f.runCommand != nil {
		return f.runCommand(ctx, userID, cmd)
	}
	return &domain.CommandResult{Command: cmd, Succeeded: true, Messages: []domain.HostMessage{}}, nil
}

func (f *fakeHost) CallProgram(ctx context.Context, userID uuid.UUID, call domain.ProgramCall) (*domain.CommandResult, error) {
	if f.callProgram != nil {
		return f.callProgram(ctx, userID, call)
	}
	return &domain.CommandResult{Succeeded: true, Messages: []domain.HostMessage{}}, nil
}

func (f *fakeHost) Query(ctx context.Context, userID uuid.UUID, req domain.QueryRequest) (*domain.QueryResult, error) {
	if f.query != nil {
		return f.query(ctx, userID, req)
	}
	return emptyQueryResult(), nil
}

func (f *fakeHost) SystemStatus(ctx context.Context, userID uuid.UUID) (*domain.QueryResult, error) {
	if f.systemStatus != nil {
		return f.systemStatus(ctx, userID)
	}
	return emptyQueryResult(), nil
}

func (f *fakeHost) ListObjects(ctx context.Context, userID uuid.UUID, library, objectType string) (*domain.QueryResult, error) {
	if f.listObjects != nil {
		return f.listObjects(ctx, userID, library, objectType)
	}
	return emptyQueryResult(), nil
}

func (f *fakeHost) ActiveJobs(ctx context.Context, userID uuid.UUID, subsystem string) (*domain.QueryResult, error) {
	if f.activeJobs != nil {
		return f.activeJobs(ctx, userID, subsystem)
	}
	return emptyQueryResult(), nil
}

func (f *fakeHost) DataArea(ctx context.Context, userID uuid.UUID, library, name string) (*domain.QueryResult, error) {
	if f.dataArea != nil {
		return f.dataArea(ctx, userID, library, name)
	}
	return emptyQueryResult(), nil
}

const testTraceID = "0af7651916cd43dd8448eb211c80319c"

// asUser runs every request as userID with a fixed trace ID, standing in
// for the trace and authentication middleware.
func asUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.WithTraceID(r.Context(), testTraceID)
			if userID != uuid.Nil {
				ctx = shared.WithUser(ctx, userID, domain.RoleOperator)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(userID uuid.UUID, register func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(userID))
	register(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
