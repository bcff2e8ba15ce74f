package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/as400-api/internal/as400"
	"github.com/phrazzld/as400-api/internal/domain"
)

// QueryCall records one call to MockHostClient.Query.
type QueryCall struct {
	SQL     string
	Params  []string
	MaxRows int
}

// MockHostClient implements as400.Client for testing. By default commands
// succeed with an empty result and queries return no rows.
type MockHostClient struct {
	RunCommandFn func(ctx context.Context, cmd string) (*domain.CommandResult, error)
	QueryFn      func(ctx context.Context, sql string, params []string, maxRows int) (*domain.QueryResult, error)
	PingFn       func(ctx context.Context) error

	mu       sync.Mutex
	commands []string
	queries  []QueryCall
	closed   bool
}

var _ as400.Client = (*MockHostClient)(nil)

// RunCommand implements as400.Client
func (m *MockHostClient) RunCommand(ctx context.Context, cmd string) (*domain.CommandResult, error) {
	m.mu.Lock()
	m.commands = append(m.commands, cmd)
	m.mu.Unlock()

	if m.RunCommandFn != nil {
		return m.RunCommandFn(ctx, cmd)
	}
	return &domain.CommandResult{Command: cmd, Succeeded: true, Messages: []domain.HostMessage{}}, nil
}

// Query implements as400.Client
func (m *MockHostClient) Query(ctx context.Context, sql string, params []string, maxRows int) (*domain.QueryResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, QueryCall{SQL: sql, Params: params, MaxRows: maxRows})
	m.mu.Unlock()

	if m.QueryFn != nil {
		return m.QueryFn(ctx, sql, params, maxRows)
	}
	return &domain.QueryResult{Columns: []string{}, Rows: []map[string]any{}}, nil
}

// Ping implements as400.Client
func (m *MockHostClient) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn(ctx)
	}
	return nil
}

// Close implements as400.Client
func (m *MockHostClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Commands returns the commands run so far.
func (m *MockHostClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// Queries returns the queries run so far.
func (m *MockHostClient) Queries() []QueryCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QueryCall(nil), m.queries...)
}

// Closed reports whether Close was called.
func (m *MockHostClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
