package service

import (
	"context"
	"fmt"
	"time"
)

// readyTimeout bounds each readiness probe.
const readyTimeout = 5 * time.Second

// Pinger is anything whose availability can be probed, such as *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Readiness reports the state of each dependency as "ok" or "unavailable".
type Readiness struct {
	Database string `json:"database"`
	Host     string `json:"host"`
}

// HealthService checks the gateway's dependencies.
type HealthService struct {
	db   Pinger
	host Pinger
}

// NewHealthService creates a HealthService.
func NewHealthService(db, host Pinger) *HealthService {
	return &HealthService{db: db, host: host}
}

// Ready probes the database and the host. The error wraps
// ErrDependencyUnavailable when either is down.
func (s *HealthService) Ready(ctx context.Context) (Readiness, error) {
	r := Readiness{Database: "ok", Host: "ok"}

	var failed []string
	if err := probe(ctx, s.db); err != nil {
		r.Database = "unavailable"
		failed = append(failed, "database")
	}
	if err := probe(ctx, s.host); err != nil {
		r.Host = "unavailable"
		failed = append(failed, "host")
	}
	if len(failed) > 0 {
		return r, fmt.Errorf("%w: %v", ErrDependencyUnavailable, failed)
	}
	return r, nil
}

func probe(ctx context.Context, p Pinger) error {
	if p == nil {
		return fmt.Errorf("not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return p.PingContext(ctx)
}
