package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthService_Ready(t *testing.T) {
	up := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name    string
		db      Pinger
		host    Pinger
		want    Readiness
		wantErr bool
	}{
		{"all up", up, up, Readiness{Database: "ok", Host: "ok"}, false},
		{"database down", down, up, Readiness{Database: "unavailable", Host: "ok"}, true},
		{"host down", up, down, Readiness{Database: "ok", Host: "unavailable"}, true},
		{"host not configured", up, nil, Readiness{Database: "ok", Host: "unavailable"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewHealthService(tt.db, tt.host).Ready(context.Background())

			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDependencyUnavailable)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestHealthService_ProbeHasDeadline(t *testing.T) {
	var hadDeadline bool
	p := PingerFunc(func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})

	_, err := NewHealthService(p, p).Ready(context.Background())

	require.NoError(t, err)
	assert.True(t, hadDeadline)
}
