package as400

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/as400-api/internal/domain"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		id   string
		want error
	}{
		{"CPF9801", domain.ErrHostObjectNotFound},
		{"CPF2110", domain.ErrHostObjectNotFound},
		{"SQL0204", domain.ErrHostObjectNotFound},
		{"CPF9802", domain.ErrHostNotAuthorized},
		{"SQL0551", domain.ErrHostNotAuthorized},
		{"CPD0030", domain.ErrHostInvalidRequest},
		{"SQL0104", domain.ErrHostInvalidRequest},
		{"CPF1002", domain.ErrHostBusy},
		{"SQL0913", domain.ErrHostBusy},
		{"CPF0006", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.id))
		})
	}
}

func TestCommandError(t *testing.T) {
	t.Run("classified diagnostic wins over generic escape", func(t *testing.T) {
		result := &domain.CommandResult{ExitCode: 255, Messages: []domain.HostMessage{
			{ID: "CPF0006", Text: "Errors occurred in command."},
			{ID: "CPD0043", Text: "Keyword LIBX not valid for this command."},
		}}

		err := CommandError(result)

		assert.ErrorIs(t, err, domain.ErrHostInvalidRequest)
		var msgErr *MessageError
		require.True(t, errors.As(err, &msgErr))
		assert.Equal(t, "CPD0043", msgErr.ID)
	})

	t.Run("unclassified escape", func(t *testing.T) {
		result := &domain.CommandResult{ExitCode: 1, Messages: []domain.HostMessage{
			{ID: "CPI2417", Text: "Job message queue replaced."},
			{ID: "CPF3C4D", Text: "Length not valid."},
		}}

		err := CommandError(result)

		assert.ErrorIs(t, err, domain.ErrHostCommandFailed)
		var msgErr *MessageError
		require.True(t, errors.As(err, &msgErr))
		assert.Equal(t, "CPF3C4D", msgErr.ID)
	})

	t.Run("no messages", func(t *testing.T) {
		err := CommandError(&domain.CommandResult{ExitCode: 127})
		assert.ErrorIs(t, err, domain.ErrHostCommandFailed)
		assert.Contains(t, err.Error(), "127")
	})
}

func TestSQLError(t *testing.T) {
	err := SQLError("SQLSTATE=42704 SQLCODE=-204 T1 in QGPL type *FILE not found.", 1)
	assert.ErrorIs(t, err, domain.ErrHostObjectNotFound)

	err = SQLError("SQLSTATE=42501 SQLCODE=-9999", 1)
	assert.ErrorIs(t, err, domain.ErrHostNotAuthorized, "falls back to SQLSTATE")

	err = SQLError("SQLSTATE=57014", 1)
	assert.ErrorIs(t, err, domain.ErrHostCommandFailed)
	var msgErr *MessageError
	require.True(t, errors.As(err, &msgErr))
	assert.Equal(t, "SQLSTATE 57014", msgErr.ID)

	err = SQLError("killed", 137)
	assert.ErrorIs(t, err, domain.ErrHostCommandFailed)
}

func TestMessageErrorString(t *testing.T) {
	err := &MessageError{ID: "CPF9801", Text: "Object X not found.", Err: domain.ErrHostObjectNotFound}
	assert.Equal(t, "host object not found: CPF9801 Object X not found.", err.Error())

	err = &MessageError{ID: "SQL0913", Err: domain.ErrHostBusy}
	assert.Equal(t, "host object in use: SQL0913", err.Error())
}
