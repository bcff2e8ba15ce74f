package shared

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commandBody struct {
	Command string `json:"command" validate:"required,max=6000"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		want        string
		errContains string
	}{
		{name: "valid", body: `{"command":"DSPLIB QGPL"}`, want: "DSPLIB QGPL"},
		{name: "trailing comma", body: `{"command":"DSPLIB QGPL",}`, errContains: "invalid character"},
		{name: "empty body", body: "", errContains: "EOF"},
		{name: "unknown field", body: `{"command":"X","cmd":"Y"}`, errContains: "unknown field"},
		{name: "two objects", body: `{"command":"A"}{"command":"B"}`, errContains: "unexpected data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/as400/commands", strings.NewReader(tt.body))
			var got commandBody

			err := DecodeJSON(req, &got)

			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Command)
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"command":"` + strings.Repeat("A", MaxRequestBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/as400/commands", strings.NewReader(body))

	var got commandBody
	err := DecodeJSON(req, &got)

	assert.ErrorIs(t, err, ErrRequestTooLarge)
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestDecodeJSON_ReadError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", errorReader{})

	var got commandBody
	assert.ErrorIs(t, DecodeJSON(req, &got), io.ErrClosedPipe)
}

type selfValidating struct {
	Library string
}

func (s *selfValidating) Validate() error {
	if s.Library == "" {
		return errors.New("library is required")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&commandBody{Command: "DSPLIB QGPL"}))
	assert.Error(t, ValidateRequest(&commandBody{}))
	assert.Error(t, ValidateRequest(&commandBody{Command: strings.Repeat("A", 6001)}))

	assert.NoError(t, ValidateRequest(&selfValidating{Library: "QGPL"}))
	assert.EqualError(t, ValidateRequest(&selfValidating{}), "library is required")
}
