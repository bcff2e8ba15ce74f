package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// MaxRequestBytes bounds a JSON request body. The largest legitimate body
// is an SQL statement with its parameters.
const MaxRequestBytes = 1 << 20

// ErrRequestTooLarge is returned by DecodeJSON for bodies over MaxRequestBytes.
var ErrRequestTooLarge = errors.New("request body too large")

// Global validator instance for reuse
var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeJSON decodes a single JSON object from the request body into v.
// Unknown fields and trailing data are rejected.
func DecodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, MaxRequestBytes+1)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) && dec.InputOffset() >= MaxRequestBytes {
			return ErrRequestTooLarge
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

// ValidateRequest validates v with its own Validate method when it has
// one, otherwise with its validate struct tags.
func ValidateRequest(v any) error {
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}
	return validate.Struct(v)
}
