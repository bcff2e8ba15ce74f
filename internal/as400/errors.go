package as400

import (
	"fmt"

	"github.com/phrazzld/as400-api/internal/domain"
)

// MessageError is a host failure identified by an IBM i message ID or SQL
// code. Err is the domain host error the message maps to.
type MessageError struct {
	ID   string
	Text string
	Err  error
}

// Error implements the error interface.
func (e *MessageError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.ID)
	}
	return fmt.Sprintf("%v: %s %s", e.Err, e.ID, e.Text)
}

// Unwrap returns the domain host error.
func (e *MessageError) Unwrap() error {
	return e.Err
}

var messageClasses = map[string]error{
	// object, library, file or table not found
	"CPF9801": domain.ErrHostObjectNotFound,
	"CPF9810": domain.ErrHostObjectNotFound,
	"CPF9811": domain.ErrHostObjectNotFound,
	"CPF9812": domain.ErrHostObjectNotFound,
	"CPF2105": domain.ErrHostObjectNotFound,
	"CPF2110": domain.ErrHostObjectNotFound,
	"CPF1015": domain.ErrHostObjectNotFound,
	"SQL0204": domain.ErrHostObjectNotFound,

	// authority
	"CPF9802": domain.ErrHostNotAuthorized,
	"CPF2189": domain.ErrHostNotAuthorized,
	"CPF2182": domain.ErrHostNotAuthorized,
	"CPF9820": domain.ErrHostNotAuthorized,
	"SQL0551": domain.ErrHostNotAuthorized,

	// syntax
	"CPD0030": domain.ErrHostInvalidRequest,
	"CPD0043": domain.ErrHostInvalidRequest,
	"CPD0012": domain.ErrHostInvalidRequest,
	"CPF0001": domain.ErrHostInvalidRequest,
	"SQL0104": domain.ErrHostInvalidRequest,
	"SQL0206": domain.ErrHostInvalidRequest,

	// locks
	"CPF1002": domain.ErrHostBusy,
	"CPF3202": domain.ErrHostBusy,
	"SQL0913": domain.ErrHostBusy,
}

var sqlStateClasses = map[string]error{
	"42704": domain.ErrHostObjectNotFound,
	"42501": domain.ErrHostNotAuthorized,
	"42601": domain.ErrHostInvalidRequest,
	"57033": domain.ErrHostBusy,
}

// ClassifyMessage maps an IBM i message ID or SQL code to a domain host
// error. It returns nil for IDs with no specific class.
func ClassifyMessage(id string) error {
	return messageClasses[id]
}

// CommandError builds the error for a failed command. The first message
// with a known class decides the error; otherwise the first escape message
// is reported as ErrHostCommandFailed.
func CommandError(result *domain.CommandResult) error {
	for _, m := range result.Messages {
		if class := ClassifyMessage(m.ID); class != nil {
			return &MessageError{ID: m.ID, Text: m.Text, Err: class}
		}
	}
	if m, ok := result.FirstEscapeMessage(); ok {
		return &MessageError{ID: m.ID, Text: m.Text, Err: domain.ErrHostCommandFailed}
	}
	return fmt.Errorf("%w: exit status %d", domain.ErrHostCommandFailed, result.ExitCode)
}

// SQLError builds the error for a failed statement from db2util output.
func SQLError(output string, exitCode int) error {
	d, ok := ParseSQLDiagnostic(output)
	if !ok {
		return fmt.Errorf("%w: db2util exit status %d", domain.ErrHostCommandFailed, exitCode)
	}
	class := ClassifyMessage(d.MessageID)
	if class == nil {
		class = sqlStateClasses[d.SQLState]
	}
	if class == nil {
		class = domain.ErrHostCommandFailed
	}
	id := d.MessageID
	if id == "" {
		id = "SQLSTATE " + d.SQLState
	}
	return &MessageError{ID: id, Text: d.Text, Err: class}
}
