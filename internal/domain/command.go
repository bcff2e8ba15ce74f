package domain

import (
	"strings"
	"time"
)

// MaxCommandLength is the longest CL command string the host accepts.
const MaxCommandLength = 6000

// HostMessage is one IBM i message returned by a command, e.g. CPF9801.
type HostMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Message kinds derived from the message identifier.
const (
	MessageKindCompletion    = "completion"
	MessageKindDiagnostic    = "diagnostic"
	MessageKindEscape        = "escape"
	MessageKindInformational = "informational"
	MessageKindInquiry       = "inquiry"
	MessageKindUnknown       = "unknown"
)

// Kind classifies the message by the conventional third character of
// operating system message IDs (CPC, CPD, CPF, CPI, CPA). Messages from
// other files (MCH, SQL, user-defined) report MessageKindUnknown.
func (m HostMessage) Kind() string {
	if len(m.ID) != 7 || !strings.HasPrefix(m.ID, "CP") {
		return MessageKindUnknown
	}
	switch m.ID[2] {
	case 'C':
		return MessageKindCompletion
	case 'D':
		return MessageKindDiagnostic
	case 'F':
		return MessageKindEscape
	case 'I':
		return MessageKindInformational
	case 'A':
		return MessageKindInquiry
	default:
		return MessageKindUnknown
	}
}

// CommandResult is the outcome of a CL command or program call.
type CommandResult struct {
	Command   string        `json:"command"`
	Succeeded bool          `json:"succeeded"`
	ExitCode  int           `json:"exit_code"`
	Output    string        `json:"output"`
	Messages  []HostMessage `json:"messages"`
	Duration  time.Duration `json:"duration_ns"`
}

// FirstEscapeMessage returns the first escape message, or the last message
// when no escape message was reported. ok is false when there are no messages.
func (r *CommandResult) FirstEscapeMessage() (HostMessage, bool) {
	if r == nil || len(r.Messages) == 0 {
		return HostMessage{}, false
	}
	for _, m := range r.Messages {
		if m.Kind() == MessageKindEscape {
			return m, true
		}
	}
	return r.Messages[len(r.Messages)-1], true
}

// NormalizeCommand trims surrounding whitespace from a CL command.
func NormalizeCommand(cmd string) string {
	return strings.TrimSpace(cmd)
}

// ValidateCommand checks that cmd is a single, non-empty CL command line.
func ValidateCommand(cmd string) error {
	if cmd == "" {
		return NewValidationError("command", "is required", ErrValidation)
	}
	if len(cmd) > MaxCommandLength {
		return NewValidationError("command", "is too long", ErrValidation)
	}
	if strings.ContainsAny(cmd, "\x00\r\n") {
		return NewValidationError("command", "must be a single line", ErrValidation)
	}
	verb := CommandVerb(cmd)
	if !IsValidObjectName(verb) {
		return NewValidationError("command", "does not start with a command name", ErrValidation)
	}
	return nil
}

// CommandVerb returns the upper-cased command name of cmd with any library
// qualifier removed, so "qsys/dsplib QGPL" yields "DSPLIB".
func CommandVerb(cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	verb := fields[0]
	// a verb glued to its first parameter is cut at the parenthesis
	if i := strings.IndexByte(verb, '('); i >= 0 {
		verb = verb[:i]
	}
	if i := strings.LastIndexByte(verb, '/'); i >= 0 {
		verb = verb[i+1:]
	}
	return strings.ToUpper(verb)
}
