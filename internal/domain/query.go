package domain

import (
	"strings"
)

// Query limits.
const (
	MaxSQLLength   = 32740
	MaxQueryParams = 100
)

// QueryRequest is an SQL statement with positional parameter markers (?).
type QueryRequest struct {
	SQL     string
	Params  []string
	MaxRows int
}

// QueryResult holds rows returned by the host. Columns preserves the
// order reported by the host; each row maps column name to value.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// Validate checks statement length and parameter count.
func (q *QueryRequest) Validate() error {
	q.SQL = strings.TrimSpace(q.SQL)
	if q.SQL == "" {
		return NewValidationError("sql", "is required", ErrValidation)
	}
	if len(q.SQL) > MaxSQLLength {
		return NewValidationError("sql", "is too long", ErrValidation)
	}
	if strings.ContainsRune(q.SQL, 0) {
		return NewValidationError("sql", "contains a NUL character", ErrValidation)
	}
	if len(q.Params) > MaxQueryParams {
		return NewValidationError("params", "has too many entries", ErrValidation)
	}
	if q.MaxRows < 0 {
		return NewValidationError("max_rows", "must not be negative", ErrValidation)
	}
	return nil
}

var readOnlyKeywords = map[string]bool{
	"SELECT": true,
	"WITH":   true,
	"VALUES": true,
}

// dataChangeKeywords change data or run procedures wherever they appear,
// including inside FINAL TABLE (INSERT ...) and common table expressions.
// FOR UPDATE clauses are refused along with them.
var dataChangeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"MERGE":    true,
	"TRUNCATE": true,
	"CALL":     true,
}

// sideEffectRoutines are IBM i SQL services that run CL commands, write
// files or send messages when invoked from a query.
var sideEffectRoutines = map[string]bool{
	"QCMDEXC":              true,
	"QCAPCMD":              true,
	"IFS_WRITE":            true,
	"IFS_WRITE_BINARY":     true,
	"IFS_WRITE_UTF8":       true,
	"GENERATE_SPREADSHEET": true,
	"SEND_MESSAGE":         true,
	"LPRINTF":              true,
}

// IsReadOnlySQL reports whether statement is a single query (SELECT, WITH or
// VALUES) that neither changes data nor invokes a routine with side effects.
// String literals and comments are skipped; delimited identifiers are
// compared upper-cased. Statements with a ';' before the end, or with an
// unterminated literal or comment, are rejected because db2util would run
// them differently from what was checked.
func IsReadOnlySQL(statement string) bool {
	words, ok := sqlWords(statement)
	if !ok || len(words) == 0 || !readOnlyKeywords[words[0]] {
		return false
	}
	for i, w := range words {
		if dataChangeKeywords[w] || sideEffectRoutines[w] {
			return false
		}
		if w == "TABLE" && i > 0 {
			switch words[i-1] {
			case "FINAL", "NEW", "OLD":
				return false
			}
		}
	}
	return true
}

// sqlWords splits statement into upper-cased identifiers and keywords,
// skipping string literals and comments. ok is false for unterminated
// literals or comments and for anything following a ';'.
func sqlWords(statement string) (words []string, ok bool) {
	s := statement
	terminated := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
			continue
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			end := strings.IndexByte(s[i:], '\n')
			if end < 0 {
				i = len(s)
			} else {
				i += end + 1
			}
			continue
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return nil, false
			}
			i += 2 + end + 2
			continue
		}

		if terminated {
			return nil, false
		}

		switch {
		case c == ';':
			terminated = true
			i++
		case c == '\'':
			end, closed := closingQuote(s, i, '\'')
			if !closed {
				return nil, false
			}
			i = end
		case c == '"':
			end, closed := closingQuote(s, i, '"')
			if !closed {
				return nil, false
			}
			name := strings.ReplaceAll(s[i+1:end-1], `""`, `"`)
			words = append(words, strings.ToUpper(name))
			i = end
		case isSQLWordByte(c):
			start := i
			for i < len(s) && isSQLWordByte(s[i]) {
				i++
			}
			words = append(words, strings.ToUpper(s[start:i]))
		default:
			i++
		}
	}
	return words, true
}

// closingQuote returns the index just past the quote closing the literal
// that starts at s[start]. A doubled quote is an escaped quote.
func closingQuote(s string, start int, quote byte) (int, bool) {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1, true
	}
	return len(s), false
}

func isSQLWordByte(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
		c == '_' || c == '$' || c == '#' || c == '@' || c >= 0x80
}
