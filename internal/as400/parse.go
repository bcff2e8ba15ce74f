package as400

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/phrazzld/as400-api/internal/domain"
)

var (
	messageLinePattern = regexp.MustCompile(`^([A-Z]{3}[0-9A-F]{4}):\s*(.*)$`)
	sqlCodePattern     = regexp.MustCompile(`SQLCODE\s*[=:]?\s*(-?\d+)`)
	sqlStatePattern    = regexp.MustCompile(`SQLSTATE\s*[=:]?\s*([0-9A-Z]{5})`)
	sqlMessagePattern  = regexp.MustCompile(`\b(SQL\d{4})\b`)
)

// ParseMessages extracts IBM i messages from command output. Each output is
// scanned line by line; stdout messages come before stderr messages.
func ParseMessages(outputs ...string) []domain.HostMessage {
	var msgs []domain.HostMessage
	for _, out := range outputs {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimRight(line, "\r ")
			m := messageLinePattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			msgs = append(msgs, domain.HostMessage{ID: m[1], Text: m[2]})
		}
	}
	return msgs
}

// SQLDiagnostic is the error information db2util prints when a statement fails.
type SQLDiagnostic struct {
	MessageID string // e.g. SQL0204
	SQLState  string // e.g. 42704
	Text      string
}

// ParseSQLDiagnostic looks for an SQL code or SQLSTATE in db2util output.
// ok is false when neither is present.
func ParseSQLDiagnostic(output string) (SQLDiagnostic, bool) {
	var d SQLDiagnostic
	if m := sqlCodePattern.FindStringSubmatch(output); m != nil {
		code := strings.TrimPrefix(m[1], "-")
		for len(code) < 4 {
			code = "0" + code
		}
		d.MessageID = "SQL" + code
	} else if m := sqlMessagePattern.FindStringSubmatch(output); m != nil {
		d.MessageID = m[1]
	}
	if m := sqlStatePattern.FindStringSubmatch(output); m != nil {
		d.SQLState = m[1]
	}
	if d.MessageID == "" && d.SQLState == "" {
		return d, false
	}
	d.Text = strings.TrimSpace(output)
	return d, true
}

// ParseQueryOutput decodes db2util JSON ({"records":[{...}]}). Row order is
// preserved and column order is taken from the first record as emitted.
// Decoding stops at the first record beyond maxRows, which marks the result
// truncated and leaves the rest of data unread, so a cut-off tail is not an
// error once the limit is reached. A non-positive maxRows keeps every row.
func ParseQueryOutput(data []byte, maxRows int) (*domain.QueryResult, error) {
	result := &domain.QueryResult{Columns: []string{}, Rows: []map[string]any{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return result, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "records" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrHostProtocol, err)
			}
			continue
		}
		stopped, err := decodeRecords(dec, result, maxRows)
		if err != nil {
			return nil, err
		}
		if stopped {
			return result, nil
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return result, nil
}

// decodeRecords reads the records array into result. stopped is true when
// a record beyond maxRows was found; that record is not decoded.
func decodeRecords(dec *json.Decoder, result *domain.QueryResult, maxRows int) (stopped bool, err error) {
	if err := expectDelim(dec, '['); err != nil {
		return false, err
	}
	for dec.More() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			result.RowCount = len(result.Rows)
			return true, nil
		}
		row, columns, err := decodeRecord(dec)
		if err != nil {
			return false, err
		}
		if len(result.Rows) == 0 {
			result.Columns = columns
		}
		result.Rows = append(result.Rows, row)
	}
	result.RowCount = len(result.Rows)
	return false, expectDelim(dec, ']')
}

func decodeRecord(dec *json.Decoder) (map[string]any, []string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}
	row := make(map[string]any)
	var columns []string
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, nil, err
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrHostProtocol, err)
		}
		if _, dup := row[key]; !dup {
			columns = append(columns, key)
		}
		row[key] = value
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return row, columns, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrHostProtocol, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", domain.ErrHostProtocol, tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("%w: truncated JSON output", domain.ErrHostProtocol)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHostProtocol, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", domain.ErrHostProtocol, want, tok)
	}
	return nil
}
