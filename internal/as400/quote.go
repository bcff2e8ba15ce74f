package as400

import (
	"strings"

	"github.com/phrazzld/as400-api/internal/domain"
)

// QuoteShell wraps s in single quotes for a POSIX shell.
func QuoteShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteCL returns s as a CL character literal, doubling embedded apostrophes.
func QuoteCL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildProgramCall renders a validated program call as a CL CALL command.
func BuildProgramCall(call domain.ProgramCall) string {
	var b strings.Builder
	b.WriteString("CALL PGM(")
	b.WriteString(call.QualifiedName())
	b.WriteString(")")
	if len(call.Parameters) > 0 {
		quoted := make([]string, len(call.Parameters))
		for i, p := range call.Parameters {
			quoted[i] = QuoteCL(p)
		}
		b.WriteString(" PARM(")
		b.WriteString(strings.Join(quoted, " "))
		b.WriteString(")")
	}
	return b.String()
}

// BuildSystemCommand returns the shell line that runs cmd through the PASE
// system utility. The -i flag keeps messages on the job log readable in stdout.
func BuildSystemCommand(systemPath, cmd string) string {
	return systemPath + " -i " + QuoteShell(cmd)
}

// BuildDB2UtilCommand returns the shell line that runs statement through
// db2util with JSON output and one -p flag per parameter marker.
func BuildDB2UtilCommand(db2utilPath, statement string, params []string) string {
	parts := make([]string, 0, 4+2*len(params))
	parts = append(parts, db2utilPath, "-o", "json")
	for _, p := range params {
		parts = append(parts, "-p", QuoteShell(p))
	}
	parts = append(parts, QuoteShell(statement))
	return strings.Join(parts, " ")
}
