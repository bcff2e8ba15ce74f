package as400

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/as400-api/internal/domain"
)

// builtinDeniedCommands can never be allowed by a policy file.
var builtinDeniedCommands = []string{
	"PWRDWNSYS", "ENDSYS", "ENDSBS",
	"DLTLIB", "CLRLIB",
	"DLTUSRPRF", "CHGUSRPRF", "CRTUSRPRF",
	"RSTLIB", "RSTOBJ",
	"ENDTCP", "ENDHOSTSVR",
	"SBMJOB", "ADDJOBSCDE", "CHGJOBSCDE",
	"STRQSH", "QSH",
	"RUNSQL", "RUNSQLSTM",
}

// builtinDeniedPrograms run arbitrary commands or shells. They are refused
// whatever library they are qualified with, through CALL or the program
// call operation alike.
var builtinDeniedPrograms = map[string]bool{
	"QCMDEXC":   true,
	"QCAPCMD":   true,
	"QP2SHELL":  true,
	"QP2SHELL2": true,
	"QP2TERM":   true,
}

// Policy decides which CL commands and programs the gateway will run.
// An empty allow list allows everything that is not denied.
type Policy struct {
	AllowCommands []string `yaml:"allow_commands"`
	DenyCommands  []string `yaml:"deny_commands"`
	AllowPrograms []string `yaml:"allow_programs"`

	allow    map[string]bool
	deny     map[string]bool
	programs map[string]bool
}

// DefaultPolicy returns a policy that applies only the built-in deny list.
func DefaultPolicy() *Policy {
	p := &Policy{}
	if err := p.compile(); err != nil {
		panic(err) // built-in entries are always valid
	}
	return p
}

// LoadPolicy reads a YAML policy file. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document. Unknown keys are rejected.
func ParsePolicy(data []byte) (*Policy, error) {
	p := &Policy{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) compile() error {
	p.allow = make(map[string]bool, len(p.AllowCommands))
	p.deny = make(map[string]bool, len(p.DenyCommands)+len(builtinDeniedCommands))
	p.programs = make(map[string]bool, len(p.AllowPrograms))

	for _, c := range builtinDeniedCommands {
		p.deny[c] = true
	}
	for _, c := range p.DenyCommands {
		verb := domain.NormalizeObjectName(c)
		if !domain.IsValidObjectName(verb) {
			return fmt.Errorf("invalid command %q in deny_commands", c)
		}
		p.deny[verb] = true
	}
	for _, c := range p.AllowCommands {
		verb := domain.NormalizeObjectName(c)
		if !domain.IsValidObjectName(verb) {
			return fmt.Errorf("invalid command %q in allow_commands", c)
		}
		p.allow[verb] = true
	}
	for _, entry := range p.AllowPrograms {
		lib, pgm, ok := strings.Cut(domain.NormalizeObjectName(entry), "/")
		if !ok || !domain.IsValidLibraryName(lib) || (pgm != "*" && !domain.IsValidObjectName(pgm)) {
			return fmt.Errorf("invalid program %q in allow_programs, want LIB/PGM or LIB/*", entry)
		}
		p.programs[lib+"/"+pgm] = true
	}
	return nil
}

// CheckCommand returns domain.ErrPolicyDenied when cmd may not run. When
// allow_programs is set, CALL is only reachable through CheckProgram.
func (p *Policy) CheckCommand(cmd string) error {
	verb := domain.CommandVerb(cmd)
	if p.deny[verb] {
		return fmt.Errorf("%w: command %s is denied", domain.ErrPolicyDenied, verb)
	}
	if verb == "CALL" {
		if pgm, denied := mentionsDeniedProgram(cmd); denied {
			return fmt.Errorf("%w: program %s is denied", domain.ErrPolicyDenied, pgm)
		}
	}
	if verb == "CALL" && len(p.programs) > 0 {
		return fmt.Errorf("%w: use the program call operation", domain.ErrPolicyDenied)
	}
	if len(p.allow) > 0 && !p.allow[verb] {
		return fmt.Errorf("%w: command %s is not allowed", domain.ErrPolicyDenied, verb)
	}
	return nil
}

// CheckProgram returns domain.ErrPolicyDenied when the program may not be
// called. call must already be validated. Library matching is literal, so
// an entry for MYLIB/PGM does not cover *LIBL/PGM.
func (p *Policy) CheckProgram(call domain.ProgramCall) error {
	if builtinDeniedPrograms[strings.ToUpper(call.Program)] {
		return fmt.Errorf("%w: program %s is denied", domain.ErrPolicyDenied, call.Program)
	}
	if p.deny["CALL"] {
		return fmt.Errorf("%w: command CALL is denied", domain.ErrPolicyDenied)
	}
	if len(p.allow) > 0 && !p.allow["CALL"] {
		return fmt.Errorf("%w: command CALL is not allowed", domain.ErrPolicyDenied)
	}
	if len(p.programs) == 0 {
		return nil
	}
	if p.programs[call.QualifiedName()] || p.programs[call.Library+"/*"] {
		return nil
	}
	return fmt.Errorf("%w: program %s is not allowed", domain.ErrPolicyDenied, call.QualifiedName())
}

// mentionsDeniedProgram reports whether any name in a CALL command is a
// built-in denied program. Every name is checked, not only PGM(...), since
// CL accepts keyword parameters in any order and quoted names.
func mentionsDeniedProgram(cmd string) (string, bool) {
	names := strings.FieldsFunc(strings.ToUpper(cmd), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("$#@_", r))
	})
	for _, name := range names {
		if builtinDeniedPrograms[name] {
			return name, true
		}
	}
	return "", false
}
