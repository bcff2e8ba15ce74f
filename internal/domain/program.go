package domain

// Program call limits.
const (
	MaxProgramParams     = 255
	MaxProgramParamBytes = 256
)

// ProgramCall identifies a program and its character parameters.
type ProgramCall struct {
	Library    string
	Program    string
	Parameters []string
}

// Validate normalizes the library and program names in place and checks parameter limits.
func (p *ProgramCall) Validate() error {
	lib, err := ValidateLibraryName("library", p.Library)
	if err != nil {
		return err
	}
	pgm, err := ValidateObjectName("program", p.Program)
	if err != nil {
		return err
	}
	if len(p.Parameters) > MaxProgramParams {
		return NewValidationError("parameters", "has too many entries", ErrValidation)
	}
	for _, param := range p.Parameters {
		if len(param) > MaxProgramParamBytes {
			return NewValidationError("parameters", "contains a value that is too long", ErrValidation)
		}
		for _, r := range param {
			if r < 0x20 {
				return NewValidationError("parameters", "contains control characters", ErrValidation)
			}
		}
	}
	p.Library = lib
	p.Program = pgm
	return nil
}

// QualifiedName returns LIB/PGM.
func (p *ProgramCall) QualifiedName() string {
	return p.Library + "/" + p.Program
}
