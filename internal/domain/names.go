package domain

import (
	"regexp"
	"strings"
)

// Special library values accepted wherever a library name is expected.
const (
	LibraryList    = "*LIBL"
	CurrentLibrary = "*CURLIB"
)

var (
	objectNamePattern = regexp.MustCompile(`^[A-Z$#@][A-Z0-9$#@_.]{0,9}$`)
	objectTypePattern = regexp.MustCompile(`^\*[A-Z]{2,9}$`)
)

// NormalizeObjectName upper-cases and trims an IBM i object name.
func NormalizeObjectName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsValidObjectName reports whether name (already normalized) is a valid
// IBM i system object name: 1-10 characters, first A-Z $ # @, then A-Z 0-9 $ # @ _ .
func IsValidObjectName(name string) bool {
	return objectNamePattern.MatchString(name)
}

// IsValidLibraryName accepts object names plus *LIBL and *CURLIB.
func IsValidLibraryName(name string) bool {
	return name == LibraryList || name == CurrentLibrary || IsValidObjectName(name)
}

// IsValidObjectType reports whether t looks like an IBM i object type such as *PGM or *FILE.
func IsValidObjectType(t string) bool {
	return t == "*ALL" || objectTypePattern.MatchString(t)
}

// ValidateObjectName normalizes and validates an object name for field.
func ValidateObjectName(field, name string) (string, error) {
	n := NormalizeObjectName(name)
	if n == "" {
		return "", NewValidationError(field, "is required", ErrInvalidObjectName)
	}
	if !IsValidObjectName(n) {
		return "", NewValidationError(field, "is not a valid IBM i object name", ErrInvalidObjectName)
	}
	return n, nil
}

// ValidateLibraryName normalizes and validates a library name for field.
func ValidateLibraryName(field, name string) (string, error) {
	n := NormalizeObjectName(name)
	if n == "" {
		return "", NewValidationError(field, "is required", ErrInvalidObjectName)
	}
	if !IsValidLibraryName(n) {
		return "", NewValidationError(field, "is not a valid IBM i library name", ErrInvalidObjectName)
	}
	return n, nil
}
