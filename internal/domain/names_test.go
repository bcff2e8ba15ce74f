package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidObjectName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"QGPL", true},
		{"MYLIB", true},
		{"$TOOLS", true},
		{"#LIB", true},
		{"@A_B.C", true},
		{"ABCDEFGHIJ", true},
		{"ABCDEFGHIJK", false},
		{"1LIB", false},
		{"", false},
		{"my lib", false},
		{"mylib", false}, // not normalized
		{"*LIBL", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidObjectName(tt.name))
		})
	}
}

func TestIsValidLibraryName(t *testing.T) {
	assert.True(t, IsValidLibraryName("*LIBL"))
	assert.True(t, IsValidLibraryName("*CURLIB"))
	assert.True(t, IsValidLibraryName("QSYS2"))
	assert.False(t, IsValidLibraryName("*ALL"))
}

func TestIsValidObjectType(t *testing.T) {
	assert.True(t, IsValidObjectType("*PGM"))
	assert.True(t, IsValidObjectType("*FILE"))
	assert.True(t, IsValidObjectType("*ALL"))
	assert.False(t, IsValidObjectType("PGM"))
	assert.False(t, IsValidObjectType("*"))
	assert.False(t, IsValidObjectType("*pgm"))
}

func TestValidateObjectName(t *testing.T) {
	name, err := ValidateObjectName("program", "  mypgm ")
	require.NoError(t, err)
	assert.Equal(t, "MYPGM", name)

	_, err = ValidateObjectName("program", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidObjectName))
	assert.True(t, errors.Is(err, ErrValidation))

	var vErr *ValidationError
	_, err = ValidateObjectName("program", "bad name")
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "program", vErr.Field)
}

func TestValidateLibraryName(t *testing.T) {
	name, err := ValidateLibraryName("library", "*libl")
	require.NoError(t, err)
	assert.Equal(t, "*LIBL", name)

	_, err = ValidateLibraryName("library", "TOOLONGLIBNAME")
	assert.ErrorIs(t, err, ErrInvalidObjectName)
}
