package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		password string
	}{
		{"newline", "testpassword123\n", "testpassword123"},
		{"crlf", "test@#$%^&*()\r\n", "test@#$%^&*()"},
		{"no newline", "тест123", "тест123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hashFrom(strings.NewReader(tt.input), bcrypt.MinCost)

			require.NoError(t, err)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(tt.password)))
		})
	}
}

func TestHashFrom_Empty(t *testing.T) {
	_, err := hashFrom(strings.NewReader("\n"), bcrypt.MinCost)

	assert.EqualError(t, err, "empty password")
}
