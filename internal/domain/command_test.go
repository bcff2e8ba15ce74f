package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandVerb(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"DSPLIB LIB(QGPL)", "DSPLIB"},
		{"  dspobjd obj(qgpl/x) objtype(*file)", "DSPOBJD"},
		{"QSYS/CRTLIB LIB(TEST)", "CRTLIB"},
		{"CHKOBJ(X)", "CHKOBJ"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, CommandVerb(tt.cmd))
		})
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		wantErr bool
	}{
		{"simple command", "DSPLIB LIB(QGPL)", false},
		{"qualified command", "QSYS/SNDMSG MSG('hi') TOUSR(QSYSOPR)", false},
		{"empty", "", true},
		{"multi line", "DSPLIB QGPL\nDLTLIB QGPL", true},
		{"NUL byte", "DSPLIB\x00", true},
		{"prompt character", "?DSPLIB", true},
		{"too long", "SNDMSG MSG('" + strings.Repeat("x", MaxCommandLength) + "')", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommand(tt.cmd)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHostMessageKind(t *testing.T) {
	assert.Equal(t, MessageKindCompletion, HostMessage{ID: "CPC2191"}.Kind())
	assert.Equal(t, MessageKindDiagnostic, HostMessage{ID: "CPD0030"}.Kind())
	assert.Equal(t, MessageKindEscape, HostMessage{ID: "CPF9801"}.Kind())
	assert.Equal(t, MessageKindInformational, HostMessage{ID: "CPI2417"}.Kind())
	assert.Equal(t, MessageKindInquiry, HostMessage{ID: "CPA4002"}.Kind())
	assert.Equal(t, MessageKindUnknown, HostMessage{ID: "MCH3601"}.Kind())
	assert.Equal(t, MessageKindUnknown, HostMessage{ID: "CPF"}.Kind())
}

func TestCommandResultFirstEscapeMessage(t *testing.T) {
	var nilResult *CommandResult
	_, ok := nilResult.FirstEscapeMessage()
	assert.False(t, ok)

	r := &CommandResult{Messages: []HostMessage{
		{ID: "CPD0043", Text: "Keyword not valid"},
		{ID: "CPF0006", Text: "Errors occurred in command."},
	}}
	msg, ok := r.FirstEscapeMessage()
	assert.True(t, ok)
	assert.Equal(t, "CPF0006", msg.ID)

	r = &CommandResult{Messages: []HostMessage{{ID: "CPC2102", Text: "Library created."}}}
	msg, ok = r.FirstEscapeMessage()
	assert.True(t, ok)
	assert.Equal(t, "CPC2102", msg.ID)
}
