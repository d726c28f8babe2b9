package keypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredential(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"123456", false},
		{"0", false},
		{"000000000000000000000000", false},
		{"", true},
		{"12a4", true},
		{" 1234", true},
		{"-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := NewCredential(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredential)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCredentialMatches(t *testing.T) {
	c, err := NewCredential("123456")
	require.NoError(t, err)

	assert.True(t, c.Matches("123456"))
	assert.False(t, c.Matches(""))
	assert.False(t, c.Matches("12345"))
	assert.False(t, c.Matches("1234567"))
	assert.False(t, c.Matches("654321"))

	var zero Credential
	assert.False(t, zero.Matches(""), "zero credential matches nothing")
}

func TestCredentialStringHidesSecret(t *testing.T) {
	c, err := NewCredential("8642")
	require.NoError(t, err)
	assert.NotContains(t, c.String(), "8642")
}
