package keypad

import (
	"crypto/subtle"
	"errors"
	"fmt"
)

// DefaultCredential is the credential used when none is configured.
const DefaultCredential = "123456"

var ErrInvalidCredential = errors.New("credential must be a non-empty string of digits")

// Credential is the fixed numeric secret a session compares entries against.
type Credential struct {
	secret string
}

func NewCredential(s string) (Credential, error) {
	if s == "" {
		return Credential{}, ErrInvalidCredential
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Credential{}, fmt.Errorf("%w: found %q", ErrInvalidCredential, s[i])
		}
	}

	return Credential{secret: s}, nil
}

// Matches reports whether candidate is exactly the credential.
func (c Credential) Matches(candidate string) bool {
	if c.secret == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(c.secret), []byte(candidate)) == 1
}

func (c Credential) String() string {
	return "Credential(******)"
}
