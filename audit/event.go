package audit

import "time"

// Event is a single audit record. CBOR encoding uses integer keys.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the keypad session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Panel is the id the panel was registered under.
	Panel string `cbor:"3,keyasint,omitempty"`

	Category Category `cbor:"4,keyasint"`

	OldState string `cbor:"5,keyasint,omitempty"`
	NewState string `cbor:"6,keyasint,omitempty"`

	// Reason names the input that caused the event (digit, backspace, submit, start).
	Reason string `cbor:"7,keyasint,omitempty"`
}

// Category classifies the event.
type Category uint8

const (
	// CategoryState is a session state transition.
	CategoryState Category = 0
	// CategoryUnlock is a submit that matched the credential.
	CategoryUnlock Category = 1
	// CategoryDeny is a submit that did not match.
	CategoryDeny Category = 2
)

func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryUnlock:
		return "UNLOCK"
	case CategoryDeny:
		return "DENY"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory returns the category with the given name.
func ParseCategory(s string) (Category, bool) {
	for _, c := range []Category{CategoryState, CategoryUnlock, CategoryDeny} {
		if c.String() == s {
			return c, true
		}
	}

	return 0, false
}
