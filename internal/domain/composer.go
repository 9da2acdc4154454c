package domain

import "fmt"

// ValidationError describes why the current composer input can't be sent.
type ValidationError interface {
	error
	Kind() string
}

type MessageLengthExceeded struct {
	MessageLength    int `json:"messageLength"`
	MaxMessageLength int `json:"maxMessageLength"`
}

func (e MessageLengthExceeded) Kind() string { return "message_length_exceeded" }

func (e MessageLengthExceeded) Error() string {
	return fmt.Sprintf("message length %d exceeds %d", e.MessageLength, e.MaxMessageLength)
}

// ComposerState is the snapshot the UI reads as a whole.
type ComposerState struct {
	InputValue       string            `json:"inputValue"`
	ValidationErrors []ValidationError `json:"validationErrors"`
	OwnCapabilities  []string          `json:"ownCapabilities"`
}

// HasCapability reports whether caps contains c.
func (s ComposerState) HasCapability(c string) bool {
	for _, own := range s.OwnCapabilities {
		if own == c {
			return true
		}
	}
	return false
}
