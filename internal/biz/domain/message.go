package domain

import (
	"fmt"
	"time"
)

// Importance is the retention tier of a stored message
type Importance int

const (
	ImportanceDefault    Importance = iota // Ordinary message
	ImportanceImportant                    // Pinned, kept in context indefinitely
	ImportanceAIResponse                   // Stored AI reply, never pinned
)

// Persisted literals. They match the databases written by the first version
// of the bot, so an existing file opens unchanged.
const (
	importanceDefaultLiteral    = "None"
	importanceImportantLiteral  = "Important"
	importanceAIResponseLiteral = "Gemini"
)

// String returns the persisted literal
func (i Importance) String() string {
	switch i {
	case ImportanceImportant:
		return importanceImportantLiteral
	case ImportanceAIResponse:
		return importanceAIResponseLiteral
	default:
		return importanceDefaultLiteral
	}
}

// ParseImportance parses a persisted literal
func ParseImportance(s string) (Importance, error) {
	switch s {
	case importanceDefaultLiteral:
		return ImportanceDefault, nil
	case importanceImportantLiteral:
		return ImportanceImportant, nil
	case importanceAIResponseLiteral:
		return ImportanceAIResponse, nil
	default:
		return ImportanceDefault, fmt.Errorf("unknown importance %q", s)
	}
}

// Pin transitions Default to Important.
// Any other state is left as is and reported as not changed.
func (i Importance) Pin() (Importance, bool) {
	if i != ImportanceDefault {
		return i, false
	}
	return ImportanceImportant, true
}

// Unpin transitions Important back to Default
func (i Importance) Unpin() (Importance, bool) {
	if i != ImportanceImportant {
		return i, false
	}
	return ImportanceDefault, true
}

// Message represents a stored chat message
type Message struct {
	SequenceID      int64 // Store-assigned, defines recency order
	ChatID          int64
	OriginMessageID int64 // Message id in the messaging system, unique per chat only
	Author          string
	Timestamp       time.Time // Display only
	RawTimestamp    string    // Stored text, kept for rows that fail to parse
	Content         string
	Tags            string
	Importance      Importance
}

// IsImportant checks if the message is pinned
func (m *Message) IsImportant() bool {
	return m.Importance == ImportanceImportant
}

// IsAIResponse checks if the message is a stored AI reply
func (m *Message) IsAIResponse() bool {
	return m.Importance == ImportanceAIResponse
}
