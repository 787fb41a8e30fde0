package models

// Role identifies the author of a conversation entry.
type Role string

const (
	// RoleUser marks an entry typed by the visitor.
	RoleUser Role = "user"
	// RoleAssistant marks an entry produced by the consultant.
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry. Entries are immutable once appended
// to a log; their insertion order is meaningful and is replayed to the reply
// endpoint as context on every turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
