package conversation

import (
	"sync"

	"github.com/c2smotors/showroom/internal/models"
)

// Log is the append-only ordered sequence of exchanged messages. It is the
// source of truth sent to the reply endpoint on each turn. Entries are never
// retracted, even on failed turns, and the log grows for the lifetime of the
// page view.
//
// Appends from overlapping turns are safe; ordering across concurrent turns
// is the caller's responsibility.
type Log struct {
	mu      sync.Mutex
	entries []models.Message
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an entry to the end of the log. Content is not validated.
func (l *Log) Append(role models.Role, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, models.Message{Role: role, Content: content})
}

// Messages returns a snapshot of the log in conversation order.
func (l *Log) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
