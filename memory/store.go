// Package memory stores chat history per session.
package memory

import (
	"context"
	"time"
)

// ConversationStore is a specialized interface for managing conversation history
type ConversationStore interface {
	// AppendMessages adds messages to the end of a session
	AppendMessages(ctx context.Context, sessionID string, msgs ...Message) error

	// GetMessages retrieves conversation history, oldest first. An unknown
	// session has no messages.
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// ClearSession removes all messages for a session
	ClearSession(ctx context.Context, sessionID string) error

	// Sessions lists the ids of sessions with history
	Sessions(ctx context.Context) ([]string, error)
}

// Message represents a conversation message
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// NewMessage stamps a message with the current time.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().Unix()}
}

// Tail returns the last n messages, or all of them when n <= 0.
func Tail(msgs []Message, n int) []Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
