// Package message defines the Message type used in studio conversations.
package message

import (
	"github.com/germanamz/studio/pkg/chats/role"
	"github.com/google/uuid"
)

// Message represents a single message in a conversation.
// It is a value type that copies cheaply. ModelName is set on assistant
// replies so multi-model conversations can tell answers apart.
type Message struct {
	ID        string    `json:"id"`
	Role      role.Role `json:"role"`
	Content   string    `json:"content"`
	ModelName string    `json:"modelName,omitempty"`
}

// New creates a message with a fresh random ID.
func New(r role.Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    r,
		Content: content,
	}
}

// NewReply creates an assistant message attributed to model.
func NewReply(model, content string) Message {
	m := New(role.Assistant, content)
	m.ModelName = model
	return m
}

// IsReply reports whether m is an assistant message from the given model.
func (m Message) IsReply(model string) bool {
	return m.Role == role.Assistant && m.ModelName == model
}
