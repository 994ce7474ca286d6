// Package chat provides the conversation container behind the store.
package chat

import (
	"github.com/germanamz/studio/pkg/chats/message"
)

// Chat is an append-only conversation. The zero value is ready to use.
// Messages are never removed individually, only all at once by Reset, and
// the only in-place edit is appending streamed content to a message. Chat
// is not safe for concurrent use; the store serializes access.
type Chat struct {
	messages []message.Message
}

// New creates a Chat holding msgs.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds messages to the end of the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// AppendContent appends delta to the content of the message with the given
// ID and returns the updated message. It reports whether the message was
// found. The search runs from the newest message, where streaming replies
// live.
func (c *Chat) AppendContent(id, delta string) (message.Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].ID == id {
			c.messages[i].Content += delta
			return c.messages[i], true
		}
	}
	return message.Message{}, false
}

// Reset removes every message.
func (c *Chat) Reset() {
	c.messages = nil
}

// Len returns the number of messages.
func (c *Chat) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the conversation.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}
