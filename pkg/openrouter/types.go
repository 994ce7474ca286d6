package openrouter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/params"
)

// Sink receives content deltas in arrival order.
type Sink func(delta string)

// Request is everything one completion needs. It is captured when the
// session is created and never re-read.
type Request struct {
	Model    string
	Messages []message.Message
	Params   params.Params
	APIKey   string
}

// wireMessage is the role and content pair sent to the API.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionBody is the JSON request body. Params is embedded so its fields
// sit at the top level next to model and messages.
type completionBody struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	params.Params
}

func newBody(req Request) completionBody {
	msgs := make([]wireMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = wireMessage{Role: m.Role.String(), Content: m.Content}
	}

	return completionBody{
		Model:    req.Model,
		Messages: msgs,
		Stream:   true,
		Params:   req.Params,
	}
}

// chunk is the subset of a streamed completion frame we read.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c chunk) content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("openrouter: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("openrouter: unexpected status %d: %s", e.Code, e.Body)
}

// Delta renders the error the way it is shown in the conversation.
func (e *StatusError) Delta() string {
	return "[Error: " + strconv.Itoa(e.Code) + " - " + e.Body + "]"
}

// IsFailure reports whether content is nothing but a failure delta, as left
// in a reply whose request failed before any text arrived.
func IsFailure(content string) bool {
	if !strings.HasSuffix(content, "]") {
		return false
	}
	return strings.HasPrefix(content, "[Error: ") || strings.HasPrefix(content, "[System Error: ")
}

// systemErrorDelta renders a transport failure for the conversation.
func systemErrorDelta(err error) string {
	return "[System Error: " + err.Error() + "]"
}
