package studio

import (
	"context"
	"strings"

	"github.com/germanamz/studio/pkg/chats/message"
	"github.com/germanamz/studio/pkg/chats/role"
	"github.com/germanamz/studio/pkg/openrouter"
	"github.com/germanamz/studio/pkg/params"
)

// turn carries the settings captured when a send started.
type turn struct {
	studio *Studio
	key    string
	params params.Params
	sink   Sink
}

// stream creates the reply placeholder for model, streams into it and
// returns the finished reply.
func (t turn) stream(ctx context.Context, model string, msgs []message.Message) message.Message {
	s := t.studio

	reply := message.NewReply(model, "")
	s.store.AddMessage(reply)

	var content strings.Builder
	sess := s.client.NewSession(openrouter.Request{
		Model:    model,
		Messages: msgs,
		Params:   t.params,
		APIKey:   t.key,
	}, func(delta string) {
		content.WriteString(delta)
		s.store.AppendContent(reply.ID, delta)
		t.sink(model, delta)
	})

	if !s.track(sess) {
		return reply
	}
	defer s.untrack(sess)

	state, _ := sess.Run(ctx)
	s.log.DebugContext(ctx, "studio: reply finished", "model", model, "state", state.String(), "bytes", content.Len())

	reply.Content = content.String()
	return reply
}

// unusable reports whether an assistant reply should be left out of later
// requests: it never received content or holds only a failure delta.
func unusable(m message.Message) bool {
	return m.Role == role.Assistant && (m.Content == "" || openrouter.IsFailure(m.Content))
}

// chatContext is the whole conversation minus unusable replies.
func chatContext(history []message.Message) []message.Message {
	out := make([]message.Message, 0, len(history))
	for _, m := range history {
		if unusable(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// versusContext is what model sees in versus mode: every prompt plus only
// its own earlier replies.
func versusContext(history []message.Message, model string) []message.Message {
	out := make([]message.Message, 0, len(history))
	for _, m := range history {
		if unusable(m) || (m.Role == role.Assistant && m.ModelName != model) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// roundtableContext is what model sees in roundtable mode: the whole
// conversation, with other models' replies attributed inline.
func roundtableContext(history []message.Message, model string) []message.Message {
	out := make([]message.Message, 0, len(history))
	for _, m := range history {
		if unusable(m) {
			continue
		}
		if m.Role == role.Assistant && m.ModelName != "" && m.ModelName != model {
			m.Content = "[" + m.ModelName + "] " + m.Content
		}
		out = append(out, m)
	}
	return out
}
