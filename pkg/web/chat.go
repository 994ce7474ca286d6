package web

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Frame types on the chat websocket.
const (
	FrameSend   = "send"
	FrameCancel = "cancel"
	FrameDelta  = "delta"
	FrameDone   = "done"
	FrameError  = "error"
)

// Frame is one websocket message in either direction.
type Frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Model   string `json:"model,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleChat upgrades to a websocket. Client frames start or cancel a send;
// the server answers with delta frames followed by done, or an error frame.
// Closing the socket cancels a send started on it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("web: websocket accept", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	write := func(f Frame) {
		if err := wsjson.Write(ctx, conn, f); err != nil {
			s.log.Debug("web: websocket write", "error", err)
		}
	}

	for {
		var in Frame
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				s.log.Debug("web: websocket read", "error", err)
			}
			return
		}

		switch in.Type {
		case FrameSend:
			wg.Add(1)
			go func(text string) {
				defer wg.Done()

				err := s.studio.Send(ctx, text, func(model, delta string) {
					write(Frame{Type: FrameDelta, Model: model, Content: delta})
				})
				if err != nil {
					write(Frame{Type: FrameError, Error: err.Error()})
					return
				}
				write(Frame{Type: FrameDone})
			}(in.Text)

		case FrameCancel:
			s.studio.Cancel()

		default:
			write(Frame{Type: FrameError, Error: "unknown frame type: " + in.Type})
		}
	}
}
