package main

import (
	"context"
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/studio/pkg/store"
)

// bridgeKinds are the store events the UI reacts to. Message updates are
// left out: streamed content arrives through the send sink instead.
var bridgeKinds = append(slices.Clone(store.PersistedKinds), store.EventChatCleared)

// startBridge launches the store watcher goroutine. It only calls p.Send()
// and never touches model state directly. The returned function stops the
// watcher and waits for it to exit, so no stale messages are sent after it
// returns.
func startBridge(ctx context.Context, p *tea.Program, s *store.Store) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := s.Subscribe(64, bridgeKinds...)

	wg.Go(func() {
		defer s.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				p.Send(storeEventMsg{event: ev})
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}
