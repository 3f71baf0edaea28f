package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/store"
	"github.com/nkoval/dmrelay-server/internal/store/sqlite"
)

func newTestHub(t *testing.T, usernames ...string) (*Hub, store.Store) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	for _, name := range usernames {
		if _, err := st.FindOrCreateUser(ctx, name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	logger := zerolog.New(nil)
	hub := NewHub(st, &logger)
	go hub.Run(ctx)

	return hub, st
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
