package core

import (
	"context"
	"testing"
)

func TestHubSendPersistsAndDeliversBothSides(t *testing.T) {
	hub, st := newTestHub(t, "alice", "bob")

	c1 := NewClient("c1", "alice")
	c2 := NewClient("c2", "bob")
	hub.RegisterClient(c1)
	hub.RegisterClient(c2)

	c1.Commands <- &Command{Kind: CommandSendDirect, To: "bob", Content: "hi"}

	for _, c := range []*Client{c1, c2} {
		ev := mustEvent(t, c.Events, EventDelivered)
		if ev.Message.From != "alice" || ev.Message.To != "bob" || ev.Message.Content != "hi" {
			t.Fatalf("unexpected delivered event for %s: %+v", c.ID, ev.Message)
		}
		if ev.Message.Seq == 0 {
			t.Fatalf("delivered message missing sequence: %+v", ev.Message)
		}
	}

	history, err := st.History(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hi" {
		t.Fatalf("expected exactly one persisted message, got %+v", history)
	}
}

func TestHubEmptyContentErrorsOriginatorOnly(t *testing.T) {
	hub, st := newTestHub(t, "alice", "bob")

	c1 := NewClient("c1", "alice")
	c2 := NewClient("c2", "bob")
	hub.RegisterClient(c1)
	hub.RegisterClient(c2)

	c1.Commands <- &Command{Kind: CommandSendDirect, To: "bob", Content: ""}

	ev := mustEvent(t, c1.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeValidation {
		t.Fatalf("expected validation error, got %+v", ev)
	}
	mustNoEvent(t, c2.Events)

	history, err := st.History(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("rejected send must not persist, got %+v", history)
	}
}

func TestHubMultiDeviceDelivery(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob")

	a1 := NewClient("a1", "alice")
	a2 := NewClient("a2", "alice")
	b1 := NewClient("b1", "bob")
	hub.RegisterClient(a1)
	hub.RegisterClient(a2)
	hub.RegisterClient(b1)

	b1.Commands <- &Command{Kind: CommandSendDirect, To: "alice", Content: "ping"}

	for _, c := range []*Client{a1, a2, b1} {
		ev := mustEvent(t, c.Events, EventDelivered)
		if ev.Message.From != "bob" || ev.Message.To != "alice" || ev.Message.Content != "ping" {
			t.Fatalf("unexpected delivered event for %s: %+v", c.ID, ev.Message)
		}
	}
}

func TestHubUnknownRecipient(t *testing.T) {
	hub, st := newTestHub(t, "alice")

	c1 := NewClient("c1", "alice")
	hub.RegisterClient(c1)

	c1.Commands <- &Command{Kind: CommandSendDirect, To: "ghost", Content: "hello?"}

	ev := mustEvent(t, c1.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotFound {
		t.Fatalf("expected not_found error, got %+v", ev)
	}

	history, err := st.History(context.Background(), "alice", "ghost")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("send to unknown recipient must not persist, got %+v", history)
	}
}

func TestHubSenderOrderingPreserved(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob")

	c1 := NewClient("c1", "alice")
	c2 := NewClient("c2", "bob")
	hub.RegisterClient(c1)
	hub.RegisterClient(c2)

	contents := []string{"one", "two", "three"}
	for _, content := range contents {
		c1.Commands <- &Command{Kind: CommandSendDirect, To: "bob", Content: content}
	}

	var lastSeq int64
	for _, want := range contents {
		ev := mustEvent(t, c2.Events, EventDelivered)
		if ev.Message.Content != want {
			t.Fatalf("out of order delivery: expected %q, got %q", want, ev.Message.Content)
		}
		if ev.Message.Seq <= lastSeq {
			t.Fatalf("sequence not increasing: %d after %d", ev.Message.Seq, lastSeq)
		}
		lastSeq = ev.Message.Seq
	}
}

func TestHubUnregisterIdempotent(t *testing.T) {
	hub, _ := newTestHub(t, "alice", "bob")

	c1 := NewClient("c1", "alice")
	hub.RegisterClient(c1)
	hub.UnregisterClient(c1)
	// Second unregister of the same handle must be a no-op.
	hub.UnregisterClient(c1)

	// The registry entry is gone: a message to alice is delivered nowhere
	// but still persists and echoes to the sender.
	c2 := NewClient("c2", "bob")
	hub.RegisterClient(c2)
	c2.Commands <- &Command{Kind: CommandSendDirect, To: "alice", Content: "anyone there?"}

	ev := mustEvent(t, c2.Events, EventDelivered)
	if ev.Message.To != "alice" {
		t.Fatalf("unexpected delivered event: %+v", ev.Message)
	}
}
