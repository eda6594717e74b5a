package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev
	default:
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestBroadcastReachesAllDevicesOfAccount(t *testing.T) {
	hub := newTestHub()
	phone := NewClient(hub, nil, "user-1")
	laptop := NewClient(hub, nil, "user-1")
	hub.Register(phone)
	hub.Register(laptop)

	hub.Broadcast("user-1", NewEvent("item", "created", "i1"))

	for _, c := range []*Client{phone, laptop} {
		ev := recv(t, c)
		if ev.Type != "item_created" {
			t.Errorf("Type = %q, want item_created", ev.Type)
		}
		if ev.ID != "i1" {
			t.Errorf("ID = %q, want i1", ev.ID)
		}
	}
}

func TestBroadcastDoesNotCrossAccounts(t *testing.T) {
	hub := newTestHub()
	mine := NewClient(hub, nil, "user-1")
	theirs := NewClient(hub, nil, "user-2")
	hub.Register(mine)
	hub.Register(theirs)

	hub.Broadcast("user-1", NewEvent("list", "deleted", "l1"))

	if len(theirs.send) != 0 {
		t.Error("event leaked to another account")
	}
	if len(mine.send) != 1 {
		t.Errorf("queued events = %d, want 1", len(mine.send))
	}
}

func TestBroadcastSkipsFullQueues(t *testing.T) {
	hub := newTestHub()
	c := NewClient(hub, nil, "user-1")
	hub.Register(c)

	for i := 0; i < sendQueueSize+5; i++ {
		hub.Broadcast("user-1", NewEvent("item", "updated", "i1"))
	}

	if len(c.send) != sendQueueSize {
		t.Errorf("queued events = %d, want %d", len(c.send), sendQueueSize)
	}
}

func TestUnregisterClosesQueue(t *testing.T) {
	hub := newTestHub()
	c := NewClient(hub, nil, "user-1")
	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("send queue not closed")
	}

	// A second unregister of the same client is harmless.
	hub.Unregister(c)

	// Broadcasting to an account with no devices is a no-op.
	hub.Broadcast("user-1", NewEvent("item", "created", "i1"))
}
