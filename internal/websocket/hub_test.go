package websocket

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dukerupert/sipbridge/internal/status"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func TestRegisterUnregister(t *testing.T) {
	h := testHub()
	c := &Client{hub: h, send: make(chan []byte, 1)}

	h.Register(c)
	if h.ClientCount() != 1 {
		t.Errorf("client count = %d, want 1", h.ClientCount())
	}

	h.Unregister(c)
	if h.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", h.ClientCount())
	}

	// send channel is closed after unregister
	if _, ok := <-c.send; ok {
		t.Error("expected send channel to be closed")
	}
}

func TestUnregisterTwice(t *testing.T) {
	h := testHub()
	c := &Client{hub: h, send: make(chan []byte, 1)}

	h.Register(c)
	h.Unregister(c)
	h.Unregister(c) // must not panic on double close
}

func TestBroadcast(t *testing.T) {
	h := testHub()
	c := &Client{hub: h, send: make(chan []byte, 4)}
	h.Register(c)

	h.Broadcast(StatusEvent("acc-1", status.Registered))

	select {
	case data := <-c.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Type != "archive_status" {
			t.Errorf("type = %q, want archive_status", ev.Type)
		}
		if ev.AccessionID != "acc-1" {
			t.Errorf("accession_id = %q, want acc-1", ev.AccessionID)
		}
		if ev.Status != "REGISTERED" {
			t.Errorf("status = %q, want REGISTERED", ev.Status)
		}
	default:
		t.Fatal("expected event on send channel")
	}
}

func TestBroadcastFullBufferDoesNotBlock(t *testing.T) {
	h := testHub()
	c := &Client{hub: h, send: make(chan []byte)} // unbuffered, no reader
	h.Register(c)

	// Broadcast drops events for slow clients instead of blocking; this call
	// hangs the test on regression.
	h.Broadcast(StatusEvent("acc-1", status.New))
}
