package util

import (
	"context"
	"testing"
	"time"
)

func TestEmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var em Emitter

	l := em.Listen(ctx)
	em.Emit("test")

	select {
	case msg := <-l:
		if msg != "test" {
			t.Errorf("Event malformed: %v", msg)
		}
	case <-time.After(time.Millisecond * 100):
		t.Error("Event was not emitted")
	}
}

func TestBufferedEmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var em Emitter
	em.Release = time.Millisecond * 50

	const repeat = 3

	l := em.Listen(ctx)
	for i := 0; i < repeat; i++ {
		em.Emit("test")
	}

	received := 0
	for {
		select {
		case <-l:
			received++
			if received > 1 {
				t.Fatalf("Duplicate event was not deduplicated")
			}
		case <-time.After(time.Millisecond * 200):
			if received != 1 {
				t.Fatalf("Expected exactly 1 event, got %d", received)
			}
			return
		}
	}
}

func TestUnlistenOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var em Emitter
	l := em.Listen(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-l:
			if !ok {
				return // Channel was closed, listener removed.
			}
		case <-deadline:
			t.Fatalf("Listener channel was not closed after cancel")
		}
	}
}
