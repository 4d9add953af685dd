package events

import (
	"testing"

	"go.uber.org/zap"
)

func TestBus_FanOut(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Emit(&Event{Type: TypeSucceeded, ToolName: "slack.send_message"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != TypeSucceeded {
				t.Fatalf("subscriber %d: unexpected event %+v", i, e)
			}
		default:
			t.Fatalf("subscriber %d: expected an event", i)
		}
	}
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	// Overfill the buffer. Emit must never block.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Emit(&Event{Type: TypeExecuting})
	}

	if n := len(ch); n != subscriberBuffer {
		t.Fatalf("expected a full buffer of %d, got %d", subscriberBuffer, n)
	}
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	b := NewBus(zap.NewNop())
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	// Channel is closed; no delivery after cancel.
	if _, open := <-ch; open {
		t.Fatal("expected closed channel after cancel")
	}
	b.Emit(&Event{Type: TypeExecuting}) // must not panic
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	b := NewBus(zap.NewNop())
	ch, _ := b.Subscribe()
	b.Close()
	b.Close()

	if _, open := <-ch; open {
		t.Fatal("expected closed subscriber channel after bus close")
	}

	// Subscribing after close yields a closed channel.
	ch2, cancel := b.Subscribe()
	defer cancel()
	if _, open := <-ch2; open {
		t.Fatal("expected closed channel for post-close subscriber")
	}
}
