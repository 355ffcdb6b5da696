package state

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster()

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(delivery(`{"n":1}`))

	for i, ch := range []<-chan StoredDelivery{ch1, ch2} {
		select {
		case d := <-ch:
			if string(d.Payload) != `{"n":1}` {
				t.Errorf("subscriber %d got %s", i, d.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
}

func TestBroadcasterCancelRemovesSubscriber(t *testing.T) {
	b := NewBroadcaster()

	ch, cancel := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.Subscribers())
	}

	cancel()
	if b.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", b.Subscribers())
	}

	// Channel is closed; publish after cancel must not panic.
	b.Publish(delivery(`{}`))
	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}

	// Double cancel is a no-op.
	cancel()
}

func TestBroadcasterSlowSubscriberDropsDeliveries(t *testing.T) {
	b := NewBroadcaster()

	ch, cancel := b.Subscribe()
	defer cancel()

	// Fill the buffer and keep publishing; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(delivery(`{}`))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The buffered window is what survives.
	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received == 0 || received > 16 {
		t.Errorf("received %d deliveries, want 1..16", received)
	}
}

func TestBroadcasterPublishWithNoSubscribers(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(StoredDelivery{Timestamp: time.Now(), Payload: json.RawMessage(`{}`)})
}
