package narrate

import (
	"testing"
	"time"
)

func TestNotifyWithoutSubscribersDoesNotBlock(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Notify("checkpoint", "evolution")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked with no subscribers")
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Notify("cycle 1 starting", "dimensional")

	select {
	case event := <-ch:
		if event.Text != "cycle 1 starting" || event.Type != "dimensional" {
			t.Errorf("event = %+v", event)
		}
		if event.Timestamp.IsZero() {
			t.Error("event timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Nobody drains ch; everything past the first event is dropped.
		for i := 0; i < 50; i++ {
			b.Notify("flood", "memory")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Errorf("buffered events = %d, want 1", len(ch))
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(nil)
	_, cancel := b.Subscribe(1)
	if b.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", b.SubscriberCount())
	}

	cancel()
	cancel() // idempotent

	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after cancel, want 0", b.SubscriberCount())
	}
	b.Notify("after cancel", "memory")
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	b1 := NewBroadcaster(nil)
	b2 := NewBroadcaster(nil)
	ch1, cancel1 := b1.Subscribe(1)
	defer cancel1()
	ch2, cancel2 := b2.Subscribe(1)
	defer cancel2()

	Multi{b1, nil, b2}.Notify("hello", "evolution")

	if len(ch1) != 1 || len(ch2) != 1 {
		t.Errorf("delivery = %d/%d, want 1/1", len(ch1), len(ch2))
	}
}
