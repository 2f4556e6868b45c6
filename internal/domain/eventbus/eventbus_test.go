package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestPublishSynchronous(t *testing.T) {
	bus := New(2)
	bus.Start()
	defer bus.Stop()

	var got NotificationEvent
	err := bus.Subscribe(TopicNotificationDispatched, func(ev NotificationEvent) {
		got = ev
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.Publish(TopicNotificationDispatched, NotificationEvent{ID: "abc", Message: "hello"})

	if got.ID != "abc" || got.Message != "hello" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestPublishAsyncDelivers(t *testing.T) {
	bus := New(2)
	bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	var events []NotificationEvent
	done := make(chan struct{}, 3)
	err := bus.Subscribe(TopicNotificationDispatched, func(ev NotificationEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for i := 0; i < 3; i++ {
		bus.PublishAsync(TopicNotificationDispatched, NotificationEvent{ID: "ev", Sound: true})
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for async delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 {
		t.Errorf("delivered %d events, want 3", len(events))
	}
}

func TestPanickingSubscriberDoesNotKillWorker(t *testing.T) {
	bus := New(1)
	bus.Start()
	defer bus.Stop()

	if err := bus.Subscribe("boom", func() { panic("subscriber bug") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	delivered := make(chan struct{}, 1)
	if err := bus.Subscribe("ok", func() { delivered <- struct{}{} }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	bus.PublishAsync("boom")
	bus.PublishAsync("ok")

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after subscriber panic")
	}
}

func TestHasCallback(t *testing.T) {
	bus := New(1)
	if bus.HasCallback("nothing") {
		t.Error("expected no callback for unused topic")
	}
	fn := func(NotificationEvent) {}
	if err := bus.Subscribe("topic", fn); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !bus.HasCallback("topic") {
		t.Error("expected callback after subscribe")
	}
	if err := bus.Unsubscribe("topic", fn); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if bus.HasCallback("topic") {
		t.Error("expected no callback after unsubscribe")
	}
}
