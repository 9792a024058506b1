package events

import (
	"sync"
	"testing"
	"time"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventListChange)

	hub.EmitListChange("whitelist", "10.0.0.1", "success")

	select {
	case e := <-ch:
		if e.Type != EventListChange {
			t.Errorf("expected EventListChange, got %s", e.Type)
		}
		data, ok := e.Data.(ListChangeData)
		if !ok {
			t.Fatal("expected ListChangeData")
		}
		if data.IP != "10.0.0.1" {
			t.Errorf("expected IP 10.0.0.1, got %s", data.IP)
		}
		if e.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestHub_GlobalSubscription(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10)

	hub.Publish(Event{Type: EventNotification, Source: "test"})
	hub.Publish(Event{Type: EventStatsUpdate, Source: "test"})
	hub.Publish(Event{Type: EventLogAppend, Source: "test"})

	received := 0
	for i := 0; i < 3; i++ {
		select {
		case <-ch:
			received++
		case <-time.After(100 * time.Millisecond):
		}
	}

	if received != 3 {
		t.Errorf("expected 3 events, got %d", received)
	}
}

func TestHub_TypeFiltering(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventLogAppend, EventLogClear)

	hub.Publish(Event{Type: EventNotification})
	hub.Publish(Event{Type: EventLogAppend})
	hub.Publish(Event{Type: EventStatsUpdate})
	hub.Publish(Event{Type: EventLogClear})

	got := []EventType{}
	for len(got) < 2 {
		select {
		case e := <-ch:
			got = append(got, e.Type)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout, got %v", got)
		}
	}
	if got[0] != EventLogAppend || got[1] != EventLogClear {
		t.Errorf("unexpected order %v", got)
	}

	select {
	case e := <-ch:
		t.Errorf("unexpected extra event %s", e.Type)
	default:
	}
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub()
	_ = hub.Subscribe(1, EventStatsUpdate)

	hub.Publish(Event{Type: EventStatsUpdate})
	hub.Publish(Event{Type: EventStatsUpdate})
	hub.Publish(Event{Type: EventStatsUpdate})

	published, dropped := hub.Stats()
	if published != 3 {
		t.Errorf("expected 3 published, got %d", published)
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", dropped)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(10)
	hub.Unsubscribe(ch)

	hub.Publish(Event{Type: EventRestart})

	select {
	case <-ch:
		t.Error("should not receive after unsubscribe")
	default:
	}
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(Event{Type: EventStatsUpdate})
			}
		}()
	}
	wg.Wait()

	if len(ch) != 500 {
		t.Errorf("expected 500 buffered events, got %d", len(ch))
	}
}

func TestEventType_Topic(t *testing.T) {
	tests := map[EventType]string{
		EventNotification: "notification",
		EventStatsUpdate:  "stats",
		EventLogAppend:    "logs",
		EventLogClear:     "logs",
		EventConfigChange: "config",
		EventListChange:   "config",
		EventRestart:      "system",
	}
	for et, want := range tests {
		if got := et.Topic(); got != want {
			t.Errorf("%s.Topic() = %q, want %q", et, got, want)
		}
	}
}

func TestHub_NilPublish(t *testing.T) {
	var hub *Hub
	hub.Publish(Event{Type: EventRestart})
}

func TestHub_SetClock(t *testing.T) {
	hub := NewHub()
	fixed := time.Date(2024, 9, 22, 10, 0, 0, 0, time.UTC)
	hub.SetClock(func() time.Time { return fixed })
	ch := hub.Subscribe(1)
	hub.EmitRestart("restarting")
	e := <-ch
	if !e.Timestamp.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, e.Timestamp)
	}
}
