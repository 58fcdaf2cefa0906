package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribePublish(t *testing.T) {
	eb := NewEventBus()
	defer eb.Shutdown()

	received := make(chan Event, 1)
	eb.Subscribe(LogLine, func(e Event) {
		received <- e
	})

	eb.Publish(Event{
		Type:      LogLine,
		SessionID: "test-session",
		Data:      map[string]interface{}{"line": "hello"},
	})

	select {
	case e := <-received:
		assert.Equal(t, LogLine, e.Type)
		assert.Equal(t, "test-session", e.SessionID)
		assert.Equal(t, "hello", e.Data["line"])
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	eb := NewEventBus()
	defer eb.Shutdown()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	eb.Subscribe(LogLine, func(e Event) {
		mu.Lock()
		got = append(got, e.Data["line"].(string))
		n := len(got)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	})

	for _, line := range []string{"first", "second", "third"} {
		eb.Publish(Event{Type: LogLine, Data: map[string]interface{}{"line": line}})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handlers")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second", "third"}, got)
}

func TestUnsubscribedTypeIgnored(t *testing.T) {
	eb := NewEventBus()
	defer eb.Shutdown()

	eb.Subscribe(TunnelExited, func(e Event) {
		t.Error("handler for TunnelExited should not fire for LogLine")
	})

	eb.Publish(Event{Type: LogLine})
	time.Sleep(50 * time.Millisecond)
}

func TestHandlerPanicDoesNotKillDispatcher(t *testing.T) {
	eb := NewEventBus()
	defer eb.Shutdown()

	survived := make(chan struct{})
	eb.Subscribe(StreamError, func(e Event) {
		panic("boom")
	})
	eb.Subscribe(LogLine, func(e Event) {
		close(survived)
	})

	eb.Publish(Event{Type: StreamError})
	eb.Publish(Event{Type: LogLine})

	select {
	case <-survived:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher died after handler panic")
	}
}
