package events

import (
	"fmt"
	"sync"
	"time"
)

type EventType string

const (
	TunnelStarted EventType = "tunnel.started"
	TunnelExited  EventType = "tunnel.exited"
	LogLine       EventType = "log.line"
	StreamError   EventType = "stream.error"
)

type Event struct {
	Type      EventType
	SessionID string
	Timestamp time.Time
	Data      map[string]interface{}
}

type Handler func(event Event)

// EventBus decouples the supervisor's reader goroutines from the TUI.
// A single dispatcher goroutine drains a bounded queue; handlers run on
// that goroutine and must not block.
type EventBus struct {
	handlers map[EventType][]Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

func NewEventBus() *EventBus {
	eb := &EventBus{
		handlers: make(map[EventType][]Handler),
		queue:    make(chan Event, 256),
		done:     make(chan struct{}),
	}

	eb.wg.Add(1)
	go eb.dispatch()

	return eb
}

func (eb *EventBus) dispatch() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.queue:
			eb.mu.RLock()
			handlers := eb.handlers[event.Type]
			eb.mu.RUnlock()

			for _, handler := range handlers {
				eb.run(handler, event)
			}
		case <-eb.done:
			return
		}
	}
}

func (eb *EventBus) run(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("EventBus handler panic: %v\n", r)
		}
	}()
	handler(event)
}

func (eb *EventBus) Subscribe(eventType EventType, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Publish enqueues the event for dispatch. When the queue is full the
// event is handled synchronously on the caller's goroutine rather than
// dropped; output arrives line-at-a-time so this stays rare.
func (eb *EventBus) Publish(event Event) {
	event.Timestamp = time.Now()

	select {
	case eb.queue <- event:
	default:
		eb.mu.RLock()
		handlers := eb.handlers[event.Type]
		eb.mu.RUnlock()

		for _, handler := range handlers {
			eb.run(handler, event)
		}
	}
}

// Shutdown stops the dispatcher. Events published afterwards are dropped.
func (eb *EventBus) Shutdown() {
	close(eb.done)
	eb.wg.Wait()
}
