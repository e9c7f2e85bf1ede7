package engine

import (
	"log"
	"sync"
	"time"
)

type EventType int

type SubscriberID int

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type listener struct {
	fn     func(Event)
	filter map[EventType]struct{} // nil means all types
}

// EventBus fans events out to listeners synchronously, on the emitter's
// goroutine. Listeners run inline on the ingestion path, so a panic in one
// is recovered and logged instead of unwinding the write that emitted the
// event, and one listener's panic never starves the others.
type EventBus struct {
	mu        sync.RWMutex
	listeners map[SubscriberID]listener
	nextID    SubscriberID
}

func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[SubscriberID]listener)}
}

// Subscribe registers a listener for all event types.
func (eb *EventBus) Subscribe(fn func(Event)) SubscriberID {
	return eb.add(listener{fn: fn})
}

// SubscribeTypes registers a listener for specific event types.
func (eb *EventBus) SubscribeTypes(fn func(Event), types ...EventType) SubscriberID {
	filter := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		filter[t] = struct{}{}
	}
	return eb.add(listener{fn: fn, filter: filter})
}

func (eb *EventBus) add(l listener) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	eb.listeners[eb.nextID] = l
	return eb.nextID
}

// Unsubscribe removes a listener by ID.
func (eb *EventBus) Unsubscribe(id SubscriberID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	delete(eb.listeners, id)
}

// Emit sends an event to all matching listeners.
func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	eb.mu.RLock()
	matched := make([]listener, 0, len(eb.listeners))
	for _, l := range eb.listeners {
		if l.filter != nil {
			if _, ok := l.filter[evt.Type]; !ok {
				continue
			}
		}
		matched = append(matched, l)
	}
	eb.mu.RUnlock()

	for _, l := range matched {
		deliver(l.fn, evt)
	}
}

func deliver(fn func(Event), evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: event listener panic on type %d: %v", evt.Type, r)
		}
	}()
	fn(evt)
}
