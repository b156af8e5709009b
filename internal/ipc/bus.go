package ipc

import "sync"

// Handler receives events published on a Bus
type Handler func(Event)

// Subscription identifies one handler registration; pass it to Off to detach.
type Subscription struct {
	eventType EventType
	id        uint64
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus dispatches events to the handlers registered for their type.
// Handlers run synchronously on the publishing goroutine, in registration order.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[EventType][]registration
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType][]registration)}
}

// On registers handler for events of the given type
func (b *Bus) On(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: b.nextID, handler: handler})
	return Subscription{eventType: eventType, id: b.nextID}
}

// Off removes a registration. Removing twice is a no-op.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.eventType]
	for i, r := range regs {
		if r.id == sub.id {
			// Copy so a Publish already iterating the old slice is unaffected
			next := make([]registration, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, sub.eventType)
			} else {
				b.handlers[sub.eventType] = next
			}
			return
		}
	}
}

// Publish delivers event to every handler registered for its type and
// returns how many handlers were invoked. Handlers may call On or Off.
func (b *Bus) Publish(event Event) int {
	b.mu.Lock()
	regs := b.handlers[event.Type()]
	b.mu.Unlock()

	for _, r := range regs {
		r.handler(event)
	}
	return len(regs)
}

// Len returns the number of registered handlers across all event types
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, regs := range b.handlers {
		n += len(regs)
	}
	return n
}
