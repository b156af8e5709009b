package ipc

import "testing"

func TestBus_OnOff(t *testing.T) {
	bus := NewBus()
	var spawns, dones int

	spawnSub := bus.On(EventTypeSpawn, func(Event) { spawns++ })
	bus.On(EventTypeDone, func(Event) { dones++ })

	if n := bus.Publish(NewSpawnEvent("a.html")); n != 1 {
		t.Errorf("Publish delivered to %d handlers, want 1", n)
	}
	bus.Publish(NewDoneEvent(0, 1, 1, 5))

	bus.Off(spawnSub)
	bus.Off(spawnSub) // idempotent
	if n := bus.Publish(NewSpawnEvent("b.html")); n != 0 {
		t.Errorf("detached handler still invoked (%d handlers)", n)
	}

	if spawns != 1 || dones != 1 {
		t.Errorf("spawns=%d dones=%d, want 1 and 1", spawns, dones)
	}
	if bus.Len() != 1 {
		t.Errorf("Len() = %d, want 1", bus.Len())
	}
}

func TestBus_RegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		bus.On(EventTypeLog, func(Event) { order = append(order, i) })
	}
	bus.Publish(NewLogEvent(false, "m", ""))
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("handlers ran out of order: %v", order)
	}
}

func TestBus_HandlerMayDetachDuringPublish(t *testing.T) {
	bus := NewBus()
	calls := 0
	var sub Subscription
	sub = bus.On(EventTypeDone, func(Event) {
		calls++
		bus.Off(sub)
	})

	bus.Publish(NewDoneEvent(0, 0, 0, 0))
	bus.Publish(NewDoneEvent(0, 0, 0, 0))
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if bus.Len() != 0 {
		t.Errorf("Len() = %d after self-detach, want 0", bus.Len())
	}
}
