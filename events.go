package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
)

const (
	EventCollisionBegin EventType = iota
	EventCollisionSeparate
	EventSensorBegin
	EventSensorSeparate
	EventSleep
	EventWake
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case EventCollisionBegin:
		return "collision_begin"
	case EventCollisionSeparate:
		return "collision_separate"
	case EventSensorBegin:
		return "sensor_begin"
	case EventSensorSeparate:
		return "sensor_separate"
	case EventSleep:
		return "sleep"
	case EventWake:
		return "wake"
	default:
		return "unknown"
	}
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Collision events
type CollisionBeginEvent struct {
	ShapeA, ShapeB actor.Shape
	BodyA, BodyB   *actor.Body
}

func (e CollisionBeginEvent) Type() EventType { return EventCollisionBegin }

type CollisionSeparateEvent struct {
	ShapeA, ShapeB actor.Shape
	BodyA, BodyB   *actor.Body
	// Removed is true when the pair separated because a shape left the space
	Removed bool
}

func (e CollisionSeparateEvent) Type() EventType { return EventCollisionSeparate }

// Sensor events
type SensorBeginEvent struct {
	ShapeA, ShapeB actor.Shape
	BodyA, BodyB   *actor.Body
}

func (e SensorBeginEvent) Type() EventType { return EventSensorBegin }

type SensorSeparateEvent struct {
	ShapeA, ShapeB actor.Shape
	BodyA, BodyB   *actor.Body
	Removed        bool
}

func (e SensorSeparateEvent) Type() EventType { return EventSensorSeparate }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.Body
}

func (e SleepEvent) Type() EventType { return EventSleep }

type WakeEvent struct {
	Body *actor.Body
}

func (e WakeEvent) Type() EventType { return EventWake }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers the events raised while the space is locked and delivers them once the step is over.
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer  []Event
	pending []Event
}

func NewEvents() Events {
	return Events{
		listeners: make(map[EventType][]EventListener),
		buffer:    make([]Event, 0, 256),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// Len is the number of events waiting for the next flush.
func (e *Events) Len() int {
	return len(e.buffer)
}

func (e *Events) emit(event Event) {
	if len(e.listeners[event.Type()]) == 0 {
		return
	}
	e.buffer = append(e.buffer, event)
}

func (e *Events) emitBegin(arb *Arbiter) {
	arb.began = true
	a, b := arb.Shapes()
	if a.Base().Sensor || b.Base().Sensor {
		e.emit(SensorBeginEvent{ShapeA: a, ShapeB: b, BodyA: a.Body(), BodyB: b.Body()})
		return
	}
	e.emit(CollisionBeginEvent{ShapeA: a, ShapeB: b, BodyA: a.Body(), BodyB: b.Body()})
}

// emitSeparate closes the begin event of arb. Pairs rejected by their begin handler emit nothing.
func (e *Events) emitSeparate(arb *Arbiter) {
	if !arb.began {
		return
	}
	arb.began = false

	a, b := arb.Shapes()
	removed := arb.IsRemoval()
	if a.Base().Sensor || b.Base().Sensor {
		e.emit(SensorSeparateEvent{ShapeA: a, ShapeB: b, BodyA: a.Body(), BodyB: b.Body(), Removed: removed})
		return
	}
	e.emit(CollisionSeparateEvent{ShapeA: a, ShapeB: b, BodyA: a.Body(), BodyB: b.Body(), Removed: removed})
}

// emitSleep emits a sleep event (called when an island falls asleep)
func (e *Events) emitSleep(body *actor.Body) {
	e.emit(SleepEvent{Body: body})
}

// emitWake emits a wake event (called when an island is woken up)
func (e *Events) emitWake(body *actor.Body) {
	e.emit(WakeEvent{Body: body})
}

// flush sends all buffered events and clears the buffer.
// Events raised by the listeners themselves are delivered in the same flush.
func (e *Events) flush() {
	for len(e.buffer) > 0 {
		e.pending, e.buffer = e.buffer, e.pending[:0]

		for _, event := range e.pending {
			for _, listener := range e.listeners[event.Type()] {
				listener(event)
			}
		}
		clear(e.pending)
	}
}
