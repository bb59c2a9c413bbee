package systems

import (
	"github.com/mlange-42/ark/ecs"
)

// Mode is the resolution outcome applied to an entity's conflict.
type Mode uint8

const (
	// ModeContact means candidates were recorded but no resolution was
	// needed (sensors, or non-conflicting contacts).
	ModeContact Mode = iota
	// ModeClamped means displacement was reduced to the largest
	// collision-free step.
	ModeClamped
	// ModePushed means a stationary overlapping entity was relocated
	// out of conflict.
	ModePushed
	// ModeUnresolved means no valid resolution was found this tick;
	// the entity keeps its position and the conflict is retried.
	ModeUnresolved
)

// String returns the mode name for logging and CSV output.
func (m Mode) String() string {
	switch m {
	case ModeContact:
		return "contact"
	case ModeClamped:
		return "clamped"
	case ModePushed:
		return "pushed"
	case ModeUnresolved:
		return "unresolved"
	}
	return "?"
}

// CollisionEvent is the per-entity outcome broadcast after resolution.
// Events are frame-scoped: the emitter recycles their candidate storage
// when the tick's consumers have run.
type CollisionEvent struct {
	Entity     ecs.Entity
	Tick       int64
	Mode       Mode
	Candidates []Candidate
}

// Emitter queues collision events during resolution and fans them out to
// subscribers at the end of the tick. There is no persistence and no
// delivery beyond the current tick's consumers.
type Emitter struct {
	subs   []func(*CollisionEvent)
	queue  []CollisionEvent
	arena  []Candidate
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe registers a consumer. Subscribers run synchronously during
// Flush, in registration order. The event and its candidates are only
// valid for the duration of the call.
func (em *Emitter) Subscribe(fn func(*CollisionEvent)) {
	em.subs = append(em.subs, fn)
}

// Queue records an event for this tick. Candidates are copied into the
// emitter's arena so the resolver can reuse its scratch buffers.
func (em *Emitter) Queue(entity ecs.Entity, tick int64, mode Mode, cands []Candidate) {
	start := len(em.arena)
	em.arena = append(em.arena, cands...)
	em.queue = append(em.queue, CollisionEvent{
		Entity:     entity,
		Tick:       tick,
		Mode:       mode,
		Candidates: em.arena[start:len(em.arena):len(em.arena)],
	})
}

// Flush delivers all queued events and resets the queue and arena for
// the next tick.
func (em *Emitter) Flush() {
	for i := range em.queue {
		for _, fn := range em.subs {
			fn(&em.queue[i])
		}
	}
	em.queue = em.queue[:0]
	em.arena = em.arena[:0]
}

// Pending returns the number of events queued this tick.
func (em *Emitter) Pending() int {
	return len(em.queue)
}
