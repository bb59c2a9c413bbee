// Package telemetry provides collision statistics, CSV output and phase
// timing for the physics engine.
package telemetry

import (
	"github.com/pthm-cable/brig/systems"
)

// Collector accumulates collision outcomes within tick windows and
// produces WindowStats. It subscribes to the engine's collision events
// and owns no simulation state.
type Collector struct {
	windowTicks int64
	dt          float32

	windowStart int64

	// Event counters for the current window
	contacts   int
	clamps     int
	pushes     int
	unresolved int

	// Per-event samples for distribution stats
	candidateCounts []float64
	contactSteps    []float64
}

// NewCollector creates a stats collector.
// windowTicks: how many ticks each stats window lasts.
// dt: seconds per tick, for tick-to-time conversion.
func NewCollector(windowTicks int64, dt float32) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks: windowTicks,
		dt:          dt,
	}
}

// Record consumes one collision event. Suitable as an emitter subscriber.
func (c *Collector) Record(ev *systems.CollisionEvent) {
	switch ev.Mode {
	case systems.ModeClamped:
		c.clamps++
	case systems.ModePushed:
		c.pushes++
	case systems.ModeUnresolved:
		c.unresolved++
	default:
		c.contacts++
	}

	c.candidateCounts = append(c.candidateCounts, float64(len(ev.Candidates)))
	for _, cand := range ev.Candidates {
		if cand.Blocking {
			c.contactSteps = append(c.contactSteps, float64(cand.Steps))
		}
	}
}

// WindowDone reports whether the current window ends at the given tick.
func (c *Collector) WindowDone(tick int64) bool {
	return tick-c.windowStart >= c.windowTicks
}

// Flush computes the stats for the closing window and resets the
// counters for the next one.
func (c *Collector) Flush(tick int64) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStart,
		WindowEndTick:   tick,
		SimTimeSec:      float64(tick) * float64(c.dt),
		Contacts:        c.contacts,
		Clamps:          c.clamps,
		Pushes:          c.pushes,
		Unresolved:      c.unresolved,
	}
	stats.fillDistributions(c.candidateCounts, c.contactSteps)

	c.windowStart = tick
	c.contacts = 0
	c.clamps = 0
	c.pushes = 0
	c.unresolved = 0
	c.candidateCounts = c.candidateCounts[:0]
	c.contactSteps = c.contactSteps[:0]

	return stats
}
