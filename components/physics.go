package components

import "github.com/mlange-42/ark/ecs"

// Position is an entity's anchor tile on the grid.
type Position struct {
	Tile Tile
}

// Ticker buffers sub-tile motion between ticks, so velocities below one
// tile per tick still move the entity over time. Whole tiles are flushed
// into Position during resolution; the remainder carries over.
type Ticker struct {
	Vec3
}

// MovementGoal is the velocity an entity's controller wants, in tiles
// per second. Input, AI and gameplay write it before the tick starts.
type MovementGoal struct {
	Vec3
}

// Weight applies gravity: each tick the entity gains Mass * gravity
// downward relative velocity along the layer axis.
type Weight struct {
	Mass float32
}

// MaintainedVelocity persists across ticks and decays toward zero, for
// impulses like knockback that outlive a single tick.
type MaintainedVelocity struct {
	Vec3
}

// RelativeVelocity is the entity's intrinsic velocity absent any support,
// folded together from goal, gravity and maintained velocity each tick.
type RelativeVelocity struct {
	Vec3
}

// TotalVelocity is RelativeVelocity plus the TotalVelocity of the current
// support target. It is derived once per tick by the propagator and is
// only meaningful between the Propagate and Resolve phases.
type TotalVelocity struct {
	Vec3
}

// Support is the "standing on" relation. It is a weak reference: Target
// is an entity identifier, never an owning pointer, and is validated
// against the world each time it is read. Static support (terrain floor)
// contributes no velocity.
type Support struct {
	Target ecs.Entity
	Static bool
	Held   bool // true when any support is established
}

// None clears the relation.
func (s *Support) None() {
	*s = Support{}
}

// ByEntity reports whether the support target is another entity.
func (s *Support) ByEntity() bool {
	return s.Held && !s.Static
}
