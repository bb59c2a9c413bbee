package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
)

// EntitySpec describes one entity to spawn.
type EntitySpec struct {
	Tile   components.Tile
	Extent components.Extent
	Kind   components.Kind
	// Constraints overrides the kind's preset when non-nil (KindCustom).
	Constraints *components.Constraints
	Movable     bool
	// Mass > 0 makes the entity subject to gravity.
	Mass float32
	Goal components.Vec3
}

// Spawn creates an entity from a spec. Movable entities get the full
// velocity component set; immovable ones are position and collider
// only. The occupied-tile cache is filled before the entity becomes
// visible to any system.
func (s *Sim) Spawn(spec EntitySpec) ecs.Entity {
	col := components.NewCollider(spec.Extent, spec.Kind, spec.Movable)
	if spec.Constraints != nil {
		col.Constraints = *spec.Constraints
	}
	col.Refresh(spec.Tile)

	pos := components.Position{Tile: spec.Tile}

	if !spec.Movable {
		return s.staticMapper.NewEntity(&pos, &col)
	}

	rel := components.RelativeVelocity{}
	tot := components.TotalVelocity{}
	ticker := components.Ticker{}
	goal := components.MovementGoal{Vec3: spec.Goal}
	maint := components.MaintainedVelocity{}
	sup := components.Support{}

	entity := s.mobileMapper.NewEntity(&pos, &col, &rel, &tot, &ticker, &goal, &maint, &sup)
	if spec.Mass > 0 {
		s.weightMap.Add(entity, &components.Weight{Mass: spec.Mass})
	}
	return entity
}

// Despawn removes an entity from the world. Support relations pointing
// at it go stale; the weak-reference check in the propagator and the
// next support pass clean them up.
func (s *Sim) Despawn(e ecs.Entity) {
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
}
