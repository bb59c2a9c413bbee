package systems

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
)

// maxChainLength bounds support-chain walks during the acyclicity check,
// so a corrupt chain from a prior tick cannot hang the frame.
const maxChainLength = 1024

// Supports re-establishes each entity's "standing on" relation after
// movement. The relation is a weak entity reference; the acyclicity
// check runs here, at establishment time, not in the propagation hot
// path. The next tick's propagator consumes the result.
type Supports struct {
	world  *ecs.World
	grid   *TileGrid
	occ    *Occupancy
	filter *ecs.Filter3[components.Position, components.Collider, components.Support]
	supMap *ecs.Map1[components.Support]
	colMap *ecs.Map1[components.Collider]
}

// NewSupports creates the support detection system.
func NewSupports(world *ecs.World, grid *TileGrid, occ *Occupancy) *Supports {
	return &Supports{
		world:  world,
		grid:   grid,
		occ:    occ,
		filter: ecs.NewFilter3[components.Position, components.Collider, components.Support](world),
		supMap: ecs.NewMap1[components.Support](world),
		colMap: ecs.NewMap1[components.Collider](world),
	}
}

// Update recomputes every support relation from the tiles directly below
// each entity's footprint. Static floors win over entity support. A
// relation that would close a cycle is rejected with an error and the
// entity is left unsupported for the tick.
func (s *Supports) Update() error {
	var errs []error
	query := s.filter.Query()
	for query.Next() {
		pos, col, sup := query.Get()
		entity := query.Entity()

		static, below := s.supportBelow(entity, pos.Tile, col)
		switch {
		case static:
			sup.Target = ecs.Entity{}
			sup.Static = true
			sup.Held = true
		case below != (ecs.Entity{}):
			if err := s.checkAcyclic(entity, below); err != nil {
				sup.None()
				errs = append(errs, err)
				continue
			}
			sup.Target = below
			sup.Static = false
			sup.Held = true
		default:
			sup.None()
		}
	}
	return errors.Join(errs...)
}

// supportBelow scans the tiles under the entity's bottom face for a
// supportive top surface: floor terrain, or another entity's collider
// that blocks downward motion.
func (s *Supports) supportBelow(self ecs.Entity, anchor components.Tile, col *components.Collider) (static bool, below ecs.Entity) {
	for _, t := range col.Occupied {
		if t.Layer != anchor.Layer {
			continue // only the bottom face rests on anything
		}
		under := t.Offset(components.AxisLayer, -1)

		if terrain, ok := s.grid.At(under); ok && terrain.Constraints.BlocksEntry(components.AxisLayer, -1) {
			return true, ecs.Entity{}
		}
		for _, e := range s.occ.At(under) {
			if e == self {
				continue
			}
			if other := s.colMap.Get(e); other != nil && other.Constraints.BlocksEntry(components.AxisLayer, -1) {
				below = e
			}
		}
	}
	return false, below
}

// checkAcyclic walks the candidate support chain and rejects a relation
// that would make the entity transitively support itself.
func (s *Supports) checkAcyclic(entity, target ecs.Entity) error {
	current := target
	for i := 0; i < maxChainLength; i++ {
		if current == entity {
			return fmt.Errorf("%w: entity %d would support itself", ErrSupportCycle, entity.ID())
		}
		sup := s.supMap.Get(current)
		if sup == nil || !sup.ByEntity() || !s.world.Alive(sup.Target) {
			return nil
		}
		current = sup.Target
	}
	return fmt.Errorf("%w: support chain from entity %d exceeds %d links", ErrSupportCycle, entity.ID(), maxChainLength)
}
