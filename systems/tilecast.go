package systems

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
)

// ErrZeroExtent is returned when a cast is requested for a collider with
// a degenerate extent. This is a programmer error and fails fast.
var ErrZeroExtent = errors.New("tilecast: collider has zero extent")

// ErrOccupancyMismatch is returned when a collider's cached occupied set
// does not match its position. It means a prior tick left corrupt state.
var ErrOccupancyMismatch = errors.New("tilecast: occupied tiles inconsistent with position")

// Candidate is one predicted contact along an entity's swept path.
// Candidates are frame-scoped: the resolver consumes them and their
// backing storage is reused on the next tick.
type Candidate struct {
	// Tile is the cell of the obstacle.
	Tile components.Tile
	// Entity is the occupying entity, zero-valued for static terrain.
	Entity   ecs.Entity
	IsEntity bool
	// Axis and Dir describe the approach; Dir is 0 for an overlap
	// found with no motion on any axis.
	Axis components.Axis
	Dir  int
	// Steps is the number of tile boundaries crossed before contact;
	// 0 means the entity already overlaps the obstacle.
	Steps int
	// Fraction is Steps over the requested displacement magnitude on
	// the approach axis: 0 = already touching, 1 = contact exactly at
	// full displacement.
	Fraction float32

	Kind        components.Kind
	Constraints components.Constraints
	// Blocking is set when the obstacle is solid against this approach.
	Blocking bool
}

// Caster predicts tile-grid contacts by walking the boundaries an
// entity's bounding box crosses along its displacement, axis by axis.
type Caster struct {
	grid   *TileGrid
	occ    *Occupancy
	colMap *ecs.Map1[components.Collider]

	faces []components.Tile // scratch for leading-face tiles
}

// NewCaster creates a caster over the given grid and occupancy index.
func NewCaster(world *ecs.World, grid *TileGrid, occ *Occupancy) *Caster {
	return &Caster{
		grid:   grid,
		occ:    occ,
		colMap: ecs.NewMap1[components.Collider](world),
	}
}

// Cast sweeps the collider's bounding box from its anchor along disp and
// appends the contacts encountered to dst, nearest first. Per axis, the
// walk stops at the first blocking contact; sensors are recorded but do
// not stop it. With zero displacement, present overlaps are reported as
// zero-distance candidates. The entity's own tiles are never reported.
func (c *Caster) Cast(self ecs.Entity, anchor components.Tile, col *components.Collider, disp components.Vec3, dst []Candidate) ([]Candidate, error) {
	if !col.Extent.Valid() {
		return dst, fmt.Errorf("%w: %+v", ErrZeroExtent, col.Extent)
	}
	if !col.ConsistentWith(anchor) {
		return dst, fmt.Errorf("%w: anchor %+v", ErrOccupancyMismatch, anchor)
	}

	start := len(dst)
	dst = c.appendOverlaps(self, col, dst)

	for axis := components.Axis(0); axis < components.NumAxes; axis++ {
		d := disp.Axis(axis)
		dir := components.Sign(d)
		if dir == 0 {
			continue
		}

		mag := d
		if mag < 0 {
			mag = -mag
		}
		steps := int(mag) // boundaries crossed this tick, floor toward zero

		c.faces = leadingFace(c.faces[:0], col.Occupied, axis, dir)

		for k := 1; k <= steps; k++ {
			blocked := false
			for _, face := range c.faces {
				target := face.Offset(axis, k*dir)
				n := len(dst)
				dst = c.appendAt(self, target, axis, dir, k, float32(k)/mag, dst)
				for _, cand := range dst[n:] {
					if cand.Blocking {
						blocked = true
					}
				}
			}
			// Nothing beyond a solid boundary is reachable this tick.
			if blocked {
				break
			}
		}
	}

	sortCandidates(dst[start:])
	return dst, nil
}

// appendOverlaps reports obstacles already sharing tiles with the
// collider, as zero-distance candidates.
func (c *Caster) appendOverlaps(self ecs.Entity, col *components.Collider, dst []Candidate) []Candidate {
	for _, t := range col.Occupied {
		if terrain, ok := c.grid.At(t); ok {
			dst = append(dst, Candidate{
				Tile:        t,
				Kind:        terrain.Kind,
				Constraints: terrain.Constraints,
				Blocking:    terrain.Constraints.Solid(),
			})
		}
		for _, e := range c.occ.At(t) {
			if e == self {
				continue
			}
			other := c.colMap.Get(e)
			if other == nil {
				continue
			}
			dst = append(dst, Candidate{
				Tile:        t,
				Entity:      e,
				IsEntity:    true,
				Kind:        other.Kind,
				Constraints: other.Constraints,
				Blocking:    other.Constraints.Solid(),
			})
		}
	}
	return dst
}

// appendAt classifies a single target tile during an axis walk.
func (c *Caster) appendAt(self ecs.Entity, target components.Tile, axis components.Axis, dir, steps int, fraction float32, dst []Candidate) []Candidate {
	if terrain, ok := c.grid.At(target); ok {
		dst = append(dst, Candidate{
			Tile:        target,
			Axis:        axis,
			Dir:         dir,
			Steps:       steps,
			Fraction:    fraction,
			Kind:        terrain.Kind,
			Constraints: terrain.Constraints,
			Blocking:    terrain.Constraints.BlocksEntry(axis, dir),
		})
	}
	for _, e := range c.occ.At(target) {
		if e == self {
			continue
		}
		other := c.colMap.Get(e)
		if other == nil {
			continue
		}
		dst = append(dst, Candidate{
			Tile:        target,
			Entity:      e,
			IsEntity:    true,
			Axis:        axis,
			Dir:         dir,
			Steps:       steps,
			Fraction:    fraction,
			Kind:        other.Kind,
			Constraints: other.Constraints,
			Blocking:    other.Constraints.BlocksEntry(axis, dir),
		})
	}
	return dst
}

// leadingFace appends the tiles on the collider's leading face along the
// given axis and direction: the cells that first enter new territory.
func leadingFace(dst, occupied []components.Tile, axis components.Axis, dir int) []components.Tile {
	if len(occupied) == 0 {
		return dst
	}
	edge := occupied[0].Axis(axis)
	for _, t := range occupied[1:] {
		v := t.Axis(axis)
		if (dir > 0 && v > edge) || (dir < 0 && v < edge) {
			edge = v
		}
	}
	for _, t := range occupied {
		if t.Axis(axis) == edge {
			dst = append(dst, t)
		}
	}
	return dst
}

// sortCandidates orders candidates nearest first, with a deterministic
// tiebreak so resolution is repeatable across runs.
func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Fraction != b.Fraction {
			return a.Fraction < b.Fraction
		}
		if a.Axis != b.Axis {
			return a.Axis < b.Axis
		}
		if a.Tile.X != b.Tile.X {
			return a.Tile.X < b.Tile.X
		}
		if a.Tile.Y != b.Tile.Y {
			return a.Tile.Y < b.Tile.Y
		}
		return a.Tile.Layer < b.Tile.Layer
	})
}
