package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
)

// Occupancy indexes which entities occupy which tiles. It is rebuilt at
// the start of every tick from the colliders' occupied sets and is not
// updated mid-tick: an entity moved during resolution is still seen at
// its pre-move tiles by every other entity until the next tick.
type Occupancy struct {
	cells map[components.Tile][]ecs.Entity
	free  [][]ecs.Entity
}

// NewOccupancy creates an empty occupancy index.
func NewOccupancy() *Occupancy {
	return &Occupancy{cells: make(map[components.Tile][]ecs.Entity)}
}

// Clear removes all entries, recycling the per-tile slices.
func (o *Occupancy) Clear() {
	for t, s := range o.cells {
		o.free = append(o.free, s[:0])
		delete(o.cells, t)
	}
}

// Insert records an entity at each of the given tiles.
func (o *Occupancy) Insert(e ecs.Entity, tiles []components.Tile) {
	for _, t := range tiles {
		s, ok := o.cells[t]
		if !ok && len(o.free) > 0 {
			s = o.free[len(o.free)-1]
			o.free = o.free[:len(o.free)-1]
		}
		o.cells[t] = append(s, e)
	}
}

// At returns the entities occupying a tile. The returned slice is owned
// by the index and only valid until the next Clear.
func (o *Occupancy) At(t components.Tile) []ecs.Entity {
	return o.cells[t]
}

// Rebuild clears the index and reinserts every collider in the filter.
func (o *Occupancy) Rebuild(filter *ecs.Filter2[components.Position, components.Collider]) {
	o.Clear()
	query := filter.Query()
	for query.Next() {
		_, col := query.Get()
		o.Insert(query.Entity(), col.Occupied)
	}
}
