package components

// Kind classifies the collision semantics of a tile or collider.
type Kind uint8

const (
	KindEmpty  Kind = iota
	KindSolid       // blocks on every axis and approach direction
	KindSensor      // reported, never blocks
	KindOneWay      // blocks downward motion across its top face only
	KindCustom      // semantics taken from an explicit Constraints value
)

// String returns the kind name for logging and level files.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSolid:
		return "solid"
	case KindSensor:
		return "sensor"
	case KindOneWay:
		return "oneway"
	case KindCustom:
		return "custom"
	}
	return "?"
}

// Constraints express solidity per axis and approach direction.
// PosSolid marks faces on the positive side of the occupied cell,
// NegSolid the negative side. An entity moving in +X is blocked by
// a cell whose NegSolid.X is set, and vice versa.
type Constraints struct {
	PosSolid BVec3
	NegSolid BVec3
}

// Constraint presets, mirroring the usual tile roles.
var (
	ConstraintsWall   = Constraints{PosSolid: BVec3True, NegSolid: BVec3True}
	ConstraintsFloor  = Constraints{PosSolid: BVec3{Z: true}}
	ConstraintsEntity = Constraints{
		PosSolid: BVec3{X: true, Y: true},
		NegSolid: BVec3{X: true, Y: true},
	}
	ConstraintsSensor = Constraints{}
)

// Constraints returns the preset constraints for a kind.
// KindCustom callers supply their own value instead.
func (k Kind) Constraints() Constraints {
	switch k {
	case KindSolid:
		return ConstraintsWall
	case KindOneWay:
		return ConstraintsFloor
	default:
		return ConstraintsSensor
	}
}

// BlocksEntry reports whether a collider with these constraints stops an
// entity entering its cell along axis a moving in direction dir.
// dir 0 means the entity is already overlapping; any solidity counts.
func (c Constraints) BlocksEntry(a Axis, dir int) bool {
	switch {
	case dir > 0:
		return c.NegSolid.Axis(a)
	case dir < 0:
		return c.PosSolid.Axis(a)
	default:
		return c.PosSolid.Axis(a) || c.NegSolid.Axis(a)
	}
}

// Solid reports whether any face is solid.
func (c Constraints) Solid() bool {
	return c.PosSolid.Any() || c.NegSolid.Any()
}

// Extent is a tile-aligned bounding box measured in whole tiles.
// The anchor tile is the minimum corner; the box grows in +X, +Y, +layer.
type Extent struct {
	W, H, D int
}

// Valid reports whether all dimensions are at least one tile.
func (e Extent) Valid() bool {
	return e.W >= 1 && e.H >= 1 && e.D >= 1
}

// Volume returns the number of tiles covered.
func (e Extent) Volume() int {
	return e.W * e.H * e.D
}

// Collider describes an entity's collision shape and mobility.
// Occupied is derived from the anchor position and extent; it must be
// refreshed whenever the position changes.
type Collider struct {
	Extent      Extent
	Kind        Kind
	Constraints Constraints
	Movable     bool

	Occupied []Tile
}

// NewCollider builds a collider with the preset constraints for kind.
func NewCollider(extent Extent, kind Kind, movable bool) Collider {
	return Collider{
		Extent:      extent,
		Kind:        kind,
		Constraints: kind.Constraints(),
		Movable:     movable,
	}
}

// Refresh recomputes the occupied-tile set for the given anchor tile.
// The backing slice is reused across calls.
func (c *Collider) Refresh(anchor Tile) {
	c.Occupied = AppendOccupied(c.Occupied[:0], anchor, c.Extent)
}

// ConsistentWith reports whether the cached occupied set matches the
// given anchor tile and the collider's extent.
func (c *Collider) ConsistentWith(anchor Tile) bool {
	if len(c.Occupied) != c.Extent.Volume() {
		return false
	}
	i := 0
	for dl := 0; dl < c.Extent.D; dl++ {
		for dy := 0; dy < c.Extent.H; dy++ {
			for dx := 0; dx < c.Extent.W; dx++ {
				if c.Occupied[i] != (Tile{anchor.X + dx, anchor.Y + dy, anchor.Layer + dl}) {
					return false
				}
				i++
			}
		}
	}
	return true
}

// Occupies reports whether the cached occupied set contains the tile.
func (c *Collider) Occupies(t Tile) bool {
	for _, o := range c.Occupied {
		if o == t {
			return true
		}
	}
	return false
}

// AppendOccupied appends the tiles covered by a box anchored at the given
// tile to dst and returns the result.
func AppendOccupied(dst []Tile, anchor Tile, e Extent) []Tile {
	for dl := 0; dl < e.D; dl++ {
		for dy := 0; dy < e.H; dy++ {
			for dx := 0; dx < e.W; dx++ {
				dst = append(dst, Tile{anchor.X + dx, anchor.Y + dy, anchor.Layer + dl})
			}
		}
	}
	return dst
}
