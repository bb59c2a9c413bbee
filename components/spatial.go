// Package components defines ECS components for the tile physics engine.
package components

// Axis identifies one of the three grid axes.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisLayer
)

// NumAxes is the number of grid axes.
const NumAxes = 3

// String returns the axis name for logging and diagnostics.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisLayer:
		return "layer"
	}
	return "?"
}

// Tile is an integer cell on the 3-D grid: x, y, and vertical layer.
// Two tiles are equal only if all three components match.
type Tile struct {
	X, Y, Layer int
}

// Add returns the component-wise sum of two tiles.
func (t Tile) Add(o Tile) Tile {
	return Tile{t.X + o.X, t.Y + o.Y, t.Layer + o.Layer}
}

// Offset returns the tile shifted by d along the given axis.
func (t Tile) Offset(a Axis, d int) Tile {
	switch a {
	case AxisX:
		t.X += d
	case AxisY:
		t.Y += d
	case AxisLayer:
		t.Layer += d
	}
	return t
}

// Axis returns the tile's coordinate along the given axis.
func (t Tile) Axis(a Axis) int {
	switch a {
	case AxisX:
		return t.X
	case AxisY:
		return t.Y
	default:
		return t.Layer
	}
}

// Vec3 is a per-tick velocity or displacement in tile units.
// Z runs along the layer axis.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Axis returns the component along the given axis.
func (v Vec3) Axis(a Axis) float32 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// SetAxis sets the component along the given axis.
func (v *Vec3) SetAxis(a Axis, f float32) {
	switch a {
	case AxisX:
		v.X = f
	case AxisY:
		v.Y = f
	default:
		v.Z = f
	}
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Sign returns -1, 0 or 1 for f.
func Sign(f float32) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

// BVec3 is a per-axis boolean mask.
type BVec3 struct {
	X, Y, Z bool
}

// BVec3True has all axes set.
var BVec3True = BVec3{true, true, true}

// Axis returns the flag for the given axis.
func (b BVec3) Axis(a Axis) bool {
	switch a {
	case AxisX:
		return b.X
	case AxisY:
		return b.Y
	default:
		return b.Z
	}
}

// SetAxis sets the flag for the given axis.
func (b *BVec3) SetAxis(a Axis, v bool) {
	switch a {
	case AxisX:
		b.X = v
	case AxisY:
		b.Y = v
	default:
		b.Z = v
	}
}

// Any reports whether any axis is set.
func (b BVec3) Any() bool {
	return b.X || b.Y || b.Z
}
