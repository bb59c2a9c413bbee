package systems

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
)

// pushDir is one candidate clearance direction for the push pass.
type pushDir struct {
	axis components.Axis
	dir  int
}

// pushOrder is the deterministic direction preference for pushes:
// horizontal before vertical, positive before negative. Vertical last
// avoids popping entities through floors when a sideways exit exists.
var pushOrder = []pushDir{
	{components.AxisX, 1}, {components.AxisX, -1},
	{components.AxisY, 1}, {components.AxisY, -1},
	{components.AxisLayer, 1}, {components.AxisLayer, -1},
}

// Resolver settles each entity's predicted conflicts: it clamps moving
// entities to the largest collision-free step, pushes stationary
// overlapping entities back out, and queues one collision event per
// entity that had candidates. Entities resolve in ascending ID order so
// two entities conflicting in the same tick produce repeatable results.
type Resolver struct {
	grid    *TileGrid
	occ     *Occupancy
	caster  *Caster
	emitter *Emitter

	filter  *ecs.Filter3[components.Position, components.Collider, components.TotalVelocity]
	colMap  *ecs.Map1[components.Collider]
	tickMap *ecs.Map1[components.Ticker]

	// MaxPushDistance bounds the clearance search per direction;
	// MaxPushAttempts bounds the number of directions tried before the
	// conflict is left unresolved for the next tick.
	MaxPushDistance int
	MaxPushAttempts int

	order   []entityRef
	cands   []Candidate
	scratch []components.Tile
	blocked []components.Tile
	origin  []components.Tile
}

type entityRef struct {
	entity ecs.Entity
	pos    *components.Position
	col    *components.Collider
	tot    *components.TotalVelocity
}

// NewResolver creates the conflict resolution system.
func NewResolver(world *ecs.World, grid *TileGrid, occ *Occupancy, caster *Caster, emitter *Emitter) *Resolver {
	return &Resolver{
		grid:    grid,
		occ:     occ,
		caster:  caster,
		emitter: emitter,
		filter: ecs.NewFilter3[components.Position, components.Collider, components.TotalVelocity](
			world),
		colMap:          ecs.NewMap1[components.Collider](world),
		tickMap:         ecs.NewMap1[components.Ticker](world),
		MaxPushDistance: 4,
		MaxPushAttempts: len(pushOrder),
	}
}

// Update runs one resolution pass over all velocity-carrying colliders.
// Returned errors are invariant violations (corrupt occupancy, malformed
// colliders); the affected entity is skipped for the tick and the caller
// is expected to report loudly.
func (r *Resolver) Update(dt float32, tick int64) error {
	r.order = r.order[:0]
	query := r.filter.Query()
	for query.Next() {
		pos, col, tot := query.Get()
		r.order = append(r.order, entityRef{query.Entity(), pos, col, tot})
	}
	sort.Slice(r.order, func(i, j int) bool {
		return r.order[i].entity.ID() < r.order[j].entity.ID()
	})

	var errs []error
	for _, ref := range r.order {
		if err := r.resolveEntity(ref, dt, tick); err != nil {
			errs = append(errs, fmt.Errorf("entity %d: %w", ref.entity.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Resolver) resolveEntity(ref entityRef, dt float32, tick int64) error {
	var ticker *components.Ticker
	disp := ref.tot.Vec3.Scale(dt)
	if ticker = r.tickMap.Get(ref.entity); ticker != nil {
		disp = disp.Add(ticker.Vec3)
	}

	var err error
	r.cands, err = r.caster.Cast(ref.entity, ref.pos.Tile, ref.col, disp, r.cands[:0])
	if err != nil {
		return err
	}

	if !ref.col.Movable {
		// Resolution against immovable entities happens from the other
		// side only; conflicts here are reported, never resolved.
		r.applyMovement(ref, ticker, disp, components.BVec3{})
		if len(r.cands) > 0 {
			mode := ModeContact
			if hasBlockingOverlap(r.cands) {
				mode = ModeUnresolved
			}
			r.emitter.Queue(ref.entity, tick, mode, r.cands)
		}
		return nil
	}

	mode := ModeContact

	// Clamp each axis with a blocking candidate to the largest
	// collision-free whole-tile step: never negative, never more than
	// requested, and motion is only removed, never added.
	var clampedAxes components.BVec3
	for axis := components.Axis(0); axis < components.NumAxes; axis++ {
		steps, found := nearestBlockingSteps(r.cands, axis)
		if !found {
			continue
		}
		d := disp.Axis(axis)
		allowed := steps - 1
		if requested := whole(d); requested > allowed {
			sign := float32(components.Sign(d))
			disp.SetAxis(axis, float32(allowed)*sign)
			ref.tot.SetAxis(axis, 0)
			clampedAxes.SetAxis(axis, true)
			mode = ModeClamped
		}
	}

	// The per-axis walks never enter the corner tiles a diagonal step
	// composes into; clamp until the destination footprint is clear.
	// Later axes yield first, so horizontal travel survives a blocked
	// corner where possible.
	resorted := false
	for {
		target, moving := composedTarget(ref.pos.Tile, disp)
		if !moving {
			break
		}
		cand, blocked := r.composedBlocker(ref, target, disp)
		if !blocked {
			break
		}
		r.cands = append(r.cands, cand)
		resorted = true

		axis := lastMovingAxis(disp)
		d := disp.Axis(axis)
		sign := float32(components.Sign(d))
		disp.SetAxis(axis, float32(whole(d)-1)*sign)
		ref.tot.SetAxis(axis, 0)
		clampedAxes.SetAxis(axis, true)
		mode = ModeClamped
	}
	if resorted {
		sortCandidates(r.cands)
	}

	if len(r.cands) == 0 {
		r.applyMovement(ref, ticker, disp, clampedAxes)
		return nil
	}

	// A stationary entity overlapping a solid gets pushed back out; a
	// moving one keeps its (clamped) motion and is reconsidered once it
	// comes to rest.
	if hasBlockingOverlap(r.cands) && stationary(disp) {
		if push, ok := r.findPush(ref); ok {
			ref.pos.Tile = ref.pos.Tile.Add(push)
			ref.col.Refresh(ref.pos.Tile)
			if ticker != nil {
				ticker.Vec3 = components.Vec3{}
			}
			r.emitter.Queue(ref.entity, tick, ModePushed, r.cands)
			return nil
		}
		// No valid clearance this tick: keep the pre-resolution
		// position and retry next tick.
		r.emitter.Queue(ref.entity, tick, ModeUnresolved, r.cands)
		return nil
	}

	r.applyMovement(ref, ticker, disp, clampedAxes)
	r.emitter.Queue(ref.entity, tick, mode, r.cands)
	return nil
}

// applyMovement flushes whole tiles of displacement into the position and
// carries the remainder in the ticker. Clamped axes drop their remainder:
// buffered motion must not leak through a wall on a later tick.
func (r *Resolver) applyMovement(ref entityRef, ticker *components.Ticker, disp components.Vec3, clamped components.BVec3) {
	moved := false
	for axis := components.Axis(0); axis < components.NumAxes; axis++ {
		d := disp.Axis(axis)
		steps := whole(d)
		if steps > 0 {
			sign := components.Sign(d)
			ref.pos.Tile = ref.pos.Tile.Offset(axis, steps*sign)
			moved = true
		}
		if ticker != nil {
			if clamped.Axis(axis) {
				ticker.SetAxis(axis, 0)
			} else {
				sign := float32(components.Sign(d))
				ticker.SetAxis(axis, d-float32(steps)*sign)
			}
		}
	}
	if moved {
		ref.col.Refresh(ref.pos.Tile)
	}
}

// findPush searches the bounded set of clearance directions for the
// smallest positional correction that clears every overlapped solid
// without crossing a boundary the entity did not already overlap, and
// without landing in a new conflict. The target is validated against the
// same tick's occupancy, so another entity's later push cannot be seen.
func (r *Resolver) findPush(ref entityRef) (components.Tile, bool) {
	r.origin = r.appendBlockedTiles(r.origin[:0], ref.entity, ref.pos.Tile, ref.col.Extent)

	type option struct {
		d     pushDir
		steps int
	}
	var best option
	attempts := 0
	for _, d := range pushOrder {
		if attempts >= r.MaxPushAttempts {
			break
		}
		attempts++
		steps, ok := r.clearanceAlong(ref, d)
		if !ok {
			continue
		}
		if best.steps == 0 || steps < best.steps {
			best = option{d, steps}
		}
	}
	if best.steps == 0 {
		return components.Tile{}, false
	}
	return (components.Tile{}).Offset(best.d.axis, best.steps*best.d.dir), true
}

// clearanceAlong returns the minimal step count along one direction that
// fully clears the entity's solid overlaps, or ok=false when the path
// crosses a foreign solid boundary or never clears within the bound.
func (r *Resolver) clearanceAlong(ref entityRef, d pushDir) (int, bool) {
	for k := 1; k <= r.MaxPushDistance; k++ {
		anchor := ref.pos.Tile.Offset(d.axis, k*d.dir)
		r.blocked = r.appendBlockedTiles(r.blocked[:0], ref.entity, anchor, ref.col.Extent)

		// Entering a solid tile the entity did not originate inside
		// means tunneling through a boundary; reject the direction.
		for _, t := range r.blocked {
			if !containsTile(r.origin, t) {
				return 0, false
			}
		}
		if len(r.blocked) == 0 {
			return k, true
		}
	}
	return 0, false
}

// appendBlockedTiles collects the tiles a box at anchor would overlap
// that hold a solid terrain or another entity's solid collider.
func (r *Resolver) appendBlockedTiles(dst []components.Tile, self ecs.Entity, anchor components.Tile, extent components.Extent) []components.Tile {
	r.scratch = components.AppendOccupied(r.scratch[:0], anchor, extent)
	for _, t := range r.scratch {
		if terrain, ok := r.grid.At(t); ok && terrain.Constraints.Solid() {
			dst = append(dst, t)
			continue
		}
		for _, e := range r.occ.At(t) {
			if e == self {
				continue
			}
			if other := r.colMap.Get(e); other != nil && other.Constraints.Solid() {
				dst = append(dst, t)
				break
			}
		}
	}
	return dst
}

// composedBlocker scans the footprint at the composed destination for a
// tile that refuses entry along any moving axis, ignoring tiles the
// entity already overlaps. Returns a candidate describing the contact.
func (r *Resolver) composedBlocker(ref entityRef, target components.Tile, disp components.Vec3) (Candidate, bool) {
	r.scratch = components.AppendOccupied(r.scratch[:0], target, ref.col.Extent)
	for _, t := range r.scratch {
		if ref.col.Occupies(t) {
			continue
		}
		if terrain, ok := r.grid.At(t); ok {
			if axis, dir, blocks := blocksApproach(terrain.Constraints, disp); blocks {
				return composedCandidate(t, axis, dir, disp, terrain.Kind, terrain.Constraints), true
			}
		}
		for _, e := range r.occ.At(t) {
			if e == ref.entity {
				continue
			}
			other := r.colMap.Get(e)
			if other == nil {
				continue
			}
			if axis, dir, blocks := blocksApproach(other.Constraints, disp); blocks {
				cand := composedCandidate(t, axis, dir, disp, other.Kind, other.Constraints)
				cand.Entity = e
				cand.IsEntity = true
				return cand, true
			}
		}
	}
	return Candidate{}, false
}

// blocksApproach returns the first moving axis along which the
// constraints refuse entry.
func blocksApproach(c components.Constraints, disp components.Vec3) (components.Axis, int, bool) {
	for axis := components.Axis(0); axis < components.NumAxes; axis++ {
		dir := components.Sign(disp.Axis(axis))
		if dir != 0 && c.BlocksEntry(axis, dir) {
			return axis, dir, true
		}
	}
	return 0, 0, false
}

// composedCandidate builds the contact record for a corner blocker,
// with the boundary-step distance taken along the blocking axis.
func composedCandidate(t components.Tile, axis components.Axis, dir int, disp components.Vec3, kind components.Kind, c components.Constraints) Candidate {
	steps := whole(disp.Axis(axis))
	mag := disp.Axis(axis)
	if mag < 0 {
		mag = -mag
	}
	fraction := float32(1)
	if mag > 0 {
		fraction = float32(steps) / mag
	}
	return Candidate{
		Tile:        t,
		Axis:        axis,
		Dir:         dir,
		Steps:       steps,
		Fraction:    fraction,
		Kind:        kind,
		Constraints: c,
		Blocking:    true,
	}
}

// composedTarget is the anchor after flushing every axis' whole steps.
func composedTarget(anchor components.Tile, disp components.Vec3) (components.Tile, bool) {
	moving := false
	for axis := components.Axis(0); axis < components.NumAxes; axis++ {
		if steps := whole(disp.Axis(axis)); steps > 0 {
			anchor = anchor.Offset(axis, steps*components.Sign(disp.Axis(axis)))
			moving = true
		}
	}
	return anchor, moving
}

// lastMovingAxis returns the highest-ordered axis still moving a whole
// tile.
func lastMovingAxis(disp components.Vec3) components.Axis {
	last := components.AxisX
	for axis := components.Axis(0); axis < components.NumAxes; axis++ {
		if whole(disp.Axis(axis)) > 0 {
			last = axis
		}
	}
	return last
}

// containsTile reports whether the slice contains the tile.
func containsTile(tiles []components.Tile, t components.Tile) bool {
	for _, o := range tiles {
		if o == t {
			return true
		}
	}
	return false
}

// nearestBlockingSteps returns the boundary-step distance of the closest
// blocking candidate approached along the given axis.
func nearestBlockingSteps(cands []Candidate, axis components.Axis) (int, bool) {
	nearest := 0
	found := false
	for _, c := range cands {
		if !c.Blocking || c.Dir == 0 || c.Axis != axis {
			continue
		}
		if !found || c.Steps < nearest {
			nearest = c.Steps
			found = true
		}
	}
	return nearest, found
}

// hasBlockingOverlap reports whether any candidate is a zero-distance
// solid overlap.
func hasBlockingOverlap(cands []Candidate) bool {
	for _, c := range cands {
		if c.Blocking && c.Steps == 0 && c.Dir == 0 {
			return true
		}
	}
	return false
}

// stationary reports whether a displacement moves no whole tile on any
// axis this tick.
func stationary(disp components.Vec3) bool {
	return whole(disp.X) == 0 && whole(disp.Y) == 0 && whole(disp.Z) == 0
}

// whole returns the number of whole tiles in a displacement component,
// truncating toward zero.
func whole(d float32) int {
	if d < 0 {
		d = -d
	}
	return int(d)
}
