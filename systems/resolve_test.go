package systems

import (
	"testing"

	"github.com/pthm-cable/brig/components"
)

// newResolver wires a resolver and emitter over the test world.
func newResolver(tw *testWorld) (*Resolver, *Emitter) {
	emitter := NewEmitter()
	caster := NewCaster(tw.world, tw.grid, tw.occ)
	return NewResolver(tw.world, tw.grid, tw.occ, caster, emitter), emitter
}

// collect subscribes a slice sink and returns it.
func collect(emitter *Emitter) *[]CollisionEvent {
	events := &[]CollisionEvent{}
	emitter.Subscribe(func(ev *CollisionEvent) {
		copied := *ev
		copied.Candidates = append([]Candidate(nil), ev.Candidates...)
		*events = append(*events, copied)
	})
	return events
}

func TestResolveFreeMovementFlushesWholeTiles(t *testing.T) {
	tw := newTestWorld()
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 2.5})
	tw.rebuild()
	resolver, emitter := newResolver(tw)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	if got := tw.posMap.Get(e).Tile; got != tile(2, 0, 0) {
		t.Errorf("expected position (2,0,0), got %+v", got)
	}
	if got := tw.tickMap.Get(e).Vec3.X; got != 0.5 {
		t.Errorf("expected 0.5 tiles buffered, got %f", got)
	}
	if !tw.colMap.Get(e).ConsistentWith(tile(2, 0, 0)) {
		t.Error("occupied set not refreshed after movement")
	}
}

func TestResolveSubTileMotionAccumulates(t *testing.T) {
	tw := newTestWorld()
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 0.6})
	resolver, _ := newResolver(tw)

	tw.rebuild()
	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got := tw.posMap.Get(e).Tile; got != tile(0, 0, 0) {
		t.Errorf("tick 1: expected no whole-tile motion, got %+v", got)
	}

	tw.rebuild()
	if err := resolver.Update(1, 1); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got := tw.posMap.Get(e).Tile; got != tile(1, 0, 0) {
		t.Errorf("tick 2: expected buffered motion to flush to (1,0,0), got %+v", got)
	}
	got := tw.tickMap.Get(e).Vec3.X
	if got < 0.19 || got > 0.21 {
		t.Errorf("expected ~0.2 tiles remaining in buffer, got %f", got)
	}
}

func TestResolveClampsAtWall(t *testing.T) {
	tw := newTestWorld()
	tw.wall(2, 0, 0)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 3})
	tw.rebuild()
	resolver, emitter := newResolver(tw)
	events := collect(emitter)

	if err := resolver.Update(1, 7); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	// The entity stops in the last free tile before the wall and never
	// overlaps it.
	if got := tw.posMap.Get(e).Tile; got != tile(1, 0, 0) {
		t.Errorf("expected clamp to (1,0,0), got %+v", got)
	}
	if got := tw.totMap.Get(e).Vec3.X; got != 0 {
		t.Errorf("expected total velocity zeroed on the clamped axis, got %f", got)
	}
	if got := tw.tickMap.Get(e).Vec3.X; got != 0 {
		t.Errorf("expected ticker zeroed on the clamped axis, got %f", got)
	}

	if len(*events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*events))
	}
	ev := (*events)[0]
	if ev.Mode != ModeClamped {
		t.Errorf("expected ModeClamped, got %s", ev.Mode)
	}
	if ev.Tick != 7 {
		t.Errorf("expected tick 7 on the event, got %d", ev.Tick)
	}
	if len(ev.Candidates) != 1 || ev.Candidates[0].Tile != tile(2, 0, 0) {
		t.Errorf("expected the wall candidate at (2,0,0), got %+v", ev.Candidates)
	}
}

func TestResolveClampIsIdempotentWhenStopped(t *testing.T) {
	tw := newTestWorld()
	tw.wall(1, 0, 0)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 2})
	resolver, emitter := newResolver(tw)

	for tick := int64(0); tick < 3; tick++ {
		tw.rebuild()
		if err := resolver.Update(1, tick); err != nil {
			t.Fatalf("tick %d failed: %v", tick, err)
		}
		emitter.Flush()
		if got := tw.posMap.Get(e).Tile; got != tile(0, 0, 0) {
			t.Fatalf("tick %d: entity leaked into the wall, at %+v", tick, got)
		}
	}
}

func TestResolvePushesStationaryOverlapOut(t *testing.T) {
	tw := newTestWorld()
	tw.wall(0, 0, 0)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{})
	tw.rebuild()
	resolver, emitter := newResolver(tw)
	events := collect(emitter)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	// x+1 is the first direction in the deterministic preference order.
	if got := tw.posMap.Get(e).Tile; got != tile(1, 0, 0) {
		t.Errorf("expected push to (1,0,0), got %+v", got)
	}
	if len(*events) != 1 || (*events)[0].Mode != ModePushed {
		t.Fatalf("expected one ModePushed event, got %+v", *events)
	}
}

func TestResolvePushPrefersShortestClearance(t *testing.T) {
	tw := newTestWorld()
	tw.wall(0, 0, 0)
	// Block x+1 and x-1 so the first clear direction is y+1.
	tw.wall(1, 0, 0)
	tw.wall(-1, 0, 0)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{})
	tw.rebuild()
	resolver, emitter := newResolver(tw)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	if got := tw.posMap.Get(e).Tile; got != tile(0, 1, 0) {
		t.Errorf("expected push to (0,1,0), got %+v", got)
	}
}

func TestResolveSealedOverlapStaysUnresolved(t *testing.T) {
	tw := newTestWorld()
	tw.wall(0, 0, 0)
	// Seal every escape direction within the push distance bound.
	for k := 1; k <= 4; k++ {
		tw.wall(k, 0, 0)
		tw.wall(-k, 0, 0)
		tw.wall(0, k, 0)
		tw.wall(0, -k, 0)
		tw.wall(0, 0, k)
		tw.wall(0, 0, -k)
	}
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{})
	tw.rebuild()
	resolver, emitter := newResolver(tw)
	events := collect(emitter)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	if got := tw.posMap.Get(e).Tile; got != tile(0, 0, 0) {
		t.Errorf("unresolved entity must keep its position, got %+v", got)
	}
	if len(*events) != 1 || (*events)[0].Mode != ModeUnresolved {
		t.Fatalf("expected one ModeUnresolved event, got %+v", *events)
	}
}

func TestResolveSensorPassThrough(t *testing.T) {
	tw := newTestWorld()
	tw.terrain(1, 0, 0, components.KindSensor)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 2})
	tw.rebuild()
	resolver, emitter := newResolver(tw)
	events := collect(emitter)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	if got := tw.posMap.Get(e).Tile; got != tile(2, 0, 0) {
		t.Errorf("sensor must not affect movement, got %+v", got)
	}
	if len(*events) != 1 || (*events)[0].Mode != ModeContact {
		t.Fatalf("expected one ModeContact event, got %+v", *events)
	}
}

func TestResolveImmovableReportsButNeverResolves(t *testing.T) {
	tw := newTestWorld()
	tw.wall(0, 0, 0)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{})
	tw.colMap.Get(e).Movable = false
	tw.rebuild()
	resolver, emitter := newResolver(tw)
	events := collect(emitter)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	if got := tw.posMap.Get(e).Tile; got != tile(0, 0, 0) {
		t.Errorf("immovable entity must not be pushed, got %+v", got)
	}
	if len(*events) != 1 || (*events)[0].Mode != ModeUnresolved {
		t.Fatalf("expected one ModeUnresolved event, got %+v", *events)
	}
}

func TestResolveClampPerAxisIndependently(t *testing.T) {
	tw := newTestWorld()
	tw.wall(1, 0, 0)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 2, Y: 2})
	tw.rebuild()
	resolver, emitter := newResolver(tw)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	// X is clamped to zero steps, Y moves in full.
	if got := tw.posMap.Get(e).Tile; got != tile(0, 2, 0) {
		t.Errorf("expected (0,2,0), got %+v", got)
	}
	tot := tw.totMap.Get(e).Vec3
	if tot.X != 0 || tot.Y != 2 {
		t.Errorf("expected only X zeroed, got %+v", tot)
	}
}

func TestResolveDiagonalCornerClamps(t *testing.T) {
	tw := newTestWorld()
	// Solid only at the corner the combined step lands in; both single
	// axes are free.
	tw.wall(1, 1, 0)
	e := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 1, Y: 1})
	tw.rebuild()
	resolver, emitter := newResolver(tw)
	events := collect(emitter)

	if err := resolver.Update(1, 5); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	// Y yields first, so the X step survives and the entity never enters
	// the corner tile.
	if got := tw.posMap.Get(e).Tile; got != tile(1, 0, 0) {
		t.Errorf("expected clamp to (1,0,0), got %+v", got)
	}
	tot := tw.totMap.Get(e).Vec3
	if tot.X != 1 || tot.Y != 0 {
		t.Errorf("expected only Y zeroed, got %+v", tot)
	}
	if got := tw.tickMap.Get(e).Vec3.Y; got != 0 {
		t.Errorf("expected ticker zeroed on the clamped axis, got %f", got)
	}

	if len(*events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*events))
	}
	ev := (*events)[0]
	if ev.Mode != ModeClamped {
		t.Errorf("expected ModeClamped, got %s", ev.Mode)
	}
	if len(ev.Candidates) != 1 || ev.Candidates[0].Tile != tile(1, 1, 0) {
		t.Errorf("expected the corner candidate at (1,1,0), got %+v", ev.Candidates)
	}
}

func TestResolveDiagonalOneWayDirectional(t *testing.T) {
	tw := newTestWorld()
	tw.terrain(1, 0, 1, components.KindOneWay)

	// Rising diagonally into a one-way platform passes.
	rising := tw.spawnMobile(tile(0, 0, 0), one(), components.KindSolid, components.Vec3{X: 1, Z: 1})
	tw.rebuild()
	resolver, emitter := newResolver(tw)
	events := collect(emitter)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	if got := tw.posMap.Get(rising).Tile; got != tile(1, 0, 1) {
		t.Errorf("rising entity must pass through, got %+v", got)
	}
	if len(*events) != 0 {
		t.Fatalf("expected no events while rising, got %+v", *events)
	}

	// Falling diagonally onto the same platform clamps the layer axis
	// and keeps the horizontal step.
	tw2 := newTestWorld()
	tw2.terrain(1, 0, 1, components.KindOneWay)
	falling := tw2.spawnMobile(tile(0, 0, 2), one(), components.KindSolid, components.Vec3{X: 1, Z: -1})
	tw2.rebuild()
	resolver2, emitter2 := newResolver(tw2)
	events2 := collect(emitter2)

	if err := resolver2.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter2.Flush()

	if got := tw2.posMap.Get(falling).Tile; got != tile(1, 0, 2) {
		t.Errorf("falling entity must rest on the platform, got %+v", got)
	}
	if got := tw2.totMap.Get(falling).Vec3.Z; got != 0 {
		t.Errorf("expected vertical velocity zeroed, got %f", got)
	}
	if len(*events2) != 1 || (*events2)[0].Mode != ModeClamped {
		t.Fatalf("expected one ModeClamped event, got %+v", *events2)
	}
}

func TestResolveFallOntoFloorStopsAbove(t *testing.T) {
	tw := newTestWorld()
	tw.wall(0, 0, -1)
	e := tw.spawnMobile(tile(0, 0, 3), one(), components.KindSolid, components.Vec3{Z: -9.8})
	tw.rebuild()
	resolver, emitter := newResolver(tw)

	if err := resolver.Update(1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	emitter.Flush()

	if got := tw.posMap.Get(e).Tile; got != tile(0, 0, 0) {
		t.Errorf("expected rest at (0,0,0) directly on the floor, got %+v", got)
	}
	if got := tw.totMap.Get(e).Vec3.Z; got != 0 {
		t.Errorf("expected vertical velocity zeroed, got %f", got)
	}
}
