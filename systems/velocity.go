package systems

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
)

// Gravity is the downward velocity gained per unit of mass, in tiles
// per second along the layer axis.
const Gravity = 9.8

// ErrSupportCycle reports a cyclic support relation. A cycle means a
// prior tick left an inconsistent relation; it is a defect, not a
// recoverable gameplay state.
var ErrSupportCycle = errors.New("velocity: cyclic support relation")

// Forces folds movement goals, gravity and maintained velocity into each
// entity's relative velocity. Controllers write MovementGoal before the
// tick; this runs first so the propagator sees finished inputs.
type Forces struct {
	filter   *ecs.Filter1[components.RelativeVelocity]
	goalMap  *ecs.Map1[components.MovementGoal]
	weight   *ecs.Map1[components.Weight]
	maintMap *ecs.Map1[components.MaintainedVelocity]
}

// NewForces creates the force-folding system.
func NewForces(world *ecs.World) *Forces {
	return &Forces{
		filter:   ecs.NewFilter1[components.RelativeVelocity](world),
		goalMap:  ecs.NewMap1[components.MovementGoal](world),
		weight:   ecs.NewMap1[components.Weight](world),
		maintMap: ecs.NewMap1[components.MaintainedVelocity](world),
	}
}

// Update recomputes RelativeVelocity for every entity that has one.
// Maintained velocity decays by decay per second toward zero.
func (f *Forces) Update(dt, decay float32) {
	query := f.filter.Query()
	for query.Next() {
		rel := query.Get()
		entity := query.Entity()

		var v components.Vec3
		if goal := f.goalMap.Get(entity); goal != nil {
			v = goal.Vec3
		}
		if w := f.weight.Get(entity); w != nil {
			v.Z -= w.Mass * Gravity
		}
		if m := f.maintMap.Get(entity); m != nil {
			v = v.Add(m.Vec3)
			m.Vec3 = decayToward(m.Vec3, decay*dt)
		}
		rel.Vec3 = v
	}
}

// decayToward moves each component of v toward zero by step, clamping
// at zero so decay never overshoots into the opposite sign.
func decayToward(v components.Vec3, step float32) components.Vec3 {
	for axis := components.Axis(0); axis < components.NumAxes; axis++ {
		c := v.Axis(axis)
		switch {
		case c > step:
			v.SetAxis(axis, c-step)
		case c < -step:
			v.SetAxis(axis, c+step)
		default:
			v.SetAxis(axis, 0)
		}
	}
	return v
}

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	resolved
)

// Propagator derives TotalVelocity = RelativeVelocity + TotalVelocity of
// the support target, memoized over the support partial order so no
// entity is computed before its support. Support relations are the ones
// established at the end of the previous tick.
type Propagator struct {
	world  *ecs.World
	filter *ecs.Filter2[components.RelativeVelocity, components.TotalVelocity]
	relMap *ecs.Map1[components.RelativeVelocity]
	totMap *ecs.Map1[components.TotalVelocity]
	supMap *ecs.Map1[components.Support]

	state map[ecs.Entity]visitState
}

// NewPropagator creates the velocity propagation system.
func NewPropagator(world *ecs.World) *Propagator {
	return &Propagator{
		world:  world,
		filter: ecs.NewFilter2[components.RelativeVelocity, components.TotalVelocity](world),
		relMap: ecs.NewMap1[components.RelativeVelocity](world),
		totMap: ecs.NewMap1[components.TotalVelocity](world),
		supMap: ecs.NewMap1[components.Support](world),
		state:  make(map[ecs.Entity]visitState),
	}
}

// Update recomputes TotalVelocity for every velocity-carrying entity.
// A cyclic support chain surfaces as one error naming the entity whose
// walk closed the cycle; every member falls back to its relative
// velocity so the tick can still complete, but callers must treat the
// error as corrupted state.
func (p *Propagator) Update() error {
	clear(p.state)

	var errs []error
	query := p.filter.Query()
	for query.Next() {
		entity := query.Entity()
		if _, err := p.resolve(entity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resolve computes and stores an entity's total velocity, recursing into
// its support chain. The visit marks double as the per-tick memo and as
// cycle detection.
func (p *Propagator) resolve(entity ecs.Entity) (components.Vec3, error) {
	switch p.state[entity] {
	case resolved:
		return p.totMap.Get(entity).Vec3, nil
	case visiting:
		return components.Vec3{}, fmt.Errorf("%w: entity %d", ErrSupportCycle, entity.ID())
	}
	p.state[entity] = visiting

	total := p.relMap.Get(entity).Vec3

	var err error
	if sup := p.supMap.Get(entity); sup != nil && sup.ByEntity() && p.world.Alive(sup.Target) {
		if p.relMap.Get(sup.Target) != nil {
			var inherited components.Vec3
			inherited, err = p.resolve(sup.Target)
			if err == nil {
				total = total.Add(inherited)
			}
		}
	}

	p.totMap.Get(entity).Vec3 = total
	p.state[entity] = resolved
	return total, err
}
