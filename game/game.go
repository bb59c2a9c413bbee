// Package game wires the physics systems into a tick-stepped simulation.
package game

import (
	"errors"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
	"github.com/pthm-cable/brig/config"
	"github.com/pthm-cable/brig/systems"
	"github.com/pthm-cable/brig/telemetry"
)

// PerfWindow is the number of ticks the perf collector averages over.
const PerfWindow = 60

// Sim holds the complete simulation state: the ECS world, the static
// tile grid, the per-tick systems and the telemetry collectors.
type Sim struct {
	world *ecs.World

	grid *systems.TileGrid
	occ  *systems.Occupancy

	forces     *systems.Forces
	propagator *systems.Propagator
	caster     *systems.Caster
	resolver   *systems.Resolver
	supports   *systems.Supports
	emitter    *systems.Emitter

	// occFilter feeds the occupancy rebuilds at the tick boundaries.
	occFilter *ecs.Filter2[components.Position, components.Collider]

	// Entity mappers for the two archetypes we spawn
	staticMapper *ecs.Map2[
		components.Position,
		components.Collider,
	]
	mobileMapper *ecs.Map8[
		components.Position,
		components.Collider,
		components.RelativeVelocity,
		components.TotalVelocity,
		components.Ticker,
		components.MovementGoal,
		components.MaintainedVelocity,
		components.Support,
	]

	// Individual component mappers for lookups
	posMap    *ecs.Map1[components.Position]
	colMap    *ecs.Map1[components.Collider]
	goalMap   *ecs.Map1[components.MovementGoal]
	totMap    *ecs.Map1[components.TotalVelocity]
	supMap    *ecs.Map1[components.Support]
	maintMap  *ecs.Map1[components.MaintainedVelocity]
	weightMap *ecs.Map1[components.Weight]

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	dt    float32
	decay float32
	tick  int64
}

// NewSim creates a simulation from the given configuration. The world
// starts with an empty grid; load a level or spawn entities before
// stepping.
func NewSim(cfg *config.Config) *Sim {
	world := ecs.NewWorld()

	s := &Sim{
		world: world,
		grid:  systems.NewTileGrid(),
		occ:   systems.NewOccupancy(),

		occFilter: ecs.NewFilter2[components.Position, components.Collider](world),
		staticMapper: ecs.NewMap2[
			components.Position,
			components.Collider,
		](world),
		mobileMapper: ecs.NewMap8[
			components.Position,
			components.Collider,
			components.RelativeVelocity,
			components.TotalVelocity,
			components.Ticker,
			components.MovementGoal,
			components.MaintainedVelocity,
			components.Support,
		](world),
		posMap:    ecs.NewMap1[components.Position](world),
		colMap:    ecs.NewMap1[components.Collider](world),
		goalMap:   ecs.NewMap1[components.MovementGoal](world),
		totMap:    ecs.NewMap1[components.TotalVelocity](world),
		supMap:    ecs.NewMap1[components.Support](world),
		maintMap:  ecs.NewMap1[components.MaintainedVelocity](world),
		weightMap: ecs.NewMap1[components.Weight](world),

		dt:    cfg.Derived.DT32,
		decay: cfg.Derived.MaintainedDecay,
	}

	s.forces = systems.NewForces(world)
	s.propagator = systems.NewPropagator(world)
	s.caster = systems.NewCaster(world, s.grid, s.occ)
	s.emitter = systems.NewEmitter()
	s.resolver = systems.NewResolver(world, s.grid, s.occ, s.caster, s.emitter)
	s.resolver.MaxPushDistance = cfg.Physics.MaxPushDistance
	s.resolver.MaxPushAttempts = cfg.Physics.MaxPushAttempts
	s.supports = systems.NewSupports(world, s.grid, s.occ)

	s.collector = telemetry.NewCollector(cfg.Derived.TicksPerWindow, s.dt)
	s.emitter.Subscribe(s.collector.Record)
	s.perf = telemetry.NewPerfCollector(PerfWindow)

	return s
}

// Step advances the simulation by one tick. Phases run in a fixed
// order; occupancy is rebuilt once at the start and again after
// resolution so support detection sees post-move positions.
//
// A non-nil error means one or more entities hit an invariant violation
// (corrupt occupied sets, cyclic supports); the affected entities were
// skipped or degraded for the tick but the world as a whole advanced.
func (s *Sim) Step() error {
	var errs []error

	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseOccupancy)
	s.occ.Rebuild(s.occFilter)

	s.perf.StartPhase(telemetry.PhaseForces)
	s.forces.Update(s.dt, s.decay)

	s.perf.StartPhase(telemetry.PhasePropagate)
	if err := s.propagator.Update(); err != nil {
		errs = append(errs, err)
	}

	s.perf.StartPhase(telemetry.PhaseResolve)
	if err := s.resolver.Update(s.dt, s.tick); err != nil {
		errs = append(errs, err)
	}

	s.perf.StartPhase(telemetry.PhaseSupport)
	s.occ.Rebuild(s.occFilter)
	if err := s.supports.Update(); err != nil {
		errs = append(errs, err)
	}

	s.perf.StartPhase(telemetry.PhaseEmit)
	s.emitter.Flush()

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.perf.EndTick()

	s.tick++
	return errors.Join(errs...)
}

// Tick returns the current simulation tick.
func (s *Sim) Tick() int64 {
	return s.tick
}

// Grid returns the static tile grid, for level loading and probes.
func (s *Sim) Grid() *systems.TileGrid {
	return s.grid
}

// Collector returns the collision stats collector.
func (s *Sim) Collector() *telemetry.Collector {
	return s.collector
}

// Perf returns the phase timing collector.
func (s *Sim) Perf() *telemetry.PerfCollector {
	return s.perf
}

// Subscribe registers a collision-event consumer. Subscribers run
// synchronously at the end of each tick.
func (s *Sim) Subscribe(fn func(*systems.CollisionEvent)) {
	s.emitter.Subscribe(fn)
}

// PositionOf returns an entity's anchor tile.
func (s *Sim) PositionOf(e ecs.Entity) (components.Tile, bool) {
	if !s.world.Alive(e) {
		return components.Tile{}, false
	}
	pos := s.posMap.Get(e)
	if pos == nil {
		return components.Tile{}, false
	}
	return pos.Tile, true
}

// TotalVelocityOf returns an entity's derived total velocity from the
// last completed tick.
func (s *Sim) TotalVelocityOf(e ecs.Entity) (components.Vec3, bool) {
	if !s.world.Alive(e) {
		return components.Vec3{}, false
	}
	tot := s.totMap.Get(e)
	if tot == nil {
		return components.Vec3{}, false
	}
	return tot.Vec3, true
}

// SupportOf returns an entity's support relation from the last
// completed tick.
func (s *Sim) SupportOf(e ecs.Entity) (components.Support, bool) {
	if !s.world.Alive(e) {
		return components.Support{}, false
	}
	sup := s.supMap.Get(e)
	if sup == nil {
		return components.Support{}, false
	}
	return *sup, true
}

// SetMovementGoal sets the velocity an entity's controller wants, in
// tiles per second. Call between ticks.
func (s *Sim) SetMovementGoal(e ecs.Entity, v components.Vec3) bool {
	if !s.world.Alive(e) {
		return false
	}
	goal := s.goalMap.Get(e)
	if goal == nil {
		return false
	}
	goal.Vec3 = v
	return true
}

// AddImpulse adds a decaying velocity contribution, for knockback-style
// effects that outlive a single tick.
func (s *Sim) AddImpulse(e ecs.Entity, v components.Vec3) bool {
	if !s.world.Alive(e) {
		return false
	}
	maint := s.maintMap.Get(e)
	if maint == nil {
		return false
	}
	maint.Vec3 = maint.Vec3.Add(v)
	return true
}

// CastProbe sweeps a synthetic box through the current world without
// spawning an entity, for diagnostics. The occupancy index is rebuilt
// first so results reflect current entity positions.
func (s *Sim) CastProbe(anchor components.Tile, extent components.Extent, disp components.Vec3) ([]systems.Candidate, error) {
	s.occ.Rebuild(s.occFilter)

	col := components.NewCollider(extent, components.KindSensor, false)
	col.Refresh(anchor)
	return s.caster.Cast(ecs.Entity{}, anchor, &col, disp, nil)
}
