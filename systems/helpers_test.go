package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brig/components"
)

// testWorld bundles the pieces most system tests need.
type testWorld struct {
	world *ecs.World
	grid  *TileGrid
	occ   *Occupancy

	occFilter *ecs.Filter2[components.Position, components.Collider]

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

	posMap    *ecs.Map1[components.Position]
	colMap    *ecs.Map1[components.Collider]
	relMap    *ecs.Map1[components.RelativeVelocity]
	totMap    *ecs.Map1[components.TotalVelocity]
	tickMap   *ecs.Map1[components.Ticker]
	supMap    *ecs.Map1[components.Support]
	goalMap   *ecs.Map1[components.MovementGoal]
	maintMap  *ecs.Map1[components.MaintainedVelocity]
	weightMap *ecs.Map1[components.Weight]
}

func newTestWorld() *testWorld {
	world := ecs.NewWorld()
	return &testWorld{
		world:     world,
		grid:      NewTileGrid(),
		occ:       NewOccupancy(),
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
		relMap:    ecs.NewMap1[components.RelativeVelocity](world),
		totMap:    ecs.NewMap1[components.TotalVelocity](world),
		tickMap:   ecs.NewMap1[components.Ticker](world),
		supMap:    ecs.NewMap1[components.Support](world),
		goalMap:   ecs.NewMap1[components.MovementGoal](world),
		maintMap:  ecs.NewMap1[components.MaintainedVelocity](world),
		weightMap: ecs.NewMap1[components.Weight](world),
	}
}

// wall places solid terrain at a tile.
func (tw *testWorld) wall(x, y, layer int) {
	tw.grid.Set(components.Tile{X: x, Y: y, Layer: layer}, TerrainFor(components.KindSolid))
}

// terrain places terrain of the given kind at a tile.
func (tw *testWorld) terrain(x, y, layer int, kind components.Kind) {
	tw.grid.Set(components.Tile{X: x, Y: y, Layer: layer}, TerrainFor(kind))
}

// spawnStatic creates a position-and-collider entity.
func (tw *testWorld) spawnStatic(tile components.Tile, extent components.Extent, kind components.Kind) ecs.Entity {
	col := components.NewCollider(extent, kind, false)
	col.Refresh(tile)
	pos := components.Position{Tile: tile}
	return tw.staticMapper.NewEntity(&pos, &col)
}

// spawnMobile creates a full velocity-carrying entity with the given
// total velocity. RelativeVelocity is set to match so propagation-free
// tests behave.
func (tw *testWorld) spawnMobile(tile components.Tile, extent components.Extent, kind components.Kind, vel components.Vec3) ecs.Entity {
	col := components.NewCollider(extent, kind, true)
	col.Refresh(tile)
	pos := components.Position{Tile: tile}
	rel := components.RelativeVelocity{Vec3: vel}
	tot := components.TotalVelocity{Vec3: vel}
	ticker := components.Ticker{}
	goal := components.MovementGoal{}
	maint := components.MaintainedVelocity{}
	sup := components.Support{}
	return tw.mobileMapper.NewEntity(&pos, &col, &rel, &tot, &ticker, &goal, &maint, &sup)
}

// rebuild refreshes the occupancy index, as the tick driver would.
func (tw *testWorld) rebuild() {
	tw.occ.Rebuild(tw.occFilter)
}

func tile(x, y, layer int) components.Tile {
	return components.Tile{X: x, Y: y, Layer: layer}
}

func one() components.Extent {
	return components.Extent{W: 1, H: 1, D: 1}
}
