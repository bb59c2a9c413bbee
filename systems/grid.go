// Package systems provides the per-tick physics systems: velocity
// propagation, tile casting, conflict resolution and event emission.
package systems

import (
	"github.com/pthm-cable/brig/components"
)

// Terrain is the static descriptor stored per grid tile.
type Terrain struct {
	Kind        components.Kind
	Constraints components.Constraints
}

// TerrainFor builds a terrain descriptor with the preset constraints
// for the given kind.
func TerrainFor(kind components.Kind) Terrain {
	return Terrain{Kind: kind, Constraints: kind.Constraints()}
}

// TileGrid is the static spatial index from tile coordinates to terrain.
// It is populated during world construction and read-only during a tick;
// concurrent reads are safe as long as nothing mutates mid-tick.
type TileGrid struct {
	tiles map[components.Tile]Terrain
}

// NewTileGrid creates an empty grid.
func NewTileGrid() *TileGrid {
	return &TileGrid{tiles: make(map[components.Tile]Terrain)}
}

// Set stores or overwrites the terrain at a tile. KindEmpty removes
// the entry.
func (g *TileGrid) Set(t components.Tile, terrain Terrain) {
	if terrain.Kind == components.KindEmpty {
		delete(g.tiles, t)
		return
	}
	g.tiles[t] = terrain
}

// At returns the terrain at a tile, if any.
func (g *TileGrid) At(t components.Tile) (Terrain, bool) {
	terrain, ok := g.tiles[t]
	return terrain, ok
}

// Len returns the number of non-empty tiles.
func (g *TileGrid) Len() int {
	return len(g.tiles)
}

// Clear removes all terrain, for level reloads.
func (g *TileGrid) Clear() {
	clear(g.tiles)
}
