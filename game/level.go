package game

import (
	"fmt"
	"os"

	"github.com/mlange-42/ark/ecs"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/brig/components"
	"github.com/pthm-cable/brig/systems"
)

// Level is a world description loaded from YAML: terrain tiles plus
// the entities to spawn into it.
type Level struct {
	Name  string     `yaml:"name"`
	Tiles []TileSpec `yaml:"tiles"`
	Fills []FillSpec `yaml:"fills"`

	Entities []SpawnSpec `yaml:"entities"`
}

// TileSpec places terrain on a single tile.
type TileSpec struct {
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	Layer int    `yaml:"layer"`
	Kind  string `yaml:"kind"`
}

// FillSpec places terrain on an axis-aligned box of tiles, inclusive on
// both corners. Walls and floors are mostly fills.
type FillSpec struct {
	From TileSpec `yaml:"from"`
	To   TileSpec `yaml:"to"`
	Kind string   `yaml:"kind"`
}

// SpawnSpec describes one entity in the level file.
type SpawnSpec struct {
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Layer  int    `yaml:"layer"`
	Kind   string `yaml:"kind"`
	Extent struct {
		W int `yaml:"w"`
		H int `yaml:"h"`
		D int `yaml:"d"`
	} `yaml:"extent"`
	Movable bool       `yaml:"movable"`
	Mass    float32    `yaml:"mass"`
	Goal    [3]float32 `yaml:"goal"`
}

// LoadLevel reads and parses a level file.
func LoadLevel(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level file: %w", err)
	}
	level := &Level{}
	if err := yaml.Unmarshal(data, level); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return level, nil
}

// kindFromString maps a level-file kind name to its Kind value.
func kindFromString(s string) (components.Kind, error) {
	switch s {
	case "solid":
		return components.KindSolid, nil
	case "sensor":
		return components.KindSensor, nil
	case "oneway":
		return components.KindOneWay, nil
	case "", "empty":
		return components.KindEmpty, nil
	}
	return components.KindEmpty, fmt.Errorf("unknown tile kind %q", s)
}

// ApplyTerrain replaces the grid contents with the level's terrain.
// Entities are untouched, so a live reload keeps them in place. Call
// only between ticks.
func (s *Sim) ApplyTerrain(level *Level) error {
	grid := systems.NewTileGrid()

	for _, t := range level.Tiles {
		kind, err := kindFromString(t.Kind)
		if err != nil {
			return fmt.Errorf("tile (%d,%d,%d): %w", t.X, t.Y, t.Layer, err)
		}
		grid.Set(components.Tile{X: t.X, Y: t.Y, Layer: t.Layer}, systems.TerrainFor(kind))
	}

	for _, f := range level.Fills {
		kind, err := kindFromString(f.Kind)
		if err != nil {
			return fmt.Errorf("fill from (%d,%d,%d): %w", f.From.X, f.From.Y, f.From.Layer, err)
		}
		x0, x1 := ordered(f.From.X, f.To.X)
		y0, y1 := ordered(f.From.Y, f.To.Y)
		l0, l1 := ordered(f.From.Layer, f.To.Layer)
		for l := l0; l <= l1; l++ {
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					grid.Set(components.Tile{X: x, Y: y, Layer: l}, systems.TerrainFor(kind))
				}
			}
		}
	}

	// Swap in one pass so a parse error above never leaves a half
	// applied grid.
	*s.grid = *grid
	return nil
}

// SpawnEntities creates the level's entities and returns them in file
// order.
func (s *Sim) SpawnEntities(level *Level) ([]ecs.Entity, error) {
	entities := make([]ecs.Entity, 0, len(level.Entities))
	for i, spec := range level.Entities {
		kind, err := kindFromString(spec.Kind)
		if err != nil {
			return entities, fmt.Errorf("entity %d: %w", i, err)
		}
		if kind == components.KindEmpty {
			kind = components.KindSolid
		}

		extent := components.Extent{W: spec.Extent.W, H: spec.Extent.H, D: spec.Extent.D}
		if !extent.Valid() {
			extent = components.Extent{W: 1, H: 1, D: 1}
		}

		entities = append(entities, s.Spawn(EntitySpec{
			Tile:    components.Tile{X: spec.X, Y: spec.Y, Layer: spec.Layer},
			Extent:  extent,
			Kind:    kind,
			Movable: spec.Movable,
			Mass:    spec.Mass,
			Goal:    components.Vec3{X: spec.Goal[0], Y: spec.Goal[1], Z: spec.Goal[2]},
		}))
	}
	return entities, nil
}

// LoadLevelInto is the combined load-apply-spawn used at startup.
func (s *Sim) LoadLevelInto(path string) (*Level, []ecs.Entity, error) {
	level, err := LoadLevel(path)
	if err != nil {
		return nil, nil, err
	}
	if err := s.ApplyTerrain(level); err != nil {
		return nil, nil, err
	}
	entities, err := s.SpawnEntities(level)
	if err != nil {
		return level, entities, err
	}
	return level, entities, nil
}

// ordered returns its arguments in ascending order.
func ordered(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
