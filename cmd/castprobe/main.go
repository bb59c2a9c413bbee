// Package main provides a command-line probe that sweeps a box through
// a level and prints the contacts it would hit, for debugging levels
// and collision setups without running the full simulation.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/pthm-cable/brig/components"
	"github.com/pthm-cable/brig/config"
	"github.com/pthm-cable/brig/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Config YAML file (empty = use defaults)")
	levelPath := flag.String("level", "", "Level YAML file to probe")
	from := flag.String("from", "0,0,0", "Anchor tile as x,y,layer")
	extent := flag.String("extent", "1,1,1", "Box extent as w,h,d")
	disp := flag.String("disp", "0,0,0", "Displacement in tiles as x,y,z")
	flag.Parse()

	if *levelPath == "" {
		log.Fatal("--level is required")
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	anchor, err := parseTile(*from)
	if err != nil {
		log.Fatalf("bad --from: %v", err)
	}
	box, err := parseExtent(*extent)
	if err != nil {
		log.Fatalf("bad --extent: %v", err)
	}
	d, err := parseVec(*disp)
	if err != nil {
		log.Fatalf("bad --disp: %v", err)
	}

	sim := game.NewSim(config.Cfg())
	lvl, entities, err := sim.LoadLevelInto(*levelPath)
	if err != nil {
		log.Fatalf("failed to load level: %v", err)
	}

	cands, err := sim.CastProbe(anchor, box, d)
	if err != nil {
		log.Fatalf("cast failed: %v", err)
	}

	fmt.Printf("level %q: %d tiles, %d entities\n", lvl.Name, sim.Grid().Len(), len(entities))
	fmt.Printf("cast from (%d,%d,%d) extent %dx%dx%d disp (%g,%g,%g): %d candidates\n",
		anchor.X, anchor.Y, anchor.Layer, box.W, box.H, box.D, d.X, d.Y, d.Z, len(cands))

	for _, c := range cands {
		target := "terrain"
		if c.IsEntity {
			target = fmt.Sprintf("entity %d", c.Entity.ID())
		}
		contact := "overlap"
		if c.Dir != 0 {
			contact = fmt.Sprintf("%s%+d steps=%d frac=%.3f", c.Axis, c.Dir, c.Steps, c.Fraction)
		}
		fmt.Printf("  (%d,%d,%d) %s %s %s blocking=%v\n",
			c.Tile.X, c.Tile.Y, c.Tile.Layer, target, c.Kind, contact, c.Blocking)
	}
}

// parseTile parses "x,y,layer".
func parseTile(s string) (components.Tile, error) {
	n, err := parseInts(s, 3)
	if err != nil {
		return components.Tile{}, err
	}
	return components.Tile{X: n[0], Y: n[1], Layer: n[2]}, nil
}

// parseExtent parses "w,h,d".
func parseExtent(s string) (components.Extent, error) {
	n, err := parseInts(s, 3)
	if err != nil {
		return components.Extent{}, err
	}
	e := components.Extent{W: n[0], H: n[1], D: n[2]}
	if !e.Valid() {
		return components.Extent{}, fmt.Errorf("extent must be at least 1x1x1, got %s", s)
	}
	return e, nil
}

// parseVec parses "x,y,z" as floats.
func parseVec(s string) (components.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return components.Vec3{}, fmt.Errorf("want 3 comma-separated values, got %q", s)
	}
	var out [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return components.Vec3{}, err
		}
		out[i] = float32(f)
	}
	return components.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// parseInts parses a comma-separated list of exactly n integers.
func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated values, got %q", n, s)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
