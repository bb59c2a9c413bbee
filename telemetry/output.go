package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/brig/config"
	"github.com/pthm-cable/brig/systems"
)

// EventRecord is one collision event flattened for CSV output.
type EventRecord struct {
	Tick       int64  `csv:"tick"`
	EntityID   uint32 `csv:"entity"`
	Mode       string `csv:"mode"`
	Candidates int    `csv:"candidates"`
	FirstTileX int    `csv:"tile_x"`
	FirstTileY int    `csv:"tile_y"`
	FirstLayer int    `csv:"tile_layer"`
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir        string
	statsFile  *os.File
	eventsFile *os.File

	statsHeaderWritten  bool
	eventsHeaderWritten bool
}

// NewOutputManager creates an output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, logEvents bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	if logEvents {
		f, err = os.Create(filepath.Join(dir, "events.csv"))
		if err != nil {
			om.statsFile.Close()
			return nil, fmt.Errorf("creating events.csv: %w", err)
		}
		om.eventsFile = f
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats writes a window stats record to stats.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}

	records := []WindowStats{stats}
	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}
	return nil
}

// WriteEvent writes one collision event row to events.csv, if event
// logging is enabled.
func (om *OutputManager) WriteEvent(ev *systems.CollisionEvent) error {
	if om == nil || om.eventsFile == nil {
		return nil
	}

	rec := EventRecord{
		Tick:       ev.Tick,
		EntityID:   ev.Entity.ID(),
		Mode:       ev.Mode.String(),
		Candidates: len(ev.Candidates),
	}
	if len(ev.Candidates) > 0 {
		first := ev.Candidates[0]
		rec.FirstTileX = first.Tile.X
		rec.FirstTileY = first.Tile.Y
		rec.FirstLayer = first.Tile.Layer
	}

	records := []EventRecord{rec}
	if !om.eventsHeaderWritten {
		if err := gocsv.Marshal(records, om.eventsFile); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
		om.eventsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.eventsFile); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
	}
	return nil
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	if err := om.statsFile.Close(); err != nil {
		firstErr = err
	}
	if om.eventsFile != nil {
		if err := om.eventsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
