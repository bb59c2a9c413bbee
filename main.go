package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/pthm-cable/brig/config"
	"github.com/pthm-cable/brig/game"
	"github.com/pthm-cable/brig/systems"
	"github.com/pthm-cable/brig/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	levelPath := flag.String("level", "", "Path to level.yaml (empty = use config, or start with a bare grid)")
	watch := flag.Bool("watch", false, "Reload the level file when it changes")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per loop iteration")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	level := *levelPath
	if level == "" {
		level = cfg.World.Level
	}

	sim := game.NewSim(cfg)

	if level != "" {
		lvl, entities, err := sim.LoadLevelInto(level)
		if err != nil {
			slog.Error("failed to load level", "path", level, "error", err)
			os.Exit(1)
		}
		slog.Info("level loaded",
			"name", lvl.Name,
			"tiles", sim.Grid().Len(),
			"entities", len(entities),
		)
	}

	output, err := telemetry.NewOutputManager(*outputDir, cfg.Telemetry.LogEvents)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}
	if output != nil && cfg.Telemetry.LogEvents {
		sim.Subscribe(func(ev *systems.CollisionEvent) {
			if err := output.WriteEvent(ev); err != nil {
				slog.Error("failed to write event", "error", err)
			}
		})
	}

	var watcher *fsnotify.Watcher
	reload := make(chan struct{}, 1)
	if *watch && level != "" {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			slog.Error("failed to create level watcher", "error", err)
			os.Exit(1)
		}
		defer watcher.Close()
		if err := watcher.Add(level); err != nil {
			slog.Error("failed to watch level file", "path", level, "error", err)
			os.Exit(1)
		}
		go func() {
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
						select {
						case reload <- struct{}{}:
						default:
						}
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					slog.Error("level watcher error", "error", err)
				}
			}
		}()
	}

	slog.Info("starting simulation",
		"level", level,
		"dt", cfg.Physics.DT,
		"max_ticks", *maxTicks,
		"steps_per_update", *stepsPerUpdate,
	)

	for {
		for i := 0; i < *stepsPerUpdate; i++ {
			if err := sim.Step(); err != nil {
				slog.Error("tick completed with invariant violations",
					"tick", sim.Tick(),
					"error", err,
				)
			}

			if sim.Collector().WindowDone(sim.Tick()) {
				stats := sim.Collector().Flush(sim.Tick())
				if err := output.WriteStats(stats); err != nil {
					slog.Error("failed to write stats", "error", err)
				}
				if *logStats {
					slog.Info("window stats",
						"window_end", stats.WindowEndTick,
						"contacts", stats.Contacts,
						"clamps", stats.Clamps,
						"pushes", stats.Pushes,
						"unresolved", stats.Unresolved,
					)
					sim.Perf().Log(sim.Tick())
				}
			}

			if *maxTicks > 0 && int(sim.Tick()) >= *maxTicks {
				slog.Info("max ticks reached", "tick", sim.Tick())
				return
			}
		}

		// Terrain reloads happen strictly between ticks.
		select {
		case <-reload:
			lvl, err := game.LoadLevel(level)
			if err != nil {
				slog.Error("level reload failed", "path", level, "error", err)
				continue
			}
			if err := sim.ApplyTerrain(lvl); err != nil {
				slog.Error("level reload failed", "path", level, "error", err)
				continue
			}
			slog.Info("level reloaded", "name", lvl.Name, "tiles", sim.Grid().Len())
		default:
		}
	}
}
