package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated collision statistics for a tick window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Resolution outcomes during the window
	Contacts   int `csv:"contacts"`
	Clamps     int `csv:"clamps"`
	Pushes     int `csv:"pushes"`
	Unresolved int `csv:"unresolved"`

	// Candidate count distribution per event
	CandMean float64 `csv:"cand_mean"`
	CandStd  float64 `csv:"cand_std"`
	CandP50  float64 `csv:"cand_p50"`
	CandP90  float64 `csv:"cand_p90"`

	// Boundary-step distance of blocking contacts
	StepsMean float64 `csv:"steps_mean"`
	StepsP90  float64 `csv:"steps_p90"`
}

// fillDistributions computes the distribution fields from per-event
// samples. The sample slices are sorted in place.
func (w *WindowStats) fillDistributions(candCounts, contactSteps []float64) {
	if len(candCounts) > 0 {
		sort.Float64s(candCounts)
		w.CandMean = stat.Mean(candCounts, nil)
		w.CandStd = stat.StdDev(candCounts, nil)
		w.CandP50 = stat.Quantile(0.5, stat.Empirical, candCounts, nil)
		w.CandP90 = stat.Quantile(0.9, stat.Empirical, candCounts, nil)
	}
	if len(contactSteps) > 0 {
		sort.Float64s(contactSteps)
		w.StepsMean = stat.Mean(contactSteps, nil)
		w.StepsP90 = stat.Quantile(0.9, stat.Empirical, contactSteps, nil)
	}
}
