package metrics

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"qclassify/internal/loss"
)

// Window accumulates optimizer progress across iterations.
type Window struct {
	evals    int
	elapsed  time.Duration
	iters    int
	lastLoss float64
}

// Record adds one iteration that took elapsed and ran evaluations target
// evaluations.
func (w *Window) Record(evaluations int, elapsed time.Duration, loss float64) {
	w.evals += evaluations
	w.elapsed += elapsed
	w.iters++
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Iterations: w.iters, LastLoss: w.lastLoss}
	if w.elapsed > 0 {
		snap.EvalsPerSec = float64(w.evals) / w.elapsed.Seconds()
	}
	if w.iters > 0 {
		snap.AvgIterMS = (w.elapsed.Seconds() * 1000) / float64(w.iters)
	}

	w.evals = 0
	w.elapsed = 0
	w.iters = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Iterations  int
	EvalsPerSec float64
	AvgIterMS   float64
	LastLoss    float64
}

// Summary describes a loss history.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Final  float64
}

// Summarize computes descriptive statistics over history.
func Summarize(history []float64) (Summary, error) {
	if len(history) == 0 {
		return Summary{}, errors.New("metrics: empty history")
	}
	data := stats.Float64Data(history)
	s := Summary{Count: len(history), Final: history[len(history)-1]}
	var err error
	if s.Min, err = stats.Min(data); err != nil {
		return Summary{}, errors.Wrap(err, "metrics: min")
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Summary{}, errors.Wrap(err, "metrics: max")
	}
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, errors.Wrap(err, "metrics: mean")
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return Summary{}, errors.Wrap(err, "metrics: stddev")
	}
	return s, nil
}

// Accuracy is the fraction of examples whose predicted label, 1 when the
// probability is at least 0.5, matches the true label.
func Accuracy(batch []loss.EvaluatedExample) (float64, error) {
	if len(batch) == 0 {
		return 0, loss.ErrEmptyBatch
	}
	hits := 0
	for _, ev := range batch {
		predicted := 0
		if ev.Probability >= 0.5 {
			predicted = 1
		}
		if predicted == ev.Label {
			hits++
		}
	}
	return float64(hits) / float64(len(batch)), nil
}
