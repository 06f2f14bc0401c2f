package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qclassify/internal/loss"
)

func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(3, 20*time.Millisecond, 1.2)
	w.Record(2, 30*time.Millisecond, 0.8)
	snap := w.Snapshot()
	assert.InDelta(t, 100.0, snap.EvalsPerSec, 1e-9)
	assert.InDelta(t, 25.0, snap.AvgIterMS, 1e-9)
	assert.Equal(t, 2, snap.Iterations)
	assert.Equal(t, 0.8, snap.LastLoss)
	assert.Zero(t, w.iters)
	assert.Zero(t, w.evals)

	empty := w.Snapshot()
	assert.Zero(t, empty.EvalsPerSec)
	assert.Zero(t, empty.AvgIterMS)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{0.9, 0.5, 0.3, 0.3})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 0.3, s.Min)
	assert.Equal(t, 0.9, s.Max)
	assert.InDelta(t, 0.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.06), s.StdDev, 1e-12)
	assert.Equal(t, 0.3, s.Final)

	_, err = Summarize(nil)
	assert.Error(t, err)
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]loss.EvaluatedExample{
		{Label: 1, Probability: 0.5},
		{Label: 0, Probability: 0.49},
		{Label: 1, Probability: 0.1},
		{Label: 0, Probability: 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	_, err = Accuracy(nil)
	assert.True(t, errors.Is(err, loss.ErrEmptyBatch))
}
