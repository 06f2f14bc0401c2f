package loss

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossEntropyConfidentPredictions(t *testing.T) {
	got, err := CrossEntropy([]EvaluatedExample{
		{Label: 1, Probability: 0.99},
		{Label: 0, Probability: 0.01},
	})
	require.NoError(t, err)
	want := (-math.Log(0.99) - math.Log(0.99)) / 2
	assert.InDelta(t, want, got, 1e-12)
	assert.InDelta(t, 0.01005, got, 1e-5)
}

func TestCrossEntropyFloor(t *testing.T) {
	got, err := CrossEntropy([]EvaluatedExample{{Label: 1, Probability: 0}})
	require.NoError(t, err)
	assert.Equal(t, -math.Log(1e-4), got)
	assert.False(t, math.IsInf(got, 0))

	got, err = CrossEntropy([]EvaluatedExample{{Label: 0, Probability: 1}})
	require.NoError(t, err)
	assert.Equal(t, -math.Log(Floor), got)
}

func TestCrossEntropyHalf(t *testing.T) {
	got, err := CrossEntropy([]EvaluatedExample{
		{Label: 1, Probability: 0.5},
		{Label: 0, Probability: 0.5},
	})
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, got, 1e-12)
}

func TestCrossEntropyOrderInvariant(t *testing.T) {
	batch := []EvaluatedExample{
		{Label: 1, Probability: 0.91},
		{Label: 0, Probability: 0.13},
		{Label: 1, Probability: 0.37},
		{Label: 0, Probability: 0.02},
		{Label: 1, Probability: 0},
	}
	reversed := make([]EvaluatedExample, len(batch))
	for i, ex := range batch {
		reversed[len(batch)-1-i] = ex
	}
	a, err := CrossEntropy(batch)
	require.NoError(t, err)
	b, err := CrossEntropy(reversed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCrossEntropyEmpty(t *testing.T) {
	_, err := CrossEntropy(nil)
	assert.True(t, errors.Is(err, ErrEmptyBatch))
}

func TestLookup(t *testing.T) {
	f, err := Lookup(NameCrossEntropy)
	require.NoError(t, err)
	got, err := f([]EvaluatedExample{{Label: 1, Probability: 0.5}})
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, got, 1e-12)

	_, err = Lookup("hinge")
	assert.Error(t, err)
}
