package loss

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Floor replaces any non-positive argument to the logarithm.
const Floor = 1e-4

// ErrEmptyBatch is returned for a batch with no examples.
var ErrEmptyBatch = errors.New("loss: empty batch")

// EvaluatedExample is a labeled feature vector together with the classifier's
// predicted probability of label 1.
type EvaluatedExample struct {
	Features    []float64
	Label       int
	Probability float64
}

// Func reduces a batch to a scalar loss.
type Func func(batch []EvaluatedExample) (float64, error)

// CrossEntropy is the mean of -t ln(y) - (1-t) ln(1-y) over the batch, with
// ln(v) taken as ln(Floor) for v <= 0. Terms are summed in sorted order so
// the result does not depend on batch order.
func CrossEntropy(batch []EvaluatedExample) (float64, error) {
	if len(batch) == 0 {
		return 0, ErrEmptyBatch
	}
	terms := make([]float64, len(batch))
	for i, ex := range batch {
		t := float64(ex.Label)
		y := ex.Probability
		terms[i] = -t*flooredLog(y) - (1-t)*flooredLog(1-y)
	}
	sort.Float64s(terms)
	return floats.Sum(terms) / float64(len(terms)), nil
}

func flooredLog(v float64) float64 {
	if v <= 0 {
		return math.Log(Floor)
	}
	return math.Log(v)
}

// Objective names accepted by Lookup.
const NameCrossEntropy = "crossentropy"

// Lookup resolves an objective by name; empty means crossentropy.
func Lookup(name string) (Func, error) {
	switch name {
	case "", NameCrossEntropy:
		return CrossEntropy, nil
	}
	return nil, errors.Errorf("loss: unknown objective %q", name)
}
