package dataset

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Example is a labeled feature vector. Label is 0 or 1.
type Example struct {
	Features []float64
	Label    int
}

// Validate checks that examples is non-empty, that every label is 0 or 1
// and that all feature vectors share one length.
func Validate(examples []Example) error {
	if len(examples) == 0 {
		return errors.New("dataset: no examples")
	}
	width := len(examples[0].Features)
	for i, ex := range examples {
		if ex.Label != 0 && ex.Label != 1 {
			return errors.Errorf("dataset: example %d has label %d, want 0 or 1", i, ex.Label)
		}
		if len(ex.Features) != width {
			return errors.Errorf("dataset: example %d has %d features, want %d", i, len(ex.Features), width)
		}
	}
	return nil
}

// Split shuffles a copy of examples with the given seed and returns the
// training and test parts. testFraction is clamped to [0, 1].
func Split(examples []Example, testFraction float64, seed uint64) (train, test []Example) {
	shuffled := Clone(examples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if testFraction < 0 {
		testFraction = 0
	}
	if testFraction > 1 {
		testFraction = 1
	}
	nTest := int(float64(len(shuffled))*testFraction + 0.5)
	return shuffled[nTest:], shuffled[:nTest]
}

// Clone deep-copies examples.
func Clone(examples []Example) []Example {
	out := make([]Example, len(examples))
	for i, ex := range examples {
		out[i] = Example{Features: append([]float64(nil), ex.Features...), Label: ex.Label}
	}
	return out
}
