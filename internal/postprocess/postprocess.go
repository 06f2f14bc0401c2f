// Package postprocess extracts classical information from the processor's
// output state: a quantum step adding measurements to the circuit, and a
// classical step reducing the measured outcomes to a probability.
package postprocess

import (
	"github.com/pkg/errors"

	"qclassify/internal/circuit"
	"qclassify/internal/executor"
)

// Quantum appends the measurement operations.
type Quantum interface {
	Measure(qubits []int) (*circuit.Program, error)
}

// Classical reduces raw outcomes to a value in [0, 1].
type Classical interface {
	Reduce(out executor.Outcomes) (float64, error)
}

// MeasureTop measures the first selected qubit into readout slot 0.
type MeasureTop struct{}

// Measure implements Quantum.
func (MeasureTop) Measure(qubits []int) (*circuit.Program, error) {
	if len(qubits) == 0 {
		return nil, errors.Wrap(circuit.ErrConfiguration, "measure_top: empty qubit selection")
	}
	return circuit.NewProgram(circuit.Measure(qubits[0], 0)), nil
}

// ProbOne is the fraction of ones over every measured bit of every shot.
type ProbOne struct{}

// Reduce implements Classical.
func (ProbOne) Reduce(out executor.Outcomes) (float64, error) {
	total, ones := 0, 0
	for _, row := range out {
		for _, bit := range row {
			total++
			if bit != 0 {
				ones++
			}
		}
	}
	if total == 0 {
		return 0, errors.New("prob_one: no outcomes")
	}
	return float64(ones) / float64(total), nil
}

// Strategy names.
const (
	QuantumMeasureTop = "measure_top"
	ClassicalProbOne  = "prob_one"
)

// Options selects both steps by name.
type Options struct {
	Quantum   string `yaml:"quantum" json:"quantum"`
	Classical string `yaml:"classical" json:"classical"`
}

// DefaultOptions is measure_top followed by prob_one.
func DefaultOptions() Options {
	return Options{Quantum: QuantumMeasureTop, Classical: ClassicalProbOne}
}

// ParseQuantum resolves a quantum step; empty means measure_top.
func ParseQuantum(name string) (Quantum, error) {
	switch name {
	case "", QuantumMeasureTop:
		return MeasureTop{}, nil
	}
	return nil, errors.Wrapf(circuit.ErrConfiguration, "unknown quantum postprocessing %q", name)
}

// ParseClassical resolves a classical step; empty means prob_one.
func ParseClassical(name string) (Classical, error) {
	switch name {
	case "", ClassicalProbOne:
		return ProbOne{}, nil
	}
	return nil, errors.Wrapf(circuit.ErrConfiguration, "unknown classical postprocessing %q", name)
}
