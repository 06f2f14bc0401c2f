package executor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qclassify/internal/circuit"
)

func newTestSimulator(t *testing.T, exact bool) *Simulator {
	t.Helper()
	sim, err := NewSimulator(SimulatorOptions{Exact: exact, Seed: 3})
	require.NoError(t, err)
	return sim
}

func TestSimulatorRXDistribution(t *testing.T) {
	sim := newTestSimulator(t, true)
	theta := 1.2
	prog := circuit.NewProgram(circuit.RX(theta, 0), circuit.Measure(0, 0))

	dist, err := sim.Distribution(context.Background(), prog)
	require.NoError(t, err)
	require.Len(t, dist, 2)
	want := math.Pow(math.Sin(theta/2), 2)
	assert.InDelta(t, 1-want, dist[0], 1e-12)
	assert.InDelta(t, want, dist[1], 1e-12)
}

func TestSimulatorBellState(t *testing.T) {
	sim := newTestSimulator(t, true)
	prog := circuit.NewProgram(
		circuit.H(0),
		circuit.CNOT(0, 1),
		circuit.Measure(0, 0),
		circuit.Measure(1, 1),
	)
	dist, err := sim.Distribution(context.Background(), prog)
	require.NoError(t, err)
	require.Len(t, dist, 4)
	assert.InDelta(t, 0.5, dist[0], 1e-12)
	assert.InDelta(t, 0, dist[1], 1e-12)
	assert.InDelta(t, 0, dist[2], 1e-12)
	assert.InDelta(t, 0.5, dist[3], 1e-12)
}

func TestSimulatorCZPhaseKickback(t *testing.T) {
	// H-CZ-H on the target turns CZ into CNOT.
	sim := newTestSimulator(t, true)
	prog := circuit.NewProgram(
		circuit.X(0),
		circuit.H(1),
		circuit.CZ(0, 1),
		circuit.H(1),
		circuit.Measure(1, 0),
	)
	dist, err := sim.Distribution(context.Background(), prog)
	require.NoError(t, err)
	assert.InDelta(t, 1, dist[1], 1e-12)
}

func TestSimulatorExactOutcomes(t *testing.T) {
	sim := newTestSimulator(t, true)
	prog := circuit.NewProgram(circuit.RX(math.Pi/2, 0), circuit.Measure(0, 0))

	out, err := sim.Submit(context.Background(), prog, 1000)
	require.NoError(t, err)
	require.Len(t, out, 1000)
	ones := 0
	for _, row := range out {
		require.Len(t, row, 1)
		ones += row[0]
	}
	assert.Equal(t, 500, ones)
}

func TestSimulatorSampledOutcomesReproducible(t *testing.T) {
	prog := circuit.NewProgram(circuit.RY(1.0, 0), circuit.Measure(0, 0))
	run := func() Outcomes {
		sim := newTestSimulator(t, false)
		out, err := sim.Submit(context.Background(), prog, 2000)
		require.NoError(t, err)
		return out
	}
	first, second := run(), run()
	assert.Equal(t, first, second)

	ones := 0
	for _, row := range first {
		ones += row[0]
	}
	assert.InDelta(t, math.Pow(math.Sin(0.5), 2), float64(ones)/2000, 0.05)
}

func TestSimulatorCompilationErrors(t *testing.T) {
	sim := newTestSimulator(t, true)
	ctx := context.Background()
	cases := map[string]*circuit.Program{
		"unknown gate": circuit.NewProgram(circuit.Instruction{Op: "SWAP", Qubits: []int{0, 1}}, circuit.Measure(0, 0)),
		"wide":         circuit.NewProgram(circuit.RX(1, 12), circuit.Measure(0, 0)),
		"no measure":   circuit.NewProgram(circuit.RX(1, 0)),
		"mid circuit":  circuit.NewProgram(circuit.Measure(0, 0), circuit.RX(1, 0)),
		"self cz":      circuit.NewProgram(circuit.CZ(1, 1), circuit.Measure(1, 0)),
	}
	for name, prog := range cases {
		_, err := sim.Submit(ctx, prog, 10)
		assert.True(t, errors.Is(err, ErrCompilation), name)
	}
}

func TestWithTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, prog *circuit.Program, shots int) (Outcomes, error) {
		time.Sleep(200 * time.Millisecond)
		return Outcomes{{0}}, nil
	})
	_, err := WithTimeout(slow, 10*time.Millisecond).Submit(context.Background(), circuit.NewProgram(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	fast := Func(func(ctx context.Context, prog *circuit.Program, shots int) (Outcomes, error) {
		return Outcomes{{1}}, nil
	})
	out, err := WithTimeout(fast, time.Second).Submit(context.Background(), circuit.NewProgram(), 1)
	require.NoError(t, err)
	assert.Equal(t, Outcomes{{1}}, out)
}

func TestSimulatorDistributionIsACopy(t *testing.T) {
	sim := newTestSimulator(t, true)
	prog := circuit.NewProgram(circuit.X(0), circuit.Measure(0, 0))

	dist, err := sim.Distribution(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, dist)
	dist[0], dist[1] = 1, 0

	again, err := sim.Distribution(context.Background(), prog)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, again)

	out, err := sim.Submit(context.Background(), prog, 4)
	require.NoError(t, err)
	assert.Equal(t, Outcomes{{1}, {1}, {1}, {1}}, out)
}
