package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qclassify/internal/circuit"
	"qclassify/internal/executor"
)

func TestMeasureTop(t *testing.T) {
	p, err := MeasureTop{}.Measure([]int{4, 2})
	require.NoError(t, err)
	assert.Equal(t, []circuit.Instruction{circuit.Measure(4, 0)}, p.Instructions())

	_, err = MeasureTop{}.Measure(nil)
	assert.True(t, errors.Is(err, circuit.ErrConfiguration))
}

func TestProbOne(t *testing.T) {
	p, err := ProbOne{}.Reduce(executor.Outcomes{{1}, {0}, {1}, {1}})
	require.NoError(t, err)
	assert.Equal(t, 0.75, p)

	p, err = ProbOne{}.Reduce(executor.Outcomes{{0, 1}, {1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 0.75, p)

	_, err = ProbOne{}.Reduce(nil)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	q, err := ParseQuantum("")
	require.NoError(t, err)
	assert.Equal(t, MeasureTop{}, q)

	_, err = ParseClassical("parity")
	assert.True(t, errors.Is(err, circuit.ErrConfiguration))
}
