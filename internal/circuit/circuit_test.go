package circuit

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramThenDoesNotAlias(t *testing.T) {
	a := NewProgram(RX(0.5, 0))
	b := NewProgram(CZ(0, 1), Measure(0, 0))

	c := a.Then(b)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())

	instrs := c.Instructions()
	instrs[0].Params[0] = 9
	assert.Equal(t, 0.5, c.Instructions()[0].Params[0])
}

func TestProgramString(t *testing.T) {
	p := NewProgram(RX(0.25, 0), CZ(0, 1), Measure(0, 0))
	assert.Equal(t, "DECLARE ro BIT[1]\nRX(0.25) 0\nCZ 0 1\nMEASURE 0 ro[0]\n", p.String())
	assert.Equal(t, 1, p.Readouts())
	assert.Equal(t, 0, NewProgram(H(0)).Readouts())
}

func TestXProductEncode(t *testing.T) {
	p, err := XProduct{}.Encode([]float64{0.1, 0.2}, []int{3, 5})
	require.NoError(t, err)
	assert.Equal(t, []Instruction{RX(0.1, 3), RX(0.2, 5)}, p.Instructions())
}

func TestXProductArityMismatch(t *testing.T) {
	_, err := XProduct{}.Encode([]float64{0.1}, []int{0, 1})
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = XProduct{}.Encode([]float64{0.1}, nil)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestNormalize(t *testing.T) {
	in := []float64{1, 3}
	out, err := Normalize{}.Preprocess(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, out)
	assert.Equal(t, []float64{1, 3}, in)

	_, err = Normalize{}.Preprocess([]float64{1, -1})
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestLayerXZTwoQubits(t *testing.T) {
	proc := LayerXZ{NLayers: 2, Dist: 1}
	qubits := []int{0, 1}
	require.Equal(t, 4, proc.Arity(qubits))

	p, err := proc.Process([]float64{1, 2, 3, 4}, qubits)
	require.NoError(t, err)
	want := []Instruction{
		CZ(0, 1), RX(1, 0), RX(2, 1),
		CZ(0, 1), RX(3, 0), RX(4, 1),
	}
	assert.Equal(t, want, p.Instructions())
}

func TestLayerXZArityMismatch(t *testing.T) {
	_, err := LayerXZ{NLayers: 1, Dist: 1}.Process([]float64{1, 2, 3}, []int{0, 1})
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestControlledZLayer(t *testing.T) {
	p, err := ControlledZLayer([]int{0, 1, 2, 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Instruction{CZ(0, 2), CZ(1, 3), CZ(2, 0), CZ(3, 1)}, p.Instructions())

	p, err = ControlledZLayer([]int{4}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())

	_, err = ControlledZLayer([]int{0, 1, 2}, 3)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestParseStrategies(t *testing.T) {
	enc, err := ParseEncoder(EncoderOptions{})
	require.NoError(t, err)
	assert.Equal(t, XProduct{Preprocess: Identity{}}, enc)

	_, err = ParseEncoder(EncoderOptions{Encoding: "amplitude"})
	assert.True(t, errors.Is(err, ErrConfiguration))

	proc, err := ParseProcessor(ProcessorOptions{Circuit: ProcessorLayerXZ, NLayers: 3})
	require.NoError(t, err)
	assert.Equal(t, LayerXZ{NLayers: 3, Dist: 1}, proc)

	_, err = ParseProcessor(ProcessorOptions{Circuit: "layer_yy"})
	assert.True(t, errors.Is(err, ErrConfiguration))
}
