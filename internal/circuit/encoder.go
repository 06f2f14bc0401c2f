package circuit

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Encoder maps a classical feature vector onto the selected qubits.
type Encoder interface {
	Encode(input []float64, qubits []int) (*Program, error)
}

// Preprocessor rewrites a feature vector before encoding. Implementations
// must not modify their input.
type Preprocessor interface {
	Preprocess(input []float64) ([]float64, error)
}

// Identity passes features through unchanged.
type Identity struct{}

// Preprocess returns a copy of input.
func (Identity) Preprocess(input []float64) ([]float64, error) {
	return append([]float64(nil), input...), nil
}

// Normalize divides every feature by the sum of the features.
type Normalize struct{}

// Preprocess fails when the features sum to zero.
func (Normalize) Preprocess(input []float64) ([]float64, error) {
	sum := floats.Sum(input)
	if sum == 0 {
		return nil, errors.Wrap(ErrConfiguration, "normalize: features sum to zero")
	}
	out := append([]float64(nil), input...)
	floats.Scale(1/sum, out)
	return out, nil
}

// XProduct encodes (t1, ..., tn) as the product state RX(t1)|0> ... RX(tn)|0>,
// one feature per selected qubit.
type XProduct struct {
	Preprocess Preprocessor
}

// Encode implements Encoder.
func (e XProduct) Encode(input []float64, qubits []int) (*Program, error) {
	if len(qubits) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "x_product: empty qubit selection")
	}
	pre := e.Preprocess
	if pre == nil {
		pre = Identity{}
	}
	vec, err := pre.Preprocess(input)
	if err != nil {
		return nil, err
	}
	if len(vec) != len(qubits) {
		return nil, errors.Wrapf(ErrConfiguration, "x_product: %d features for %d qubits", len(vec), len(qubits))
	}
	instrs := make([]Instruction, len(qubits))
	for i, q := range qubits {
		instrs[i] = RX(vec[i], q)
	}
	return NewProgram(instrs...), nil
}

// Encoder and preprocessing names accepted by ParseEncoder.
const (
	EncodingXProduct       = "x_product"
	PreprocessingIdentity  = "identity"
	PreprocessingNormalize = "normalize"
)

// EncoderOptions selects an encoder by name.
type EncoderOptions struct {
	Preprocessing string `yaml:"preprocessing" json:"preprocessing"`
	Encoding      string `yaml:"encoding_circ" json:"encoding_circ"`
}

// DefaultEncoderOptions is identity preprocessing with the x_product circuit.
func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{Preprocessing: PreprocessingIdentity, Encoding: EncodingXProduct}
}

// ParseEncoder resolves opts, treating empty names as the defaults.
func ParseEncoder(opts EncoderOptions) (Encoder, error) {
	var pre Preprocessor
	switch opts.Preprocessing {
	case "", PreprocessingIdentity:
		pre = Identity{}
	case PreprocessingNormalize:
		pre = Normalize{}
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown preprocessing %q", opts.Preprocessing)
	}
	switch opts.Encoding {
	case "", EncodingXProduct:
		return XProduct{Preprocess: pre}, nil
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown encoding circuit %q", opts.Encoding)
	}
}
