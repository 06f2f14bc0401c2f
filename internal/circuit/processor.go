package circuit

import "github.com/pkg/errors"

// Processor is the parametrized part of the classifier circuit.
type Processor interface {
	// Arity is the parameter count expected for the given selection.
	Arity(qubits []int) int
	Process(params []float64, qubits []int) (*Program, error)
}

// LayerXZ alternates a constant-distance CZ layer with a layer of single
// qubit X rotations, NLayers times (Schuld et al., arXiv:1804.00633).
// Layer l uses params[l*n : (l+1)*n] for n selected qubits.
type LayerXZ struct {
	NLayers int `yaml:"nlayers" json:"nlayers"`
	Dist    int `yaml:"dist" json:"dist"`
}

// Arity implements Processor.
func (p LayerXZ) Arity(qubits []int) int {
	return p.NLayers * len(qubits)
}

// Process implements Processor.
func (p LayerXZ) Process(params []float64, qubits []int) (*Program, error) {
	n := len(qubits)
	if n == 0 {
		return nil, errors.Wrap(ErrConfiguration, "layer_xz: empty qubit selection")
	}
	if p.NLayers <= 0 {
		return nil, errors.Wrapf(ErrConfiguration, "layer_xz: nlayers must be > 0 (got %d)", p.NLayers)
	}
	if want := p.Arity(qubits); len(params) != want {
		return nil, errors.Wrapf(ErrConfiguration, "layer_xz: got %d params, want %d", len(params), want)
	}
	entangle, err := ControlledZLayer(qubits, p.Dist)
	if err != nil {
		return nil, err
	}
	out := &Program{}
	for l := 0; l < p.NLayers; l++ {
		out = out.Then(entangle).Then(SingleXLayer(params[l*n:(l+1)*n], qubits))
	}
	return out, nil
}

// SingleXLayer applies RX(params[i]) to qubits[i].
func SingleXLayer(params []float64, qubits []int) *Program {
	instrs := make([]Instruction, len(qubits))
	for i, q := range qubits {
		instrs[i] = RX(params[i], q)
	}
	return NewProgram(instrs...)
}

// ControlledZLayer pairs qubits[i] with qubits[(i+dist)%n]. Two qubits get a
// single CZ and a single qubit gets none.
func ControlledZLayer(qubits []int, dist int) (*Program, error) {
	n := len(qubits)
	switch n {
	case 0, 1:
		return NewProgram(), nil
	case 2:
		return NewProgram(CZ(qubits[0], qubits[1])), nil
	}
	shift := ((dist % n) + n) % n
	if shift == 0 {
		return nil, errors.Wrapf(ErrConfiguration, "controlled-z: distance %d pairs qubits with themselves", dist)
	}
	instrs := make([]Instruction, n)
	for i := range qubits {
		instrs[i] = CZ(qubits[i], qubits[(i+shift)%n])
	}
	return NewProgram(instrs...), nil
}

// ProcessorLayerXZ is the only processor circuit name.
const ProcessorLayerXZ = "layer_xz"

// ProcessorOptions selects a processor by name.
type ProcessorOptions struct {
	Circuit string `yaml:"proc_circ" json:"proc_circ"`
	NLayers int    `yaml:"nlayers" json:"nlayers"`
	Dist    int    `yaml:"dist" json:"dist"`
}

// DefaultProcessorOptions is a single layer_xz layer at distance 1.
func DefaultProcessorOptions() ProcessorOptions {
	return ProcessorOptions{Circuit: ProcessorLayerXZ, NLayers: 1, Dist: 1}
}

// ParseProcessor resolves opts. Zero NLayers and Dist take the defaults.
func ParseProcessor(opts ProcessorOptions) (Processor, error) {
	def := DefaultProcessorOptions()
	if opts.NLayers == 0 {
		opts.NLayers = def.NLayers
	}
	if opts.Dist == 0 {
		opts.Dist = def.Dist
	}
	if opts.NLayers < 0 {
		return nil, errors.Wrapf(ErrConfiguration, "nlayers must be > 0 (got %d)", opts.NLayers)
	}
	switch opts.Circuit {
	case "", ProcessorLayerXZ:
		return LayerXZ{NLayers: opts.NLayers, Dist: opts.Dist}, nil
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown processor circuit %q", opts.Circuit)
	}
}
