package circuit

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrConfiguration marks arity and shape mismatches between parameters,
// qubit selections and generator expectations.
var ErrConfiguration = errors.New("circuit: configuration error")

// Gate names understood by the simulator.
const (
	OpRX      = "RX"
	OpRY      = "RY"
	OpRZ      = "RZ"
	OpH       = "H"
	OpX       = "X"
	OpZ       = "Z"
	OpCZ      = "CZ"
	OpCNOT    = "CNOT"
	OpMeasure = "MEASURE"
)

// Instruction is a single gate or measurement. Addr is the readout slot for
// MEASURE and unused otherwise.
type Instruction struct {
	Op     string
	Params []float64
	Qubits []int
	Addr   int
}

// RX rotates qubit q about the X axis by theta.
func RX(theta float64, q int) Instruction {
	return Instruction{Op: OpRX, Params: []float64{theta}, Qubits: []int{q}}
}

// RY rotates qubit q about the Y axis by theta.
func RY(theta float64, q int) Instruction {
	return Instruction{Op: OpRY, Params: []float64{theta}, Qubits: []int{q}}
}

// RZ rotates qubit q about the Z axis by theta.
func RZ(theta float64, q int) Instruction {
	return Instruction{Op: OpRZ, Params: []float64{theta}, Qubits: []int{q}}
}

// H is the Hadamard gate.
func H(q int) Instruction { return Instruction{Op: OpH, Qubits: []int{q}} }

// X is the Pauli X gate.
func X(q int) Instruction { return Instruction{Op: OpX, Qubits: []int{q}} }

// Z is the Pauli Z gate.
func Z(q int) Instruction { return Instruction{Op: OpZ, Qubits: []int{q}} }

// CZ is the controlled-Z gate.
func CZ(control, target int) Instruction {
	return Instruction{Op: OpCZ, Qubits: []int{control, target}}
}

// CNOT is the controlled-X gate.
func CNOT(control, target int) Instruction {
	return Instruction{Op: OpCNOT, Qubits: []int{control, target}}
}

// Measure reads qubit q into readout slot addr.
func Measure(q, addr int) Instruction {
	return Instruction{Op: OpMeasure, Qubits: []int{q}, Addr: addr}
}

// Program is an immutable sequence of instructions. Programs compose with
// Then and are otherwise opaque to the classifier.
type Program struct {
	instrs []Instruction
}

// NewProgram builds a program from instrs.
func NewProgram(instrs ...Instruction) *Program {
	p := &Program{instrs: make([]Instruction, 0, len(instrs))}
	for _, in := range instrs {
		p.instrs = append(p.instrs, in.clone())
	}
	return p
}

// Then returns a new program running p followed by next. Either side may be
// nil.
func (p *Program) Then(next *Program) *Program {
	out := &Program{}
	for _, part := range []*Program{p, next} {
		if part == nil {
			continue
		}
		for _, in := range part.instrs {
			out.instrs = append(out.instrs, in.clone())
		}
	}
	return out
}

// Len reports the number of instructions.
func (p *Program) Len() int {
	if p == nil {
		return 0
	}
	return len(p.instrs)
}

// Instructions returns a copy of the instruction list.
func (p *Program) Instructions() []Instruction {
	if p == nil {
		return nil
	}
	out := make([]Instruction, len(p.instrs))
	for i, in := range p.instrs {
		out[i] = in.clone()
	}
	return out
}

// Readouts is the size of the readout register: one past the highest
// measured address, or zero when nothing is measured.
func (p *Program) Readouts() int {
	n := 0
	if p == nil {
		return n
	}
	for _, in := range p.instrs {
		if in.Op == OpMeasure && in.Addr+1 > n {
			n = in.Addr + 1
		}
	}
	return n
}

// String renders the program as Quil-like text.
func (p *Program) String() string {
	var b strings.Builder
	if n := p.Readouts(); n > 0 {
		b.WriteString("DECLARE ro BIT[")
		b.WriteString(strconv.Itoa(n))
		b.WriteString("]\n")
	}
	if p == nil {
		return b.String()
	}
	for _, in := range p.instrs {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (in Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Op)
	if len(in.Params) > 0 {
		b.WriteByte('(')
		for i, v := range in.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteByte(')')
	}
	for _, q := range in.Qubits {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(q))
	}
	if in.Op == OpMeasure {
		b.WriteString(" ro[")
		b.WriteString(strconv.Itoa(in.Addr))
		b.WriteByte(']')
	}
	return b.String()
}

func (in Instruction) clone() Instruction {
	out := in
	out.Params = append([]float64(nil), in.Params...)
	out.Qubits = append([]int(nil), in.Qubits...)
	return out
}
