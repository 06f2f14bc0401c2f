package executor

import (
	"context"
	"math"
	"math/cmplx"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"qclassify/internal/circuit"
)

const (
	defaultMaxQubits = 9
	defaultCacheSize = 4096
)

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	// MaxQubits is the device width; programs addressing a higher qubit
	// fail to compile.
	MaxQubits int
	// Exact replaces shot sampling with deterministic outcomes whose
	// counts round p*shots by largest remainder.
	Exact bool
	// Seed seeds shot sampling.
	Seed uint64
	// CacheSize bounds the number of cached readout distributions.
	CacheSize int
	Logger    *zap.Logger
}

// Simulator is a noiseless state-vector executor. It is safe for concurrent
// use.
type Simulator struct {
	opts   SimulatorOptions
	cache  *lru.Cache[string, []float64]
	logger *zap.Logger

	mu  sync.Mutex
	src rand.Source
}

// NewSimulator constructs a Simulator.
func NewSimulator(opts SimulatorOptions) (*Simulator, error) {
	if opts.MaxQubits <= 0 {
		opts.MaxQubits = defaultMaxQubits
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cache, err := lru.New[string, []float64](opts.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "simulator: create cache")
	}
	return &Simulator{
		opts:   opts,
		cache:  cache,
		logger: opts.Logger,
		src:    rand.NewSource(opts.Seed),
	}, nil
}

// Submit implements Executor.
func (s *Simulator) Submit(ctx context.Context, prog *circuit.Program, shots int) (Outcomes, error) {
	if shots <= 0 {
		return nil, errors.Wrapf(ErrCompilation, "shots must be > 0 (got %d)", shots)
	}
	dist, err := s.distribution(ctx, prog)
	if err != nil {
		return nil, err
	}
	width := prog.Readouts()
	if s.opts.Exact {
		return exactOutcomes(dist, width, shots), nil
	}
	return s.sample(dist, width, shots), nil
}

// Distribution returns the probability of every readout bitstring; index k
// has bit r set when readout slot r reads 1. The result is a fresh copy.
func (s *Simulator) Distribution(ctx context.Context, prog *circuit.Program) ([]float64, error) {
	dist, err := s.distribution(ctx, prog)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), dist...), nil
}

// distribution returns the cached slice, which must not be modified.
func (s *Simulator) distribution(ctx context.Context, prog *circuit.Program) ([]float64, error) {
	key := prog.String()
	if dist, ok := s.cache.Get(key); ok {
		return dist, nil
	}
	dist, err := s.simulate(ctx, prog)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, dist)
	return dist, nil
}

func (s *Simulator) simulate(ctx context.Context, prog *circuit.Program) ([]float64, error) {
	instrs := prog.Instructions()
	width := prog.Readouts()
	if width == 0 {
		return nil, errors.Wrap(ErrCompilation, "program measures nothing")
	}

	nqubits := 0
	for _, in := range instrs {
		for _, q := range in.Qubits {
			if q < 0 {
				return nil, errors.Wrapf(ErrCompilation, "negative qubit %d in %s", q, in)
			}
			if q >= s.opts.MaxQubits {
				return nil, errors.Wrapf(ErrCompilation, "qubit %d exceeds device width %d", q, s.opts.MaxQubits)
			}
			if q+1 > nqubits {
				nqubits = q + 1
			}
		}
	}

	st := newState(nqubits)
	readout := make([]int, width)
	for i := range readout {
		readout[i] = -1
	}
	measured := make(map[int]bool)

	for _, in := range instrs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if in.Op != circuit.OpMeasure {
			for _, q := range in.Qubits {
				if measured[q] {
					return nil, errors.Wrapf(ErrCompilation, "%s acts on measured qubit %d", in, q)
				}
			}
		}
		if err := st.apply(in); err != nil {
			return nil, err
		}
		if in.Op == circuit.OpMeasure {
			if in.Addr < 0 {
				return nil, errors.Wrapf(ErrCompilation, "negative readout address in %s", in)
			}
			if readout[in.Addr] != -1 {
				return nil, errors.Wrapf(ErrCompilation, "readout ro[%d] written twice", in.Addr)
			}
			readout[in.Addr] = in.Qubits[0]
			measured[in.Qubits[0]] = true
		}
	}
	s.logger.Debug("simulated program",
		zap.Int("qubits", nqubits),
		zap.Int("instructions", len(instrs)),
	)
	return st.marginal(readout), nil
}

func (s *Simulator) sample(dist []float64, width, shots int) Outcomes {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat := distuv.NewCategorical(dist, s.src)
	out := make(Outcomes, shots)
	for i := range out {
		out[i] = bits(int(cat.Rand()), width)
	}
	return out
}

// exactOutcomes lays out round(p*shots) rows per bitstring, in bitstring order.
func exactOutcomes(dist []float64, width, shots int) Outcomes {
	counts := make([]int, len(dist))
	type rem struct {
		k    int
		frac float64
	}
	rems := make([]rem, len(dist))
	assigned := 0
	for k, p := range dist {
		v := p * float64(shots)
		counts[k] = int(math.Floor(v))
		assigned += counts[k]
		rems[k] = rem{k: k, frac: v - math.Floor(v)}
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < shots; i++ {
		counts[rems[i%len(rems)].k]++
		assigned++
	}
	out := make(Outcomes, 0, shots)
	for k, c := range counts {
		for j := 0; j < c && len(out) < shots; j++ {
			out = append(out, bits(k, width))
		}
	}
	return out
}

func bits(k, width int) []int {
	row := make([]int, width)
	for r := range row {
		row[r] = (k >> r) & 1
	}
	return row
}

// state holds 2^n amplitudes; qubit q is bit q of the basis index.
type state struct {
	n   int
	amp []complex128
}

func newState(n int) *state {
	amp := make([]complex128, 1<<n)
	amp[0] = 1
	return &state{n: n, amp: amp}
}

func (s *state) apply(in circuit.Instruction) error {
	arity := 1
	switch in.Op {
	case circuit.OpCZ, circuit.OpCNOT:
		arity = 2
	}
	if len(in.Qubits) != arity {
		return errors.Wrapf(ErrCompilation, "%s wants %d qubits, got %d", in.Op, arity, len(in.Qubits))
	}
	switch in.Op {
	case circuit.OpRX, circuit.OpRY, circuit.OpRZ:
		if len(in.Params) != 1 {
			return errors.Wrapf(ErrCompilation, "%s wants 1 parameter, got %d", in.Op, len(in.Params))
		}
	}

	switch in.Op {
	case circuit.OpRX:
		c, sn := math.Cos(in.Params[0]/2), math.Sin(in.Params[0]/2)
		s.single(in.Qubits[0], complex(c, 0), complex(0, -sn), complex(0, -sn), complex(c, 0))
	case circuit.OpRY:
		c, sn := math.Cos(in.Params[0]/2), math.Sin(in.Params[0]/2)
		s.single(in.Qubits[0], complex(c, 0), complex(-sn, 0), complex(sn, 0), complex(c, 0))
	case circuit.OpRZ:
		half := in.Params[0] / 2
		s.single(in.Qubits[0], cmplx.Exp(complex(0, -half)), 0, 0, cmplx.Exp(complex(0, half)))
	case circuit.OpH:
		r := complex(1/math.Sqrt2, 0)
		s.single(in.Qubits[0], r, r, r, -r)
	case circuit.OpX:
		s.single(in.Qubits[0], 0, 1, 1, 0)
	case circuit.OpZ:
		s.single(in.Qubits[0], 1, 0, 0, -1)
	case circuit.OpCZ, circuit.OpCNOT:
		a, b := in.Qubits[0], in.Qubits[1]
		if a == b {
			return errors.Wrapf(ErrCompilation, "%s on a single qubit %d", in.Op, a)
		}
		if in.Op == circuit.OpCZ {
			s.cz(a, b)
		} else {
			s.cnot(a, b)
		}
	case circuit.OpMeasure:
		// Terminal measurements are read from the final state.
	default:
		return errors.Wrapf(ErrCompilation, "unsupported gate %q", in.Op)
	}
	return nil
}

// single applies [[m00 m01] [m10 m11]] to qubit q.
func (s *state) single(q int, m00, m01, m10, m11 complex128) {
	mask := 1 << q
	for i := range s.amp {
		if i&mask != 0 {
			continue
		}
		j := i | mask
		a, b := s.amp[i], s.amp[j]
		s.amp[i] = m00*a + m01*b
		s.amp[j] = m10*a + m11*b
	}
}

func (s *state) cz(a, b int) {
	mask := 1<<a | 1<<b
	for i := range s.amp {
		if i&mask == mask {
			s.amp[i] = -s.amp[i]
		}
	}
}

func (s *state) cnot(control, target int) {
	cmask, tmask := 1<<control, 1<<target
	for i := range s.amp {
		if i&cmask != 0 && i&tmask == 0 {
			j := i | tmask
			s.amp[i], s.amp[j] = s.amp[j], s.amp[i]
		}
	}
}

// marginal sums |amp|^2 over the readout bitstrings. Unwritten readout slots
// read 0.
func (s *state) marginal(readout []int) []float64 {
	dist := make([]float64, 1<<len(readout))
	for i, a := range s.amp {
		p := real(a)*real(a) + imag(a)*imag(a)
		if p == 0 {
			continue
		}
		k := 0
		for r, q := range readout {
			if q >= 0 && (i>>q)&1 == 1 {
				k |= 1 << r
			}
		}
		dist[k] += p
	}
	return dist
}
