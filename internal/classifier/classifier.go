package classifier

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"qclassify/internal/circuit"
	"qclassify/internal/dataset"
	"qclassify/internal/executor"
	"qclassify/internal/loss"
	"qclassify/internal/optimizer"
	"qclassify/internal/postprocess"
)

// ErrTrainingInProgress is returned when Train is called on a classifier that
// is already training.
var ErrTrainingInProgress = errors.New("classifier: training already in progress")

const defaultShots = 10000

// Options configures a Classifier. Zero fields take the DefaultOptions value.
type Options struct {
	Qubits    []int
	Encoder   circuit.Encoder
	Processor circuit.Processor
	Quantum   postprocess.Quantum
	Classical postprocess.Classical
	// Shots is the number of repetitions per evaluation (nruns).
	Shots int
	// Concurrency bounds in-flight executor calls within one batch.
	Concurrency int
	// Params is the initial parameter vector; nil means zeros.
	Params []float64
	Logger *zap.Logger
}

// DefaultOptions returns a fresh two-qubit configuration: x_product encoding,
// one layer_xz layer, measure_top and prob_one.
func DefaultOptions() Options {
	return Options{
		Qubits:      []int{0, 1},
		Encoder:     circuit.XProduct{Preprocess: circuit.Identity{}},
		Processor:   circuit.LayerXZ{NLayers: 1, Dist: 1},
		Quantum:     postprocess.MeasureTop{},
		Classical:   postprocess.ProbOne{},
		Shots:       defaultShots,
		Concurrency: 1,
	}
}

// Classifier is a variational quantum binary classifier.
type Classifier struct {
	exec      executor.Executor
	qubits    []int
	encoder   circuit.Encoder
	processor circuit.Processor
	quantum   postprocess.Quantum
	classical postprocess.Classical
	shots     int
	workers   int
	logger    *zap.Logger

	training sync.Mutex

	mu      sync.RWMutex
	params  []float64
	history []float64
}

// New constructs a Classifier running circuits on exec.
func New(exec executor.Executor, opts Options) (*Classifier, error) {
	if exec == nil {
		return nil, errors.New("classifier: nil executor")
	}
	def := DefaultOptions()
	if opts.Qubits == nil {
		opts.Qubits = def.Qubits
	}
	if opts.Encoder == nil {
		opts.Encoder = def.Encoder
	}
	if opts.Processor == nil {
		opts.Processor = def.Processor
	}
	if opts.Quantum == nil {
		opts.Quantum = def.Quantum
	}
	if opts.Classical == nil {
		opts.Classical = def.Classical
	}
	if opts.Shots <= 0 {
		opts.Shots = def.Shots
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Qubits) == 0 {
		return nil, errors.Wrap(circuit.ErrConfiguration, "classifier: empty qubit selection")
	}

	c := &Classifier{
		exec:      exec,
		qubits:    append([]int(nil), opts.Qubits...),
		encoder:   opts.Encoder,
		processor: opts.Processor,
		quantum:   opts.Quantum,
		classical: opts.Classical,
		shots:     opts.Shots,
		workers:   opts.Concurrency,
		logger:    opts.Logger,
	}
	params := opts.Params
	if params == nil {
		params = make([]float64, c.Arity())
	}
	if err := c.checkArity(params); err != nil {
		return nil, err
	}
	c.params = append([]float64(nil), params...)
	return c, nil
}

// Arity is the parameter count expected by the processor.
func (c *Classifier) Arity() int {
	return c.processor.Arity(c.qubits)
}

// Qubits returns a copy of the qubit selection.
func (c *Classifier) Qubits() []int {
	return append([]int(nil), c.qubits...)
}

// Params returns a copy of the current parameters.
func (c *Classifier) Params() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]float64(nil), c.params...)
}

// SetParams replaces the current parameters.
func (c *Classifier) SetParams(params []float64) error {
	if err := c.checkArity(params); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = append([]float64(nil), params...)
	return nil
}

// LossHistory returns a copy of the per-iteration losses of the latest
// training run.
func (c *Classifier) LossHistory() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]float64(nil), c.history...)
}

func (c *Classifier) checkArity(params []float64) error {
	if want := c.Arity(); len(params) != want {
		return errors.Wrapf(circuit.ErrConfiguration, "classifier: got %d params, processor wants %d", len(params), want)
	}
	return nil
}

// BuildCircuit composes the encoding of input, the processing circuit for
// params and the measurement.
func (c *Classifier) BuildCircuit(input, params []float64) (*circuit.Program, error) {
	if len(c.qubits) == 0 {
		return nil, errors.Wrap(circuit.ErrConfiguration, "classifier: empty qubit selection")
	}
	if err := c.checkArity(params); err != nil {
		return nil, err
	}
	enc, err := c.encoder.Encode(input, c.qubits)
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	proc, err := c.processor.Process(params, c.qubits)
	if err != nil {
		return nil, errors.Wrap(err, "process")
	}
	meas, err := c.quantum.Measure(c.qubits)
	if err != nil {
		return nil, errors.Wrap(err, "measure")
	}
	return enc.Then(proc).Then(meas), nil
}

// Evaluate returns the predicted probability of label 1 for input under
// params, estimated from shots executions.
func (c *Classifier) Evaluate(ctx context.Context, input, params []float64, shots int) (float64, error) {
	if shots <= 0 {
		return 0, errors.Wrapf(circuit.ErrConfiguration, "classifier: shots must be > 0 (got %d)", shots)
	}
	prog, err := c.BuildCircuit(input, params)
	if err != nil {
		return 0, err
	}
	out, err := c.exec.Submit(ctx, prog, shots)
	if err != nil {
		return 0, errors.Wrap(err, "classifier: execute")
	}
	p, err := c.classical.Reduce(out)
	if err != nil {
		return 0, errors.Wrap(err, "classifier: postprocess")
	}
	return p, nil
}

// EvaluateAll evaluates every example under params. The returned batch is in
// input order regardless of concurrency.
func (c *Classifier) EvaluateAll(ctx context.Context, data []dataset.Example, params []float64) ([]loss.EvaluatedExample, error) {
	if err := c.checkArity(params); err != nil {
		return nil, err
	}
	params = append([]float64(nil), params...)
	batch := make([]loss.EvaluatedExample, len(data))

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(c.workers).
		WithCancelOnError().
		WithFirstError()
	for i := range data {
		i := i
		p.Go(func(ctx context.Context) error {
			ex := data[i]
			prob, err := c.Evaluate(ctx, ex.Features, params, c.shots)
			if err != nil {
				return errors.Wrapf(err, "example %d", i)
			}
			batch[i] = loss.EvaluatedExample{Features: ex.Features, Label: ex.Label, Probability: prob}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return batch, nil
}

// Test reduces the classifier's predictions on data with lossFn at the
// current parameters.
func (c *Classifier) Test(ctx context.Context, data []dataset.Example, lossFn loss.Func) (float64, error) {
	return c.testAt(ctx, data, lossFn, c.Params())
}

func (c *Classifier) testAt(ctx context.Context, data []dataset.Example, lossFn loss.Func, params []float64) (float64, error) {
	if lossFn == nil {
		lossFn = loss.CrossEntropy
	}
	batch, err := c.EvaluateAll(ctx, data, params)
	if err != nil {
		return 0, err
	}
	return lossFn(batch)
}

// Train fits the processor parameters to data by minimizing lossFn, replaces
// the current parameters with the result and returns a copy of them. The
// loss history is reset and gets one entry per optimizer iteration.
func (c *Classifier) Train(ctx context.Context, data []dataset.Example, lossFn loss.Func, cfg optimizer.Config) ([]float64, error) {
	if !c.training.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer c.training.Unlock()

	if len(data) == 0 {
		return nil, loss.ErrEmptyBatch
	}
	if _, err := optimizer.ParseMethod(string(cfg.Method)); err != nil {
		return nil, err
	}
	if err := c.checkArity(cfg.InitParams); err != nil {
		return nil, errors.Wrap(err, "initial parameters")
	}
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}

	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()

	hook := cfg.OnIteration
	cfg.OnIteration = func(it optimizer.Iteration) {
		c.mu.Lock()
		c.history = append(c.history, it.Loss)
		c.mu.Unlock()
		if hook != nil {
			hook(it)
		}
	}

	target := func(ctx context.Context, params []float64) (float64, error) {
		return c.testAt(ctx, data, lossFn, params)
	}
	res, err := optimizer.Minimize(ctx, target, cfg)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.params = append([]float64(nil), res.Params...)
	c.mu.Unlock()

	c.logger.Info("training finished",
		zap.String("status", res.Status),
		zap.Int("iterations", res.Iterations),
		zap.Int("evaluations", res.Evaluations),
		zap.Float64("loss", res.Loss),
	)
	return append([]float64(nil), res.Params...), nil
}
