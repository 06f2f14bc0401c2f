package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// Result is the outcome of a Minimize call.
type Result struct {
	Params      []float64
	Loss        float64
	History     []float64
	Iterations  int
	Evaluations int
	Status      string
}

// InitialSimplex returns len(init)+1 vertices. Vertex 0 is init; every other
// vertex adds an independent Uniform(-pi, pi) draw to each coordinate.
func InitialSimplex(init []float64, src rand.Source) [][]float64 {
	u := distuv.Uniform{Min: -math.Pi, Max: math.Pi, Src: src}
	simplex := make([][]float64, 0, len(init)+1)
	simplex = append(simplex, append([]float64(nil), init...))
	for k := 0; k < len(init); k++ {
		v := make([]float64, len(init))
		for i, x := range init {
			v[i] = x + u.Rand()
		}
		simplex = append(simplex, v)
	}
	return simplex
}

// Minimize searches for parameters minimizing target, starting from
// cfg.InitParams. A zero MaxIter removes the iteration budget.
func Minimize(ctx context.Context, target Target, cfg Config) (*Result, error) {
	method, err := ParseMethod(string(cfg.Method))
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &run{
		ctx:       ctx,
		target:    target,
		cfg:       cfg,
		logger:    cfg.Logger.With(zap.String("method", string(method))),
		converger: newToleranceConverger(len(cfg.InitParams), cfg.XATol, cfg.FATol),
	}
	problem := optimize.Problem{Func: r.evaluate}

	if cfg.Verbose {
		fmt.Fprintln(cfg.Out, "Iter   Obj")
	}

	var m optimize.Method
	switch method {
	case NelderMead:
		simplex := InitialSimplex(cfg.InitParams, cfg.Source)
		values := make([]float64, len(simplex))
		for i, v := range simplex {
			f, err := r.call(v)
			if err != nil {
				return nil, err
			}
			r.converger.observe(v, f)
			values[i] = f
		}
		m = &optimize.NelderMead{InitialVertices: simplex, InitialValues: values}
	case BFGS:
		step := cfg.GradStep
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, r.evaluate, x, &fd.Settings{Formula: fd.Central, Step: step})
		}
		m = &optimize.BFGS{}
	}

	// gonum skips the Recorder on the iteration that terminates a run, so
	// the budget and the tolerances are enforced in Record instead.
	settings := &optimize.Settings{
		Converger: optimize.NeverTerminate{},
		Recorder:  r,
	}
	res, err := optimize.Minimize(problem, cfg.InitParams, settings, m)
	if r.err != nil {
		return nil, r.err
	}
	if err != nil && r.stop == optimize.NotTerminated {
		return nil, errors.Wrap(err, "optimizer: minimize")
	}
	if res == nil {
		return nil, errors.New("optimizer: minimize returned no result")
	}
	status := r.stop
	if status == optimize.NotTerminated {
		status = res.Status
	}

	r.logger.Debug("optimization finished",
		zap.String("status", status.String()),
		zap.Int("iterations", r.iter),
		zap.Int("evaluations", r.evals),
		zap.Float64("loss", res.F),
	)
	return &Result{
		Params:      append([]float64(nil), res.X...),
		Loss:        res.F,
		History:     r.history,
		Iterations:  r.iter,
		Evaluations: r.evals,
		Status:      status.String(),
	}, nil
}

// errStop ends a run from Record once r.stop is set.
var errStop = errors.New("optimizer: stop")

// run carries one Minimize call. gonum evaluates serially, so no locking.
type run struct {
	ctx       context.Context
	target    Target
	cfg       Config
	logger    *zap.Logger
	converger *toleranceConverger

	err     error
	stop    optimize.Status
	iter    int
	evals   int
	history []float64
}

func (r *run) call(x []float64) (float64, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	r.evals++
	return r.target(r.ctx, x)
}

// evaluate is the gonum objective. The first failure is kept and every later
// call returns +Inf until Record stops the run.
func (r *run) evaluate(x []float64) float64 {
	if r.err != nil {
		return math.Inf(1)
	}
	f, err := r.call(x)
	if err != nil {
		r.err = err
		return math.Inf(1)
	}
	r.converger.observe(x, f)
	return f
}

// Init implements optimize.Recorder.
func (r *run) Init() error { return nil }

// Record implements optimize.Recorder and doubles as the iteration callback.
func (r *run) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if r.err != nil {
		return r.err
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return err
	}
	if op != optimize.MajorIteration {
		return nil
	}

	loss := loc.F
	if r.cfg.LogMode == LogReevaluate {
		f, err := r.call(loc.X)
		if err != nil {
			r.err = err
			return err
		}
		loss = f
	}
	r.iter++
	r.history = append(r.history, loss)

	if r.cfg.Verbose {
		fmt.Fprintf(r.cfg.Out, "%4d   %.3f\n", r.iter, loss)
	}
	r.logger.Debug("optimizer iteration",
		zap.Int("iter", r.iter),
		zap.Float64("loss", loss),
		zap.Int("evaluations", r.evals),
	)
	if r.cfg.OnIteration != nil {
		r.cfg.OnIteration(Iteration{
			Number:      r.iter,
			Loss:        loss,
			Params:      append([]float64(nil), loc.X...),
			Evaluations: r.evals,
		})
	}

	if r.cfg.MaxIter > 0 && r.iter >= r.cfg.MaxIter {
		r.stop = optimize.IterationLimit
		return errStop
	}
	if status := r.converger.Converged(loc); status != optimize.NotTerminated {
		r.stop = status
		return errStop
	}
	return nil
}

type sample struct {
	x []float64
	f float64
}

// toleranceConverger stops once the last 2(dim+1) objective evaluations all
// lie within xatol (max norm) and fatol of the best location. The trial
// points of a simplex method stay close to the simplex, so this tracks the
// simplex spread that gonum keeps private.
type toleranceConverger struct {
	xatol, fatol float64
	window       int
	recent       []sample
}

func newToleranceConverger(dim int, xatol, fatol float64) *toleranceConverger {
	return &toleranceConverger{xatol: xatol, fatol: fatol, window: 2 * (dim + 1)}
}

func (c *toleranceConverger) observe(x []float64, f float64) {
	c.recent = append(c.recent, sample{x: append([]float64(nil), x...), f: f})
	c.trim()
}

func (c *toleranceConverger) trim() {
	if c.window > 0 && len(c.recent) > c.window {
		c.recent = append(c.recent[:0], c.recent[len(c.recent)-c.window:]...)
	}
}

// Converged reports FunctionConvergence once the window is full and tight.
func (c *toleranceConverger) Converged(loc *optimize.Location) optimize.Status {
	if len(c.recent) < c.window {
		return optimize.NotTerminated
	}
	for _, s := range c.recent {
		if math.Abs(s.f-loc.F) > c.fatol {
			return optimize.NotTerminated
		}
		if floats.Distance(s.x, loc.X, math.Inf(1)) > c.xatol {
			return optimize.NotTerminated
		}
	}
	return optimize.FunctionConvergence
}
