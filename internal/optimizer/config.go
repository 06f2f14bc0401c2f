package optimizer

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// ErrUnsupportedMethod is returned for an optimization method the driver does
// not know.
var ErrUnsupportedMethod = errors.New("optimizer: unsupported method")

// Method names an optimization method.
type Method string

const (
	// NelderMead is the derivative-free simplex method.
	NelderMead Method = "nelder-mead"
	// BFGS is the quasi-Newton method, driven here by finite differences.
	// The classifier objective is sampled and piecewise constant, so
	// convergence is poor.
	BFGS Method = "bfgs"
)

// ParseMethod resolves a method name case-insensitively.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case NelderMead, BFGS:
		return m, nil
	}
	return "", errors.Wrapf(ErrUnsupportedMethod, "%q", name)
}

// LogMode selects where the per-iteration loss comes from.
type LogMode string

const (
	// LogReevaluate evaluates the target again at every iteration point.
	LogReevaluate LogMode = "reevaluate"
	// LogReuse reports the optimizer's own value at the iteration point
	// without another evaluation.
	LogReuse LogMode = "reuse"
)

// Target is the function being minimized.
type Target func(ctx context.Context, params []float64) (float64, error)

// Iteration is reported once per optimizer iteration.
type Iteration struct {
	Number      int
	Loss        float64
	Params      []float64
	Evaluations int
}

// Config configures a Minimize call.
type Config struct {
	Method     Method
	InitParams []float64
	MaxIter    int
	XATol      float64
	FATol      float64
	Verbose    bool
	// Out receives the verbose progress stream. Defaults to os.Stdout.
	Out io.Writer
	// Seed seeds the initial simplex when Source is nil.
	Seed uint64
	// Source overrides Seed.
	Source  rand.Source
	LogMode LogMode
	// GradStep is the central finite-difference step used by BFGS.
	GradStep    float64
	OnIteration func(Iteration)
	Logger      *zap.Logger
}

// DefaultInitParams is the starting point used by DefaultConfig.
var DefaultInitParams = []float64{3.0672044712460114, 3.3311348339721203}

// DefaultConfig returns a fresh default configuration.
func DefaultConfig() Config {
	return Config{
		Method:     NelderMead,
		InitParams: append([]float64(nil), DefaultInitParams...),
		MaxIter:    20,
		XATol:      1e-3,
		FATol:      1e-3,
		Verbose:    true,
		Seed:       42,
		LogMode:    LogReevaluate,
		GradStep:   1e-2,
	}
}

func (c Config) withDefaults() Config {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Source == nil {
		c.Source = rand.NewSource(c.Seed)
	}
	if c.LogMode == "" {
		c.LogMode = LogReevaluate
	}
	if c.GradStep <= 0 {
		c.GradStep = 1e-2
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func (c Config) validate() error {
	if len(c.InitParams) == 0 {
		return errors.New("optimizer: no initial parameters")
	}
	if c.MaxIter < 0 {
		return errors.Errorf("optimizer: maxiter must be >= 0 (got %d)", c.MaxIter)
	}
	if c.XATol < 0 || c.FATol < 0 {
		return errors.New("optimizer: tolerances must be >= 0")
	}
	switch c.LogMode {
	case LogReevaluate, LogReuse:
	default:
		return errors.Errorf("optimizer: unknown log mode %q", c.LogMode)
	}
	return nil
}
