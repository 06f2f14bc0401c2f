package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"qclassify/internal/circuit"
	"qclassify/internal/loss"
	"qclassify/internal/optimizer"
	"qclassify/internal/postprocess"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Qubits    []int                  `yaml:"qubits"`
	Encoder   circuit.EncoderOptions `yaml:"encoder"`
	Processor Processor              `yaml:"processor"`
	Execution Execution              `yaml:"execution"`
	Training  Training               `yaml:"training"`
	Output    Output                 `yaml:"output"`
}

// Processor selects the processing circuit and the post-processing steps.
type Processor struct {
	circuit.ProcessorOptions `yaml:",inline"`
	Postprocessing           postprocess.Options `yaml:"postprocessing"`
}

// Execution configures the simulator and per-call limits.
type Execution struct {
	NRuns       int           `yaml:"nruns"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxQubits   int           `yaml:"max_qubits"`
	Exact       bool          `yaml:"exact"`
	Seed        uint64        `yaml:"seed"`
}

// Training configures the data and the optimizer.
type Training struct {
	TrainingData  string    `yaml:"training_data"`
	TestFraction  float64   `yaml:"test_fraction"`
	SplitSeed     uint64    `yaml:"split_seed"`
	ObjectiveFunc string    `yaml:"objective_func"`
	Method        string    `yaml:"training_method"`
	InitParams    []float64 `yaml:"init_params"`
	MaxIter       int       `yaml:"maxiter"`
	XATol         float64   `yaml:"xatol"`
	FATol         float64   `yaml:"fatol"`
	Verbose       bool      `yaml:"verbose"`
	Seed          uint64    `yaml:"seed"`
	LogMode       string    `yaml:"log_mode"`
	LogEvery      int       `yaml:"log_every"`
}

// Output names the files written after training.
type Output struct {
	Model string `yaml:"model"`
	Grid  string `yaml:"grid"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	TrainingData string
	MaxIter      int
	Method       string
	NRuns        int
	Seed         uint64
	Model        string
	Grid         string
}

// Default returns the built-in configuration: the two-qubit XOR classifier.
func Default() *Config {
	opt := optimizer.DefaultConfig()
	return &Config{
		Qubits:  []int{0, 1},
		Encoder: circuit.DefaultEncoderOptions(),
		Processor: Processor{
			ProcessorOptions: circuit.DefaultProcessorOptions(),
			Postprocessing:   postprocess.DefaultOptions(),
		},
		Execution: Execution{
			NRuns:       10000,
			Concurrency: 4,
			Timeout:     30 * time.Second,
			MaxQubits:   9,
			Seed:        7,
		},
		Training: Training{
			SplitSeed:     1,
			ObjectiveFunc: loss.NameCrossEntropy,
			Method:        string(opt.Method),
			InitParams:    opt.InitParams,
			MaxIter:       opt.MaxIter,
			XATol:         opt.XATol,
			FATol:         opt.FATol,
			Verbose:       opt.Verbose,
			Seed:          opt.Seed,
			LogMode:       string(opt.LogMode),
			LogEvery:      5,
		},
		Output: Output{Model: "model.json"},
	}
}

// Load reads a Config from YAML over Default and validates it. An empty path
// returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	if err := Parse(raw, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(raw []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return errors.Wrap(err, "parse config")
	}
	return nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.TrainingData != "" {
		c.Training.TrainingData = o.TrainingData
	}
	if o.MaxIter > 0 {
		c.Training.MaxIter = o.MaxIter
	}
	if o.Method != "" {
		c.Training.Method = o.Method
	}
	if o.NRuns > 0 {
		c.Execution.NRuns = o.NRuns
	}
	if o.Seed != 0 {
		c.Training.Seed = o.Seed
		c.Execution.Seed = o.Seed
	}
	if o.Model != "" {
		c.Output.Model = o.Model
	}
	if o.Grid != "" {
		c.Output.Grid = o.Grid
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Qubits) == 0 {
		return errors.New("qubits must not be empty")
	}
	seen := make(map[int]bool, len(c.Qubits))
	for _, q := range c.Qubits {
		if q < 0 {
			return errors.Errorf("qubit index must be >= 0 (got %d)", q)
		}
		if seen[q] {
			return errors.Errorf("duplicate qubit %d", q)
		}
		seen[q] = true
	}
	if _, err := circuit.ParseEncoder(c.Encoder); err != nil {
		return err
	}
	proc, err := circuit.ParseProcessor(c.Processor.ProcessorOptions)
	if err != nil {
		return err
	}
	if _, err := postprocess.ParseQuantum(c.Processor.Postprocessing.Quantum); err != nil {
		return err
	}
	if _, err := postprocess.ParseClassical(c.Processor.Postprocessing.Classical); err != nil {
		return err
	}

	e := c.Execution
	if e.NRuns <= 0 {
		return errors.Errorf("nruns must be > 0 (got %d)", e.NRuns)
	}
	if e.Concurrency <= 0 {
		return errors.Errorf("concurrency must be > 0 (got %d)", e.Concurrency)
	}
	if e.Timeout < 0 {
		return errors.Errorf("timeout must be >= 0 (got %s)", e.Timeout)
	}
	if e.MaxQubits < 0 {
		return errors.Errorf("max_qubits must be >= 0 (got %d)", e.MaxQubits)
	}

	t := c.Training
	if t.TestFraction < 0 || t.TestFraction >= 1 {
		return errors.Errorf("test_fraction must be in [0, 1) (got %g)", t.TestFraction)
	}
	if _, err := loss.Lookup(t.ObjectiveFunc); err != nil {
		return err
	}
	if _, err := optimizer.ParseMethod(t.Method); err != nil {
		return err
	}
	if want := proc.Arity(c.Qubits); len(t.InitParams) != want {
		return errors.Wrapf(circuit.ErrConfiguration, "init_params has %d values, processor wants %d", len(t.InitParams), want)
	}
	if t.MaxIter < 0 {
		return errors.Errorf("maxiter must be >= 0 (got %d)", t.MaxIter)
	}
	if t.XATol < 0 || t.FATol < 0 {
		return errors.New("xatol and fatol must be >= 0")
	}
	switch optimizer.LogMode(t.LogMode) {
	case optimizer.LogReevaluate, optimizer.LogReuse:
	default:
		return errors.Errorf("unknown log_mode %q", t.LogMode)
	}
	if t.LogEvery <= 0 {
		return errors.Errorf("log_every must be > 0 (got %d)", t.LogEvery)
	}
	if c.Output.Model == "" {
		return errors.New("output model path must be set")
	}
	return nil
}

// OptimizerConfig converts the training section.
func (c *Config) OptimizerConfig() optimizer.Config {
	t := c.Training
	return optimizer.Config{
		Method:     optimizer.Method(t.Method),
		InitParams: append([]float64(nil), t.InitParams...),
		MaxIter:    t.MaxIter,
		XATol:      t.XATol,
		FATol:      t.FATol,
		Verbose:    t.Verbose,
		Seed:       t.Seed,
		LogMode:    optimizer.LogMode(t.LogMode),
	}
}
