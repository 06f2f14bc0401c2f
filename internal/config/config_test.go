package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qclassify/internal/circuit"
	"qclassify/internal/optimizer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, cfg.Qubits)
	assert.Equal(t, "layer_xz", cfg.Processor.Circuit)
	assert.Equal(t, 10000, cfg.Execution.NRuns)
	assert.Equal(t, 30*time.Second, cfg.Execution.Timeout)
	assert.Equal(t, "nelder-mead", cfg.Training.Method)
	assert.Equal(t, optimizer.DefaultInitParams, cfg.Training.InitParams)
	assert.Equal(t, 20, cfg.Training.MaxIter)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
qubits: [0, 1, 2]
processor:
  proc_circ: layer_xz
  nlayers: 2
  postprocessing: {quantum: measure_top, classical: prob_one}
execution:
  nruns: 500
  timeout: 2s
  exact: true
training:
  training_data: data.csv
  test_fraction: 0.25
  training_method: BFGS
  init_params: [0, 0, 0, 0, 0, 0]
  maxiter: 40
  log_mode: reuse
output:
  model: out/model.json
  grid: out/grid.csv
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, cfg.Qubits)
	assert.Equal(t, 2, cfg.Processor.NLayers)
	assert.Equal(t, 1, cfg.Processor.Dist)
	assert.Equal(t, 500, cfg.Execution.NRuns)
	assert.Equal(t, 2*time.Second, cfg.Execution.Timeout)
	assert.True(t, cfg.Execution.Exact)
	assert.Equal(t, 4, cfg.Execution.Concurrency)
	assert.Equal(t, 0.25, cfg.Training.TestFraction)
	assert.Len(t, cfg.Training.InitParams, 6)
	assert.Equal(t, "out/grid.csv", cfg.Output.Grid)

	opt := cfg.OptimizerConfig()
	assert.Equal(t, optimizer.Method("BFGS"), opt.Method)
	assert.Equal(t, optimizer.LogReuse, opt.LogMode)
	assert.Equal(t, 40, opt.MaxIter)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "training:\n  steps: 10\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"no qubits":       func(c *Config) { c.Qubits = nil },
		"duplicate qubit": func(c *Config) { c.Qubits = []int{1, 1} },
		"encoder":         func(c *Config) { c.Encoder.Encoding = "amplitude" },
		"processor":       func(c *Config) { c.Processor.Circuit = "qaoa" },
		"quantum":         func(c *Config) { c.Processor.Postprocessing.Quantum = "measure_all" },
		"nruns":           func(c *Config) { c.Execution.NRuns = 0 },
		"concurrency":     func(c *Config) { c.Execution.Concurrency = -1 },
		"test fraction":   func(c *Config) { c.Training.TestFraction = 1 },
		"objective":       func(c *Config) { c.Training.ObjectiveFunc = "hinge" },
		"method":          func(c *Config) { c.Training.Method = "powell" },
		"log mode":        func(c *Config) { c.Training.LogMode = "never" },
		"model path":      func(c *Config) { c.Output.Model = "" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	cfg := Default()
	cfg.Training.InitParams = []float64{1, 2, 3}
	assert.True(t, errors.Is(cfg.Validate(), circuit.ErrConfiguration))

	cfg = Default()
	cfg.Training.LogEvery = 0
	assert.Error(t, cfg.Validate())
	assert.Zero(t, cfg.Training.LogEvery)

	cfg = Default()
	before := *cfg
	require.NoError(t, cfg.Validate())
	assert.Equal(t, before, *cfg)
}

func TestLoadKeepsDefaultLogEvery(t *testing.T) {
	cfg, err := Load(writeConfig(t, "training:\n  maxiter: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Training.LogEvery)
	assert.Equal(t, 3, cfg.Training.MaxIter)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{
		TrainingData: "xor.csv",
		MaxIter:      7,
		Method:       "bfgs",
		NRuns:        200,
		Seed:         99,
		Grid:         "grid.csv",
	})
	assert.Equal(t, "xor.csv", cfg.Training.TrainingData)
	assert.Equal(t, 7, cfg.Training.MaxIter)
	assert.Equal(t, "bfgs", cfg.Training.Method)
	assert.Equal(t, 200, cfg.Execution.NRuns)
	assert.Equal(t, uint64(99), cfg.Training.Seed)
	assert.Equal(t, uint64(99), cfg.Execution.Seed)
	assert.Equal(t, "model.json", cfg.Output.Model)
	assert.Equal(t, "grid.csv", cfg.Output.Grid)

	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, 7, cfg.Training.MaxIter)
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "xor.yaml"))
	require.NoError(t, err)
	def := Default()
	def.Output.Grid = "grid.csv"
	assert.Equal(t, def, cfg)
}
