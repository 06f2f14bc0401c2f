package trainer

import (
	"context"

	"go.uber.org/zap"

	"qclassify/internal/circuit"
	"qclassify/internal/classifier"
	"qclassify/internal/config"
	"qclassify/internal/dataset"
	"qclassify/internal/executor"
	"qclassify/internal/postprocess"
)

// NewExecutor builds the simulator described by e, bounded by e.Timeout.
func NewExecutor(e config.Execution, logger *zap.Logger) (executor.Executor, error) {
	sim, err := executor.NewSimulator(executor.SimulatorOptions{
		MaxQubits: e.MaxQubits,
		Exact:     e.Exact,
		Seed:      e.Seed,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return executor.WithTimeout(sim, e.Timeout), nil
}

// Components names the strategies of one classifier.
type Components struct {
	Qubits         []int
	Encoder        circuit.EncoderOptions
	Processor      circuit.ProcessorOptions
	Postprocessing postprocess.Options
}

// ComponentsFromConfig extracts the strategy selection from cfg.
func ComponentsFromConfig(cfg *config.Config) Components {
	return Components{
		Qubits:         cfg.Qubits,
		Encoder:        cfg.Encoder,
		Processor:      cfg.Processor.ProcessorOptions,
		Postprocessing: cfg.Processor.Postprocessing,
	}
}

// NewClassifier resolves every strategy by name and constructs the
// classifier.
func NewClassifier(exec executor.Executor, comp Components, e config.Execution, params []float64, logger *zap.Logger) (*classifier.Classifier, error) {
	enc, err := circuit.ParseEncoder(comp.Encoder)
	if err != nil {
		return nil, err
	}
	proc, err := circuit.ParseProcessor(comp.Processor)
	if err != nil {
		return nil, err
	}
	quantum, err := postprocess.ParseQuantum(comp.Postprocessing.Quantum)
	if err != nil {
		return nil, err
	}
	classical, err := postprocess.ParseClassical(comp.Postprocessing.Classical)
	if err != nil {
		return nil, err
	}
	return classifier.New(exec, classifier.Options{
		Qubits:      comp.Qubits,
		Encoder:     enc,
		Processor:   proc,
		Quantum:     quantum,
		Classical:   classical,
		Shots:       e.NRuns,
		Concurrency: e.Concurrency,
		Params:      params,
		Logger:      logger,
	})
}

// LoadData reads path, a CSV file or a directory of CSV shards. An empty path
// yields the built-in XOR set.
func LoadData(ctx context.Context, path string, workers int) ([]dataset.Example, error) {
	if path == "" {
		return dataset.XOR(), nil
	}
	return dataset.LoadPath(ctx, path, workers)
}
