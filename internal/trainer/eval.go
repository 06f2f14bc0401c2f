package trainer

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"qclassify/internal/config"
	"qclassify/internal/executor"
	"qclassify/internal/loss"
	"qclassify/internal/model"
)

// EvalConfig configures Evaluate.
type EvalConfig struct {
	// Config supplies the execution settings, the objective and the data.
	Config    *config.Config
	ModelPath string
	Executor  executor.Executor
	Logger    *zap.Logger
}

// EvalReport is the score of a saved model on a dataset.
type EvalReport struct {
	RunID    string
	Size     int
	Loss     float64
	Accuracy float64
}

// Evaluate scores the artifact at cfg.ModelPath on the configured data.
func Evaluate(ctx context.Context, cfg EvalConfig) (*EvalReport, error) {
	c := cfg.Config
	if c == nil {
		return nil, errors.New("trainer: nil config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	path := cfg.ModelPath
	if path == "" {
		path = c.Output.Model
	}
	artifact, err := model.Load(path)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("run_id", artifact.RunID))

	exec := cfg.Executor
	if exec == nil {
		if exec, err = NewExecutor(c.Execution, logger); err != nil {
			return nil, err
		}
	}
	comp := Components{
		Qubits:         artifact.Qubits,
		Encoder:        artifact.Encoder,
		Processor:      artifact.Processor,
		Postprocessing: artifact.Postprocessing,
	}
	clf, err := NewClassifier(exec, comp, c.Execution, artifact.Params, logger)
	if err != nil {
		return nil, errors.Wrap(err, "trainer: rebuild classifier")
	}
	lossFn, err := loss.Lookup(c.Training.ObjectiveFunc)
	if err != nil {
		return nil, err
	}
	data, err := LoadData(ctx, c.Training.TrainingData, c.Execution.Concurrency)
	if err != nil {
		return nil, err
	}

	l, acc, err := score(ctx, clf, data, lossFn)
	if err != nil {
		return nil, errors.Wrap(err, "trainer: evaluate")
	}
	logger.Info("evaluation finished",
		zap.String("model", path),
		zap.Int("size", len(data)),
		zap.Float64("loss", l),
		zap.Float64("accuracy", acc),
	)
	return &EvalReport{RunID: artifact.RunID, Size: len(data), Loss: l, Accuracy: acc}, nil
}
