package trainer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"qclassify/internal/classifier"
	"qclassify/internal/config"
	"qclassify/internal/dataset"
	"qclassify/internal/executor"
	"qclassify/internal/loss"
	"qclassify/internal/metrics"
	"qclassify/internal/model"
	"qclassify/internal/optimizer"
)

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Config *config.Config
	// Executor overrides the simulator built from Config.Execution.
	Executor executor.Executor
	// Out receives the verbose optimizer stream. Defaults to os.Stdout.
	Out    io.Writer
	Logger *zap.Logger
	// Now stamps the artifact. Defaults to time.Now.
	Now func() time.Time
}

// Report summarizes a training run.
type Report struct {
	RunID        string
	Params       []float64
	TrainLoss    float64
	TestLoss     float64
	TestAccuracy float64
	TestSize     int
	History      metrics.Summary
	ModelPath    string
	GridPath     string
}

// Run trains a classifier as described by cfg.Config, saves the artifact and
// optionally the decision grid.
func Run(ctx context.Context, cfg RunConfig) (*Report, error) {
	c := cfg.Config
	if c == nil {
		return nil, errors.New("trainer: nil config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	runID := uuid.NewString()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run_id", runID))

	exec := cfg.Executor
	if exec == nil {
		var err error
		if exec, err = NewExecutor(c.Execution, logger); err != nil {
			return nil, err
		}
	}
	clf, err := NewClassifier(exec, ComponentsFromConfig(c), c.Execution, nil, logger)
	if err != nil {
		return nil, err
	}
	lossFn, err := loss.Lookup(c.Training.ObjectiveFunc)
	if err != nil {
		return nil, err
	}

	data, err := LoadData(ctx, c.Training.TrainingData, c.Execution.Concurrency)
	if err != nil {
		return nil, err
	}
	train, test := data, []dataset.Example(nil)
	if c.Training.TestFraction > 0 {
		train, test = dataset.Split(data, c.Training.TestFraction, c.Training.SplitSeed)
	}
	logger.Info("training started",
		zap.Int("train_size", len(train)),
		zap.Int("test_size", len(test)),
		zap.String("method", c.Training.Method),
		zap.Int("maxiter", c.Training.MaxIter),
		zap.Int("nruns", c.Execution.NRuns),
	)

	opt := c.OptimizerConfig()
	opt.Out = cfg.Out
	opt.Logger = logger
	opt.OnIteration = progressLogger(logger, c.Training.LogEvery)

	params, err := clf.Train(ctx, train, lossFn, opt)
	if err != nil {
		return nil, errors.Wrap(err, "trainer: train")
	}

	report := &Report{RunID: runID, Params: params}
	if history := clf.LossHistory(); len(history) > 0 {
		if report.History, err = metrics.Summarize(history); err != nil {
			return nil, err
		}
		logger.Info("loss history",
			zap.Int("iterations", report.History.Count),
			zap.Float64("min", report.History.Min),
			zap.Float64("max", report.History.Max),
			zap.Float64("mean", report.History.Mean),
			zap.Float64("stddev", report.History.StdDev),
		)
	}

	if report.TrainLoss, err = clf.Test(ctx, train, lossFn); err != nil {
		return nil, errors.Wrap(err, "trainer: training loss")
	}
	if len(test) > 0 {
		report.TestSize = len(test)
		if report.TestLoss, report.TestAccuracy, err = score(ctx, clf, test, lossFn); err != nil {
			return nil, errors.Wrap(err, "trainer: test")
		}
	}
	logger.Info("training finished",
		zap.Float64s("params", params),
		zap.Float64("train_loss", report.TrainLoss),
		zap.Float64("test_loss", report.TestLoss),
		zap.Float64("test_accuracy", report.TestAccuracy),
	)

	artifact := &model.Artifact{
		Version:        model.FormatVersion,
		Params:         params,
		Qubits:         clf.Qubits(),
		Encoder:        c.Encoder,
		Processor:      c.Processor.ProcessorOptions,
		Postprocessing: c.Processor.Postprocessing,
		Loss:           report.TrainLoss,
		RunID:          runID,
		TrainedAt:      cfg.Now().UTC(),
	}
	if err := ensureDir(c.Output.Model); err != nil {
		return nil, err
	}
	if err := model.Save(c.Output.Model, artifact); err != nil {
		return nil, err
	}
	report.ModelPath = c.Output.Model
	logger.Info("model saved", zap.String("path", c.Output.Model))

	if c.Output.Grid != "" {
		if err := writeGrid(ctx, clf, c.Output.Grid); err != nil {
			return nil, err
		}
		report.GridPath = c.Output.Grid
		logger.Info("decision grid saved", zap.String("path", c.Output.Grid))
	}
	return report, nil
}

// progressLogger logs a metrics window snapshot every logEvery iterations.
// A non-positive logEvery disables the progress lines.
func progressLogger(logger *zap.Logger, logEvery int) func(optimizer.Iteration) {
	var (
		window    metrics.Window
		lastEvals int
		last      = time.Now()
	)
	return func(it optimizer.Iteration) {
		now := time.Now()
		window.Record(it.Evaluations-lastEvals, now.Sub(last), it.Loss)
		lastEvals, last = it.Evaluations, now

		if logEvery > 0 && it.Number%logEvery == 0 {
			snap := window.Snapshot()
			logger.Info("progress",
				zap.Int("iter", it.Number),
				zap.Float64("evals_per_sec", snap.EvalsPerSec),
				zap.Float64("iter_ms", snap.AvgIterMS),
				zap.Float64("loss", snap.LastLoss),
			)
		}
	}
}

func score(ctx context.Context, clf *classifier.Classifier, data []dataset.Example, lossFn loss.Func) (float64, float64, error) {
	batch, err := clf.EvaluateAll(ctx, data, clf.Params())
	if err != nil {
		return 0, 0, err
	}
	l, err := lossFn(batch)
	if err != nil {
		return 0, 0, err
	}
	acc, err := metrics.Accuracy(batch)
	if err != nil {
		return 0, 0, err
	}
	return l, acc, nil
}

func writeGrid(ctx context.Context, clf *classifier.Classifier, path string) error {
	width := len(clf.Qubits())
	if width < 2 {
		return errors.New("trainer: decision grid needs at least two features")
	}
	g, err := clf.DecisionGrid(ctx, make([]float64, width), [2]int{0, 1}, classifier.DefaultGridOptions())
	if err != nil {
		return errors.Wrap(err, "trainer: decision grid")
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "trainer: create grid file")
	}
	if err := gocsv.MarshalFile(g.Points(), f); err != nil {
		f.Close()
		return errors.Wrap(err, "trainer: write grid")
	}
	return errors.Wrap(f.Close(), "trainer: close grid file")
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return errors.Wrapf(os.MkdirAll(dir, 0o755), "trainer: create %s", dir)
}
