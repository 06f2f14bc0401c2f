package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"qclassify/internal/config"
	"qclassify/internal/trainer"
)

type trainCmd struct {
	Data    string `arg:"help:training CSV file or directory of CSV shards"`
	MaxIter int    `arg:"help:optimizer iteration budget"`
	Method  string `arg:"help:nelder-mead or bfgs"`
	Shots   int    `arg:"help:executions per evaluation (nruns)"`
	Seed    uint64 `arg:"help:seed for the simplex and the simulator"`
	Model   string `arg:"help:output model path"`
	Grid    string `arg:"help:output decision grid CSV path"`
}

type evalCmd struct {
	Model string `arg:"help:model artifact to evaluate"`
	Data  string `arg:"help:evaluation CSV file or directory of CSV shards"`
}

type args struct {
	Config string    `arg:"help:path to YAML config"`
	Debug  bool      `arg:"help:development logging"`
	Train  *trainCmd `arg:"subcommand:train"`
	Eval   *evalCmd  `arg:"subcommand:eval"`
}

func (args) Description() string {
	return "qclassify trains and evaluates variational quantum binary classifiers"
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if a.Train == nil && a.Eval == nil {
		p.Fail("missing subcommand: train or eval")
	}

	logger, err := newLogger(a.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(a.Config)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case a.Train != nil:
		t := a.Train
		cfg.ApplyOverrides(config.Overrides{
			TrainingData: t.Data,
			MaxIter:      t.MaxIter,
			Method:       t.Method,
			NRuns:        t.Shots,
			Seed:         t.Seed,
			Model:        t.Model,
			Grid:         t.Grid,
		})
		if err := cfg.Validate(); err != nil {
			logger.Fatal("invalid config", zap.Error(err))
		}
		report, err := trainer.Run(ctx, trainer.RunConfig{Config: cfg, Logger: logger})
		if err != nil {
			logger.Fatal("training failed", zap.Error(err))
		}
		fmt.Printf("run %s: params=%v train_loss=%.4f", report.RunID, report.Params, report.TrainLoss)
		if report.TestSize > 0 {
			fmt.Printf(" test_loss=%.4f test_accuracy=%.3f", report.TestLoss, report.TestAccuracy)
		}
		fmt.Println()

	case a.Eval != nil:
		cfg.ApplyOverrides(config.Overrides{TrainingData: a.Eval.Data})
		report, err := trainer.Evaluate(ctx, trainer.EvalConfig{
			Config:    cfg,
			ModelPath: a.Eval.Model,
			Logger:    logger,
		})
		if err != nil {
			logger.Fatal("evaluation failed", zap.Error(err))
		}
		fmt.Printf("run %s: examples=%d loss=%.4f accuracy=%.3f\n", report.RunID, report.Size, report.Loss, report.Accuracy)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
