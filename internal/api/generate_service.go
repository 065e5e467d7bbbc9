package api

import (
	"batchgen/config"
	"batchgen/internal/batch"
	"batchgen/internal/collect"
	"batchgen/internal/report"
	"batchgen/internal/types"
	"context"
	"errors"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrBusy = errors.New("a batch generation is already running")

// BatchRunner is satisfied by *batch.Driver.
type BatchRunner interface {
	Run(ctx context.Context, opts batch.Options, observers ...types.Observer) (*types.BatchRunSummary, error)
}

// GenerateResult is what a finished request returns to the client.
type GenerateResult struct {
	Summary   *types.BatchRunSummary
	TestCases []collect.TestCase
}

// GenerateService runs one batch at a time on behalf of HTTP clients. The
// scratch folder is shared, so concurrent batches would mix artifacts.
type GenerateService struct {
	runner         BatchRunner
	reporter       *report.Manager
	defaultIters   int
	defaultCount   int
	defaultRetries int
	logger         *zap.Logger

	mu sync.Mutex
}

type GenerateServiceParams struct {
	fx.In
	Runner   BatchRunner
	Reporter *report.Manager `optional:"true"`
	Config   *config.AppConfig
	Logger   *zap.Logger
}

func NewGenerateService(p GenerateServiceParams) *GenerateService {
	return &GenerateService{
		runner:         p.Runner,
		reporter:       p.Reporter,
		defaultIters:   orDefault(p.Config.Runner.DefaultAPIIters, 100),
		defaultCount:   orDefault(p.Config.Runner.DefaultAPICount, 3),
		defaultRetries: p.Config.Runner.DefaultMaxRetries,
		logger:         p.Logger,
	}
}

// Acquire reserves the service for one batch. The returned func releases it.
func (s *GenerateService) Acquire() (func(), error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	return s.mu.Unlock, nil
}

// Generate runs a batch and reads the produced test cases back. The caller
// must hold the reservation from Acquire.
func (s *GenerateService) Generate(ctx context.Context, iterations, count int, observer types.Observer) (*GenerateResult, error) {
	observers := []types.Observer{}
	if observer != nil {
		observers = append(observers, observer)
	}
	if s.reporter != nil {
		observers = append(observers, s.reporter)
	}

	s.logger.Info("generating seeds", zap.Int("count", count), zap.Int("iterations", iterations))
	summary, err := s.runner.Run(ctx, batch.Options{
		GenIters:   iterations,
		SeedsSize:  count,
		NoCleanup:  true,
		MaxRetries: s.defaultRetries,
	}, observers...)
	result := &GenerateResult{Summary: summary}
	if err != nil {
		return result, err
	}

	testCases, err := collect.ReadTestCases(summary.OutputDir)
	if err != nil {
		return result, err
	}
	result.TestCases = testCases
	s.logger.Info("seed generation finished",
		zap.String("output_dir", summary.OutputDir),
		zap.Int("test_cases", len(testCases)),
	)
	return result, nil
}

func orDefault(val, defaultVal int) int {
	if val <= 0 {
		return defaultVal
	}
	return val
}
