// Package supervisor retries a single generation case until the tool reports
// a clean run or the attempt budget runs out.
package supervisor

import (
	"batchgen/config"
	"batchgen/internal/runner"
	"batchgen/internal/types"
	"batchgen/pkg/runlog"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultDelay      = 2 * time.Second
)

var errAttemptFailed = errors.New("generation failed or has errors")

type Supervisor struct {
	Runner     runner.Runner
	MaxRetries int
	Delay      time.Duration

	timer  backoff.Timer // nil uses a real timer
	logger *zap.Logger
}

func New(r runner.Runner, appConfig *config.AppConfig, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		Runner:     r,
		MaxRetries: appConfig.Runner.DefaultMaxRetries,
		Delay:      appConfig.Runner.RetryDelay,
		logger:     logger,
	}
}

// WithMaxRetries returns a copy of s using a different attempt budget.
func (s *Supervisor) WithMaxRetries(n int) *Supervisor {
	c := *s
	c.MaxRetries = n
	return &c
}

// Run invokes the runner until an attempt is OK or the budget is spent.
// It reports whether the case succeeded and how many attempts were made.
func (s *Supervisor) Run(ctx context.Context, params types.InvocationParams, transcript *runlog.Transcript) (bool, int) {
	maxRetries := s.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(s.Delay)
	b = backoff.WithMaxRetries(b, uint64(maxRetries-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			transcript.Banner("!", fmt.Sprintf("Retry attempt %d/%d", attempt, maxRetries))
			transcript.Println("")
		}

		start := time.Now()
		result := s.Runner.Invoke(ctx, params, transcript)
		s.log().Debug("attempt finished",
			zap.String("seed", params.TargetSeed),
			zap.Int("attempt", attempt),
			zap.Int("exit_code", result.ExitCode),
			zap.Bool("error_marker", result.HasErrorMarker),
			zap.Duration("elapsed", time.Since(start)),
		)

		if result.OK() {
			if attempt > 1 {
				transcript.Printf("✓ Succeeded on retry attempt %d", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if attempt == maxRetries {
			transcript.Printf("\n✗ Failed after %d attempts", maxRetries)
			return errAttemptFailed
		}
		transcript.Println("\n⚠ Generation failed or has errors, will retry...")
		return errAttemptFailed
	}

	notify := func(err error, next time.Duration) {
		s.log().Info("retrying generation",
			zap.String("seed", params.TargetSeed),
			zap.Int("attempt", attempt),
			zap.Duration("delay", next),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotifyWithTimer(operation, b, notify, s.timer); err != nil {
		if !errors.Is(err, errAttemptFailed) {
			s.log().Warn("generation aborted", zap.String("seed", params.TargetSeed), zap.Error(err))
		}
		return false, attempt
	}
	return true, attempt
}

func (s *Supervisor) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}
