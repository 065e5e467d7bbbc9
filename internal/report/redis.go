package report

import (
	"batchgen/internal/types"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RunStatusKey    = "batchgen:run_status:%s"
	RunProgressKey  = "batchgen:run_progress:%s"
	TraceContextKey = "batchgen:trace_context:%s"

	keyTTL = 24 * time.Hour
)

// Progress is the JSON document kept under RunProgressKey.
type Progress struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Seed       string `json:"seed,omitempty"`
	Message    string `json:"message"`
}

// RedisReporter publishes the live status of a run for dashboards.
type RedisReporter struct {
	client *redis.Client
}

// NewRedisReporter returns nil when Redis is not configured.
func NewRedisReporter(client *redis.Client) *RedisReporter {
	if client == nil {
		return nil
	}
	return &RedisReporter{client: client}
}

func (r *RedisReporter) Name() string { return "redis" }

func (r *RedisReporter) Report(ctx context.Context, event types.Event) error {
	switch event.Type {
	case types.EventRunStarted:
		pipe := r.client.TxPipeline()
		pipe.Set(ctx, fmt.Sprintf(RunStatusKey, event.RunID), "running", keyTTL)
		if event.TraceContext != "" {
			pipe.Set(ctx, fmt.Sprintf(TraceContextKey, event.RunID), event.TraceContext, keyTTL)
		}
		_, err := pipe.Exec(ctx)
		return err
	case types.EventCaseStarted:
		return r.setProgress(ctx, event, fmt.Sprintf("Generating test case %d/%d (seed: %s)", event.Case, event.Total, event.Seed))
	case types.EventCaseSucceeded:
		return r.setProgress(ctx, event, fmt.Sprintf("Test case %d generated successfully", event.Case))
	case types.EventCaseFailed:
		return r.setProgress(ctx, event, fmt.Sprintf("Test case %d failed", event.Case))
	case types.EventRunFinished:
		status := "succeeded"
		if event.Err != nil {
			status = "failed"
		}
		return r.client.Set(ctx, fmt.Sprintf(RunStatusKey, event.RunID), status, keyTTL).Err()
	}
	return nil
}

func (r *RedisReporter) setProgress(ctx context.Context, event types.Event, message string) error {
	progress := Progress{
		Current: event.Case,
		Total:   event.Total,
		Seed:    event.Seed,
		Message: message,
	}
	if event.Summary != nil {
		progress.Successful = event.Summary.SuccessfulCases
		progress.Failed = event.Summary.FailedCases
	}
	payload, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, fmt.Sprintf(RunProgressKey, event.RunID), payload, keyTTL).Err()
}
