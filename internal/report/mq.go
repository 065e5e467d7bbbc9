package report

import (
	"batchgen/internal/types"
	"batchgen/pkg/mq"
	"context"
	"encoding/json"
	"path/filepath"
)

const (
	TestCaseQueue = "test_case_queue"
	BatchRunQueue = "batch_run_queue"
)

// MQReporter announces materialized cases and finished runs.
type MQReporter struct {
	mq mq.RabbitMQ
}

// NewMQReporter returns nil when RabbitMQ is not configured.
func NewMQReporter(rabbit mq.RabbitMQ) *MQReporter {
	if rabbit == nil {
		return nil
	}
	return &MQReporter{mq: rabbit}
}

func (r *MQReporter) Name() string { return "rabbitmq" }

func (r *MQReporter) Report(ctx context.Context, event types.Event) error {
	var (
		queue   string
		message any
	)
	switch event.Type {
	case types.EventCaseSucceeded:
		if event.Result == nil || event.Summary == nil {
			return nil
		}
		queue = TestCaseQueue
		message = types.TestCaseMessage{
			RunID:     event.RunID,
			CaseIndex: event.Result.Index,
			Seed:      event.Result.Seed,
			Path:      filepath.Join(event.Summary.OutputDir, event.Result.Slot),
			Attempts:  event.Result.Attempts,
		}
	case types.EventRunFinished:
		if event.Summary == nil {
			return nil
		}
		queue = BatchRunQueue
		msg := types.BatchRunMessage{
			RunID:           event.RunID,
			OutputDir:       event.Summary.OutputDir,
			Total:           event.Summary.Total,
			SuccessfulCases: event.Summary.SuccessfulCases,
			FailedCases:     event.Summary.FailedCases,
		}
		if event.Err != nil {
			msg.Error = event.Err.Error()
		}
		message = msg
	default:
		return nil
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.mq.Publish(ctx, queue, body)
}
