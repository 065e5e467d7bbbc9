package database

import (
	"batchgen/internal/types"
	"context"
	"time"

	"gorm.io/gorm"
)

// inserts the row for a run that just started
func AddBatchRun(ctx context.Context, db *gorm.DB, run *BatchRun) error {
	if run == nil {
		return nil
	}
	return db.WithContext(ctx).Create(run).Error
}

// FinishBatchRun stores the final counters of a run.
func FinishBatchRun(ctx context.Context, db *gorm.DB, summary *types.BatchRunSummary, runErr error) error {
	status := RunSucceeded
	errText := ""
	if runErr != nil {
		status = RunFailed
		errText = runErr.Error()
	}
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	return db.WithContext(ctx).Model(&BatchRun{}).Where("id = ?", summary.RunID).Updates(map[string]any{
		"total":            summary.Total,
		"successful_cases": summary.SuccessfulCases,
		"failed_cases":     summary.FailedCases,
		"status":           status,
		"error":            errText,
		"finished_at":      finished,
	}).Error
}

// inserts a single test case record into the database
func AddTestCase(ctx context.Context, db *gorm.DB, testCase *TestCase) error {
	if testCase == nil {
		return nil
	}
	return db.WithContext(ctx).Create(testCase).Error
}

// NewBatchRun creates the row for a run from its initial summary.
func NewBatchRun(summary *types.BatchRunSummary) *BatchRun {
	return &BatchRun{
		ID:         summary.RunID,
		OutputName: summary.OutputName,
		OutputDir:  summary.OutputDir,
		GenIters:   summary.GenIters,
		Total:      summary.Total,
		Status:     RunRunning,
		StartedAt:  summary.StartedAt,
		Metric:     Metric{"seeds_size": summary.SeedsSize},
	}
}

// NewTestCase creates a TestCase row from a finished case.
func NewTestCase(runID string, result *types.CaseResult) *TestCase {
	return &TestCase{
		RunID:     runID,
		CaseIndex: result.Index,
		Seed:      result.Seed,
		Slot:      result.Slot,
		Path:      result.Source,
		Attempts:  result.Attempts,
		Status:    string(result.Status),
		Reason:    string(result.Reason),
		CreatedAt: time.Now(),
	}
}
