package report

import (
	"batchgen/internal/types"
	"batchgen/pkg/database"
	"context"

	"gorm.io/gorm"
)

// DBReporter keeps the run history tables up to date.
type DBReporter struct {
	db *gorm.DB
}

// NewDBReporter returns nil when no database is configured.
func NewDBReporter(db *gorm.DB) *DBReporter {
	if db == nil {
		return nil
	}
	return &DBReporter{db: db}
}

func (r *DBReporter) Name() string { return "postgres" }

func (r *DBReporter) Report(ctx context.Context, event types.Event) error {
	switch event.Type {
	case types.EventRunStarted:
		if event.Summary == nil {
			return nil
		}
		return database.AddBatchRun(ctx, r.db, database.NewBatchRun(event.Summary))
	case types.EventCaseSucceeded, types.EventCaseFailed:
		if event.Result == nil {
			return nil
		}
		return database.AddTestCase(ctx, r.db, database.NewTestCase(event.RunID, event.Result))
	case types.EventRunFinished:
		if event.Summary == nil {
			return nil
		}
		return database.FinishBatchRun(ctx, r.db, event.Summary, event.Err)
	}
	return nil
}
