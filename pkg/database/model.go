package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type RunStatusEnum string

const (
	RunRunning   RunStatusEnum = "running"
	RunSucceeded RunStatusEnum = "succeeded"
	RunFailed    RunStatusEnum = "failed"
)

// BatchRun represents a record in the public.batch_runs table
type BatchRun struct {
	ID              string        `gorm:"primaryKey;column:id"`
	OutputName      string        `gorm:"column:output_name;not null"`
	OutputDir       string        `gorm:"column:output_dir;not null"`
	GenIters        int           `gorm:"column:gen_iters"`
	Total           int           `gorm:"column:total"`
	SuccessfulCases int           `gorm:"column:successful_cases"`
	FailedCases     int           `gorm:"column:failed_cases"`
	Status          RunStatusEnum `gorm:"column:status"`
	Error           string        `gorm:"column:error"`
	StartedAt       time.Time     `gorm:"column:started_at;default:now()"`
	FinishedAt      *time.Time    `gorm:"column:finished_at"`
	Metric          Metric        `gorm:"column:metric;type:jsonb"`
}

// TestCase represents a record in the public.test_cases table
type TestCase struct {
	ID        int       `gorm:"primaryKey;column:id"`
	RunID     string    `gorm:"column:run_id;not null;index"`
	CaseIndex int       `gorm:"column:case_index;not null"`
	Seed      string    `gorm:"column:seed;not null"`
	Slot      string    `gorm:"column:slot"`
	Path      string    `gorm:"column:path"`
	Attempts  int       `gorm:"column:attempts"`
	Status    string    `gorm:"column:status"`
	Reason    string    `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

// Metric represents the jsonb field in the batch_runs table
type Metric map[string]any

// Value implements the driver.Valuer interface for the Metric type
func (m Metric) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for the Metric type
func (m *Metric) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, m)
}
