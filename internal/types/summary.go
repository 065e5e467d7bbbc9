package types

import "time"

type CaseStatus string

const (
	CaseSucceeded CaseStatus = "succeeded"
	CaseFailed    CaseStatus = "failed"
)

// FailureReason explains why a case failed.
type FailureReason string

const (
	ReasonRetriesExhausted  FailureReason = "retries_exhausted"
	ReasonArtifactNotFound  FailureReason = "artifact_not_found"
	ReasonMaterializeFailed FailureReason = "materialize_failed"
	ReasonCancelled         FailureReason = "cancelled"
)

type CaseResult struct {
	Index    int           `json:"index"`
	Seed     string        `json:"seed"`
	Slot     string        `json:"slot"`
	Attempts int           `json:"attempts"`
	Artifact string        `json:"artifact,omitempty"` // located scratch folder
	Source   string        `json:"source,omitempty"`   // iteration folder that was copied
	Status   CaseStatus    `json:"status"`
	Reason   FailureReason `json:"reason,omitempty"`
}

// BatchRunSummary aggregates the outcome of one batch run.
type BatchRunSummary struct {
	RunID           string       `json:"run_id"`
	OutputName      string       `json:"output_name"`
	OutputDir       string       `json:"output_dir"`
	LogPath         string       `json:"log_path"`
	GenIters        int          `json:"gen_iters"`
	SeedsSize       int          `json:"seeds_size"`
	Total           int          `json:"total"`
	SuccessfulCases int          `json:"successful_cases"`
	FailedCases     int          `json:"failed_cases"`
	Cases           []CaseResult `json:"cases"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
}

// Record appends a case result and bumps the matching counter.
func (s *BatchRunSummary) Record(result CaseResult) {
	s.Cases = append(s.Cases, result)
	if result.Status == CaseSucceeded {
		s.SuccessfulCases++
	} else {
		s.FailedCases++
	}
}
