package batch

import (
	"errors"
	"time"
)

var (
	ErrInvalidOptions    = errors.New("--gen_iters (-i) and --seeds_size (-s) are required")
	ErrToolNotFound      = errors.New("InterFuzz.jar not found")
	ErrNoSeeds           = errors.New("no seed files found")
	ErrNoSuccessfulCases = errors.New("no test cases were generated successfully")
)

const timestampLayout = "20060102_150405"

// Options configure one batch run. Empty paths fall back to the configured
// defaults.
type Options struct {
	GenIters   int
	SeedsSize  int
	JarPath    string
	SeedsDir   string
	OutputName string
	NoCleanup  bool
	MaxRetries int
	Archive    bool
}

func (o Options) validate() error {
	if o.GenIters <= 0 || o.SeedsSize <= 0 {
		return ErrInvalidOptions
	}
	return nil
}

// DefaultOutputName names an output folder after the UTC start time.
func DefaultOutputName(now time.Time) string {
	return "generated_tests_" + now.UTC().Format(timestampLayout)
}
