package batch

import (
	"batchgen/config"
	"batchgen/internal/types"
	"batchgen/pkg/console"
	"batchgen/pkg/runlog"
	"batchgen/pkg/watchdog"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTool mimics the generation tool: every successful call creates
// <mutants>/<seed>_<n>/<0..iters-1>/<seed>.java.
type fakeTool struct {
	mutantsDir string
	fail       func(seed string, call int) bool // nil never fails
	noArtifact bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeTool) Invoke(_ context.Context, params types.InvocationParams, transcript *runlog.Transcript) types.InvocationResult {
	f.mu.Lock()
	f.calls = append(f.calls, params.TargetSeed)
	call := len(f.calls)
	f.mu.Unlock()

	if f.fail != nil && f.fail(params.TargetSeed, call) {
		transcript.Println("Exception: generation error")
		return types.InvocationResult{ExitCode: 1, HasErrorMarker: true}
	}
	if !f.noArtifact {
		folder := filepath.Join(f.mutantsDir, fmt.Sprintf("%s_%03d", params.TargetSeed, call))
		for i := 0; i < params.Iterations; i++ {
			iter := filepath.Join(folder, fmt.Sprint(i))
			if err := os.MkdirAll(iter, 0755); err != nil {
				return types.InvocationResult{ExitCode: -1, Err: err}
			}
			content := fmt.Sprintf("// %s call %d iteration %d", params.TargetSeed, call, i)
			if err := os.WriteFile(filepath.Join(iter, params.TargetSeed+".java"), []byte(content), 0644); err != nil {
				return types.InvocationResult{ExitCode: -1, Err: err}
			}
		}
	}
	transcript.Println("generation finished")
	return types.InvocationResult{ExitCode: 0}
}

type fixture struct {
	cfg     *config.AppConfig
	tool    *fakeTool
	driver  *Driver
	console *bytes.Buffer
}

func newFixture(t *testing.T, seedFiles ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := &config.AppConfig{
		BackendDir: root,
		MutantsDir: filepath.Join(root, "mutants"),
		OutputRoot: filepath.Join(root, "batch_gen_seed"),
		JarPath:    filepath.Join(root, "InterFuzz.jar"),
		SeedsDir:   filepath.Join(root, "seeds"),
		Seeds:      config.SeedConfig{Prefix: "Test", Suffix: ".java"},
		Runner:     config.RunnerConfig{RetryDelay: 0, DefaultMaxRetries: 3},
	}
	require.NoError(t, os.WriteFile(cfg.JarPath, []byte("jar"), 0644))
	require.NoError(t, os.MkdirAll(cfg.SeedsDir, 0755))
	for _, name := range seedFiles {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.SeedsDir, name), []byte("class X {}"), 0644))
	}

	tool := &fakeTool{mutantsDir: cfg.MutantsDir}
	var out bytes.Buffer
	driver := NewDriver(DriverParams{
		AppConfig: cfg,
		Runner:    tool,
		Logger:    zap.NewNop(),
		WatchDogs: watchdog.NewWatchDogFactory(zap.NewNop()),
		Console:   console.New(&out),
	})
	return &fixture{cfg: cfg, tool: tool, driver: driver, console: &out}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (e *eventRecorder) Notify(_ context.Context, event types.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *eventRecorder) types() []types.EventType {
	out := make([]types.EventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestRunGeneratesRoundRobinCases(t *testing.T) {
	f := newFixture(t, "TestB.java", "TestA.java", "Helper.java", "TestC.txt")
	recorder := &eventRecorder{}

	summary, err := f.driver.Run(context.Background(), Options{GenIters: 3, SeedsSize: 3, OutputName: "run1"}, recorder)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SuccessfulCases)
	assert.Equal(t, 0, summary.FailedCases)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []string{"TestA", "TestB", "TestA"}, f.tool.calls)

	outputDir := filepath.Join(f.cfg.OutputRoot, "run1")
	assert.Equal(t, outputDir, summary.OutputDir)
	assert.Equal(t, "// TestA call 1 iteration 2", readFile(t, filepath.Join(outputDir, "test_case_0001", "TestA.java")))
	assert.Equal(t, "// TestB call 2 iteration 2", readFile(t, filepath.Join(outputDir, "test_case_0002", "TestB.java")))
	assert.Equal(t, "// TestA call 3 iteration 2", readFile(t, filepath.Join(outputDir, "test_case_0003", "TestA.java")))

	log := readFile(t, filepath.Join(outputDir, LogFileName))
	assert.Contains(t, log, "Found 2 seed files: TestA, TestB")
	assert.Contains(t, log, "Generating test case 2/3\nTarget seed: TestB")
	assert.Contains(t, log, "✓ Copied test case 3 from 2")
	assert.Contains(t, log, "Successful: 3/3\nFailed: 0/3")
	assert.Contains(t, log, "✓ All done!")
	assert.Contains(t, log, "✓ Cleaned up mutants folder")

	entries, err := os.ReadDir(f.cfg.MutantsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Contains(t, f.console.String(), "Output directory: run1\n")

	assert.Equal(t, []types.EventType{
		types.EventRunStarted,
		types.EventCaseStarted, types.EventCaseSucceeded,
		types.EventCaseStarted, types.EventCaseSucceeded,
		types.EventCaseStarted, types.EventCaseSucceeded,
		types.EventRunFinished,
	}, recorder.types())
	last := recorder.events[len(recorder.events)-1]
	assert.NoError(t, last.Err)
	assert.Equal(t, summary.RunID, last.RunID)
}

func TestRunAllFailuresIsAnError(t *testing.T) {
	f := newFixture(t, "TestA.java")
	f.tool.fail = func(string, int) bool { return true }
	require.NoError(t, os.MkdirAll(filepath.Join(f.cfg.MutantsDir, "TestA_leftover"), 0755))
	recorder := &eventRecorder{}

	summary, err := f.driver.Run(context.Background(), Options{GenIters: 2, SeedsSize: 2, MaxRetries: 2, OutputName: "fail"}, recorder)
	assert.ErrorIs(t, err, ErrNoSuccessfulCases)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.SuccessfulCases)
	assert.Equal(t, 2, summary.FailedCases)
	assert.Len(t, f.tool.calls, 4)
	for _, c := range summary.Cases {
		assert.Equal(t, types.ReasonRetriesExhausted, c.Reason)
		assert.Equal(t, 2, c.Attempts)
	}

	outputDir := filepath.Join(f.cfg.OutputRoot, "fail")
	assert.NoDirExists(t, filepath.Join(outputDir, "test_case_0001"))
	assert.DirExists(t, filepath.Join(f.cfg.MutantsDir, "TestA_leftover"))

	log := readFile(t, filepath.Join(outputDir, LogFileName))
	assert.Contains(t, log, "No test cases were generated successfully.")
	assert.Contains(t, log, "✗ Failed after 2 attempts")
	assert.NotContains(t, log, "✓ All done!")

	last := recorder.events[len(recorder.events)-1]
	assert.Equal(t, types.EventRunFinished, last.Type)
	assert.ErrorIs(t, last.Err, ErrNoSuccessfulCases)
}

func TestRunKeepsIndicesWhenACaseFails(t *testing.T) {
	f := newFixture(t, "TestA.java", "TestB.java")
	f.tool.fail = func(seed string, _ int) bool { return seed == "TestB" }

	summary, err := f.driver.Run(context.Background(), Options{GenIters: 1, SeedsSize: 3, MaxRetries: 1, OutputName: "mixed"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SuccessfulCases)
	assert.Equal(t, 1, summary.FailedCases)

	outputDir := filepath.Join(f.cfg.OutputRoot, "mixed")
	assert.DirExists(t, filepath.Join(outputDir, "test_case_0001"))
	assert.NoDirExists(t, filepath.Join(outputDir, "test_case_0002"))
	assert.DirExists(t, filepath.Join(outputDir, "test_case_0003"))
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	f := newFixture(t, "TestA.java")
	f.tool.fail = func(_ string, call int) bool { return call == 1 }

	summary, err := f.driver.Run(context.Background(), Options{GenIters: 2, SeedsSize: 1, OutputName: "retry"})
	require.NoError(t, err)
	require.Len(t, summary.Cases, 1)
	assert.Equal(t, 2, summary.Cases[0].Attempts)
	assert.Equal(t, types.CaseSucceeded, summary.Cases[0].Status)

	log := readFile(t, filepath.Join(f.cfg.OutputRoot, "retry", LogFileName))
	assert.Contains(t, log, "Retry attempt 2/3")
	assert.Contains(t, log, "✓ Succeeded on retry attempt 2")
}

func TestRunMissingArtifactFailsCase(t *testing.T) {
	f := newFixture(t, "TestA.java")
	f.tool.noArtifact = true

	summary, err := f.driver.Run(context.Background(), Options{GenIters: 2, SeedsSize: 1, OutputName: "noart"})
	assert.ErrorIs(t, err, ErrNoSuccessfulCases)
	require.Len(t, summary.Cases, 1)
	assert.Equal(t, types.ReasonArtifactNotFound, summary.Cases[0].Reason)
	assert.Contains(t, readFile(t, filepath.Join(f.cfg.OutputRoot, "noart", LogFileName)),
		"✗ Could not find generated mutant folder for TestA")
}

func TestRunNoCleanupKeepsMutants(t *testing.T) {
	f := newFixture(t, "TestA.java")

	_, err := f.driver.Run(context.Background(), Options{GenIters: 1, SeedsSize: 1, NoCleanup: true, OutputName: "keep"})
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(f.cfg.MutantsDir, "TestA_001"))
}

func TestRunFatalSetupErrors(t *testing.T) {
	t.Run("missing jar", func(t *testing.T) {
		f := newFixture(t, "TestA.java")
		_, err := f.driver.Run(context.Background(), Options{GenIters: 1, SeedsSize: 1, JarPath: "/nope/InterFuzz.jar", OutputName: "x"})
		assert.ErrorIs(t, err, ErrToolNotFound)
		assert.Empty(t, f.tool.calls)
		assert.Contains(t, readFile(t, filepath.Join(f.cfg.OutputRoot, "x", LogFileName)), "Error: InterFuzz.jar not found at: /nope/InterFuzz.jar")
	})
	t.Run("missing seeds dir", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.driver.Run(context.Background(), Options{GenIters: 1, SeedsSize: 1, SeedsDir: filepath.Join(t.TempDir(), "none"), OutputName: "x"})
		assert.ErrorIs(t, err, ErrSeedsDirNotFound)
		assert.Empty(t, f.tool.calls)
	})
	t.Run("no seeds", func(t *testing.T) {
		f := newFixture(t, "Helper.java")
		_, err := f.driver.Run(context.Background(), Options{GenIters: 1, SeedsSize: 1, OutputName: "x"})
		assert.ErrorIs(t, err, ErrNoSeeds)
		assert.Empty(t, f.tool.calls)
		assert.NotContains(t, f.console.String(), "Output directory:")
	})
	t.Run("invalid options", func(t *testing.T) {
		f := newFixture(t, "TestA.java")
		summary, err := f.driver.Run(context.Background(), Options{GenIters: 0, SeedsSize: 1})
		assert.ErrorIs(t, err, ErrInvalidOptions)
		assert.Nil(t, summary)
	})
}

func TestRunStopsWhenCancelled(t *testing.T) {
	f := newFixture(t, "TestA.java")
	ctx, cancel := context.WithCancel(context.Background())
	observer := types.ObserverFunc(func(_ context.Context, event types.Event) {
		if event.Type == types.EventCaseSucceeded && event.Case == 1 {
			cancel()
		}
	})

	summary, err := f.driver.Run(ctx, Options{GenIters: 1, SeedsSize: 5, OutputName: "cancel"}, observer)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.SuccessfulCases)
	assert.Len(t, f.tool.calls, 1)
	assert.DirExists(t, filepath.Join(f.cfg.OutputRoot, "cancel", "test_case_0001"))
}

func TestRunDefaultOutputName(t *testing.T) {
	f := newFixture(t, "TestA.java")
	f.driver.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	summary, err := f.driver.Run(context.Background(), Options{GenIters: 1, SeedsSize: 1})
	require.NoError(t, err)
	assert.Equal(t, "generated_tests_20250304_050607", summary.OutputName)
	assert.Contains(t, readFile(t, summary.LogPath), "Batch Test Case Generation - 20250304_050607")
}

func TestRunArchive(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("tar not available")
	}
	f := newFixture(t, "TestA.java")

	summary, err := f.driver.Run(context.Background(), Options{GenIters: 1, SeedsSize: 1, Archive: true, OutputName: "packed"})
	require.NoError(t, err)
	assert.FileExists(t, summary.OutputDir+".tar.gz")
}
