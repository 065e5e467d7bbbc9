// Package batch drives a whole generation run: it picks seeds round-robin,
// runs each case under the retry supervisor, copies the final iteration of
// every successful case into the output folder and summarizes the run.
package batch

import (
	"batchgen/config"
	"batchgen/internal/artifact"
	"batchgen/internal/runner"
	"batchgen/internal/seeds"
	"batchgen/internal/supervisor"
	"batchgen/internal/types"
	"batchgen/internal/utils"
	"batchgen/pkg/console"
	"batchgen/pkg/runlog"
	"batchgen/pkg/telemetry"
	"batchgen/pkg/watchdog"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	LogFileName   = "generation.log"
	seedListLimit = 10
)

var ErrSeedsDirNotFound = seeds.ErrSeedsDirNotFound

type Driver struct {
	appConfig     *config.AppConfig
	supervisor    *supervisor.Supervisor
	watchdogs     *watchdog.WatchDogFactory
	tracerFactory *telemetry.TracerFactory
	console       *console.Console
	logger        *zap.Logger

	now func() time.Time
}

type DriverParams struct {
	fx.In
	AppConfig     *config.AppConfig
	Runner        runner.Runner
	Logger        *zap.Logger
	WatchDogs     *watchdog.WatchDogFactory `optional:"true"`
	TracerFactory *telemetry.TracerFactory  `optional:"true"`
	Console       *console.Console          `optional:"true"`
}

func NewDriver(p DriverParams) *Driver {
	out := p.Console
	if out == nil {
		out = console.Discard()
	}
	return &Driver{
		appConfig:     p.AppConfig,
		supervisor:    supervisor.New(p.Runner, p.AppConfig, p.Logger),
		watchdogs:     p.WatchDogs,
		tracerFactory: p.TracerFactory,
		console:       out,
		logger:        p.Logger,
		now:           time.Now,
	}
}

// run holds the state shared by every case of one batch.
type run struct {
	opts       Options
	jarPath    string
	seedsDir   string
	outputDir  string
	transcript *runlog.Transcript
	supervisor *supervisor.Supervisor
	tracer     telemetry.Tracer
	summary    *types.BatchRunSummary
	observers  []types.Observer
}

func (r *run) notify(ctx context.Context, event types.Event) {
	event.RunID = r.summary.RunID
	event.Total = r.summary.Total
	if event.Summary == nil {
		event.Summary = r.summary
	}
	for _, o := range r.observers {
		o.Notify(ctx, event)
	}
}

// Run executes one batch. Fatal setup problems return an error before any
// case runs; per-case failures are recorded in the summary. A run with zero
// successful cases returns ErrNoSuccessfulCases alongside the summary.
func (d *Driver) Run(ctx context.Context, opts Options, observers ...types.Observer) (*types.BatchRunSummary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = supervisor.DefaultMaxRetries
	}

	started := d.now()
	stamp := started.UTC().Format(timestampLayout)
	if opts.OutputName == "" {
		opts.OutputName = DefaultOutputName(started)
	}

	r := &run{
		opts:       opts,
		jarPath:    firstNonEmpty(opts.JarPath, d.appConfig.JarPath),
		seedsDir:   firstNonEmpty(opts.SeedsDir, d.appConfig.SeedsDir),
		outputDir:  filepath.Join(d.appConfig.OutputRoot, opts.OutputName),
		supervisor: d.supervisor.WithMaxRetries(opts.MaxRetries),
		observers:  observers,
	}
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	logPath := filepath.Join(r.outputDir, LogFileName)
	transcript, err := runlog.Create(logPath)
	if err != nil {
		return nil, err
	}
	defer transcript.Close()
	r.transcript = transcript

	r.summary = &types.BatchRunSummary{
		RunID:      uuid.NewString(),
		OutputName: opts.OutputName,
		OutputDir:  r.outputDir,
		LogPath:    logPath,
		GenIters:   opts.GenIters,
		SeedsSize:  opts.SeedsSize,
		Total:      opts.SeedsSize,
		StartedAt:  started,
	}
	logger := d.log().With(zap.String("run_id", r.summary.RunID))

	transcript.Printf("Batch Test Case Generation - %s", stamp)
	transcript.Println(runlog.Rule("="))

	if _, err := os.Stat(r.jarPath); err != nil {
		return r.summary, d.fatal(r, fmt.Errorf("%w at: %s", ErrToolNotFound, r.jarPath))
	}
	seedList, err := seeds.Discover(r.seedsDir, d.appConfig.Seeds.Prefix, d.appConfig.Seeds.Suffix)
	if err != nil {
		if errors.Is(err, seeds.ErrSeedsDirNotFound) {
			err = fmt.Errorf("%w at: %s", seeds.ErrSeedsDirNotFound, r.seedsDir)
		}
		return r.summary, d.fatal(r, err)
	}
	if len(seedList) == 0 {
		return r.summary, d.fatal(r, fmt.Errorf("%w in %s", ErrNoSeeds, r.seedsDir))
	}
	if err := os.MkdirAll(d.appConfig.MutantsDir, 0755); err != nil {
		return r.summary, d.fatal(r, fmt.Errorf("failed to create mutants folder: %w", err))
	}

	d.console.Println("Output directory: " + opts.OutputName)

	transcript.Printf("Found %d seed files: %s", len(seedList), seeds.Names(seedList, seedListLimit))
	transcript.Printf("Iterations per seed: %d", opts.GenIters)
	transcript.Printf("Number of test cases: %d", opts.SeedsSize)
	transcript.Printf("JAR path: %s", r.jarPath)
	transcript.Printf("Seeds directory: %s", r.seedsDir)
	transcript.Printf("Output folder: %s", r.outputDir)
	transcript.Printf("Log file: %s", logPath)
	transcript.Println(runlog.Rule("=") + "\n")

	d.console.Banner("=", "Batch Test Case Generation")
	d.console.Printf("Generating %d test cases with %d iterations each", opts.SeedsSize, opts.GenIters)
	d.console.Printf("JAR path: %s", r.jarPath)
	d.console.Printf("Seeds directory: %s", r.seedsDir)
	d.console.Printf("Output folder: %s", r.outputDir)
	d.console.Printf("Log file: %s", logPath)
	d.console.Println(runlog.Rule("=") + "\n")

	logger.Info("batch run started",
		zap.String("output_dir", r.outputDir),
		zap.Int("gen_iters", opts.GenIters),
		zap.Int("seeds_size", opts.SeedsSize),
		zap.Int("seeds", len(seedList)),
		zap.Int("max_retries", opts.MaxRetries),
	)

	r.tracer = d.tracerFactory.NewTracer(ctx, "batch_run")
	r.tracer.WithAttributes(telemetry.EmptySpanAttributes().
		WithRunID(r.summary.RunID).
		WithOutputDir(r.outputDir).
		WithGenIters(opts.GenIters).
		WithSeedsSize(opts.SeedsSize).
		WithMaxRetries(opts.MaxRetries))
	r.tracer.Start()
	defer r.tracer.End()

	r.notify(ctx, types.Event{Type: types.EventRunStarted, TraceContext: r.tracer.Export()})

	for i := 1; i <= opts.SeedsSize; i++ {
		if ctx.Err() != nil {
			break
		}
		seed := seeds.Pick(seedList, i)
		r.notify(ctx, types.Event{Type: types.EventCaseStarted, Case: i, Seed: seed.Name})

		result := d.runCase(ctx, r, i, seed)
		r.summary.Record(result)

		eventType := types.EventCaseSucceeded
		if result.Status != types.CaseSucceeded {
			eventType = types.EventCaseFailed
		}
		r.notify(ctx, types.Event{Type: eventType, Case: i, Seed: seed.Name, Result: &result})
	}
	r.summary.FinishedAt = d.now()

	summaryBlock := fmt.Sprintf("Successful: %d/%d\nFailed: %d/%d",
		r.summary.SuccessfulCases, opts.SeedsSize, r.summary.FailedCases, opts.SeedsSize)
	transcript.Banner("=", "Generation Summary")
	transcript.Println(summaryBlock)
	transcript.Println(runlog.Rule("=") + "\n")
	d.console.Banner("=", "Generation Summary")
	d.console.Println(summaryBlock)
	d.console.Println(runlog.Rule("=") + "\n")

	logger.Info("batch run finished",
		zap.Int("successful", r.summary.SuccessfulCases),
		zap.Int("failed", r.summary.FailedCases),
		zap.Duration("elapsed", r.summary.FinishedAt.Sub(started)),
	)

	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("batch run interrupted: %w", err)
		transcript.Println(err.Error())
		r.tracer.SetStatus(codes.Error, err.Error())
		r.notify(context.WithoutCancel(ctx), types.Event{Type: types.EventRunFinished, Err: err})
		return r.summary, err
	}

	if r.summary.SuccessfulCases == 0 {
		transcript.Println("No test cases were generated successfully.")
		d.console.Error("No test cases were generated successfully.")
		r.tracer.SetStatus(codes.Error, ErrNoSuccessfulCases.Error())
		r.notify(ctx, types.Event{Type: types.EventRunFinished, Err: ErrNoSuccessfulCases})
		return r.summary, ErrNoSuccessfulCases
	}

	for _, line := range []string{"✓ All done!", "Output folder: " + r.outputDir, "Log file: " + logPath} {
		transcript.Println(line)
		d.console.Println(line)
	}

	if !opts.NoCleanup {
		d.cleanupMutants(transcript)
	}
	r.tracer.SetStatus(codes.Ok, "batch run completed")
	r.notify(ctx, types.Event{Type: types.EventRunFinished})

	if opts.Archive {
		transcript.Close()
		archivePath := r.outputDir + ".tar.gz"
		if err := utils.CompressTarGz(r.outputDir, archivePath); err != nil {
			logger.Warn("failed to archive output folder", zap.Error(err))
		} else {
			d.console.Println("Archive: " + archivePath)
		}
	}
	return r.summary, nil
}

// fatal reports a setup error on both sinks and returns it.
func (d *Driver) fatal(r *run, err error) error {
	msg := "Error: " + err.Error()
	r.transcript.Println(msg)
	d.console.Error(msg)
	d.log().Error("batch run aborted", zap.String("run_id", r.summary.RunID), zap.Error(err))
	return err
}

func (d *Driver) runCase(ctx context.Context, r *run, index int, seed types.Seed) types.CaseResult {
	opts := r.opts
	result := types.CaseResult{
		Index:  index,
		Seed:   seed.Name,
		Slot:   types.SlotName(index),
		Status: types.CaseFailed,
	}

	header := fmt.Sprintf("Generating test case %d/%d\nTarget seed: %s", index, opts.SeedsSize, seed.Name)
	r.transcript.Banner("*", header)
	d.console.Println("\n" + runlog.Rule("*"))
	d.console.Info(fmt.Sprintf("Generating test case %d/%d", index, opts.SeedsSize))
	d.console.Info("Target seed: " + seed.Name)
	d.console.Println(runlog.Rule("*"))

	tracer := r.tracer.Spawn("generate_case")
	tracer.WithAttributes(telemetry.EmptySpanAttributes().WithSeed(seed.Name).WithCaseIndex(index))
	tracer.Start()
	defer tracer.End()

	observed := d.watchMutants(seed.Name)
	ok, attempts := r.supervisor.Run(ctx, types.InvocationParams{
		JarPath:    r.jarPath,
		SeedsDir:   r.seedsDir,
		TargetSeed: seed.Name,
		Iterations: opts.GenIters,
	}, r.transcript)
	created := observed()
	result.Attempts = attempts
	tracer.AddEvent("generation_finished", telemetry.NewEventAttributes(map[string]string{
		"attempts":  strconv.Itoa(attempts),
		"succeeded": strconv.FormatBool(ok),
	}))

	if !ok {
		result.Reason = types.ReasonRetriesExhausted
		if ctx.Err() != nil {
			result.Reason = types.ReasonCancelled
		}
		msg := fmt.Sprintf("✗ Failed to generate test case %d", index)
		r.transcript.Println(msg)
		d.console.Error(msg)
		tracer.SetStatus(codes.Error, string(result.Reason))
		return result
	}
	r.transcript.Println("✓ Generation completed")
	d.console.Success("✓ Generation completed")

	artifactDir, err := artifact.Locate(d.appConfig.MutantsDir, seed.Name, created...)
	if err != nil {
		r.transcript.Printf("✗ Could not find generated mutant folder for %s", seed.Name)
		result.Reason = types.ReasonArtifactNotFound
		tracer.SetStatus(codes.Error, err.Error())
		return result
	}
	result.Artifact = artifactDir
	r.transcript.Printf("Found mutant folder: %s", filepath.Base(artifactDir))

	expected := filepath.Join(artifactDir, strconv.Itoa(opts.GenIters-1))
	source, err := artifact.Materialize(artifactDir, opts.GenIters, filepath.Join(r.outputDir, result.Slot))
	if source != "" && source != expected {
		r.transcript.Printf("Warning: Final iteration folder not found: %s", expected)
		r.transcript.Printf("Using folder: %s", source)
	}
	if err != nil {
		if errors.Is(err, artifact.ErrNoIterations) {
			r.transcript.Printf("Warning: Final iteration folder not found: %s", expected)
		} else {
			r.transcript.Printf("Error copying test case: %v", err)
		}
		result.Reason = types.ReasonMaterializeFailed
		tracer.SetStatus(codes.Error, err.Error())
		return result
	}

	result.Source = source
	result.Status = types.CaseSucceeded
	r.transcript.Printf("✓ Copied test case %d from %s", index, filepath.Base(source))
	tracer.SetStatus(codes.Ok, "materialized")
	return result
}

// watchMutants records scratch folders created for seed while the supervisor
// runs. The returned func stops the watch and lists what it saw; it returns
// nil when no watch could be started.
func (d *Driver) watchMutants(seed string) func() []string {
	if d.watchdogs == nil {
		return func() []string { return nil }
	}
	prefix := seed + "_"
	wd, err := d.watchdogs.Watch(d.appConfig.MutantsDir, func(path string) bool {
		return strings.HasPrefix(filepath.Base(path), prefix)
	})
	if err != nil {
		d.log().Debug("mutants watch unavailable", zap.Error(err))
		return func() []string { return nil }
	}
	return wd.Stop
}

func (d *Driver) cleanupMutants(transcript *runlog.Transcript) {
	dir := d.appConfig.MutantsDir
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		transcript.Printf("Warning: Could not clean up mutants folder: %v", err)
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		transcript.Printf("Warning: Could not clean up mutants folder: %v", err)
		return
	}
	transcript.Println("✓ Cleaned up mutants folder")
}

func (d *Driver) log() *zap.Logger {
	if d.logger == nil {
		return zap.NewNop()
	}
	return d.logger
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
