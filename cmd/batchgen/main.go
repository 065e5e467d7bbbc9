package main

import (
	"batchgen/config"
	"batchgen/internal/batch"
	"batchgen/internal/report"
	"batchgen/internal/runner"
	"batchgen/pkg/console"
	"batchgen/pkg/database"
	"batchgen/pkg/logger"
	"batchgen/pkg/mq"
	"batchgen/pkg/telemetry"
	"batchgen/pkg/watchdog"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const usageLine = "Usage: batchgen -i <iterations> -s <count>"

var errHelp = errors.New("help requested")

type cliOptions struct {
	GenIters   int    `short:"i" long:"gen_iters" value-name:"N" description:"iterations per seed (required)"`
	SeedsSize  int    `short:"s" long:"seeds_size" value-name:"N" description:"number of test cases to generate (required)"`
	JarPath    string `short:"j" long:"jar_path" value-name:"PATH" description:"path to InterFuzz.jar"`
	SeedsDir   string `short:"d" long:"seeds_dir" value-name:"DIR" description:"directory holding the seed files"`
	OutputName string `short:"o" long:"output_name" value-name:"NAME" description:"output folder name (default generated_tests_<timestamp>)"`
	NoCleanup  bool   `long:"no-cleanup" description:"keep the mutants folder after the run"`
	MaxRetries int    `short:"r" long:"max-retries" value-name:"N" default:"3" description:"attempts per test case"`
	Archive    bool   `short:"a" long:"archive" description:"also pack the output folder into a .tar.gz"`
}

// parseArgs turns the command line into batch options. Usage problems are
// reported on stderr.
func parseArgs(args []string, stderr io.Writer) (batch.Options, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "batchgen"

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(stderr)
			return batch.Options{}, errHelp
		}
		fmt.Fprintf(stderr, "Error: %s: %v\n", batch.ErrInvalidOptions, err)
		fmt.Fprintln(stderr, usageLine)
		return batch.Options{}, batch.ErrInvalidOptions
	}
	if opts.GenIters <= 0 || opts.SeedsSize <= 0 {
		fmt.Fprintf(stderr, "Error: %s\n", batch.ErrInvalidOptions)
		fmt.Fprintln(stderr, usageLine)
		return batch.Options{}, batch.ErrInvalidOptions
	}

	return batch.Options{
		GenIters:   opts.GenIters,
		SeedsSize:  opts.SeedsSize,
		JarPath:    opts.JarPath,
		SeedsDir:   opts.SeedsDir,
		OutputName: opts.OutputName,
		NoCleanup:  opts.NoCleanup,
		MaxRetries: opts.MaxRetries,
		Archive:    opts.Archive,
	}, nil
}

// exitCode maps the outcome of a run onto the process exit status.
func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

type batchParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Driver     *batch.Driver
	Reporter   *report.Manager
	Options    batch.Options
	Console    *console.Console
	Logger     *zap.Logger
}

// runBatch starts the batch once the app is up and shuts the app down with
// the batch's exit code when it ends.
func runBatch(p batchParams) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				_, err := p.Driver.Run(ctx, p.Options, p.Reporter)
				if err != nil && !isReported(err) {
					p.Console.Error(fmt.Sprintf("Fatal error: %v", err))
				}
				if err != nil {
					p.Logger.Debug("batch run ended with error", zap.Error(err))
				}
				if err := p.Shutdowner.Shutdown(fx.ExitCode(exitCode(err))); err != nil {
					p.Logger.Error("failed to shut down", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// isReported tells whether the driver already printed err for the operator.
func isReported(err error) bool {
	return errors.Is(err, batch.ErrNoSuccessfulCases) ||
		errors.Is(err, batch.ErrToolNotFound) ||
		errors.Is(err, batch.ErrSeedsDirNotFound) ||
		errors.Is(err, batch.ErrNoSeeds) ||
		errors.Is(err, context.Canceled)
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	app := fx.New(
		fx.Supply(opts),
		fx.Provide(
			config.LoadConfig,           // inject config
			telemetry.NewTelemetry,      // inject telemetry
			logger.NewLogger,            // inject logger
			telemetry.NewTracerFactory,  // inject telemetry tracer factory
			database.NewDBConnection,    // inject db connection
			database.NewRedisClient,     // inject redis client
			mq.NewRabbitMQ,              // inject rabbitmq service
			watchdog.NewWatchDogFactory, // inject watchdog factory
			console.Stdout,              // inject console printer
			fx.Annotate(runner.NewJarRunner, fx.As(new(runner.Runner))),
			batch.NewDriver,
		),
		report.ReportersModule,
		fx.Invoke(runBatch),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	)
	app.Run()
}
