package main

import (
	"batchgen/config"
	"batchgen/internal/api"
	"batchgen/internal/report"
	"batchgen/internal/runner"
	"batchgen/pkg/console"
	"batchgen/pkg/database"
	"batchgen/pkg/logger"
	"batchgen/pkg/mq"
	"batchgen/pkg/telemetry"
	"batchgen/pkg/watchdog"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,           // inject config
			telemetry.NewTelemetry,      // inject telemetry
			logger.NewLogger,            // inject logger
			telemetry.NewTracerFactory,  // inject telemetry tracer factory
			database.NewDBConnection,    // inject db connection
			database.NewRedisClient,     // inject redis client
			mq.NewRabbitMQ,              // inject rabbitmq service
			watchdog.NewWatchDogFactory, // inject watchdog factory
			console.Discard,             // batch progress goes to the log file and the stream only
			fx.Annotate(runner.NewJarRunner, fx.As(new(runner.Runner))),
		),
		report.ReportersModule,
		api.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	)
	app.Run()
}
