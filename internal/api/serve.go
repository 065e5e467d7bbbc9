package api

import (
	"batchgen/config"
	"batchgen/internal/batch"
	"context"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In
	Lifecycle       fx.Lifecycle
	GenerateService *GenerateService
	Logger          *zap.Logger
	Config          *config.AppConfig
}

// NewHandler builds the API routes.
func NewHandler(service *GenerateService, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("/health", handleHealth(logger))

	// Generation endpoint
	mux.HandleFunc("/api/generate-seeds", handleGenerateSeeds(service, logger))

	return mux
}

// NewAPIServer creates a new HTTP server for API endpoints.
func NewAPIServer(params ServerParams) *http.Server {
	server := &http.Server{
		Addr:              params.Config.APIAddr,
		Handler:           NewHandler(params.GenerateService, params.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Register lifecycle hooks
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				params.Logger.Info("API server listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					params.Logger.Fatal("failed to start API server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})

	return server
}

var Module = fx.Module("api",
	fx.Provide(
		fx.Annotate(batch.NewDriver, fx.As(new(BatchRunner))),
		NewGenerateService,
	),
	fx.Invoke(
		NewAPIServer,
	),
)
