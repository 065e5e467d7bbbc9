// Package report fans batch driver events out to the optional integrations:
// run history in Postgres, live progress in Redis and result messages on
// RabbitMQ.
package report

import (
	"batchgen/internal/types"
	"context"
	"reflect"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Reporter consumes driver events. Errors are logged by the Manager and never
// affect the batch.
type Reporter interface {
	Name() string
	Report(ctx context.Context, event types.Event) error
}

type Manager struct {
	reporters []Reporter
	logger    *zap.Logger
}

type ManagerParams struct {
	fx.In
	Logger    *zap.Logger
	Reporters []Reporter `group:"reporters"`
}

func NewManager(p ManagerParams) *Manager {
	m := &Manager{logger: p.Logger}
	for _, r := range p.Reporters {
		if r == nil {
			continue
		}
		rv := reflect.ValueOf(r)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			continue // skip unconfigured reporter
		}
		m.reporters = append(m.reporters, r)
		p.Logger.Debug("reporter registered", zap.String("reporter", r.Name()))
	}
	return m
}

// Reporters lists the active reporter names.
func (m *Manager) Reporters() []string {
	names := make([]string, 0, len(m.reporters))
	for _, r := range m.reporters {
		names = append(names, r.Name())
	}
	return names
}

// Notify implements types.Observer.
func (m *Manager) Notify(ctx context.Context, event types.Event) {
	for _, r := range m.reporters {
		if err := r.Report(ctx, event); err != nil {
			m.logger.Warn("reporter failed",
				zap.String("reporter", r.Name()),
				zap.String("event", string(event.Type)),
				zap.String("run_id", event.RunID),
				zap.Error(err),
			)
		}
	}
}

var ReportersModule = fx.Options(
	fx.Provide(
		fx.Annotate(NewDBReporter, fx.As(new(Reporter)), fx.ResultTags(`group:"reporters"`)),
		fx.Annotate(NewRedisReporter, fx.As(new(Reporter)), fx.ResultTags(`group:"reporters"`)),
		fx.Annotate(NewMQReporter, fx.As(new(Reporter)), fx.ResultTags(`group:"reporters"`)),
		NewManager,
	),
)
