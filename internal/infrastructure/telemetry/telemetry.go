package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/laixiangran/zique-assistant-platform-sub001/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Telemetry bundles the providers and instruments of the process
type Telemetry struct {
	Tracer    *TracerProvider
	Meter     *MeterProvider
	Logs      *LoggerProvider
	Profiler  *Profiler
	App       *AppMetrics
	dbMetrics *DBMetrics
	logger    *zap.Logger
}

// Setup creates the tracer, meter and logger providers from cfg and the
// profiler from prof. Disabled parts are no-ops and App records into the global
// no-op meter.
func Setup(ctx context.Context, cfg config.TelemetryConfig, prof config.ProfilingConfig, logger *zap.Logger) (*Telemetry, error) {
	tp, err := NewTracerProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	mp, err := NewMeterProvider(ctx, cfg, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	lp, err := NewLoggerProvider(ctx, cfg, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	t := &Telemetry{Tracer: tp, Meter: mp, Logs: lp, logger: logger}
	t.Profiler, err = NewProfiler(prof, tp, logger)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	t.App, err = NewAppMetrics(mp.Meter(TracerName))
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create application metrics: %w", err)
	}
	return t, nil
}

// InstrumentDB registers database tracing and metrics on db
func (t *Telemetry) InstrumentDB(db *gorm.DB, cfg config.TelemetryConfig, slowThreshold time.Duration) error {
	tracing := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: slowThreshold,
		DBSystem:        db.Dialector.Name(),
	}, t.logger)
	if err := tracing.Register(db); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	m, err := RegisterDBMetrics(db, t.Meter, slowThreshold, t.logger)
	if err != nil {
		return fmt.Errorf("failed to register database metrics: %w", err)
	}
	t.dbMetrics = m
	return nil
}

// Shutdown flushes and stops every provider, collecting all errors
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if err := t.Profiler.Stop(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := t.dbMetrics.Stop(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := t.Meter.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := t.Tracer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := t.Logs.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
