package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/audit/retention"
	"taxwise-hq/sentinel/pkg/audit/storage"
	"taxwise-hq/sentinel/pkg/config"
	"taxwise-hq/sentinel/pkg/telemetry/errtrack"
	"taxwise-hq/sentinel/pkg/telemetry/health"
	"taxwise-hq/sentinel/pkg/telemetry/logging"
	"taxwise-hq/sentinel/pkg/telemetry/metrics"
	"taxwise-hq/sentinel/pkg/telemetry/monitor"
	"taxwise-hq/sentinel/pkg/telemetry/performance"
	"taxwise-hq/sentinel/pkg/telemetry/sink"
	"taxwise-hq/sentinel/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Option customizes New.
type Option func(*options)

type options struct {
	writer        io.Writer
	sinks         []sink.Sink
	traceExporter sdktrace.SpanExporter
	global        bool
	runtime       bool
}

// WithLogWriter sends log output to w instead of stdout.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithSink adds s next to the logger sink.
func WithSink(s sink.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s) }
}

// WithTraceExporter exports spans to exp.
func WithTraceExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.traceExporter = exp }
}

// WithoutGlobal leaves the default slog logger and the global OpenTelemetry
// provider untouched.
func WithoutGlobal() Option {
	return func(o *options) { o.global = false }
}

// WithoutRuntimeMetrics skips the Go runtime and process collectors.
func WithoutRuntimeMetrics() Option {
	return func(o *options) { o.runtime = false }
}

// Provider owns every telemetry component built from one configuration.
type Provider struct {
	config *config.Config
	build  BuildInfo

	logger     *logging.Logger
	sink       sink.Sink
	collector  *metrics.Collector
	tracer     *tracing.Tracer
	recorder   *performance.Recorder
	aggregator *errtrack.Aggregator
	sweeper    *errtrack.Sweeper
	audit      *audit.Logger
	storage    audit.Storage
	pruner     *retention.Pruner
	monitor    *monitor.Monitor
	health     *health.Checker
}

// New builds a Provider from cfg. Nothing is scheduled until Start.
func New(cfg *config.Config, build BuildInfo, opts ...Option) (*Provider, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	o := options{global: true, runtime: true}
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := logging.NewFromConfig(&cfg.Telemetry.Logging, o.writer)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if o.global {
		slog.SetDefault(logger.Slog())
	}

	p := &Provider{config: cfg, build: build, logger: logger}

	var out sink.Sink = sink.NewLoggerSink(logger)
	if len(o.sinks) > 0 {
		out = append(sink.MultiSink{out}, o.sinks...)
	}
	p.sink = out

	registry := prometheus.NewRegistry()
	if o.runtime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	p.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, registry)

	var tracerOpts []tracing.Option
	if o.traceExporter != nil {
		tracerOpts = append(tracerOpts, tracing.WithExporter(o.traceExporter))
	}
	if !o.global {
		tracerOpts = append(tracerOpts, tracing.WithoutGlobal())
	}
	p.tracer, err = tracing.New(&cfg.Telemetry.Tracing, cfg.Telemetry.ServiceName, build.Version, tracerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	p.recorder = performance.New(performance.Options{
		WindowSize:    cfg.Performance.WindowSize,
		OutlierFactor: cfg.Performance.OutlierFactor,
		Sink:          p.sink,
		Observer:      p.collector,
	})

	p.aggregator = errtrack.New(errtrack.Options{
		Threshold:     cfg.Errors.AlertThreshold,
		StackDepth:    cfg.Errors.StackDepth,
		MaxSignatures: cfg.Errors.MaxSignatures,
		TTL:           cfg.Errors.SignatureTTL,
		Sink:          p.sink,
		Observer:      p.collector,
	})
	p.sweeper, err = errtrack.NewSweeper(p.aggregator, cfg.Errors.SweepSchedule)
	if err != nil {
		p.closePartial()
		return nil, err
	}

	p.storage, err = OpenAuditStorage(&cfg.Audit.Storage)
	if err != nil {
		p.closePartial()
		return nil, err
	}
	p.audit = audit.NewLogger(audit.Options{
		Salt:     cfg.Audit.Salt,
		Sink:     p.sink,
		Storage:  p.storage,
		Observer: p.collector,
	})
	if p.storage != nil {
		p.pruner = retention.NewPruner(p.storage, RetentionConfig(&cfg.Audit.Retention))
	}

	p.monitor = monitor.New(monitor.Options{
		Recorder:   p.recorder,
		Aggregator: p.aggregator,
		Sink:       p.sink,
		Tracer:     p.tracer,
		Observer:   p.collector,
	})

	p.health = health.New(health.Options{
		Timeout:  cfg.Telemetry.Health.CheckTimeout,
		Observer: p.collector,
	})
	p.registerProbes()

	return p, nil
}

func (p *Provider) registerProbes() {
	hc := p.config.Telemetry.Health

	ping := func(context.Context) error { return nil }
	if pinger, ok := p.storage.(interface{ Ping(context.Context) error }); ok {
		ping = pinger.Ping
	}
	p.health.Register(health.ProbeDependency, health.DependencyProbe("audit_storage", ping, health.BreakerSettings{
		MaxFailures: uint32(hc.BreakerFailures),
		Cooldown:    hc.BreakerCooldown,
	}))
	p.health.Register(health.ProbeToken, health.TokenSelfTest([]byte(hc.TokenSecret)))
	p.health.Register(health.ProbeMemory, health.MemoryProbe(uint64(hc.MemoryThresholdMB)<<20))
}

// OpenAuditStorage opens the configured audit backend. The "none" backend
// returns a nil Storage.
func OpenAuditStorage(cfg *config.AuditStorageConfig) (audit.Storage, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown audit storage backend: %s", cfg.Backend)
	}
}

// RetentionConfig converts the retention section of the configuration file.
func RetentionConfig(cfg *config.AuditRetentionConfig) *retention.Config {
	return &retention.Config{
		RetentionDays: cfg.Days,
		PruneSchedule: cfg.Schedule,
		ArchivePath:   cfg.ArchivePath,
		MaxEntries:    cfg.MaxEntries,
	}
}

// Start begins the background schedules: the error signature sweep and, when
// audit entries are persisted, retention pruning.
func (p *Provider) Start(ctx context.Context) error {
	if err := p.sweeper.Start(); err != nil {
		return err
	}
	if p.pruner != nil {
		if err := p.pruner.Start(ctx); err != nil {
			p.sweeper.Stop()
			return fmt.Errorf("failed to start audit retention: %w", err)
		}
	}
	return nil
}

// ApplyConfig applies the hot-reloadable settings of cfg: the log level and
// the error alert threshold.
func (p *Provider) ApplyConfig(cfg *config.Config) {
	if err := p.logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
		p.logger.Warn("ignoring invalid log level from reload", "level", cfg.Telemetry.Logging.Level, "error", err)
	} else {
		p.logger.Info("log level updated", "level", cfg.Telemetry.Logging.Level)
	}
	if cfg.Errors.AlertThreshold > 0 {
		p.aggregator.SetThreshold(cfg.Errors.AlertThreshold)
	}
}

// Shutdown stops the schedules, flushes spans and closes audit storage.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.sweeper.Stop()
	if p.pruner != nil {
		p.pruner.Stop()
	}

	var errs []error
	if err := p.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}
	if p.storage != nil {
		if err := p.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit storage close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// closePartial releases what New built before failing.
func (p *Provider) closePartial() {
	if p.tracer != nil {
		_ = p.tracer.Shutdown(context.Background())
	}
}

// Component accessors.

func (p *Provider) Config() *config.Config { return p.config }
func (p *Provider) Build() BuildInfo { return p.build }
func (p *Provider) Logger() *logging.Logger { return p.logger }
func (p *Provider) Sink() sink.Sink { return p.sink }
func (p *Provider) Metrics() *metrics.Collector { return p.collector }
func (p *Provider) Tracer() *tracing.Tracer { return p.tracer }
func (p *Provider) Recorder() *performance.Recorder { return p.recorder }
func (p *Provider) Aggregator() *errtrack.Aggregator { return p.aggregator }
func (p *Provider) Audit() *audit.Logger { return p.audit }
func (p *Provider) AuditStorage() audit.Storage { return p.storage }
func (p *Provider) Pruner() *retention.Pruner { return p.pruner }
func (p *Provider) Monitor() *monitor.Monitor { return p.monitor }
func (p *Provider) Health() *health.Checker { return p.health }
