// Package app assembles a ready-to-use service from a config.Config.
package app

import (
	"clinicdesk/internal/blob"
	"clinicdesk/internal/config"
	"clinicdesk/internal/core"
	"clinicdesk/internal/importer"
	"clinicdesk/internal/infra/persistence/memory"
	"clinicdesk/internal/logging"
	"clinicdesk/internal/snapshot"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// App owns every long-lived component of a clinicdesk process.
type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	Store    *memory.Store
	Service  *core.Service
	Importer *importer.Importer
	Archive  blob.Store
	Metrics  *core.ExpvarMetricsRecorder
	Registry *prometheus.Registry

	closers []func() error
}

type options struct {
	logWriter  io.Writer
	skipRemote bool
	clock      core.Clock
}

// Option tunes New.
type Option func(*options)

// WithLogWriter sends log lines to w instead of stderr. Ignored when the
// config names a log file.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// WithoutRemote skips opening the remote store; remote operations then fail.
func WithoutRemote() Option {
	return func(o *options) { o.skipRemote = true }
}

// WithClock overrides the service time source.
func WithClock(c core.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New opens the configured backends and builds the service. Close releases
// them.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logWriter: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	if err := a.build(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, o options) error {
	cfg := a.Config
	logs, err := logging.New().
		FromBuffer(o.logWriter).
		FromPath(cfg.Log.Path).
		Level(cfg.Log.Level).
		Format(cfg.Log.Format).
		Make()
	if err != nil {
		return err
	}
	a.closers = append(a.closers, logs.Close)
	a.Logger = logs.Logger
	handler := logging.NewHandler(logs.Logger)

	slot, closeSlot, err := core.OpenSnapshotSlot(core.StorageDriver(cfg.Slot.Driver), cfg.Slot.Path, cfg.Slot.MaxBytes)
	if err != nil {
		return fmt.Errorf("open snapshot slot: %w", err)
	}
	a.closers = append(a.closers, closeSlot)

	svcOpts := []core.Option{
		core.WithLogger(handler),
		core.WithAuditRecorder(auditLog{logger: logs.Logger}),
		core.WithPullTimeout(cfg.PullTimeout),
		core.WithIdentity(cfg.Identity),
	}
	if o.clock != nil {
		svcOpts = append(svcOpts, core.WithClock(o.clock))
	}

	a.Metrics = core.NewExpvarMetricsRecorder("")
	prom, err := core.NewPrometheusRecorder(a.Registry, "")
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	svcOpts = append(svcOpts, core.WithMetricsRecorder(fanout{a.Metrics, prom}))

	if cfg.Log.TracePath != "" {
		f, err := os.OpenFile(cfg.Log.TracePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(f)))
	}

	archive, err := blob.Open(ctx, blobConfig(cfg.Blob))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	a.Archive = archive
	svcOpts = append(svcOpts, core.WithArchive(archive))

	a.Store = memory.NewStore()
	local := snapshot.New(slot, snapshot.WithLogger(handler))
	if o.skipRemote {
		a.Service = core.NewService(a.Store, nil, local, svcOpts...)
	} else {
		remote, closeRemote, err := core.OpenRemoteStore(ctx, core.StorageDriver(cfg.Remote.Driver), cfg.Remote.DSN)
		if err != nil {
			return fmt.Errorf("open remote: %w", err)
		}
		a.closers = append(a.closers, closeRemote)
		a.Service = core.NewService(a.Store, remote, local, svcOpts...)
	}
	a.Importer = importer.New(a.Store)
	return nil
}

func blobConfig(c config.BlobConfig) blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Driver),
		FSRoot: c.FSRoot,
		S3: blob.S3Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			Prefix:          c.S3.Prefix,
			Endpoint:        c.S3.Endpoint,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			SessionToken:    c.S3.SessionToken,
			PathStyle:       c.S3.PathStyle,
		},
	}
}

// Close releases the backends in reverse opening order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// fanout forwards observations to several recorders.
type fanout []core.MetricsRecorder

func (f fanout) Observe(ctx context.Context, op string, success bool, d time.Duration) {
	for _, r := range f {
		r.Observe(ctx, op, success, d)
	}
}

// auditLog writes audit entries as structured log events.
type auditLog struct {
	logger zerolog.Logger
}

func (l auditLog) Record(_ context.Context, e core.AuditEntry) {
	ev := l.logger.Debug()
	if e.Status == core.AuditStatusError {
		ev = l.logger.Info()
	}
	ev = ev.Str("audit", e.Operation).
		Str("status", string(e.Status)).
		Strs("domains", e.Domains).
		Dur("duration", e.Duration).
		Time("at", e.Timestamp)
	if e.Error != "" {
		ev = ev.Str("error", e.Error)
	}
	ev.Msg("audit")
}
