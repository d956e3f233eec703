// Package core reconciles the in-memory entity store with the remote
// database, the local snapshot slot and the backup archive.
package core

import (
	"clinicdesk/internal/backup"
	"clinicdesk/internal/blob"
	"clinicdesk/internal/infra/persistence/memory"
	"clinicdesk/internal/snapshot"
	"clinicdesk/pkg/domain"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Operation names reported to loggers, metrics, traces and audit entries.
const (
	OpPull      = "pull"
	OpPush      = "push"
	OpMigrate   = "migrate"
	OpSaveLocal = "save_local"
	OpLoadLocal = "load_local"
	OpImport    = "import_backup"
	OpArchive   = "archive_backup"
)

// DefaultPullTimeout bounds PullAll when no timeout is configured.
const DefaultPullTimeout = 15 * time.Second

// Service coordinates the entity store with its persistence targets.
type Service struct {
	store       *memory.Store
	remote      domain.RemoteStore
	local       *snapshot.Store
	archive     blob.Store
	identity    string
	pullTimeout time.Duration
	newID       func() string

	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder

	latches *latchSet
	loading atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithPullTimeout bounds how long PullAll waits for the remote.
func WithPullTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pullTimeout = d
		}
	}
}

// WithIdentity sets the resolved identity whose profile row carries the
// user name.
func WithIdentity(id string) Option {
	return func(s *Service) { s.identity = id }
}

// WithIDGenerator overrides the id source used when migrating backups.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithArchive sets the blob store ArchiveBackup writes to.
func WithArchive(store blob.Store) Option {
	return func(s *Service) { s.archive = store }
}

// NewService constructs a service over store. remote and local may be nil,
// in which case the operations needing them fail.
func NewService(store *memory.Store, remote domain.RemoteStore, local *snapshot.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		remote:      remote,
		local:       local,
		pullTimeout: DefaultPullTimeout,
		newID:       uuid.NewString,
		logger:      noopLogger{},
		clock:       systemClock{},
		metrics:     noopMetrics{},
		tracer:      noopTracer{},
		audit:       noopAudit{},
		latches:     newLatchSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the entity store.
func (s *Service) Store() *memory.Store { return s.store }

// IsLoading reports whether a pull is in progress.
func (s *Service) IsLoading() bool { return s.loading.Load() }

// HasUnsavedChanges reports whether the document differs from the last
// persisted state.
func (s *Service) HasUnsavedChanges() bool { return s.store.HasUnsavedChanges() }

type opScope struct {
	domains []domain.DomainKey
}

// run wraps an operation with tracing, metrics, audit and logging.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context, scope *opScope) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	began := time.Now()
	scope := &opScope{}
	err := fn(ctx, scope)
	elapsed := time.Since(began)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	entry := AuditEntry{
		Operation: op,
		Status:    AuditStatusSuccess,
		Duration:  elapsed,
		Timestamp: s.clock.Now(),
	}
	for _, d := range scope.domains {
		entry.Domains = append(entry.Domains, string(d))
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Warn("operation failed", "op", op, "kind", ErrorKind(err), "error", err)
	} else {
		s.logger.Info("operation completed", "op", op, "domains", len(scope.domains), "duration", elapsed)
	}
	s.audit.Record(ctx, entry)
	return err
}

func (s *Service) requireRemote() error {
	if s.remote == nil {
		return errors.New("no remote store configured")
	}
	return nil
}

func (s *Service) requireLocal() error {
	if s.local == nil {
		return errors.New("no local snapshot configured")
	}
	return nil
}

// PullAll replaces the working document with the remote content. The
// document is swapped in at once and marked persisted; on any failure it is
// left untouched.
func (s *Service) PullAll(ctx context.Context) error {
	return s.run(ctx, OpPull, func(ctx context.Context, scope *opScope) error {
		if err := s.requireRemote(); err != nil {
			return err
		}
		keys := allDomains()
		release, err := s.latches.acquire(OpPull, keys)
		if err != nil {
			return err
		}
		defer release()
		scope.domains = keys

		s.loading.Store(true)
		defer s.loading.Store(false)

		rows, err := s.fetchAll(ctx)
		if err != nil {
			return err
		}
		if remoteEmpty(rows) {
			return ErrRemoteEmpty
		}
		doc, skipped := decodeDocument(rows)
		for _, sk := range skipped {
			s.logger.Warn("skipping remote row", "table", sk.Table, "id", sk.ID, "error", sk.Err)
		}
		if name, ok := profileName(rows[domain.ProfilesTable], s.identity); ok {
			doc.UserName = name
		} else {
			doc.UserName = s.store.UserName()
		}
		s.store.ReplaceDocument(doc, true)
		return nil
	})
}

type fetchResult struct {
	rows map[string][]domain.Row
	err  error
}

// fetchAll reads every remote table in a goroutine so a remote that ignores
// cancellation cannot hold the caller past the pull timeout. Late results
// land in the buffered channel and are dropped.
func (s *Service) fetchAll(ctx context.Context) (map[string][]domain.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pullTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		rows := make(map[string][]domain.Row)
		for _, table := range domain.RemoteTables() {
			r, err := s.remote.ReadAll(ctx, table)
			if err != nil {
				done <- fetchResult{err: fmt.Errorf("read %s: %w", table, err)}
				return
			}
			rows[table] = r
		}
		done <- fetchResult{rows: rows}
	}()

	timer := time.NewTimer(s.pullTimeout)
	defer timer.Stop()
	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrPullTimeout, res.err)
		}
		return res.rows, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrPullTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrPullTimeout, s.pullTimeout)
	}
}

func remoteEmpty(rows map[string][]domain.Row) bool {
	for table, list := range rows {
		if table != domain.ProfilesTable && len(list) > 0 {
			return false
		}
	}
	return true
}

// PushSnapshot overwrites every remote table with a consistent snapshot of
// the document. Table failures are joined; the dirty flag clears only when
// every write succeeded. Local state is never rolled back.
func (s *Service) PushSnapshot(ctx context.Context) error {
	return s.run(ctx, OpPush, func(ctx context.Context, scope *opScope) error {
		if err := s.requireRemote(); err != nil {
			return err
		}
		keys := allDomains()
		release, err := s.latches.acquire(OpPush, keys)
		if err != nil {
			return err
		}
		defer release()
		scope.domains = keys

		doc, fp := s.store.Snapshot()
		out, err := encodeDocument(doc)
		if err != nil {
			return err
		}
		var errs []error
		for _, table := range domain.RemoteTables() {
			if table == domain.ProfilesTable {
				continue
			}
			if err := s.remote.WriteAll(ctx, table, out[table]); err != nil {
				errs = append(errs, fmt.Errorf("write %s: %w", table, err))
			}
		}
		if s.identity != "" && doc.UserName != "" {
			if err := s.upsertProfile(ctx, doc.UserName); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		s.store.MarkPersisted(fp)
		return nil
	})
}

func (s *Service) upsertProfile(ctx context.Context, name string) error {
	row, err := profileRow(s.identity, name)
	if err == nil {
		err = s.remote.UpsertRow(ctx, domain.ProfilesTable, row)
	}
	if err != nil {
		return fmt.Errorf("upsert %s: %w", domain.ProfilesTable, err)
	}
	return nil
}

// MigrationReport summarizes a backup migration.
type MigrationReport struct {
	// Domains lists the domains written successfully, in registry order.
	Domains []domain.DomainKey
	// Rows counts the rows upserted per remote table.
	Rows map[string]int
}

// MigrateFromBackup upserts the domains present in a backup payload into the
// remote under fresh ids. A malformed payload fails before any write. The
// working document is never modified. When some domains fail the report
// lists the written ones and the error is a *domain.PartialMigrationError,
// which also counts the rows a failed domain left behind.
func (s *Service) MigrateFromBackup(ctx context.Context, text string) (MigrationReport, error) {
	report := MigrationReport{Rows: map[string]int{}}
	err := s.run(ctx, OpMigrate, func(ctx context.Context, scope *opScope) error {
		if err := s.requireRemote(); err != nil {
			return err
		}
		payload, err := backup.Parse([]byte(text))
		if err != nil {
			return err
		}
		keys := payload.Domains()
		release, err := s.latches.acquire(OpMigrate, keys)
		if err != nil {
			return err
		}
		defer release()
		scope.domains = keys

		doc := remintDocument(memory.NormalizeDocument(payload.Document, s.newID), s.newID)
		partial := &domain.PartialMigrationError{Failed: map[domain.DomainKey]error{}, Written: map[domain.DomainKey]int{}}
		for _, key := range keys {
			written, err := s.migrateDomain(ctx, doc, key, report.Rows)
			if err != nil {
				s.logger.Warn("migration of domain failed", "domain", key, "rows_written", written, "error", err)
				partial.Failed[key] = err
				if written > 0 {
					partial.Written[key] = written
				}
				continue
			}
			partial.Succeeded = append(partial.Succeeded, key)
		}
		report.Domains = partial.Succeeded
		if len(partial.Failed) > 0 {
			return partial
		}
		return nil
	})
	return report, err
}

// migrateDomain upserts one domain's rows, adding them to counts per table.
// It returns the number of rows written, which is non-zero on error when the
// domain failed partway.
func (s *Service) migrateDomain(ctx context.Context, doc domain.Document, key domain.DomainKey, counts map[string]int) (int, error) {
	if key == domain.DomainUserName {
		if s.identity == "" {
			s.logger.Warn("no identity configured; user name not migrated")
			return 0, nil
		}
		if err := s.upsertProfile(ctx, doc.UserName); err != nil {
			return 0, err
		}
		counts[domain.ProfilesTable]++
		return 1, nil
	}
	out := tableRows{}
	if err := encodeDomain(out, doc, key); err != nil {
		return 0, err
	}
	written := 0
	for _, table := range domain.MustLookup(key).Tables() {
		for _, row := range out[table] {
			if err := s.remote.UpsertRow(ctx, table, row); err != nil {
				return written, fmt.Errorf("upsert %s: %w", table, err)
			}
			counts[table]++
			written++
		}
	}
	return written, nil
}

// Source names where Bootstrap found the document.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
)

// Bootstrap pulls the remote and falls back to the local snapshot when the
// pull fails or the remote is empty.
func (s *Service) Bootstrap(ctx context.Context) (Source, error) {
	pullErr := s.PullAll(ctx)
	if pullErr == nil {
		return SourceRemote, nil
	}
	if errors.Is(pullErr, ErrRemoteEmpty) {
		s.logger.Info("remote empty; using local snapshot")
	} else {
		s.logger.Warn("remote pull failed; using local snapshot", "error", pullErr)
	}
	found, err := s.LoadLocalSnapshot(ctx)
	if err != nil {
		return "", errors.Join(pullErr, err)
	}
	if found {
		return SourceLocal, nil
	}
	return SourceDefault, nil
}

// SaveLocalSnapshot writes the document to the local slot and clears the
// dirty flag for the saved state.
func (s *Service) SaveLocalSnapshot(ctx context.Context) error {
	return s.run(ctx, OpSaveLocal, func(context.Context, *opScope) error {
		if err := s.requireLocal(); err != nil {
			return err
		}
		doc, fp := s.store.Snapshot()
		if err := s.local.Save(doc); err != nil {
			return err
		}
		s.store.MarkPersisted(fp)
		return nil
	})
}

// LoadLocalSnapshot installs the locally saved document, reporting whether
// one was found. A missing or corrupt snapshot leaves the store untouched.
func (s *Service) LoadLocalSnapshot(ctx context.Context) (bool, error) {
	var found bool
	err := s.run(ctx, OpLoadLocal, func(context.Context, *opScope) error {
		if err := s.requireLocal(); err != nil {
			return err
		}
		doc, ok, err := s.local.Load()
		if err != nil {
			return err
		}
		if ok {
			s.store.ReplaceDocument(doc, true)
		}
		found = ok
		return nil
	})
	return found, err
}

// ExportBackup encodes the whole document as a backup payload.
func (s *Service) ExportBackup() ([]byte, error) {
	return backup.Export(s.store.Document())
}

// ImportBackup replaces the working document with a backup payload. Missing
// keys reset their domains to defaults. The document stays dirty until it is
// saved or pushed.
func (s *Service) ImportBackup(ctx context.Context, data []byte) ([]domain.DomainKey, error) {
	var keys []domain.DomainKey
	err := s.run(ctx, OpImport, func(_ context.Context, scope *opScope) error {
		payload, err := backup.Parse(data)
		if err != nil {
			return err
		}
		keys = payload.Domains()
		scope.domains = keys
		s.store.ReplaceDocument(payload.Document, false)
		return nil
	})
	return keys, err
}

// ArchiveBackup writes the exported document to the archive blob store.
func (s *Service) ArchiveBackup(ctx context.Context) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, OpArchive, func(ctx context.Context, scope *opScope) error {
		if s.archive == nil {
			return ErrNoArchive
		}
		doc := s.store.Document()
		data, err := backup.Export(doc)
		if err != nil {
			return err
		}
		payload, err := backup.Parse(data)
		if err != nil {
			return err
		}
		scope.domains = payload.Domains()
		names := make([]string, len(scope.domains))
		for i, d := range scope.domains {
			names[i] = string(d)
		}
		info, err = backup.Archive(ctx, s.archive, data, s.clock.Now(), names)
		return err
	})
	return info, err
}

// Status is a point-in-time summary of the service.
type Status struct {
	Loading  bool
	Dirty    bool
	UserName string
	Identity string
	// Records counts items per domain.
	Records map[domain.DomainKey]int
}

// Status summarizes the working document.
func (s *Service) Status() Status {
	doc := s.store.Document()
	st := Status{
		Loading:  s.IsLoading(),
		Dirty:    s.store.HasUnsavedChanges(),
		UserName: doc.UserName,
		Identity: s.identity,
		Records:  make(map[domain.DomainKey]int),
	}
	for _, schema := range domain.Schemas() {
		out := tableRows{}
		if err := encodeDomain(out, doc, schema.Key); err != nil {
			continue
		}
		st.Records[schema.Key] = len(out[schema.ItemTable])
	}
	return st
}
