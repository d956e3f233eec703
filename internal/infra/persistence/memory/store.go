// Package memory provides the in-memory entity store holding the working
// document, plus in-memory snapshot slot and remote store implementations used
// for tests and ephemeral environments.
package memory

import (
	"clinicdesk/pkg/domain"
	"crypto/sha256"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fingerprint identifies a document state. Two documents with equal
// fingerprints have identical canonical JSON encodings.
type Fingerprint [sha256.Size]byte

// Store provides an in-memory transactional store over a domain.Document.
type Store struct {
	mu       sync.RWMutex
	doc      domain.Document
	current  Fingerprint
	baseline Fingerprint
	nowFn    func() time.Time
	idFn     func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for date stamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithIDGenerator overrides the id source used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.idFn = fn
		}
	}
}

// NewStore constructs a store holding the default empty document, marked as
// persisted.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nowFn: func() time.Time { return time.Now() },
		idFn:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.doc = domain.NewDocument()
	s.current = fingerprint(s.doc)
	s.baseline = s.current
	return s
}

// Tx is the mutable scope handed to RunInTransaction callbacks. Doc is a
// private copy of the document; it replaces the store's document only when the
// callback returns nil.
type Tx struct {
	Doc   *domain.Document
	now   time.Time
	store *Store
}

// Now returns the transaction timestamp.
func (tx *Tx) Now() time.Time { return tx.now }

// NewID mints a fresh record id.
func (tx *Tx) NewID() string { return tx.store.idFn() }

// RunInTransaction executes fn against a copy of the document and swaps the
// copy in on success. A failed callback leaves the store untouched.
func (s *Store) RunInTransaction(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc.Clone()
	tx := &Tx{Doc: &doc, now: s.nowFn(), store: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.doc = doc
	s.current = fingerprint(doc)
	return nil
}

// View executes fn against a read-only copy of the document.
func (s *Store) View(fn func(doc domain.Document) error) error {
	s.mu.RLock()
	doc := s.doc.Clone()
	s.mu.RUnlock()
	return fn(doc)
}

// Document returns a copy of the current document.
func (s *Store) Document() domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Snapshot returns a copy of the document together with its fingerprint so
// callers can persist it and later acknowledge exactly that state.
func (s *Store) Snapshot() (domain.Document, Fingerprint) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone(), s.current
}

// MarkPersisted records fp as the last persisted state. Mutations made since
// the snapshot that produced fp keep the store dirty.
func (s *Store) MarkPersisted(fp Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = fp
}

// HasUnsavedChanges reports whether the document differs from the last
// persisted state.
func (s *Store) HasUnsavedChanges() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != s.baseline
}

// ReplaceDocument normalizes doc and installs it as the working document.
// When persisted is true the new document also becomes the persisted
// baseline.
func (s *Store) ReplaceDocument(doc domain.Document, persisted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = migrateDocument(doc.Clone(), s.idFn)
	s.current = fingerprint(s.doc)
	if persisted {
		s.baseline = s.current
	}
}

// UserName returns the current user name.
func (s *Store) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.UserName
}

// SetUserName updates the user name; blank names are rejected.
func (s *Store) SetUserName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ValidationError{Domain: domain.DomainUserName, Field: "userName", Reason: "required"}
	}
	return s.RunInTransaction(func(tx *Tx) error {
		tx.Doc.UserName = name
		return nil
	})
}

func fingerprint(doc domain.Document) Fingerprint {
	data, err := json.Marshal(doc)
	if err != nil {
		// Unencodable documents never match a persisted baseline.
		return Fingerprint{}
	}
	return sha256.Sum256(data)
}
