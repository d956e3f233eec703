// Package snapshot saves and restores the whole document in a local slot.
package snapshot

import (
	"clinicdesk/pkg/domain"
	"encoding/json"
	"fmt"
)

// DefaultKey is the slot key the document is stored under.
const DefaultKey = "cdu_data"

// Logger receives corruption reports.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Store serializes documents into a domain.SnapshotSlot.
type Store struct {
	slot   domain.SnapshotSlot
	key    string
	logger Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the slot key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for corruption reports.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a snapshot store over slot.
func New(slot domain.SnapshotSlot, opts ...Option) *Store {
	s := &Store{slot: slot, key: DefaultKey, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the slot key in use.
func (s *Store) Key() string { return s.key }

// Save overwrites the slot with doc.
func (s *Store) Save(doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.slot.Set(s.key, string(data)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the saved document. When the slot is empty or holds a corrupt
// payload it returns the default document with found=false; corruption is
// logged rather than returned. Only slot read failures are errors.
func (s *Store) Load() (domain.Document, bool, error) {
	raw, ok, err := s.slot.Get(s.key)
	if err != nil {
		return domain.NewDocument(), false, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok || raw == "" {
		return domain.NewDocument(), false, nil
	}
	var doc domain.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.logger.Warn("discarding corrupt local snapshot", "key", s.key, "err", err)
		return domain.NewDocument(), false, nil
	}
	return doc, true, nil
}
