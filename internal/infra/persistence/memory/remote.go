package memory

import (
	"clinicdesk/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrInjected is the default failure returned by Remote fault injection.
var ErrInjected = errors.New("injected remote failure")

// Remote is an in-memory domain.RemoteStore with fault injection for tests.
// FailReads and FailWrites map table names to the error returned by reads or
// writes of that table; the "*" key applies to every table. When Hang is
// non-nil every call blocks until it is closed or the context ends.
type Remote struct {
	mu         sync.Mutex
	tables     map[string][]domain.Row
	FailReads  map[string]error
	FailWrites map[string]error
	Hang       chan struct{}
	calls      int
}

// NewRemote constructs an empty remote.
func NewRemote() *Remote {
	return &Remote{
		tables:     make(map[string][]domain.Row),
		FailReads:  make(map[string]error),
		FailWrites: make(map[string]error),
	}
}

var _ domain.RemoteStore = (*Remote)(nil)

// Seed installs rows without going through fault injection.
func (r *Remote) Seed(table string, rows ...domain.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table] = append(r.tables[table], cloneRows(rows)...)
}

// Rows returns a copy of the rows stored in table.
func (r *Remote) Rows(table string) []domain.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRows(r.tables[table])
}

// Calls returns the number of store calls served so far.
func (r *Remote) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Remote) enter(ctx context.Context, table string, faults map[string]error) error {
	if !domain.IsRemoteTable(table) {
		return fmt.Errorf("unknown remote table %q", table)
	}
	r.mu.Lock()
	r.calls++
	hang := r.Hang
	err, ok := faults[table]
	if !ok {
		err, ok = faults["*"]
	}
	r.mu.Unlock()
	if hang != nil {
		select {
		case <-hang:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ok {
		if err == nil {
			err = ErrInjected
		}
		return fmt.Errorf("%s: %w", table, err)
	}
	return ctx.Err()
}

// ReadAll returns every row of table in stored order.
func (r *Remote) ReadAll(ctx context.Context, table string) ([]domain.Row, error) {
	if err := r.enter(ctx, table, r.FailReads); err != nil {
		return nil, err
	}
	return r.Rows(table), nil
}

// WriteAll replaces every row of table.
func (r *Remote) WriteAll(ctx context.Context, table string, rows []domain.Row) error {
	if err := r.enter(ctx, table, r.FailWrites); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table] = cloneRows(rows)
	return nil
}

// UpsertRow inserts row or replaces the row with the same id.
func (r *Remote) UpsertRow(ctx context.Context, table string, row domain.Row) error {
	if err := r.enter(ctx, table, r.FailWrites); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.tables[table]
	for i := range rows {
		if rows[i].ID == row.ID {
			rows[i] = cloneRow(row)
			return nil
		}
	}
	r.tables[table] = append(rows, cloneRow(row))
	return nil
}

// DeleteRow removes the row with id; unknown ids are a no-op.
func (r *Remote) DeleteRow(ctx context.Context, table, id string) error {
	if err := r.enter(ctx, table, r.FailWrites); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.tables[table]
	for i := range rows {
		if rows[i].ID == id {
			r.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func cloneRow(row domain.Row) domain.Row {
	if row.Data != nil {
		row.Data = append(json.RawMessage(nil), row.Data...)
	}
	return row
}

func cloneRows(rows []domain.Row) []domain.Row {
	if rows == nil {
		return nil
	}
	out := make([]domain.Row, len(rows))
	for i, row := range rows {
		out[i] = cloneRow(row)
	}
	return out
}
