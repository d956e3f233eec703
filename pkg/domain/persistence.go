package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrSlotCapacity is returned by a SnapshotSlot when a value exceeds its
// capacity. The previous value is kept.
var ErrSlotCapacity = errors.New("snapshot slot capacity exceeded")

// SnapshotSlot is a durable key/value slot holding serialized documents.
type SnapshotSlot interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Row is one remote record. ParentID links items to categories and contact
// points to groups; View carries the view key of nested categories or the
// section of info tags. Data is the JSON encoding of the record.
type Row struct {
	ID       string          `json:"id"`
	ParentID string          `json:"parent_id,omitempty"`
	View     string          `json:"view,omitempty"`
	Position int             `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// RemoteStore is the remote database capability consumed by reconciliation.
// Tables are named by the schema registry.
type RemoteStore interface {
	ReadAll(ctx context.Context, table string) ([]Row, error)
	// WriteAll replaces the table's rows with rows.
	WriteAll(ctx context.Context, table string, rows []Row) error
	UpsertRow(ctx context.Context, table string, row Row) error
	DeleteRow(ctx context.Context, table, id string) error
}
