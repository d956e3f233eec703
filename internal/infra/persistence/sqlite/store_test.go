package sqlite

import (
	"clinicdesk/pkg/domain"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const stateTable = "state"

func TestSlotPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	slot, err := NewSlot(path, 0)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if _, ok, err := slot.Get("cdu_data"); ok || err != nil {
		t.Fatalf("expected empty slot, ok=%v err=%v", ok, err)
	}
	if err := slot.Set("cdu_data", `{"userName":"Ana"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := slot.Set("cdu_data", `{"userName":"Bia"}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := slot.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewSlot(path, 0)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	v, ok, err := reloaded.Get("cdu_data")
	if err != nil || !ok || v != `{"userName":"Bia"}` {
		t.Fatalf("unexpected reload value %q ok=%v err=%v", v, ok, err)
	}
	if reloaded.Path() != path {
		t.Fatalf("unexpected path %s", reloaded.Path())
	}
}

func TestSlotCreatesStateTable(t *testing.T) {
	slot, err := NewSlot(filepath.Join(t.TempDir(), "state.db"), 0)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = slot.Close() })
	var tableName string
	if err := slot.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name= ?", stateTable).Scan(&tableName); err != nil {
		t.Fatalf("lookup state table: %v", err)
	}
	if tableName != stateTable {
		t.Fatalf("expected state table, got %s", tableName)
	}
}

func TestSlotCapacity(t *testing.T) {
	slot, err := NewSlot(filepath.Join(t.TempDir(), "state.db"), 16)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = slot.Close() })
	if err := slot.Set("cdu_data", "ok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := slot.Set("cdu_data", strings.Repeat("x", 17)); !errors.Is(err, domain.ErrSlotCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if v, _, _ := slot.Get("cdu_data"); v != "ok" {
		t.Fatalf("previous value must survive, got %q", v)
	}
}
