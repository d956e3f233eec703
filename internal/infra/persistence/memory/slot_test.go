package memory

import (
	"clinicdesk/pkg/domain"
	"errors"
	"strings"
	"testing"
)

func TestSlotCapacity(t *testing.T) {
	slot := NewSlot(8)
	if _, ok, err := slot.Get("cdu_data"); ok || err != nil {
		t.Fatalf("expected empty slot, ok=%v err=%v", ok, err)
	}
	if err := slot.Set("cdu_data", "small"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := slot.Set("cdu_data", strings.Repeat("x", 9)); !errors.Is(err, domain.ErrSlotCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if v, ok, _ := slot.Get("cdu_data"); !ok || v != "small" {
		t.Fatalf("previous value must survive, got %q", v)
	}
	unbounded := &Slot{}
	if err := unbounded.Set("k", strings.Repeat("x", 1<<16)); err != nil {
		t.Fatalf("unbounded set: %v", err)
	}
}
