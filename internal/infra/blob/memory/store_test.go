package memory

import (
	"bytes"
	"clinicdesk/internal/blob/core"
	"context"
	"errors"
	"io"
	"testing"
)

func TestStore_RoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()
	info, err := store.Put(ctx, "backups/a.json", bytes.NewReader([]byte("{}")), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"a": "1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 2 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	got, rc, err := store.Get(ctx, "backups/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "{}" || got.ContentType != "application/json" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}
	got.Metadata["a"] = "changed"
	head, err := store.Head(ctx, "backups/a.json")
	if err != nil || head.Metadata["a"] != "1" {
		t.Fatalf("metadata leaked through copy: %v %+v", err, head)
	}
}

func TestStore_Errors(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false")
	}
	if _, err := store.Put(ctx, "", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v2")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if ok, err := store.Delete(ctx, "k"); err != nil || !ok {
		t.Fatalf("expected delete true")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("fail") }

func TestStore_PutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	list, _ := store.List(context.Background(), "")
	if len(list) != 0 {
		t.Fatalf("failed put stored a blob: %+v", list)
	}
}

func TestStore_ListPrefixSorted(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, k := range []string{"backups/2.json", "backups/1.json", "tmp/x"} {
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	list, err := store.List(ctx, "backups/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "backups/1.json" {
		t.Fatalf("unexpected list %+v", list)
	}
}
