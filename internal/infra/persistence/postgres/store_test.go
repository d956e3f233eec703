package postgres

import (
	"clinicdesk/internal/infra/persistence/postgres/testutil"
	"clinicdesk/pkg/domain"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestRemote(t *testing.T) (*Remote, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	remote, err := NewRemote(context.Background(), "")
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	return remote, conn
}

func TestNewRemoteEnsuresRegistryTables(t *testing.T) {
	_, conn := newTestRemote(t)
	created := map[string]bool{}
	for _, stmt := range conn.Execs {
		if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS ") {
			created[strings.Fields(stmt)[5]] = true
		}
	}
	for _, table := range domain.RemoteTables() {
		if !created[table] {
			t.Fatalf("expected DDL for %s, got execs: %v", table, conn.Execs)
		}
	}
}

func TestNewRemoteOpenAndPingErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	if _, err := NewRemote(context.Background(), "dsn"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewRemote(context.Background(), "dsn"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestWriteAllReplacesRows(t *testing.T) {
	ctx := context.Background()
	remote, conn := newTestRemote(t)
	first := []domain.Row{
		{ID: "c1", View: domain.ViewUnimed, Position: 0, Data: json.RawMessage(`{"id":"c1","name":"A"}`)},
		{ID: "c2", View: domain.ViewCassi, Position: 1, Data: json.RawMessage(`{"id":"c2","name":"B"}`)},
	}
	if err := remote.WriteAll(ctx, "script_categories", first); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := remote.WriteAll(ctx, "script_categories", first[1:]); err != nil {
		t.Fatalf("WriteAll second: %v", err)
	}
	if got := len(conn.Tables["script_categories"]); got != 1 {
		t.Fatalf("expected table replaced with 1 row, got %d", got)
	}
	rows, err := remote.ReadAll(ctx, "script_categories")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "c2" || rows[0].View != domain.ViewCassi || rows[0].Position != 1 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if string(rows[0].Data) != `{"id":"c2","name":"B"}` {
		t.Fatalf("unexpected data %s", rows[0].Data)
	}
}

func TestWriteAllFailuresRollBack(t *testing.T) {
	ctx := context.Background()
	remote, conn := newTestRemote(t)
	conn.FailTables = map[string]bool{"exams": true}
	if err := remote.WriteAll(ctx, "exams", []domain.Row{{ID: "e1"}}); err == nil {
		t.Fatalf("expected insert failure")
	}
	conn.FailTables = nil
	conn.FailBegin = true
	if err := remote.WriteAll(ctx, "exams", nil); err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin failure, got %v", err)
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if err := remote.WriteAll(ctx, "exams", nil); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
}

func TestUpsertAndDeleteRow(t *testing.T) {
	ctx := context.Background()
	remote, conn := newTestRemote(t)
	if err := remote.UpsertRow(ctx, domain.ProfilesTable, domain.Row{ID: "ana", Data: json.RawMessage(`{"display_name":"Ana"}`)}); err != nil {
		t.Fatalf("UpsertRow: %v", err)
	}
	if err := remote.UpsertRow(ctx, domain.ProfilesTable, domain.Row{ID: "ana", Data: json.RawMessage(`{"display_name":"Ana Lima"}`)}); err != nil {
		t.Fatalf("UpsertRow overwrite: %v", err)
	}
	rows := conn.Tables[domain.ProfilesTable]
	if len(rows) != 1 || rows[0]["data"] != `{"display_name":"Ana Lima"}` {
		t.Fatalf("expected single overwritten row, got %v", rows)
	}
	if err := remote.DeleteRow(ctx, domain.ProfilesTable, "ana"); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	if err := remote.DeleteRow(ctx, domain.ProfilesTable, "ana"); err != nil {
		t.Fatalf("DeleteRow twice: %v", err)
	}
	if len(conn.Tables[domain.ProfilesTable]) != 0 {
		t.Fatalf("expected empty profiles table")
	}
}

func TestUnknownTablesRejected(t *testing.T) {
	ctx := context.Background()
	remote, conn := newTestRemote(t)
	before := len(conn.Execs)
	if _, err := remote.ReadAll(ctx, "pg_user"); err == nil {
		t.Fatalf("expected read rejection")
	}
	if err := remote.WriteAll(ctx, "users; --", nil); err == nil {
		t.Fatalf("expected write rejection")
	}
	if err := remote.UpsertRow(ctx, "x", domain.Row{}); err == nil {
		t.Fatalf("expected upsert rejection")
	}
	if err := remote.DeleteRow(ctx, "x", "id"); err == nil {
		t.Fatalf("expected delete rejection")
	}
	if len(conn.Execs) != before {
		t.Fatalf("rejected calls must not reach the database")
	}
}

func TestReadAllErrors(t *testing.T) {
	ctx := context.Background()
	remote, conn := newTestRemote(t)
	conn.FailTables = map[string]bool{"notices": true}
	if _, err := remote.ReadAll(ctx, "notices"); err == nil || !strings.Contains(err.Error(), "select notices") {
		t.Fatalf("expected select error, got %v", err)
	}
	conn.FailTables = nil
	conn.RowsErr = errors.New("iterate fail")
	if _, err := remote.ReadAll(ctx, "notices"); err == nil || !strings.Contains(err.Error(), "iterate notices") {
		t.Fatalf("expected iterate error, got %v", err)
	}
}

func TestRemoteDBExposesHandle(t *testing.T) {
	remote, _ := newTestRemote(t)
	if remote.DB() == nil {
		t.Fatalf("expected db handle")
	}
}
