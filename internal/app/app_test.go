package app

import (
	"bytes"
	"clinicdesk/internal/config"
	"clinicdesk/internal/core"
	"clinicdesk/pkg/domain"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Slot.Driver = "memory"
	cfg.Remote.Driver = "memory"
	cfg.Blob.Driver = "memory"
	cfg.Log.Format = "json"
	cfg.Identity = "user-1"
	return cfg
}

func TestNewWiresMemoryBackends(t *testing.T) {
	var logs bytes.Buffer
	cfg := memoryConfig()
	cfg.Log.Level = "debug"
	a, err := New(context.Background(), cfg, WithLogWriter(&logs))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	_, err = a.Store.Notices().Add(domain.Notice{Title: "Aviso"})
	require.NoError(t, err)
	require.NoError(t, a.Service.PushSnapshot(context.Background()))
	require.NoError(t, a.Service.PullAll(context.Background()))
	assert.Len(t, a.Store.Notices().List(), 1)

	stats := a.Metrics.Snapshot().Operations
	assert.Equal(t, int64(1), stats[core.OpPush].Success)
	assert.Equal(t, int64(1), stats[core.OpPull].Success)

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	out := logs.String()
	assert.Contains(t, out, `"audit":"push"`)
	assert.Contains(t, out, `"message":"operation completed"`)
}

func TestNewWithFileBackends(t *testing.T) {
	dir := t.TempDir()
	cfg := memoryConfig()
	cfg.Slot.Driver = "sqlite"
	cfg.Slot.Path = filepath.Join(dir, "snapshot.db")
	cfg.Blob.Driver = "fs"
	cfg.Blob.FSRoot = filepath.Join(dir, "archive")
	cfg.Log.TracePath = filepath.Join(dir, "trace.jsonl")
	clock := core.ClockFunc(func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) })

	a, err := New(context.Background(), cfg, WithLogWriter(&bytes.Buffer{}), WithoutRemote(), WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, a.Store.SetUserName("Ana"))
	require.NoError(t, a.Service.SaveLocalSnapshot(context.Background()))
	info, err := a.Service.ArchiveBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "backups/portal-backup-2024-03-05.json", info.Key)
	require.Error(t, a.Service.PullAll(context.Background()), "remote was skipped")
	require.NoError(t, a.Close())

	trace, err := os.ReadFile(cfg.Log.TracePath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(trace), "\n"))

	reopened, err := New(context.Background(), cfg, WithLogWriter(&bytes.Buffer{}), WithoutRemote())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	found, err := reopened.Service.LoadLocalSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ana", reopened.Store.UserName())
}

func TestNewRejectsUnknownDrivers(t *testing.T) {
	cfg := memoryConfig()
	cfg.Slot.Driver = "redis"
	_, err := New(context.Background(), cfg, WithLogWriter(&bytes.Buffer{}))
	require.ErrorContains(t, err, "open snapshot slot")

	cfg = memoryConfig()
	cfg.Log.Format = "xml"
	_, err = New(context.Background(), cfg, WithLogWriter(&bytes.Buffer{}))
	require.ErrorContains(t, err, "unknown log format")
}
