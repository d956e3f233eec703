package core

import (
	"clinicdesk/internal/infra/persistence/memory"
	"clinicdesk/internal/infra/persistence/postgres"
	"clinicdesk/internal/infra/persistence/sqlite"
	"clinicdesk/pkg/domain"
	"context"
	"fmt"
)

// StorageDriver identifies a concrete storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

func noClose() error { return nil }

// OpenSnapshotSlot selects the local snapshot slot. An empty driver means
// sqlite. The returned close function releases the backend.
func OpenSnapshotSlot(driver StorageDriver, path string, maxBytes int) (domain.SnapshotSlot, func() error, error) {
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewSlot(maxBytes), noClose, nil
	case StorageSQLite:
		slot, err := sqlite.NewSlot(path, maxBytes)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot slot driver %s", driver)
	}
}

// OpenRemoteStore selects the remote store. An empty driver means postgres.
func OpenRemoteStore(ctx context.Context, driver StorageDriver, dsn string) (domain.RemoteStore, func() error, error) {
	if driver == "" {
		driver = StoragePostgres
	}
	switch driver {
	case StorageMemory:
		return memory.NewRemote(), noClose, nil
	case StoragePostgres:
		remote, err := postgres.NewRemote(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return remote, remote.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote store driver %s", driver)
	}
}
