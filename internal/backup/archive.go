package backup

import (
	"bytes"
	"clinicdesk/internal/blob"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ArchivePrefix is the key prefix backup archives are stored under.
const ArchivePrefix = "backups/"

const maxArchiveAttempts = 100

// ArchiveKey returns the key for the n-th archive written on t's day. The
// first archive of a day uses the plain file name.
func ArchiveKey(t time.Time, n int) string {
	name := Filename(t)
	if n > 1 {
		name = strings.TrimSuffix(name, ".json") + fmt.Sprintf("-%d.json", n)
	}
	return ArchivePrefix + name
}

// Archive writes data to store under the first free key for t's day. Stores
// never overwrite, so earlier archives of the same day are kept.
func Archive(ctx context.Context, store blob.Store, data []byte, t time.Time, domains []string) (blob.Info, error) {
	opts := blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"domains": strings.Join(domains, ",")},
	}
	for n := 1; n <= maxArchiveAttempts; n++ {
		info, err := store.Put(ctx, ArchiveKey(t, n), bytes.NewReader(data), opts)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, blob.ErrExists) {
			return blob.Info{}, fmt.Errorf("archive backup: %w", err)
		}
	}
	return blob.Info{}, fmt.Errorf("archive backup: no free key for %s", Filename(t))
}

// ListArchives returns the stored archives sorted by key.
func ListArchives(ctx context.Context, store blob.Store) ([]blob.Info, error) {
	return store.List(ctx, ArchivePrefix)
}

// OpenArchive reads and parses a stored archive.
func OpenArchive(ctx context.Context, store blob.Store, key string) (Payload, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return Payload{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Payload{}, err
	}
	return Parse(data)
}
