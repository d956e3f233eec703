package blob

import (
	"context"
	"fmt"

	fsstore "clinicdesk/internal/infra/blob/fs"
	memorystore "clinicdesk/internal/infra/blob/memory"
	s3store "clinicdesk/internal/infra/blob/s3"
)

// S3Config re-exports the S3 driver configuration.
type S3Config = s3store.Config

// Config selects and parameterizes an archive store.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open builds the store named by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
