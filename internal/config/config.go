// Package config loads clinicdesk settings from an optional YAML file and
// CLINICDESK_* environment overrides.
//
//	CLINICDESK_CONFIG: path to the YAML file when no path is given
//	CLINICDESK_SLOT_DRIVER: memory|sqlite (default sqlite)
//	CLINICDESK_SQLITE_PATH: snapshot database file (default ./clinicdesk.db)
//	CLINICDESK_SLOT_MAX_BYTES: snapshot size limit, 0 for none
//	CLINICDESK_REMOTE_DRIVER: memory|postgres (default postgres)
//	CLINICDESK_POSTGRES_DSN: postgres DSN when remote driver=postgres
//	CLINICDESK_PULL_TIMEOUT: pull timeout as a Go duration (default 15s)
//	CLINICDESK_IDENTITY: identity whose profile row carries the user name
//	CLINICDESK_LOG_LEVEL, CLINICDESK_LOG_FORMAT: logger level and json|console
//	CLINICDESK_LOG_PATH, CLINICDESK_TRACE_PATH: log and trace files
//	CLINICDESK_BLOB_DRIVER: fs|memory|s3 (default fs)
//	CLINICDESK_BLOB_FS_ROOT and CLINICDESK_BLOB_S3_*: archive store settings
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "CLINICDESK_CONFIG"

// Defaults.
const (
	DefaultSQLitePath  = "./clinicdesk.db"
	DefaultSlotBytes   = 5 * 1024 * 1024
	DefaultPullTimeout = 15 * time.Second
	DefaultBlobRoot    = "./backups"
)

// Config is the full runtime configuration.
type Config struct {
	Identity    string        `yaml:"identity"`
	PullTimeout time.Duration `yaml:"pull_timeout"`
	Slot        SlotConfig    `yaml:"slot"`
	Remote      RemoteConfig  `yaml:"remote"`
	Blob        BlobConfig    `yaml:"blob"`
	Log         LogConfig     `yaml:"log"`
}

// SlotConfig selects the local snapshot slot.
type SlotConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	MaxBytes int    `yaml:"max_bytes"`
}

// RemoteConfig selects the remote store.
type RemoteConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// BlobConfig selects the backup archive store.
type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config mirrors the S3 archive settings.
type S3Config struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	PathStyle       bool   `yaml:"path_style"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
	// TracePath receives one JSON line per finished operation when set.
	TracePath string `yaml:"trace_path"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		PullTimeout: DefaultPullTimeout,
		Slot:        SlotConfig{Driver: "sqlite", Path: DefaultSQLitePath, MaxBytes: DefaultSlotBytes},
		Remote:      RemoteConfig{Driver: "postgres"},
		Blob:        BlobConfig{Driver: "fs", FSRoot: DefaultBlobRoot},
		Log:         LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path (or $CLINICDESK_CONFIG when path is empty) over the
// defaults, applies environment overrides and validates the result. A missing
// file is only an error when a path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304: operator-supplied config path
		switch {
		case err == nil:
			if err := decode(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("CLINICDESK_IDENTITY", &cfg.Identity)
	str("CLINICDESK_SLOT_DRIVER", &cfg.Slot.Driver)
	str("CLINICDESK_SQLITE_PATH", &cfg.Slot.Path)
	str("CLINICDESK_REMOTE_DRIVER", &cfg.Remote.Driver)
	str("CLINICDESK_POSTGRES_DSN", &cfg.Remote.DSN)
	str("CLINICDESK_LOG_LEVEL", &cfg.Log.Level)
	str("CLINICDESK_LOG_FORMAT", &cfg.Log.Format)
	str("CLINICDESK_LOG_PATH", &cfg.Log.Path)
	str("CLINICDESK_TRACE_PATH", &cfg.Log.TracePath)
	str("CLINICDESK_BLOB_DRIVER", &cfg.Blob.Driver)
	str("CLINICDESK_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("CLINICDESK_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("CLINICDESK_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("CLINICDESK_BLOB_S3_PREFIX", &cfg.Blob.S3.Prefix)
	str("CLINICDESK_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("CLINICDESK_BLOB_S3_ACCESS_KEY_ID", &cfg.Blob.S3.AccessKeyID)
	str("CLINICDESK_BLOB_S3_SECRET_ACCESS_KEY", &cfg.Blob.S3.SecretAccessKey)
	str("CLINICDESK_BLOB_S3_SESSION_TOKEN", &cfg.Blob.S3.SessionToken)

	if v, ok := lookup("CLINICDESK_SLOT_MAX_BYTES"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CLINICDESK_SLOT_MAX_BYTES: %w", err)
		}
		cfg.Slot.MaxBytes = n
	}
	if v, ok := lookup("CLINICDESK_PULL_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CLINICDESK_PULL_TIMEOUT: %w", err)
		}
		cfg.PullTimeout = d
	}
	if v, ok := lookup("CLINICDESK_BLOB_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CLINICDESK_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Blob.S3.PathStyle = b
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported value %q (want %s)", field, value, strings.Join(allowed, "|"))
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(oneOf("slot.driver", c.Slot.Driver, "memory", "sqlite"))
	add(oneOf("remote.driver", c.Remote.Driver, "memory", "postgres"))
	add(oneOf("blob.driver", c.Blob.Driver, "fs", "memory", "s3"))
	add(oneOf("log.format", c.Log.Format, "json", "console"))
	if c.Slot.MaxBytes < 0 {
		add(errors.New("slot.max_bytes: must not be negative"))
	}
	if c.PullTimeout <= 0 {
		add(errors.New("pull_timeout: must be positive"))
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		add(errors.New("blob.s3.bucket: required for the s3 driver"))
	}
	return errors.Join(errs...)
}
