// Package logging builds the zerolog logger used by clinicdesk and adapts it
// to the msg/key-value interface the core service logs through.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Build configures a zerolog logger.
type Build struct {
	writer io.Writer
	path   string
	level  zerolog.Level
	format string
}

// New starts a builder writing JSON at info level to stderr.
func New() *Build {
	return &Build{writer: os.Stderr, level: zerolog.InfoLevel, format: "json"}
}

// FromPath appends log lines to the file at path.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

// FromBuffer writes log lines to w.
func (b *Build) FromBuffer(w io.Writer) *Build {
	if w != nil {
		b.writer = w
	}
	return b
}

// Level sets the minimum level by name (debug, info, warn, error). Unknown
// names keep the current level.
func (b *Build) Level(name string) *Build {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name))); err == nil && name != "" {
		b.level = lvl
	}
	return b
}

// Format selects "json" or "console" output.
func (b *Build) Format(format string) *Build {
	if format != "" {
		b.format = strings.ToLower(format)
	}
	return b
}

// Data is a built logger together with the file it owns, if any.
type Data struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

// Make builds the logger.
func (b *Build) Make() (*Data, error) {
	data := &Data{}
	w := b.writer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		data.LogFile = f
		w = zerolog.SyncWriter(f)
	}
	switch b.format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, NoColor: b.path != ""}
	default:
		return nil, fmt.Errorf("unknown log format %q", b.format)
	}
	data.Logger = zerolog.New(w).Level(b.level).With().Timestamp().Logger()
	return data, nil
}

// Close releases the log file, if any.
func (d *Data) Close() error {
	if d.LogFile == nil {
		return nil
	}
	return d.LogFile.Close()
}

// Handler exposes a zerolog logger through Debug/Info/Warn/Error(msg,
// args...) where args are alternating keys and values.
type Handler struct {
	logger zerolog.Logger
}

// NewHandler wraps logger.
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) Debug(msg string, args ...any) { emit(h.logger.Debug(), msg, args) }
func (h *Handler) Info(msg string, args ...any)  { emit(h.logger.Info(), msg, args) }
func (h *Handler) Warn(msg string, args ...any)  { emit(h.logger.Warn(), msg, args) }
func (h *Handler) Error(msg string, args ...any) { emit(h.logger.Error(), msg, args) }

func emit(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			ev = ev.Interface("!BADKEY", key)
			break
		}
		if err, isErr := args[i+1].(error); isErr {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
