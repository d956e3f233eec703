package core

import (
	"clinicdesk/pkg/domain"
	"context"
	"errors"
)

var (
	// ErrRemoteEmpty is returned by PullAll when no registry table holds a
	// row. The working document is left untouched.
	ErrRemoteEmpty = errors.New("remote store is empty")
	// ErrPullTimeout is returned by PullAll when the remote does not answer
	// within the pull timeout.
	ErrPullTimeout = errors.New("remote pull timed out")
	// ErrNoArchive is returned by ArchiveBackup when no blob store is
	// configured.
	ErrNoArchive = errors.New("no backup archive configured")
)

// ErrorKind classifies err for logs and traces.
func ErrorKind(err error) string {
	var (
		busy    domain.BusyError
		parse   domain.ParseError
		partial *domain.PartialMigrationError
		invalid domain.ValidationError
		missing domain.NotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &busy):
		return "busy"
	case errors.Is(err, ErrPullTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrRemoteEmpty):
		return "empty"
	case errors.As(err, &parse):
		return "parse"
	case errors.As(err, &partial):
		return "partial"
	case errors.As(err, &invalid):
		return "validation"
	case errors.As(err, &missing):
		return "not_found"
	default:
		return "io"
	}
}
