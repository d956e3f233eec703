package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError rejects an operation because of a bad or missing field or a
// dangling reference. IDs lists offending record ids when there are several.
type ValidationError struct {
	Domain DomainKey
	Field  string
	Reason string
	IDs    []string
	Err    error
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Domain != "" {
		fmt.Fprintf(&b, " for %s", e.Domain)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.IDs, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e ValidationError) Unwrap() error { return e.Err }

// Record kinds reported by NotFoundError.
const (
	KindCategory = "category"
	KindItem     = "item"
	KindPoint    = "contact point"
)

// NotFoundError reports an operation on an id that does not exist.
type NotFoundError struct {
	Domain DomainKey
	Kind   string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s %s not found", e.Domain, e.Kind, e.ID)
}

// ParseError reports a malformed backup payload. Nothing has been written
// when it is returned.
type ParseError struct {
	Reason string
	Err    error
}

func (e ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse backup: %s: %v", e.Reason, e.Err)
	}
	return "parse backup: " + e.Reason
}

func (e ParseError) Unwrap() error { return e.Err }

// PartialMigrationError reports which domains of a backup migration were
// written and which failed.
type PartialMigrationError struct {
	Succeeded []DomainKey
	Failed    map[DomainKey]error
	// Written counts the rows a failed domain upserted before it stopped.
	// Those rows stay in the remote.
	Written map[DomainKey]int
}

func (e *PartialMigrationError) Error() string {
	failed := e.FailedDomains()
	names := make([]string, len(failed))
	for i, k := range failed {
		names[i] = fmt.Sprintf("%s (%v)", k, e.Failed[k])
		if n := e.Written[k]; n > 0 {
			names[i] = fmt.Sprintf("%s (%v; %d row(s) already written)", k, e.Failed[k], n)
		}
	}
	return fmt.Sprintf("migration incomplete: %d domain(s) written, failed: %s", len(e.Succeeded), strings.Join(names, "; "))
}

// FailedDomains returns the failed domain keys sorted by name.
func (e *PartialMigrationError) FailedDomains() []DomainKey {
	out := make([]DomainKey, 0, len(e.Failed))
	for k := range e.Failed {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BusyError rejects a remote operation while another one holds the same
// domains.
type BusyError struct {
	Operation string
	Domains   []DomainKey
}

func (e BusyError) Error() string {
	names := make([]string, len(e.Domains))
	for i, d := range e.Domains {
		names[i] = string(d)
	}
	return fmt.Sprintf("%s: operation already in flight for %s", e.Operation, strings.Join(names, ", "))
}
