// Package backup encodes and decodes the full-document backup payload.
package backup

import (
	"bytes"
	"clinicdesk/pkg/domain"
	"encoding/json"
	"fmt"
	"time"
)

// Payload is a parsed backup together with the top-level keys it carried.
type Payload struct {
	Document domain.Document
	keys     map[string]bool
}

// HasKey reports whether the payload carried a top-level key.
func (p Payload) HasKey(key string) bool { return p.keys[key] }

// Has reports whether the payload carried data for a domain. The user name
// counts only when non-blank.
func (p Payload) Has(key domain.DomainKey) bool {
	if key == domain.DomainUserName {
		return p.Document.UserName != ""
	}
	schema, ok := domain.Lookup(key)
	if !ok {
		return false
	}
	return (schema.CategoriesKey != "" && p.keys[schema.CategoriesKey]) || p.keys[schema.ItemsKey]
}

// Domains lists the domains present in the payload in registry order,
// followed by the user name when set.
func (p Payload) Domains() []domain.DomainKey {
	var out []domain.DomainKey
	for _, s := range domain.Schemas() {
		if p.Has(s.Key) {
			out = append(out, s.Key)
		}
	}
	if p.Has(domain.DomainUserName) {
		out = append(out, domain.DomainUserName)
	}
	return out
}

// Parse decodes a backup payload. Malformed input, or an object carrying none
// of the known top-level keys, yields a domain.ParseError. Keys set to null
// count as absent.
func Parse(data []byte) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Payload{}, domain.ParseError{Reason: "empty payload"}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Payload{}, domain.ParseError{Reason: "payload is not a JSON object", Err: err}
	}
	if top == nil {
		return Payload{}, domain.ParseError{Reason: "payload is not a JSON object"}
	}
	if !hasKnownKey(top) {
		return Payload{}, domain.ParseError{Reason: "no known top-level keys"}
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Payload{}, domain.ParseError{Reason: "invalid field", Err: err}
	}
	keys := make(map[string]bool, len(top))
	for k, v := range top {
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			keys[k] = true
		}
	}
	return Payload{Document: doc, keys: keys}, nil
}

// KnownKeys lists the top-level keys of a backup payload.
func KnownKeys() []string {
	keys := []string{"userName"}
	for _, s := range domain.Schemas() {
		if s.CategoriesKey != "" {
			keys = append(keys, s.CategoriesKey)
		}
		keys = append(keys, s.ItemsKey)
	}
	return keys
}

func hasKnownKey(top map[string]json.RawMessage) bool {
	for _, k := range KnownKeys() {
		if _, ok := top[k]; ok {
			return true
		}
	}
	return false
}

// Export encodes doc as an indented backup payload.
func Export(doc domain.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// Filename returns the conventional backup file name for t.
func Filename(t time.Time) string {
	return "portal-backup-" + t.Format("2006-01-02") + ".json"
}
