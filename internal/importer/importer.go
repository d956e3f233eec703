// Package importer installs normalized category and item payloads, such as
// decoded spreadsheets, into one domain of the store in a single step.
package importer

import (
	"clinicdesk/internal/infra/persistence/memory"
	"clinicdesk/pkg/domain"
	"encoding/json"
	"fmt"
	"sort"
)

// Replacer is a domain handle able to swap a view's content.
type Replacer[C domain.CategoryRecord[C], T domain.Record[T]] interface {
	Key() domain.DomainKey
	Replace(view string, categories []C, itemsByCategory map[string][]T) error
}

// Install checks that every item references one of categories and then
// replaces the view's content. Orphaned items fail the whole import with a
// ValidationError listing their ids.
func Install[C domain.CategoryRecord[C], T domain.Record[T]](h Replacer[C, T], view string, categories []C, items map[string][]T) error {
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.RecordID() != "" {
			known[c.RecordID()] = true
		}
	}
	var orphans []string
	for catID, list := range items {
		if known[catID] {
			continue
		}
		for i, it := range list {
			id := it.RecordID()
			if id == "" {
				id = fmt.Sprintf("%s[%d]", catID, i)
			}
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		sort.Strings(orphans)
		return domain.ValidationError{Domain: h.Key(), Field: "categoryId", Reason: "items reference unknown categories", IDs: orphans}
	}
	return h.Replace(view, categories, items)
}

// Importer dispatches untyped payloads to the typed domain handles.
type Importer struct {
	store *memory.Store
}

// New constructs an importer over store.
func New(store *memory.Store) *Importer {
	return &Importer{store: store}
}

// InstallParsedCategories decodes categoriesJSON (an array) and itemsJSON (an
// object keyed by category id) for key and installs them into view. Grouped
// domains take the empty view.
func (im *Importer) InstallParsedCategories(key domain.DomainKey, view string, categoriesJSON, itemsJSON []byte) error {
	switch key {
	case domain.DomainScripts:
		return decodeAndInstall[domain.Category, domain.ScriptItem](im.store.Scripts().NestedDomain, view, categoriesJSON, itemsJSON)
	case domain.DomainExams:
		return decodeAndInstall[domain.Category, domain.ExamItem](im.store.Exams().Nested(), view, categoriesJSON, itemsJSON)
	case domain.DomainContacts:
		return decodeAndInstall[domain.Category, domain.ContactGroup](im.store.Contacts().NestedDomain, view, categoriesJSON, itemsJSON)
	case domain.DomainValueTable:
		return decodeAndInstall[domain.Category, domain.ValueTableItem](im.store.ValueTable().NestedDomain, view, categoriesJSON, itemsJSON)
	case domain.DomainProfessionals:
		return decodeAndInstall[domain.Category, domain.Professional](im.store.Professionals(), view, categoriesJSON, itemsJSON)
	case domain.DomainRecados:
		return decodeAndInstall[domain.RecadoCategory, domain.RecadoItem](im.store.Recados().Nested(), view, categoriesJSON, itemsJSON)
	case domain.DomainInfo:
		return decodeAndInstall[domain.InfoTag, domain.InfoItem](im.store.Info().Nested(), view, categoriesJSON, itemsJSON)
	case domain.DomainEstomaterapia:
		return decodeAndInstall[domain.InfoTag, domain.InfoItem](im.store.Estomaterapia().Nested(), view, categoriesJSON, itemsJSON)
	}
	if _, ok := domain.Lookup(key); ok {
		return domain.ValidationError{Domain: key, Field: "domain", Reason: "domain has no categories"}
	}
	return domain.ValidationError{Domain: key, Field: "domain", Reason: "unknown domain"}
}

// File is the on-disk layout accepted by InstallFile.
type File struct {
	Domain     domain.DomainKey `json:"domain"`
	View       string           `json:"view"`
	Categories json.RawMessage  `json:"categories"`
	Items      json.RawMessage  `json:"items"`
}

// InstallFile installs a File payload. A missing domain defaults to the
// value table and a missing view to the domain's first view.
func (im *Importer) InstallFile(data []byte) (File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return f, domain.ParseError{Reason: "import file is not valid JSON", Err: err}
	}
	if f.Domain == "" {
		f.Domain = domain.DomainValueTable
	}
	if schema, ok := domain.Lookup(f.Domain); ok && f.View == "" && len(schema.Views) > 0 {
		f.View = schema.Views[0]
	}
	return f, im.InstallParsedCategories(f.Domain, f.View, f.Categories, f.Items)
}

func decodeAndInstall[C domain.CategoryRecord[C], T domain.Record[T]](h Replacer[C, T], view string, categoriesJSON, itemsJSON []byte) error {
	var (
		cats  []C
		items map[string][]T
	)
	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &cats); err != nil {
			return domain.ParseError{Reason: fmt.Sprintf("decode %s categories", h.Key()), Err: err}
		}
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			return domain.ParseError{Reason: fmt.Sprintf("decode %s items", h.Key()), Err: err}
		}
	}
	return Install(h, view, cats, items)
}
