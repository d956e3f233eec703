package memory

import (
	"clinicdesk/pkg/domain"
	"sort"
)

// migrateDocument brings a loaded document to the current shape: missing
// containers get defaults, unknown views are dropped, missing or duplicate ids
// are re-minted, and items filed under unknown categories are discarded.
// A category id already claimed by an earlier domain is re-minted and keeps
// its items.
func migrateDocument(doc domain.Document, newID func() string) domain.Document {
	if doc.Professionals.Categories == nil && doc.Professionals.Items != nil {
		doc.Professionals.Categories = synthesizeCategories(doc.Professionals.Items)
	}

	claimed := make(map[string]bool)
	doc.Scripts = migrateNested(doc.Scripts, domain.DomainScripts, claimed, newID, nil)
	doc.Contacts = migrateNested(doc.Contacts, domain.DomainContacts, claimed, newID, func(_ string, g domain.ContactGroup) domain.ContactGroup {
		g.Points = assignPointIDs(g.Points, newID)
		return g
	})
	doc.ValueTable = migrateNested(doc.ValueTable, domain.DomainValueTable, claimed, newID, nil)
	doc.Professionals = migrateNested(doc.Professionals, domain.DomainProfessionals, claimed, newID, nil)

	doc.Exams = migrateGrouped(doc.Exams, claimed, newID, nil)
	doc.Recados = migrateGrouped(doc.Recados, claimed, newID, nil)
	tagged := func(tagID string, it domain.InfoItem) domain.InfoItem {
		it.TagID = tagID
		if it.Attachments == nil {
			it.Attachments = []domain.Attachment{}
		}
		return it
	}
	doc.Info = migrateGrouped(doc.Info, claimed, newID, tagged)
	doc.Estomaterapia = migrateGrouped(doc.Estomaterapia, claimed, newID, tagged)

	doc.HeaderTags = migrateFlat(doc.HeaderTags, newID)
	doc.Offices = migrateFlat(doc.Offices, newID)
	doc.Notices = migrateFlat(doc.Notices, newID)
	doc.ExamDeliveryAttendants = migrateFlat(doc.ExamDeliveryAttendants, newID)
	return doc
}

// NormalizeDocument applies the same normalization ReplaceDocument does
// without installing the result. newID mints ids for records that lack one.
func NormalizeDocument(doc domain.Document, newID func() string) domain.Document {
	return migrateDocument(doc.Clone(), newID)
}

// synthesizeCategories builds one category per item key for payloads written
// before professional categories existed.
func synthesizeCategories(items map[string]map[string][]domain.Professional) map[string][]domain.Category {
	out := make(map[string][]domain.Category, len(items))
	for view, byCat := range items {
		keys := make([]string, 0, len(byCat))
		for k := range byCat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cats := make([]domain.Category, 0, len(keys))
		for _, k := range keys {
			cats = append(cats, domain.Category{ID: k, Name: k})
		}
		out[view] = cats
	}
	return out
}

func migrateNested[C domain.CategoryRecord[C], T domain.Record[T]](n domain.Nested[C, T], key domain.DomainKey, claimed map[string]bool, newID func() string, fix func(string, T) T) domain.Nested[C, T] {
	views := domain.MustLookup(key).Views
	out := domain.NewNested[C, T](views)
	seen := make(map[string]bool)
	for _, view := range views {
		cats, items := migrateCategorized(n.Categories[view], n.Items[view], seen, claimed, newID, fix)
		out.Categories[view] = cats
		out.Items[view] = items
	}
	return out
}

func migrateGrouped[C domain.CategoryRecord[C], T domain.Record[T]](g domain.Grouped[C, T], claimed map[string]bool, newID func() string, fix func(string, T) T) domain.Grouped[C, T] {
	cats, items := migrateCategorized(g.Categories, g.Items, map[string]bool{}, claimed, newID, fix)
	return domain.Grouped[C, T]{Categories: cats, Items: items}
}

// migrateCategorized drops categories whose id repeats within seen, which
// spans the views of one domain, and re-mints ids found in claimed, which
// spans the whole document.
func migrateCategorized[C domain.CategoryRecord[C], T domain.Record[T]](cats []C, items map[string][]T, seen, claimed map[string]bool, newID func() string, fix func(string, T) T) ([]C, map[string][]T) {
	outCats := make([]C, 0, len(cats))
	outItems := make(map[string][]T, len(cats))
	for _, c := range cats {
		id := c.RecordID()
		if id != "" && seen[id] {
			// The first occurrence owns the items filed under a duplicate id.
			continue
		}
		// Items filed under "" go to the first category without an id.
		var src []T
		if !seen[id] {
			src = items[id]
		}
		seen[id] = true
		if id == "" || claimed[id] {
			c = c.WithID(newID())
			id = c.RecordID()
		}
		claimed[id] = true
		outCats = append(outCats, c)

		list := make([]T, 0, len(src))
		itemIDs := make(map[string]bool, len(src))
		for _, it := range src {
			if it.RecordID() == "" || itemIDs[it.RecordID()] {
				it = it.WithID(newID())
			}
			itemIDs[it.RecordID()] = true
			if fix != nil {
				it = fix(id, it)
			}
			list = append(list, it)
		}
		outItems[id] = list
	}
	return outCats, outItems
}

func migrateFlat[T domain.Record[T]](list []T, newID func() string) []T {
	out := make([]T, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, it := range list {
		if it.RecordID() == "" || seen[it.RecordID()] {
			it = it.WithID(newID())
		}
		seen[it.RecordID()] = true
		out = append(out, it)
	}
	return out
}
