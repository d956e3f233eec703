package core

import (
	"clinicdesk/pkg/domain"
	"sort"
)

// remintCategorized gives every category and item a fresh id. Items follow
// their category through the id map; fix sees the new category id.
func remintCategorized[C domain.CategoryRecord[C], T domain.Record[T]](cats []C, items map[string][]T, newID func() string, fix func(string, T) T) ([]C, map[string][]T) {
	outCats := make([]C, 0, len(cats))
	outItems := make(map[string][]T, len(cats))
	ids := make(map[string]string, len(cats))
	for _, c := range cats {
		fresh := newID()
		ids[c.RecordID()] = fresh
		outCats = append(outCats, c.WithID(fresh))
	}
	for _, c := range cats {
		catID := ids[c.RecordID()]
		list := make([]T, 0, len(items[c.RecordID()]))
		for _, it := range items[c.RecordID()] {
			it = it.WithID(newID())
			if fix != nil {
				it = fix(catID, it)
			}
			list = append(list, it)
		}
		outItems[catID] = list
	}
	return outCats, outItems
}

func remintNested[C domain.CategoryRecord[C], T domain.Record[T]](n domain.Nested[C, T], newID func() string, fix func(string, T) T) domain.Nested[C, T] {
	out := domain.Nested[C, T]{
		Categories: make(map[string][]C, len(n.Categories)),
		Items:      make(map[string]map[string][]T, len(n.Categories)),
	}
	views := make([]string, 0, len(n.Categories))
	for view := range n.Categories {
		views = append(views, view)
	}
	sort.Strings(views)
	for _, view := range views {
		out.Categories[view], out.Items[view] = remintCategorized(n.Categories[view], n.Items[view], newID, fix)
	}
	return out
}

func remintGrouped[C domain.CategoryRecord[C], T domain.Record[T]](g domain.Grouped[C, T], newID func() string, fix func(string, T) T) domain.Grouped[C, T] {
	cats, items := remintCategorized(g.Categories, g.Items, newID, fix)
	return domain.Grouped[C, T]{Categories: cats, Items: items}
}

func remintFlat[T domain.Record[T]](list []T, newID func() string) []T {
	out := make([]T, 0, len(list))
	for _, it := range list {
		out = append(out, it.WithID(newID()))
	}
	return out
}

// remintDocument returns doc with a fresh id on every record, so a migrated
// backup never collides with rows already in the remote. doc must be
// normalized first.
func remintDocument(doc domain.Document, newID func() string) domain.Document {
	out := doc.Clone()
	out.Scripts = remintNested(doc.Scripts, newID, nil)
	out.Exams = remintGrouped(doc.Exams, newID, nil)
	out.Contacts = remintNested(doc.Contacts, newID, func(_ string, g domain.ContactGroup) domain.ContactGroup {
		g = g.Clone()
		for i := range g.Points {
			g.Points[i].ID = newID()
		}
		return g
	})
	out.ValueTable = remintNested(doc.ValueTable, newID, nil)
	out.Professionals = remintNested(doc.Professionals, newID, nil)
	out.Recados = remintGrouped(doc.Recados, newID, nil)
	retag := func(tagID string, it domain.InfoItem) domain.InfoItem {
		it.TagID = tagID
		return it
	}
	out.Info = remintGrouped(doc.Info, newID, retag)
	out.Estomaterapia = remintGrouped(doc.Estomaterapia, newID, retag)
	out.Notices = remintFlat(doc.Notices, newID)
	out.Offices = remintFlat(doc.Offices, newID)
	out.HeaderTags = remintFlat(doc.HeaderTags, newID)
	out.ExamDeliveryAttendants = remintFlat(doc.ExamDeliveryAttendants, newID)
	return out
}
