package memory

import (
	"clinicdesk/internal/textutil"
	"clinicdesk/pkg/domain"
	"sort"
)

// SearchHit locates a record matching a search term.
type SearchHit struct {
	Domain     domain.DomainKey
	View       string
	CategoryID string
	ItemID     string
	Title      string
}

// Search returns records whose visible text contains term, ignoring case and
// accents. Hits follow registry order, then view, then display order.
func (s *Store) Search(term string) []SearchHit {
	var hits []SearchHit
	_ = s.View(func(doc domain.Document) error {
		hits = append(hits, searchNested(doc.Scripts, domain.DomainScripts, term, func(it domain.ScriptItem) (string, []string) {
			return it.Title, []string{it.Title, it.Content}
		})...)
		hits = append(hits, searchGrouped(doc.Exams, domain.DomainExams, term, func(it domain.ExamItem) (string, []string) {
			return it.Title, append([]string{it.Title, it.AdditionalInfo, it.SchedulingRules}, it.Location...)
		})...)
		hits = append(hits, searchNested(doc.Contacts, domain.DomainContacts, term, func(g domain.ContactGroup) (string, []string) {
			fields := []string{g.Name}
			for _, p := range g.Points {
				fields = append(fields, p.Setor, p.Local, p.Ramal, p.Telefone, p.Whatsapp)
			}
			return g.Name, fields
		})...)
		hits = append(hits, searchNested(doc.ValueTable, domain.DomainValueTable, term, func(it domain.ValueTableItem) (string, []string) {
			return it.Nome, []string{it.Codigo, it.Nome, it.Info}
		})...)
		for _, n := range doc.Notices {
			if textutil.Contains(term, n.Title, n.Content) {
				hits = append(hits, SearchHit{Domain: domain.DomainNotices, ItemID: n.ID, Title: n.Title})
			}
		}
		info := func(it domain.InfoItem) (string, []string) { return it.Title, []string{it.Title, it.Content, it.Info} }
		hits = append(hits, searchGrouped(doc.Info, domain.DomainInfo, term, info)...)
		hits = append(hits, searchGrouped(doc.Estomaterapia, domain.DomainEstomaterapia, term, info)...)
		return nil
	})
	return hits
}

func searchNested[C domain.CategoryRecord[C], T domain.Record[T]](n domain.Nested[C, T], key domain.DomainKey, term string, text func(T) (string, []string)) []SearchHit {
	views := make([]string, 0, len(n.Categories))
	for v := range n.Categories {
		views = append(views, v)
	}
	sort.Strings(views)
	var hits []SearchHit
	for _, v := range views {
		hits = append(hits, searchCategorized(n.Categories[v], n.Items[v], key, v, term, text)...)
	}
	return hits
}

func searchGrouped[C domain.CategoryRecord[C], T domain.Record[T]](g domain.Grouped[C, T], key domain.DomainKey, term string, text func(T) (string, []string)) []SearchHit {
	return searchCategorized(g.Categories, g.Items, key, "", term, text)
}

func searchCategorized[C domain.CategoryRecord[C], T domain.Record[T]](cats []C, items map[string][]T, key domain.DomainKey, view, term string, text func(T) (string, []string)) []SearchHit {
	var hits []SearchHit
	for _, c := range cats {
		for _, it := range items[c.RecordID()] {
			title, fields := text(it)
			if textutil.Contains(term, fields...) {
				hits = append(hits, SearchHit{Domain: key, View: view, CategoryID: c.RecordID(), ItemID: it.RecordID(), Title: title})
			}
		}
	}
	return hits
}
