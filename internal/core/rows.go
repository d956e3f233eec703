package core

import (
	"clinicdesk/pkg/domain"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// tableRows groups remote rows by table name.
type tableRows map[string][]domain.Row

func (t tableRows) add(table string, row domain.Row) {
	t[table] = append(t[table], row)
}

// rowTag is the View stamped on rows of a domain: the info section for the
// shared info tables, otherwise the view key (empty for grouped domains).
func rowTag(schema domain.Schema, view string) string {
	if schema.Section != "" {
		return schema.Section
	}
	return view
}

func encodeCategorized[C domain.CategoryRecord[C], T domain.Record[T]](out tableRows, schema domain.Schema, tag string, cats []C, items map[string][]T, strip func(T) T) error {
	for i, c := range cats {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode %s category %s: %w", schema.Key, c.RecordID(), err)
		}
		out.add(schema.CategoryTable, domain.Row{ID: c.RecordID(), View: tag, Position: i, Data: data})
		for j, it := range items[c.RecordID()] {
			if strip != nil {
				it = strip(it)
			}
			data, err := json.Marshal(it)
			if err != nil {
				return fmt.Errorf("encode %s item %s: %w", schema.Key, it.RecordID(), err)
			}
			out.add(schema.ItemTable, domain.Row{ID: it.RecordID(), ParentID: c.RecordID(), View: tag, Position: j, Data: data})
		}
	}
	return nil
}

func encodeNested[C domain.CategoryRecord[C], T domain.Record[T]](out tableRows, schema domain.Schema, n domain.Nested[C, T], strip func(T) T) error {
	for _, view := range schema.Views {
		if err := encodeCategorized(out, schema, rowTag(schema, view), n.Categories[view], n.Items[view], strip); err != nil {
			return err
		}
	}
	return nil
}

func encodeFlat[T domain.Record[T]](out tableRows, schema domain.Schema, list []T) error {
	for i, it := range list {
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", schema.Key, it.RecordID(), err)
		}
		out.add(schema.ItemTable, domain.Row{ID: it.RecordID(), Position: i, Data: data})
	}
	return nil
}

func withoutPoints(g domain.ContactGroup) domain.ContactGroup {
	g.Points = nil
	return g
}

func encodeContactPoints(out tableRows, schema domain.Schema, n domain.Nested[domain.Category, domain.ContactGroup]) error {
	for _, view := range schema.Views {
		for _, c := range n.Categories[view] {
			for _, g := range n.Items[view][c.ID] {
				for k, p := range g.Points {
					data, err := json.Marshal(p)
					if err != nil {
						return fmt.Errorf("encode contact point %s: %w", p.ID, err)
					}
					out.add(schema.ChildTable, domain.Row{ID: p.ID, ParentID: g.ID, View: view, Position: k, Data: data})
				}
			}
		}
	}
	return nil
}

// encodeDomain appends the rows of one domain of doc to out. The user name is
// not row-mapped; see profileRow.
func encodeDomain(out tableRows, doc domain.Document, key domain.DomainKey) error {
	schema, ok := domain.Lookup(key)
	if !ok {
		return fmt.Errorf("unknown domain %q", key)
	}
	switch key {
	case domain.DomainScripts:
		return encodeNested(out, schema, doc.Scripts, nil)
	case domain.DomainExams:
		return encodeCategorized(out, schema, "", doc.Exams.Categories, doc.Exams.Items, nil)
	case domain.DomainContacts:
		if err := encodeNested(out, schema, doc.Contacts, withoutPoints); err != nil {
			return err
		}
		return encodeContactPoints(out, schema, doc.Contacts)
	case domain.DomainValueTable:
		return encodeNested(out, schema, doc.ValueTable, nil)
	case domain.DomainProfessionals:
		return encodeNested(out, schema, doc.Professionals, nil)
	case domain.DomainRecados:
		return encodeCategorized(out, schema, "", doc.Recados.Categories, doc.Recados.Items, nil)
	case domain.DomainInfo:
		return encodeCategorized(out, schema, schema.Section, doc.Info.Categories, doc.Info.Items, nil)
	case domain.DomainEstomaterapia:
		return encodeCategorized(out, schema, schema.Section, doc.Estomaterapia.Categories, doc.Estomaterapia.Items, nil)
	case domain.DomainNotices:
		return encodeFlat(out, schema, doc.Notices)
	case domain.DomainOffices:
		return encodeFlat(out, schema, doc.Offices)
	case domain.DomainHeaderTags:
		return encodeFlat(out, schema, doc.HeaderTags)
	case domain.DomainExamDeliveryAttendants:
		return encodeFlat(out, schema, doc.ExamDeliveryAttendants)
	}
	return fmt.Errorf("domain %q has no row mapping", key)
}

// encodeDocument maps every registry domain of doc to rows.
func encodeDocument(doc domain.Document) (tableRows, error) {
	out := tableRows{}
	for _, schema := range domain.Schemas() {
		if err := encodeDomain(out, doc, schema.Key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type profile struct {
	DisplayName string `json:"display_name"`
}

func profileRow(identity, name string) (domain.Row, error) {
	data, err := json.Marshal(profile{DisplayName: name})
	if err != nil {
		return domain.Row{}, err
	}
	return domain.Row{ID: identity, Data: data}, nil
}

// profileName finds the display name stored for identity.
func profileName(rows []domain.Row, identity string) (string, bool) {
	if identity == "" {
		return "", false
	}
	for _, row := range rows {
		if row.ID != identity {
			continue
		}
		var p profile
		if err := json.Unmarshal(row.Data, &p); err != nil || p.DisplayName == "" {
			return "", false
		}
		return p.DisplayName, true
	}
	return "", false
}

var errOrphanRow = errors.New("parent row not found")

// SkippedRow describes a remote row that could not be placed in the document.
type SkippedRow struct {
	Table string
	ID    string
	Err   error
}

type rowDecoder struct {
	rows    map[string][]domain.Row
	skipped []SkippedRow
}

func (d *rowDecoder) skip(table, id string, err error) {
	d.skipped = append(d.skipped, SkippedRow{Table: table, ID: id, Err: err})
}

func byPosition(rows []domain.Row) []domain.Row {
	out := append([]domain.Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func decodeRow[T domain.Record[T]](d *rowDecoder, table string, row domain.Row) (T, bool) {
	var v T
	if err := json.Unmarshal(row.Data, &v); err != nil {
		d.skip(table, row.ID, err)
		return v, false
	}
	return v.WithID(row.ID), true
}

func decodeCategorized[C domain.CategoryRecord[C], T domain.Record[T]](d *rowDecoder, schema domain.Schema, tag string) ([]C, map[string][]T) {
	cats := []C{}
	items := map[string][]T{}
	for _, row := range byPosition(d.rows[schema.CategoryTable]) {
		if row.View != tag {
			continue
		}
		c, ok := decodeRow[C](d, schema.CategoryTable, row)
		if !ok {
			continue
		}
		cats = append(cats, c)
		items[c.RecordID()] = []T{}
	}
	for _, row := range byPosition(d.rows[schema.ItemTable]) {
		if row.View != tag {
			continue
		}
		list, ok := items[row.ParentID]
		if !ok {
			d.skip(schema.ItemTable, row.ID, errOrphanRow)
			continue
		}
		it, ok := decodeRow[T](d, schema.ItemTable, row)
		if !ok {
			continue
		}
		items[row.ParentID] = append(list, it)
	}
	return cats, items
}

func decodeNested[C domain.CategoryRecord[C], T domain.Record[T]](d *rowDecoder, schema domain.Schema) domain.Nested[C, T] {
	n := domain.NewNested[C, T](schema.Views)
	for _, view := range schema.Views {
		n.Categories[view], n.Items[view] = decodeCategorized[C, T](d, schema, rowTag(schema, view))
	}
	return n
}

func decodeGrouped[C domain.CategoryRecord[C], T domain.Record[T]](d *rowDecoder, schema domain.Schema) domain.Grouped[C, T] {
	cats, items := decodeCategorized[C, T](d, schema, rowTag(schema, ""))
	return domain.Grouped[C, T]{Categories: cats, Items: items}
}

func decodeFlat[T domain.Record[T]](d *rowDecoder, schema domain.Schema) []T {
	out := []T{}
	for _, row := range byPosition(d.rows[schema.ItemTable]) {
		if it, ok := decodeRow[T](d, schema.ItemTable, row); ok {
			out = append(out, it)
		}
	}
	return out
}

// attachContactPoints fills every group's points from the child table.
func attachContactPoints(d *rowDecoder, schema domain.Schema, n *domain.Nested[domain.Category, domain.ContactGroup]) {
	byGroup := map[string][]domain.ContactPoint{}
	groups := map[string]bool{}
	for _, byCat := range n.Items {
		for _, list := range byCat {
			for _, g := range list {
				groups[g.ID] = true
			}
		}
	}
	for _, row := range byPosition(d.rows[schema.ChildTable]) {
		if !groups[row.ParentID] {
			d.skip(schema.ChildTable, row.ID, errOrphanRow)
			continue
		}
		if p, ok := decodeRow[domain.ContactPoint](d, schema.ChildTable, row); ok {
			byGroup[row.ParentID] = append(byGroup[row.ParentID], p)
		}
	}
	for _, byCat := range n.Items {
		for _, list := range byCat {
			for i := range list {
				points := byGroup[list[i].ID]
				if points == nil {
					points = []domain.ContactPoint{}
				}
				list[i].Points = points
			}
		}
	}
}

// decodeDocument rebuilds a document from remote rows. Rows that cannot be
// decoded or whose parent is missing are reported and left out.
func decodeDocument(rows map[string][]domain.Row) (domain.Document, []SkippedRow) {
	d := &rowDecoder{rows: rows}
	doc := domain.NewDocument()
	doc.Scripts = decodeNested[domain.Category, domain.ScriptItem](d, domain.MustLookup(domain.DomainScripts))
	doc.Exams = decodeGrouped[domain.Category, domain.ExamItem](d, domain.MustLookup(domain.DomainExams))
	contacts := domain.MustLookup(domain.DomainContacts)
	doc.Contacts = decodeNested[domain.Category, domain.ContactGroup](d, contacts)
	attachContactPoints(d, contacts, &doc.Contacts)
	doc.ValueTable = decodeNested[domain.Category, domain.ValueTableItem](d, domain.MustLookup(domain.DomainValueTable))
	doc.Professionals = decodeNested[domain.Category, domain.Professional](d, domain.MustLookup(domain.DomainProfessionals))
	doc.Recados = decodeGrouped[domain.RecadoCategory, domain.RecadoItem](d, domain.MustLookup(domain.DomainRecados))
	doc.Info = decodeGrouped[domain.InfoTag, domain.InfoItem](d, domain.MustLookup(domain.DomainInfo))
	doc.Estomaterapia = decodeGrouped[domain.InfoTag, domain.InfoItem](d, domain.MustLookup(domain.DomainEstomaterapia))
	doc.Notices = decodeFlat[domain.Notice](d, domain.MustLookup(domain.DomainNotices))
	doc.Offices = decodeFlat[domain.Office](d, domain.MustLookup(domain.DomainOffices))
	doc.HeaderTags = decodeFlat[domain.HeaderTagInfo](d, domain.MustLookup(domain.DomainHeaderTags))
	doc.ExamDeliveryAttendants = decodeFlat[domain.ExamDeliveryAttendant](d, domain.MustLookup(domain.DomainExamDeliveryAttendants))
	return doc, d.skipped
}
