package memory

import (
	"clinicdesk/pkg/domain"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DateLayout is the pt-BR short date stamped on info items.
const DateLayout = "02/01/2006"

func required(key domain.DomainKey, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.ValidationError{Domain: key, Field: field, Reason: "required"}
	}
	return nil
}

// ScriptsDomain keeps scripts numbered 1..n within each category.
type ScriptsDomain struct {
	*NestedDomain[domain.Category, domain.ScriptItem]
}

// Scripts returns the scripts domain handle.
func (s *Store) Scripts() ScriptsDomain {
	return ScriptsDomain{newNestedDomain(s, domain.DomainScripts,
		nestedSlots(func(d *domain.Document) *domain.Nested[domain.Category, domain.ScriptItem] { return &d.Scripts }),
		itemHooks[domain.ScriptItem]{
			validate: func(it domain.ScriptItem) error { return required(domain.DomainScripts, "title", it.Title) },
			arrange:  arrangeScripts,
		})}
}

func arrangeScripts(list []domain.ScriptItem, before, after *domain.ScriptItem) []domain.ScriptItem {
	switch {
	case before == nil && after != nil:
		// Added scripts without an explicit order go last.
		last := &list[len(list)-1]
		if last.Order == nil || *last.Order == 0 {
			last.Order = domain.IntPtr(len(list))
		}
	case before != nil && after != nil:
		if orderOf(*before) == orderOf(*after) {
			return list
		}
	}
	return ReindexScripts(list)
}

func orderOf(s domain.ScriptItem) int {
	if s.Order == nil {
		return -1
	}
	return *s.Order
}

// ReindexScripts sorts scripts by order (missing orders last, ties by title
// in pt-BR collation) and renumbers them from 1.
func ReindexScripts(list []domain.ScriptItem) []domain.ScriptItem {
	out := domain.CloneRecords(list)
	coll := collate.New(language.BrazilianPortuguese)
	byTitle := func(i, j int) bool { return coll.CompareString(out[i].Title, out[j].Title) < 0 }
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Order, out[j].Order
		switch {
		case oi == nil && oj == nil:
			return byTitle(i, j)
		case oi == nil:
			return false
		case oj == nil:
			return true
		case *oi != *oj:
			return *oi < *oj
		default:
			return byTitle(i, j)
		}
	})
	for i := range out {
		out[i].Order = domain.IntPtr(i + 1)
	}
	return out
}

// Exams returns the exams domain handle.
func (s *Store) Exams() GroupedDomain[domain.Category, domain.ExamItem] {
	return GroupedDomain[domain.Category, domain.ExamItem]{newNestedDomain(s, domain.DomainExams,
		groupedSlots(func(d *domain.Document) *domain.Grouped[domain.Category, domain.ExamItem] { return &d.Exams }),
		itemHooks[domain.ExamItem]{
			validate: func(it domain.ExamItem) error { return required(domain.DomainExams, "title", it.Title) },
		})}
}

// ContactsDomain adds contact point operations under groups.
type ContactsDomain struct {
	*NestedDomain[domain.Category, domain.ContactGroup]
}

// Contacts returns the contacts domain handle.
func (s *Store) Contacts() ContactsDomain {
	return ContactsDomain{newNestedDomain(s, domain.DomainContacts,
		nestedSlots(func(d *domain.Document) *domain.Nested[domain.Category, domain.ContactGroup] { return &d.Contacts }),
		itemHooks[domain.ContactGroup]{
			validate: func(g domain.ContactGroup) error { return required(domain.DomainContacts, "name", g.Name) },
			prepare: func(tx *Tx, _ string, g domain.ContactGroup) domain.ContactGroup {
				g.Points = assignPointIDs(g.Points, tx.NewID)
				return g
			},
		})}
}

func assignPointIDs(points []domain.ContactPoint, newID func() string) []domain.ContactPoint {
	if points == nil {
		return []domain.ContactPoint{}
	}
	seen := make(map[string]bool, len(points))
	for i := range points {
		if points[i].ID == "" || seen[points[i].ID] {
			points[i].ID = newID()
		}
		seen[points[i].ID] = true
	}
	return points
}

func (c ContactsDomain) groupMissing(err error) error {
	var nf domain.NotFoundError
	if errors.As(err, &nf) {
		return domain.ValidationError{Domain: domain.DomainContacts, Field: "groupId", Reason: nf.Kind + " does not exist", Err: nf}
	}
	return err
}

// AddPoint appends a contact point with a fresh id to a group.
func (c ContactsDomain) AddPoint(view, categoryID, groupID string, point domain.ContactPoint) (string, error) {
	if err := required(domain.DomainContacts, "setor", point.Setor); err != nil {
		return "", err
	}
	var id string
	_, err := c.mutateItem(view, categoryID, groupID, func(tx *Tx, g *domain.ContactGroup) error {
		id = tx.NewID()
		point.ID = id
		g.Points = append(g.Points, point)
		return nil
	})
	if err != nil {
		return "", c.groupMissing(err)
	}
	return id, nil
}

// UpdatePoint applies mutator to a contact point.
func (c ContactsDomain) UpdatePoint(view, categoryID, groupID, pointID string, mutator func(*domain.ContactPoint) error) (domain.ContactPoint, error) {
	var updated domain.ContactPoint
	_, err := c.mutateItem(view, categoryID, groupID, func(_ *Tx, g *domain.ContactGroup) error {
		for i := range g.Points {
			if g.Points[i].ID != pointID {
				continue
			}
			p := g.Points[i]
			if mutator != nil {
				if err := mutator(&p); err != nil {
					return err
				}
			}
			p.ID = pointID
			g.Points[i] = p
			updated = p
			return nil
		}
		return domain.NotFoundError{Domain: domain.DomainContacts, Kind: domain.KindPoint, ID: pointID}
	})
	return updated, err
}

// DeletePoint removes a contact point. Unknown ids are a no-op.
func (c ContactsDomain) DeletePoint(view, categoryID, groupID, pointID string) error {
	_, err := c.mutateItem(view, categoryID, groupID, func(_ *Tx, g *domain.ContactGroup) error {
		out := g.Points[:0:0]
		for _, p := range g.Points {
			if p.ID != pointID {
				out = append(out, p)
			}
		}
		g.Points = out
		return nil
	})
	var nf domain.NotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return err
}

// ValueTableDomain adds moving items between categories.
type ValueTableDomain struct {
	*NestedDomain[domain.Category, domain.ValueTableItem]
}

// ValueTable returns the value table domain handle.
func (s *Store) ValueTable() ValueTableDomain {
	return ValueTableDomain{newNestedDomain(s, domain.DomainValueTable,
		nestedSlots(func(d *domain.Document) *domain.Nested[domain.Category, domain.ValueTableItem] { return &d.ValueTable }),
		itemHooks[domain.ValueTableItem]{
			validate: func(it domain.ValueTableItem) error {
				if err := required(domain.DomainValueTable, "codigo", it.Codigo); err != nil {
					return err
				}
				return required(domain.DomainValueTable, "nome", it.Nome)
			},
		})}
}

// MoveItem applies mutator to an item and, when toCategory differs from
// fromCategory, moves it to the end of toCategory.
func (v ValueTableDomain) MoveItem(view, fromCategory, toCategory, itemID string, mutator func(*domain.ValueTableItem) error) (domain.ValueTableItem, error) {
	if fromCategory == toCategory {
		return v.UpdateItem(view, fromCategory, itemID, mutator)
	}
	var moved domain.ValueTableItem
	if err := v.checkView(view); err != nil {
		return moved, err
	}
	err := v.store.RunInTransaction(func(tx *Tx) error {
		cats, items := v.slots.load(tx.Doc, view)
		if indexOf(cats, fromCategory) < 0 {
			return v.categoryNotFound(fromCategory)
		}
		if indexOf(cats, toCategory) < 0 {
			return domain.ValidationError{Domain: v.schema.Key, Field: "categoryId", Reason: "category does not exist", Err: v.categoryNotFound(toCategory)}
		}
		src := items[fromCategory]
		idx := indexOf(src, itemID)
		if idx < 0 {
			return v.itemNotFound(itemID)
		}
		it := src[idx].Clone()
		if mutator != nil {
			if err := mutator(&it); err != nil {
				return err
			}
		}
		it = it.WithID(itemID)
		if err := v.checkItem(it); err != nil {
			return err
		}
		items[fromCategory] = append(src[:idx:idx], src[idx+1:]...)
		items[toCategory] = append(items[toCategory], it)
		v.slots.save(tx.Doc, view, cats, items)
		moved = it.Clone()
		return nil
	})
	return moved, err
}

// Professionals returns the professionals domain handle.
func (s *Store) Professionals() *NestedDomain[domain.Category, domain.Professional] {
	return newNestedDomain(s, domain.DomainProfessionals,
		nestedSlots(func(d *domain.Document) *domain.Nested[domain.Category, domain.Professional] { return &d.Professionals }),
		itemHooks[domain.Professional]{
			validate: func(p domain.Professional) error { return required(domain.DomainProfessionals, "name", p.Name) },
		})
}

// Recados returns the message template domain handle.
func (s *Store) Recados() GroupedDomain[domain.RecadoCategory, domain.RecadoItem] {
	return GroupedDomain[domain.RecadoCategory, domain.RecadoItem]{newNestedDomain(s, domain.DomainRecados,
		groupedSlots(func(d *domain.Document) *domain.Grouped[domain.RecadoCategory, domain.RecadoItem] { return &d.Recados }),
		itemHooks[domain.RecadoItem]{
			validate: func(it domain.RecadoItem) error { return required(domain.DomainRecados, "title", it.Title) },
		})}
}

// Info returns the "anotações" domain handle.
func (s *Store) Info() GroupedDomain[domain.InfoTag, domain.InfoItem] {
	return s.infoDomain(domain.DomainInfo, func(d *domain.Document) *domain.Grouped[domain.InfoTag, domain.InfoItem] { return &d.Info })
}

// Estomaterapia returns the estomaterapia domain handle.
func (s *Store) Estomaterapia() GroupedDomain[domain.InfoTag, domain.InfoItem] {
	return s.infoDomain(domain.DomainEstomaterapia, func(d *domain.Document) *domain.Grouped[domain.InfoTag, domain.InfoItem] { return &d.Estomaterapia })
}

func (s *Store) infoDomain(key domain.DomainKey, pick func(*domain.Document) *domain.Grouped[domain.InfoTag, domain.InfoItem]) GroupedDomain[domain.InfoTag, domain.InfoItem] {
	return GroupedDomain[domain.InfoTag, domain.InfoItem]{newNestedDomain(s, key, groupedSlots(pick),
		itemHooks[domain.InfoItem]{
			validate: func(it domain.InfoItem) error { return required(key, "title", it.Title) },
			prepare: func(tx *Tx, tagID string, it domain.InfoItem) domain.InfoItem {
				it.TagID = tagID
				it.Date = tx.Now().Format(DateLayout)
				if it.Attachments == nil {
					it.Attachments = []domain.Attachment{}
				}
				return it
			},
		})}
}

// Notices returns the notices domain handle.
func (s *Store) Notices() *FlatDomain[domain.Notice] {
	return newFlatDomain(s, domain.DomainNotices,
		func(d *domain.Document) *[]domain.Notice { return &d.Notices },
		func(n domain.Notice) error { return required(domain.DomainNotices, "title", n.Title) })
}

// Offices returns the offices domain handle.
func (s *Store) Offices() *FlatDomain[domain.Office] {
	return newFlatDomain(s, domain.DomainOffices,
		func(d *domain.Document) *[]domain.Office { return &d.Offices },
		func(o domain.Office) error { return required(domain.DomainOffices, "name", o.Name) })
}

// HeaderTags returns the header tags domain handle.
func (s *Store) HeaderTags() *FlatDomain[domain.HeaderTagInfo] {
	return newFlatDomain(s, domain.DomainHeaderTags,
		func(d *domain.Document) *[]domain.HeaderTagInfo { return &d.HeaderTags },
		func(h domain.HeaderTagInfo) error { return required(domain.DomainHeaderTags, "tag", h.Tag) })
}

// ExamDeliveryAttendants returns the exam delivery attendants domain handle.
func (s *Store) ExamDeliveryAttendants() *FlatDomain[domain.ExamDeliveryAttendant] {
	return newFlatDomain(s, domain.DomainExamDeliveryAttendants,
		func(d *domain.Document) *[]domain.ExamDeliveryAttendant { return &d.ExamDeliveryAttendants },
		func(a domain.ExamDeliveryAttendant) error {
			return required(domain.DomainExamDeliveryAttendants, "name", a.Name)
		})
}
