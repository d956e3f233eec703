package domain

import "encoding/json"

// Nested holds a domain partitioned by view: categories per view and items
// per view and category id.
type Nested[C CategoryRecord[C], T Record[T]] struct {
	Categories map[string][]C
	Items      map[string]map[string][]T
}

// NewNested returns an empty container with every view initialised.
func NewNested[C CategoryRecord[C], T Record[T]](views []string) Nested[C, T] {
	n := Nested[C, T]{
		Categories: make(map[string][]C, len(views)),
		Items:      make(map[string]map[string][]T, len(views)),
	}
	for _, v := range views {
		n.Categories[v] = []C{}
		n.Items[v] = map[string][]T{}
	}
	return n
}

// Clone deep-copies the container. Nil maps stay nil.
func (n Nested[C, T]) Clone() Nested[C, T] {
	var out Nested[C, T]
	if n.Categories != nil {
		out.Categories = make(map[string][]C, len(n.Categories))
	}
	if n.Items != nil {
		out.Items = make(map[string]map[string][]T, len(n.Items))
	}
	for view, cats := range n.Categories {
		out.Categories[view] = cloneRecords(cats)
	}
	for view, byCat := range n.Items {
		out.Items[view] = cloneItemMap(byCat)
	}
	return out
}

// Grouped holds a single category list and items keyed by category id.
type Grouped[C CategoryRecord[C], T Record[T]] struct {
	Categories []C
	Items      map[string][]T
}

// NewGrouped returns an empty container.
func NewGrouped[C CategoryRecord[C], T Record[T]]() Grouped[C, T] {
	return Grouped[C, T]{Categories: []C{}, Items: map[string][]T{}}
}

// Clone deep-copies the container.
func (g Grouped[C, T]) Clone() Grouped[C, T] {
	return Grouped[C, T]{
		Categories: cloneRecords(g.Categories),
		Items:      cloneItemMap(g.Items),
	}
}

// Document is the whole working copy: every domain plus the user name.
// Its JSON encoding is the backup payload.
type Document struct {
	UserName               string
	HeaderTags             []HeaderTagInfo
	Scripts                Nested[Category, ScriptItem]
	Exams                  Grouped[Category, ExamItem]
	Contacts               Nested[Category, ContactGroup]
	ValueTable             Nested[Category, ValueTableItem]
	Professionals          Nested[Category, Professional]
	Offices                []Office
	Notices                []Notice
	ExamDeliveryAttendants []ExamDeliveryAttendant
	Recados                Grouped[RecadoCategory, RecadoItem]
	Info                   Grouped[InfoTag, InfoItem]
	Estomaterapia          Grouped[InfoTag, InfoItem]
}

// NewDocument returns the default empty document with every view present.
func NewDocument() Document {
	return Document{
		HeaderTags:             []HeaderTagInfo{},
		Scripts:                NewNested[Category, ScriptItem](MustLookup(DomainScripts).Views),
		Exams:                  NewGrouped[Category, ExamItem](),
		Contacts:               NewNested[Category, ContactGroup](MustLookup(DomainContacts).Views),
		ValueTable:             NewNested[Category, ValueTableItem](MustLookup(DomainValueTable).Views),
		Professionals:          NewNested[Category, Professional](MustLookup(DomainProfessionals).Views),
		Offices:                []Office{},
		Notices:                []Notice{},
		ExamDeliveryAttendants: []ExamDeliveryAttendant{},
		Recados:                NewGrouped[RecadoCategory, RecadoItem](),
		Info:                   NewGrouped[InfoTag, InfoItem](),
		Estomaterapia:          NewGrouped[InfoTag, InfoItem](),
	}
}

// Clone deep-copies the document.
func (d Document) Clone() Document {
	return Document{
		UserName:               d.UserName,
		HeaderTags:             cloneRecords(d.HeaderTags),
		Scripts:                d.Scripts.Clone(),
		Exams:                  d.Exams.Clone(),
		Contacts:               d.Contacts.Clone(),
		ValueTable:             d.ValueTable.Clone(),
		Professionals:          d.Professionals.Clone(),
		Offices:                cloneRecords(d.Offices),
		Notices:                cloneRecords(d.Notices),
		ExamDeliveryAttendants: cloneRecords(d.ExamDeliveryAttendants),
		Recados:                d.Recados.Clone(),
		Info:                   d.Info.Clone(),
		Estomaterapia:          d.Estomaterapia.Clone(),
	}
}

// documentWire is the backup payload layout.
type documentWire struct {
	UserName               string                                 `json:"userName"`
	HeaderTagData          []HeaderTagInfo                        `json:"headerTagData"`
	ScriptCategories       map[string][]Category                  `json:"scriptCategories"`
	ScriptData             map[string]map[string][]ScriptItem     `json:"scriptData"`
	ExamCategories         []Category                             `json:"examCategories"`
	ExamData               map[string][]ExamItem                  `json:"examData"`
	ContactCategories      map[string][]Category                  `json:"contactCategories"`
	ContactData            map[string]map[string][]ContactGroup   `json:"contactData"`
	ValueTableCategories   map[string][]Category                  `json:"valueTableCategories"`
	ValueTableData         map[string]map[string][]ValueTableItem `json:"valueTableData"`
	ProfessionalCategories map[string][]Category                  `json:"professionalCategories"`
	ProfessionalData       map[string]map[string][]Professional   `json:"professionalData"`
	OfficeData             []Office                               `json:"officeData"`
	NoticeData             []Notice                               `json:"noticeData"`
	ExamDeliveryAttendants []ExamDeliveryAttendant                `json:"examDeliveryAttendants"`
	RecadoCategories       []RecadoCategory                       `json:"recadoCategories"`
	RecadoData             map[string][]RecadoItem                `json:"recadoData"`
	InfoTags               []InfoTag                              `json:"infoTags"`
	InfoData               map[string][]InfoItem                  `json:"infoData"`
	EstomaterapiaTags      []InfoTag                              `json:"estomaterapiaTags"`
	EstomaterapiaData      map[string][]InfoItem                  `json:"estomaterapiaData"`
}

// MarshalJSON encodes the document as a backup payload.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentWire{
		UserName:               d.UserName,
		HeaderTagData:          d.HeaderTags,
		ScriptCategories:       d.Scripts.Categories,
		ScriptData:             d.Scripts.Items,
		ExamCategories:         d.Exams.Categories,
		ExamData:               d.Exams.Items,
		ContactCategories:      d.Contacts.Categories,
		ContactData:            d.Contacts.Items,
		ValueTableCategories:   d.ValueTable.Categories,
		ValueTableData:         d.ValueTable.Items,
		ProfessionalCategories: d.Professionals.Categories,
		ProfessionalData:       d.Professionals.Items,
		OfficeData:             d.Offices,
		NoticeData:             d.Notices,
		ExamDeliveryAttendants: d.ExamDeliveryAttendants,
		RecadoCategories:       d.Recados.Categories,
		RecadoData:             d.Recados.Items,
		InfoTags:               d.Info.Categories,
		InfoData:               d.Info.Items,
		EstomaterapiaTags:      d.Estomaterapia.Categories,
		EstomaterapiaData:      d.Estomaterapia.Items,
	})
}

// UnmarshalJSON decodes a backup payload. Missing keys leave the matching
// containers nil; unknown keys are ignored.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Document{
		UserName:               w.UserName,
		HeaderTags:             w.HeaderTagData,
		Scripts:                Nested[Category, ScriptItem]{Categories: w.ScriptCategories, Items: w.ScriptData},
		Exams:                  Grouped[Category, ExamItem]{Categories: w.ExamCategories, Items: w.ExamData},
		Contacts:               Nested[Category, ContactGroup]{Categories: w.ContactCategories, Items: w.ContactData},
		ValueTable:             Nested[Category, ValueTableItem]{Categories: w.ValueTableCategories, Items: w.ValueTableData},
		Professionals:          Nested[Category, Professional]{Categories: w.ProfessionalCategories, Items: w.ProfessionalData},
		Offices:                w.OfficeData,
		Notices:                w.NoticeData,
		ExamDeliveryAttendants: w.ExamDeliveryAttendants,
		Recados:                Grouped[RecadoCategory, RecadoItem]{Categories: w.RecadoCategories, Items: w.RecadoData},
		Info:                   Grouped[InfoTag, InfoItem]{Categories: w.InfoTags, Items: w.InfoData},
		Estomaterapia:          Grouped[InfoTag, InfoItem]{Categories: w.EstomaterapiaTags, Items: w.EstomaterapiaData},
	}
	return nil
}

// CategoryRef locates a category inside the document. View is empty for
// domains without views.
type CategoryRef struct {
	Domain DomainKey
	View   string
}

// CategoryIndex lists where each category id is used across every
// categorized domain. Category ids are unique document-wide, so a healthy
// document maps each id to exactly one ref.
func (d Document) CategoryIndex() map[string][]CategoryRef {
	idx := make(map[string][]CategoryRef)
	indexNested(idx, DomainScripts, d.Scripts)
	indexNested(idx, DomainContacts, d.Contacts)
	indexNested(idx, DomainValueTable, d.ValueTable)
	indexNested(idx, DomainProfessionals, d.Professionals)
	indexCategories(idx, DomainExams, "", d.Exams.Categories)
	indexCategories(idx, DomainRecados, "", d.Recados.Categories)
	indexCategories(idx, DomainInfo, "", d.Info.Categories)
	indexCategories(idx, DomainEstomaterapia, "", d.Estomaterapia.Categories)
	return idx
}

func indexNested[C CategoryRecord[C], T Record[T]](idx map[string][]CategoryRef, key DomainKey, n Nested[C, T]) {
	for view, cats := range n.Categories {
		indexCategories(idx, key, view, cats)
	}
}

func indexCategories[C CategoryRecord[C]](idx map[string][]CategoryRef, key DomainKey, view string, cats []C) {
	for _, c := range cats {
		idx[c.RecordID()] = append(idx[c.RecordID()], CategoryRef{Domain: key, View: view})
	}
}

func cloneRecords[T Record[T]](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func cloneItemMap[T Record[T]](in map[string][]T) map[string][]T {
	if in == nil {
		return nil
	}
	out := make(map[string][]T, len(in))
	for k, items := range in {
		out[k] = cloneRecords(items)
	}
	return out
}

// CloneRecords deep-copies a record slice.
func CloneRecords[T Record[T]](in []T) []T { return cloneRecords(in) }
