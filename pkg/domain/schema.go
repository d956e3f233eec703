package domain

// DomainKey identifies one content domain of the document.
type DomainKey string

// Registered domains, in registry order.
const (
	DomainScripts                DomainKey = "scripts"
	DomainExams                  DomainKey = "exams"
	DomainContacts               DomainKey = "contacts"
	DomainValueTable             DomainKey = "valueTable"
	DomainProfessionals          DomainKey = "professionals"
	DomainNotices                DomainKey = "notices"
	DomainOffices                DomainKey = "offices"
	DomainHeaderTags             DomainKey = "headerTags"
	DomainExamDeliveryAttendants DomainKey = "examDeliveryAttendants"
	DomainRecados                DomainKey = "recados"
	DomainInfo                   DomainKey = "info"
	DomainEstomaterapia          DomainKey = "estomaterapia"
	// DomainUserName is not a collection; it keys the user name in migration
	// reports and remote profile writes.
	DomainUserName DomainKey = "userName"
)

// Shape describes how a domain stores its records.
type Shape int

const (
	// ShapeFlat is a plain ordered list of items.
	ShapeFlat Shape = iota
	// ShapeGrouped is one category list plus items keyed by category id.
	ShapeGrouped
	// ShapeNested partitions categories and items by view.
	ShapeNested
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeGrouped:
		return "grouped"
	case ShapeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// View keys used by the nested domains.
const (
	ViewUnimed     = "UNIMED"
	ViewCassi      = "CASSI"
	ViewParticular = "PARTICULAR"
	ViewAnestesia  = "ANESTESIA"
	ViewGeral      = "GERAL"
)

// Info sections share the info_tags/info_items remote tables.
const (
	SectionAnotacoes     = "anotacoes"
	SectionEstomaterapia = "estomaterapia"
)

// ProfilesTable holds the display name of each identity remotely.
const ProfilesTable = "profiles"

// Schema is the static description of a domain.
type Schema struct {
	Key   DomainKey
	Shape Shape
	// Views lists the valid view keys of a nested domain.
	Views []string
	// IdentityFields names the JSON fields that identify a record and its parents.
	IdentityFields []string
	// CategoriesKey and ItemsKey name the backup payload keys. Flat domains
	// only use ItemsKey.
	CategoriesKey string
	ItemsKey      string
	// CategoryTable, ItemTable and ChildTable name the remote tables.
	CategoryTable string
	ItemTable     string
	ChildTable    string
	// Section discriminates rows of shared remote tables.
	Section string
}

// HasView reports whether view is valid for the domain. Non-nested domains
// only accept the empty view.
func (s Schema) HasView(view string) bool {
	if s.Shape != ShapeNested {
		return view == ""
	}
	for _, v := range s.Views {
		if v == view {
			return true
		}
	}
	return false
}

// Tables lists the remote tables the domain reads and writes, parents first.
func (s Schema) Tables() []string {
	var out []string
	for _, t := range []string{s.CategoryTable, s.ItemTable, s.ChildTable} {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

var registry = []Schema{
	{
		Key:            DomainScripts,
		Shape:          ShapeNested,
		Views:          []string{ViewUnimed, ViewCassi, ViewParticular, ViewAnestesia},
		IdentityFields: []string{"id", "categoryId"},
		CategoriesKey:  "scriptCategories",
		ItemsKey:       "scriptData",
		CategoryTable:  "script_categories",
		ItemTable:      "scripts",
	},
	{
		Key:            DomainExams,
		Shape:          ShapeGrouped,
		IdentityFields: []string{"id", "categoryId"},
		CategoriesKey:  "examCategories",
		ItemsKey:       "examData",
		CategoryTable:  "exam_categories",
		ItemTable:      "exams",
	},
	{
		Key:            DomainContacts,
		Shape:          ShapeNested,
		Views:          []string{ViewGeral},
		IdentityFields: []string{"id", "categoryId", "groupId"},
		CategoriesKey:  "contactCategories",
		ItemsKey:       "contactData",
		CategoryTable:  "contact_categories",
		ItemTable:      "contact_groups",
		ChildTable:     "contact_points",
	},
	{
		Key:            DomainValueTable,
		Shape:          ShapeNested,
		Views:          []string{ViewGeral},
		IdentityFields: []string{"id", "categoryId"},
		CategoriesKey:  "valueTableCategories",
		ItemsKey:       "valueTableData",
		CategoryTable:  "value_table_categories",
		ItemTable:      "value_table_items",
	},
	{
		Key:            DomainProfessionals,
		Shape:          ShapeNested,
		Views:          []string{ViewGeral},
		IdentityFields: []string{"id", "categoryId"},
		CategoriesKey:  "professionalCategories",
		ItemsKey:       "professionalData",
		CategoryTable:  "professional_categories",
		ItemTable:      "professionals",
	},
	{
		Key:            DomainNotices,
		Shape:          ShapeFlat,
		IdentityFields: []string{"id"},
		ItemsKey:       "noticeData",
		ItemTable:      "notices",
	},
	{
		Key:            DomainOffices,
		Shape:          ShapeFlat,
		IdentityFields: []string{"id"},
		ItemsKey:       "officeData",
		ItemTable:      "offices",
	},
	{
		Key:            DomainHeaderTags,
		Shape:          ShapeFlat,
		IdentityFields: []string{"id"},
		ItemsKey:       "headerTagData",
		ItemTable:      "header_tags",
	},
	{
		Key:            DomainExamDeliveryAttendants,
		Shape:          ShapeFlat,
		IdentityFields: []string{"id"},
		ItemsKey:       "examDeliveryAttendants",
		ItemTable:      "exam_delivery_attendants",
	},
	{
		Key:            DomainRecados,
		Shape:          ShapeGrouped,
		IdentityFields: []string{"id", "categoryId"},
		CategoriesKey:  "recadoCategories",
		ItemsKey:       "recadoData",
		CategoryTable:  "recado_categories",
		ItemTable:      "recado_items",
	},
	{
		Key:            DomainInfo,
		Shape:          ShapeGrouped,
		IdentityFields: []string{"id", "tagId"},
		CategoriesKey:  "infoTags",
		ItemsKey:       "infoData",
		CategoryTable:  "info_tags",
		ItemTable:      "info_items",
		Section:        SectionAnotacoes,
	},
	{
		Key:            DomainEstomaterapia,
		Shape:          ShapeGrouped,
		IdentityFields: []string{"id", "tagId"},
		CategoriesKey:  "estomaterapiaTags",
		ItemsKey:       "estomaterapiaData",
		CategoryTable:  "info_tags",
		ItemTable:      "info_items",
		Section:        SectionEstomaterapia,
	},
}

var registryIndex = func() map[DomainKey]int {
	idx := make(map[DomainKey]int, len(registry))
	for i, s := range registry {
		idx[s.Key] = i
	}
	return idx
}()

// Lookup returns the schema registered for key.
func Lookup(key DomainKey) (Schema, bool) {
	i, ok := registryIndex[key]
	if !ok {
		return Schema{}, false
	}
	return cloneSchema(registry[i]), true
}

// MustLookup is Lookup for keys known at compile time.
func MustLookup(key DomainKey) Schema {
	s, ok := Lookup(key)
	if !ok {
		panic("domain: unknown domain " + string(key))
	}
	return s
}

// Schemas returns every registered schema in registry order.
func Schemas() []Schema {
	out := make([]Schema, len(registry))
	for i, s := range registry {
		out[i] = cloneSchema(s)
	}
	return out
}

// RemoteTables lists every remote table once, parents before children,
// followed by the profiles table.
func RemoteTables() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range registry {
		for _, t := range s.Tables() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return append(out, ProfilesTable)
}

// IsRemoteTable reports whether table belongs to the registry.
func IsRemoteTable(table string) bool {
	for _, t := range RemoteTables() {
		if t == table {
			return true
		}
	}
	return false
}

func cloneSchema(s Schema) Schema {
	s.Views = append([]string(nil), s.Views...)
	s.IdentityFields = append([]string(nil), s.IdentityFields...)
	return s
}
