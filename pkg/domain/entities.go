// Package domain defines the clinic content entities, the multi-domain
// document that holds them, the schema registry describing each domain's
// shape, and the persistence contracts consumed by clinicdesk.
package domain

// Category groups items within a view (scripts, contacts, value table,
// professionals) or globally (exams).
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Order *int   `json:"order,omitempty"`
}

// RecordID implements Record.
func (c Category) RecordID() string { return c.ID }

// WithID implements Record.
func (c Category) WithID(id string) Category { c.ID = id; return c }

// Clone implements Record.
func (c Category) Clone() Category {
	c.Order = cloneInt(c.Order)
	return c
}

// Label implements CategoryRecord.
func (c Category) Label() string { return c.Name }

// ScriptItem is a ready-made message an attendant copies into a chat.
type ScriptItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   *int   `json:"order,omitempty"`
}

func (s ScriptItem) RecordID() string            { return s.ID }
func (s ScriptItem) WithID(id string) ScriptItem { s.ID = id; return s }
func (s ScriptItem) Clone() ScriptItem           { s.Order = cloneInt(s.Order); return s }

// ExamItem describes where and how an exam is scheduled.
type ExamItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Location        []string `json:"location"`
	AdditionalInfo  string   `json:"additionalInfo"`
	SchedulingRules string   `json:"schedulingRules"`
	ValueTableCode  string   `json:"valueTableCode,omitempty"`
}

func (e ExamItem) RecordID() string          { return e.ID }
func (e ExamItem) WithID(id string) ExamItem { e.ID = id; return e }
func (e ExamItem) Clone() ExamItem {
	e.Location = cloneSlice(e.Location)
	return e
}

// ContactPoint is a single reachable desk inside a contact group.
type ContactPoint struct {
	ID       string `json:"id"`
	Setor    string `json:"setor"`
	Local    string `json:"local"`
	Ramal    string `json:"ramal"`
	Telefone string `json:"telefone"`
	Whatsapp string `json:"whatsapp"`
}

func (p ContactPoint) RecordID() string              { return p.ID }
func (p ContactPoint) WithID(id string) ContactPoint { p.ID = id; return p }
func (p ContactPoint) Clone() ContactPoint           { return p }

// ContactGroup is the item type of the contacts domain.
type ContactGroup struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Points []ContactPoint `json:"points"`
}

func (g ContactGroup) RecordID() string              { return g.ID }
func (g ContactGroup) WithID(id string) ContactGroup { g.ID = id; return g }
func (g ContactGroup) Clone() ContactGroup {
	g.Points = cloneSlice(g.Points)
	return g
}

// DifferentiatedFee overrides the standard fee for a given professional.
type DifferentiatedFee struct {
	ID           string `json:"id"`
	Profissional string `json:"profissional"`
	Valor        Amount `json:"valor"`
	Genero       string `json:"genero"`
}

// ValueTableItem is a priced procedure row.
type ValueTableItem struct {
	ID                      string              `json:"id"`
	Codigo                  string              `json:"codigo"`
	Nome                    string              `json:"nome"`
	Info                    string              `json:"info"`
	Honorario               Amount              `json:"honorario"`
	ExameCartao             Amount              `json:"exame_cartao"`
	MaterialMin             Amount              `json:"material_min"`
	MaterialMax             Amount              `json:"material_max"`
	HonorariosDiferenciados []DifferentiatedFee `json:"honorarios_diferenciados"`
}

func (v ValueTableItem) RecordID() string                { return v.ID }
func (v ValueTableItem) WithID(id string) ValueTableItem { v.ID = id; return v }
func (v ValueTableItem) Clone() ValueTableItem {
	v.HonorariosDiferenciados = cloneSlice(v.HonorariosDiferenciados)
	return v
}

// ExamTotal is the fee plus the card exam value.
func (v ValueTableItem) ExamTotal() float64 {
	return float64(v.Honorario) + float64(v.ExameCartao)
}

// TotalWithMaterial adds the upper material estimate to ExamTotal.
func (v ValueTableItem) TotalWithMaterial() float64 {
	return v.ExamTotal() + float64(v.MaterialMax)
}

// Fittings captures whether a professional accepts extra appointments.
type Fittings struct {
	Allowed bool   `json:"allowed"`
	Max     int    `json:"max"`
	Details string `json:"details"`
}

// ExamDetail describes an exam a professional performs.
type ExamDetail struct {
	ExamID                 string `json:"examId"`
	Observations           string `json:"observations"`
	Preparation            string `json:"preparation"`
	WithAnesthesia         bool   `json:"withAnesthesia"`
	AnesthesiaInstructions string `json:"anesthesiaInstructions,omitempty"`
}

// Professional is a clinician record.
type Professional struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Gender         string       `json:"gender"`
	Specialty      string       `json:"specialty"`
	AgeRange       string       `json:"ageRange"`
	Fittings       Fittings     `json:"fittings"`
	GeneralObs     string       `json:"generalObs"`
	PerformedExams []ExamDetail `json:"performedExams"`
}

func (p Professional) RecordID() string              { return p.ID }
func (p Professional) WithID(id string) Professional { p.ID = id; return p }
func (p Professional) Clone() Professional {
	p.PerformedExams = cloneSlice(p.PerformedExams)
	return p
}

// OfficeAttendant staffs an office.
type OfficeAttendant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Shift    string `json:"shift"`
}

// OfficeProfessional is a clinician working out of an office.
type OfficeProfessional struct {
	Name                 string `json:"name"`
	Specialty            string `json:"specialty"`
	ActuationDescription string `json:"actuationDescription,omitempty"`
}

// OfficeCategory groups detailed office information.
type OfficeCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// OfficeItem is a detailed information entry under an office category.
type OfficeItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Info    string `json:"info,omitempty"`
}

// Office is a consulting room with its staff and procedures.
type Office struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Ramal         string                  `json:"ramal"`
	Schedule      string                  `json:"schedule"`
	Specialties   []string                `json:"specialties"`
	Attendants    []OfficeAttendant       `json:"attendants"`
	Professionals []OfficeProfessional    `json:"professionals"`
	Procedures    []string                `json:"procedures"`
	Categories    []OfficeCategory        `json:"categories"`
	Items         map[string][]OfficeItem `json:"items"`
}

func (o Office) RecordID() string        { return o.ID }
func (o Office) WithID(id string) Office { o.ID = id; return o }
func (o Office) Clone() Office {
	o.Specialties = cloneSlice(o.Specialties)
	o.Procedures = cloneSlice(o.Procedures)
	o.Attendants = cloneSlice(o.Attendants)
	o.Professionals = cloneSlice(o.Professionals)
	o.Categories = cloneSlice(o.Categories)
	if o.Items != nil {
		items := make(map[string][]OfficeItem, len(o.Items))
		for k, v := range o.Items {
			items[k] = cloneSlice(v)
		}
		o.Items = items
	}
	return o
}

// NoticeTag classifies a notice.
type NoticeTag string

// Supported notice tags.
const (
	NoticeUrgent   NoticeTag = "URGENTE"
	NoticeFlow     NoticeTag = "FLUXO"
	NoticeSystem   NoticeTag = "SISTEMA"
	NoticeGeneral  NoticeTag = "GERAL"
	NoticeTraining NoticeTag = "TREINAMENTO"
)

// Notice is a dated announcement shown on the dashboard.
type Notice struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Date    string    `json:"date"`
	Tag     NoticeTag `json:"tag"`
	Icon    string    `json:"icon,omitempty"`
}

func (n Notice) RecordID() string        { return n.ID }
func (n Notice) WithID(id string) Notice { n.ID = id; return n }
func (n Notice) Clone() Notice           { return n }

// Phone is a labelled phone number on a header tag.
type Phone struct {
	Label  string `json:"label"`
	Number string `json:"number"`
}

// HeaderContact is a named contact on a header tag.
type HeaderContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Ramal string `json:"ramal"`
}

// HeaderTagInfo is the quick-reference card shown in the page header.
type HeaderTagInfo struct {
	ID       string          `json:"id"`
	Tag      string          `json:"tag"`
	Title    string          `json:"title"`
	Address  string          `json:"address,omitempty"`
	Phones   []Phone         `json:"phones,omitempty"`
	Whatsapp string          `json:"whatsapp,omitempty"`
	Contacts []HeaderContact `json:"contacts,omitempty"`
}

func (h HeaderTagInfo) RecordID() string               { return h.ID }
func (h HeaderTagInfo) WithID(id string) HeaderTagInfo { h.ID = id; return h }
func (h HeaderTagInfo) Clone() HeaderTagInfo {
	h.Phones = cloneSlice(h.Phones)
	h.Contacts = cloneSlice(h.Contacts)
	return h
}

// ExamDeliveryAttendant hands exam results to patients.
type ExamDeliveryAttendant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ChatNick string `json:"chatNick"`
}

func (a ExamDeliveryAttendant) RecordID() string                       { return a.ID }
func (a ExamDeliveryAttendant) WithID(id string) ExamDeliveryAttendant { a.ID = id; return a }
func (a ExamDeliveryAttendant) Clone() ExamDeliveryAttendant           { return a }

// RecadoAttendant is a message recipient.
type RecadoAttendant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ChatNick string `json:"chatNick"`
}

// RecadoCategory is a message-template category addressed to an attendant
// or a group.
type RecadoCategory struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	DestinationType string            `json:"destinationType"`
	GroupName       string            `json:"groupName,omitempty"`
	Attendants      []RecadoAttendant `json:"attendants,omitempty"`
}

func (r RecadoCategory) RecordID() string                { return r.ID }
func (r RecadoCategory) WithID(id string) RecadoCategory { r.ID = id; return r }
func (r RecadoCategory) Label() string                   { return r.Title }
func (r RecadoCategory) Clone() RecadoCategory {
	r.Attendants = cloneSlice(r.Attendants)
	return r
}

// RecadoItem is a message template with fillable fields.
type RecadoItem struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Fields  []string `json:"fields"`
}

func (r RecadoItem) RecordID() string            { return r.ID }
func (r RecadoItem) WithID(id string) RecadoItem { r.ID = id; return r }
func (r RecadoItem) Clone() RecadoItem {
	r.Fields = cloneSlice(r.Fields)
	return r
}

// InfoTag is the category type of the informational domains.
type InfoTag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Order  *int   `json:"order,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

func (t InfoTag) RecordID() string         { return t.ID }
func (t InfoTag) WithID(id string) InfoTag { t.ID = id; return t }
func (t InfoTag) Label() string            { return t.Name }
func (t InfoTag) Clone() InfoTag {
	t.Order = cloneInt(t.Order)
	return t
}

// Attachment is an inline file carried by an info item.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	DataURL  string `json:"dataUrl"`
	Size     int64  `json:"size"`
}

// InfoItem is an informational rule or procedure filed under a tag.
type InfoItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	TagID       string       `json:"tagId"`
	Date        string       `json:"date"`
	Attachments []Attachment `json:"attachments"`
	Info        string       `json:"info,omitempty"`
	UserID      string       `json:"user_id,omitempty"`
}

func (i InfoItem) RecordID() string          { return i.ID }
func (i InfoItem) WithID(id string) InfoItem { i.ID = id; return i }
func (i InfoItem) Clone() InfoItem {
	i.Attachments = cloneSlice(i.Attachments)
	return i
}

// Record is implemented by every stored entity. Records are values; WithID and
// Clone return modified copies.
type Record[T any] interface {
	RecordID() string
	WithID(id string) T
	Clone() T
}

// CategoryRecord is a Record that can own items.
type CategoryRecord[T any] interface {
	Record[T]
	Label() string
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// cloneSlice copies in, keeping the nil/empty distinction.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// IntPtr returns a pointer to v, for optional order fields.
func IntPtr(v int) *int { return &v }
