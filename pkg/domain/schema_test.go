package domain

import (
	"reflect"
	"testing"
)

func TestRegistryOrderAndShapes(t *testing.T) {
	want := []DomainKey{
		DomainScripts, DomainExams, DomainContacts, DomainValueTable, DomainProfessionals,
		DomainNotices, DomainOffices, DomainHeaderTags, DomainExamDeliveryAttendants,
		DomainRecados, DomainInfo, DomainEstomaterapia,
	}
	schemas := Schemas()
	if len(schemas) != len(want) {
		t.Fatalf("expected %d schemas, got %d", len(want), len(schemas))
	}
	for i, s := range schemas {
		if s.Key != want[i] {
			t.Fatalf("schema %d: got %s want %s", i, s.Key, want[i])
		}
		if s.ItemsKey == "" || s.ItemTable == "" {
			t.Fatalf("%s: missing payload key or table", s.Key)
		}
		if (s.Shape == ShapeFlat) != (s.CategoriesKey == "") {
			t.Fatalf("%s: categories key does not match shape %s", s.Key, s.Shape)
		}
	}
	if _, ok := Lookup(DomainUserName); ok {
		t.Fatalf("userName is not a registered collection")
	}
}

func TestHasView(t *testing.T) {
	scripts := MustLookup(DomainScripts)
	if !scripts.HasView(ViewCassi) || scripts.HasView(ViewGeral) || scripts.HasView("") {
		t.Fatalf("unexpected script views")
	}
	exams := MustLookup(DomainExams)
	if !exams.HasView("") || exams.HasView(ViewUnimed) {
		t.Fatalf("grouped domains only accept the empty view")
	}
}

func TestLookupReturnsCopies(t *testing.T) {
	s := MustLookup(DomainScripts)
	s.Views[0] = "MUTATED"
	if MustLookup(DomainScripts).Views[0] != ViewUnimed {
		t.Fatalf("registry leaked a mutable view slice")
	}
}

func TestMustLookupPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustLookup("bogus")
}

func TestRemoteTables(t *testing.T) {
	want := []string{
		"script_categories", "scripts",
		"exam_categories", "exams",
		"contact_categories", "contact_groups", "contact_points",
		"value_table_categories", "value_table_items",
		"professional_categories", "professionals",
		"notices", "offices", "header_tags", "exam_delivery_attendants",
		"recado_categories", "recado_items",
		"info_tags", "info_items",
		ProfilesTable,
	}
	if got := RemoteTables(); !reflect.DeepEqual(got, want) {
		t.Fatalf("remote tables:\n got %v\nwant %v", got, want)
	}
	if !IsRemoteTable("contact_points") || IsRemoteTable("organisms") {
		t.Fatalf("unexpected IsRemoteTable result")
	}
	info, esto := MustLookup(DomainInfo), MustLookup(DomainEstomaterapia)
	if info.Section == esto.Section || info.ItemTable != esto.ItemTable {
		t.Fatalf("info sections must share tables with distinct sections")
	}
}
