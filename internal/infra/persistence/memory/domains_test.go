package memory

import (
	"clinicdesk/pkg/domain"
	"errors"
	"testing"
)

func TestScriptsAddToView(t *testing.T) {
	store := newTestStore()
	scripts := store.Scripts()
	catID, err := scripts.AddCategory(domain.ViewUnimed, domain.Category{Name: "Boas-vindas", Color: "blue"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	itemID, err := scripts.AddItem(domain.ViewUnimed, catID, domain.ScriptItem{Title: "Saudação", Content: "Olá"})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	items := scripts.Items(domain.ViewUnimed, catID)
	if len(items) != 1 || items[0].ID != itemID || items[0].Order == nil || *items[0].Order != 1 {
		t.Fatalf("unexpected items %+v", items)
	}
	if len(scripts.Categories(domain.ViewCassi)) != 0 {
		t.Fatalf("other views must stay untouched")
	}
	if !store.HasUnsavedChanges() {
		t.Fatalf("expected dirty store")
	}
}

func TestAddItemAfterCategoryDelete(t *testing.T) {
	store := newTestStore()
	scripts := store.Scripts()
	catID, _ := scripts.AddCategory(domain.ViewUnimed, domain.Category{Name: "Temp"})
	if _, err := scripts.AddItem(domain.ViewUnimed, catID, domain.ScriptItem{Title: "a"}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := scripts.DeleteCategory(domain.ViewUnimed, catID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if items := scripts.Items(domain.ViewUnimed, catID); len(items) != 0 {
		t.Fatalf("expected cascade delete, got %v", items)
	}
	_, err := scripts.AddItem(domain.ViewUnimed, catID, domain.ScriptItem{Title: "b"})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != domain.KindCategory || nf.ID != catID {
		t.Fatalf("expected category not found, got %v", err)
	}
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeletesAreIdempotent(t *testing.T) {
	store := newTestStore()
	exams := store.Exams()
	catID, _ := exams.AddCategory(domain.Category{Name: "Imagem"})
	itemID, _ := exams.AddItem(catID, domain.ExamItem{Title: "Raio-X"})
	for i := 0; i < 2; i++ {
		if err := exams.DeleteItem(catID, itemID); err != nil {
			t.Fatalf("delete item #%d: %v", i, err)
		}
		if err := exams.DeleteCategory(catID); err != nil {
			t.Fatalf("delete category #%d: %v", i, err)
		}
	}
	if err := exams.DeleteItem("nope", "nope"); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
}

func TestUnknownViewRejected(t *testing.T) {
	store := newTestStore()
	_, err := store.Scripts().AddCategory("GERAL", domain.Category{Name: "x"})
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "view" {
		t.Fatalf("expected view validation error, got %v", err)
	}
}

func TestUpdateItemKeepsID(t *testing.T) {
	store := newTestStore()
	exams := store.Exams()
	catID, _ := exams.AddCategory(domain.Category{Name: "Imagem"})
	itemID, _ := exams.AddItem(catID, domain.ExamItem{Title: "Raio-X"})
	got, err := exams.UpdateItem(catID, itemID, func(it *domain.ExamItem) error {
		it.ID = "hijack"
		it.Title = "Raio-X Tórax"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != itemID || got.Title != "Raio-X Tórax" {
		t.Fatalf("unexpected update result %+v", got)
	}
	if _, err := exams.UpdateItem(catID, "missing", nil); !errors.As(err, new(domain.NotFoundError)) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = exams.UpdateItem(catID, itemID, func(it *domain.ExamItem) error {
		it.Title = ""
		return nil
	})
	if !errors.As(err, new(domain.ValidationError)) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if it, _ := exams.Item(catID, itemID); it.Title != "Raio-X Tórax" {
		t.Fatalf("failed update must not apply, got %q", it.Title)
	}
}

func TestReplaceIsAtomic(t *testing.T) {
	store := newTestStore()
	vt := store.ValueTable()
	catID, _ := vt.AddCategory(domain.ViewGeral, domain.Category{Name: "Consultas"})
	if _, err := vt.AddItem(domain.ViewGeral, catID, domain.ValueTableItem{Codigo: "1", Nome: "Consulta"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := vt.Replace(domain.ViewGeral,
		[]domain.Category{{ID: "c1", Name: "Novos"}},
		map[string][]domain.ValueTableItem{
			"c1":    {{ID: "v1", Codigo: "2", Nome: "Exame"}},
			"ghost": {{ID: "v9", Codigo: "3", Nome: "Perdido"}, {ID: "v8", Codigo: "4", Nome: "Perdido"}},
		})
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.IDs) != 2 || verr.IDs[0] != "v8" || verr.IDs[1] != "v9" {
		t.Fatalf("expected sorted orphan ids, got %v", verr.IDs)
	}
	cats := vt.Categories(domain.ViewGeral)
	if len(cats) != 1 || cats[0].ID != catID {
		t.Fatalf("failed replace must leave domain untouched, got %+v", cats)
	}

	err = vt.Replace(domain.ViewGeral,
		[]domain.Category{{ID: "c1", Name: "Novos"}, {Name: "Sem id"}},
		map[string][]domain.ValueTableItem{"c1": {{Codigo: "2", Nome: "Exame"}}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	cats = vt.Categories(domain.ViewGeral)
	if len(cats) != 2 || cats[0].ID != "c1" || cats[1].ID == "" {
		t.Fatalf("unexpected categories %+v", cats)
	}
	items := vt.Items(domain.ViewGeral, "c1")
	if len(items) != 1 || items[0].ID == "" {
		t.Fatalf("expected minted item id, got %+v", items)
	}
	if got := vt.Items(domain.ViewGeral, cats[1].ID); got == nil || len(got) != 0 {
		t.Fatalf("expected empty item list for new category, got %v", got)
	}
}

func TestReplaceRejectsCategoryIDUsedByAnotherView(t *testing.T) {
	store := newTestStore()
	scripts := store.Scripts()
	if err := scripts.Replace(domain.ViewUnimed, []domain.Category{{ID: "shared", Name: "A"}}, nil); err != nil {
		t.Fatalf("replace unimed: %v", err)
	}
	err := scripts.Replace(domain.ViewCassi, []domain.Category{{ID: "shared", Name: "B"}}, nil)
	var verr domain.ValidationError
	if !errors.As(err, &verr) || len(verr.IDs) != 1 || verr.IDs[0] != "shared" {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestReplaceRejectsCategoryIDUsedByAnotherDomain(t *testing.T) {
	store := newTestStore()
	if err := store.Info().Replace([]domain.InfoTag{{ID: "t1", Name: "Regras"}}, nil); err != nil {
		t.Fatalf("replace info: %v", err)
	}
	err := store.Estomaterapia().Replace([]domain.InfoTag{{ID: "t1", Name: "Curativos"}}, nil)
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Domain != domain.DomainEstomaterapia || len(verr.IDs) != 1 || verr.IDs[0] != "t1" {
		t.Fatalf("expected estomaterapia duplicate id error, got %v", err)
	}
	err = store.Scripts().Replace(domain.ViewUnimed, []domain.Category{{ID: "t1", Name: "Roteiro"}}, nil)
	if !errors.As(err, &verr) || verr.Domain != domain.DomainScripts {
		t.Fatalf("expected scripts duplicate id error, got %v", err)
	}
	if len(store.Estomaterapia().Categories()) != 0 {
		t.Fatalf("rejected replace must leave estomaterapia untouched")
	}

	// Replacing the owner with its own ids stays allowed.
	if err := store.Info().Replace([]domain.InfoTag{{ID: "t1", Name: "Regras gerais"}}, nil); err != nil {
		t.Fatalf("replace info again: %v", err)
	}
}

func TestScriptReindex(t *testing.T) {
	store := newTestStore()
	scripts := store.Scripts()
	catID, _ := scripts.AddCategory(domain.ViewCassi, domain.Category{Name: "Fluxo"})
	ids := map[string]string{}
	for _, title := range []string{"B", "A", "C"} {
		id, err := scripts.AddItem(domain.ViewCassi, catID, domain.ScriptItem{Title: title})
		if err != nil {
			t.Fatalf("add %s: %v", title, err)
		}
		ids[title] = id
	}
	assertScriptOrder(t, scripts.Items(domain.ViewCassi, catID), "B", "A", "C")

	if _, err := scripts.UpdateItem(domain.ViewCassi, catID, ids["A"], func(s *domain.ScriptItem) error {
		s.Order = domain.IntPtr(1)
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	assertScriptOrder(t, scripts.Items(domain.ViewCassi, catID), "A", "B", "C")

	if err := scripts.DeleteItem(domain.ViewCassi, catID, ids["B"]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	assertScriptOrder(t, scripts.Items(domain.ViewCassi, catID), "A", "C")
}

func assertScriptOrder(t *testing.T, items []domain.ScriptItem, titles ...string) {
	t.Helper()
	if len(items) != len(titles) {
		t.Fatalf("expected %d scripts, got %d", len(titles), len(items))
	}
	for i, it := range items {
		if it.Title != titles[i] || it.Order == nil || *it.Order != i+1 {
			t.Fatalf("position %d: got %q order %v, want %q order %d", i, it.Title, it.Order, titles[i], i+1)
		}
	}
}

func TestReindexScriptsMissingOrdersLast(t *testing.T) {
	out := ReindexScripts([]domain.ScriptItem{
		{ID: "1", Title: "z"},
		{ID: "2", Title: "b", Order: domain.IntPtr(5)},
		{ID: "3", Title: "a", Order: domain.IntPtr(5)},
		{ID: "4", Title: "y"},
	})
	want := []string{"3", "2", "4", "1"}
	for i, id := range want {
		if out[i].ID != id || *out[i].Order != i+1 {
			t.Fatalf("position %d: got %s/%d want %s", i, out[i].ID, *out[i].Order, id)
		}
	}
}

func TestValueTableMoveItem(t *testing.T) {
	store := newTestStore()
	vt := store.ValueTable()
	from, _ := vt.AddCategory(domain.ViewGeral, domain.Category{Name: "Consultas"})
	to, _ := vt.AddCategory(domain.ViewGeral, domain.Category{Name: "Exames"})
	itemID, _ := vt.AddItem(domain.ViewGeral, from, domain.ValueTableItem{Codigo: "10", Nome: "ECG", Honorario: 100})

	moved, err := vt.MoveItem(domain.ViewGeral, from, to, itemID, func(it *domain.ValueTableItem) error {
		it.Honorario = 120
		return nil
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ID != itemID || moved.Honorario != 120 {
		t.Fatalf("unexpected moved item %+v", moved)
	}
	if len(vt.Items(domain.ViewGeral, from)) != 0 || len(vt.Items(domain.ViewGeral, to)) != 1 {
		t.Fatalf("item not moved")
	}

	_, err = vt.MoveItem(domain.ViewGeral, to, "missing", itemID, nil)
	if !errors.As(err, new(domain.ValidationError)) || !errors.As(err, new(domain.NotFoundError)) {
		t.Fatalf("expected validation error wrapping not found, got %v", err)
	}
	if len(vt.Items(domain.ViewGeral, to)) != 1 {
		t.Fatalf("failed move must leave the item in place")
	}
}

func TestContactPoints(t *testing.T) {
	store := newTestStore()
	contacts := store.Contacts()
	catID, _ := contacts.AddCategory(domain.ViewGeral, domain.Category{Name: "Setores"})
	groupID, err := contacts.AddItem(domain.ViewGeral, catID, domain.ContactGroup{
		Name:   "Recepção",
		Points: []domain.ContactPoint{{Setor: "Térreo"}, {Setor: "1º andar"}},
	})
	if err != nil {
		t.Fatalf("add group: %v", err)
	}
	group, _ := contacts.Item(domain.ViewGeral, catID, groupID)
	if len(group.Points) != 2 || group.Points[0].ID == "" || group.Points[0].ID == group.Points[1].ID {
		t.Fatalf("expected distinct point ids, got %+v", group.Points)
	}

	pointID, err := contacts.AddPoint(domain.ViewGeral, catID, groupID, domain.ContactPoint{Setor: "Raio-X", Ramal: "210"})
	if err != nil {
		t.Fatalf("add point: %v", err)
	}
	updated, err := contacts.UpdatePoint(domain.ViewGeral, catID, groupID, pointID, func(p *domain.ContactPoint) error {
		p.Ramal = "211"
		return nil
	})
	if err != nil || updated.Ramal != "211" || updated.ID != pointID {
		t.Fatalf("update point: %+v %v", updated, err)
	}
	_, err = contacts.UpdatePoint(domain.ViewGeral, catID, groupID, "missing", nil)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != domain.KindPoint {
		t.Fatalf("expected point not found, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := contacts.DeletePoint(domain.ViewGeral, catID, groupID, pointID); err != nil {
			t.Fatalf("delete point: %v", err)
		}
	}
	group, _ = contacts.Item(domain.ViewGeral, catID, groupID)
	if len(group.Points) != 2 {
		t.Fatalf("expected 2 points after delete, got %d", len(group.Points))
	}
	if _, err := contacts.AddPoint(domain.ViewGeral, catID, "nope", domain.ContactPoint{Setor: "x"}); !errors.As(err, new(domain.ValidationError)) {
		t.Fatalf("expected validation error for missing group, got %v", err)
	}
}

func TestInfoItemsAreStamped(t *testing.T) {
	store := newTestStore()
	info := store.Info()
	tagID, _ := info.AddCategory(domain.InfoTag{Name: "Regras"})
	itemID, err := info.AddItem(tagID, domain.InfoItem{Title: "Jejum", Content: "8h", TagID: "wrong", Date: "01/01/2000"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	it, ok := info.Item(tagID, itemID)
	if !ok || it.TagID != tagID || it.Date != "05/03/2024" || it.Attachments == nil {
		t.Fatalf("unexpected info item %+v", it)
	}
	if len(store.Estomaterapia().Categories()) != 0 {
		t.Fatalf("estomaterapia must be independent of info")
	}
}

func TestFlatDomains(t *testing.T) {
	store := newTestStore()
	notices := store.Notices()
	first, err := notices.Add(domain.Notice{Title: "Sistema fora", Tag: domain.NoticeSystem})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, _ := notices.Add(domain.Notice{Title: "Treinamento", Tag: domain.NoticeTraining})
	if _, err := notices.Add(domain.Notice{}); !errors.As(err, new(domain.ValidationError)) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := notices.Reorder(1, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	list := notices.List()
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("unexpected order %+v", list)
	}
	if err := notices.Reorder(0, 5); !errors.As(err, new(domain.ValidationError)) {
		t.Fatalf("expected index validation error, got %v", err)
	}
	if _, err := notices.Update("missing", nil); !errors.As(err, new(domain.NotFoundError)) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := notices.Replace([]domain.Notice{{ID: "n1", Title: "a"}, {ID: "n1", Title: "b"}}); !errors.As(err, new(domain.ValidationError)) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if len(notices.List()) != 2 {
		t.Fatalf("failed replace must not apply")
	}
}

func TestReorderCategories(t *testing.T) {
	store := newTestStore()
	recados := store.Recados()
	a, _ := recados.AddCategory(domain.RecadoCategory{Title: "A"})
	b, _ := recados.AddCategory(domain.RecadoCategory{Title: "B"})
	c, _ := recados.AddCategory(domain.RecadoCategory{Title: "C"})
	if err := recados.ReorderCategories(2, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	cats := recados.Categories()
	if cats[0].ID != c || cats[1].ID != a || cats[2].ID != b {
		t.Fatalf("unexpected order %+v", cats)
	}
}

func TestSearchFoldsAccents(t *testing.T) {
	store := newTestStore()
	exams := store.Exams()
	catID, _ := exams.AddCategory(domain.Category{Name: "Cardio"})
	itemID, _ := exams.AddItem(catID, domain.ExamItem{Title: "Ecocardiograma", AdditionalInfo: "Exame cardíaco"})
	if _, err := store.Notices().Add(domain.Notice{Title: "Agenda", Content: "sem relação"}); err != nil {
		t.Fatalf("add notice: %v", err)
	}
	hits := store.Search("CARDIACO")
	if len(hits) != 1 || hits[0].Domain != domain.DomainExams || hits[0].ItemID != itemID {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if hits := store.Search(""); len(hits) != 0 {
		t.Fatalf("empty term must not match, got %+v", hits)
	}
}
