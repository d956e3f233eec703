package importer

import (
	"clinicdesk/internal/infra/persistence/memory"
	"clinicdesk/pkg/domain"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallParsedCategoriesValueTable(t *testing.T) {
	store := memory.NewStore()
	im := New(store)
	err := im.InstallParsedCategories(domain.DomainValueTable, domain.ViewGeral,
		[]byte(`[{"id": "cons", "name": "Consultas"}, {"id": "ex", "name": "Exames"}]`),
		[]byte(`{"cons": [{"codigo": "101", "nome": "Consulta", "honorario": "R$ 150,00"}], "ex": []}`))
	require.NoError(t, err)

	vt := store.ValueTable()
	require.Len(t, vt.Categories(domain.ViewGeral), 2)
	items := vt.Items(domain.ViewGeral, "cons")
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID)
	assert.InDelta(t, 150.0, float64(items[0].Honorario), 1e-9)
	assert.True(t, store.HasUnsavedChanges())
}

func TestInstallRejectsOrphans(t *testing.T) {
	store := memory.NewStore()
	exams := store.Exams()
	catID, err := exams.AddCategory(domain.Category{Name: "Atual"})
	require.NoError(t, err)

	err = New(store).InstallParsedCategories(domain.DomainExams, "",
		[]byte(`[{"id": "a", "name": "A"}]`),
		[]byte(`{"a": [{"id": "ok", "title": "fine"}], "ghost": [{"id": "x2", "title": "lost"}, {"title": "no id"}]}`))
	var verr domain.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{"ghost[1]", "x2"}, verr.IDs)

	cats := exams.Categories()
	require.Len(t, cats, 1)
	assert.Equal(t, catID, cats[0].ID)
}

func TestInstallGenericHandle(t *testing.T) {
	store := memory.NewStore()
	err := Install[domain.Category, domain.ScriptItem](store.Scripts().NestedDomain, domain.ViewAnestesia,
		[]domain.Category{{ID: "c", Name: "Pré-anestesia"}},
		map[string][]domain.ScriptItem{"c": {{Title: "Jejum"}}})
	require.NoError(t, err)
	assert.Len(t, store.Scripts().Items(domain.ViewAnestesia, "c"), 1)
}

func TestInstallParsedCategoriesErrors(t *testing.T) {
	im := New(memory.NewStore())
	var verr domain.ValidationError
	require.True(t, errors.As(im.InstallParsedCategories(domain.DomainNotices, "", nil, nil), &verr))
	assert.Equal(t, "domain has no categories", verr.Reason)
	require.True(t, errors.As(im.InstallParsedCategories("nope", "", nil, nil), &verr))
	assert.Equal(t, "unknown domain", verr.Reason)

	var perr domain.ParseError
	require.True(t, errors.As(im.InstallParsedCategories(domain.DomainExams, "", []byte(`{`), nil), &perr))
	require.True(t, errors.As(im.InstallParsedCategories(domain.DomainExams, "", nil, []byte(`[]`)), &perr))

	err := im.InstallParsedCategories(domain.DomainScripts, "BOGUS", []byte(`[]`), nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "view", verr.Field)
}

func TestInstallFileDefaults(t *testing.T) {
	store := memory.NewStore()
	f, err := New(store).InstallFile([]byte(`{"categories": [{"id": "c", "name": "Consultas"}], "items": {"c": [{"codigo": "1", "nome": "Consulta"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.DomainValueTable, f.Domain)
	assert.Equal(t, domain.ViewGeral, f.View)
	assert.Len(t, store.ValueTable().Items(domain.ViewGeral, "c"), 1)

	_, err = New(store).InstallFile([]byte(`nope`))
	var perr domain.ParseError
	require.True(t, errors.As(err, &perr))
}

func TestInstallRejectsCategoryIDOwnedByAnotherDomain(t *testing.T) {
	store := memory.NewStore()
	im := New(store)
	require.NoError(t, im.InstallParsedCategories(domain.DomainInfo, "",
		[]byte(`[{"id": "t1", "name": "Regras"}]`), []byte(`{"t1": [{"id": "i1", "title": "Jejum"}]}`)))

	err := im.InstallParsedCategories(domain.DomainEstomaterapia, "",
		[]byte(`[{"id": "t1", "name": "Curativos"}]`), []byte(`{"t1": []}`))
	var verr domain.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{"t1"}, verr.IDs)
	assert.Empty(t, store.Estomaterapia().Categories())
	assert.Len(t, store.Info().Items("t1"), 1)
}
