package memory

import (
	"clinicdesk/pkg/domain"
	"fmt"
	"strings"
)

// slots loads and stores the category list and item map of one view.
type slots[C any, T any] struct {
	load func(doc *domain.Document, view string) ([]C, map[string][]T)
	save func(doc *domain.Document, view string, cats []C, items map[string][]T)
}

func nestedSlots[C domain.CategoryRecord[C], T domain.Record[T]](pick func(*domain.Document) *domain.Nested[C, T]) slots[C, T] {
	return slots[C, T]{
		load: func(doc *domain.Document, view string) ([]C, map[string][]T) {
			n := pick(doc)
			items := n.Items[view]
			if items == nil {
				items = map[string][]T{}
			}
			return n.Categories[view], items
		},
		save: func(doc *domain.Document, view string, cats []C, items map[string][]T) {
			n := pick(doc)
			if n.Categories == nil {
				n.Categories = map[string][]C{}
			}
			if n.Items == nil {
				n.Items = map[string]map[string][]T{}
			}
			n.Categories[view] = cats
			n.Items[view] = items
		},
	}
}

func groupedSlots[C domain.CategoryRecord[C], T domain.Record[T]](pick func(*domain.Document) *domain.Grouped[C, T]) slots[C, T] {
	return slots[C, T]{
		load: func(doc *domain.Document, _ string) ([]C, map[string][]T) {
			g := pick(doc)
			items := g.Items
			if items == nil {
				items = map[string][]T{}
			}
			return g.Categories, items
		},
		save: func(doc *domain.Document, _ string, cats []C, items map[string][]T) {
			g := pick(doc)
			g.Categories = cats
			g.Items = items
		},
	}
}

// itemHooks customise item handling per domain. Every hook is optional.
type itemHooks[T any] struct {
	validate func(item T) error
	// prepare runs on add and update, after the id is fixed.
	prepare func(tx *Tx, categoryID string, item T) T
	// arrange runs on the category's item list after add, update and delete.
	// before is nil for add and delete.
	arrange func(list []T, before, after *T) []T
}

// NestedDomain exposes category and item operations of a view-partitioned
// domain. Grouped domains reuse it with the empty view.
type NestedDomain[C domain.CategoryRecord[C], T domain.Record[T]] struct {
	store  *Store
	schema domain.Schema
	slots  slots[C, T]
	hooks  itemHooks[T]
}

func newNestedDomain[C domain.CategoryRecord[C], T domain.Record[T]](store *Store, key domain.DomainKey, s slots[C, T], hooks itemHooks[T]) *NestedDomain[C, T] {
	return &NestedDomain[C, T]{store: store, schema: domain.MustLookup(key), slots: s, hooks: hooks}
}

// Key returns the domain key.
func (d *NestedDomain[C, T]) Key() domain.DomainKey { return d.schema.Key }

// Schema returns the domain schema.
func (d *NestedDomain[C, T]) Schema() domain.Schema { return d.schema }

func (d *NestedDomain[C, T]) checkView(view string) error {
	if !d.schema.HasView(view) {
		return domain.ValidationError{Domain: d.schema.Key, Field: "view", Reason: fmt.Sprintf("unknown view %q", view)}
	}
	return nil
}

func (d *NestedDomain[C, T]) checkCategory(c C) error {
	if strings.TrimSpace(c.Label()) == "" {
		return domain.ValidationError{Domain: d.schema.Key, Field: "name", Reason: "required"}
	}
	return nil
}

func (d *NestedDomain[C, T]) checkItem(item T) error {
	if d.hooks.validate == nil {
		return nil
	}
	return d.hooks.validate(item)
}

func (d *NestedDomain[C, T]) categoryNotFound(id string) domain.NotFoundError {
	return domain.NotFoundError{Domain: d.schema.Key, Kind: domain.KindCategory, ID: id}
}

func (d *NestedDomain[C, T]) itemNotFound(id string) domain.NotFoundError {
	return domain.NotFoundError{Domain: d.schema.Key, Kind: domain.KindItem, ID: id}
}

// AddCategory appends a category with a fresh id to view.
func (d *NestedDomain[C, T]) AddCategory(view string, category C) (string, error) {
	if err := d.checkView(view); err != nil {
		return "", err
	}
	if err := d.checkCategory(category); err != nil {
		return "", err
	}
	var id string
	err := d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		id = tx.NewID()
		cats = append(cats, category.Clone().WithID(id))
		items[id] = []T{}
		d.slots.save(tx.Doc, view, cats, items)
		return nil
	})
	return id, err
}

// UpdateCategory applies mutator to the category. The id cannot change.
func (d *NestedDomain[C, T]) UpdateCategory(view, id string, mutator func(*C) error) (C, error) {
	var updated C
	if err := d.checkView(view); err != nil {
		return updated, err
	}
	err := d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		idx := indexOf(cats, id)
		if idx < 0 {
			return d.categoryNotFound(id)
		}
		c := cats[idx]
		if mutator != nil {
			if err := mutator(&c); err != nil {
				return err
			}
		}
		c = c.WithID(id)
		if err := d.checkCategory(c); err != nil {
			return err
		}
		cats[idx] = c
		updated = c.Clone()
		d.slots.save(tx.Doc, view, cats, items)
		return nil
	})
	return updated, err
}

// DeleteCategory removes the category and every item filed under it.
// Unknown ids are a no-op.
func (d *NestedDomain[C, T]) DeleteCategory(view, id string) error {
	if err := d.checkView(view); err != nil {
		return err
	}
	return d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		delete(items, id)
		idx := indexOf(cats, id)
		if idx >= 0 {
			cats = append(cats[:idx:idx], cats[idx+1:]...)
		}
		d.slots.save(tx.Doc, view, cats, items)
		return nil
	})
}

// ReorderCategories moves the category at oldIndex to newIndex.
func (d *NestedDomain[C, T]) ReorderCategories(view string, oldIndex, newIndex int) error {
	if err := d.checkView(view); err != nil {
		return err
	}
	return d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		moved, err := arrayMove(cats, oldIndex, newIndex)
		if err != nil {
			return domain.ValidationError{Domain: d.schema.Key, Field: "index", Reason: err.Error()}
		}
		d.slots.save(tx.Doc, view, moved, items)
		return nil
	})
}

// AddItem files a new item with a fresh id under an existing category. A
// missing category yields a ValidationError wrapping a NotFoundError.
func (d *NestedDomain[C, T]) AddItem(view, categoryID string, item T) (string, error) {
	if err := d.checkView(view); err != nil {
		return "", err
	}
	if err := d.checkItem(item); err != nil {
		return "", err
	}
	var id string
	err := d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		if indexOf(cats, categoryID) < 0 {
			return domain.ValidationError{
				Domain: d.schema.Key,
				Field:  "categoryId",
				Reason: "category does not exist",
				Err:    d.categoryNotFound(categoryID),
			}
		}
		id = tx.NewID()
		added := item.Clone().WithID(id)
		if d.hooks.prepare != nil {
			added = d.hooks.prepare(tx, categoryID, added)
		}
		list := append(items[categoryID], added)
		if d.hooks.arrange != nil {
			list = d.hooks.arrange(list, nil, &added)
		}
		items[categoryID] = list
		d.slots.save(tx.Doc, view, cats, items)
		return nil
	})
	return id, err
}

// UpdateItem applies mutator to an item. The id cannot change.
func (d *NestedDomain[C, T]) UpdateItem(view, categoryID, itemID string, mutator func(*T) error) (T, error) {
	var updated T
	if err := d.checkView(view); err != nil {
		return updated, err
	}
	err := d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		if indexOf(cats, categoryID) < 0 {
			return d.categoryNotFound(categoryID)
		}
		list := items[categoryID]
		idx := indexOf(list, itemID)
		if idx < 0 {
			return d.itemNotFound(itemID)
		}
		before := list[idx]
		it := before.Clone()
		if mutator != nil {
			if err := mutator(&it); err != nil {
				return err
			}
		}
		it = it.WithID(itemID)
		if err := d.checkItem(it); err != nil {
			return err
		}
		if d.hooks.prepare != nil {
			it = d.hooks.prepare(tx, categoryID, it)
		}
		list[idx] = it
		if d.hooks.arrange != nil {
			list = d.hooks.arrange(list, &before, &it)
		}
		items[categoryID] = list
		d.slots.save(tx.Doc, view, cats, items)
		if idx = indexOf(list, itemID); idx >= 0 {
			updated = list[idx].Clone()
		}
		return nil
	})
	return updated, err
}

// DeleteItem removes an item. Unknown ids are a no-op.
func (d *NestedDomain[C, T]) DeleteItem(view, categoryID, itemID string) error {
	if err := d.checkView(view); err != nil {
		return err
	}
	return d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		list, ok := items[categoryID]
		if !ok {
			return nil
		}
		idx := indexOf(list, itemID)
		if idx < 0 {
			return nil
		}
		list = append(list[:idx:idx], list[idx+1:]...)
		if d.hooks.arrange != nil {
			list = d.hooks.arrange(list, nil, nil)
		}
		items[categoryID] = list
		d.slots.save(tx.Doc, view, cats, items)
		return nil
	})
}

// Replace atomically swaps the view's categories and items. Categories and
// items without an id get a fresh one. Any invalid input leaves the domain
// unchanged.
func (d *NestedDomain[C, T]) Replace(view string, categories []C, itemsByCategory map[string][]T) error {
	if err := d.checkView(view); err != nil {
		return err
	}
	return d.store.RunInTransaction(func(tx *Tx) error {
		cats, items, err := d.normalizeReplacement(tx, view, categories, itemsByCategory)
		if err != nil {
			return err
		}
		d.slots.save(tx.Doc, view, cats, items)
		return nil
	})
}

func (d *NestedDomain[C, T]) normalizeReplacement(tx *Tx, view string, categories []C, itemsByCategory map[string][]T) ([]C, map[string][]T, error) {
	// Ids held by any other view or domain stay off limits.
	self := domain.CategoryRef{Domain: d.schema.Key, View: view}
	taken := make(map[string]bool)
	for id, refs := range tx.Doc.CategoryIndex() {
		for _, ref := range refs {
			if ref != self {
				taken[id] = true
			}
		}
	}

	cats := make([]C, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	var dupCats []string
	for _, c := range categories {
		if err := d.checkCategory(c); err != nil {
			return nil, nil, err
		}
		c = c.Clone()
		if c.RecordID() == "" {
			c = c.WithID(tx.NewID())
		}
		id := c.RecordID()
		if seen[id] || taken[id] {
			dupCats = append(dupCats, id)
			continue
		}
		seen[id] = true
		cats = append(cats, c)
	}
	if len(dupCats) > 0 {
		return nil, nil, domain.ValidationError{Domain: d.schema.Key, Field: "id", Reason: "duplicate category id", IDs: dupCats}
	}

	var orphans []string
	for catID, list := range itemsByCategory {
		if seen[catID] {
			continue
		}
		if len(list) == 0 {
			orphans = append(orphans, catID)
		}
		for _, it := range list {
			orphans = append(orphans, it.RecordID())
		}
	}
	if len(orphans) > 0 {
		return nil, nil, domain.ValidationError{Domain: d.schema.Key, Field: "categoryId", Reason: "items reference unknown categories", IDs: sortedUnique(orphans)}
	}

	items := make(map[string][]T, len(cats))
	for _, c := range cats {
		catID := c.RecordID()
		src := itemsByCategory[catID]
		list := make([]T, 0, len(src))
		ids := make(map[string]bool, len(src))
		var dupItems []string
		for _, it := range src {
			if err := d.checkItem(it); err != nil {
				return nil, nil, err
			}
			it = it.Clone()
			if it.RecordID() == "" {
				it = it.WithID(tx.NewID())
			}
			if ids[it.RecordID()] {
				dupItems = append(dupItems, it.RecordID())
				continue
			}
			ids[it.RecordID()] = true
			if d.hooks.prepare != nil {
				it = d.hooks.prepare(tx, catID, it)
			}
			list = append(list, it)
		}
		if len(dupItems) > 0 {
			return nil, nil, domain.ValidationError{Domain: d.schema.Key, Field: "id", Reason: "duplicate item id in category " + catID, IDs: dupItems}
		}
		items[catID] = list
	}
	return cats, items, nil
}

// Categories returns a copy of the view's categories in display order.
func (d *NestedDomain[C, T]) Categories(view string) []C {
	var out []C
	_ = d.store.View(func(doc domain.Document) error {
		cats, _ := d.slots.load(&doc, view)
		out = domain.CloneRecords(cats)
		return nil
	})
	return out
}

// Category returns one category of view.
func (d *NestedDomain[C, T]) Category(view, id string) (C, bool) {
	var (
		out C
		ok  bool
	)
	_ = d.store.View(func(doc domain.Document) error {
		cats, _ := d.slots.load(&doc, view)
		if idx := indexOf(cats, id); idx >= 0 {
			out, ok = cats[idx], true
		}
		return nil
	})
	return out, ok
}

// Items returns a copy of the items filed under a category.
func (d *NestedDomain[C, T]) Items(view, categoryID string) []T {
	var out []T
	_ = d.store.View(func(doc domain.Document) error {
		_, items := d.slots.load(&doc, view)
		out = domain.CloneRecords(items[categoryID])
		return nil
	})
	return out
}

// Item returns one item.
func (d *NestedDomain[C, T]) Item(view, categoryID, itemID string) (T, bool) {
	var (
		out T
		ok  bool
	)
	_ = d.store.View(func(doc domain.Document) error {
		_, items := d.slots.load(&doc, view)
		list := items[categoryID]
		if idx := indexOf(list, itemID); idx >= 0 {
			out, ok = list[idx], true
		}
		return nil
	})
	return out, ok
}

// mutateItem runs fn on an existing item inside a transaction.
func (d *NestedDomain[C, T]) mutateItem(view, categoryID, itemID string, fn func(tx *Tx, item *T) error) (T, error) {
	var updated T
	if err := d.checkView(view); err != nil {
		return updated, err
	}
	err := d.store.RunInTransaction(func(tx *Tx) error {
		cats, items := d.slots.load(tx.Doc, view)
		if indexOf(cats, categoryID) < 0 {
			return d.categoryNotFound(categoryID)
		}
		list := items[categoryID]
		idx := indexOf(list, itemID)
		if idx < 0 {
			return d.itemNotFound(itemID)
		}
		it := list[idx].Clone()
		if err := fn(tx, &it); err != nil {
			return err
		}
		list[idx] = it.WithID(itemID)
		items[categoryID] = list
		d.slots.save(tx.Doc, view, cats, items)
		updated = list[idx].Clone()
		return nil
	})
	return updated, err
}

// GroupedDomain exposes category and item operations of a domain without
// views.
type GroupedDomain[C domain.CategoryRecord[C], T domain.Record[T]] struct {
	inner *NestedDomain[C, T]
}

// Key returns the domain key.
func (g GroupedDomain[C, T]) Key() domain.DomainKey { return g.inner.Key() }

// AddCategory appends a category with a fresh id.
func (g GroupedDomain[C, T]) AddCategory(category C) (string, error) {
	return g.inner.AddCategory("", category)
}

// UpdateCategory applies mutator to a category.
func (g GroupedDomain[C, T]) UpdateCategory(id string, mutator func(*C) error) (C, error) {
	return g.inner.UpdateCategory("", id, mutator)
}

// DeleteCategory removes a category and its items; unknown ids are a no-op.
func (g GroupedDomain[C, T]) DeleteCategory(id string) error {
	return g.inner.DeleteCategory("", id)
}

// ReorderCategories moves the category at oldIndex to newIndex.
func (g GroupedDomain[C, T]) ReorderCategories(oldIndex, newIndex int) error {
	return g.inner.ReorderCategories("", oldIndex, newIndex)
}

// AddItem files a new item under an existing category.
func (g GroupedDomain[C, T]) AddItem(categoryID string, item T) (string, error) {
	return g.inner.AddItem("", categoryID, item)
}

// UpdateItem applies mutator to an item.
func (g GroupedDomain[C, T]) UpdateItem(categoryID, itemID string, mutator func(*T) error) (T, error) {
	return g.inner.UpdateItem("", categoryID, itemID, mutator)
}

// DeleteItem removes an item; unknown ids are a no-op.
func (g GroupedDomain[C, T]) DeleteItem(categoryID, itemID string) error {
	return g.inner.DeleteItem("", categoryID, itemID)
}

// Replace atomically swaps every category and item.
func (g GroupedDomain[C, T]) Replace(categories []C, itemsByCategory map[string][]T) error {
	return g.inner.Replace("", categories, itemsByCategory)
}

// Categories returns a copy of the categories.
func (g GroupedDomain[C, T]) Categories() []C { return g.inner.Categories("") }

// Category returns one category.
func (g GroupedDomain[C, T]) Category(id string) (C, bool) { return g.inner.Category("", id) }

// Items returns a copy of a category's items.
func (g GroupedDomain[C, T]) Items(categoryID string) []T { return g.inner.Items("", categoryID) }

// Item returns one item.
func (g GroupedDomain[C, T]) Item(categoryID, itemID string) (T, bool) {
	return g.inner.Item("", categoryID, itemID)
}

// Nested exposes the view-aware operations with the empty view, for callers
// that handle both shapes uniformly.
func (g GroupedDomain[C, T]) Nested() *NestedDomain[C, T] { return g.inner }

func indexOf[R domain.Record[R]](list []R, id string) int {
	for i, r := range list {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func arrayMove[T any](list []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return nil, fmt.Errorf("index out of range: %d -> %d (len %d)", from, to, len(list))
	}
	out := make([]T, 0, len(list))
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)
	moved := list[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, nil
}
