package memory

import (
	"clinicdesk/pkg/domain"
	"sort"
)

// FlatDomain exposes list operations of a domain without categories.
type FlatDomain[T domain.Record[T]] struct {
	store    *Store
	schema   domain.Schema
	pick     func(*domain.Document) *[]T
	validate func(T) error
}

func newFlatDomain[T domain.Record[T]](store *Store, key domain.DomainKey, pick func(*domain.Document) *[]T, validate func(T) error) *FlatDomain[T] {
	return &FlatDomain[T]{store: store, schema: domain.MustLookup(key), pick: pick, validate: validate}
}

// Key returns the domain key.
func (d *FlatDomain[T]) Key() domain.DomainKey { return d.schema.Key }

func (d *FlatDomain[T]) check(item T) error {
	if d.validate == nil {
		return nil
	}
	return d.validate(item)
}

// Add appends a record with a fresh id.
func (d *FlatDomain[T]) Add(item T) (string, error) {
	if err := d.check(item); err != nil {
		return "", err
	}
	var id string
	err := d.store.RunInTransaction(func(tx *Tx) error {
		list := d.pick(tx.Doc)
		id = tx.NewID()
		*list = append(*list, item.Clone().WithID(id))
		return nil
	})
	return id, err
}

// Update applies mutator to a record. The id cannot change.
func (d *FlatDomain[T]) Update(id string, mutator func(*T) error) (T, error) {
	var updated T
	err := d.store.RunInTransaction(func(tx *Tx) error {
		list := d.pick(tx.Doc)
		idx := indexOf(*list, id)
		if idx < 0 {
			return domain.NotFoundError{Domain: d.schema.Key, Kind: domain.KindItem, ID: id}
		}
		it := (*list)[idx].Clone()
		if mutator != nil {
			if err := mutator(&it); err != nil {
				return err
			}
		}
		it = it.WithID(id)
		if err := d.check(it); err != nil {
			return err
		}
		(*list)[idx] = it
		updated = it.Clone()
		return nil
	})
	return updated, err
}

// Delete removes a record. Unknown ids are a no-op.
func (d *FlatDomain[T]) Delete(id string) error {
	return d.store.RunInTransaction(func(tx *Tx) error {
		list := d.pick(tx.Doc)
		if idx := indexOf(*list, id); idx >= 0 {
			*list = append((*list)[:idx:idx], (*list)[idx+1:]...)
		}
		return nil
	})
}

// Reorder moves the record at oldIndex to newIndex.
func (d *FlatDomain[T]) Reorder(oldIndex, newIndex int) error {
	return d.store.RunInTransaction(func(tx *Tx) error {
		list := d.pick(tx.Doc)
		moved, err := arrayMove(*list, oldIndex, newIndex)
		if err != nil {
			return domain.ValidationError{Domain: d.schema.Key, Field: "index", Reason: err.Error()}
		}
		*list = moved
		return nil
	})
}

// Replace atomically swaps every record. Records without an id get a fresh
// one; duplicate ids are rejected.
func (d *FlatDomain[T]) Replace(items []T) error {
	return d.store.RunInTransaction(func(tx *Tx) error {
		out := make([]T, 0, len(items))
		seen := make(map[string]bool, len(items))
		var dups []string
		for _, it := range items {
			if err := d.check(it); err != nil {
				return err
			}
			it = it.Clone()
			if it.RecordID() == "" {
				it = it.WithID(tx.NewID())
			}
			if seen[it.RecordID()] {
				dups = append(dups, it.RecordID())
				continue
			}
			seen[it.RecordID()] = true
			out = append(out, it)
		}
		if len(dups) > 0 {
			return domain.ValidationError{Domain: d.schema.Key, Field: "id", Reason: "duplicate id", IDs: dups}
		}
		*d.pick(tx.Doc) = out
		return nil
	})
}

// List returns a copy of every record in display order.
func (d *FlatDomain[T]) List() []T {
	var out []T
	_ = d.store.View(func(doc domain.Document) error {
		out = domain.CloneRecords(*d.pick(&doc))
		return nil
	})
	return out
}

// Get returns one record.
func (d *FlatDomain[T]) Get(id string) (T, bool) {
	var (
		out T
		ok  bool
	)
	_ = d.store.View(func(doc domain.Document) error {
		list := *d.pick(&doc)
		if idx := indexOf(list, id); idx >= 0 {
			out, ok = list[idx], true
		}
		return nil
	})
	return out, ok
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
