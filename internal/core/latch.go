package core

import (
	"clinicdesk/pkg/domain"
	"sync"
)

// latchSet tracks which domains have a remote operation in flight.
type latchSet struct {
	mu   sync.Mutex
	held map[domain.DomainKey]string
}

func newLatchSet() *latchSet {
	return &latchSet{held: make(map[domain.DomainKey]string)}
}

// acquire takes every key or none. It fails with a BusyError naming the keys
// already held.
func (l *latchSet) acquire(op string, keys []domain.DomainKey) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var busy []domain.DomainKey
	for _, k := range keys {
		if _, ok := l.held[k]; ok {
			busy = append(busy, k)
		}
	}
	if len(busy) > 0 {
		return nil, domain.BusyError{Operation: op, Domains: busy}
	}
	for _, k := range keys {
		l.held[k] = op
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for _, k := range keys {
				delete(l.held, k)
			}
		})
	}, nil
}

// allDomains lists every registry domain plus the user name.
func allDomains() []domain.DomainKey {
	schemas := domain.Schemas()
	out := make([]domain.DomainKey, 0, len(schemas)+1)
	for _, s := range schemas {
		out = append(out, s.Key)
	}
	return append(out, domain.DomainUserName)
}
