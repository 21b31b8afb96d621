package item

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// MemoryStore keeps records in memory in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	items []*Item
	byID  map[string]*Item
}

// NewMemoryStore creates a store holding the given records.
func NewMemoryStore(items ...*Item) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]*Item)}
	for _, it := range items {
		// records without an ID are skipped
		_ = s.Put(it)
	}
	return s
}

// Put adds a record, replacing any record with the same ID in place.
func (s *MemoryStore) Put(it *Item) error {
	if it == nil || it.ID == "" {
		return fmt.Errorf("putting item: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[it.ID]; ok {
		for i, existing := range s.items {
			if existing.ID == it.ID {
				s.items[i] = it
				break
			}
		}
	} else {
		s.items = append(s.items, it)
	}
	s.byID[it.ID] = it
	return nil
}

// Find returns the record with the given ID.
func (s *MemoryStore) Find(ctx context.Context, id string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it, nil
}

// All returns a snapshot of every record in insertion order.
func (s *MemoryStore) All() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Lookup yields the records with the given IDs, in order. A missing ID
// yields ErrNotFound and stops the sequence.
func Lookup(ctx context.Context, store Store, ids []string) iter.Seq2[*Item, error] {
	return func(yield func(*Item, error) bool) {
		for _, id := range ids {
			it, err := store.Find(ctx, id)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(it, nil) {
				return
			}
		}
	}
}
