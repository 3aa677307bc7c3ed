package inventory

import (
	"context"
	"sync"
)

type MemStore struct {
	mu    sync.RWMutex
	items []Item
}

func NewMemStore(seed ...Item) *MemStore {
	items := make([]Item, len(seed))
	copy(items, seed)
	return &MemStore{items: items}
}

func NewStore() *MemStore {
	return NewMemStore(SeedItems()...)
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Item{}, false, nil
	}
	return s.items[i], true, nil
}

func (s *MemStore) Create(ctx context.Context, it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(it.ID) >= 0 {
		return ErrDuplicateID
	}
	s.items = append(s.items, it)
	return nil
}

func (s *MemStore) Update(ctx context.Context, it Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(it.ID)
	if i < 0 {
		return false, nil
	}
	s.items[i] = it
	return true, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

// indexOf must be called with s.mu held.
func (s *MemStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
