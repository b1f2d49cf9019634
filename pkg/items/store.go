// Package items holds the deduplicated, insertion-ordered set of collected items.
package items

import (
	"sync"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// Store maps item ID to item and remembers first-observation order.
// It only grows: there is no removal.
type Store struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]*models.Item
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{byID: make(map[string]*models.Item)}
}

// Add merges an observation into the store and reports whether it was new
func (s *Store) Add(raw models.RawItem) (bool, error) {
	if raw.ID == "" {
		return false, errors.MalformedRequest("item without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byID[raw.ID]; ok {
		existing.Merge(raw)
		return false, nil
	}

	it := models.NewItem(raw)
	s.byID[raw.ID] = &it
	s.order = append(s.order, raw.ID)
	return true, nil
}

// Seed loads previously persisted items, keeping their order. Items already
// present or without an ID are ignored.
func (s *Store) Seed(items []models.Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, ok := s.byID[it.ID]; ok {
			continue
		}
		cp := it
		s.byID[it.ID] = &cp
		s.order = append(s.order, it.ID)
		n++
	}
	return n
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) Get(id string) (models.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.byID[id]
	if !ok {
		return models.Item{}, false
	}
	return *it, true
}

// Items returns a copy of every item in first-observation order
func (s *Store) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// SetLocalCover records where an item's cover was cached
func (s *Store) SetLocalCover(id, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.byID[id]
	if !ok {
		return false
	}
	it.LocalCover = path
	return true
}
