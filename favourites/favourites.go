// Package favourites persists the set of animal ids a user has starred.
package favourites

import (
	"errors"
	"log"
	"slices"
	"sync"

	json "github.com/goccy/go-json"
)

// Store keeps the favourites set as one JSON array under a fixed key.
type Store struct {
	storage Storage
	key     string
	mu      sync.Mutex
}

func NewStore(storage Storage, key string) *Store {
	return &Store{storage: storage, key: key}
}

// List returns favourite ids in the order they were added. Unreadable data
// counts as an empty set.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) IsFavourite(id string) bool {
	return slices.Contains(s.List(), id)
}

// Toggle adds id when absent and removes it when present.
func (s *Store) Toggle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.load()
	if idx := slices.Index(ids, id); idx >= 0 {
		ids = slices.Delete(ids, idx, idx+1)
	} else {
		ids = append(ids, id)
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.storage.Set(s.key, data)
}

func (s *Store) load() []string {
	raw, err := s.storage.Get(s.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("⚠️ Could not read favourites: %v", err)
		}
		return []string{}
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		log.Printf("⚠️ Favourites data is corrupt, starting empty: %v", err)
		return []string{}
	}
	if ids == nil {
		return []string{}
	}
	return ids
}
