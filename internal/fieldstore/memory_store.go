package fieldstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/matthewbaird/backoffice/internal/types"
)

// MemoryStore implements Store with an in-memory map.
// Used for demos and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	settings map[uuid.UUID]types.FieldSetting
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: make(map[uuid.UUID]types.FieldSetting)}
}

func (s *MemoryStore) ListFieldSettings(_ context.Context, tenantID uuid.UUID, category string) ([]types.FieldSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []types.FieldSetting
	for _, fs := range s.settings {
		if fs.TenantID == tenantID && fs.Category == category {
			matched = append(matched, fs)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].FieldName < matched[j].FieldName
	})
	return matched, nil
}

func (s *MemoryStore) InsertFieldSetting(_ context.Context, fs types.FieldSetting) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.settings {
		if existing.TenantID == fs.TenantID && existing.Category == fs.Category && existing.FieldName == fs.FieldName {
			return uuid.Nil, fmt.Errorf("inserting field setting %s/%s: %w", fs.Category, fs.FieldName, ErrDuplicate)
		}
	}
	fs.ID = uuid.New()
	s.settings[fs.ID] = fs
	return fs.ID, nil
}

func (s *MemoryStore) UpdateFieldSetting(_ context.Context, id uuid.UUID, state types.FieldState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.settings[id]
	if !ok {
		return fmt.Errorf("updating field setting %s: %w", id, ErrNotFound)
	}
	fs.FieldState = state
	s.settings[id] = fs
	return nil
}

func (s *MemoryStore) DeleteFieldSettings(_ context.Context, tenantID uuid.UUID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, fs := range s.settings {
		if fs.TenantID == tenantID && fs.Category == category {
			delete(s.settings, id)
		}
	}
	return nil
}

// Len returns the total number of stored rows across all tenants and categories.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.settings)
}
