package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"taxwise-hq/sentinel/pkg/audit"
)

// MemoryStorage implements audit.Storage using an in-memory map.
// Entries are lost on restart.
type MemoryStorage struct {
	entries map[string]*audit.Entry
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]*audit.Entry),
	}
}

// Store persists an entry to memory.
func (s *MemoryStorage) Store(ctx context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryCopy := *entry
	s.entries[entry.ID] = &entryCopy
	return nil
}

// Query retrieves entries matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	s.mu.RLock()
	results := []*audit.Entry{}
	for _, entry := range s.entries {
		if query.Matches(entry) {
			entryCopy := *entry
			results = append(results, &entryCopy)
		}
	}
	s.mu.RUnlock()

	asc := query.Ascending()
	slices.SortFunc(results, func(a, b *audit.Entry) int {
		c := a.Timestamp.Compare(b.Timestamp)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if !asc {
			c = -c
		}
		return c
	})

	if query == nil {
		return results, nil
	}

	start := max(query.Offset, 0)
	if start >= len(results) {
		return []*audit.Entry{}, nil
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the number of entries matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, entry := range s.entries {
		if query.Matches(entry) {
			count++
		}
	}
	return count, nil
}

// Delete removes entries matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, entry := range s.entries {
		if query.Matches(entry) {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*audit.Entry)
	return nil
}

// Size returns the number of stored entries.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
