// Package memory keeps exported tabs in process, for tests and dry runs.
package memory

import (
	"context"
	"sync"
)

type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

func New() *Store {
	return &Store{tabs: map[string][][]any{}}
}

func (s *Store) ReplaceTab(ctx context.Context, tab string, rows [][]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = cp
	s.writes++
	return nil
}

// Tab returns the last rows written to tab.
func (s *Store) Tab(tab string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[tab]
	return rows, ok
}

// Writes counts ReplaceTab calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
