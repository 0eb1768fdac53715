// Package memory is an in-process ledger store for tests and throwaway runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"truecost/internal/core"
)

var ErrDuplicateID = errors.New("transaction id already exists")

// Store keeps entries in a map. Every entry is replaced as a whole under the
// write lock, so readers never see a transaction without its asset.
type Store struct {
	mu      sync.RWMutex
	seq     int64
	entries map[string]core.Entry
}

func New() *Store {
	return &Store{entries: make(map[string]core.Entry)}
}

func (s *Store) Insert(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := e.CheckIntegrity(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID()]; ok {
		return core.Entry{}, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID())
	}
	s.seq++
	e.Transaction.Seq = s.seq
	e = clone(e)
	s.entries[e.ID()] = e
	return clone(e), nil
}

func (s *Store) Replace(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := e.CheckIntegrity(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID()]
	if !ok {
		return core.Entry{}, &core.NotFoundError{ID: e.ID()}
	}
	e.Transaction.Seq = cur.Transaction.Seq
	e = clone(e)
	s.entries[e.ID()] = e
	return clone(e), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return &core.NotFoundError{ID: id}
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return core.Entry{}, &core.NotFoundError{ID: id}
	}
	return clone(e), nil
}

func (s *Store) GetAsset(_ context.Context, id string) (core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Asset != nil && e.Asset.ID == id {
			return cloneAsset(*e.Asset), nil
		}
	}
	return core.Asset{}, &core.NotFoundError{Resource: "asset", ID: id}
}

func (s *Store) ListTransactions(_ context.Context, from, to core.Date) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(s.entries))
	for _, e := range s.entries {
		d := e.Transaction.Date
		if !from.IsZero() && d.Before(from.Time) {
			continue
		}
		if !to.IsZero() && d.After(to.Time) {
			continue
		}
		out = append(out, e.Transaction)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (s *Store) ListAssets(_ context.Context) ([]core.Asset, error) {
	return s.assets(func(core.Asset) bool { return true }), nil
}

func (s *Store) AssetsCovering(_ context.Context, m core.Month) ([]core.Asset, error) {
	return s.assets(func(a core.Asset) bool { return a.Covers(m) }), nil
}

// Len reports the number of stored transactions and assets.
func (s *Store) Len() (transactions, assets int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		transactions++
		if e.Asset != nil {
			assets++
		}
	}
	return transactions, assets
}

// assets returns matching assets in the insertion order of their transactions.
func (s *Store) assets(keep func(core.Asset) bool) []core.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type seqAsset struct {
		seq   int64
		asset core.Asset
	}
	var found []seqAsset
	for _, e := range s.entries {
		if e.Asset != nil && keep(*e.Asset) {
			found = append(found, seqAsset{seq: e.Transaction.Seq, asset: cloneAsset(*e.Asset)})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]core.Asset, len(found))
	for i, f := range found {
		out[i] = f.asset
	}
	return out
}

func clone(e core.Entry) core.Entry {
	if e.Asset != nil {
		a := cloneAsset(*e.Asset)
		e.Asset = &a
	}
	return e
}

func cloneAsset(a core.Asset) core.Asset {
	a.Schedule = append([]core.ScheduleEntry(nil), a.Schedule...)
	return a
}
