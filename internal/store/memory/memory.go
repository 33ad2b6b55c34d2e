// Package memory provides an in-memory [store.UnitStore]. It backs
// single-user deployments running without a database; progression state is
// lost on restart, so units are typically seeded from a YAML file at boot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store"
)

// UnitStore is a thread-safe, in-memory implementation of [store.UnitStore].
type UnitStore struct {
	mu      sync.RWMutex
	units   map[string]practice.Unit
	updated map[string]time.Time
}

var _ store.UnitStore = (*UnitStore)(nil)

// NewUnitStore returns an initialised empty store.
func NewUnitStore() *UnitStore {
	return &UnitStore{
		units:   make(map[string]practice.Unit),
		updated: make(map[string]time.Time),
	}
}

// SaveUnit implements [store.UnitStore].
func (s *UnitStore) SaveUnit(_ context.Context, unit practice.Unit) error {
	if unit.ID == "" {
		return fmt.Errorf("memory: save unit: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[unit.ID] = unit
	s.updated[unit.ID] = time.Now()
	return nil
}

// GetUnit implements [store.UnitStore].
func (s *UnitStore) GetUnit(_ context.Context, id string) (practice.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.units[id]
	if !ok {
		return practice.Unit{}, fmt.Errorf("memory: get unit %q: %w", id, store.ErrNotFound)
	}
	return unit, nil
}

// ListUnits implements [store.UnitStore], most recently updated first.
func (s *UnitStore) ListUnits(context.Context) ([]practice.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]practice.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := s.updated[out[i].ID], s.updated[out[j].ID]
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.After(tj)
	})
	return out, nil
}

// SaveCheckpoint implements [store.UnitStore].
func (s *UnitStore) SaveCheckpoint(_ context.Context, unitID string, cp practice.Checkpoint) error {
	return s.update(unitID, "save checkpoint", func(u *practice.Unit) {
		u.Checkpoint = cp
	})
}

// MarkMastered implements [store.UnitStore].
func (s *UnitStore) MarkMastered(_ context.Context, unitID string, at time.Time) error {
	return s.update(unitID, "mark mastered", func(u *practice.Unit) {
		u.Mastered = true
		u.MasteredAt = at
		u.RecallSession = 0
	})
}

// UpdateRecall implements [store.UnitStore].
func (s *UnitStore) UpdateRecall(_ context.Context, unitID string, session int, lastAt time.Time, schedule []time.Time) error {
	return s.update(unitID, "update recall", func(u *practice.Unit) {
		u.RecallSession = session
		u.LastRecallAt = lastAt
		u.RecallTimes = append([]time.Time(nil), schedule...)
		if len(schedule) > 0 {
			u.NextRecallAt = schedule[0]
		} else {
			u.NextRecallAt = time.Time{}
		}
	})
}

// DueRecalls implements [store.UnitStore].
func (s *UnitStore) DueRecalls(_ context.Context, now time.Time) ([]practice.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []practice.Unit
	for _, u := range s.units {
		if u.Mastered && !u.NextRecallAt.IsZero() && !u.NextRecallAt.After(now) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRecallAt.Before(out[j].NextRecallAt) })
	return out, nil
}

// Close implements [store.UnitStore]. Nothing to release.
func (s *UnitStore) Close() {}

func (s *UnitStore) update(unitID, op string, mutate func(*practice.Unit)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[unitID]
	if !ok {
		return fmt.Errorf("memory: %s for %q: %w", op, unitID, store.ErrNotFound)
	}
	mutate(&unit)
	s.units[unitID] = unit
	s.updated[unitID] = time.Now()
	return nil
}
