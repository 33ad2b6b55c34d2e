// Package mock provides an in-memory test double for the store package.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store"
)

// UnitStore is an in-memory implementation of store.UnitStore that records
// every mutating call for inspection in tests.
type UnitStore struct {
	mu    sync.Mutex
	units map[string]practice.Unit

	// Err, if non-nil, is returned by every method.
	Err error

	// SaveCheckpointCalls records the unit ids passed to SaveCheckpoint.
	SaveCheckpointCalls []string

	// MarkMasteredCalls records the unit ids passed to MarkMastered.
	MarkMasteredCalls []string

	// UpdateRecallCalls records the unit ids passed to UpdateRecall.
	UpdateRecallCalls []string
}

// NewUnitStore returns an empty in-memory store.
func NewUnitStore() *UnitStore {
	return &UnitStore{units: make(map[string]practice.Unit)}
}

// SaveUnit implements [store.UnitStore].
func (s *UnitStore) SaveUnit(_ context.Context, unit practice.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.units[unit.ID] = unit
	return nil
}

// GetUnit implements [store.UnitStore].
func (s *UnitStore) GetUnit(_ context.Context, id string) (practice.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return practice.Unit{}, s.Err
	}
	unit, ok := s.units[id]
	if !ok {
		return practice.Unit{}, fmt.Errorf("mock: get unit %q: %w", id, store.ErrNotFound)
	}
	return unit, nil
}

// ListUnits implements [store.UnitStore].
func (s *UnitStore) ListUnits(context.Context) ([]practice.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]practice.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveCheckpoint implements [store.UnitStore].
func (s *UnitStore) SaveCheckpoint(_ context.Context, unitID string, cp practice.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCheckpointCalls = append(s.SaveCheckpointCalls, unitID)
	if s.Err != nil {
		return s.Err
	}
	unit, ok := s.units[unitID]
	if !ok {
		return fmt.Errorf("mock: save checkpoint for %q: %w", unitID, store.ErrNotFound)
	}
	unit.Checkpoint = cp
	s.units[unitID] = unit
	return nil
}

// MarkMastered implements [store.UnitStore].
func (s *UnitStore) MarkMastered(_ context.Context, unitID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MarkMasteredCalls = append(s.MarkMasteredCalls, unitID)
	if s.Err != nil {
		return s.Err
	}
	unit, ok := s.units[unitID]
	if !ok {
		return fmt.Errorf("mock: mark mastered %q: %w", unitID, store.ErrNotFound)
	}
	unit.Mastered = true
	unit.MasteredAt = at
	unit.RecallSession = 0
	s.units[unitID] = unit
	return nil
}

// UpdateRecall implements [store.UnitStore].
func (s *UnitStore) UpdateRecall(_ context.Context, unitID string, session int, lastAt time.Time, schedule []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateRecallCalls = append(s.UpdateRecallCalls, unitID)
	if s.Err != nil {
		return s.Err
	}
	unit, ok := s.units[unitID]
	if !ok {
		return fmt.Errorf("mock: update recall for %q: %w", unitID, store.ErrNotFound)
	}
	unit.RecallSession = session
	unit.LastRecallAt = lastAt
	unit.RecallTimes = append([]time.Time(nil), schedule...)
	unit.NextRecallAt = time.Time{}
	if len(schedule) > 0 {
		unit.NextRecallAt = schedule[0]
	}
	s.units[unitID] = unit
	return nil
}

// DueRecalls implements [store.UnitStore].
func (s *UnitStore) DueRecalls(_ context.Context, now time.Time) ([]practice.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []practice.Unit
	for _, u := range s.units {
		if u.Mastered && !u.NextRecallAt.IsZero() && !u.NextRecallAt.After(now) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRecallAt.Before(out[j].NextRecallAt) })
	return out, nil
}

// Close implements [store.UnitStore].
func (s *UnitStore) Close() {}

// Ensure UnitStore implements store.UnitStore at compile time.
var _ store.UnitStore = (*UnitStore)(nil)
