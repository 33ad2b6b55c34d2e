// Package store defines the persistence interface for practice units. The
// coaching core calls it fire-and-forget after turn outcomes: failures are
// logged, never allowed to block the user-facing flow.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
)

// ErrNotFound is returned when a unit id does not exist.
var ErrNotFound = errors.New("store: unit not found")

// UnitStore persists practice units, their progression checkpoints, and the
// recall schedule. Implementations must be safe for concurrent use.
type UnitStore interface {
	// SaveUnit inserts or fully replaces a unit.
	SaveUnit(ctx context.Context, unit practice.Unit) error

	// GetUnit returns the unit with the given id, or [ErrNotFound].
	GetUnit(ctx context.Context, id string) (practice.Unit, error)

	// ListUnits returns all units, most recently updated first.
	ListUnits(ctx context.Context) ([]practice.Unit, error)

	// SaveCheckpoint stores the resumable progression state for a unit.
	SaveCheckpoint(ctx context.Context, unitID string, cp practice.Checkpoint) error

	// MarkMastered records mastery at the given time and resets the recall
	// session counter.
	MarkMastered(ctx context.Context, unitID string, at time.Time) error

	// UpdateRecall stores the completed recall session count, the time of
	// the last completed recall (zero when none has run yet), and the
	// upcoming recall schedule, soonest first. An empty schedule clears it.
	UpdateRecall(ctx context.Context, unitID string, session int, lastAt time.Time, schedule []time.Time) error

	// DueRecalls returns the mastered units whose next recall time is at or
	// before now.
	DueRecalls(ctx context.Context, now time.Time) ([]practice.Unit, error)

	// Close releases the store's resources.
	Close()
}
