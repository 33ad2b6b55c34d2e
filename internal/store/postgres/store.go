package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/practice"
	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store"
)

// Compile-time interface check.
var _ store.UnitStore = (*Store)(nil)

// Store is the PostgreSQL-backed unit store. Obtain one via [NewStore].
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unit store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unit store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unit store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SaveUnit implements [store.UnitStore].
func (s *Store) SaveUnit(ctx context.Context, unit practice.Unit) error {
	const q = `
		INSERT INTO practice_units
		    (id, position, title, sentences, mastered, mastered_at, recall_session, last_recall_at, recall_times, next_recall_at, deadline, checkpoint, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (id) DO UPDATE SET
		    position = EXCLUDED.position,
		    title = EXCLUDED.title,
		    sentences = EXCLUDED.sentences,
		    mastered = EXCLUDED.mastered,
		    mastered_at = EXCLUDED.mastered_at,
		    recall_session = EXCLUDED.recall_session,
		    last_recall_at = EXCLUDED.last_recall_at,
		    recall_times = EXCLUDED.recall_times,
		    next_recall_at = EXCLUDED.next_recall_at,
		    deadline = EXCLUDED.deadline,
		    checkpoint = EXCLUDED.checkpoint,
		    updated_at = now()`

	_, err := s.pool.Exec(ctx, q,
		unit.ID,
		unit.Position,
		unit.Title,
		unit.Sentences,
		unit.Mastered,
		nullableTime(unit.MasteredAt),
		unit.RecallSession,
		nullableTime(unit.LastRecallAt),
		unit.RecallTimes,
		nullableTime(unit.NextRecallAt),
		nullableTime(unit.Deadline),
		unit.Checkpoint,
	)
	if err != nil {
		return fmt.Errorf("unit store: save unit %q: %w", unit.ID, err)
	}
	return nil
}

// GetUnit implements [store.UnitStore].
func (s *Store) GetUnit(ctx context.Context, id string) (practice.Unit, error) {
	const q = `
		SELECT id, position, title, sentences, mastered, mastered_at, recall_session, last_recall_at, recall_times, next_recall_at, deadline, checkpoint
		FROM   practice_units
		WHERE  id = $1`

	unit, err := scanUnit(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return practice.Unit{}, fmt.Errorf("unit store: get unit %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return practice.Unit{}, fmt.Errorf("unit store: get unit %q: %w", id, err)
	}
	return unit, nil
}

// ListUnits implements [store.UnitStore].
func (s *Store) ListUnits(ctx context.Context) ([]practice.Unit, error) {
	const q = `
		SELECT id, position, title, sentences, mastered, mastered_at, recall_session, last_recall_at, recall_times, next_recall_at, deadline, checkpoint
		FROM   practice_units
		ORDER  BY updated_at DESC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("unit store: list units: %w", err)
	}
	units, err := collectUnits(rows)
	if err != nil {
		return nil, fmt.Errorf("unit store: list units: %w", err)
	}
	return units, nil
}

// SaveCheckpoint implements [store.UnitStore].
func (s *Store) SaveCheckpoint(ctx context.Context, unitID string, cp practice.Checkpoint) error {
	const q = `
		UPDATE practice_units
		SET    checkpoint = $2, updated_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, unitID, cp)
	if err != nil {
		return fmt.Errorf("unit store: save checkpoint for %q: %w", unitID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unit store: save checkpoint for %q: %w", unitID, store.ErrNotFound)
	}
	return nil
}

// MarkMastered implements [store.UnitStore].
func (s *Store) MarkMastered(ctx context.Context, unitID string, at time.Time) error {
	const q = `
		UPDATE practice_units
		SET    mastered = true, mastered_at = $2, recall_session = 0, updated_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, unitID, at)
	if err != nil {
		return fmt.Errorf("unit store: mark mastered %q: %w", unitID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unit store: mark mastered %q: %w", unitID, store.ErrNotFound)
	}
	return nil
}

// UpdateRecall implements [store.UnitStore].
func (s *Store) UpdateRecall(ctx context.Context, unitID string, session int, lastAt time.Time, schedule []time.Time) error {
	const q = `
		UPDATE practice_units
		SET    recall_session = $2, last_recall_at = $3, recall_times = $4, next_recall_at = $5, updated_at = now()
		WHERE  id = $1`

	var nextAt time.Time
	if len(schedule) > 0 {
		nextAt = schedule[0]
	}
	if schedule == nil {
		schedule = []time.Time{}
	}
	tag, err := s.pool.Exec(ctx, q, unitID, session, nullableTime(lastAt), schedule, nullableTime(nextAt))
	if err != nil {
		return fmt.Errorf("unit store: update recall for %q: %w", unitID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unit store: update recall for %q: %w", unitID, store.ErrNotFound)
	}
	return nil
}

// DueRecalls implements [store.UnitStore].
func (s *Store) DueRecalls(ctx context.Context, now time.Time) ([]practice.Unit, error) {
	const q = `
		SELECT id, position, title, sentences, mastered, mastered_at, recall_session, last_recall_at, recall_times, next_recall_at, deadline, checkpoint
		FROM   practice_units
		WHERE  mastered AND next_recall_at IS NOT NULL AND next_recall_at <= $1
		ORDER  BY next_recall_at`

	rows, err := s.pool.Query(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("unit store: due recalls: %w", err)
	}
	units, err := collectUnits(rows)
	if err != nil {
		return nil, fmt.Errorf("unit store: due recalls: %w", err)
	}
	return units, nil
}

func collectUnits(rows pgx.Rows) ([]practice.Unit, error) {
	defer rows.Close()
	var units []practice.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func scanUnit(row pgx.Row) (practice.Unit, error) {
	var (
		unit       practice.Unit
		masteredAt *time.Time
		lastRecall *time.Time
		nextRecall *time.Time
		deadline   *time.Time
	)
	err := row.Scan(
		&unit.ID,
		&unit.Position,
		&unit.Title,
		&unit.Sentences,
		&unit.Mastered,
		&masteredAt,
		&unit.RecallSession,
		&lastRecall,
		&unit.RecallTimes,
		&nextRecall,
		&deadline,
		&unit.Checkpoint,
	)
	if err != nil {
		return practice.Unit{}, err
	}
	if masteredAt != nil {
		unit.MasteredAt = *masteredAt
	}
	if lastRecall != nil {
		unit.LastRecallAt = *lastRecall
	}
	if nextRecall != nil {
		unit.NextRecallAt = *nextRecall
	}
	if deadline != nil {
		unit.Deadline = *deadline
	}
	return unit, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
