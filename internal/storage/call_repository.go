package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

// CallRepository persists the processing call ledger.
// Only the interface is exported; tests and the orchestrator depend on it.
type CallRepository interface {
	Create(ctx context.Context, call *model.ProcessingCall) error
	Count(ctx context.Context) (int64, error)
	CountByOutcome(ctx context.Context) (map[model.CallOutcome]int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.ProcessingCall, error)
}

type sqliteCallRepository struct {
	db *sqlx.DB
}

// NewCallRepository creates a SQLite-backed CallRepository.
func NewCallRepository(db *sqlx.DB) CallRepository {
	return &sqliteCallRepository{db: db}
}

func (r *sqliteCallRepository) Create(ctx context.Context, call *model.ProcessingCall) error {
	// NamedExecContext maps the struct's `db:` tags onto :named placeholders.
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO calls (session_id, adapter, outcome, stale, duration_ms, created_at)
		VALUES (:session_id, :adapter, :outcome, :stale, :duration_ms, :created_at)
	`, call)
	if err != nil {
		return fmt.Errorf("creating call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM calls")
	return count, err
}

// CountByOutcome returns a count for every known outcome, zeros included,
// so reports always have the same shape.
func (r *sqliteCallRepository) CountByOutcome(ctx context.Context) (map[model.CallOutcome]int64, error) {
	var rows []struct {
		Outcome model.CallOutcome `db:"outcome"`
		Count   int64             `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, "SELECT outcome, COUNT(*) AS n FROM calls GROUP BY outcome"); err != nil {
		return nil, fmt.Errorf("counting calls by outcome: %w", err)
	}

	counts := make(map[model.CallOutcome]int64, len(model.AllOutcomes))
	for _, o := range model.AllOutcomes {
		counts[o] = 0
	}
	for _, row := range rows {
		counts[row.Outcome] = row.Count
	}
	return counts, nil
}

func (r *sqliteCallRepository) ListRecent(ctx context.Context, limit int) ([]model.ProcessingCall, error) {
	var calls []model.ProcessingCall
	err := r.db.SelectContext(ctx, &calls,
		"SELECT * FROM calls ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent calls: %w", err)
	}
	return calls, nil
}
