// AngelaMos | 2026
// repository.go

package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/valera277/rag-converter-pro/internal/core"
)

type Repository interface {
	FreeUses(ctx context.Context, userID string) (int, error)
	Record(ctx context.Context, in Record) (*HistoryEntry, error)
	History(ctx context.Context, userID string, params ListHistoryParams) ([]HistoryEntry, int, error)
}

// Record is one completed conversion. When CountFree is set the free-tier
// counter is bumped in the same transaction, bounded by Limit.
type Record struct {
	UserID    string
	Filename  string
	Chunks    int
	CountFree bool
	Limit     int
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FreeUses(ctx context.Context, userID string) (int, error) {
	query := `SELECT free_uses FROM usage_counters WHERE user_id = $1`

	var uses int
	err := r.db.GetContext(ctx, &uses, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage counter: %w", err)
	}

	return uses, nil
}

// Record commits the counter increment and the history row together. The
// increment only succeeds while the counter is below the limit, so two
// concurrent conversions cannot both spend the last free slot.
func (r *repository) Record(ctx context.Context, in Record) (*HistoryEntry, error) {
	var entry HistoryEntry

	err := core.InTx(ctx, r.db, "record conversion", func(tx *sqlx.Tx) error {
		if in.CountFree {
			if err := incrementFreeUses(ctx, tx, in.UserID, in.Limit); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO conversion_history (id, user_id, filename, chunks_count)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, filename, chunks_count, created_at`

		if err := tx.GetContext(ctx, &entry, query,
			uuid.New().String(),
			in.UserID,
			in.Filename,
			in.Chunks,
		); err != nil {
			return fmt.Errorf("insert conversion history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func incrementFreeUses(ctx context.Context, tx *sqlx.Tx, userID string, limit int) error {
	query := `
		INSERT INTO usage_counters (user_id, free_uses)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE
		SET free_uses = usage_counters.free_uses + 1, updated_at = NOW()
		WHERE usage_counters.free_uses < $2
		RETURNING free_uses`

	var uses int
	err := tx.GetContext(ctx, &uses, query, userID, limit)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrQuotaExceeded
	}
	if err != nil {
		return fmt.Errorf("increment usage counter: %w", err)
	}
	return nil
}

func (r *repository) History(
	ctx context.Context,
	userID string,
	params ListHistoryParams,
) ([]HistoryEntry, int, error) {
	params.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM conversion_history WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count conversion history: %w", err)
	}

	query := `
		SELECT id, user_id, filename, chunks_count, created_at
		FROM conversion_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var entries []HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query,
		userID,
		params.PageSize,
		params.Offset(),
	); err != nil {
		return nil, 0, fmt.Errorf("list conversion history: %w", err)
	}

	return entries, total, nil
}
