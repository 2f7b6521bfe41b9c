package repositories

import (
	"context"
	"time"

	"github.com/equifund/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActionRepo is the journal of write actions.
type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

func (r *ActionRepo) Create(ctx context.Context, a *models.ActionRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tx_actions (id, kind, actor, target, amount, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8)
	`, a.ID, a.Kind, a.Actor, a.Target, a.Amount, a.State, a.CreatedAt, a.UpdatedAt)
	return err
}

// Finish stores the terminal state of an action.
func (r *ActionRepo) Finish(ctx context.Context, a *models.ActionRecord) error {
	var block *int64
	if a.BlockNumber != nil {
		b := int64(*a.BlockNumber)
		block = &b
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE tx_actions
		SET state = $2, tx_hash = $3, block_number = $4, error = $5, updated_at = $6
		WHERE id = $1
	`, a.ID, a.State, a.TxHash, block, a.Error, a.UpdatedAt)
	return err
}

type ActionFilter struct {
	Actor  *string
	Kind   *string
	Limit  int
	Offset int
}

func (r *ActionRepo) List(ctx context.Context, f ActionFilter) ([]models.ActionRecord, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, actor, target, amount::text, state, tx_hash, block_number, error, created_at, updated_at
		FROM tx_actions
		WHERE ($1::text IS NULL OR actor = $1) AND ($2::text IS NULL OR kind = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, f.Actor, f.Kind, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActionRecord
	for rows.Next() {
		var (
			a     models.ActionRecord
			block *int64
		)
		if err := rows.Scan(&a.ID, &a.Kind, &a.Actor, &a.Target, &a.Amount, &a.State, &a.TxHash, &block, &a.Error, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if block != nil {
			b := uint64(*block)
			a.BlockNumber = &b
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes finished actions created before the cutoff.
func (r *ActionRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM tx_actions
		WHERE created_at < $1 AND state IN ('succeeded', 'failed')
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
