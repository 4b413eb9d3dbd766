package postgres

import (
	"context"
	"fmt"
	"time"

	"till-bot/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const insertMovement = `INSERT INTO movements (id, actor, kind, amount, recorded_at)
	VALUES ($1, $2, $3, $4::numeric, $5)`

// MovementRepo implements ports.MovementLog and ports.MovementReplacer.
type MovementRepo struct {
	pool Pool
}

// NewMovementRepo creates a new MovementRepo.
func NewMovementRepo(pool Pool) *MovementRepo {
	return &MovementRepo{pool: pool}
}

func (r *MovementRepo) Append(ctx context.Context, m domain.Movement) error {
	if _, err := r.pool.Exec(ctx, insertMovement, movementArgs(m)...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ReadAll returns the movements in insertion order.
func (r *MovementRepo) ReadAll(ctx context.Context) ([]domain.Movement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, actor, kind, amount::text, recorded_at FROM movements ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("read movements: %w", err)
	}
	defer rows.Close()

	var out []domain.Movement
	for rows.Next() {
		var (
			id         uuid.UUID
			actor      string
			kind       string
			amount     string
			recordedAt time.Time
		)
		if err := rows.Scan(&id, &actor, &kind, &amount, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m, err := toMovement(id, actor, kind, amount, recordedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read movements: %w", err)
	}
	return out, nil
}

func (r *MovementRepo) Truncate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM movements`); err != nil {
		return fmt.Errorf("truncate movements: %w", err)
	}
	return nil
}

// Replace swaps the stored movements for movements in one transaction.
func (r *MovementRepo) Replace(ctx context.Context, movements []domain.Movement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}

	if err := replaceIn(ctx, tx, movements); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func replaceIn(ctx context.Context, tx pgx.Tx, movements []domain.Movement) error {
	if _, err := tx.Exec(ctx, `DELETE FROM movements`); err != nil {
		return fmt.Errorf("truncate movements: %w", err)
	}
	for _, m := range movements {
		if _, err := tx.Exec(ctx, insertMovement, movementArgs(m)...); err != nil {
			return fmt.Errorf("insert movement %s: %w", m.ID, err)
		}
	}
	return nil
}

func movementArgs(m domain.Movement) []any {
	return []any{m.ID, m.Actor, string(m.Kind), domain.FormatAmount(m.Amount), m.RecordedAt}
}

func toMovement(id uuid.UUID, actor, kind, amount string, recordedAt time.Time) (domain.Movement, error) {
	k, err := domain.ParseMovementKind(kind)
	if err != nil {
		return domain.Movement{}, fmt.Errorf("movement %s: %w", id, err)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Movement{}, fmt.Errorf("movement %s amount: %w", id, err)
	}
	return domain.Movement{
		ID:         id,
		Actor:      actor,
		Kind:       k,
		Amount:     a,
		RecordedAt: recordedAt.UTC(),
	}, nil
}
