package postgres

import (
	"context"
	"fmt"
)

// OperatorRepo implements ports.OperatorRepository.
type OperatorRepo struct {
	pool Pool
}

// NewOperatorRepo creates a new OperatorRepo.
func NewOperatorRepo(pool Pool) *OperatorRepo {
	return &OperatorRepo{pool: pool}
}

// List returns the operator ids in ascending order.
func (r *OperatorRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM operators ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return ids, nil
}

func (r *OperatorRepo) Add(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `INSERT INTO operators (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return false, fmt.Errorf("insert operator: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OperatorRepo) Remove(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM operators WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete operator: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
