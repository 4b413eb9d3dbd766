package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"till-bot/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// MovementLog implements ports.MovementLog and ports.MovementReplacer as a
// Redis list of JSON rows.
type MovementLog struct {
	client *goredis.Client
	key    string
}

// NewMovementLog creates a movement log stored under "till:movements".
func NewMovementLog(client *goredis.Client) *MovementLog {
	return &MovementLog{client: client, key: keyPrefix + "movements"}
}

func (l *MovementLog) Append(ctx context.Context, m domain.Movement) error {
	row, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode movement: %w", err)
	}
	if err := l.client.RPush(ctx, l.key, row).Err(); err != nil {
		return fmt.Errorf("redis movement append: %w", err)
	}
	return nil
}

func (l *MovementLog) ReadAll(ctx context.Context) ([]domain.Movement, error) {
	rows, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis movement read: %w", err)
	}

	// Undecodable rows come back as zero movements, which the ledger skips.
	out := make([]domain.Movement, 0, len(rows))
	for _, row := range rows {
		var m domain.Movement
		if err := json.Unmarshal([]byte(row), &m); err != nil {
			m = domain.Movement{}
		}
		out = append(out, m)
	}
	return out, nil
}

func (l *MovementLog) Truncate(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("redis movement truncate: %w", err)
	}
	return nil
}

// Replace swaps the list content in a MULTI/EXEC block.
func (l *MovementLog) Replace(ctx context.Context, movements []domain.Movement) error {
	rows := make([]any, 0, len(movements))
	for _, m := range movements {
		row, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode movement: %w", err)
		}
		rows = append(rows, row)
	}

	_, err := l.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, l.key)
		if len(rows) > 0 {
			pipe.RPush(ctx, l.key, rows...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis movement replace: %w", err)
	}
	return nil
}
