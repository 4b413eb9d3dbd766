// Package memory holds process-local stores. They are the default when no
// external storage is configured and back the service tests.
package memory

import (
	"context"
	"sync"

	"till-bot/internal/core/domain"
)

// MovementLog implements ports.MovementLog in memory.
type MovementLog struct {
	mu   sync.RWMutex
	rows []domain.Movement
}

// NewMovementLog creates an empty log.
func NewMovementLog() *MovementLog {
	return &MovementLog{}
}

func (l *MovementLog) Append(_ context.Context, m domain.Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, m)
	return nil
}

func (l *MovementLog) ReadAll(_ context.Context) ([]domain.Movement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Movement, len(l.rows))
	copy(out, l.rows)
	return out, nil
}

func (l *MovementLog) Truncate(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = nil
	return nil
}
