package ports

import (
	"context"
	"time"

	"till-bot/internal/core/domain"
)

// MovementLog is the persistence collaborator of the ledger: an append-only
// log that can be read back in order and truncated on close.
// It is a serialization of the in-memory ledger, never a second source of truth.
type MovementLog interface {
	Append(ctx context.Context, m domain.Movement) error
	ReadAll(ctx context.Context) ([]domain.Movement, error)
	Truncate(ctx context.Context) error
}

// MovementReplacer is implemented by logs that can swap their whole content
// atomically. The ledger prefers it over Truncate plus Append when undoing.
type MovementReplacer interface {
	Replace(ctx context.Context, movements []domain.Movement) error
}

// OperatorRepository persists the operator set. Ids are already normalized.
type OperatorRepository interface {
	List(ctx context.Context) ([]string, error)
	// Add returns false when id was already present.
	Add(ctx context.Context, id string) (bool, error)
	// Remove returns false when id was not present.
	Remove(ctx context.Context, id string) (bool, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// EventPublisher ships ledger events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// UpdateDeduper remembers chat update ids so webhook retries are processed once.
type UpdateDeduper interface {
	// FirstSeen atomically marks updateID as seen and reports whether it was new.
	FirstSeen(ctx context.Context, updateID int64, ttl time.Duration) (bool, error)
}

// ReplyCache keeps the reply sent for a chat update so a retried webhook
// delivery gets the same answer without running the command again.
type ReplyCache interface {
	// Get returns "", false when no reply is cached for updateID.
	Get(ctx context.Context, updateID int64) (string, bool, error)
	Set(ctx context.Context, updateID int64, reply string, ttl time.Duration) error
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}
