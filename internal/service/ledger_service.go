package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"till-bot/internal/core/domain"
	"till-bot/internal/core/ports"
	"till-bot/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService.
// The in-memory movement list is authoritative; the movement log is written
// while the lock is held so that log order always equals memory order.
type LedgerServiceImpl struct {
	mu        sync.Mutex
	movements []domain.Movement
	balance   decimal.Decimal

	store  ports.MovementLog
	events ports.EventPublisher
	now    func() time.Time
	log    zerolog.Logger
}

// NewLedgerService creates a ledger backed by store. events may be nil.
func NewLedgerService(store ports.MovementLog, events ports.EventPublisher, log zerolog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		balance: decimal.Zero,
		store:   store,
		events:  events,
		now:     time.Now,
		log:     log,
	}
}

// Record parses rawAmount and appends a movement. A failed log write leaves
// the movement in memory and is reported through Receipt.Persisted.
func (s *LedgerServiceImpl) Record(ctx context.Context, actor string, kind domain.MovementKind, rawAmount string) (*ports.Receipt, error) {
	if !kind.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown movement kind %q", kind))
	}
	amount, err := domain.ParseAmount(rawAmount)
	if err != nil {
		return nil, apperror.ErrInvalidAmountCause(err)
	}

	s.mu.Lock()
	m := domain.NewMovement(actor, kind, amount, s.now())
	s.movements = append(s.movements, m)
	s.balance = s.balance.Add(m.Signed())
	persisted := s.append(ctx, m)
	receipt := &ports.Receipt{Movement: m, Balance: s.balance, Persisted: persisted}
	count := len(s.movements)
	s.mu.Unlock()

	s.log.Info().
		Str("actor", actor).
		Str("kind", string(kind)).
		Str("amount", amount.StringFixed(domain.AmountScale)).
		Str("balance", receipt.Balance.StringFixed(domain.AmountScale)).
		Bool("persisted", persisted).
		Msg("movement recorded")

	s.publish(ctx, domain.MovementEvent(domain.EventMovementRecorded, m, receipt.Balance, count))
	return receipt, nil
}

// Balance returns the running balance.
func (s *LedgerServiceImpl) Balance(_ context.Context) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Snapshot returns a copy of the current ledger without resetting it.
func (s *LedgerServiceImpl) Snapshot(_ context.Context) *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewSnapshot(s.movements, s.now())
}

// UndoLast removes the most recent movement, or the most recent one recorded
// by actor when actor is non-empty.
func (s *LedgerServiceImpl) UndoLast(ctx context.Context, actor string) (*ports.Receipt, error) {
	s.mu.Lock()
	idx := -1
	for i := len(s.movements) - 1; i >= 0; i-- {
		if actor == "" || s.movements[i].Actor == actor {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, apperror.ErrEmptyLedger()
	}

	m := s.movements[idx]
	s.movements = append(s.movements[:idx:idx], s.movements[idx+1:]...)
	s.balance = s.balance.Sub(m.Signed())
	persisted := s.rewrite(ctx)
	receipt := &ports.Receipt{Movement: m, Balance: s.balance, Persisted: persisted}
	count := len(s.movements)
	s.mu.Unlock()

	s.log.Info().
		Str("actor", actor).
		Str("movement_id", m.ID.String()).
		Str("balance", receipt.Balance.StringFixed(domain.AmountScale)).
		Bool("persisted", persisted).
		Msg("movement reverted")

	s.publish(ctx, domain.MovementEvent(domain.EventMovementReverted, m, receipt.Balance, count))
	return receipt, nil
}

// Reset takes the closing snapshot and clears the ledger in one critical
// section, so no movement can land between the report and the reset.
func (s *LedgerServiceImpl) Reset(ctx context.Context, actor string) (*ports.Closing, error) {
	s.mu.Lock()
	snap := domain.NewSnapshot(s.movements, s.now())
	s.movements = nil
	s.balance = decimal.Zero
	persisted := true
	if s.store != nil {
		if err := s.store.Truncate(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to truncate movement log")
			persisted = false
		}
	}
	s.mu.Unlock()

	s.log.Info().
		Str("actor", actor).
		Int("movements", len(snap.Movements)).
		Str("balance", snap.Balance().StringFixed(domain.AmountScale)).
		Bool("persisted", persisted).
		Msg("till closed")

	s.publish(ctx, domain.ClosedEvent(actor, snap))
	return &ports.Closing{Snapshot: snap, Persisted: persisted}, nil
}

// Hydrate replaces the in-memory ledger with the content of the movement log.
// Rows with an unknown kind or a non-positive amount are skipped.
func (s *LedgerServiceImpl) Hydrate(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		return apperror.ErrPersistenceFailure(fmt.Errorf("read movement log: %w", err))
	}

	movements := make([]domain.Movement, 0, len(rows))
	balance := decimal.Zero
	for _, m := range rows {
		if !m.Kind.Valid() || !m.Amount.IsPositive() {
			s.log.Warn().Str("movement_id", m.ID.String()).Str("kind", string(m.Kind)).Msg("skipping malformed movement")
			continue
		}
		movements = append(movements, m)
		balance = balance.Add(m.Signed())
	}

	s.mu.Lock()
	s.movements = movements
	s.balance = balance
	s.mu.Unlock()

	s.log.Info().
		Int("movements", len(movements)).
		Str("balance", balance.StringFixed(domain.AmountScale)).
		Msg("ledger hydrated")
	return nil
}

// append writes m to the log. Caller holds s.mu.
func (s *LedgerServiceImpl) append(ctx context.Context, m domain.Movement) bool {
	if s.store == nil {
		return true
	}
	if err := s.store.Append(ctx, m); err != nil {
		s.log.Warn().Err(err).Str("movement_id", m.ID.String()).Msg("failed to append movement")
		return false
	}
	return true
}

// rewrite replaces the log with the current movements. Caller holds s.mu.
func (s *LedgerServiceImpl) rewrite(ctx context.Context) bool {
	if s.store == nil {
		return true
	}
	if r, ok := s.store.(ports.MovementReplacer); ok {
		if err := r.Replace(ctx, s.movements); err != nil {
			s.log.Warn().Err(err).Msg("failed to replace movement log")
			return false
		}
		return true
	}
	if err := s.store.Truncate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to truncate movement log")
		return false
	}
	for _, m := range s.movements {
		if err := s.store.Append(ctx, m); err != nil {
			s.log.Warn().Err(err).Str("movement_id", m.ID.String()).Msg("failed to rewrite movement log")
			return false
		}
	}
	return true
}

func (s *LedgerServiceImpl) publish(ctx context.Context, event domain.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(event.Type)).Msg("failed to publish ledger event")
	}
}
