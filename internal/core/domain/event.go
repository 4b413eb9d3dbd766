package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a ledger event published to the event bus.
type EventType string

const (
	EventMovementRecorded EventType = "movement.recorded"
	EventMovementReverted EventType = "movement.reverted"
	EventTillClosed       EventType = "till.closed"
)

// LedgerEvent is the payload published after a successful ledger mutation.
type LedgerEvent struct {
	Type       EventType       `json:"type"`
	MovementID *uuid.UUID      `json:"movement_id,omitempty"`
	Actor      string          `json:"actor"`
	Kind       MovementKind    `json:"kind,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	Movements  int             `json:"movements"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// MovementEvent builds a recorded/reverted event for m.
func MovementEvent(t EventType, m Movement, balance decimal.Decimal, count int) LedgerEvent {
	id := m.ID
	return LedgerEvent{
		Type:       t,
		MovementID: &id,
		Actor:      m.Actor,
		Kind:       m.Kind,
		Amount:     m.Amount,
		Balance:    balance,
		Movements:  count,
		OccurredAt: time.Now().UTC(),
	}
}

// ClosedEvent builds the till.closed event for a reset snapshot.
func ClosedEvent(actor string, s *Snapshot) LedgerEvent {
	return LedgerEvent{
		Type:       EventTillClosed,
		Actor:      actor,
		Amount:     s.Totals.Credits.Add(s.Totals.Debits).Add(s.Totals.Commissions),
		Balance:    s.Balance(),
		Movements:  len(s.Movements),
		OccurredAt: s.TakenAt,
	}
}
