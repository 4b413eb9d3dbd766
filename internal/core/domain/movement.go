package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind represents the kind of cash movement.
type MovementKind string

const (
	MovementKindCredit     MovementKind = "credit"
	MovementKindDebit      MovementKind = "debit"
	MovementKindCommission MovementKind = "commission"
)

// ParseMovementKind accepts the canonical names plus the short symbols used
// by the chat commands and older CSV logs ("+", "-", "C").
func ParseMovementKind(s string) (MovementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "+":
		return MovementKindCredit, nil
	case "debit", "-":
		return MovementKindDebit, nil
	case "commission", "c":
		return MovementKindCommission, nil
	}
	return "", fmt.Errorf("unknown movement kind %q", s)
}

// Valid reports whether k is one of the known kinds.
func (k MovementKind) Valid() bool {
	return k == MovementKindCredit || k == MovementKindDebit || k == MovementKindCommission
}

// Movement is one recorded credit, debit or commission.
// Amount is always positive; the kind decides its sign on the balance.
type Movement struct {
	ID         uuid.UUID       `json:"id"`
	Actor      string          `json:"actor"`
	Kind       MovementKind    `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// NewMovement builds a movement with a fresh ID.
func NewMovement(actor string, kind MovementKind, amount decimal.Decimal, at time.Time) Movement {
	return Movement{
		ID:         uuid.New(),
		Actor:      actor,
		Kind:       kind,
		Amount:     amount,
		RecordedAt: at.UTC(),
	}
}

// Signed returns the contribution of the movement to the balance.
// Commissions are deducted from the till.
func (m Movement) Signed() decimal.Decimal {
	if m.Kind == MovementKindCredit {
		return m.Amount
	}
	return m.Amount.Neg()
}

// Totals aggregates a movement sequence. Credits, Debits and Commissions are
// unsigned; Net is the signed balance.
type Totals struct {
	Count       int             `json:"count"`
	Credits     decimal.Decimal `json:"credits"`
	Debits      decimal.Decimal `json:"debits"`
	Commissions decimal.Decimal `json:"commissions"`
	Net         decimal.Decimal `json:"net"`
}

// Summarize computes the totals of movements.
func Summarize(movements []Movement) Totals {
	t := Totals{
		Count:       len(movements),
		Credits:     decimal.Zero,
		Debits:      decimal.Zero,
		Commissions: decimal.Zero,
		Net:         decimal.Zero,
	}
	for _, m := range movements {
		switch m.Kind {
		case MovementKindCredit:
			t.Credits = t.Credits.Add(m.Amount)
		case MovementKindDebit:
			t.Debits = t.Debits.Add(m.Amount)
		case MovementKindCommission:
			t.Commissions = t.Commissions.Add(m.Amount)
		}
		t.Net = t.Net.Add(m.Signed())
	}
	return t
}

// Snapshot is an immutable copy of the ledger at one instant.
type Snapshot struct {
	Movements []Movement `json:"movements"`
	Totals    Totals     `json:"totals"`
	TakenAt   time.Time  `json:"taken_at"`
}

// NewSnapshot copies movements so later ledger mutations cannot leak in.
func NewSnapshot(movements []Movement, at time.Time) *Snapshot {
	copied := make([]Movement, len(movements))
	copy(copied, movements)
	return &Snapshot{
		Movements: copied,
		Totals:    Summarize(copied),
		TakenAt:   at.UTC(),
	}
}

// Balance returns the net balance of the snapshot.
func (s *Snapshot) Balance() decimal.Decimal {
	return s.Totals.Net
}

// IsEmpty reports whether the snapshot holds no movements.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Movements) == 0
}
