package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseMovementKind(t *testing.T) {
	tests := []struct {
		in   string
		want MovementKind
	}{
		{"credit", MovementKindCredit},
		{"+", MovementKindCredit},
		{" DEBIT ", MovementKindDebit},
		{"-", MovementKindDebit},
		{"Commission", MovementKindCommission},
		{"C", MovementKindCommission},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMovementKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := ParseMovementKind("refund")
	assert.Error(t, err)
	assert.False(t, MovementKind("refund").Valid())
}

func TestMovement_Signed(t *testing.T) {
	at := time.Now()
	assert.True(t, NewMovement("alice", MovementKindCredit, dec("10"), at).Signed().Equal(dec("10")))
	assert.True(t, NewMovement("alice", MovementKindDebit, dec("10"), at).Signed().Equal(dec("-10")))
	assert.True(t, NewMovement("alice", MovementKindCommission, dec("5"), at).Signed().Equal(dec("-5")),
		"commissions are deducted from the till")
}

func TestNewMovement_AssignsIDAndUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	a := NewMovement("alice", MovementKindCredit, dec("1"), time.Date(2026, 1, 2, 10, 0, 0, 0, loc))
	b := NewMovement("alice", MovementKindCredit, dec("1"), time.Now())

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, time.UTC, a.RecordedAt.Location())
	assert.Equal(t, 9, a.RecordedAt.Hour())
}

func TestSummarize(t *testing.T) {
	at := time.Now()
	movs := []Movement{
		NewMovement("alice", MovementKindCredit, dec("100"), at),
		NewMovement("alice", MovementKindDebit, dec("30"), at),
		NewMovement("bob", MovementKindCommission, dec("5"), at),
		NewMovement("bob", MovementKindCredit, dec("0.10"), at),
	}

	tot := Summarize(movs)
	assert.Equal(t, 4, tot.Count)
	assert.Equal(t, "100.10", FormatAmount(tot.Credits))
	assert.Equal(t, "30.00", FormatAmount(tot.Debits))
	assert.Equal(t, "5.00", FormatAmount(tot.Commissions))
	assert.Equal(t, "65.10", FormatAmount(tot.Net))
}

func TestSummarize_Empty(t *testing.T) {
	tot := Summarize(nil)
	assert.Equal(t, 0, tot.Count)
	assert.True(t, tot.Net.IsZero())
}

func TestNewSnapshot_CopiesMovements(t *testing.T) {
	movs := []Movement{NewMovement("alice", MovementKindCredit, dec("10"), time.Now())}
	snap := NewSnapshot(movs, time.Now())

	movs[0].Amount = dec("999")
	assert.Equal(t, "10.00", FormatAmount(snap.Movements[0].Amount))
	assert.Equal(t, "10.00", FormatAmount(snap.Balance()))
	assert.False(t, snap.IsEmpty())
	assert.True(t, NewSnapshot(nil, time.Now()).IsEmpty())
}

func TestNormalizeOperatorID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"@Alice", "alice", false},
		{" alice ", "alice", false},
		{"@elanyx", "elanyx", false},
		{"123456789", "123456789", false},
		{"user_name_1", "user_name_1", false},
		{"", "", true},
		{"@", "", true},
		{"al ice", "", true},
		{"@@alice", "", true},
		{"alice!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeOperatorID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOperatorID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplayOperator(t *testing.T) {
	assert.Equal(t, "@alice", DisplayOperator("alice"))
	assert.Equal(t, "42", DisplayOperator("42"))
	assert.Equal(t, "", DisplayOperator(""))
	assert.True(t, IsNumericID("42"))
	assert.False(t, IsNumericID("4a"))
}

func TestMovementEvent(t *testing.T) {
	m := NewMovement("alice", MovementKindDebit, dec("30"), time.Now())
	ev := MovementEvent(EventMovementRecorded, m, dec("70"), 2)

	require.NotNil(t, ev.MovementID)
	assert.Equal(t, m.ID, *ev.MovementID)
	assert.Equal(t, EventMovementRecorded, ev.Type)
	assert.Equal(t, "alice", ev.Actor)
	assert.Equal(t, MovementKindDebit, ev.Kind)
	assert.True(t, ev.Balance.Equal(dec("70")))
	assert.Equal(t, 2, ev.Movements)
}

func TestClosedEvent(t *testing.T) {
	at := time.Now()
	snap := NewSnapshot([]Movement{
		NewMovement("alice", MovementKindCredit, dec("100"), at),
		NewMovement("alice", MovementKindDebit, dec("30"), at),
	}, at)

	ev := ClosedEvent("alice", snap)
	assert.Equal(t, EventTillClosed, ev.Type)
	assert.Nil(t, ev.MovementID)
	assert.True(t, ev.Balance.Equal(dec("70")))
	assert.True(t, ev.Amount.Equal(dec("130")), "turnover is the unsigned sum")
	assert.Equal(t, 2, ev.Movements)
}
