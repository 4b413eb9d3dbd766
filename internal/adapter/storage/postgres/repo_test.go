package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"till-bot/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zerologNop() zerolog.Logger { return zerolog.Nop() }

func newTestMovement(kind domain.MovementKind, amount string) domain.Movement {
	return domain.NewMovement("@alice", kind, decimal.RequireFromString(amount),
		time.Now().UTC().Truncate(time.Microsecond))
}

func movementColumns() []string {
	return []string{"id", "actor", "kind", "amount", "recorded_at"}
}

func TestMovementRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMovementRepo(mock)
	m := newTestMovement(domain.MovementKindCredit, "100.5")

	mock.ExpectExec("INSERT INTO movements").
		WithArgs(m.ID, "@alice", "credit", "100.50", m.RecordedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Append(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepo_ReadAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMovementRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT .+ FROM movements ORDER BY seq").
		WillReturnRows(pgxmock.NewRows(movementColumns()).
			AddRow(first, "@alice", "credit", "100.00", now).
			AddRow(second, "@bob", "commission", "2.50", now.Add(time.Second)))

	got, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].ID)
	assert.Equal(t, domain.MovementKindCredit, got[0].Kind)
	assert.True(t, decimal.RequireFromString("2.5").Equal(got[1].Amount))
	assert.Equal(t, "@bob", got[1].Actor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepo_ReadAll_BadKind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM movements").
		WillReturnRows(pgxmock.NewRows(movementColumns()).
			AddRow(uuid.New(), "@alice", "refund", "1.00", time.Now()))

	_, err = NewMovementRepo(mock).ReadAll(context.Background())
	assert.Error(t, err)
}

func TestMovementRepo_Truncate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM movements").WillReturnResult(pgxmock.NewResult("DELETE", 3))

	assert.NoError(t, NewMovementRepo(mock).Truncate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepo_Replace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := newTestMovement(domain.MovementKindDebit, "7")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM movements").WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO movements").
		WithArgs(m.ID, "@alice", "debit", "7.00", m.RecordedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	assert.NoError(t, NewMovementRepo(mock).Replace(context.Background(), []domain.Movement{m}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepo_Replace_RollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := newTestMovement(domain.MovementKindCredit, "1")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM movements").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO movements").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewMovementRepo(mock).Replace(context.Background(), []domain.Movement{m})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id FROM operators ORDER BY id").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("alice").AddRow("elanyx"))

	ids, err := NewOperatorRepo(mock).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "elanyx"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorRepo_AddRemove(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOperatorRepo(mock)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO operators").WithArgs("bob").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO operators").WithArgs("bob").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("DELETE FROM operators").WithArgs("bob").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM operators").WithArgs("bob").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	added, err := repo.Add(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, added)

	removed, err := repo.Remove(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entry := &domain.AuditLog{
		ID:        uuid.New(),
		Actor:     "@alice",
		Action:    domain.AuditActionRecord,
		Outcome:   domain.AuditOutcomeSuccess,
		Command:   "/a 10",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, "@alice", "RECORD", "SUCCESS", "/a 10", pgxmock.AnyArg(), entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, NewAuditRepo(mock).Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
