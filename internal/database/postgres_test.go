package database

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/emilythestrangee/demandboard/backend/internal/config"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	s, err := openPostgres(postgres.New(postgres.Config{Conn: db}), config.DatabaseConfig{}, log)
	require.NoError(t, err)
	return s, mock
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)

	dup := translate(&pgconn.PgError{Code: "23505", ConstraintName: "uq_problem_upvotes_problem_user"})
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.Contains(t, dup.Error(), "uq_problem_upvotes_problem_user")

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
	assert.False(t, errors.Is(translate(&pgconn.PgError{Code: "23503"}), ErrDuplicate))
}

func TestPostgresStore_FindSignalNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	target, user := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "problem_upvotes" WHERE problem_id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "problem_id", "user_id", "created_at"}))

	_, err := s.FindSignal(context.Background(), models.KindProblemUpvote, target, user)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertSignalDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO "solution_upvotes"`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "uq_solution_upvotes_solution_user"})

	err := s.InsertSignal(context.Background(), &models.Signal{
		Kind:     models.KindSolutionUpvote,
		TargetID: uuid.New(),
		UserID:   uuid.New(),
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteSignal(t *testing.T) {
	s, mock := newMockStore(t)
	target, user := uuid.New(), uuid.New()

	mock.ExpectExec(`DELETE FROM "problem_pay_signals" WHERE problem_id = \$1 AND user_id = \$2`).
		WithArgs(target, user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "problem_pay_signals"`).
		WithArgs(target, user).
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := s.DeleteSignal(context.Background(), models.KindPaySignal, target, user)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteSignal(context.Background(), models.KindPaySignal, target, user)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountSignals(t *testing.T) {
	s, mock := newMockStore(t)
	target := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "solution_upvotes" WHERE solution_id = \$1`).
		WithArgs(target).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.CountSignals(context.Background(), models.KindSolutionUpvote, target)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UnknownKind(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.CountSignals(context.Background(), models.SignalKind("downvote"), uuid.New())
	assert.Error(t, err)
	assert.Error(t, s.InsertSignal(context.Background(), &models.Signal{Kind: "downvote"}))
}

func TestPostgresStore_AnyOtherSolved(t *testing.T) {
	s, mock := newMockStore(t)
	problemID, excludeID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "solutions" WHERE problem_id = \$1 AND is_marked_solved = \$2 AND id <> \$3`).
		WithArgs(problemID, true, excludeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	other, err := s.AnyOtherSolved(context.Background(), problemID, excludeID)
	require.NoError(t, err)
	assert.True(t, other)
	require.NoError(t, mock.ExpectationsWereMet())
}
