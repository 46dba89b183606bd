package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/datemate/taskpoll/internal/task"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: task.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), want: task.ErrNotFound},
		{
			name: "unique violation",
			err:  &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "ai_tasks_pkey"},
			want: ErrDuplicate,
		},
		{
			name: "check violation",
			err:  &pgconn.PgError{Code: checkViolationCode, ConstraintName: "ai_tasks_type_check"},
			want: ErrInvalidRecord,
		},
		{
			name: "not null violation",
			err:  &pgconn.PgError{Code: notNullViolationCode, ColumnName: "payload"},
			want: ErrInvalidRecord,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError(tc.err)
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	assert.NoError(t, MapError(nil))

	plain := errors.New("connection reset")
	assert.Same(t, plain, MapError(plain))

	other := &pgconn.PgError{Code: "40001"}
	assert.Equal(t, error(other), MapError(other))
}

func TestMapError_KeepsConstraintName(t *testing.T) {
	err := MapError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "ai_tasks_status_check"})
	assert.Contains(t, err.Error(), "ai_tasks_status_check")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationCode})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestCheckRowsAffected(t *testing.T) {
	assert.NoError(t, checkRowsAffected(fakeResult{rows: 1}))
	assert.ErrorIs(t, checkRowsAffected(fakeResult{rows: 0}), task.ErrNotFound)

	failing := errors.New("driver does not support RowsAffected")
	assert.ErrorIs(t, checkRowsAffected(fakeResult{err: failing}), failing)
}
