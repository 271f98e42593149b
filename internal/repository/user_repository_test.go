package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@b.c' for key 'users.uq_users_email'"))

	_, err := repo.Create(context.Background(), "A", "A@B.C", "password123", "MEMBER", 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSetRoleUnknownID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET role=\?`).
		WithArgs("ADMIN", "missing-id").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM users WHERE id=\?`).
		WithArgs("missing-id").WillReturnError(sql.ErrNoRows)

	err := repo.SetRole(context.Background(), "missing-id", "ADMIN")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSetActiveNoOpIsFine(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	// Zero rows affected but the row exists: deactivating an already
	// inactive account is not an error.
	mock.ExpectExec(`UPDATE users SET is_active=\?`).
		WithArgs(false, "u-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM users WHERE id=\?`).
		WithArgs("u-1").WillReturnRows(userRows())

	err := repo.SetActive(context.Background(), "u-1", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "is_active", "created_at",
	}).AddRow("u-1", "Member One", "one@example.com", "$2a$04$hash", "MEMBER", false,
		overlapStart)
}
