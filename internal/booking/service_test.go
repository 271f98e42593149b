package booking

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsphere/environment-reservation/internal/model"
	"github.com/labsphere/environment-reservation/internal/repository"
)

func newServiceMock(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewService(db,
		repository.NewUserRepo(db),
		repository.NewEnvironmentRepo(db),
		repository.NewReservationRepo(db),
		repository.NewHistoryRepo(db))
	return svc, mock
}

var (
	testStart = time.Date(2026, 4, 10, 14, 0, 0, 0, time.UTC)
	testEnd   = testStart.Add(2 * time.Hour)
)

func environmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "capacity", "description", "category",
		"has_screen", "has_projector", "has_air_con", "is_active",
	}).AddRow(3, "Lab A", 24, "", "LAB", true, true, false, true)
}

func reservationRow(id uint64, userID string, status model.Status) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "environment_id", "user_id", "start_time", "end_time", "created_at", "status", "reason",
	}).AddRow(id, 3, userID, testStart, testEnd, testStart.Add(-time.Hour), status, "standup")
}

func TestCreateSuccess(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM environments WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(3)).WillReturnRows(environmentRows())
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(uint64(3), testEnd, testStart).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(uint64(3), "u-member", testStart, testEnd, model.StatusPending, "standup").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`FROM reservations WHERE id=\?`).
		WithArgs(uint64(7)).WillReturnRows(reservationRow(7, "u-member", model.StatusPending))
	mock.ExpectCommit()

	res, err := svc.Create(context.Background(), member, CreateInput{
		EnvironmentID: 3, Start: testStart, End: testEnd, Reason: "standup",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.ID)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConflictRollsBack(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM environments WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(3)).WillReturnRows(environmentRows())
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(uint64(3), testEnd, testStart).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), member, CreateInput{
		EnvironmentID: 3, Start: testStart, End: testEnd,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUnknownEnvironment(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM environments WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), member, CreateInput{
		EnvironmentID: 99, Start: testStart, End: testEnd,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvalidInterval(t *testing.T) {
	svc, _ := newServiceMock(t)

	_, err := svc.Create(context.Background(), member, CreateInput{
		EnvironmentID: 3, Start: testEnd, End: testStart,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(context.Background(), member, CreateInput{
		EnvironmentID: 3, Start: testStart, End: testStart,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateForOtherUserForbidden(t *testing.T) {
	svc, _ := newServiceMock(t)

	_, err := svc.Create(context.Background(), member, CreateInput{
		EnvironmentID: 3, HolderID: "someone-else", Start: testStart, End: testEnd,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateReasonTooLong(t *testing.T) {
	svc, _ := newServiceMock(t)

	long := make([]byte, model.MaxReasonLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.Create(context.Background(), member, CreateInput{
		EnvironmentID: 3, Start: testStart, End: testEnd, Reason: string(long),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMemberCancelsOwnPendingArchives(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, member.ID, model.StatusPending))
	mock.ExpectExec(`UPDATE reservations SET status=\?`).
		WithArgs(model.StatusCancelled, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`JOIN environments e`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "environment_id", "name", "user_id", "user_name",
			"start_time", "end_time", "created_at", "status", "reason",
		}).AddRow(42, 3, "Lab A", member.ID, "Member One",
			testStart, testEnd, testStart.Add(-time.Hour), model.StatusCancelled, "standup"))
	mock.ExpectExec(`INSERT INTO reservation_history`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM reservations`).
		WithArgs(uint64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, hist, err := svc.UpdateStatus(context.Background(), member, 42, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Status)
	require.NotNil(t, hist)
	assert.Equal(t, uint64(42), hist.ID)
	assert.Equal(t, "Lab A", hist.EnvironmentName)
	assert.Equal(t, model.StatusCancelled, hist.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmDoesNotArchive(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, member.ID, model.StatusPending))
	mock.ExpectExec(`UPDATE reservations SET status=\?`).
		WithArgs(model.StatusConfirmed, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, hist, err := svc.UpdateStatus(context.Background(), admin, 42, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.Nil(t, hist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateArchiveRollsBack(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, member.ID, model.StatusPending))
	mock.ExpectExec(`UPDATE reservations SET status=\?`).
		WithArgs(model.StatusCancelled, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`JOIN environments e`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "environment_id", "name", "user_id", "user_name",
			"start_time", "end_time", "created_at", "status", "reason",
		}).AddRow(42, 3, "Lab A", member.ID, "Member One",
			testStart, testEnd, testStart.Add(-time.Hour), model.StatusCancelled, ""))
	mock.ExpectExec(`INSERT INTO reservation_history`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '42' for key 'reservation_history.PRIMARY'"))
	mock.ExpectRollback()

	_, _, err := svc.UpdateStatus(context.Background(), member, 42, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrIntegrityViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberCannotTouchOthersReservation(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, "someone-else", model.StatusPending))
	mock.ExpectRollback()

	_, _, err := svc.UpdateStatus(context.Background(), member, 42, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelfTransitionRejected(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, member.ID, model.StatusConfirmed))
	mock.ExpectRollback()

	_, _, err := svc.UpdateStatus(context.Background(), admin, 42, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, _ := newServiceMock(t)

	_, _, err := svc.UpdateStatus(context.Background(), admin, 42, model.Status("ARCHIVED"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateRescheduleChecksAvailability(t *testing.T) {
	svc, mock := newServiceMock(t)

	newStart := testStart.Add(24 * time.Hour)
	newEnd := testEnd.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, member.ID, model.StatusPending))
	mock.ExpectQuery(`FROM environments WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(3)).WillReturnRows(environmentRows())
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(uint64(3), newEnd, newStart, uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`UPDATE reservations SET environment_id=\?`).
		WithArgs(uint64(3), newStart, newEnd, "standup", uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Update(context.Background(), member, 42, UpdateInput{
		Start: &newStart, End: &newEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, newStart, res.StartTime)
	assert.Equal(t, newEnd, res.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReasonOnlySkipsAvailability(t *testing.T) {
	svc, mock := newServiceMock(t)

	reason := "team retro"
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, member.ID, model.StatusPending))
	mock.ExpectExec(`UPDATE reservations SET environment_id=\?`).
		WithArgs(uint64(3), testStart, testEnd, reason, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Update(context.Background(), member, 42, UpdateInput{Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, reason, res.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateConflictLeavesReservationAlone(t *testing.T) {
	svc, mock := newServiceMock(t)

	newEnv := uint64(9)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM reservations WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(42)).WillReturnRows(reservationRow(42, member.ID, model.StatusPending))
	mock.ExpectQuery(`FROM environments WHERE id=\? FOR UPDATE`).
		WithArgs(newEnv).WillReturnRows(environmentRows())
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(newEnv, testEnd, testStart, uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), member, 42, UpdateInput{EnvironmentID: &newEnv})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAvailable(t *testing.T) {
	svc, mock := newServiceMock(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(uint64(3), testEnd, testStart).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	free, err := svc.IsAvailable(context.Background(), 3, testStart, testEnd, 0)
	require.NoError(t, err)
	assert.True(t, free)

	// Inverted interval is simply not available.
	free, err = svc.IsAvailable(context.Background(), 3, testEnd, testStart, 0)
	require.NoError(t, err)
	assert.False(t, free)

	assert.NoError(t, mock.ExpectationsWereMet())
}
