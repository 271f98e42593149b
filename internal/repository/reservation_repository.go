package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/labsphere/environment-reservation/internal/model"
)

// ReservationRepo provides access to the active reservation set.  Rows
// only ever carry a blocking status (PENDING or CONFIRMED): terminal
// reservations are archived to reservation_history and deleted in the
// same transaction, so they never appear here.
type ReservationRepo struct{ DB *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationCols = "id, environment_id, user_id, start_time, end_time, created_at, status, reason"

// queryRower is satisfied by both *sql.DB and *sql.Tx so the overlap
// scan can run standalone or under a caller-held lock.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and reads the stored row back into res (the database
// assigns id and created_at).  The caller must commit or roll back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (environment_id, user_id, start_time, end_time, status, reason)
		 VALUES (?,?,?,?,?,?)`,
		res.EnvironmentID, res.UserID, res.StartTime, res.EndTime, res.Status, res.Reason)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=?", res.ID).
		Scan(&res.ID, &res.EnvironmentID, &res.UserID, &res.StartTime, &res.EndTime,
			&res.CreatedAt, &res.Status, &res.Reason)
}

// GetByID fetches a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return scanReservation(r.DB.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=? LIMIT 1", id))
}

// GetForUpdateTx fetches a reservation by id with a row lock, so the
// subsequent field or status write cannot race another writer.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id=? FOR UPDATE", id))
}

func scanReservation(row *sql.Row) (model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(&res.ID, &res.EnvironmentID, &res.UserID, &res.StartTime, &res.EndTime,
		&res.CreatedAt, &res.Status, &res.Reason)
	return res, err
}

const overlapQuery = `SELECT EXISTS(
	SELECT 1 FROM reservations
	WHERE environment_id = ?
	  AND status IN ('PENDING','CONFIRMED')
	  AND start_time < ? AND end_time > ?`

// HasOverlap reports whether any blocking reservation on the
// environment overlaps the half-open interval [start, end).  Pass a
// non-zero excludeID to leave one reservation out of the scan, which is
// how an edited reservation avoids conflicting with itself.  This is a
// plain read; the transactional variant below is what guards writes.
func (r *ReservationRepo) HasOverlap(ctx context.Context, environmentID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	return hasOverlap(ctx, r.DB, environmentID, start, end, excludeID)
}

// HasOverlapTx is HasOverlap inside a caller-owned transaction.  Run it
// only after EnvironmentRepo.LockTx so that check and write execute
// under the same environment lock.
func (r *ReservationRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, environmentID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	return hasOverlap(ctx, tx, environmentID, start, end, excludeID)
}

func hasOverlap(ctx context.Context, q queryRower, environmentID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	query := overlapQuery
	args := []interface{}{environmentID, end, start}
	if excludeID != 0 {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	query += ")"
	var exists bool
	if err := q.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateFieldsTx rewrites the schedulable columns of a reservation.
// The status column is deliberately not part of this statement; status
// only moves through UpdateStatusTx.
func (r *ReservationRepo) UpdateFieldsTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reservations SET environment_id=?, start_time=?, end_time=?, reason=? WHERE id=?",
		res.EnvironmentID, res.StartTime, res.EndTime, res.Reason, res.ID)
	return err
}

// UpdateStatusTx persists a status change for a reservation.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.Status) error {
	_, err := tx.ExecContext(ctx, "UPDATE reservations SET status=? WHERE id=?", status, id)
	return err
}

// SnapshotTx builds the archival record for a reservation, resolving
// the current display names of the linked environment and user so the
// history row survives their later deletion.
func (r *ReservationRepo) SnapshotTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ReservationHistory, error) {
	const q = `SELECT r.id, r.environment_id, e.name, r.user_id, u.name,
	                  r.start_time, r.end_time, r.created_at, r.status, r.reason
	           FROM reservations r
	           JOIN environments e ON e.id = r.environment_id
	           JOIN users u ON u.id = r.user_id
	           WHERE r.id = ?`
	var h model.ReservationHistory
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&h.ID, &h.EnvironmentID, &h.EnvironmentName, &h.UserID, &h.UserName,
		&h.StartTime, &h.EndTime, &h.CreatedAt, &h.Status, &h.Reason)
	return h, err
}

// DeleteTx removes a reservation from the active set.  Deleting a row
// that is no longer there returns sql.ErrNoRows.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReservationFilter narrows List results.  Zero values mean "no filter".
type ReservationFilter struct {
	UserID        string
	EnvironmentID uint64
	Status        model.Status
	StartFrom     *time.Time // start_time >= StartFrom
	StartTo       *time.Time // start_time <= StartTo
	EndFrom       *time.Time // end_time >= EndFrom
	EndTo         *time.Time // end_time <= EndTo
	Skip, Limit   int
}

// List returns reservations matching the filter, newest first.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	where := make([]string, 0, 7)
	args := make([]interface{}, 0, 9)
	if f.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.EnvironmentID != 0 {
		where = append(where, "environment_id=?")
		args = append(args, f.EnvironmentID)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if f.StartFrom != nil {
		where = append(where, "start_time>=?")
		args = append(args, *f.StartFrom)
	}
	if f.StartTo != nil {
		where = append(where, "start_time<=?")
		args = append(args, *f.StartTo)
	}
	if f.EndFrom != nil {
		where = append(where, "end_time>=?")
		args = append(args, *f.EndFrom)
	}
	if f.EndTo != nil {
		where = append(where, "end_time<=?")
		args = append(args, *f.EndTo)
	}
	q := "SELECT " + reservationCols + " FROM reservations"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Skip)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.EnvironmentID, &res.UserID, &res.StartTime,
			&res.EndTime, &res.CreatedAt, &res.Status, &res.Reason); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ExistsForEnvironment reports whether any active reservation
// references the environment.  Used to block environment deletion.
func (r *ReservationRepo) ExistsForEnvironment(ctx context.Context, environmentID uint64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reservations WHERE environment_id=?)", environmentID).Scan(&exists)
	return exists, err
}

// ExistsForUser reports whether the user holds any active reservation.
// Used to block user deletion.
func (r *ReservationRepo) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM reservations WHERE user_id=?)", userID).Scan(&exists)
	return exists, err
}
