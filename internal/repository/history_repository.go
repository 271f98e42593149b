package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/labsphere/environment-reservation/internal/model"
)

// HistoryRepo provides access to the append-only reservation_history
// table.  Rows are written once, during archival, and never updated.
type HistoryRepo struct{ DB *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

const historyCols = "id, environment_id, environment_name, user_id, user_name, start_time, end_time, created_at, status, reason"

// InsertTx appends a history record inside the archival transaction.
// The id is the originating reservation's id; a collision means the
// reservation was already archived and returns ErrDuplicateHistoryID so
// the caller rolls back instead of silently overwriting.
func (r *HistoryRepo) InsertTx(ctx context.Context, tx *sql.Tx, h *model.ReservationHistory) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reservation_history
		 (id, environment_id, environment_name, user_id, user_name, start_time, end_time, created_at, status, reason)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		h.ID, h.EnvironmentID, h.EnvironmentName, h.UserID, h.UserName,
		h.StartTime, h.EndTime, h.CreatedAt, h.Status, h.Reason)
	if isDuplicateKey(err) {
		return ErrDuplicateHistoryID
	}
	return err
}

// GetByID fetches a single history record.
func (r *HistoryRepo) GetByID(ctx context.Context, id uint64) (model.ReservationHistory, error) {
	var h model.ReservationHistory
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+historyCols+" FROM reservation_history WHERE id=? LIMIT 1", id).
		Scan(&h.ID, &h.EnvironmentID, &h.EnvironmentName, &h.UserID, &h.UserName,
			&h.StartTime, &h.EndTime, &h.CreatedAt, &h.Status, &h.Reason)
	return h, err
}

// HistoryFilter narrows List results.  Zero values mean "no filter".
// Name matches case-insensitively against either denormalized name.
type HistoryFilter struct {
	UserID        string
	EnvironmentID uint64
	Status        model.Status
	Name          string
	StartFrom     *time.Time
	StartTo       *time.Time
	EndFrom       *time.Time
	EndTo         *time.Time
	Skip, Limit   int
}

// List returns archived reservations matching the filter, newest first
// by original start time.
func (r *HistoryRepo) List(ctx context.Context, f HistoryFilter) ([]model.ReservationHistory, error) {
	where := make([]string, 0, 8)
	args := make([]interface{}, 0, 10)
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
	if f.Name != "" {
		where = append(where, "(LOWER(environment_name) LIKE ? OR LOWER(user_name) LIKE ?)")
		pat := "%" + strings.ToLower(f.Name) + "%"
		args = append(args, pat, pat)
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
	q := "SELECT " + historyCols + " FROM reservation_history"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_time DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Skip)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ReservationHistory, 0)
	for rows.Next() {
		var h model.ReservationHistory
		if err := rows.Scan(&h.ID, &h.EnvironmentID, &h.EnvironmentName, &h.UserID, &h.UserName,
			&h.StartTime, &h.EndTime, &h.CreatedAt, &h.Status, &h.Reason); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
