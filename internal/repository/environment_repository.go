package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/labsphere/environment-reservation/internal/model"
)

// EnvironmentRepo provides CRUD operations over the `environments` table.
type EnvironmentRepo struct{ DB *sql.DB }

func NewEnvironmentRepo(db *sql.DB) *EnvironmentRepo { return &EnvironmentRepo{DB: db} }

const environmentCols = "id, name, capacity, description, category, has_screen, has_projector, has_air_con, is_active"

func scanEnvironment(row *sql.Row) (model.Environment, error) {
	var e model.Environment
	err := row.Scan(&e.ID, &e.Name, &e.Capacity, &e.Description, &e.Category,
		&e.HasScreen, &e.HasProjector, &e.HasAirCon, &e.IsActive)
	return e, err
}

// Create inserts a new environment and populates the generated id.
func (r *EnvironmentRepo) Create(ctx context.Context, e *model.Environment) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO environments (name, capacity, description, category, has_screen, has_projector, has_air_con, is_active)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.Name, e.Capacity, e.Description, e.Category, e.HasScreen, e.HasProjector, e.HasAirCon, e.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID fetches an environment by id.
func (r *EnvironmentRepo) GetByID(ctx context.Context, id uint64) (model.Environment, error) {
	return scanEnvironment(r.DB.QueryRowContext(ctx,
		"SELECT "+environmentCols+" FROM environments WHERE id=? LIMIT 1", id))
}

// LockTx reads the environment row FOR UPDATE inside the given
// transaction.  Every mutating reservation operation takes this lock
// first, which serializes concurrent availability-check-then-write
// sequences targeting the same environment.
func (r *EnvironmentRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Environment, error) {
	var e model.Environment
	err := tx.QueryRowContext(ctx,
		"SELECT "+environmentCols+" FROM environments WHERE id=? FOR UPDATE", id).
		Scan(&e.ID, &e.Name, &e.Capacity, &e.Description, &e.Category,
			&e.HasScreen, &e.HasProjector, &e.HasAirCon, &e.IsActive)
	return e, err
}

// EnvironmentFilter narrows List results.  Zero values mean "no filter".
type EnvironmentFilter struct {
	Category     string
	Active       *bool
	MinCapacity  uint32
	HasScreen    *bool
	HasProjector *bool
	HasAirCon    *bool
	Skip, Limit  int
}

// List returns environments matching the filter, ordered by id.
func (r *EnvironmentRepo) List(ctx context.Context, f EnvironmentFilter) ([]model.Environment, error) {
	where := make([]string, 0, 6)
	args := make([]interface{}, 0, 8)
	if f.Category != "" {
		where = append(where, "category=?")
		args = append(args, f.Category)
	}
	if f.Active != nil {
		where = append(where, "is_active=?")
		args = append(args, *f.Active)
	}
	if f.MinCapacity > 0 {
		where = append(where, "capacity>=?")
		args = append(args, f.MinCapacity)
	}
	if f.HasScreen != nil {
		where = append(where, "has_screen=?")
		args = append(args, *f.HasScreen)
	}
	if f.HasProjector != nil {
		where = append(where, "has_projector=?")
		args = append(args, *f.HasProjector)
	}
	if f.HasAirCon != nil {
		where = append(where, "has_air_con=?")
		args = append(args, *f.HasAirCon)
	}
	q := "SELECT " + environmentCols + " FROM environments"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Skip)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	envs := make([]model.Environment, 0)
	for rows.Next() {
		var e model.Environment
		if err := rows.Scan(&e.ID, &e.Name, &e.Capacity, &e.Description, &e.Category,
			&e.HasScreen, &e.HasProjector, &e.HasAirCon, &e.IsActive); err != nil {
			return nil, err
		}
		envs = append(envs, e)
	}
	return envs, rows.Err()
}

// Update rewrites all mutable columns of an environment.
func (r *EnvironmentRepo) Update(ctx context.Context, e *model.Environment) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE environments SET name=?, capacity=?, description=?, category=?,
		 has_screen=?, has_projector=?, has_air_con=?, is_active=? WHERE id=?`,
		e.Name, e.Capacity, e.Description, e.Category,
		e.HasScreen, e.HasProjector, e.HasAirCon, e.IsActive, e.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, gerr := r.GetByID(ctx, e.ID); gerr != nil {
			return gerr
		}
	}
	return nil
}

// SetActive flips the bookable flag without touching other columns.
func (r *EnvironmentRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE environments SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
	}
	return nil
}

// Delete removes an environment row.  Callers must first verify no
// active reservation references it.
func (r *EnvironmentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM environments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
