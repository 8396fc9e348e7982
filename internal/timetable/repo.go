package timetable

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"college/internal/store"
)

const columns = `id, year, department, semester, monday, tuesday, wednesday, thursday, friday, created_at, updated_at`

// Repository persists timetables in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new timetable. A second timetable for the same cohort yields ErrExists.
func (r *Repository) Insert(ctx context.Context, t Timetable) (Timetable, error) {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO timetables (id, year, department, semester, monday, tuesday, wednesday, thursday, friday, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.Year, t.Department, t.Semester, t.Monday, t.Tuesday, t.Wednesday, t.Thursday, t.Friday, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Timetable{}, ErrExists
		}
		return Timetable{}, errors.Wrap(err, "insert timetable")
	}
	return t, nil
}

// ReplaceWeek overwrites all five days of an existing timetable in one statement.
func (r *Repository) ReplaceWeek(ctx context.Context, key Key, w Week) (Timetable, error) {
	var t Timetable
	err := r.db.QueryRowxContext(ctx, `
		UPDATE timetables
		SET monday = $4, tuesday = $5, wednesday = $6, thursday = $7, friday = $8, updated_at = NOW()
		WHERE year = $1 AND department = $2 AND semester = $3
		RETURNING `+columns,
		key.Year, key.Department, key.Semester, w.Monday, w.Tuesday, w.Wednesday, w.Thursday, w.Friday,
	).StructScan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Timetable{}, ErrNotFound
		}
		return Timetable{}, errors.Wrap(err, "replace timetable week")
	}
	return t, nil
}

// All returns every timetable.
func (r *Repository) All(ctx context.Context) ([]Timetable, error) {
	var out []Timetable
	err := r.db.SelectContext(ctx, &out, `SELECT `+columns+` FROM timetables ORDER BY department, year, semester`)
	return out, errors.Wrap(err, "list timetables")
}

// ByDepartment returns the timetables of every year and semester of a department.
func (r *Repository) ByDepartment(ctx context.Context, department string) ([]Timetable, error) {
	var out []Timetable
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+columns+` FROM timetables WHERE department = $1 ORDER BY year, semester
	`, department)
	return out, errors.Wrap(err, "list department timetables")
}

// DeleteAll removes every timetable. It runs inside the semester cleanup transaction.
func DeleteAll(ctx context.Context, tx sqlx.ExecerContext) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM timetables`)
	if err != nil {
		return 0, errors.Wrap(err, "delete timetables")
	}
	return res.RowsAffected()
}
