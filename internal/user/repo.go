package user

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const columns = `id, email, name, role, branch, year, attendance, created_at, updated_at`

// Repository persists users in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Upsert creates a user or updates the profile fields of an existing one, keyed by email.
// The embedded attendance summary is never overwritten here.
func (r *Repository) Upsert(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	var out User
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (id, email, name, role, branch, year)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			branch = EXCLUDED.branch,
			year = EXCLUDED.year,
			updated_at = NOW()
		RETURNING `+columns,
		u.ID, NormalizeEmail(u.Email), u.Name, u.Role, u.Branch, u.Year,
	).StructScan(&out)
	if err != nil {
		return User{}, errors.Wrap(err, "upsert user")
	}
	return out, nil
}

// ByEmail returns a user or nil when none exists.
func (r *Repository) ByEmail(ctx context.Context, email string) (*User, error) {
	return byEmail(ctx, r.db, email, false)
}

// ListCohort returns the students of a branch and year label.
func (r *Repository) ListCohort(ctx context.Context, branch, year string) ([]User, error) {
	var out []User
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+columns+`
		FROM users
		WHERE role = 'student' AND branch = $1 AND year = $2
		ORDER BY name, email
	`, branch, year)
	return out, errors.Wrap(err, "list cohort")
}

// LockByEmail loads a user inside tx and holds a row lock until the tx ends.
func LockByEmail(ctx context.Context, tx sqlx.QueryerContext, email string) (*User, error) {
	return byEmail(ctx, tx, email, true)
}

// SaveAttendance replaces the embedded summary of a user.
func SaveAttendance(ctx context.Context, tx sqlx.ExecerContext, id string, s Summary) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET attendance = $2, updated_at = NOW() WHERE id = $1`, id, s)
	return errors.Wrap(err, "save attendance summary")
}

// ClearAttendance empties the summary of every user.
func ClearAttendance(ctx context.Context, tx sqlx.ExecerContext) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE users SET attendance = '[]'::jsonb, updated_at = NOW() WHERE attendance <> '[]'::jsonb`)
	if err != nil {
		return 0, errors.Wrap(err, "clear attendance")
	}
	return res.RowsAffected()
}

// PromoteYears advances every student label one step along FE→SE→TE→BE→alumni.
func PromoteYears(ctx context.Context, tx sqlx.ExecerContext) (int64, error) {
	res, err := tx.ExecContext(ctx, promoteSQL())
	if err != nil {
		return 0, errors.Wrap(err, "promote years")
	}
	return res.RowsAffected()
}

func promoteSQL() string {
	var b strings.Builder
	b.WriteString("UPDATE users SET year = CASE year")
	from := make([]string, 0, len(yearSequence)-1)
	for _, label := range yearSequence[:len(yearSequence)-1] {
		b.WriteString(" WHEN '" + label + "' THEN '" + NextYear(label) + "'")
		from = append(from, "'"+label+"'")
	}
	b.WriteString(" END, updated_at = NOW() WHERE year IN (" + strings.Join(from, ", ") + ")")
	return b.String()
}

func byEmail(ctx context.Context, q sqlx.QueryerContext, email string, lock bool) (*User, error) {
	query := `SELECT ` + columns + ` FROM users WHERE email = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var u User
	if err := sqlx.GetContext(ctx, q, &u, query, NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "user by email")
	}
	return &u, nil
}
