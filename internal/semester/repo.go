package semester

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"college/internal/store"
	"college/internal/timetable"
	"college/internal/user"
)

const columns = `id, to_char(start_date, 'YYYY-MM-DD') AS start_date, to_char(end_date, 'YYYY-MM-DD') AS end_date,
	is_active, calendar, created_at, updated_at`

// Repository persists semesters in Postgres and runs the cascading cleanups.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Active returns the active semester or nil.
func (r *Repository) Active(ctx context.Context) (*Semester, error) {
	return r.one(ctx, `SELECT `+columns+` FROM semesters WHERE is_active`)
}

// Latest returns the semester with the latest end date or nil.
func (r *Repository) Latest(ctx context.Context) (*Semester, error) {
	return r.one(ctx, `SELECT `+columns+` FROM semesters ORDER BY end_date DESC, created_at DESC LIMIT 1`)
}

// Insert creates an active semester. The single-active index turns a racing second start into ErrActiveExists.
func (r *Repository) Insert(ctx context.Context, w Window) (Semester, error) {
	var s Semester
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO semesters (id, start_date, end_date, is_active, calendar)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING `+columns,
		uuid.NewString(), w.StartDate, w.EndDate, w.Calendar,
	).StructScan(&s)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Semester{}, ErrActiveExists
		}
		return Semester{}, errors.Wrap(err, "insert semester")
	}
	return s, nil
}

// Update overwrites the window of the active semester.
func (r *Repository) Update(ctx context.Context, id string, w Window) (Semester, error) {
	var s Semester
	err := r.db.QueryRowxContext(ctx, `
		UPDATE semesters
		SET start_date = $2, end_date = $3, calendar = $4, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING `+columns,
		id, w.StartDate, w.EndDate, w.Calendar,
	).StructScan(&s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Semester{}, ErrNoActive
		}
		return Semester{}, errors.Wrap(err, "update semester")
	}
	return s, nil
}

// End deactivates the semester, drops every timetable and optionally promotes every student, atomically.
func (r *Repository) End(ctx context.Context, id string, promote bool) (EndResult, error) {
	var res EndResult
	err := store.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		if res.Semester, err = deactivate(ctx, tx, id); err != nil {
			return err
		}
		if res.TimetablesDeleted, err = timetable.DeleteAll(ctx, tx); err != nil {
			return err
		}
		if promote {
			res.UsersPromoted, err = user.PromoteYears(ctx, tx)
		}
		return err
	})
	return res, err
}

// Expire closes a lapsed semester: deactivates it, drops every timetable and clears every attendance summary.
func (r *Repository) Expire(ctx context.Context, id string) (EndResult, error) {
	var res EndResult
	err := store.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		if res.Semester, err = deactivate(ctx, tx, id); err != nil {
			return err
		}
		if res.TimetablesDeleted, err = timetable.DeleteAll(ctx, tx); err != nil {
			return err
		}
		res.SummariesCleared, err = user.ClearAttendance(ctx, tx)
		return err
	})
	return res, err
}

func deactivate(ctx context.Context, tx *sqlx.Tx, id string) (Semester, error) {
	var s Semester
	err := tx.QueryRowxContext(ctx, `
		UPDATE semesters SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING `+columns, id,
	).StructScan(&s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Semester{}, ErrNoActive
		}
		return Semester{}, errors.Wrap(err, "deactivate semester")
	}
	return s, nil
}

func (r *Repository) one(ctx context.Context, query string) (*Semester, error) {
	var s Semester
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load semester")
	}
	return &s, nil
}
