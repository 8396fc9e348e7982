package attendance

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"college/internal/store"
	"college/internal/user"
)

const columns = `id, subject, faculty_email, year, to_char(day, 'YYYY-MM-DD') AS day,
	present_students, absent_students, created_at, updated_at`

// Repository persists the ledger in Postgres and updates the embedded user summary
// in the same transaction.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// InTx runs fn inside one database transaction.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return store.RunInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(ctx, pgTx{tx: tx})
	})
}

// StudentByEmail returns a user or nil.
func (r *Repository) StudentByEmail(ctx context.Context, email string) (*user.User, error) {
	return user.NewRepository(r.db).ByEmail(ctx, email)
}

// Records lists ledger records matching f, newest day first.
func (r *Repository) Records(ctx context.Context, f Filter) ([]Record, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)
	buf.WriteString(`SELECT ` + columns + ` FROM attendance_records`)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		wheres = append(wheres, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("subject", f.Subject)
	add("faculty_email", f.FacultyEmail)
	add("year", f.Year)
	add("day", f.Day)
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	buf.WriteString(" ORDER BY day DESC, subject")

	var out []Record
	err := r.db.SelectContext(ctx, &out, buf.String(), args...)
	return out, errors.Wrap(err, "list attendance records")
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t pgTx) LockStudent(ctx context.Context, email string) (*user.User, error) {
	return user.LockByEmail(ctx, t.tx, email)
}

// LockRecord creates the record on first use and locks it for the rest of the tx.
func (t pgTx) LockRecord(ctx context.Context, key RecordKey) (Record, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO attendance_records (id, subject, faculty_email, year, day)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject, faculty_email, year, day) DO NOTHING
	`, uuid.NewString(), key.Subject, key.FacultyEmail, key.Year, key.Day)
	if err != nil {
		return Record{}, errors.Wrap(err, "create attendance record")
	}

	var rec Record
	err = t.tx.GetContext(ctx, &rec, `
		SELECT `+columns+`
		FROM attendance_records
		WHERE subject = $1 AND faculty_email = $2 AND year = $3 AND day = $4
		FOR UPDATE
	`, key.Subject, key.FacultyEmail, key.Year, key.Day)
	return rec, errors.Wrap(err, "lock attendance record")
}

func (t pgTx) SaveRecord(ctx context.Context, rec Record) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET present_students = $2, absent_students = $3, updated_at = NOW()
		WHERE id = $1
	`, rec.ID, rec.PresentStudents, rec.AbsentStudents)
	return errors.Wrap(err, "save attendance record")
}

func (t pgTx) SaveSummary(ctx context.Context, userID string, s user.Summary) error {
	return user.SaveAttendance(ctx, t.tx, userID, s)
}
