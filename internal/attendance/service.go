package attendance

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"

	"college/internal/apperr"
	"college/internal/metrics"
	"college/internal/notify"
	"college/internal/queue"
	"college/internal/user"
)

var errUnknownStudent = apperr.NotFound("student not found")

// Tx is the set of locked reads and writes a mark needs.
type Tx interface {
	LockStudent(ctx context.Context, email string) (*user.User, error)
	LockRecord(ctx context.Context, key RecordKey) (Record, error)
	SaveRecord(ctx context.Context, rec Record) error
	SaveSummary(ctx context.Context, userID string, s user.Summary) error
}

// Ledger is the persistence the service needs.
type Ledger interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	StudentByEmail(ctx context.Context, email string) (*user.User, error)
	Records(ctx context.Context, f Filter) ([]Record, error)
}

// Publisher hands notifications to the worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service marks attendance and keeps the per-student summary in step with the ledger.
type Service struct {
	ledger  Ledger
	notices Publisher
	loc     *time.Location
	now     func() time.Time
}

// NewService creates a service. Days are cut in loc.
func NewService(ledger Ledger, notices Publisher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{ledger: ledger, notices: notices, loc: loc, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Mark records one student as present or absent for today's record of the subject.
// The ledger append and the summary update commit together or not at all.
func (s *Service) Mark(ctx context.Context, in MarkInput) (Record, error) {
	in.StudentEmail = user.NormalizeEmail(in.StudentEmail)
	in.FacultyEmail = user.NormalizeEmail(in.FacultyEmail)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Year = strings.ToLower(strings.TrimSpace(in.Year))
	if err := validateMark(in); err != nil {
		return Record{}, err
	}

	key := RecordKey{
		Subject:      in.Subject,
		FacultyEmail: in.FacultyEmail,
		Year:         in.Year,
		Day:          s.now().In(s.loc).Format(DateLayout),
	}

	var (
		rec     Record
		student user.User
	)
	err := s.ledger.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.LockStudent(ctx, in.StudentEmail)
		if err != nil {
			return err
		}
		if u == nil || u.Role != user.RoleStudent {
			return errUnknownStudent
		}
		student = *u

		rec, err = tx.LockRecord(ctx, key)
		if err != nil {
			return err
		}
		if err := rec.Mark(student.ID, in.Present); err != nil {
			return err
		}
		if err := tx.SaveRecord(ctx, rec); err != nil {
			return err
		}
		return tx.SaveSummary(ctx, student.ID, ApplyMark(student.Attendance, in.Subject, in.Present))
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyMarked) {
			metrics.AttendanceMarks.WithLabelValues("duplicate").Inc()
		}
		return Record{}, err
	}

	if in.Present {
		metrics.AttendanceMarks.WithLabelValues("present").Inc()
		return rec, nil
	}
	metrics.AttendanceMarks.WithLabelValues("absent").Inc()
	s.publishAbsence(ctx, student, key)
	return rec, nil
}

// Summary returns the per-subject totals of a student.
func (s *Service) Summary(ctx context.Context, studentEmail string) (user.Summary, error) {
	u, err := s.ledger.StudentByEmail(ctx, studentEmail)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Role != user.RoleStudent {
		return nil, errUnknownStudent
	}
	if u.Attendance == nil {
		return user.Summary{}, nil
	}
	return u.Attendance, nil
}

// Records lists ledger records.
func (s *Service) Records(ctx context.Context, f Filter) ([]Record, error) {
	f.FacultyEmail = user.NormalizeEmail(f.FacultyEmail)
	f.Year = strings.ToLower(strings.TrimSpace(f.Year))
	if f.Day != "" {
		if _, err := time.Parse(DateLayout, f.Day); err != nil {
			return nil, apperr.Invalid("date must be YYYY-MM-DD", apperr.FieldError{Field: "date", Error: "must be YYYY-MM-DD"})
		}
	}
	out, err := s.ledger.Records(ctx, f)
	if out == nil {
		out = []Record{}
	}
	return out, err
}

func (s *Service) publishAbsence(ctx context.Context, student user.User, key RecordKey) {
	if s.notices == nil {
		return
	}
	msg, err := notify.Absence{
		StudentEmail: student.Email,
		StudentName:  student.Name,
		Subject:      key.Subject,
		FacultyEmail: key.FacultyEmail,
		Date:         key.Day,
	}.Message()
	if err == nil {
		err = s.notices.Publish(ctx, msg)
	}
	if err != nil {
		log.Printf("attendance: absence notice for %s not queued: %v", student.Email, err)
	}
}

func validateMark(in MarkInput) error {
	var fields []apperr.FieldError
	if in.StudentEmail == "" {
		fields = append(fields, apperr.FieldError{Field: "studentEmail", Error: "this field is required"})
	}
	if in.Subject == "" {
		fields = append(fields, apperr.FieldError{Field: "subject", Error: "this field is required"})
	}
	if in.FacultyEmail == "" {
		fields = append(fields, apperr.FieldError{Field: "facultyEmail", Error: "this field is required"})
	}
	if in.Year == "" {
		fields = append(fields, apperr.FieldError{Field: "year", Error: "this field is required"})
	}
	if len(fields) > 0 {
		return apperr.Invalid("invalid attendance mark", fields...)
	}
	return nil
}
