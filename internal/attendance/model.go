package attendance

import (
	"time"

	"github.com/lib/pq"

	"college/internal/apperr"
)

// DateLayout is the wire and storage format of a ledger day.
const DateLayout = "2006-01-02"

// ErrAlreadyMarked is returned when a student already has a mark in the day's record.
var ErrAlreadyMarked = apperr.AlreadyExists("attendance already marked for this student today")

// RecordKey identifies one ledger record: one per subject, faculty, year and calendar day.
type RecordKey struct {
	Subject      string `json:"subject" db:"subject"`
	FacultyEmail string `json:"facultyEmail" db:"faculty_email"`
	Year         string `json:"year" db:"year"`
	Day          string `json:"date" db:"day"`
}

// Record is the ledger of who was present or absent for one key.
type Record struct {
	ID string `json:"id" db:"id"`
	RecordKey
	PresentStudents pq.StringArray `json:"presentStudents" db:"present_students"`
	AbsentStudents  pq.StringArray `json:"absentStudents" db:"absent_students"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

// Has reports whether studentID appears in either set.
func (r Record) Has(studentID string) bool {
	for _, id := range r.PresentStudents {
		if id == studentID {
			return true
		}
	}
	for _, id := range r.AbsentStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// Mark adds studentID to exactly one set. A student is never marked twice.
func (r *Record) Mark(studentID string, present bool) error {
	if r.Has(studentID) {
		return ErrAlreadyMarked
	}
	if present {
		r.PresentStudents = append(r.PresentStudents, studentID)
	} else {
		r.AbsentStudents = append(r.AbsentStudents, studentID)
	}
	return nil
}

// MarkInput is one attendance mark submitted by a faculty member.
type MarkInput struct {
	StudentEmail string
	Subject      string
	FacultyEmail string
	Year         string
	Present      bool
}

// Filter narrows a ledger listing. Empty fields match everything.
type Filter struct {
	Subject      string
	FacultyEmail string
	Year         string
	Day          string
}
