// Package memstore keeps every table in process memory. It backs STORE_BACKEND=memory and the tests.
package memstore

import (
	"sync"
	"time"

	"college/internal/attendance"
	"college/internal/semester"
	"college/internal/timetable"
	"college/internal/user"
)

// DB is one shared in-memory database. Multi-table operations hold the write lock for their whole run,
// which gives them the same all-or-nothing visibility as a Postgres transaction.
type DB struct {
	mu         sync.RWMutex
	users      map[string]user.User
	timetables map[timetable.Key]timetable.Timetable
	semesters  []semester.Semester
	records    map[attendance.RecordKey]attendance.Record
	now        func() time.Time
}

// New creates an empty database.
func New() *DB {
	return &DB{
		users:      make(map[string]user.User),
		timetables: make(map[timetable.Key]timetable.Timetable),
		records:    make(map[attendance.RecordKey]attendance.Record),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (db *DB) Users() *Users           { return &Users{db: db} }
func (db *DB) Timetables() *Timetables { return &Timetables{db: db} }
func (db *DB) Semesters() *Semesters   { return &Semesters{db: db} }
func (db *DB) Ledger() *Ledger         { return &Ledger{db: db} }

func cloneUser(u user.User) user.User {
	if u.Attendance != nil {
		u.Attendance = append(user.Summary{}, u.Attendance...)
	}
	return u
}

func cloneTimetable(t timetable.Timetable) timetable.Timetable {
	t.Monday = cloneSlots(t.Monday)
	t.Tuesday = cloneSlots(t.Tuesday)
	t.Wednesday = cloneSlots(t.Wednesday)
	t.Thursday = cloneSlots(t.Thursday)
	t.Friday = cloneSlots(t.Friday)
	return t
}

func cloneSlots(s timetable.Slots) timetable.Slots {
	if s == nil {
		return timetable.Slots{}
	}
	return append(timetable.Slots{}, s...)
}

func cloneRecord(r attendance.Record) attendance.Record {
	r.PresentStudents = append([]string{}, r.PresentStudents...)
	r.AbsentStudents = append([]string{}, r.AbsentStudents...)
	return r
}

func cloneSemester(s semester.Semester) semester.Semester {
	s.Calendar = append(semester.Calendar{}, s.Calendar...)
	return s
}
