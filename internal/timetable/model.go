package timetable

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"college/internal/apperr"
)

// Departments a timetable may belong to.
var Departments = []string{"CSE", "IT", "ENTC", "MECH", "CIVIL", "ELECTRICAL", "AIDS"}

var (
	years     = []string{"first", "second", "third", "fourth"}
	semesters = []string{"first", "second"}
)

// Slot is one scheduled lecture.
type Slot struct {
	Subject      string `json:"subject"`
	Faculty      string `json:"faculty"`
	FacultyEmail string `json:"facultyEmail"`
	Time         string `json:"time"`
	EndTime      string `json:"endTime"`
}

// Slots is the ordered slot list of one weekday, stored as JSON.
type Slots []Slot

// Value stores the list as a JSON array.
func (s Slots) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads a JSON array column.
func (s *Slots) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*s = Slots{}
		return nil
	case []byte:
		return json.Unmarshal(x, s)
	case string:
		return json.Unmarshal([]byte(x), s)
	default:
		return fmt.Errorf("slots: unsupported Scan type %T", v)
	}
}

// Week holds the five teaching days.
type Week struct {
	Monday    Slots `json:"monday" db:"monday"`
	Tuesday   Slots `json:"tuesday" db:"tuesday"`
	Wednesday Slots `json:"wednesday" db:"wednesday"`
	Thursday  Slots `json:"thursday" db:"thursday"`
	Friday    Slots `json:"friday" db:"friday"`
}

// Day returns the slots scheduled on d. Weekends have none.
func (w Week) Day(d time.Weekday) Slots {
	switch d {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	}
	return nil
}

func (w *Week) days() []struct {
	name  string
	slots *Slots
} {
	return []struct {
		name  string
		slots *Slots
	}{
		{"monday", &w.Monday},
		{"tuesday", &w.Tuesday},
		{"wednesday", &w.Wednesday},
		{"thursday", &w.Thursday},
		{"friday", &w.Friday},
	}
}

// Key identifies the cohort a timetable belongs to.
type Key struct {
	Year       string `json:"year" db:"year"`
	Department string `json:"department" db:"department"`
	Semester   string `json:"semester" db:"semester"`
}

// Normalize lower-cases year and semester, upper-cases the department and checks each against its set.
func (k Key) Normalize() (Key, error) {
	k.Year = strings.ToLower(strings.TrimSpace(k.Year))
	k.Semester = strings.ToLower(strings.TrimSpace(k.Semester))
	k.Department = strings.ToUpper(strings.TrimSpace(k.Department))

	var fields []apperr.FieldError
	if !contains(years, k.Year) {
		fields = append(fields, apperr.FieldError{Field: "year", Error: "must be one of " + strings.Join(years, ", ")})
	}
	if !contains(Departments, k.Department) {
		fields = append(fields, apperr.FieldError{Field: "department", Error: "must be one of " + strings.Join(Departments, ", ")})
	}
	if !contains(semesters, k.Semester) {
		fields = append(fields, apperr.FieldError{Field: "semester", Error: "must be one of " + strings.Join(semesters, ", ")})
	}
	if len(fields) > 0 {
		return k, apperr.Invalid("invalid timetable key", fields...)
	}
	return k, nil
}

// Timetable is the weekly schedule of one cohort.
type Timetable struct {
	ID string `json:"id" db:"id"`
	Key
	Week
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ValidDepartment reports whether dept (any case) is a known department.
func ValidDepartment(dept string) bool {
	return contains(Departments, strings.ToUpper(strings.TrimSpace(dept)))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
