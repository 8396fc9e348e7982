package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// SubjectSummary is the running attendance total of one student for one subject.
type SubjectSummary struct {
	Subject     string `json:"subject"`
	PresentDays int    `json:"presentDays"`
	TotalDays   int    `json:"totalDays"`
}

// Summary is the per-subject attendance list embedded in a user row.
type Summary []SubjectSummary

// Value stores the summary as a JSON array.
func (s Summary) Value() (driver.Value, error) {
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
func (s *Summary) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*s = Summary{}
		return nil
	case []byte:
		return json.Unmarshal(x, s)
	case string:
		return json.Unmarshal([]byte(x), s)
	default:
		return fmt.Errorf("summary: unsupported Scan type %T", v)
	}
}

// User is a student, faculty member or administrator.
type User struct {
	ID         string    `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	Name       string    `json:"name" db:"name"`
	Role       string    `json:"role" db:"role"`
	Branch     string    `json:"branch" db:"branch"`
	Year       string    `json:"year" db:"year"`
	Attendance Summary   `json:"attendance" db:"attendance"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// NormalizeEmail trims and lower-cases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
