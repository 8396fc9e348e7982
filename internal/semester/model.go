package semester

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"college/internal/apperr"
)

// DateLayout is the wire and storage format of semester dates.
const DateLayout = "2006-01-02"

// Calendar day types.
const (
	DayNormal  = "normal"
	DayHoliday = "holiday"
	DayExam    = "exam"
)

// CalendarDay annotates one date of the semester.
type CalendarDay struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Calendar is the date-ordered list of annotated days, stored as JSON.
type Calendar []CalendarDay

func (c Calendar) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Calendar) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*c = Calendar{}
		return nil
	case []byte:
		return json.Unmarshal(x, c)
	case string:
		return json.Unmarshal([]byte(x), c)
	default:
		return fmt.Errorf("calendar: unsupported Scan type %T", v)
	}
}

// Semester is the teaching window. Only one may be active at a time.
type Semester struct {
	ID        string    `json:"id" db:"id"`
	StartDate string    `json:"startDate" db:"start_date"`
	EndDate   string    `json:"endDate" db:"end_date"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	Calendar  Calendar  `json:"calendar" db:"calendar"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Window is the editable part of a semester.
type Window struct {
	StartDate string
	EndDate   string
	Calendar  Calendar
}

// Normalize checks the dates and returns the window with its calendar sorted by date.
func (w Window) Normalize() (Window, error) {
	var fields []apperr.FieldError
	w.StartDate = strings.TrimSpace(w.StartDate)
	w.EndDate = strings.TrimSpace(w.EndDate)

	start, errStart := time.Parse(DateLayout, w.StartDate)
	if errStart != nil {
		fields = append(fields, apperr.FieldError{Field: "startDate", Error: "must be YYYY-MM-DD"})
	}
	end, errEnd := time.Parse(DateLayout, w.EndDate)
	if errEnd != nil {
		fields = append(fields, apperr.FieldError{Field: "endDate", Error: "must be YYYY-MM-DD"})
	}
	if errStart == nil && errEnd == nil && end.Before(start) {
		fields = append(fields, apperr.FieldError{Field: "endDate", Error: "must not be before startDate"})
	}

	cal := make(Calendar, len(w.Calendar))
	copy(cal, w.Calendar)
	for i := range cal {
		d := &cal[i]
		d.Date = strings.TrimSpace(d.Date)
		d.Description = strings.TrimSpace(d.Description)
		d.Type = strings.ToLower(strings.TrimSpace(d.Type))
		if d.Type == "" {
			d.Type = DayNormal
		}
		field := fmt.Sprintf("calendar[%d]", i)
		switch d.Type {
		case DayNormal, DayHoliday, DayExam:
		default:
			fields = append(fields, apperr.FieldError{Field: field + ".type", Error: "must be one of normal, holiday, exam"})
		}
		at, err := time.Parse(DateLayout, d.Date)
		if err != nil {
			fields = append(fields, apperr.FieldError{Field: field + ".date", Error: "must be YYYY-MM-DD"})
			continue
		}
		if errStart == nil && errEnd == nil && (at.Before(start) || at.After(end)) {
			fields = append(fields, apperr.FieldError{Field: field + ".date", Error: "must fall between startDate and endDate"})
		}
	}
	if len(fields) > 0 {
		return w, apperr.Invalid("invalid semester", fields...)
	}

	sort.SliceStable(cal, func(i, j int) bool { return cal[i].Date < cal[j].Date })
	w.Calendar = cal
	return w, nil
}

// EndResult counts what closing a semester touched.
type EndResult struct {
	Semester          Semester `json:"semester"`
	TimetablesDeleted int64    `json:"timetablesDeleted"`
	UsersPromoted     int64    `json:"usersPromoted"`
	SummariesCleared  int64    `json:"summariesCleared"`
}
