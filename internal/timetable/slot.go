package timetable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"college/internal/apperr"
)

// LectureDuration is the fixed length of every slot.
const LectureDuration = time.Hour

const day = 24 * time.Hour

var clockPattern = regexp.MustCompile(`(?i)^(0?[1-9]|1[0-2]):([0-5][0-9]) (AM|PM)$`)

// ErrInvalidFormat is returned for times not shaped like "H:MM AM".
var ErrInvalidFormat = errors.New("invalid time format, expected H:MM AM/PM")

// ParseClock converts a 12-hour clock string into the offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, ErrInvalidFormat
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	hour %= 12
	if strings.EqualFold(m[3], "PM") {
		hour += 12
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// FormatClock renders an offset from midnight as "H:MM AM". Offsets wrap at 24h.
func FormatClock(d time.Duration) string {
	d %= day
	if d < 0 {
		d += day
	}
	hour := int(d / time.Hour)
	minute := int((d % time.Hour) / time.Minute)
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, meridiem)
}

// Window returns the half-open [start, end) interval of the slot as offsets from midnight.
func (s Slot) Window() (start, end time.Duration, err error) {
	start, err = ParseClock(s.Time)
	if err != nil {
		return 0, 0, err
	}
	return start, start + LectureDuration, nil
}

// InSession reports whether the time of day at falls within the slot.
func (s Slot) InSession(at time.Duration) bool {
	start, end, err := s.Window()
	if err != nil {
		return false
	}
	return at >= start && at < end
}

// TaughtBy compares faculty emails ignoring case and surrounding space.
func (s Slot) TaughtBy(email string) bool {
	return strings.EqualFold(strings.TrimSpace(s.FacultyEmail), strings.TrimSpace(email))
}

// ValidateDay checks one weekday list and returns a normalised copy: canonical start
// times, recomputed end times, trimmed names and lower-cased faculty emails.
func ValidateDay(dayName string, slots Slots) (Slots, []apperr.FieldError) {
	out := make(Slots, 0, len(slots))
	seen := make(map[string]int, len(slots))
	var fields []apperr.FieldError
	fail := func(i int, field, msg string) {
		fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("%s[%d].%s", dayName, i, field), Error: msg})
	}

	for i, slot := range slots {
		slot.Subject = strings.TrimSpace(slot.Subject)
		slot.Faculty = strings.TrimSpace(slot.Faculty)
		slot.FacultyEmail = strings.ToLower(strings.TrimSpace(slot.FacultyEmail))
		if slot.Subject == "" {
			fail(i, "subject", "this field is required")
		}
		if slot.Faculty == "" {
			fail(i, "faculty", "this field is required")
		}
		if slot.FacultyEmail == "" {
			fail(i, "facultyEmail", "this field is required")
		}

		start, err := ParseClock(slot.Time)
		if err != nil {
			fail(i, "time", ErrInvalidFormat.Error())
			out = append(out, slot)
			continue
		}
		slot.Time = FormatClock(start)
		slot.EndTime = FormatClock(start + LectureDuration)
		if first, dup := seen[slot.Time]; dup {
			fail(i, "time", fmt.Sprintf("duplicate time slot %s (also at %s[%d])", slot.Time, dayName, first))
		} else {
			seen[slot.Time] = i
		}
		out = append(out, slot)
	}
	return out, fields
}

// Normalize validates all five days and returns the normalised week.
func (w Week) Normalize() (Week, error) {
	var fields []apperr.FieldError
	for _, d := range w.days() {
		slots, errs := ValidateDay(d.name, *d.slots)
		*d.slots = slots
		fields = append(fields, errs...)
	}
	if len(fields) > 0 {
		return w, apperr.Invalid("invalid timetable slots", fields...)
	}
	return w, nil
}
