package timetable

import (
	"context"
	"log"
	"strings"
	"time"

	"college/internal/apperr"
	"college/internal/metrics"
	"college/internal/user"
)

var errNoTimetable = apperr.NotFound("no timetable found for department")

// CohortLister lists the students of a branch and year label.
type CohortLister interface {
	ListCohort(ctx context.Context, branch, year string) ([]user.User, error)
}

// Lecture is a slot together with the cohort it is taught to.
type Lecture struct {
	Slot
	Year       string `json:"year"`
	Department string `json:"department"`
	Semester   string `json:"semester"`
	Day        string `json:"day"`
}

// CurrentLecture is the resolver's answer: the lecture in session and its enrolled students.
type CurrentLecture struct {
	Lecture  Lecture     `json:"lecture"`
	Students []user.User `json:"students"`
}

// Resolver finds the lecture a faculty member is teaching right now.
type Resolver struct {
	store    Store
	students CohortLister
	loc      *time.Location
}

// NewResolver creates a resolver that reads wall-clock time in loc.
func NewResolver(store Store, students CohortLister, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{store: store, students: students, loc: loc}
}

// FindCurrentLecture returns the first slot of the department taught by facultyEmail whose
// [start, start+1h) window contains now, or nil when none does. A window that runs past
// midnight stays open into the next day. A department without any timetable is NotFound.
func (r *Resolver) FindCurrentLecture(ctx context.Context, department, facultyEmail string, now time.Time) (*CurrentLecture, error) {
	department = strings.ToUpper(strings.TrimSpace(department))
	days := teachingDays(now.In(r.loc))
	if len(days) == 0 {
		metrics.LectureLookups.WithLabelValues("none").Inc()
		return nil, nil
	}

	docs, err := r.store.ByDepartment(ctx, department)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		metrics.LectureLookups.WithLabelValues("no_timetable").Inc()
		return nil, errNoTimetable
	}

	for _, d := range days {
		for _, doc := range docs {
			for _, slot := range doc.Day(d.weekday) {
				if _, err := ParseClock(slot.Time); err != nil {
					metrics.SkippedSlots.Inc()
					log.Printf("timetable %s: skipping slot %q on %s: %v", doc.ID, slot.Time, d.weekday, err)
					continue
				}
				if !slot.TaughtBy(facultyEmail) || !slot.InSession(d.at) {
					continue
				}

				lecture := Lecture{
					Slot:       slot,
					Year:       doc.Year,
					Department: doc.Department,
					Semester:   doc.Semester,
					Day:        strings.ToLower(d.weekday.String()),
				}
				students, err := r.enrolled(ctx, doc)
				if err != nil {
					return nil, err
				}
				metrics.LectureLookups.WithLabelValues("found").Inc()
				return &CurrentLecture{Lecture: lecture, Students: students}, nil
			}
		}
	}
	metrics.LectureLookups.WithLabelValues("none").Inc()
	return nil, nil
}

type dayOffset struct {
	weekday time.Weekday
	at      time.Duration
}

// teachingDays lists the weekdays whose slots may be in session at now, with now expressed
// as an offset from that day's midnight. Shortly after midnight the previous day still counts.
func teachingDays(now time.Time) []dayOffset {
	at := sinceMidnight(now)
	candidates := []dayOffset{{now.Weekday(), at}}
	if at < LectureDuration {
		candidates = append(candidates, dayOffset{(now.Weekday() + 6) % 7, at + day})
	}
	out := candidates[:0]
	for _, c := range candidates {
		if c.weekday != time.Saturday && c.weekday != time.Sunday {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) enrolled(ctx context.Context, doc Timetable) ([]user.User, error) {
	label, ok := user.CohortLabel(doc.Year)
	if !ok {
		return []user.User{}, nil
	}
	students, err := r.students.ListCohort(ctx, doc.Department, label)
	if students == nil {
		students = []user.User{}
	}
	return students, err
}

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
