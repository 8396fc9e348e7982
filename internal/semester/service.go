package semester

import (
	"context"
	"log"
	"time"

	"college/internal/apperr"
	"college/internal/metrics"
)

var (
	ErrActiveExists = apperr.Conflict("an active semester already exists")
	ErrNoActive     = apperr.NotFound("no active semester")
)

// Store is the persistence the service needs.
type Store interface {
	Active(ctx context.Context) (*Semester, error)
	Latest(ctx context.Context) (*Semester, error)
	Insert(ctx context.Context, w Window) (Semester, error)
	Update(ctx context.Context, id string, w Window) (Semester, error)
	End(ctx context.Context, id string, promote bool) (EndResult, error)
	Expire(ctx context.Context, id string) (EndResult, error)
}

// Service runs the lifecycle of the single active semester.
type Service struct {
	store Store
	loc   *time.Location
}

// NewService creates a service. Expiry compares dates in loc.
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc}
}

// Start opens a new semester when none is active.
func (s *Service) Start(ctx context.Context, w Window) (Semester, error) {
	w, err := w.Normalize()
	if err != nil {
		return Semester{}, err
	}
	active, err := s.store.Active(ctx)
	if err != nil {
		return Semester{}, err
	}
	if active != nil {
		return Semester{}, ErrActiveExists
	}
	return s.store.Insert(ctx, w)
}

// Update rewrites the dates and calendar of the active semester.
func (s *Service) Update(ctx context.Context, w Window) (Semester, error) {
	w, err := w.Normalize()
	if err != nil {
		return Semester{}, err
	}
	active, err := s.Active(ctx)
	if err != nil {
		return Semester{}, err
	}
	return s.store.Update(ctx, active.ID, w)
}

// End closes the active semester and drops all timetables. With promote every student moves up one year.
func (s *Service) End(ctx context.Context, promote bool) (EndResult, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return EndResult{}, err
	}
	res, err := s.store.End(ctx, active.ID, promote)
	if err != nil {
		return EndResult{}, err
	}
	log.Printf("semester: ended %s (timetables=%d promoted=%d)", active.ID, res.TimetablesDeleted, res.UsersPromoted)
	return res, nil
}

// Active returns the running semester.
func (s *Service) Active(ctx context.Context) (Semester, error) {
	active, err := s.store.Active(ctx)
	if err != nil {
		return Semester{}, err
	}
	if active == nil {
		return Semester{}, ErrNoActive
	}
	return *active, nil
}

// HasActive reports whether a semester is running.
func (s *Service) HasActive(ctx context.Context) (bool, error) {
	active, err := s.store.Active(ctx)
	return active != nil, err
}

// Sweep expires the most recent semester once its end date has passed in the college time zone.
// It reports whether anything was expired.
func (s *Service) Sweep(ctx context.Context, now time.Time) (bool, error) {
	latest, err := s.store.Latest(ctx)
	if err != nil {
		metrics.SemesterSweeps.WithLabelValues("failed").Inc()
		return false, err
	}
	today := now.In(s.loc).Format(DateLayout)
	if latest == nil || !latest.IsActive || latest.EndDate >= today {
		metrics.SemesterSweeps.WithLabelValues("idle").Inc()
		return false, nil
	}
	res, err := s.store.Expire(ctx, latest.ID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			// ended concurrently
			metrics.SemesterSweeps.WithLabelValues("idle").Inc()
			return false, nil
		}
		metrics.SemesterSweeps.WithLabelValues("failed").Inc()
		return false, err
	}
	metrics.SemesterSweeps.WithLabelValues("expired").Inc()
	log.Printf("semester: expired %s ended %s (timetables=%d summaries=%d)",
		latest.ID, latest.EndDate, res.TimetablesDeleted, res.SummariesCleared)
	return true, nil
}
