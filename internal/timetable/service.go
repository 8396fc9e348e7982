package timetable

import (
	"context"

	"github.com/google/uuid"

	"college/internal/apperr"
)

var (
	ErrExists   = apperr.AlreadyExists("timetable already exists for this year, department and semester")
	ErrNotFound = apperr.NotFound("timetable not found")

	errNoSemester = apperr.Invalid("no active semester; start a semester before adding timetables")
)

// Store is the persistence the service needs.
type Store interface {
	Insert(ctx context.Context, t Timetable) (Timetable, error)
	ReplaceWeek(ctx context.Context, key Key, w Week) (Timetable, error)
	All(ctx context.Context) ([]Timetable, error)
	ByDepartment(ctx context.Context, department string) ([]Timetable, error)
}

// SemesterGate reports whether a semester is running.
type SemesterGate interface {
	HasActive(ctx context.Context) (bool, error)
}

// Service validates and stores timetables.
type Service struct {
	store Store
	gate  SemesterGate
}

// NewService creates a service backed by a store.
func NewService(store Store, gate SemesterGate) *Service {
	return &Service{store: store, gate: gate}
}

// Create stores the first timetable of a cohort.
func (s *Service) Create(ctx context.Context, key Key, w Week) (Timetable, error) {
	key, err := key.Normalize()
	if err != nil {
		return Timetable{}, err
	}
	w, err = w.Normalize()
	if err != nil {
		return Timetable{}, err
	}
	if s.gate != nil {
		active, err := s.gate.HasActive(ctx)
		if err != nil {
			return Timetable{}, err
		}
		if !active {
			return Timetable{}, errNoSemester
		}
	}
	return s.store.Insert(ctx, Timetable{ID: uuid.NewString(), Key: key, Week: w})
}

// ReplaceWeek overwrites every day of an existing cohort timetable.
func (s *Service) ReplaceWeek(ctx context.Context, key Key, w Week) (Timetable, error) {
	key, err := key.Normalize()
	if err != nil {
		return Timetable{}, err
	}
	w, err = w.Normalize()
	if err != nil {
		return Timetable{}, err
	}
	return s.store.ReplaceWeek(ctx, key, w)
}

// All returns every timetable.
func (s *Service) All(ctx context.Context) ([]Timetable, error) {
	out, err := s.store.All(ctx)
	if out == nil {
		out = []Timetable{}
	}
	return out, err
}
