package memstore

import (
	"context"

	"github.com/google/uuid"

	"college/internal/semester"
)

// Semesters is the in-memory semester table. At most one row is active.
type Semesters struct {
	db *DB
}

func (r *Semesters) Active(_ context.Context) (*semester.Semester, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if i := r.db.activeIndex(); i >= 0 {
		s := cloneSemester(r.db.semesters[i])
		return &s, nil
	}
	return nil, nil
}

func (r *Semesters) Latest(_ context.Context) (*semester.Semester, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	latest := -1
	for i, s := range r.db.semesters {
		if latest < 0 {
			latest = i
			continue
		}
		l := r.db.semesters[latest]
		if s.EndDate > l.EndDate || (s.EndDate == l.EndDate && s.CreatedAt.After(l.CreatedAt)) {
			latest = i
		}
	}
	if latest < 0 {
		return nil, nil
	}
	s := cloneSemester(r.db.semesters[latest])
	return &s, nil
}

func (r *Semesters) Insert(_ context.Context, w semester.Window) (semester.Semester, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.activeIndex() >= 0 {
		return semester.Semester{}, semester.ErrActiveExists
	}
	now := r.db.now()
	s := semester.Semester{
		ID:        uuid.NewString(),
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
		IsActive:  true,
		Calendar:  w.Calendar,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s = cloneSemester(s)
	r.db.semesters = append(r.db.semesters, s)
	return cloneSemester(s), nil
}

func (r *Semesters) Update(_ context.Context, id string, w semester.Window) (semester.Semester, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	i := r.db.activeIndex()
	if i < 0 || r.db.semesters[i].ID != id {
		return semester.Semester{}, semester.ErrNoActive
	}
	s := &r.db.semesters[i]
	s.StartDate, s.EndDate = w.StartDate, w.EndDate
	s.Calendar = append(semester.Calendar{}, w.Calendar...)
	s.UpdatedAt = r.db.now()
	return cloneSemester(*s), nil
}

func (r *Semesters) End(_ context.Context, id string, promote bool) (semester.EndResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, err := r.db.deactivate(id)
	if err != nil {
		return semester.EndResult{}, err
	}
	res := semester.EndResult{Semester: s, TimetablesDeleted: r.db.deleteTimetables()}
	if promote {
		res.UsersPromoted = r.db.promoteYears()
	}
	return res, nil
}

func (r *Semesters) Expire(_ context.Context, id string) (semester.EndResult, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, err := r.db.deactivate(id)
	if err != nil {
		return semester.EndResult{}, err
	}
	return semester.EndResult{
		Semester:          s,
		TimetablesDeleted: r.db.deleteTimetables(),
		SummariesCleared:  r.db.clearAttendance(),
	}, nil
}

func (db *DB) activeIndex() int {
	for i, s := range db.semesters {
		if s.IsActive {
			return i
		}
	}
	return -1
}

func (db *DB) deactivate(id string) (semester.Semester, error) {
	i := db.activeIndex()
	if i < 0 || db.semesters[i].ID != id {
		return semester.Semester{}, semester.ErrNoActive
	}
	s := &db.semesters[i]
	s.IsActive = false
	s.UpdatedAt = db.now()
	return cloneSemester(*s), nil
}
