package memstore

import (
	"context"
	"sort"

	"college/internal/timetable"
)

// Timetables is the in-memory timetable table with its unique (year, department, semester) key.
type Timetables struct {
	db *DB
}

func (r *Timetables) Insert(_ context.Context, t timetable.Timetable) (timetable.Timetable, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.timetables[t.Key]; ok {
		return timetable.Timetable{}, timetable.ErrExists
	}
	now := r.db.now()
	t.CreatedAt, t.UpdatedAt = now, now
	t = cloneTimetable(t)
	r.db.timetables[t.Key] = t
	return cloneTimetable(t), nil
}

func (r *Timetables) ReplaceWeek(_ context.Context, key timetable.Key, w timetable.Week) (timetable.Timetable, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.timetables[key]
	if !ok {
		return timetable.Timetable{}, timetable.ErrNotFound
	}
	t.Week = w
	t.UpdatedAt = r.db.now()
	t = cloneTimetable(t)
	r.db.timetables[key] = t
	return cloneTimetable(t), nil
}

func (r *Timetables) All(_ context.Context) ([]timetable.Timetable, error) {
	return r.list(func(timetable.Timetable) bool { return true }), nil
}

func (r *Timetables) ByDepartment(_ context.Context, department string) ([]timetable.Timetable, error) {
	return r.list(func(t timetable.Timetable) bool { return t.Department == department }), nil
}

func (r *Timetables) list(keep func(timetable.Timetable) bool) []timetable.Timetable {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []timetable.Timetable
	for _, t := range r.db.timetables {
		if keep(t) {
			out = append(out, cloneTimetable(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Semester < b.Semester
	})
	return out
}

// deleteTimetables runs with the write lock held.
func (db *DB) deleteTimetables() int64 {
	n := int64(len(db.timetables))
	db.timetables = make(map[timetable.Key]timetable.Timetable)
	return n
}
