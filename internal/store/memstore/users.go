package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"college/internal/user"
)

// Users is the in-memory user directory.
type Users struct {
	db *DB
}

func (r *Users) Upsert(_ context.Context, u user.User) (user.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u.Email = user.NormalizeEmail(u.Email)
	now := r.db.now()
	if existing, ok := r.db.users[u.Email]; ok {
		existing.Name, existing.Role, existing.Branch, existing.Year = u.Name, u.Role, u.Branch, u.Year
		existing.UpdatedAt = now
		r.db.users[u.Email] = existing
		return cloneUser(existing), nil
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Attendance = user.Summary{}
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.users[u.Email] = u
	return cloneUser(u), nil
}

func (r *Users) ByEmail(_ context.Context, email string) (*user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[user.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	u = cloneUser(u)
	return &u, nil
}

func (r *Users) ListCohort(_ context.Context, branch, year string) ([]user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []user.User
	for _, u := range r.db.users {
		if u.Role == user.RoleStudent && u.Branch == branch && u.Year == year {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// promote and clear run with the write lock held.
func (db *DB) promoteYears() int64 {
	var n int64
	for email, u := range db.users {
		next := user.NextYear(u.Year)
		if next == u.Year {
			continue
		}
		u.Year, u.UpdatedAt = next, db.now()
		db.users[email] = u
		n++
	}
	return n
}

func (db *DB) clearAttendance() int64 {
	var n int64
	for email, u := range db.users {
		if len(u.Attendance) == 0 {
			continue
		}
		u.Attendance, u.UpdatedAt = user.Summary{}, db.now()
		db.users[email] = u
		n++
	}
	return n
}
