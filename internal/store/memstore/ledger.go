package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"college/internal/attendance"
	"college/internal/user"
)

// Ledger is the in-memory attendance ledger. InTx serialises transactions and applies their writes
// only when fn succeeds.
type Ledger struct {
	db *DB
}

func (l *Ledger) InTx(ctx context.Context, fn func(ctx context.Context, tx attendance.Tx) error) error {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	tx := &ledgerTx{
		db:      l.db,
		records: make(map[attendance.RecordKey]attendance.Record),
		users:   make(map[string]user.User),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for key, rec := range tx.records {
		l.db.records[key] = rec
	}
	for email, u := range tx.users {
		l.db.users[email] = u
	}
	return nil
}

func (l *Ledger) StudentByEmail(ctx context.Context, email string) (*user.User, error) {
	return l.db.Users().ByEmail(ctx, email)
}

func (l *Ledger) Records(_ context.Context, f attendance.Filter) ([]attendance.Record, error) {
	l.db.mu.RLock()
	defer l.db.mu.RUnlock()
	var out []attendance.Record
	for key, rec := range l.db.records {
		if (f.Subject != "" && key.Subject != f.Subject) ||
			(f.FacultyEmail != "" && key.FacultyEmail != f.FacultyEmail) ||
			(f.Year != "" && key.Year != f.Year) ||
			(f.Day != "" && key.Day != f.Day) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		return out[i].Subject < out[j].Subject
	})
	return out, nil
}

type ledgerTx struct {
	db      *DB
	records map[attendance.RecordKey]attendance.Record
	users   map[string]user.User
}

func (t *ledgerTx) LockStudent(_ context.Context, email string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	u, ok := t.users[email]
	if !ok {
		if u, ok = t.db.users[email]; !ok {
			return nil, nil
		}
	}
	u = cloneUser(u)
	return &u, nil
}

func (t *ledgerTx) LockRecord(_ context.Context, key attendance.RecordKey) (attendance.Record, error) {
	if rec, ok := t.records[key]; ok {
		return cloneRecord(rec), nil
	}
	if rec, ok := t.db.records[key]; ok {
		return cloneRecord(rec), nil
	}
	now := t.db.now()
	rec := attendance.Record{ID: uuid.NewString(), RecordKey: key, CreatedAt: now, UpdatedAt: now}
	t.records[key] = rec
	return cloneRecord(rec), nil
}

func (t *ledgerTx) SaveRecord(_ context.Context, rec attendance.Record) error {
	rec.UpdatedAt = t.db.now()
	t.records[rec.RecordKey] = cloneRecord(rec)
	return nil
}

func (t *ledgerTx) SaveSummary(_ context.Context, userID string, s user.Summary) error {
	for email, u := range t.db.users {
		if u.ID != userID {
			continue
		}
		if staged, ok := t.users[email]; ok {
			u = staged
		}
		u.Attendance = append(user.Summary{}, s...)
		u.UpdatedAt = t.db.now()
		t.users[email] = u
		return nil
	}
	return nil
}
