package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"college/internal/apperr"
	"college/internal/notify"
	"college/internal/queue"
	"college/internal/user"
)

var errInvalidCode = apperr.Invalid("invalid or expired otp")

// Store keeps codes with an expiry.
type Store interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Take returns the live code for email and removes it when it matches.
	Take(ctx context.Context, email, code string) (bool, error)
}

// RedisStore keeps codes as keys with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store under the "otp:" prefix.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "otp:"}
}

func (s *RedisStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	return errors.Wrap(s.client.Set(ctx, s.prefix+email, code, ttl).Err(), "save otp")
}

func (s *RedisStore) Take(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.client.Get(ctx, s.prefix+email).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read otp")
	}
	if !equal(stored, code) {
		return false, nil
	}
	return true, errors.Wrap(s.client.Del(ctx, s.prefix+email).Err(), "delete otp")
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is a process-local store for dev and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty store reading time from now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]entry), now: now}
}

func (s *MemoryStore) Save(_ context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = entry{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[email]
	if !ok {
		return false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, email)
		return false, nil
	}
	if !equal(e.code, code) {
		return false, nil
	}
	delete(s.entries, email)
	return true, nil
}

// Publisher hands the code to the mail worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service issues and verifies six-digit codes.
type Service struct {
	store    Store
	notices  Publisher
	ttl      time.Duration
	generate func() (string, error)
}

// NewService creates a service whose codes live for ttl.
func NewService(store Store, notices Publisher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{store: store, notices: notices, ttl: ttl, generate: newCode}
}

// Issue stores a fresh code for email, replacing any previous one, and queues it for delivery.
func (s *Service) Issue(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)
	if email == "" {
		return apperr.Invalid("email is required", apperr.FieldError{Field: "email", Error: "this field is required"})
	}
	code, err := s.generate()
	if err != nil {
		return errors.Wrap(err, "generate otp")
	}
	if err := s.store.Save(ctx, email, code, s.ttl); err != nil {
		return err
	}
	msg, err := notify.OTP{Email: email, Code: code, TTL: s.ttl.String()}.Message()
	if err != nil {
		return err
	}
	return errors.Wrap(s.notices.Publish(ctx, msg), "queue otp")
}

// Verify consumes the code for email. A wrong or expired code is an invalid-argument error.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	ok, err := s.store.Take(ctx, user.NormalizeEmail(email), code)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidCode
	}
	return nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
