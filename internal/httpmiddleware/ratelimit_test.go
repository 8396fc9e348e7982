package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"college/internal/auth"
)

func TestTokenBucketRefills(t *testing.T) {
	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	assert.True(t, l.take("a"))
	assert.True(t, l.take("a"))
	assert.False(t, l.take("a"))
	assert.True(t, l.take("b"), "buckets are per key")

	now = now.Add(time.Minute)
	assert.True(t, l.take("a"))
	assert.True(t, l.take("a"), "refill is capped at capacity")
	assert.False(t, l.take("a"))
}

func TestTokenBucketEvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	l.take("a")
	l.take("b")
	now = now.Add(2 * time.Minute)
	l.take("b")
	assert.Len(t, l.state, 1)
}

func TestTokenBucketDisabled(t *testing.T) {
	l := NewSimpleTokenBucket(0, 0)
	for i := 0; i < 5; i++ {
		ok, _, err := l.Allow(context.Background(), "a")
		assert.NoError(t, err)
		assert.True(t, ok)
	}
}

func newLimitedRouter(l Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if email := c.GetHeader("X-Test-Email"); email != "" {
			c.Set("claims", auth.Claims{Email: email})
		}
	}, Middleware(l), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func get(r *gin.Engine, email string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Test-Email", email)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareKeysByUser(t *testing.T) {
	r := newLimitedRouter(NewSimpleTokenBucket(1, 1))

	assert.Equal(t, http.StatusNoContent, get(r, "a@x.edu").Code)
	w := get(r, "a@x.edu")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RESOURCE_EXHAUSTED")

	assert.Equal(t, http.StatusNoContent, get(r, "b@x.edu").Code)
	assert.Equal(t, http.StatusNoContent, get(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "").Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	r := newLimitedRouter(brokenLimiter{})
	assert.Equal(t, http.StatusNoContent, get(r, "a@x.edu").Code)
}
