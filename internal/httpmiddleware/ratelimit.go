package httpmiddleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"college/internal/apperr"
	"college/internal/auth"
)

// Limiter decides whether key may make another request. When it may not, wait is
// the time until it may try again.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, wait time.Duration, err error)
}

// Middleware enforces l per caller. Limiter errors let the request through.
func Middleware(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait, err := l.Allow(c.Request.Context(), clientKey(c))
		if err != nil {
			log.Printf("ratelimit: %v", err)
			c.Next()
			return
		}
		if !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperr.Error{Code: apperr.CodeRateLimited, Message: "rate limit"})
			return
		}
		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if claims, ok := auth.FromContext(c); ok {
		return "user:" + claims.Email
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// SimpleTokenBucket is a per-process limiter keyed by caller email, or client IP for anonymous routes.
type SimpleTokenBucket struct {
	capacity int
	rate     int
	mu       sync.Mutex
	state    map[string]*bucket
	now      func() time.Time
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewSimpleTokenBucket creates limiter with capacity tokens and rate per minute.
// A non-positive rate allows everything.
func NewSimpleTokenBucket(capacity, perMinute int) *SimpleTokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &SimpleTokenBucket{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
		now:      time.Now,
	}
}

// Allow takes one token from the bucket of key.
func (l *SimpleTokenBucket) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if l.rate <= 0 {
		return true, 0, nil
	}
	if l.take(key) {
		return true, 0, nil
	}
	return false, time.Minute / time.Duration(l.rate), nil
}

func (l *SimpleTokenBucket) take(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.evict(now)
	b, ok := l.state[key]
	if !ok {
		b = &bucket{tokens: l.capacity - 1, last: now}
		l.state[key] = b
		return true
	}
	elapsed := now.Sub(b.last).Minutes()
	refill := int(elapsed * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// evict drops buckets idle long enough to be full again.
func (l *SimpleTokenBucket) evict(now time.Time) {
	idle := time.Duration(l.capacity)*time.Minute/time.Duration(l.rate) + time.Minute
	for key, b := range l.state {
		if now.Sub(b.last) > idle {
			delete(l.state, key)
		}
	}
}

// RedisWindow is a fixed one-minute window counter shared by every API instance.
type RedisWindow struct {
	client    *redis.Client
	perMinute int
	prefix    string
	now       func() time.Time
}

// NewRedisWindow allows perMinute requests per key and minute. A non-positive limit allows everything.
func NewRedisWindow(client *redis.Client, perMinute int) *RedisWindow {
	return &RedisWindow{client: client, perMinute: perMinute, prefix: "ratelimit:", now: time.Now}
}

// Allow counts the request in the current window of key.
func (l *RedisWindow) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.perMinute <= 0 {
		return true, 0, nil
	}
	now := l.now()
	window := now.Truncate(time.Minute)
	k := l.prefix + key + ":" + strconv.FormatInt(window.Unix(), 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if incr.Val() > int64(l.perMinute) {
		return false, window.Add(time.Minute).Sub(now), nil
	}
	return true, 0, nil
}
