package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	defaultIdleTTL = 10 * time.Minute
	maxRetryAfter  = time.Hour
)

// RateLimitOptions configures a RateLimiter.
type RateLimitOptions struct {
	// RPS is the steady refill rate of each bucket.
	RPS float64
	// Burst is the bucket size. Values <= 0 mean 1.
	Burst int
	// IdleTTL drops buckets that have not been used for this long.
	// Zero means ten minutes.
	IdleTTL time.Duration
	// Key picks the bucket for a request. Nil means ClientKey.
	Key func(*gin.Context) string

	now func() time.Time
}

// ClientKey buckets authenticated callers by user id and everyone else by
// client IP. The prefixes keep the two namespaces apart.
func ClientKey(c *gin.Context) string {
	if uid, ok := UserID(c); ok {
		return "user:" + strconv.FormatInt(uid, 10)
	}
	return "ip:" + c.ClientIP()
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter is a process-local token-bucket limiter with one bucket per
// client. It is safe for concurrent use.
type RateLimiter struct {
	opts RateLimitOptions

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter returns a limiter ready to be mounted with Handler.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.Key == nil {
		opts.Key = ClientKey
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &RateLimiter{
		opts:      opts,
		buckets:   make(map[string]*bucket),
		lastSweep: opts.now(),
	}
}

// limiter returns the bucket for key, creating it on first use. Idle buckets
// are swept at most once per IdleTTL, before the lookup, so a stale bucket
// for key itself starts over full.
func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.opts.IdleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.opts.IdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(rl.opts.RPS), rl.opts.Burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether ReplayDetector flagged the request as a
// replay of an already applied create.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Replays pass without spending a token. A
// rejected request gets 429 with a Retry-After derived from the time until
// the next token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.opts.now()
		res := rl.limiter(rl.opts.Key(c), now).ReserveN(now, 1)
		wait := res.DelayFrom(now)
		if res.OK() && wait == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		c.Header("Retry-After", retryAfter(wait))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter renders d as whole seconds, rounded up and kept within
// [1s, 1h].
func retryAfter(d time.Duration) string {
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
