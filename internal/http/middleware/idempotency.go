// Idempotency for deduplicated POST endpoints.
// Keys are never chosen by clients: they are derived from the acting user,
// the route and the request body. ReplayDetector peeks at the body, asks a
// lookup whether a row already exists for the derived key and, on a hit, marks
// the request as a replay so that the rate limiter lets it through without
// consuming a token. Handlers report the final outcome with MarkIdempotent,
// which also sets the response headers:
//
//	Idempotency-Key: <uuid>
//	Idempotency-Replayed: true   (only when an existing row was returned)

package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response headers of deduplicated mutations.
const (
	HeaderIdempotencyKey      = "Idempotency-Key"
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: the request returned an existing row
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the key recorded for this request. The second
// return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the request was (or will be) served from a row an
// identical earlier request created.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// MarkIdempotent records the outcome of a deduplicated mutation and sets the
// idempotency response headers. Call it before writing the body.
func MarkIdempotent(c *gin.Context, key string, replayed bool) {
	c.Set(ctxKeyIdemKey, key)
	c.Header(HeaderIdempotencyKey, key)
	if replayed {
		c.Set(ctxKeyIdemReplay, true)
		c.Header(HeaderIdempotencyReplayed, "true")
	}
}

// IdempotencyLookup reports whether the request described by (route, userID,
// params, body) would replay an existing row, and the derived key. route is
// the registered Gin route. A lookup that cannot decide (unknown route,
// undecodable body) returns exists=false and no error.
type IdempotencyLookup func(ctx context.Context, route string, userID int64, params gin.Params, body []byte) (key string, exists bool, err error)

// IdempotencyOptions configures ReplayDetector.
type IdempotencyOptions struct {
	// MaxBodyBytes caps how much body is buffered for the lookup. Larger
	// bodies skip detection. Values <= 0 default to 64 KiB.
	MaxBodyBytes int64
}

// ReplayDetector runs lookup for authenticated POST requests and, on a hit,
// marks the request as a replay and exempts it from rate limiting. The body
// is restored for the handler. Lookup errors never block the request; the
// handler performs the authoritative check.
func ReplayDetector(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 64 << 10
	}

	return func(c *gin.Context) {
		uid, authed := UserID(c)
		if lookup == nil || c.Request.Method != http.MethodPost || !authed || c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody+1))
		rest := c.Request.Body
		c.Request.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(body), rest), rest}
		if err != nil || int64(len(body)) > maxBody {
			c.Next()
			return
		}

		key, exists, err := lookup(c.Request.Context(), c.FullPath(), uid, c.Params, body)
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("idempotency lookup failed")
		}
		if err == nil && exists {
			c.Set(ctxKeyIdemKey, key)
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}
