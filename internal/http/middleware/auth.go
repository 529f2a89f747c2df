// Identity. Users are issued elsewhere; this
// service only verifies it:
//
//   - Authorization: Bearer <JWT>, HS256-signed with the shared secret, whose
//     "sub" claim is the numeric user id.
//   - X-User-ID: <id>, accepted only when AuthOptions.AllowHeader is set
//     (local development and tests).
//
// Requests without credentials continue anonymously; handlers that mutate
// state install RequireUser. Requests with malformed or invalid credentials
// are rejected with 401 rather than silently downgraded to anonymous.

package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ctxKeyUserID holds the authenticated user id (int64).
	ctxKeyUserID = "userID"

	// HeaderUserID carries a trusted user id when header auth is allowed.
	HeaderUserID = "X-User-ID"
)

var errBadSubject = errors.New("subject is not a positive integer")

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// Secret verifies HS256 bearer tokens. Empty disables bearer auth.
	Secret []byte
	// AllowHeader trusts X-User-ID. Never enable on a public listener.
	AllowHeader bool
	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// Authenticate resolves the caller identity and stores it in the Gin context.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(opts.Leeway),
	)
	keyFn := func(*jwt.Token) (any, error) { return opts.Secret, nil }

	return func(c *gin.Context) {
		if authz := c.GetHeader("Authorization"); authz != "" {
			raw, ok := strings.CutPrefix(authz, "Bearer ")
			if !ok || len(opts.Secret) == 0 {
				unauthorized(c, "unsupported authorization scheme")
				return
			}
			uid, err := subjectFromToken(parser, keyFn, strings.TrimSpace(raw))
			if err != nil {
				unauthorized(c, "invalid token")
				return
			}
			c.Set(ctxKeyUserID, uid)
			c.Next()
			return
		}

		if h := c.GetHeader(HeaderUserID); h != "" && opts.AllowHeader {
			uid, err := strconv.ParseInt(strings.TrimSpace(h), 10, 64)
			if err != nil || uid <= 0 {
				unauthorized(c, "invalid "+HeaderUserID)
				return
			}
			c.Set(ctxKeyUserID, uid)
		}
		c.Next()
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// OptionalUserID returns the authenticated user id or nil for anonymous
// callers.
func OptionalUserID(c *gin.Context) *int64 {
	if id, ok := UserID(c); ok {
		return &id
	}
	return nil
}

// IssueToken signs a bearer token for userID valid for ttl. It exists for
// operators and tests; production tokens come from the identity provider.
func IssueToken(secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func subjectFromToken(p *jwt.Parser, keyFn jwt.Keyfunc, raw string) (int64, error) {
	tok, err := p.ParseWithClaims(raw, &jwt.RegisteredClaims{}, keyFn)
	if err != nil {
		return 0, err
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return 0, err
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || uid <= 0 {
		return 0, errBadSubject
	}
	return uid, nil
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="recipes"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
