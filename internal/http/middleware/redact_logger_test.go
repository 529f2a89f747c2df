package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{HeaderUserID}}))
	r.GET("/recipes/:id/shopping-list", func(c *gin.Context) { c.Status(http.StatusOK) })

	q := "owner=a.b+tag@example.com&phone=+1-555-123-4567&key=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/recipes/9/shopping-list?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set(HeaderUserID, "42")
	req.Header.Set("X-Note", "mail a@b.com key=123e4567-e89b-12d3-a456-426614174000 call 555-123-4567")
	req.Header.Set(requestIDHeader, "rid-scrub")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := logLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("want one access line, got %d", len(lines))
	}
	m := lines[0]
	if m["level"] != "info" || m["path"] != "/recipes/:id/shopping-list" || m["request_id"] != "rid-scrub" {
		t.Fatalf("unexpected access line: %v", m)
	}
	query, _ := m["query"].(string)
	for _, leak := range []string{"example.com", "555-123", "123e4567"} {
		if strings.Contains(query, leak) {
			t.Fatalf("query leaks %q: %s", leak, query)
		}
	}
	headers, _ := m["headers"].(map[string]any)
	for _, k := range []string{"Authorization", "Cookie", HeaderUserID} {
		if headers[k] != "[REDACTED]" {
			t.Fatalf("%s must be masked, got %v", k, headers[k])
		}
	}
	if want := "mail [REDACTED:email] key=[REDACTED:id] call [REDACTED:phone]"; headers["X-Note"] != want {
		t.Fatalf("X-Note = %v, want %q", headers["X-Note"], want)
	}
}

func TestRedactingLogger_Levels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/gone", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/down", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })
	r.GET("/quiet-failure", func(c *gin.Context) {
		_ = c.Error(errors.New("store timeout"))
		c.Status(http.StatusOK)
	})
	r.POST("/recipes/", func(c *gin.Context) {
		MarkIdempotent(c, "4215bced-f841-5e8a-b4e2-a59323d7c3f2", true)
		c.Status(http.StatusOK)
	})

	want := map[string]string{
		"/ok":            "info",
		"/gone":          "warn",
		"/down":          "error",
		"/quiet-failure": "error",
		"/unrouted":      "warn",
	}
	for path := range want {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/recipes/", nil))

	got := map[string]map[string]any{}
	for _, m := range logLines(t, buf) {
		got[m["path"].(string)] = m
	}
	for path, level := range want {
		if got[path]["level"] != level {
			t.Errorf("%s logged at %v, want %s", path, got[path]["level"], level)
		}
	}
	if got["/quiet-failure"]["errors"] == nil {
		t.Error("gin errors must be logged")
	}
	if got["/recipes/"]["replayed"] != true {
		t.Errorf("replay flag missing: %v", got["/recipes/"])
	}
}

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                                       "",
		"plain":                                  "plain",
		"page=2":                                 "page=2",
		"me@example.org":                         "[REDACTED:email]",
		"k=4215bced-f841-5e8a-b4e2-a59323d7c3f2": "k=[REDACTED:id]",
	}
	for in, want := range cases {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHeaderScrubber(t *testing.T) {
	hs := newHeaderScrubber([]string{" X-Api-Key ", ""})
	got := hs.scrub(map[string][]string{
		"X-Api-Key":   {"k"},
		"Accept":      {"application/json", "text/plain"},
		"Set-Cookie":  {"a=b"},
		"X-Forwarded": {"me@example.org"},
	})
	want := map[string]string{
		"X-Api-Key":   "[REDACTED]",
		"Accept":      "application/json, text/plain",
		"Set-Cookie":  "[REDACTED]",
		"X-Forwarded": "[REDACTED:email]",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
