package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// captureLogger swaps the global logger for a JSON buffer for one test.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"absent", "", false},
		{"propagated", "abc-123", true},
		{"long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"max length", strings.Repeat("a", maxRequestIDLength), true},
		{"whitespace", "rid 1", false},
		{"control chars", "rid\x1b[31m", false},
		{"non ascii", "ríd", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.incoming != "" {
				req.Header.Set(requestIDHeader, tc.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || got != w.Body.String() {
				t.Fatalf("header %q and context %q must agree", got, w.Body.String())
			}
			if tc.keep != (got == tc.incoming) {
				t.Fatalf("incoming %q -> %q, keep=%v", tc.incoming, got, tc.keep)
			}
		})
	}
}

func TestRequestIDFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if RequestIDFrom(c) != "" {
		t.Fatal("expected empty request id")
	}
	c.Writer.Header().Set(requestIDHeader, "from-header")
	if RequestIDFrom(c) != "from-header" {
		t.Fatal("expected header fallback")
	}
	c.Set(requestIDKey, "from-ctx")
	if RequestIDFrom(c) != "from-ctx" {
		t.Fatal("expected context value")
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "rid-panic")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-panic" {
		t.Fatalf("unexpected body: %v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("no JSON body after a partial write, got %q", w.Body.String())
	}

	panics := 0
	for _, m := range logLines(t, buf) {
		if m["message"] == "panic recovered" {
			panics++
			if m["stack"] == nil || m["request_id"] == nil {
				t.Fatalf("panic log lacks stack or request id: %v", m)
			}
		}
	}
	if panics != 2 {
		t.Fatalf("panic logs = %d, want 2", panics)
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	bare := gin.New()
	bare.GET("/use", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("bare")
		c.Status(http.StatusOK)
	})
	scoped := gin.New()
	scoped.Use(RequestID(), RedactingLogger(RedactOptions{}))
	scoped.GET("/use", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("scoped")
		zerolog.Ctx(c.Request.Context()).Info().Msg("service")
		c.Status(http.StatusOK)
	})

	bare.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))
	req := httptest.NewRequest(http.MethodGet, "/use", nil)
	req.Header.Set(requestIDHeader, "rid-7")
	scoped.ServeHTTP(httptest.NewRecorder(), req)

	seen := map[string]any{}
	for _, m := range logLines(t, buf) {
		if msg, _ := m["message"].(string); msg != "http_request" {
			seen[msg] = m["request_id"]
		}
	}
	if v, ok := seen["bare"]; !ok || v != nil {
		t.Fatalf("global fallback must not carry a request id: %v", seen)
	}
	if seen["scoped"] != "rid-7" || seen["service"] != "rid-7" {
		t.Fatalf("scoped loggers must carry the request id: %v", seen)
	}
}

func TestScopedLogger_TraceIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0xf7, 0x65, 0x19, 0x16, 0xcd, 0x43, 0xdd, 0x84, 0x48, 0xeb, 0x21, 0x1c, 0x80, 0x31, 0x9c},
		SpanID:     trace.SpanID{0xb7, 0xad, 0x6b, 0x71, 0x69, 0x20, 0x33, 0x31},
		TraceFlags: trace.FlagsSampled,
	})

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/recipes/1", nil)
	c.Request = c.Request.WithContext(trace.ContextWithSpanContext(c.Request.Context(), sc))

	lg := scopedLogger(c, "rid", "/recipes/:id")
	lg.Info().Msg("traced")

	c.Request = httptest.NewRequest(http.MethodGet, "/recipes/1", nil)
	lg = scopedLogger(c, "rid", "/recipes/:id")
	lg.Info().Msg("untraced")

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0]["trace_id"] != "0af7651916cd43dd8448eb211c80319c" || lines[0]["span_id"] != "b7ad6b7169203331" {
		t.Fatalf("trace ids missing: %v", lines[0])
	}
	if _, ok := lines[1]["trace_id"]; ok {
		t.Fatalf("untraced request must not log a trace id: %v", lines[1])
	}
	if lines[1]["path"] != "/recipes/:id" || lines[1]["method"] != "GET" {
		t.Fatalf("route fields missing: %v", lines[1])
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
