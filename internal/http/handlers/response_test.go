package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

func TestFail_Envelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &lg)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) { fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom") })
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope") })

	cases := []struct {
		path   string
		status int
		code   string
		logged bool
	}{
		{"/boom", http.StatusInternalServerError, ErrCodeInternal, true},
		{"/missing", http.StatusNotFound, ErrCodeNotFound, false},
	}
	for _, tc := range cases {
		buf.Reset()
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

		er := decode[ErrorResponse](t, w)
		if w.Code != tc.status || er.Code != tc.code || er.RequestID != "rid-1" {
			t.Fatalf("%s: %d %+v", tc.path, w.Code, er)
		}
		if logged := strings.Contains(buf.String(), `"api error"`); logged != tc.logged {
			t.Fatalf("%s: logged=%v, want %v", tc.path, logged, tc.logged)
		}
	}
}

func TestSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"title": "Soup"}) })
	r.DELETE("/gone", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated || decode[map[string]any](t, w)["title"] != "Soup" {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}
}

func TestFailErr_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&services.ValidationError{Field: "title", Message: "required"}, http.StatusBadRequest, ErrCodeBadRequest},
		{fmt.Errorf("wrapped: %w", &services.ValidationError{Field: "unit", Message: "required"}), http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrRecipeNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrIngredientNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrRecipeIngredientNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrShoppingListNotFound, http.StatusNotFound, ErrCodeNotFound},
		{fmt.Errorf("tx: %w", services.ErrItemNotFound), http.StatusNotFound, ErrCodeNotFound},
		{services.ErrNotRecipeAuthor, http.StatusForbidden, ErrCodeNotAuthor},
		{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{services.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			failErr(c, tc.err)

			er := decode[ErrorResponse](t, w)
			if w.Code != tc.status || er.Code != tc.code {
				t.Fatalf("got %d %q, want %d %q", w.Code, er.Code, tc.status, tc.code)
			}
			if tc.status != http.StatusInternalServerError {
				if er.Message != tc.err.Error() {
					t.Fatalf("message = %q", er.Message)
				}
				return
			}
			if strings.Contains(er.Message, "disk") {
				t.Fatalf("internal cause leaked: %q", er.Message)
			}
			if len(c.Errors) != 1 {
				t.Fatal("cause should be recorded for the access log")
			}
		})
	}
}

func TestClassify_AuthorBeforeForbidden(t *testing.T) {
	// An error carrying both sentinels reports the more specific code.
	both := fmt.Errorf("%w: %w", services.ErrForbidden, services.ErrNotRecipeAuthor)
	if _, code, known := classify(both); !known || code != ErrCodeNotAuthor {
		t.Fatalf("code = %q, known = %v", code, known)
	}
}

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 32)
		c.Next()
	})
	r.POST("/bind", func(c *gin.Context) {
		var dst struct {
			Title string `json:"title"`
		}
		if bindJSON(c, &dst) {
			ok(c, http.StatusOK, dst)
		}
	})

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"title":"Soup"}`, http.StatusOK, ""},
		{`{"title":`, http.StatusBadRequest, ErrCodeBadRequest},
		{`{"title":"` + strings.Repeat("x", 64) + `"}`, http.StatusRequestEntityTooLarge, ErrCodeTooLarge},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Fatalf("%s: status %d, want %d", tc.body, w.Code, tc.status)
		}
		if tc.code != "" {
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != tc.code {
				t.Fatalf("%s: %s", tc.body, w.Body.String())
			}
		}
	}
}
