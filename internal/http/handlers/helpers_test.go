package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

const apiBase = "/api/v1"

// newAPI mounts the handlers over real services on a fresh SQLite file.
// Identity comes from X-User-ID.
func newAPI(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), repo.Options{LogLevel: logger.Silent})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	h := New(
		services.NewRecipeService(db),
		services.NewIngredientService(db),
		services.NewCommentService(db),
		services.NewShoppingService(db),
	)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Authenticate(middleware.AuthOptions{AllowHeader: true}))
	h.Register(r.Group(apiBase))
	return r, db
}

// call performs a request as user (0 = anonymous) with an optional JSON body.
func call(r http.Handler, method, path string, user int64, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, apiBase+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, apiBase+path, nil)
	}
	if user > 0 {
		req.Header.Set(middleware.HeaderUserID, strconv.FormatInt(user, 10))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, want, w.Body.String())
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	if er := decode[ErrorResponse](t, w); er.Code != code {
		t.Fatalf("code = %q, want %q (%s)", er.Code, code, er.Message)
	}
}

type idBody struct {
	ID uint64 `json:"id"`
}

// mustRecipe creates a recipe as user and returns its id.
func mustRecipe(t *testing.T, r http.Handler, user int64, body string) uint64 {
	t.Helper()
	w := call(r, http.MethodPost, "/recipes/", user, body)
	if w.Code != http.StatusCreated && w.Code != http.StatusOK {
		t.Fatalf("create recipe: %d %s", w.Code, w.Body.String())
	}
	return decode[idBody](t, w).ID
}

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }

func recipePath(id uint64, suffix string) string {
	return "/recipes/" + itoa(id) + "/" + suffix
}
