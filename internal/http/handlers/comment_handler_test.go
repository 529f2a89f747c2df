package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
)

func TestCreateComment_OrderOfChecks(t *testing.T) {
	r, _ := newAPI(t)
	id := mustRecipe(t, r, 1, `{"title":"Soup"}`)

	// Invalid input is rejected before the recipe is looked up.
	expectError(t, call(r, http.MethodPost, recipePath(999, "comments/"), 0, `{"text":" "}`), http.StatusBadRequest, ErrCodeBadRequest)
	// Missing recipe wins over missing identity.
	expectError(t, call(r, http.MethodPost, recipePath(999, "comments/"), 0, `{"text":"hi"}`), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, call(r, http.MethodPost, recipePath(id, "comments/"), 0, `{"text":"hi"}`), http.StatusUnauthorized, ErrCodeUnauthorized)
	expectError(t, call(r, http.MethodPost, recipePath(id, "comments/"), 2, `{"text":"  "}`), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestCreateComment_Idempotent(t *testing.T) {
	r, _ := newAPI(t)
	id := mustRecipe(t, r, 1, `{"title":"Soup"}`)
	path := recipePath(id, "comments/")

	w1 := call(r, http.MethodPost, path, 2, `{"text":"Delicious!"}`)
	expectStatus(t, w1, http.StatusCreated)
	first := decode[domain.Comment](t, w1)

	w2 := call(r, http.MethodPost, path, 2, `{"text":" Delicious! "}`)
	expectStatus(t, w2, http.StatusOK)
	if decode[domain.Comment](t, w2).ID != first.ID || w2.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("expected replay of %d: %s", first.ID, w2.Body.String())
	}
	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", w1.Body.String(), w2.Body.String())
	}

	// Same text by another user is a new comment.
	w3 := call(r, http.MethodPost, path, 3, `{"text":"Delicious!"}`)
	expectStatus(t, w3, http.StatusCreated)
	if decode[domain.Comment](t, w3).ID == first.ID {
		t.Fatal("comments of different users must not collapse")
	}
}

func TestListComments(t *testing.T) {
	r, _ := newAPI(t)
	id := mustRecipe(t, r, 1, `{"title":"Soup"}`)
	priv := mustRecipe(t, r, 1, `{"title":"Secret","is_public":false}`)
	path := recipePath(id, "comments/")
	for _, text := range []string{"one", "two", "three"} {
		expectStatus(t, call(r, http.MethodPost, path, 2, `{"text":"`+text+`"}`), http.StatusCreated)
	}

	w := call(r, http.MethodGet, path+"?page_size=2", 0, "")
	expectStatus(t, w, http.StatusOK)
	got := decode[ListCommentsResponse](t, w)
	if got.Pagination.Total != 3 || len(got.Comments) != 2 || !got.Pagination.HasNext {
		t.Fatalf("page = %+v", got)
	}
	if got.Comments[0].Text != "three" {
		t.Fatalf("expected newest first, got %q", got.Comments[0].Text)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}
	expectStatus(t, call(r, http.MethodGet, path+"?page_size=2", 0, "", "If-None-Match", etag), http.StatusNotModified)

	expectError(t, call(r, http.MethodGet, recipePath(priv, "comments/"), 2, ""), http.StatusNotFound, ErrCodeNotFound)

	w = call(r, http.MethodGet, recipePath(priv, "comments/"), 1, "")
	expectStatus(t, w, http.StatusOK)
	if body := w.Body.String(); !strings.Contains(body, `"comments":[]`) {
		t.Fatalf("empty page must encode comments as []: %s", body)
	}
}
