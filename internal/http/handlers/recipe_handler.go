// Recipe HTTP handlers.
//
// This file exposes REST endpoints for recipe resources:
//   - POST   /recipes/        (create, deduplicated)
//   - GET    /recipes/        (list, paginated, ETag support)
//   - GET    /recipes/{id}/   (retrieve)
//   - PUT    /recipes/{id}/   (replace, author only)
//   - DELETE /recipes/{id}/   (delete, author only)
package handlers

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// ListRecipesResponse wraps a page of recipes and pagination information.
type ListRecipesResponse struct {
	Recipes    []domain.Recipe `json:"recipes"`
	Pagination Pagination      `json:"pagination"`
}

// CreateRecipe godoc
// @ID          createRecipe
// @Summary     Create a recipe
// @Description Creates a recipe authored by the current user. Repeating an identical request
// @Description returns the recipe created by the first one with 200 and `Idempotency-Replayed: true`.
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  services.CreateRecipeRequest  true  "Recipe payload"
//
// @Success     201  {object}  domain.Recipe  "Created"
// @Success     200  {object}  domain.Recipe  "Existing recipe of an identical request"
// @Header      201  {string}  Idempotency-Key       "Derived request key"
// @Header      200  {string}  Idempotency-Replayed  "true"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /recipes/ [post]
func (h *Handlers) CreateRecipe(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	var req services.CreateRecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	r, outcome, err := h.recipes.Create(c.Request.Context(), uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, r.RequestUUID, outcome, r)
}

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List recipes (paginated)
// @Description Anonymous callers see public recipes; authenticated callers also see their own private ones.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Recipes
// @Produce     json
//
// @Param       search         query   string  false "Case-insensitive title substring"  example(soup)
// @Param       is_public      query   bool    false "Filter by visibility"
// @Param       author         query   int     false "Filter by author id"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ListRecipesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/ [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	ctx := c.Request.Context()

	isPublic, valid := optionalBool(c, "is_public")
	if !valid {
		return
	}
	author, valid := optionalInt64(c, "author")
	if !valid {
		return
	}
	q := services.RecipeQuery{
		Viewer:   middleware.OptionalUserID(c),
		Search:   strings.TrimSpace(c.Query("search")),
		IsPublic: isPublic,
		AuthorID: author,
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, latest, err := h.recipes.Stats(ctx, q); err == nil {
		if notModified(c, recipesScope(q, page, pageSize), count, latest) {
			return
		}
	}

	items, total, err := h.recipes.ListPage(ctx, q, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Recipe{}
	}
	ok(c, http.StatusOK, ListRecipesResponse{
		Recipes:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetRecipe godoc
// @ID          getRecipe
// @Summary     Retrieve a recipe
// @Description Returns a public recipe, or a private one to its author. Other private recipes are not found.
// @Tags        Recipes
// @Produce     json
//
// @Param       id  path  int  true  "Recipe ID"  minimum(1)
//
// @Success     200  {object}  domain.Recipe
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/ [get]
func (h *Handlers) GetRecipe(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	r, err := h.recipes.Get(c.Request.Context(), middleware.OptionalUserID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateRecipe godoc
// @ID          updateRecipe
// @Summary     Replace a recipe
// @Description Replaces title, description and visibility. Only the author may update.
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                           true  "Recipe ID"  minimum(1)
// @Param       body  body  services.UpdateRecipeRequest  true  "Recipe payload"
//
// @Success     200  {object}  domain.Recipe
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/ [put]
func (h *Handlers) UpdateRecipe(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req services.UpdateRecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.recipes.Update(c.Request.Context(), uid, id, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// DeleteRecipe godoc
// @ID          deleteRecipe
// @Summary     Delete a recipe
// @Description Deletes a recipe with its ingredient lines and comments. Shopping-list items keep
// @Description their quantities and lose the recipe reference.
// @Tags        Recipes
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Recipe ID"  minimum(1)
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/ [delete]
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), uid, id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// recipesScope identifies one listing (viewer, filters, page) inside an ETag.
func recipesScope(q services.RecipeQuery, page, pageSize int) string {
	f := fnv.New64a()
	if q.Viewer != nil {
		f.Write([]byte(strconv.FormatInt(*q.Viewer, 10)))
	}
	f.Write([]byte{0})
	f.Write([]byte(q.Search))
	f.Write([]byte{0})
	if q.IsPublic != nil {
		f.Write([]byte(strconv.FormatBool(*q.IsPublic)))
	}
	f.Write([]byte{0})
	if q.AuthorID != nil {
		f.Write([]byte(strconv.FormatInt(*q.AuthorID, 10)))
	}
	return "recipes:" + strconv.FormatUint(f.Sum64(), 16) + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(pageSize)
}
