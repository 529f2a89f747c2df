// Comment HTTP handlers.
//
// This file exposes REST endpoints for recipe comments:
//   - POST /recipes/{id}/comments/   (create, deduplicated)
//   - GET  /recipes/{id}/comments/   (list newest first, ETag support)
//
// Comment creation resolves the recipe before the caller: commenting on a
// recipe that does not exist is 404 even for anonymous callers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// ListCommentsResponse contains a page of comments and pagination metadata.
type ListCommentsResponse struct {
	Comments   []domain.Comment `json:"comments"`
	Pagination Pagination       `json:"pagination"`
}

// CreateComment godoc
// @ID          createComment
// @Summary     Comment on a recipe
// @Description Stores a comment by the current user. Identical requests return the existing comment with 200.
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                            true  "Recipe ID"  minimum(1)
// @Param       body  body  services.CreateCommentRequest  true  "Comment payload"
//
// @Success     201  {object}  domain.Comment  "Created"
// @Success     200  {object}  domain.Comment  "Existing comment of an identical request"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/comments/ [post]
func (h *Handlers) CreateComment(c *gin.Context) {
	recipeID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req services.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	cm, outcome, err := h.comments.Create(c.Request.Context(), middleware.OptionalUserID(c), recipeID, req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, cm.RequestUUID, outcome, cm)
}

// ListComments godoc
// @ID          listComments
// @Summary     List comments on a recipe
// @Description Returns a page of comments, newest first. Supports weak ETag via If-None-Match.
// @Tags        Comments
// @Produce     json
//
// @Param       id             path    int     true  "Recipe ID"       minimum(1)
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ListCommentsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/comments/ [get]
func (h *Handlers) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	recipeID, valid := pathID(c, "id")
	if !valid {
		return
	}
	viewer := middleware.OptionalUserID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, latest, err := h.comments.Stats(ctx, viewer, recipeID); err == nil {
		scope := "comments:" + strconv.FormatUint(recipeID, 10) + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(pageSize)
		if notModified(c, scope, count, latest) {
			return
		}
	}

	items, total, err := h.comments.ListPage(ctx, viewer, recipeID, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Comment{}
	}
	ok(c, http.StatusOK, ListCommentsResponse{
		Comments:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}
