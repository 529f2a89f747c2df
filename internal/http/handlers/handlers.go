// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they bind and shape input, call application
// services, and translate results into HTTP responses (including conditional
// and replayed responses). Business rules live in package services.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RecipeService defines recipe operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RecipeService interface {
	// Create stores a recipe; an identical earlier request returns the stored row.
	Create(ctx context.Context, userID int64, req services.CreateRecipeRequest) (*domain.Recipe, services.Outcome, error)
	// Get returns a recipe visible to viewer.
	Get(ctx context.Context, viewer *int64, id uint64) (*domain.Recipe, error)
	// ListPage returns a page of recipes and the total count.
	ListPage(ctx context.Context, q services.RecipeQuery, page, pageSize int) ([]domain.Recipe, int64, error)
	// Stats returns the count and latest update of the recipes q selects.
	Stats(ctx context.Context, q services.RecipeQuery) (int64, *time.Time, error)
	// Update replaces a recipe authored by userID.
	Update(ctx context.Context, userID int64, id uint64, req services.UpdateRecipeRequest) (*domain.Recipe, error)
	// Delete removes a recipe authored by userID.
	Delete(ctx context.Context, userID int64, id uint64) error
}

// IngredientService defines recipe-ingredient operations.
type IngredientService interface {
	Add(ctx context.Context, userID int64, recipeID uint64, req services.AddIngredientRequest) (*domain.RecipeIngredient, services.Outcome, error)
	List(ctx context.Context, viewer *int64, recipeID uint64) ([]domain.RecipeIngredient, error)
	Remove(ctx context.Context, userID int64, recipeID, rowID uint64) error
}

// CommentService defines comment operations.
type CommentService interface {
	Create(ctx context.Context, userID *int64, recipeID uint64, req services.CreateCommentRequest) (*domain.Comment, services.Outcome, error)
	ListPage(ctx context.Context, viewer *int64, recipeID uint64, page, pageSize int) ([]domain.Comment, int64, error)
	Stats(ctx context.Context, viewer *int64, recipeID uint64) (int64, *time.Time, error)
}

// ShoppingService defines shopping-list operations.
type ShoppingService interface {
	AddRecipe(ctx context.Context, userID int64, req services.AddRecipeRequest) (*services.AddRecipeResult, error)
	CreateItem(ctx context.Context, userID int64, req services.CreateItemRequest) (*domain.ShoppingListItem, error)
	ListItems(ctx context.Context, userID int64, page, pageSize int) ([]domain.ShoppingListItem, int64, error)
	UpdateItem(ctx context.Context, userID int64, id uint64, req services.UpdateItemRequest) (*domain.ShoppingListItem, error)
	DeleteItem(ctx context.Context, userID int64, id uint64) error
	Lists(ctx context.Context, userID int64) ([]services.ListWithItems, error)
	GetList(ctx context.Context, userID int64, id uint64) (*services.ListWithItems, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for recipes, ingredients, comments and
// shopping lists.
type Handlers struct {
	recipes     RecipeService
	ingredients IngredientService
	comments    CommentService
	shopping    ShoppingService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(recipes RecipeService, ingredients IngredientService, comments CommentService, shopping ShoppingService) *Handlers {
	return &Handlers{recipes: recipes, ingredients: ingredients, comments: comments, shopping: shopping}
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination reads the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.PageParams(c.Query("page"), c.Query("page_size"))
}

// pathID parses the numeric path parameter name, failing the request with
// 400 when it is not a positive integer.
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
	}
	return id, ok
}

// actingUser returns the authenticated user or fails with 401. Routes that
// mutate state also install middleware.RequireUser.
func actingUser(c *gin.Context) (int64, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	}
	return uid, ok
}

// bindJSON decodes the body into dst, failing with 400 on malformed JSON and
// 413 when the body exceeds the router's limit.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		failBind(c, err)
		return false
	}
	return true
}

// created writes the result of a deduplicated create: 201 for a new row, 200
// when an identical earlier request already created it.
func created(c *gin.Context, key *string, outcome services.Outcome, body any) {
	status := http.StatusOK
	if outcome.Created() {
		status = http.StatusCreated
	}
	if key != nil {
		middleware.MarkIdempotent(c, *key, !outcome.Created())
	}
	ok(c, status, body)
}

// notModified sets a weak ETag built from (scope, count, latest) and reports
// whether the client already holds it.
func notModified(c *gin.Context, scope string, count int64, latest *time.Time) bool {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d"`, scope, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// optionalInt64 parses an optional numeric query parameter.
func optionalInt64(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be an integer")
		return nil, false
	}
	return &v, true
}

// optionalBool parses an optional boolean query parameter.
func optionalBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a boolean")
		return nil, false
	}
	return &v, true
}
