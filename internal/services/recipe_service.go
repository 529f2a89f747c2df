// Package services – RecipeService
//
// RecipeService owns recipe creation (deduplicated by request content),
// visibility-aware reads and author-only updates and deletes.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/idempotency"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

// Listing page defaults shared by the paginated services.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RecipeQuery selects the recipes returned by ListPage.
type RecipeQuery struct {
	// Viewer is the acting user, nil for anonymous callers.
	Viewer   *int64
	Search   string
	IsPublic *bool
	AuthorID *int64
}

// RecipeService provides recipe operations.
type RecipeService struct {
	DB *gorm.DB
}

// NewRecipeService constructs a RecipeService.
func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{DB: db}
}

// Create stores a recipe authored by userID. An identical earlier request by
// the same user returns the stored recipe with OutcomeExisting.
func (s *RecipeService) Create(ctx context.Context, userID int64, req CreateRecipeRequest) (*domain.Recipe, Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, OutcomeCreated, err
	}
	key := idempotency.Derive(idempotency.Input{
		Path:   idempotency.RecipesPath(),
		UserID: &userID,
		Body:   req.keyBody(),
	})

	return execute(ctx, s.DB, mutation[domain.Recipe]{
		resource: "recipe",
		key:      key,
		find:     repo.GetRecipeByKey,
		create: func(ctx context.Context, tx *gorm.DB) (*domain.Recipe, error) {
			r := &domain.Recipe{
				AuthorID:    userID,
				Title:       strings.TrimSpace(req.Title),
				IsPublic:    req.public(),
				RequestUUID: domain.StoredKey(key),
			}
			if req.Description != nil {
				r.Description = strings.TrimSpace(*req.Description)
			}
			if err := repo.CreateRecipe(ctx, tx, r); err != nil {
				return nil, err
			}
			return r, nil
		},
	})
}

// Get returns recipe id if viewer may see it. Private recipes of other users
// are reported as not found.
func (s *RecipeService) Get(ctx context.Context, viewer *int64, id uint64) (*domain.Recipe, error) {
	r, err := repo.GetRecipe(ctx, s.DB, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if !r.VisibleTo(viewer) {
		return nil, ErrRecipeNotFound
	}
	return r, nil
}

// ListPage returns a page of recipes visible to q.Viewer, newest first, and
// the total number of matches.
func (s *RecipeService) ListPage(ctx context.Context, q RecipeQuery, page, pageSize int) ([]domain.Recipe, int64, error) {
	ctx, span := otel.Tracer("services/RecipeService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = normalizePage(page, pageSize)
	f := q.filter()

	total, err := repo.CountRecipes(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Recipe{}, 0, nil
	}
	items, err := repo.ListRecipesPage(ctx, s.DB, f, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the match count and newest modification time for q, for
// conditional responses.
func (s *RecipeService) Stats(ctx context.Context, q RecipeQuery) (int64, *time.Time, error) {
	return repo.RecipesStats(ctx, s.DB, q.filter())
}

// Update replaces title and description. Visibility changes only when
// req.IsPublic is set. Only the author may update a recipe.
func (s *RecipeService) Update(ctx context.Context, userID int64, id uint64, req UpdateRecipeRequest) (*domain.Recipe, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *domain.Recipe
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.authored(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		r.Title = strings.TrimSpace(req.Title)
		r.Description = ""
		if req.Description != nil {
			r.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsPublic != nil {
			r.IsPublic = *req.IsPublic
		}
		r.UpdatedAt = tx.NowFunc()
		if err := repo.UpdateRecipe(ctx, tx, r); err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}
		out = r
		return nil
	})
	return out, err
}

// Delete removes a recipe with its ingredient lines and comments. Only the
// author may delete a recipe.
func (s *RecipeService) Delete(ctx context.Context, userID int64, id uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authored(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := repo.DeleteRecipe(ctx, tx, id); err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		return nil
	})
}

// KeyFor returns the idempotency key Create would derive for req by userID.
func (s *RecipeService) KeyFor(userID int64, req CreateRecipeRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}
	return idempotency.Derive(idempotency.Input{
		Path:   idempotency.RecipesPath(),
		UserID: &userID,
		Body:   req.keyBody(),
	}), nil
}

// authored loads recipe id and checks that userID wrote it. Recipes the user
// cannot see are not found; visible recipes of others are forbidden.
func (s *RecipeService) authored(ctx context.Context, db *gorm.DB, userID int64, id uint64) (*domain.Recipe, error) {
	r, err := repo.GetRecipe(ctx, db, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if !r.VisibleTo(&userID) {
		return nil, ErrRecipeNotFound
	}
	if r.AuthorID != userID {
		return nil, ErrNotRecipeAuthor
	}
	return r, nil
}

func (q RecipeQuery) filter() repo.RecipeFilter {
	return repo.RecipeFilter{
		Viewer:   q.Viewer,
		Search:   domain.FoldTitle(strings.TrimSpace(q.Search)),
		IsPublic: q.IsPublic,
		AuthorID: q.AuthorID,
	}
}

// normalizePage applies listing defaults: page starts at 1 and the page size
// falls back to 20, capped at 100.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// formatID renders an id for span attributes and log fields.
func formatID(id uint64) string { return strconv.FormatUint(id, 10) }
