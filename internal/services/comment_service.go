// Package services – CommentService
//
// CommentService stores and lists comments on recipes. Comment creation is
// deduplicated by request content: the same user posting the same text on the
// same recipe yields one comment.
package services

import (
	"context"
	"fmt"
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

// CommentService provides comment operations.
type CommentService struct {
	DB *gorm.DB
}

// NewCommentService constructs a CommentService.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{DB: db}
}

// Create comments on recipeID as userID.
//
// Checks run in this order: the request must be valid, the recipe must exist
// and be visible (ErrRecipeNotFound) and the caller must be identified
// (ErrUnauthenticated). Invalid requests never reach the store.
func (s *CommentService) Create(ctx context.Context, userID *int64, recipeID uint64, req CreateCommentRequest) (*domain.Comment, Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, OutcomeCreated, err
	}
	if _, err := s.visibleRecipe(ctx, s.DB, userID, recipeID); err != nil {
		return nil, OutcomeCreated, err
	}
	if userID == nil {
		return nil, OutcomeCreated, ErrUnauthenticated
	}
	key := commentKey(*userID, recipeID, req)

	return execute(ctx, s.DB, mutation[domain.Comment]{
		resource: "comment",
		key:      key,
		find:     repo.GetCommentByKey,
		create: func(ctx context.Context, tx *gorm.DB) (*domain.Comment, error) {
			if _, err := s.visibleRecipe(ctx, tx, userID, recipeID); err != nil {
				return nil, err
			}
			c := &domain.Comment{
				RecipeID:    recipeID,
				UserID:      *userID,
				Text:        strings.TrimSpace(req.Text),
				RequestUUID: domain.StoredKey(key),
			}
			if err := repo.CreateComment(ctx, tx, c); err != nil {
				return nil, err
			}
			return c, nil
		},
	})
}

// KeyFor returns the idempotency key Create would derive for req by userID.
func (s *CommentService) KeyFor(userID int64, recipeID uint64, req CreateCommentRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}
	return commentKey(userID, recipeID, req), nil
}

func commentKey(userID int64, recipeID uint64, req CreateCommentRequest) uuid.UUID {
	return idempotency.Derive(idempotency.Input{
		Path:   idempotency.CommentsPath(recipeID),
		UserID: &userID,
		Body:   req.keyBody(),
		Extra:  map[string]any{"recipe_id": recipeID},
	})
}

// ListPage returns a page of comments on recipeID, newest first, and the
// total count.
func (s *CommentService) ListPage(ctx context.Context, viewer *int64, recipeID uint64, page, pageSize int) ([]domain.Comment, int64, error) {
	ctx, span := otel.Tracer("services/CommentService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("recipe.id", formatID(recipeID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if _, err := s.visibleRecipe(ctx, s.DB, viewer, recipeID); err != nil {
		return nil, 0, err
	}
	page, pageSize = normalizePage(page, pageSize)

	total, err := repo.CountComments(ctx, s.DB, recipeID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Comment{}, 0, nil
	}
	items, err := repo.ListCommentsPage(ctx, s.DB, recipeID, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the comment count and newest comment time of a visible
// recipe, for conditional responses.
func (s *CommentService) Stats(ctx context.Context, viewer *int64, recipeID uint64) (int64, *time.Time, error) {
	if _, err := s.visibleRecipe(ctx, s.DB, viewer, recipeID); err != nil {
		return 0, nil, err
	}
	return repo.CommentsStats(ctx, s.DB, recipeID)
}

func (s *CommentService) visibleRecipe(ctx context.Context, db *gorm.DB, viewer *int64, recipeID uint64) (*domain.Recipe, error) {
	r, err := repo.GetRecipe(ctx, db, recipeID)
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
