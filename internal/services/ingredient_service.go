// Package services – IngredientService
//
// IngredientService manages the ingredient lines of a recipe. Adding a line
// is deduplicated by request content and resolves the ingredient by exact
// name in the shared catalogue, creating it on first use.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/idempotency"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// IngredientService provides recipe-ingredient operations.
type IngredientService struct {
	DB *gorm.DB
}

// NewIngredientService constructs an IngredientService.
func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{DB: db}
}

// Add appends an ingredient line to recipeID. Only the recipe author may add
// lines. An identical earlier request returns the stored line with
// OutcomeExisting.
func (s *IngredientService) Add(ctx context.Context, userID int64, recipeID uint64, req AddIngredientRequest) (*domain.RecipeIngredient, Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, OutcomeCreated, err
	}
	key := ingredientKey(userID, recipeID, req)

	return execute(ctx, s.DB, mutation[domain.RecipeIngredient]{
		resource: "ingredient",
		key:      key,
		find:     repo.GetRecipeIngredientByKey,
		create: func(ctx context.Context, tx *gorm.DB) (*domain.RecipeIngredient, error) {
			r, err := repo.GetRecipe(ctx, tx, recipeID)
			if err != nil {
				if repo.IsNotFound(err) {
					return nil, ErrRecipeNotFound
				}
				return nil, fmt.Errorf("get recipe: %w", err)
			}
			if r.AuthorID != userID {
				return nil, ErrNotRecipeAuthor
			}
			ing, err := getOrCreateIngredient(ctx, tx, strings.TrimSpace(req.Name))
			if err != nil {
				return nil, err
			}
			ri := &domain.RecipeIngredient{
				RecipeID:     recipeID,
				IngredientID: ing.ID,
				Quantity:     *req.Quantity,
				Unit:         strings.TrimSpace(req.Unit),
				RequestUUID:  domain.StoredKey(key),
			}
			if err := repo.CreateRecipeIngredient(ctx, tx, ri); err != nil {
				return nil, err
			}
			ri.Ingredient = ing
			return ri, nil
		},
	})
}

// List returns the ingredient lines of recipeID. Private recipes of other
// users are forbidden.
func (s *IngredientService) List(ctx context.Context, viewer *int64, recipeID uint64) ([]domain.RecipeIngredient, error) {
	ctx, span := otel.Tracer("services/IngredientService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("recipe.id", formatID(recipeID))),
	)
	defer span.End()

	r, err := repo.GetRecipe(ctx, s.DB, recipeID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if !r.VisibleTo(viewer) {
		return nil, ErrForbidden
	}
	return repo.ListRecipeIngredients(ctx, s.DB, recipeID)
}

// Remove deletes line rowID of recipeID. Only the recipe author may remove
// lines.
func (s *IngredientService) Remove(ctx context.Context, userID int64, recipeID, rowID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRecipe(ctx, tx, recipeID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrRecipeNotFound
			}
			return fmt.Errorf("get recipe: %w", err)
		}
		if r.AuthorID != userID {
			return ErrNotRecipeAuthor
		}
		if err := repo.DeleteRecipeIngredient(ctx, tx, recipeID, rowID); err != nil {
			if repo.IsNotFound(err) {
				return ErrRecipeIngredientNotFound
			}
			return fmt.Errorf("delete recipe ingredient: %w", err)
		}
		return nil
	})
}

// KeyFor returns the idempotency key Add would derive for req by userID.
func (s *IngredientService) KeyFor(userID int64, recipeID uint64, req AddIngredientRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}
	return ingredientKey(userID, recipeID, req), nil
}

func ingredientKey(userID int64, recipeID uint64, req AddIngredientRequest) uuid.UUID {
	return idempotency.Derive(idempotency.Input{
		Path:   idempotency.IngredientsPath(recipeID),
		UserID: &userID,
		Body:   req.keyBody(),
		Extra:  map[string]any{"recipe_id": recipeID},
	})
}

// getOrCreateIngredient resolves name in the catalogue. The insert runs in a
// savepoint so that losing a concurrent first insert leaves tx usable for the
// re-select.
func getOrCreateIngredient(ctx context.Context, tx *gorm.DB, name string) (*domain.Ingredient, error) {
	ing, err := repo.GetIngredientByName(ctx, tx, name)
	if err == nil {
		return ing, nil
	}
	if !repo.IsNotFound(err) {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}

	err = tx.Transaction(func(sp *gorm.DB) error {
		var cerr error
		ing, cerr = repo.CreateIngredient(ctx, sp, name)
		return cerr
	})
	if err == nil {
		return ing, nil
	}
	if !repo.IsUniqueViolation(err) {
		return nil, fmt.Errorf("create ingredient: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("ingredient", name).Msg("ingredient created concurrently")
	ing, err = repo.GetIngredientByName(ctx, tx, name)
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return ing, nil
}
