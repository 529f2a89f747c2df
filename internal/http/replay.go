package httpapi

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/http/handlers"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

// keyDeriver derives request keys the same way the services do on create.
type keyDeriver interface {
	recipeKey(uid int64, body []byte) (uuid.UUID, error)
	ingredientKey(uid int64, recipeID uint64, body []byte) (uuid.UUID, error)
	commentKey(uid int64, recipeID uint64, body []byte) (uuid.UUID, error)
}

type serviceKeys struct {
	recipes     *services.RecipeService
	ingredients *services.IngredientService
	comments    *services.CommentService
}

func (k serviceKeys) recipeKey(uid int64, body []byte) (uuid.UUID, error) {
	var req services.CreateRecipeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return uuid.Nil, err
	}
	return k.recipes.KeyFor(uid, req)
}

func (k serviceKeys) ingredientKey(uid int64, recipeID uint64, body []byte) (uuid.UUID, error) {
	var req services.AddIngredientRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return uuid.Nil, err
	}
	return k.ingredients.KeyFor(uid, recipeID, req)
}

func (k serviceKeys) commentKey(uid int64, recipeID uint64, body []byte) (uuid.UUID, error) {
	var req services.CreateCommentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return uuid.Nil, err
	}
	return k.comments.KeyFor(uid, recipeID, req)
}

// replayLookup answers ReplayDetector for the three deduplicated creates
// mounted under base. Requests it cannot key (other routes, bad ids, bodies
// that fail validation) are reported as misses so the handler produces the
// real error.
func replayLookup(db *gorm.DB, base string, keys keyDeriver) func(ctx context.Context, route string, uid int64, params gin.Params, body []byte) (string, bool, error) {
	recipes := joinRoute(base, handlers.RouteRecipes)
	ingredients := joinRoute(base, handlers.RouteIngredients)
	comments := joinRoute(base, handlers.RouteComments)

	return func(ctx context.Context, route string, uid int64, params gin.Params, body []byte) (string, bool, error) {
		var (
			k     uuid.UUID
			err   error
			found func() error
		)
		switch route {
		case recipes:
			if k, err = keys.recipeKey(uid, body); err != nil {
				return "", false, nil
			}
			found = func() error { _, err := repo.GetRecipeByKey(ctx, db, k); return err }
		case ingredients, comments:
			recipeID, valid := utils.ParseID(params.ByName("id"))
			if !valid {
				return "", false, nil
			}
			if route == ingredients {
				k, err = keys.ingredientKey(uid, recipeID, body)
				found = func() error { _, err := repo.GetRecipeIngredientByKey(ctx, db, k); return err }
			} else {
				k, err = keys.commentKey(uid, recipeID, body)
				found = func() error { _, err := repo.GetCommentByKey(ctx, db, k); return err }
			}
			if err != nil {
				return "", false, nil
			}
		default:
			return "", false, nil
		}

		switch err := found(); {
		case err == nil:
			return k.String(), true, nil
		case errors.Is(err, repo.ErrNotFound):
			return k.String(), false, nil
		default:
			return "", false, err
		}
	}
}

// joinRoute builds the full Gin route of a pattern mounted under base.
func joinRoute(base, route string) string {
	if base == "" || base == "/" {
		return route
	}
	return base + route
}
