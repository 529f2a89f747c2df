// Recipe ingredient HTTP handlers.
//
// This file exposes REST endpoints for the ingredient lines of a recipe:
//   - POST   /recipes/{id}/ingredients/          (add, deduplicated)
//   - GET    /recipes/{id}/ingredients/          (list)
//   - DELETE /recipes/{id}/ingredients/{rowId}/  (remove)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// RecipeIngredientResponse is one ingredient line of a recipe.
type RecipeIngredientResponse struct {
	ID           uint64  `json:"id" example:"1"`
	RecipeID     uint64  `json:"recipe_id" example:"1"`
	IngredientID uint64  `json:"ingredient_id" example:"4"`
	Name         string  `json:"name" example:"Flour"`
	Quantity     float64 `json:"quantity" example:"200"`
	Unit         string  `json:"unit" example:"g"`
}

func toRecipeIngredient(ri *domain.RecipeIngredient) RecipeIngredientResponse {
	out := RecipeIngredientResponse{
		ID:           ri.ID,
		RecipeID:     ri.RecipeID,
		IngredientID: ri.IngredientID,
		Quantity:     ri.Quantity,
		Unit:         ri.Unit,
	}
	if ri.Ingredient != nil {
		out.Name = ri.Ingredient.Name
	}
	return out
}

// AddIngredient godoc
// @ID          addIngredient
// @Summary     Add an ingredient line to a recipe
// @Description Adds a line to a recipe authored by the current user. The ingredient is looked up by exact
// @Description name and created on first use. Identical requests return the existing line with 200.
// @Tags        Ingredients
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                            true  "Recipe ID"  minimum(1)
// @Param       body  body  services.AddIngredientRequest  true  "Ingredient line"
//
// @Success     201  {object}  handlers.RecipeIngredientResponse  "Created"
// @Success     200  {object}  handlers.RecipeIngredientResponse  "Existing line of an identical request"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/ingredients/ [post]
func (h *Handlers) AddIngredient(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	recipeID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req services.AddIngredientRequest
	if !bindJSON(c, &req) {
		return
	}

	ri, outcome, err := h.ingredients.Add(c.Request.Context(), uid, recipeID, req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, ri.RequestUUID, outcome, toRecipeIngredient(ri))
}

// ListIngredients godoc
// @ID          listIngredients
// @Summary     List the ingredient lines of a recipe
// @Description Private recipes of other users are forbidden.
// @Tags        Ingredients
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Recipe ID"  minimum(1)
//
// @Success     200  {array}   handlers.RecipeIngredientResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/ingredients/ [get]
func (h *Handlers) ListIngredients(c *gin.Context) {
	recipeID, valid := pathID(c, "id")
	if !valid {
		return
	}
	rows, err := h.ingredients.List(c.Request.Context(), middleware.OptionalUserID(c), recipeID)
	if err != nil {
		failErr(c, err)
		return
	}
	out := make([]RecipeIngredientResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toRecipeIngredient(&rows[i]))
	}
	ok(c, http.StatusOK, out)
}

// RemoveIngredient godoc
// @ID          removeIngredient
// @Summary     Remove an ingredient line
// @Tags        Ingredients
// @Security    BearerAuth
//
// @Param       id     path  int  true  "Recipe ID"  minimum(1)
// @Param       rowId  path  int  true  "Line ID"    minimum(1)
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe or line not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /recipes/{id}/ingredients/{rowId}/ [delete]
func (h *Handlers) RemoveIngredient(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	recipeID, valid := pathID(c, "id")
	if !valid {
		return
	}
	rowID, valid := pathID(c, "rowId")
	if !valid {
		return
	}
	if err := h.ingredients.Remove(c.Request.Context(), uid, recipeID, rowID); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
