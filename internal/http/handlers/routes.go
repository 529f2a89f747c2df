package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
)

// Route patterns of the deduplicated creates, relative to the API group.
const (
	RouteRecipes     = "/recipes/"
	RouteIngredients = "/recipes/:id/ingredients/"
	RouteComments    = "/recipes/:id/comments/"
)

// Register mounts the public API on rg. Identity must already be resolved by
// middleware.Authenticate.
func (h *Handlers) Register(rg *gin.RouterGroup) {
	auth := middleware.RequireUser()

	// Recipes
	rg.POST(RouteRecipes, auth, h.CreateRecipe)
	rg.GET(RouteRecipes, h.ListRecipes)
	rg.GET("/recipes/:id/", h.GetRecipe)
	rg.PUT("/recipes/:id/", auth, h.UpdateRecipe)
	rg.DELETE("/recipes/:id/", auth, h.DeleteRecipe)

	// Ingredients
	rg.POST(RouteIngredients, auth, h.AddIngredient)
	rg.GET(RouteIngredients, auth, h.ListIngredients)
	rg.DELETE("/recipes/:id/ingredients/:rowId/", auth, h.RemoveIngredient)

	// Comments (creation resolves the recipe before the caller)
	rg.POST(RouteComments, h.CreateComment)
	rg.GET(RouteComments, h.ListComments)

	// Shopping list
	shop := rg.Group("/shopping-list", auth)
	{
		shop.POST("/items/add-recipe-by-title", h.AddRecipeToList)
		shop.GET("/items/", h.ListItems)
		shop.POST("/items/", h.CreateItem)
		shop.PATCH("/items/:id/", h.UpdateItem)
		shop.DELETE("/items/:id/", h.DeleteItem)
		shop.GET("/lists/", h.ListShoppingLists)
		shop.GET("/lists/:id/", h.GetShoppingList)
	}
}
