// Shopping-list HTTP handlers.
//
// This file exposes REST endpoints for the current user's shopping lists:
//   - POST   /shopping-list/items/add-recipe-by-title  (merge a recipe into a list)
//   - GET    /shopping-list/items/                     (list items, paginated)
//   - POST   /shopping-list/items/                     (add one item)
//   - PATCH  /shopping-list/items/{id}/                (update an item)
//   - DELETE /shopping-list/items/{id}/                (delete an item)
//   - GET    /shopping-list/lists/                     (lists with items)
//   - GET    /shopping-list/lists/{id}/                (one list with items)
//
// Merging is additive: adding the same recipe twice doubles its quantities.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

//
// DTOs
//

// ItemResponse is one shopping-list item.
type ItemResponse struct {
	ID             uint64  `json:"id" example:"7"`
	ShoppingListID uint64  `json:"shopping_list_id" example:"3"`
	IngredientID   uint64  `json:"ingredient_id" example:"4"`
	IngredientName string  `json:"ingredient_name" example:"Flour"`
	RecipeID       *uint64 `json:"recipe_id" example:"1"`
	RecipeTitle    *string `json:"recipe_title" example:"Bread"`
	Quantity       float64 `json:"quantity" example:"400"`
	Unit           string  `json:"unit" example:"g"`
	IsPurchased    bool    `json:"is_purchased" example:"false"`
}

// ShoppingListResponse is a shopping list with its items.
type ShoppingListResponse struct {
	ID        uint64         `json:"id" example:"3"`
	Title     string         `json:"title" example:"Bread"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []ItemResponse `json:"items"`
}

// AddRecipeResponse is the result of merging a recipe into a list: the target
// list and the items that were created or incremented, in recipe order.
type AddRecipeResponse struct {
	ShoppingListID    uint64         `json:"shopping_list_id" example:"3"`
	ShoppingListTitle string         `json:"shopping_list_title" example:"Bread"`
	Items             []ItemResponse `json:"items"`
}

// ListItemsResponse contains a page of items and pagination metadata.
type ListItemsResponse struct {
	Items      []ItemResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

func toItem(it *domain.ShoppingListItem) ItemResponse {
	out := ItemResponse{
		ID:             it.ID,
		ShoppingListID: it.ShoppingListID,
		IngredientID:   it.IngredientID,
		RecipeID:       it.RecipeID,
		Quantity:       it.Quantity,
		Unit:           it.Unit,
		IsPurchased:    it.IsPurchased,
	}
	if it.Ingredient != nil {
		out.IngredientName = it.Ingredient.Name
	}
	if it.RecipeID != nil && it.Recipe != nil {
		title := it.Recipe.Title
		out.RecipeTitle = &title
	}
	return out
}

func toItems(items []domain.ShoppingListItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItem(&items[i]))
	}
	return out
}

func toShoppingList(l *domain.ShoppingList, items []domain.ShoppingListItem) ShoppingListResponse {
	return ShoppingListResponse{
		ID:        l.ID,
		Title:     l.Title,
		CreatedAt: l.CreatedAt,
		Items:     toItems(items),
	}
}

//
// Handlers
//

// AddRecipeToList godoc
// @ID          addRecipeToShoppingList
// @Summary     Add a recipe's ingredients to a shopping list
// @Description Scales every ingredient line of the recipe by `multiply` (default 1, at most two decimal
// @Description places) and merges it into the list: quantities of existing items for the same ingredient
// @Description and recipe are added, the unit of the latest request wins. Without `shopping_list_id` the
// @Description list is found or created by `title`, falling back to the recipe title.
// @Tags        Shopping list
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  services.AddRecipeRequest  true  "Recipe and target list"
//
// @Success     201  {object}  handlers.AddRecipeResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse "Private recipe of another user"
// @Failure     404  {object}  handlers.ErrorResponse "Recipe or list not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /shopping-list/items/add-recipe-by-title [post]
func (h *Handlers) AddRecipeToList(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	var req services.AddRecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.shopping.AddRecipe(c.Request.Context(), uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, AddRecipeResponse{
		ShoppingListID:    res.List.ID,
		ShoppingListTitle: res.List.Title,
		Items:             toItems(res.Items),
	})
}

// ListItems godoc
// @ID          listShoppingItems
// @Summary     List shopping-list items
// @Description Returns a page of the current user's items across all lists.
// @Tags        Shopping list
// @Produce     json
// @Security    BearerAuth
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListItemsResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /shopping-list/items/ [get]
func (h *Handlers) ListItems(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	page, pageSize := clampPagination(c)
	items, total, err := h.shopping.ListItems(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListItemsResponse{
		Items:      toItems(items),
		Pagination: newPagination(page, pageSize, total),
	})
}

// CreateItem godoc
// @ID          createShoppingItem
// @Summary     Add one item to a shopping list
// @Description Adds an ingredient to the list given by `shopping_list_id`, or to the list named after
// @Description `recipe_id`'s title. An existing item for the same ingredient and recipe is incremented.
// @Tags        Shopping list
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  services.CreateItemRequest  true  "Item payload"
//
// @Success     201  {object}  handlers.ItemResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse "Private recipe of another user"
// @Failure     404  {object}  handlers.ErrorResponse "Ingredient, recipe or list not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /shopping-list/items/ [post]
func (h *Handlers) CreateItem(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	var req services.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.shopping.CreateItem(c.Request.Context(), uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, toItem(it))
}

// UpdateItem godoc
// @ID          updateShoppingItem
// @Summary     Update a shopping-list item
// @Description Sets any of quantity, unit and is_purchased.
// @Tags        Shopping list
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                         true  "Item ID"  minimum(1)
// @Param       body  body  services.UpdateItemRequest  true  "Fields to change"
//
// @Success     200  {object}  handlers.ItemResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse "Item not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /shopping-list/items/{id}/ [patch]
func (h *Handlers) UpdateItem(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req services.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.shopping.UpdateItem(c.Request.Context(), uid, id, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, toItem(it))
}

// DeleteItem godoc
// @ID          deleteShoppingItem
// @Summary     Delete a shopping-list item
// @Tags        Shopping list
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Item ID"  minimum(1)
//
// @Success     204  {string}  string "No Content"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse "Item not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /shopping-list/items/{id}/ [delete]
func (h *Handlers) DeleteItem(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.shopping.DeleteItem(c.Request.Context(), uid, id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ListShoppingLists godoc
// @ID          listShoppingLists
// @Summary     List shopping lists
// @Description Returns the current user's lists with their items.
// @Tags        Shopping list
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {array}   handlers.ShoppingListResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /shopping-list/lists/ [get]
func (h *Handlers) ListShoppingLists(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	lists, err := h.shopping.Lists(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	out := make([]ShoppingListResponse, 0, len(lists))
	for i := range lists {
		out = append(out, toShoppingList(&lists[i].ShoppingList, lists[i].Items))
	}
	ok(c, http.StatusOK, out)
}

// GetShoppingList godoc
// @ID          getShoppingList
// @Summary     Retrieve a shopping list
// @Tags        Shopping list
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  int  true  "List ID"  minimum(1)
//
// @Success     200  {object}  handlers.ShoppingListResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse "List not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /shopping-list/lists/{id}/ [get]
func (h *Handlers) GetShoppingList(c *gin.Context) {
	uid, authed := actingUser(c)
	if !authed {
		return
	}
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	l, err := h.shopping.GetList(c.Request.Context(), uid, id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, toShoppingList(&l.ShoppingList, l.Items))
}
