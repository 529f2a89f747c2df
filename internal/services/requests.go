package services

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Field limits mirror the column sizes in package domain.
const (
	maxTitleRunes          = 255
	maxIngredientNameRunes = 100
	maxUnitRunes           = 50
	maxCommentRunes        = 5000
)

var (
	maxMultiply     = decimal.NewFromInt(1_000_000)
	defaultMultiply = decimal.NewFromInt(1)
)

// CreateRecipeRequest is the payload of recipe creation.
type CreateRecipeRequest struct {
	Title       string  `json:"title" example:"Soup"`
	Description *string `json:"description,omitempty" example:"Tomato soup"`
	IsPublic    *bool   `json:"is_public,omitempty" example:"true"`
}

// Validate checks the request without touching the store.
func (r CreateRecipeRequest) Validate() error {
	t := strings.TrimSpace(r.Title)
	if t == "" {
		return invalid("title", "must not be blank")
	}
	if utf8.RuneCountInString(t) > maxTitleRunes {
		return invalid("title", "must be at most 255 characters")
	}
	return nil
}

func (r CreateRecipeRequest) public() bool {
	return r.IsPublic == nil || *r.IsPublic
}

// keyBody is hashed into the idempotency key. Title and description are used
// as sent; a missing description hashes as null.
func (r CreateRecipeRequest) keyBody() map[string]any {
	var desc any
	if r.Description != nil {
		desc = *r.Description
	}
	return map[string]any{
		"title":       r.Title,
		"description": desc,
		"is_public":   r.public(),
	}
}

// UpdateRecipeRequest replaces the mutable fields of a recipe.
type UpdateRecipeRequest struct {
	Title       string  `json:"title" example:"Soup"`
	Description *string `json:"description,omitempty" example:"Tomato soup"`
	IsPublic    *bool   `json:"is_public,omitempty" example:"false"`
}

// Validate checks the request without touching the store.
func (r UpdateRecipeRequest) Validate() error {
	return CreateRecipeRequest(r).Validate()
}

// AddIngredientRequest is the payload of adding an ingredient to a recipe.
type AddIngredientRequest struct {
	Name     string   `json:"name" example:"Flour"`
	Quantity *float64 `json:"quantity" example:"200"`
	Unit     string   `json:"unit" example:"g"`
}

// Validate checks the request without touching the store.
func (r AddIngredientRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	unit := strings.TrimSpace(r.Unit)
	switch {
	case name == "":
		return invalid("name", "must not be blank")
	case utf8.RuneCountInString(name) > maxIngredientNameRunes:
		return invalid("name", "must be at most 100 characters")
	case r.Quantity == nil:
		return invalid("quantity", "is required")
	case math.IsNaN(*r.Quantity) || math.IsInf(*r.Quantity, 0) || *r.Quantity < 0:
		return invalid("quantity", "must be a non-negative number")
	case unit == "":
		return invalid("unit", "must not be blank")
	case utf8.RuneCountInString(unit) > maxUnitRunes:
		return invalid("unit", "must be at most 50 characters")
	}
	return nil
}

func (r AddIngredientRequest) keyBody() map[string]any {
	return map[string]any{
		"name":     strings.TrimSpace(r.Name),
		"quantity": *r.Quantity,
		"unit":     strings.TrimSpace(r.Unit),
	}
}

// CreateCommentRequest is the payload of commenting on a recipe.
type CreateCommentRequest struct {
	Text string `json:"text" example:"Delicious!"`
}

// Validate checks the request without touching the store.
func (r CreateCommentRequest) Validate() error {
	t := strings.TrimSpace(r.Text)
	if t == "" {
		return invalid("text", "must not be blank")
	}
	if utf8.RuneCountInString(t) > maxCommentRunes {
		return invalid("text", "must be at most 5000 characters")
	}
	return nil
}

func (r CreateCommentRequest) keyBody() map[string]any {
	return map[string]any{"text": strings.TrimSpace(r.Text)}
}

// AddRecipeRequest copies a recipe's ingredients into a shopping list.
//
// The list is ShoppingListID when set; otherwise the caller's list titled
// Title (falling back to the recipe title) is resolved or created.
// Multiply scales every quantity; it defaults to 1, must be positive, below
// one million and have at most two decimal places.
type AddRecipeRequest struct {
	RecipeID       uint64           `json:"recipe_id" example:"1"`
	ShoppingListID *uint64          `json:"shopping_list_id,omitempty" example:"3"`
	Title          *string          `json:"title,omitempty" example:"Weekend"`
	Multiply       *decimal.Decimal `json:"multiply,omitempty" swaggertype:"string" example:"1.5"`
}

// Validate checks the request without touching the store.
func (r AddRecipeRequest) Validate() error {
	if r.RecipeID == 0 {
		return invalid("recipe_id", "is required")
	}
	if r.Title != nil && utf8.RuneCountInString(strings.TrimSpace(*r.Title)) > maxTitleRunes {
		return invalid("title", "must be at most 255 characters")
	}
	m := r.multiplier()
	switch {
	case !m.IsPositive():
		return invalid("multiply", "must be greater than 0")
	case !m.Equal(m.Round(2)):
		return invalid("multiply", "must have at most 2 decimal places")
	case !m.LessThan(maxMultiply):
		return invalid("multiply", "must be less than 1000000")
	}
	return nil
}

func (r AddRecipeRequest) multiplier() decimal.Decimal {
	if r.Multiply == nil {
		return defaultMultiply
	}
	return *r.Multiply
}

// listTitle is the trimmed title override, or fallback when blank.
func (r AddRecipeRequest) listTitle(fallback string) string {
	if r.Title != nil {
		if t := strings.TrimSpace(*r.Title); t != "" {
			return t
		}
	}
	return fallback
}

// CreateItemRequest adds a single item to a shopping list. The list is
// ShoppingListID when set, otherwise the caller's list named after RecipeID's
// title.
type CreateItemRequest struct {
	IngredientID   uint64   `json:"ingredient_id" example:"1"`
	Quantity       *float64 `json:"quantity" example:"2"`
	Unit           string   `json:"unit" example:"kg"`
	ShoppingListID *uint64  `json:"shopping_list_id,omitempty" example:"3"`
	RecipeID       *uint64  `json:"recipe_id,omitempty" example:"1"`
	IsPurchased    bool     `json:"is_purchased,omitempty" example:"false"`
}

// Validate checks the request without touching the store.
func (r CreateItemRequest) Validate() error {
	unit := strings.TrimSpace(r.Unit)
	switch {
	case r.IngredientID == 0:
		return invalid("ingredient_id", "is required")
	case r.Quantity == nil:
		return invalid("quantity", "is required")
	case math.IsNaN(*r.Quantity) || math.IsInf(*r.Quantity, 0) || *r.Quantity < 0:
		return invalid("quantity", "must be a non-negative number")
	case unit == "":
		return invalid("unit", "must not be blank")
	case utf8.RuneCountInString(unit) > maxUnitRunes:
		return invalid("unit", "must be at most 50 characters")
	case r.ShoppingListID == nil && (r.RecipeID == nil || *r.RecipeID == 0):
		return invalid("shopping_list_id", "shopping_list_id or recipe_id is required")
	}
	return nil
}

// UpdateItemRequest is a partial update of a shopping-list item.
type UpdateItemRequest struct {
	Quantity    *float64 `json:"quantity,omitempty" example:"3"`
	Unit        *string  `json:"unit,omitempty" example:"kg"`
	IsPurchased *bool    `json:"is_purchased,omitempty" example:"true"`
}

// Validate checks the request without touching the store.
func (r UpdateItemRequest) Validate() error {
	if r.Quantity == nil && r.Unit == nil && r.IsPurchased == nil {
		return invalid("body", "at least one of quantity, unit, is_purchased is required")
	}
	if r.Quantity != nil && (math.IsNaN(*r.Quantity) || math.IsInf(*r.Quantity, 0) || *r.Quantity < 0) {
		return invalid("quantity", "must be a non-negative number")
	}
	if r.Unit != nil {
		u := strings.TrimSpace(*r.Unit)
		if u == "" {
			return invalid("unit", "must not be blank")
		}
		if utf8.RuneCountInString(u) > maxUnitRunes {
			return invalid("unit", "must be at most 50 characters")
		}
	}
	return nil
}
