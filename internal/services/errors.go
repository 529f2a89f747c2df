// Package services defines the business logic for recipes, ingredients,
// comments and shopping lists. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Not-found errors.
var (
	// ErrRecipeNotFound indicates that the recipe does not exist or is not
	// visible to the caller.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrIngredientNotFound indicates an unknown ingredient id.
	ErrIngredientNotFound = errors.New("ingredient not found")

	// ErrRecipeIngredientNotFound indicates that the ingredient line does not
	// belong to the recipe.
	ErrRecipeIngredientNotFound = errors.New("recipe ingredient not found")

	// ErrShoppingListNotFound indicates that the list does not exist or is
	// owned by someone else.
	ErrShoppingListNotFound = errors.New("shopping list not found")

	// ErrItemNotFound indicates that the shopping-list item does not exist or
	// is on someone else's list.
	ErrItemNotFound = errors.New("shopping list item not found")
)

// Authorization errors.
var (
	// ErrUnauthenticated is returned when a mutation is attempted without an
	// identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrNotRecipeAuthor is returned when someone other than the author tries
	// to modify a recipe.
	ErrNotRecipeAuthor = errors.New("only the recipe author can do this")

	// ErrForbidden is returned when the caller may not access a private
	// resource that exists.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a malformed request field. It is returned before
// any key is derived or the store is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
