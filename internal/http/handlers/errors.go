package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

// Stable error codes of the ErrorResponse envelope. Clients branch on these,
// not on messages.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotAuthor        = "not_author"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "service_unavailable"
)

// errorRule maps service sentinels to a status and code. The first match
// wins, so ErrNotRecipeAuthor must precede the generic ErrForbidden.
type errorRule struct {
	target error
	status int
	code   string
}

var errorRules = []errorRule{
	{services.ErrRecipeNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrIngredientNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrRecipeIngredientNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrShoppingListNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrItemNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrNotRecipeAuthor, http.StatusForbidden, ErrCodeNotAuthor},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized},
}

// classify returns the status and code for err; ok is false for errors that
// must be reported as internal.
func classify(err error) (status int, code string, ok bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrCodeBadRequest, true
	}
	for _, r := range errorRules {
		if errors.Is(err, r.target) {
			return r.status, r.code, true
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, false
}
