// Package idempotency derives deterministic request keys for deduplicated
// mutations.
//
// A key is a UUIDv5 computed over the canonical encoding of the envelope
//
//	{"body": <validated fields>, "extra": <route params>, "path": <route>, "user_id": <id or null>}
//
// under a fixed namespace. Identical semantic requests from the same user on
// the same route always map to the same key; any difference in body, route,
// user or extra parameters maps to a different one.
package idempotency

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/tbourn/go-recipes-backend/internal/canonical"
)

// Namespace is the UUIDv5 namespace for all request keys. Changing it would
// orphan every key already stored.
var Namespace = uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

// apiPrefix is the logical route prefix hashed into keys. It does not follow
// the mount point of the router so that keys stay stable across deployments.
const apiPrefix = "/api/v1"

// Input is everything that identifies a mutation request.
type Input struct {
	Path   string
	UserID *int64
	Body   map[string]any
	Extra  map[string]any
}

// Envelope returns the value that is canonicalized and hashed.
func (in Input) Envelope() map[string]any {
	body := in.Body
	if body == nil {
		body = map[string]any{}
	}
	extra := in.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	var uid any
	if in.UserID != nil {
		uid = *in.UserID
	}
	return map[string]any{
		"body":    body,
		"extra":   extra,
		"path":    in.Path,
		"user_id": uid,
	}
}

// Derive computes the key for in. It is pure: no clock, no randomness.
//
// Body and Extra must only contain values accepted by canonical.Marshal; the
// request types in package services guarantee that.
func Derive(in Input) uuid.UUID {
	return uuid.NewSHA1(Namespace, canonical.MustMarshal(in.Envelope()))
}

// RecipesPath is the key path of recipe creation.
func RecipesPath() string { return apiPrefix + "/recipes/" }

// IngredientsPath is the key path of ingredient addition on a recipe.
func IngredientsPath(recipeID uint64) string {
	return apiPrefix + "/recipes/" + strconv.FormatUint(recipeID, 10) + "/ingredients/"
}

// CommentsPath is the key path of comment creation on a recipe.
func CommentsPath(recipeID uint64) string {
	return apiPrefix + "/recipes/" + strconv.FormatUint(recipeID, 10) + "/comments/"
}
