package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

// NewKeyCommand creates the key command, which prints the request key the
// server derives for a create payload.
func NewKeyCommand(_ *RootOptions) *cobra.Command {
	var (
		user     int64
		recipeID uint64
	)
	cmd := &cobra.Command{
		Use:   "key {recipe|ingredient|comment} <json-body>",
		Short: "Print the idempotency key of a create request",
		Example: `  recipes key recipe --user 1 '{"title":"Soup","description":"x","is_public":true}'
  recipes key ingredient --user 1 --recipe 4 '{"name":"Flour","quantity":200,"unit":"g"}'`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"recipe", "ingredient", "comment"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if user <= 0 {
				return errors.New("--user must be a positive user id")
			}
			k, err := deriveKey(args[0], user, recipeID, []byte(args[1]))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), k)
			return err
		},
	}
	cmd.Flags().Int64Var(&user, "user", 0, "acting user id")
	cmd.Flags().Uint64Var(&recipeID, "recipe", 0, "recipe id (ingredient and comment keys)")
	return cmd
}

func deriveKey(kind string, user int64, recipeID uint64, body []byte) (uuid.UUID, error) {
	if kind != "recipe" && recipeID == 0 {
		return uuid.Nil, errors.New("--recipe is required for " + kind + " keys")
	}
	switch kind {
	case "recipe":
		var req services.CreateRecipeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return uuid.Nil, fmt.Errorf("body: %w", err)
		}
		return (&services.RecipeService{}).KeyFor(user, req)
	case "ingredient":
		var req services.AddIngredientRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return uuid.Nil, fmt.Errorf("body: %w", err)
		}
		return (&services.IngredientService{}).KeyFor(user, recipeID, req)
	case "comment":
		var req services.CreateCommentRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return uuid.Nil, fmt.Errorf("body: %w", err)
		}
		return (&services.CommentService{}).KeyFor(user, recipeID, req)
	default:
		return uuid.Nil, fmt.Errorf("unknown kind %q: want recipe, ingredient or comment", kind)
	}
}
