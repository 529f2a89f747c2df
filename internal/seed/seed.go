// Package seed loads demo recipes from YAML and creates them through the
// regular services. Every create is deduplicated by its request key, so
// applying the same file twice leaves the store unchanged.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/services"
)

// File is the document layout:
//
//	recipes:
//	  - author: 1
//	    title: Bread
//	    ingredients:
//	      - {name: Flour, quantity: 200, unit: g}
//	    comments:
//	      - {user: 2, text: Lovely crust}
type File struct {
	Recipes []Recipe `yaml:"recipes"`
}

// Recipe is one recipe to create as Author, with its lines and comments.
// Omitted IsPublic defaults to public.
type Recipe struct {
	Author      int64        `yaml:"author"`
	Title       string       `yaml:"title"`
	Description *string      `yaml:"description"`
	IsPublic    *bool        `yaml:"is_public"`
	Ingredients []Ingredient `yaml:"ingredients"`
	Comments    []Comment    `yaml:"comments"`
}

// Ingredient is one ingredient line; Quantity is required.
type Ingredient struct {
	Name     string   `yaml:"name"`
	Quantity *float64 `yaml:"quantity"`
	Unit     string   `yaml:"unit"`
}

// Comment is posted by User on the enclosing recipe.
type Comment struct {
	User int64  `yaml:"user"`
	Text string `yaml:"text"`
}

// Recipes, Ingredients and Comments are the service operations a seed needs.
type (
	Recipes interface {
		Create(ctx context.Context, userID int64, req services.CreateRecipeRequest) (*domain.Recipe, services.Outcome, error)
	}
	Ingredients interface {
		Add(ctx context.Context, userID int64, recipeID uint64, req services.AddIngredientRequest) (*domain.RecipeIngredient, services.Outcome, error)
	}
	Comments interface {
		Create(ctx context.Context, userID *int64, recipeID uint64, req services.CreateCommentRequest) (*domain.Comment, services.Outcome, error)
	}
)

// Counts tallies rows by outcome.
type Counts struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

func (c *Counts) add(o services.Outcome) {
	if o.Created() {
		c.Created++
	} else {
		c.Existing++
	}
}

// Report summarizes one Apply.
type Report struct {
	Recipes     Counts `json:"recipes"`
	Ingredients Counts `json:"ingredients"`
	Comments    Counts `json:"comments"`
}

// Load decodes a seed document. Unknown fields are rejected so typos do not
// silently drop data.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	for i, rc := range f.Recipes {
		if rc.Author <= 0 {
			return nil, fmt.Errorf("seed: recipes[%d]: author must be a positive user id", i)
		}
		for j, c := range rc.Comments {
			if c.User <= 0 {
				return nil, fmt.Errorf("seed: recipes[%d].comments[%d]: user must be a positive user id", i, j)
			}
		}
	}
	return &f, nil
}

// LoadFile opens and decodes path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Seeder applies seed files.
type Seeder struct {
	Recipes     Recipes
	Ingredients Ingredients
	Comments    Comments
}

// Apply creates every recipe with its ingredients and comments, in file
// order. It stops at the first failure; rows created before it stay.
func (s *Seeder) Apply(ctx context.Context, f *File) (Report, error) {
	var rep Report
	lg := zerolog.Ctx(ctx)

	for i, rc := range f.Recipes {
		recipe, outcome, err := s.Recipes.Create(ctx, rc.Author, services.CreateRecipeRequest{
			Title:       rc.Title,
			Description: rc.Description,
			IsPublic:    rc.IsPublic,
		})
		if err != nil {
			return rep, fmt.Errorf("seed: recipes[%d] %q: %w", i, rc.Title, err)
		}
		rep.Recipes.add(outcome)
		lg.Debug().Uint64("recipe_id", recipe.ID).Stringer("outcome", outcome).Msg("seed recipe")

		for j, ing := range rc.Ingredients {
			_, outcome, err := s.Ingredients.Add(ctx, rc.Author, recipe.ID, services.AddIngredientRequest{
				Name:     ing.Name,
				Quantity: ing.Quantity,
				Unit:     ing.Unit,
			})
			if err != nil {
				return rep, fmt.Errorf("seed: recipes[%d].ingredients[%d]: %w", i, j, err)
			}
			rep.Ingredients.add(outcome)
		}

		for j, c := range rc.Comments {
			user := c.User
			_, outcome, err := s.Comments.Create(ctx, &user, recipe.ID, services.CreateCommentRequest{Text: c.Text})
			if err != nil {
				return rep, fmt.Errorf("seed: recipes[%d].comments[%d]: %w", i, j, err)
			}
			rep.Comments.add(outcome)
		}
	}

	lg.Info().
		Int("recipes_created", rep.Recipes.Created).
		Int("ingredients_created", rep.Ingredients.Created).
		Int("comments_created", rep.Comments.Created).
		Msg("seed applied")
	return rep, nil
}

//go:embed demo.yaml
var demo []byte

// Demo returns the bundled demo document.
func Demo() (*File, error) {
	return Load(bytes.NewReader(demo))
}
