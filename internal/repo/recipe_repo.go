// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for recipes.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
// Missing rows yield ErrNotFound.
package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// RecipeFilter narrows recipe listings.
type RecipeFilter struct {
	// Viewer is the acting user; nil lists public recipes only, otherwise
	// public recipes plus the viewer's own.
	Viewer *int64
	// Search is a substring matched against case-folded titles; it must
	// already be folded with domain.FoldTitle.
	Search string
	// IsPublic filters on visibility when set.
	IsPublic *bool
	// AuthorID filters on author when set.
	AuthorID *int64
}

func (f RecipeFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Viewer == nil {
		q = q.Where("is_public = ?", true)
	} else {
		q = q.Where("(is_public = ? OR author_id = ?)", true, *f.Viewer)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("title_search LIKE ? ESCAPE '\\'", "%"+escapeLike(s)+"%")
	}
	if f.IsPublic != nil {
		q = q.Where("is_public = ?", *f.IsPublic)
	}
	if f.AuthorID != nil {
		q = q.Where("author_id = ?", *f.AuthorID)
	}
	return q
}

// CreateRecipe inserts r and fills its ID and timestamps.
func CreateRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe) error {
	return db.WithContext(ctx).Create(r).Error
}

// GetRecipe fetches a recipe by id.
func GetRecipe(ctx context.Context, db *gorm.DB, id uint64) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecipeByKey fetches the recipe created by the request with key k.
func GetRecipeByKey(ctx context.Context, db *gorm.DB, k uuid.UUID) (*domain.Recipe, error) {
	var r domain.Recipe
	err := db.WithContext(ctx).
		Where(domain.KeyColumn+" = ?", k.String()).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRecipes returns the number of recipes matching f.
func CountRecipes(ctx context.Context, db *gorm.DB, f RecipeFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Recipe{})).Count(&total).Error
	return total, err
}

// ListRecipesPage returns a page of recipes matching f, newest first.
func ListRecipesPage(ctx context.Context, db *gorm.DB, f RecipeFilter, offset, limit int) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := f.apply(db.WithContext(ctx).Model(&domain.Recipe{})).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateRecipe persists the mutable fields of r.
func UpdateRecipe(ctx context.Context, db *gorm.DB, r *domain.Recipe) error {
	res := db.WithContext(ctx).
		Model(r).
		Select("title", "title_search", "description", "is_public", "updated_at").
		Updates(r)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecipe hard-deletes a recipe; ingredient lines and comments cascade,
// shopping-list items lose their recipe reference.
func DeleteRecipe(ctx context.Context, db *gorm.DB, id uint64) error {
	res := db.WithContext(ctx).Delete(&domain.Recipe{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
