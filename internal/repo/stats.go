// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// RecipesStats returns the number of recipes matching f and the greatest
// UpdatedAt among them (nil when there are none).
func RecipesStats(ctx context.Context, db *gorm.DB, f RecipeFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	if count, err = CountRecipes(ctx, db, f); err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite.
	var row struct {
		UpdatedAt time.Time
	}
	q := f.apply(db.WithContext(ctx).Model(&domain.Recipe{}))
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// CommentsStats returns the number of comments on a recipe and the newest
// CreatedAt among them (nil when there are none).
func CommentsStats(ctx context.Context, db *gorm.DB, recipeID uint64) (count int64, maxCreatedAt *time.Time, err error) {
	if count, err = CountComments(ctx, db, recipeID); err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		CreatedAt time.Time
	}
	err = db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("recipe_id = ?", recipeID).
		Select("created_at").
		Order("created_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
