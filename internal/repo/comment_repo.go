// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for comments.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// CreateComment inserts a comment.
func CreateComment(ctx context.Context, db *gorm.DB, c *domain.Comment) error {
	return db.WithContext(ctx).Omit("Recipe").Create(c).Error
}

// GetCommentByKey fetches the comment created by the request with key k.
func GetCommentByKey(ctx context.Context, db *gorm.DB, k uuid.UUID) (*domain.Comment, error) {
	var c domain.Comment
	err := db.WithContext(ctx).
		Where(domain.KeyColumn+" = ?", k.String()).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountComments returns the number of comments on a recipe.
func CountComments(ctx context.Context, db *gorm.DB, recipeID uint64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("recipe_id = ?", recipeID).
		Count(&total).Error
	return total, err
}

// ListCommentsPage returns a page of comments on a recipe, newest first.
func ListCommentsPage(ctx context.Context, db *gorm.DB, recipeID uint64, offset, limit int) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
