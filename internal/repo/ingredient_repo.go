// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ingredient
// catalogue and for recipe ingredient lines.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// GetIngredient fetches an ingredient by id.
func GetIngredient(ctx context.Context, db *gorm.DB, id uint64) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	if err := db.WithContext(ctx).First(&ing, id).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

// GetIngredientByName fetches an ingredient by exact (case-sensitive) name.
func GetIngredientByName(ctx context.Context, db *gorm.DB, name string) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	if err := db.WithContext(ctx).Where("name = ?", name).First(&ing).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

// CreateIngredient inserts a catalogue entry. A concurrent insert of the same
// name surfaces as a unique violation (see IsUniqueViolation).
func CreateIngredient(ctx context.Context, db *gorm.DB, name string) (*domain.Ingredient, error) {
	ing := &domain.Ingredient{Name: name}
	if err := db.WithContext(ctx).Create(ing).Error; err != nil {
		return nil, err
	}
	return ing, nil
}

// DeleteIngredient hard-deletes a catalogue entry; recipe lines and shopping
// list items referencing it cascade.
func DeleteIngredient(ctx context.Context, db *gorm.DB, id uint64) error {
	res := db.WithContext(ctx).Delete(&domain.Ingredient{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRecipeIngredient inserts a recipe line.
func CreateRecipeIngredient(ctx context.Context, db *gorm.DB, ri *domain.RecipeIngredient) error {
	return db.WithContext(ctx).Omit("Recipe", "Ingredient").Create(ri).Error
}

// GetRecipeIngredientByKey fetches the line created by the request with key k,
// with its ingredient loaded.
func GetRecipeIngredientByKey(ctx context.Context, db *gorm.DB, k uuid.UUID) (*domain.RecipeIngredient, error) {
	var ri domain.RecipeIngredient
	err := db.WithContext(ctx).
		Preload("Ingredient").
		Where(domain.KeyColumn+" = ?", k.String()).
		First(&ri).Error
	if err != nil {
		return nil, err
	}
	return &ri, nil
}

// GetRecipeIngredient fetches line id of recipeID with its ingredient loaded.
func GetRecipeIngredient(ctx context.Context, db *gorm.DB, recipeID, id uint64) (*domain.RecipeIngredient, error) {
	var ri domain.RecipeIngredient
	err := db.WithContext(ctx).
		Preload("Ingredient").
		Where("recipe_id = ? AND id = ?", recipeID, id).
		First(&ri).Error
	if err != nil {
		return nil, err
	}
	return &ri, nil
}

// ListRecipeIngredients returns all lines of a recipe in insertion order.
func ListRecipeIngredients(ctx context.Context, db *gorm.DB, recipeID uint64) ([]domain.RecipeIngredient, error) {
	var out []domain.RecipeIngredient
	err := db.WithContext(ctx).
		Preload("Ingredient").
		Where("recipe_id = ?", recipeID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// DeleteRecipeIngredient removes line id of recipeID.
func DeleteRecipeIngredient(ctx context.Context, db *gorm.DB, recipeID, id uint64) error {
	res := db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Delete(&domain.RecipeIngredient{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
