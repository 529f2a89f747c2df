// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for shopping lists
// and their items.
//
// Items are addressed by their natural key (list, ingredient, recipe). The
// quantity merge is a single atomic UPDATE so concurrent merges never lose an
// increment; on PostgreSQL the natural-key lookup additionally takes a row lock.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// ItemKey is the natural key of a shopping-list item.
type ItemKey struct {
	ShoppingListID uint64
	IngredientID   uint64
	RecipeID       *uint64
}

// ItemPatch carries the optional fields of an item update.
type ItemPatch struct {
	Quantity    *float64
	Unit        *string
	IsPurchased *bool
}

// GetShoppingList fetches list id owned by userID.
func GetShoppingList(ctx context.Context, db *gorm.DB, id uint64, userID int64) (*domain.ShoppingList, error) {
	var l domain.ShoppingList
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetShoppingListByTitle fetches the list of userID with the given title.
func GetShoppingListByTitle(ctx context.Context, db *gorm.DB, userID int64, title string) (*domain.ShoppingList, error) {
	var l domain.ShoppingList
	err := db.WithContext(ctx).
		Where("user_id = ? AND title = ?", userID, title).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateShoppingList inserts a list. A concurrent insert of the same
// (user, title) surfaces as a unique violation.
func CreateShoppingList(ctx context.Context, db *gorm.DB, userID int64, title string) (*domain.ShoppingList, error) {
	l := &domain.ShoppingList{UserID: userID, Title: title}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// ListShoppingLists returns all lists of userID, oldest first.
func ListShoppingLists(ctx context.Context, db *gorm.DB, userID int64) ([]domain.ShoppingList, error) {
	var out []domain.ShoppingList
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// FindItemForUpdate fetches the item with natural key k, locking the row where
// the dialect supports it.
func FindItemForUpdate(ctx context.Context, db *gorm.DB, k ItemKey) (*domain.ShoppingListItem, error) {
	q := db.WithContext(ctx).
		Where("shopping_list_id = ? AND ingredient_id = ?", k.ShoppingListID, k.IngredientID)
	if k.RecipeID == nil {
		q = q.Where("recipe_id IS NULL")
	} else {
		q = q.Where("recipe_id = ?", *k.RecipeID)
	}
	if isPostgres(db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var it domain.ShoppingListItem
	if err := q.First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateItem inserts an item.
func CreateItem(ctx context.Context, db *gorm.DB, it *domain.ShoppingListItem) error {
	return db.WithContext(ctx).Omit("ShoppingList", "Ingredient", "Recipe").Create(it).Error
}

// IncrementItem adds delta to the stored quantity and overwrites the unit in
// one statement.
func IncrementItem(ctx context.Context, db *gorm.DB, id uint64, delta float64, unit string) error {
	res := db.WithContext(ctx).
		Model(&domain.ShoppingListItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity + ?", delta),
			"unit":     unit,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetItem fetches item id on one of userID's lists, with ingredient and recipe
// loaded.
func GetItem(ctx context.Context, db *gorm.DB, id uint64, userID int64) (*domain.ShoppingListItem, error) {
	var it domain.ShoppingListItem
	err := ownedItems(db.WithContext(ctx), userID).
		Preload("Ingredient").
		Preload("Recipe").
		Where("shopping_list_items.id = ?", id).
		First(&it).Error
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// GetItemsByIDs loads items with ingredient and recipe, preserving ids order.
func GetItemsByIDs(ctx context.Context, db *gorm.DB, ids []uint64) ([]domain.ShoppingListItem, error) {
	if len(ids) == 0 {
		return []domain.ShoppingListItem{}, nil
	}
	var rows []domain.ShoppingListItem
	err := db.WithContext(ctx).
		Preload("Ingredient").
		Preload("Recipe").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]domain.ShoppingListItem, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]domain.ShoppingListItem, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// CountItems returns the number of items across userID's lists.
func CountItems(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	var total int64
	err := ownedItems(db.WithContext(ctx).Model(&domain.ShoppingListItem{}), userID).
		Count(&total).Error
	return total, err
}

// ListItemsPage returns a page of items across userID's lists.
func ListItemsPage(ctx context.Context, db *gorm.DB, userID int64, offset, limit int) ([]domain.ShoppingListItem, error) {
	var out []domain.ShoppingListItem
	err := ownedItems(db.WithContext(ctx), userID).
		Preload("Ingredient").
		Preload("Recipe").
		Order("shopping_list_items.id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListItemsByLists returns the items of the given lists.
func ListItemsByLists(ctx context.Context, db *gorm.DB, listIDs []uint64) ([]domain.ShoppingListItem, error) {
	if len(listIDs) == 0 {
		return []domain.ShoppingListItem{}, nil
	}
	var out []domain.ShoppingListItem
	err := db.WithContext(ctx).
		Preload("Ingredient").
		Preload("Recipe").
		Where("shopping_list_id IN ?", listIDs).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// UpdateItem applies p to item id. Nil fields are left untouched.
func UpdateItem(ctx context.Context, db *gorm.DB, id uint64, p ItemPatch) error {
	fields := map[string]any{}
	if p.Quantity != nil {
		fields["quantity"] = *p.Quantity
	}
	if p.Unit != nil {
		fields["unit"] = *p.Unit
	}
	if p.IsPurchased != nil {
		fields["is_purchased"] = *p.IsPurchased
	}
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.ShoppingListItem{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes item id.
func DeleteItem(ctx context.Context, db *gorm.DB, id uint64) error {
	res := db.WithContext(ctx).Delete(&domain.ShoppingListItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func ownedItems(q *gorm.DB, userID int64) *gorm.DB {
	return q.
		Joins("JOIN shopping_lists ON shopping_lists.id = shopping_list_items.shopping_list_id").
		Where("shopping_lists.user_id = ?", userID)
}
