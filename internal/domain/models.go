// Package domain defines the persistence models for recipes, ingredients,
// comments and shopping lists. These types are mapped with GORM and form the
// core data layer of the recipes application.
//
// Rows are hard-deleted: foreign keys carry ON DELETE actions so that removing
// a recipe or an ingredient cascades through the dependent tables.
package domain

import (
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Recipe is a user-authored recipe. Private recipes are visible to their
// author only.
//
// Fields:
//   - ID: auto-increment primary key.
//   - AuthorID: identity of the author (external user id); indexed.
//   - Title / Description: free text; description may be empty.
//   - IsPublic: visibility flag.
//   - TitleSearch: case-folded title for search, maintained by BeforeSave.
//   - RequestUUID: idempotency key of the request that created the row, if any.
type Recipe struct {
	ID          uint64    `json:"id"          gorm:"primaryKey;autoIncrement"`
	AuthorID    int64     `json:"author"      gorm:"not null;index:idx_recipes_author"`
	Title       string    `json:"title"       gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	IsPublic    bool      `json:"is_public"   gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	TitleSearch string    `json:"-"           gorm:"type:text;not null;default:''"`
	RequestUUID *string   `json:"-"           gorm:"type:char(36);uniqueIndex:ux_recipes_request_uuid"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string { return "recipes" }

// BeforeSave keeps TitleSearch in step with Title.
func (r *Recipe) BeforeSave(*gorm.DB) error {
	r.TitleSearch = FoldTitle(r.Title)
	return nil
}

// FoldTitle returns the search form of a title or search term. Full Unicode
// case folding applies, so "Борщ" matches "борщ" and "Straße" matches "STRASSE".
func FoldTitle(s string) string {
	return cases.Fold().String(s)
}

// VisibleTo reports whether userID may read the recipe. A nil userID is an
// anonymous caller.
func (r *Recipe) VisibleTo(userID *int64) bool {
	if r.IsPublic {
		return true
	}
	return userID != nil && *userID == r.AuthorID
}

// Ingredient is a globally shared ingredient catalogue entry. Names are unique
// and compared case-sensitively ("Flour" and "flour" are distinct).
type Ingredient struct {
	ID   uint64 `json:"id"   gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:ux_ingredients_name"`
}

// TableName returns the database table name for Ingredient.
func (Ingredient) TableName() string { return "ingredients" }

// RecipeIngredient is one ingredient line of a recipe. Deleting either the
// recipe or the ingredient removes the line.
type RecipeIngredient struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement"`
	RecipeID     uint64  `gorm:"not null;index:idx_recipe_ingredients_recipe"`
	IngredientID uint64  `gorm:"not null;index:idx_recipe_ingredients_ingredient"`
	Quantity     float64 `gorm:"not null;check:chk_recipe_ingredients_quantity,quantity >= 0"`
	Unit         string  `gorm:"type:varchar(50);not null"`
	RequestUUID  *string `gorm:"type:char(36);uniqueIndex:ux_recipe_ingredients_request_uuid"`

	Recipe     *Recipe     `gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for RecipeIngredient.
func (RecipeIngredient) TableName() string { return "recipe_ingredients" }

// Comment is a user's comment on a recipe.
type Comment struct {
	ID          uint64    `json:"id"         gorm:"primaryKey;autoIncrement"`
	RecipeID    uint64    `json:"recipe_id"  gorm:"not null;index:idx_comments_recipe,priority:1"`
	UserID      int64     `json:"user_id"    gorm:"not null;index"`
	Text        string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index:idx_comments_recipe,priority:2"`
	RequestUUID *string   `json:"-"          gorm:"type:char(36);uniqueIndex:ux_comments_request_uuid"`

	Recipe *Recipe `json:"-" gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// ShoppingList is a named list owned by a user. (user, title) is unique so a
// list can be resolved by title without creating duplicates.
type ShoppingList struct {
	ID        uint64    `json:"id"         gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id"    gorm:"not null;uniqueIndex:ux_shopping_lists_user_title,priority:1"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;uniqueIndex:ux_shopping_lists_user_title,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ShoppingList.
func (ShoppingList) TableName() string { return "shopping_lists" }

// ShoppingListItem is one line of a shopping list. Its natural key is
// (list, ingredient, originating recipe); the recipe reference is cleared when
// the recipe is deleted so the item survives.
type ShoppingListItem struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement"`
	ShoppingListID uint64  `gorm:"not null;uniqueIndex:ux_item_list_ingredient_recipe,priority:1"`
	IngredientID   uint64  `gorm:"not null;index;uniqueIndex:ux_item_list_ingredient_recipe,priority:2"`
	RecipeID       *uint64 `gorm:"index;uniqueIndex:ux_item_list_ingredient_recipe,priority:3"`
	Quantity       float64 `gorm:"not null"`
	Unit           string  `gorm:"type:varchar(50);not null"`
	IsPurchased    bool    `gorm:"not null"`

	ShoppingList *ShoppingList `gorm:"foreignKey:ShoppingListID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Ingredient   *Ingredient   `gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipe       *Recipe       `gorm:"foreignKey:RecipeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for ShoppingListItem.
func (ShoppingListItem) TableName() string { return "shopping_list_items" }
