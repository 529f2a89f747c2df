package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

var ctx = context.Background()

func seedRecipe(t *testing.T, db *gorm.DB, author int64, title string, public bool) *domain.Recipe {
	t.Helper()
	r := &domain.Recipe{AuthorID: author, Title: title, IsPublic: public}
	if err := CreateRecipe(ctx, db, r); err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	return r
}

func seedLine(t *testing.T, db *gorm.DB, recipeID uint64, name string, qty float64, unit string) (*domain.Ingredient, *domain.RecipeIngredient) {
	t.Helper()
	ing, err := GetIngredientByName(ctx, db, name)
	if errors.Is(err, ErrNotFound) {
		ing, err = CreateIngredient(ctx, db, name)
	}
	if err != nil {
		t.Fatalf("ingredient %q: %v", name, err)
	}
	ri := &domain.RecipeIngredient{RecipeID: recipeID, IngredientID: ing.ID, Quantity: qty, Unit: unit}
	if err := CreateRecipeIngredient(ctx, db, ri); err != nil {
		t.Fatalf("CreateRecipeIngredient: %v", err)
	}
	return ing, ri
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestRecipe_LookupByKey(t *testing.T) {
	db := newTestDB(t)
	k := uuid.MustParse("4215bced-f841-5e8a-b4e2-a59323d7c3f2")

	if _, err := GetRecipeByKey(ctx, db, k); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	r := &domain.Recipe{AuthorID: 1, Title: "Soup", IsPublic: true, RequestUUID: domain.StoredKey(k)}
	if err := CreateRecipe(ctx, db, r); err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	got, err := GetRecipeByKey(ctx, db, k)
	if err != nil || got.ID != r.ID {
		t.Fatalf("GetRecipeByKey = %+v, %v", got, err)
	}

	dup := &domain.Recipe{AuthorID: 1, Title: "Other", RequestUUID: domain.StoredKey(k)}
	if err := CreateRecipe(ctx, db, dup); !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestRecipe_FilterVisibilityAndSearch(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, 1, "Tomato Soup", true)
	seedRecipe(t, db, 1, "Secret Soup", false)
	seedRecipe(t, db, 2, "Pie", true)
	seedRecipe(t, db, 2, "100% Pie", false)

	me := int64(1)
	pub := true
	author := int64(2)

	tests := []struct {
		name string
		f    RecipeFilter
		want int64
	}{
		{"anonymous sees public", RecipeFilter{}, 2},
		{"user sees public and own", RecipeFilter{Viewer: &me}, 3},
		{"search case folded", RecipeFilter{Viewer: &me, Search: "soup"}, 2},
		{"only public", RecipeFilter{Viewer: &me, IsPublic: &pub}, 2},
		{"by author", RecipeFilter{Viewer: &me, AuthorID: &author}, 1},
		{"wildcards are literal", RecipeFilter{Viewer: &author, Search: "100%"}, 1},
		{"underscore literal", RecipeFilter{Viewer: &author, Search: "_"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := CountRecipes(ctx, db, tt.f)
			if err != nil {
				t.Fatalf("CountRecipes: %v", err)
			}
			if n != tt.want {
				t.Fatalf("count = %d, want %d", n, tt.want)
			}
			page, err := ListRecipesPage(ctx, db, tt.f, 0, 10)
			if err != nil || int64(len(page)) != tt.want {
				t.Fatalf("ListRecipesPage len=%d err=%v", len(page), err)
			}
		})
	}
}

func TestRecipe_SearchFoldsUnicode(t *testing.T) {
	db := newTestDB(t)
	seedRecipe(t, db, 1, "Борщ", true)
	seedRecipe(t, db, 1, "Straße Pie", true)
	seedRecipe(t, db, 1, "Tomato Soup", true)

	for _, tt := range []struct {
		term string
		want int64
	}{
		{"Борщ", 1},
		{"борщ", 1},
		{"БОРЩ", 1},
		{"Straße", 1},
		{"STRASSE", 1},
		{"stra", 1},
		{"soup", 1},
		{"щи", 0},
	} {
		t.Run(tt.term, func(t *testing.T) {
			n, err := CountRecipes(ctx, db, RecipeFilter{Search: domain.FoldTitle(tt.term)})
			if err != nil || n != tt.want {
				t.Fatalf("count = %d (err %v), want %d", n, err, tt.want)
			}
		})
	}
}

func TestRecipe_UpdateRefreshesSearch(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "Soup", true)
	r.Title = "Борщ"
	if err := UpdateRecipe(ctx, db, r); err != nil {
		t.Fatalf("UpdateRecipe: %v", err)
	}
	if n, _ := CountRecipes(ctx, db, RecipeFilter{Search: "soup"}); n != 0 {
		t.Fatalf("old title still matches: %d", n)
	}
	if n, _ := CountRecipes(ctx, db, RecipeFilter{Search: domain.FoldTitle("БОРЩ")}); n != 1 {
		t.Fatalf("new title not found: %d", n)
	}
}

func TestAutoMigrate_BackfillsTitleSearch(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "Борщ", true)
	if err := db.Model(&domain.Recipe{}).Where("id = ?", r.ID).UpdateColumn("title_search", "").Error; err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := CountRecipes(ctx, db, RecipeFilter{Search: "борщ"}); n != 0 {
		t.Fatalf("expected no match before backfill, got %d", n)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if n, _ := CountRecipes(ctx, db, RecipeFilter{Search: "борщ"}); n != 1 {
		t.Fatalf("expected backfilled match, got %d", n)
	}
}

func TestRecipe_UpdateAndDeleteMissing(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "A", true)
	r.Title, r.IsPublic, r.Description = "B", false, "d"
	if err := UpdateRecipe(ctx, db, r); err != nil {
		t.Fatalf("UpdateRecipe: %v", err)
	}
	got, _ := GetRecipe(ctx, db, r.ID)
	if got.Title != "B" || got.IsPublic || got.Description != "d" {
		t.Fatalf("update not persisted: %+v", got)
	}
	if err := DeleteRecipe(ctx, db, 999); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCascade_RecipeDelete(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "Pancakes", true)
	ing, _ := seedLine(t, db, r.ID, "Flour", 200, "g")
	if err := CreateComment(ctx, db, &domain.Comment{RecipeID: r.ID, UserID: 2, Text: "yum"}); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	list, err := CreateShoppingList(ctx, db, 1, "Pancakes")
	if err != nil {
		t.Fatalf("CreateShoppingList: %v", err)
	}
	rid := r.ID
	item := &domain.ShoppingListItem{ShoppingListID: list.ID, IngredientID: ing.ID, RecipeID: &rid, Quantity: 200, Unit: "g"}
	if err := CreateItem(ctx, db, item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := DeleteRecipe(ctx, db, r.ID); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if n := count(t, db, &domain.RecipeIngredient{}); n != 0 {
		t.Fatalf("recipe ingredients left: %d", n)
	}
	if n := count(t, db, &domain.Comment{}); n != 0 {
		t.Fatalf("comments left: %d", n)
	}
	got, err := GetItem(ctx, db, item.ID, 1)
	if err != nil {
		t.Fatalf("item must survive recipe deletion: %v", err)
	}
	if got.RecipeID != nil || got.Recipe != nil {
		t.Fatalf("recipe reference not cleared: %+v", got)
	}
}

func TestCascade_IngredientDelete(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "Bread", true)
	ing, _ := seedLine(t, db, r.ID, "Yeast", 7, "g")
	list, _ := CreateShoppingList(ctx, db, 1, "Weekly")
	if err := CreateItem(ctx, db, &domain.ShoppingListItem{ShoppingListID: list.ID, IngredientID: ing.ID, Quantity: 1, Unit: "pack"}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := DeleteIngredient(ctx, db, ing.ID); err != nil {
		t.Fatalf("DeleteIngredient: %v", err)
	}
	if n := count(t, db, &domain.RecipeIngredient{}); n != 0 {
		t.Fatalf("recipe ingredients left: %d", n)
	}
	if n := count(t, db, &domain.ShoppingListItem{}); n != 0 {
		t.Fatalf("items left: %d", n)
	}
	if _, err := GetRecipe(ctx, db, r.ID); err != nil {
		t.Fatalf("recipe must survive: %v", err)
	}
}

func TestRecipeIngredient_ListGetDelete(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "Soup", true)
	other := seedRecipe(t, db, 1, "Other", true)
	_, l1 := seedLine(t, db, r.ID, "Water", 1, "l")
	seedLine(t, db, r.ID, "Salt", 5, "g")

	lines, err := ListRecipeIngredients(ctx, db, r.ID)
	if err != nil || len(lines) != 2 {
		t.Fatalf("ListRecipeIngredients len=%d err=%v", len(lines), err)
	}
	if lines[0].Ingredient == nil || lines[0].Ingredient.Name != "Water" {
		t.Fatalf("ingredient not preloaded in order: %+v", lines[0])
	}
	if _, err := GetRecipeIngredient(ctx, db, other.ID, l1.ID); !IsNotFound(err) {
		t.Fatalf("line must be scoped to its recipe, got %v", err)
	}
	if err := DeleteRecipeIngredient(ctx, db, other.ID, l1.ID); !IsNotFound(err) {
		t.Fatalf("delete must be scoped to its recipe, got %v", err)
	}
	if err := DeleteRecipeIngredient(ctx, db, r.ID, l1.ID); err != nil {
		t.Fatalf("DeleteRecipeIngredient: %v", err)
	}
}

func TestItems_IncrementAndNaturalKey(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "Pancakes", true)
	ing, _ := seedLine(t, db, r.ID, "Flour", 200, "g")
	list, _ := CreateShoppingList(ctx, db, 1, "Pancakes")
	rid := r.ID

	k := ItemKey{ShoppingListID: list.ID, IngredientID: ing.ID, RecipeID: &rid}
	if _, err := FindItemForUpdate(ctx, db, k); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	it := &domain.ShoppingListItem{ShoppingListID: list.ID, IngredientID: ing.ID, RecipeID: &rid, Quantity: 200, Unit: "g"}
	if err := CreateItem(ctx, db, it); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	dup := &domain.ShoppingListItem{ShoppingListID: list.ID, IngredientID: ing.ID, RecipeID: &rid, Quantity: 1, Unit: "g"}
	if err := CreateItem(ctx, db, dup); !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation on natural key, got %v", err)
	}
	// Items without a recipe never collide with recipe-bound ones.
	loose := &domain.ShoppingListItem{ShoppingListID: list.ID, IngredientID: ing.ID, Quantity: 1, Unit: "kg"}
	if err := CreateItem(ctx, db, loose); err != nil {
		t.Fatalf("CreateItem without recipe: %v", err)
	}

	if err := IncrementItem(ctx, db, it.ID, 50, "gram"); err != nil {
		t.Fatalf("IncrementItem: %v", err)
	}
	got, err := FindItemForUpdate(ctx, db, k)
	if err != nil {
		t.Fatalf("FindItemForUpdate: %v", err)
	}
	if got.Quantity != 250 || got.Unit != "gram" {
		t.Fatalf("merge = %v %s, want 250 gram", got.Quantity, got.Unit)
	}
	nk, err := FindItemForUpdate(ctx, db, ItemKey{ShoppingListID: list.ID, IngredientID: ing.ID})
	if err != nil || nk.ID != loose.ID {
		t.Fatalf("NULL-recipe lookup = %+v, %v", nk, err)
	}
	if err := IncrementItem(ctx, db, 9999, 1, "g"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestItems_OwnershipPagingPatch(t *testing.T) {
	db := newTestDB(t)
	salt, _ := CreateIngredient(ctx, db, "Salt")
	mine, _ := CreateShoppingList(ctx, db, 1, "Mine")
	theirs, _ := CreateShoppingList(ctx, db, 2, "Theirs")
	a := &domain.ShoppingListItem{ShoppingListID: mine.ID, IngredientID: salt.ID, Quantity: 1, Unit: "g"}
	b := &domain.ShoppingListItem{ShoppingListID: theirs.ID, IngredientID: salt.ID, Quantity: 2, Unit: "g"}
	for _, it := range []*domain.ShoppingListItem{a, b} {
		if err := CreateItem(ctx, db, it); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	if n, err := CountItems(ctx, db, 1); err != nil || n != 1 {
		t.Fatalf("CountItems = %d, %v", n, err)
	}
	page, err := ListItemsPage(ctx, db, 1, 0, 10)
	if err != nil || len(page) != 1 || page[0].ID != a.ID || page[0].Ingredient == nil {
		t.Fatalf("ListItemsPage = %+v, %v", page, err)
	}
	if _, err := GetItem(ctx, db, b.ID, 1); !IsNotFound(err) {
		t.Fatalf("foreign item visible: %v", err)
	}
	if _, err := GetShoppingList(ctx, db, theirs.ID, 1); !IsNotFound(err) {
		t.Fatalf("foreign list visible: %v", err)
	}

	bought := true
	if err := UpdateItem(ctx, db, a.ID, ItemPatch{IsPurchased: &bought}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	got, _ := GetItem(ctx, db, a.ID, 1)
	if !got.IsPurchased || got.Quantity != 1 {
		t.Fatalf("patch = %+v", got)
	}

	items, err := GetItemsByIDs(ctx, db, []uint64{b.ID, a.ID})
	if err != nil || len(items) != 2 || items[0].ID != b.ID {
		t.Fatalf("GetItemsByIDs order = %+v, %v", items, err)
	}
	byList, err := ListItemsByLists(ctx, db, []uint64{mine.ID})
	if err != nil || len(byList) != 1 {
		t.Fatalf("ListItemsByLists = %+v, %v", byList, err)
	}

	if err := DeleteItem(ctx, db, a.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := DeleteItem(ctx, db, a.ID); !IsNotFound(err) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestComments_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	r := seedRecipe(t, db, 1, "Soup", true)
	for _, txt := range []string{"first", "second", "third"} {
		if err := CreateComment(ctx, db, &domain.Comment{RecipeID: r.ID, UserID: 1, Text: txt}); err != nil {
			t.Fatalf("CreateComment: %v", err)
		}
	}
	page, err := ListCommentsPage(ctx, db, r.ID, 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListCommentsPage len=%d err=%v", len(page), err)
	}
	if page[0].Text != "third" || page[1].Text != "second" {
		t.Fatalf("order = %q, %q", page[0].Text, page[1].Text)
	}
	if err := CreateComment(ctx, db, &domain.Comment{RecipeID: 999, UserID: 1, Text: "x"}); err == nil {
		t.Fatal("expected foreign key violation for missing recipe")
	}
}
