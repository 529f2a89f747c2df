// Package services – ShoppingService
//
// ShoppingService manages per-user shopping lists. Its central operation,
// AddRecipe, copies a recipe's ingredient lines into a list. Items are keyed by
// (list, ingredient, originating recipe); copying into an existing item adds
// the scaled quantity to it and replaces its unit with the recipe's. Copying
// the same recipe twice therefore doubles the quantities: the operation is
// additive, not idempotent.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/utils"
)

// ShoppingService provides shopping-list operations.
type ShoppingService struct {
	DB *gorm.DB
}

// NewShoppingService constructs a ShoppingService.
func NewShoppingService(db *gorm.DB) *ShoppingService {
	return &ShoppingService{DB: db}
}

// AddRecipeResult is the outcome of AddRecipe: the target list and the items
// touched, in the order they were first touched, with their final state.
type AddRecipeResult struct {
	List  *domain.ShoppingList
	Items []domain.ShoppingListItem
}

// ListWithItems is a shopping list together with its items.
type ListWithItems struct {
	domain.ShoppingList
	Items []domain.ShoppingListItem
}

// AddRecipe merges the ingredient lines of req.RecipeID, scaled by
// req.Multiply, into one of userID's lists. The whole merge is one
// transaction.
func (s *ShoppingService) AddRecipe(ctx context.Context, userID int64, req AddRecipeRequest) (*AddRecipeResult, error) {
	ctx, span := otel.Tracer("services/ShoppingService").Start(ctx, "AddRecipe",
		trace.WithAttributes(
			attribute.String("recipe.id", formatID(req.RecipeID)),
			attribute.Int64("user.id", userID),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	multiply := req.multiplier()

	var out AddRecipeResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := readableRecipe(ctx, tx, userID, req.RecipeID)
		if err != nil {
			return err
		}

		var list *domain.ShoppingList
		if req.ShoppingListID != nil {
			list, err = ownedList(ctx, tx, userID, *req.ShoppingListID)
		} else {
			list, err = getOrCreateList(ctx, tx, userID, req.listTitle(r.Title))
		}
		if err != nil {
			return err
		}

		lines, err := repo.ListRecipeIngredients(ctx, tx, r.ID)
		if err != nil {
			return fmt.Errorf("list recipe ingredients: %w", err)
		}

		ids := make([]uint64, 0, len(lines))
		seen := make(map[uint64]struct{}, len(lines))
		for _, line := range lines {
			scaled := decimal.NewFromFloat(line.Quantity).Mul(multiply).InexactFloat64()
			id, err := mergeItem(ctx, tx, repo.ItemKey{
				ShoppingListID: list.ID,
				IngredientID:   line.IngredientID,
				RecipeID:       &r.ID,
			}, scaled, line.Unit, false)
			if err != nil {
				return err
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}

		items, err := repo.GetItemsByIDs(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		out = AddRecipeResult{List: list, Items: items}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Uint64("shopping_list_id", out.List.ID).
		Int("items", len(out.Items)).
		Str("multiply", multiply.String()).
		Msg("recipe added to shopping list")
	return &out, nil
}

// CreateItem adds one item to a list of userID. The list is
// req.ShoppingListID, or the list named after req.RecipeID's title, created
// when missing. An item with the same (list, ingredient, recipe) is merged
// like AddRecipe does.
func (s *ShoppingService) CreateItem(ctx context.Context, userID int64, req CreateItemRequest) (*domain.ShoppingListItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *domain.ShoppingListItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetIngredient(ctx, tx, req.IngredientID); err != nil {
			if repo.IsNotFound(err) {
				return ErrIngredientNotFound
			}
			return fmt.Errorf("get ingredient: %w", err)
		}

		var recipe *domain.Recipe
		if req.RecipeID != nil {
			r, err := readableRecipe(ctx, tx, userID, *req.RecipeID)
			if err != nil {
				return err
			}
			recipe = r
		}

		var (
			list *domain.ShoppingList
			err  error
		)
		if req.ShoppingListID != nil {
			list, err = ownedList(ctx, tx, userID, *req.ShoppingListID)
		} else {
			list, err = getOrCreateList(ctx, tx, userID, recipe.Title)
		}
		if err != nil {
			return err
		}

		k := repo.ItemKey{ShoppingListID: list.ID, IngredientID: req.IngredientID}
		if recipe != nil {
			k.RecipeID = &recipe.ID
		}
		id, err := mergeItem(ctx, tx, k, *req.Quantity, strings.TrimSpace(req.Unit), req.IsPurchased)
		if err != nil {
			return err
		}
		out, err = repo.GetItem(ctx, tx, id, userID)
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		return nil
	})
	return out, err
}

// ListItems returns a page of items across userID's lists and the total count.
func (s *ShoppingService) ListItems(ctx context.Context, userID int64, page, pageSize int) ([]domain.ShoppingListItem, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	total, err := repo.CountItems(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ShoppingListItem{}, 0, nil
	}
	items, err := repo.ListItemsPage(ctx, s.DB, userID, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// UpdateItem applies a partial update to one of userID's items.
func (s *ShoppingService) UpdateItem(ctx context.Context, userID int64, id uint64, req UpdateItemRequest) (*domain.ShoppingListItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	patch := repo.ItemPatch{Quantity: req.Quantity, IsPurchased: req.IsPurchased}
	if req.Unit != nil {
		u := strings.TrimSpace(*req.Unit)
		patch.Unit = &u
	}

	var out *domain.ShoppingListItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedItem(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := repo.UpdateItem(ctx, tx, id, patch); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		it, err := repo.GetItem(ctx, tx, id, userID)
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		out = it
		return nil
	})
	return out, err
}

// DeleteItem removes one of userID's items.
func (s *ShoppingService) DeleteItem(ctx context.Context, userID int64, id uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedItem(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, tx, id); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return nil
	})
}

// Lists returns every list of userID with its items.
func (s *ShoppingService) Lists(ctx context.Context, userID int64) ([]ListWithItems, error) {
	lists, err := repo.ListShoppingLists(ctx, s.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	ids := make([]uint64, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	items, err := repo.ListItemsByLists(ctx, s.DB, ids)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	byList := make(map[uint64][]domain.ShoppingListItem, len(lists))
	for _, it := range items {
		byList[it.ShoppingListID] = append(byList[it.ShoppingListID], it)
	}
	out := make([]ListWithItems, len(lists))
	for i, l := range lists {
		its := byList[l.ID]
		if its == nil {
			its = []domain.ShoppingListItem{}
		}
		out[i] = ListWithItems{ShoppingList: l, Items: its}
	}
	return out, nil
}

// GetList returns list id of userID with its items.
func (s *ShoppingService) GetList(ctx context.Context, userID int64, id uint64) (*ListWithItems, error) {
	l, err := ownedList(ctx, s.DB, userID, id)
	if err != nil {
		return nil, err
	}
	items, err := repo.ListItemsByLists(ctx, s.DB, []uint64{l.ID})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return &ListWithItems{ShoppingList: *l, Items: items}, nil
}

// mergeItem adds qty to the item with natural key k, or inserts it. The unit
// always becomes unit; purchased only applies to a fresh insert. It returns
// the item id.
func mergeItem(ctx context.Context, tx *gorm.DB, k repo.ItemKey, qty float64, unit string, purchased bool) (uint64, error) {
	it, err := repo.FindItemForUpdate(ctx, tx, k)
	if err == nil {
		return increment(ctx, tx, it.ID, qty, unit)
	}
	if !repo.IsNotFound(err) {
		return 0, fmt.Errorf("find item: %w", err)
	}

	fresh := &domain.ShoppingListItem{
		ShoppingListID: k.ShoppingListID,
		IngredientID:   k.IngredientID,
		RecipeID:       k.RecipeID,
		Quantity:       qty,
		Unit:           unit,
		IsPurchased:    purchased,
	}
	err = tx.Transaction(func(sp *gorm.DB) error {
		return repo.CreateItem(ctx, sp, fresh)
	})
	if err == nil {
		shoppingMerges.WithLabelValues("inserted").Inc()
		return fresh.ID, nil
	}
	if !repo.IsUniqueViolation(err) {
		return 0, fmt.Errorf("create item: %w", err)
	}

	// A concurrent request inserted the item first; merge into it.
	it, err = repo.FindItemForUpdate(ctx, tx, k)
	if err != nil {
		return 0, fmt.Errorf("find item: %w", err)
	}
	return increment(ctx, tx, it.ID, qty, unit)
}

func increment(ctx context.Context, tx *gorm.DB, id uint64, qty float64, unit string) (uint64, error) {
	if err := repo.IncrementItem(ctx, tx, id, qty, unit); err != nil {
		return 0, fmt.Errorf("increment item: %w", err)
	}
	shoppingMerges.WithLabelValues("incremented").Inc()
	return id, nil
}

// getOrCreateList resolves userID's list titled title, creating it in a
// savepoint and re-selecting when a concurrent request created it first.
func getOrCreateList(ctx context.Context, tx *gorm.DB, userID int64, title string) (*domain.ShoppingList, error) {
	l, err := repo.GetShoppingListByTitle(ctx, tx, userID, title)
	if err == nil {
		return l, nil
	}
	if !repo.IsNotFound(err) {
		return nil, fmt.Errorf("get shopping list: %w", err)
	}

	err = tx.Transaction(func(sp *gorm.DB) error {
		var cerr error
		l, cerr = repo.CreateShoppingList(ctx, sp, userID, title)
		return cerr
	})
	if err == nil {
		return l, nil
	}
	if !repo.IsUniqueViolation(err) {
		return nil, fmt.Errorf("create shopping list: %w", err)
	}
	l, err = repo.GetShoppingListByTitle(ctx, tx, userID, title)
	if err != nil {
		return nil, fmt.Errorf("get shopping list: %w", err)
	}
	return l, nil
}

// readableRecipe loads recipe id for userID: missing recipes are not found,
// private recipes of other users are forbidden.
func readableRecipe(ctx context.Context, db *gorm.DB, userID int64, id uint64) (*domain.Recipe, error) {
	r, err := repo.GetRecipe(ctx, db, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if !r.VisibleTo(&userID) {
		return nil, ErrForbidden
	}
	return r, nil
}

func ownedList(ctx context.Context, db *gorm.DB, userID int64, id uint64) (*domain.ShoppingList, error) {
	l, err := repo.GetShoppingList(ctx, db, id, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrShoppingListNotFound
		}
		return nil, fmt.Errorf("get shopping list: %w", err)
	}
	return l, nil
}

func ownedItem(ctx context.Context, db *gorm.DB, userID int64, id uint64) (*domain.ShoppingListItem, error) {
	it, err := repo.GetItem(ctx, db, id, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}
