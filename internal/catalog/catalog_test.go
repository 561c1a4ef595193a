package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}, &models.Item{}))
	return conn
}

func newServices(t *testing.T, conn *gorm.DB) (CategoryService, ItemService) {
	t.Helper()
	categorySvc, err := NewCategoryService(CategoryServiceParams{
		Repo:   NewCategoryRepository(conn),
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)
	itemSvc, err := NewItemService(ItemServiceParams{
		Repo:         NewItemRepository(conn),
		CategoryRepo: NewCategoryRepository(conn),
		Logger:       logger.NewNop(),
	})
	require.NoError(t, err)
	return categorySvc, itemSvc
}

func TestCategoryCreateDuplicateName(t *testing.T) {
	conn := newTestDB(t)
	categorySvc, _ := newServices(t, conn)
	ctx := context.Background()

	_, err := categorySvc.Create(ctx, CreateCategoryInput{Name: "Books"})
	require.NoError(t, err)

	_, err = categorySvc.Create(ctx, CreateCategoryInput{Name: "Books"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestCategoryDeleteWithItemsConflicts(t *testing.T) {
	conn := newTestDB(t)
	categorySvc, itemSvc := newServices(t, conn)
	ctx := context.Background()

	category, err := categorySvc.Create(ctx, CreateCategoryInput{Name: "Books"})
	require.NoError(t, err)

	_, err = itemSvc.Create(ctx, CreateItemInput{
		CategoryID:    category.ID,
		Name:          "Go in Practice",
		SKU:           "BOOK-001",
		Price:         decimal.RequireFromString("39.99"),
		StockQuantity: 3,
	})
	require.NoError(t, err)

	err = categorySvc.Delete(ctx, category.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	// Once the item is gone the category can be removed.
	var item models.Item
	require.NoError(t, conn.First(&item, "sku = ?", "BOOK-001").Error)
	require.NoError(t, itemSvc.Delete(ctx, item.ID))
	require.NoError(t, categorySvc.Delete(ctx, category.ID))
}

func TestItemCreateValidations(t *testing.T) {
	conn := newTestDB(t)
	categorySvc, itemSvc := newServices(t, conn)
	ctx := context.Background()

	category, err := categorySvc.Create(ctx, CreateCategoryInput{Name: "Books"})
	require.NoError(t, err)

	_, err = itemSvc.Create(ctx, CreateItemInput{
		CategoryID: uuid.New(),
		Name:       "Orphan",
		SKU:        "ORPHAN-1",
		Price:      decimal.NewFromInt(1),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = itemSvc.Create(ctx, CreateItemInput{
		CategoryID: category.ID,
		Name:       "Negative",
		SKU:        "NEG-1",
		Price:      decimal.RequireFromString("-1.00"),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	first, err := itemSvc.Create(ctx, CreateItemInput{
		CategoryID: category.ID,
		Name:       "First",
		SKU:        "DUP-1",
		Price:      decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "DUP-1", first.SKU)

	_, err = itemSvc.Create(ctx, CreateItemInput{
		CategoryID: category.ID,
		Name:       "Second",
		SKU:        "DUP-1",
		Price:      decimal.RequireFromString("6.00"),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestItemUpdateRefreshesFields(t *testing.T) {
	conn := newTestDB(t)
	categorySvc, itemSvc := newServices(t, conn)
	ctx := context.Background()

	category, err := categorySvc.Create(ctx, CreateCategoryInput{Name: "Books"})
	require.NoError(t, err)

	item, err := itemSvc.Create(ctx, CreateItemInput{
		CategoryID:    category.ID,
		Name:          "Draft",
		SKU:           "DRAFT-1",
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: 1,
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("12.345")
	newStock := 7
	updated, err := itemSvc.Update(ctx, item.ID, UpdateItemInput{
		Price:         &newPrice,
		StockQuantity: &newStock,
	})
	require.NoError(t, err)
	require.True(t, updated.Price.Equal(decimal.RequireFromString("12.35")), "price %s", updated.Price)
	require.Equal(t, 7, updated.StockQuantity)
	require.NotNil(t, updated.Category)
	require.Equal(t, "Books", updated.Category.Name)
}

func TestListItemsFiltersAndPaginates(t *testing.T) {
	conn := newTestDB(t)
	categorySvc, itemSvc := newServices(t, conn)
	ctx := context.Background()

	books, err := categorySvc.Create(ctx, CreateCategoryInput{Name: "Books"})
	require.NoError(t, err)
	games, err := categorySvc.Create(ctx, CreateCategoryInput{Name: "Games"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		stock := i // first item is out of stock
		created := models.Item{
			CategoryID:    books.ID,
			Name:          fmt.Sprintf("Book %d", i),
			SKU:           fmt.Sprintf("BOOK-%d", i),
			Price:         decimal.RequireFromString("9.99"),
			StockQuantity: stock,
			CreatedAt:     time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}
		require.NoError(t, conn.Create(&created).Error)
	}
	game := models.Item{
		CategoryID:    games.ID,
		Name:          "Chess Set",
		SKU:           "GAME-1",
		Price:         decimal.RequireFromString("25.00"),
		StockQuantity: 2,
	}
	require.NoError(t, conn.Create(&game).Error)

	page, err := itemSvc.List(ctx, ListItemsInput{
		Filters: ItemListFilters{CategoryID: &books.ID},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)

	inStock, err := itemSvc.List(ctx, ListItemsInput{
		Filters: ItemListFilters{CategoryID: &books.ID, InStockOnly: true},
	})
	require.NoError(t, err)
	require.Len(t, inStock.Items, 4)

	search, err := itemSvc.List(ctx, ListItemsInput{
		Filters: ItemListFilters{Query: "chess"},
	})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	require.Equal(t, "Chess Set", search.Items[0].Name)

	firstPage, err := itemSvc.List(ctx, ListItemsInput{
		Filters:    ItemListFilters{CategoryID: &books.ID},
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, firstPage.Items, 2)
	require.NotEmpty(t, firstPage.NextCursor)

	secondPage, err := itemSvc.List(ctx, ListItemsInput{
		Filters:    ItemListFilters{CategoryID: &books.ID},
		Pagination: pagination.Params{Limit: 2, Cursor: firstPage.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, secondPage.Items, 2)
	require.NotEqual(t, firstPage.Items[0].ID, secondPage.Items[0].ID)
}
