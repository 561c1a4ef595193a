package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Item{}); err != nil {
		t.Fatalf("migrate items: %v", err)
	}
	return db
}

func seedItem(t *testing.T, db *gorm.DB, stock int, price string) uuid.UUID {
	t.Helper()
	category := models.Category{Name: "seed-" + uuid.NewString()}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	item := models.Item{
		CategoryID:    category.ID,
		Name:          "item-" + uuid.NewString(),
		SKU:           "sku-" + uuid.NewString(),
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item.ID
}

func stockOf(t *testing.T, db *gorm.DB, itemID uuid.UUID) int {
	t.Helper()
	var item models.Item
	if err := db.First(&item, "id = ?", itemID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	return item.StockQuantity
}

func TestReserveDecrementsStock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	itemA := seedItem(t, db, 5, "10.00")
	itemB := seedItem(t, db, 1, "3.50")

	var results []ReservationResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		results, err = Reserve(ctx, tx, []ReservationRequest{
			{ItemID: itemA, Qty: 3},
			{ItemID: itemB, Qty: 1},
		})
		return err
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("unexpected unit price %s", results[0].UnitPrice)
	}
	if results[0].Remaining != 2 {
		t.Fatalf("expected remaining 2, got %d", results[0].Remaining)
	}
	if got := stockOf(t, db, itemA); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}
	if got := stockOf(t, db, itemB); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}

func TestReserveInsufficientStockRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	itemA := seedItem(t, db, 5, "10.00")
	itemB := seedItem(t, db, 1, "3.50")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := Reserve(ctx, tx, []ReservationRequest{
			{ItemID: itemA, Qty: 2},
			{ItemID: itemB, Qty: 4},
		})
		return err
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected error: %v", err)
	}

	// The earlier decrement in the same transaction must be rolled back.
	if got := stockOf(t, db, itemA); got != 5 {
		t.Fatalf("expected stock 5 after rollback, got %d", got)
	}
	if got := stockOf(t, db, itemB); got != 1 {
		t.Fatalf("expected stock 1 after rollback, got %d", got)
	}
}

func TestReserveValidatesRequests(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, 5, "10.00")

	_, err := Reserve(ctx, db, []ReservationRequest{{ItemID: item, Qty: 0}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = Reserve(ctx, db, []ReservationRequest{{ItemID: uuid.New(), Qty: 1}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
