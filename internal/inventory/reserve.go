package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationRequest asks for a quantity of one item to be reserved.
type ReservationRequest struct {
	ItemID uuid.UUID
	Qty    int
}

// ReservationResult reports the state captured while the row lock was held.
type ReservationResult struct {
	ItemID    uuid.UUID
	Qty       int
	UnitPrice decimal.Decimal
	Remaining int
}

// Reserve locks each requested item row and decrements its stock, failing the
// whole batch if any item cannot cover the requested quantity. It must run
// inside a transaction so the caller controls commit and rollback.
func Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction handle required")
	}
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items to reserve")
	}

	results := make([]ReservationResult, 0, len(requests))
	for _, req := range requests {
		if req.ItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"item_id": req.ItemID})
		}

		item, err := lockItem(ctx, tx, req.ItemID)
		if err != nil {
			return nil, err
		}

		if item.StockQuantity < req.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"item_id":   req.ItemID,
					"requested": req.Qty,
					"available": item.StockQuantity,
				})
		}

		// The guard in the WHERE clause keeps stock from ever going negative
		// even if the lock above was skipped.
		decrement := tx.WithContext(ctx).
			Model(&models.Item{}).
			Where("id = ? AND stock_quantity >= ?", req.ItemID, req.Qty).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", req.Qty))
		if decrement.Error != nil {
			return nil, fmt.Errorf("decrementing stock: %w", decrement.Error)
		}
		if decrement.RowsAffected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"item_id":   req.ItemID,
					"requested": req.Qty,
					"available": item.StockQuantity,
				})
		}

		results = append(results, ReservationResult{
			ItemID:    req.ItemID,
			Qty:       req.Qty,
			UnitPrice: item.Price,
			Remaining: item.StockQuantity - req.Qty,
		})
	}
	return results, nil
}

func lockItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.Item, error) {
	query := tx.WithContext(ctx)
	// sqlite (used in tests) has no row locks; its writes serialize anyway.
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item models.Item
	if err := query.Where("id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found").
				WithDetails(map[string]any{"item_id": itemID})
		}
		return nil, fmt.Errorf("loading item: %w", err)
	}
	return &item, nil
}
