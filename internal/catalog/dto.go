package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// CategoryDTO is the read model returned by category endpoints.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemDTO is the read model returned by item endpoints.
type ItemDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      *string         `json:"image_url,omitempty"`
	Category      *CategoryDTO    `json:"category,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ItemListFilters describe the supported filter knobs for item browsing.
type ItemListFilters struct {
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Query       string     `json:"q,omitempty"`
	InStockOnly bool       `json:"in_stock_only,omitempty"`
}

// ListItemsInput captures the inputs needed to paginate and filter items.
type ListItemsInput struct {
	Filters    ItemListFilters
	Pagination pagination.Params
}

// ItemListResult is one page of item summaries.
type ItemListResult = pagination.Page[ItemDTO]

func categoryToDTO(category *models.Category) *CategoryDTO {
	if category == nil {
		return nil
	}
	return &CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		CreatedAt:   category.CreatedAt,
	}
}

func itemToDTO(item *models.Item) *ItemDTO {
	if item == nil {
		return nil
	}
	dto := &ItemDTO{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		SKU:           item.SKU,
		Price:         item.Price,
		StockQuantity: item.StockQuantity,
		ImageURL:      item.ImageURL,
		CreatedAt:     item.CreatedAt,
	}
	if item.Category != nil {
		dto.Category = categoryToDTO(item.Category)
	}
	return dto
}
