package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	"github.com/mgutierrezc/shopline-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// OrderDTO is the read model returned by order endpoints.
type OrderDTO struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Total     decimal.Decimal   `json:"total"`
	Discount  int               `json:"discount_percent,omitempty"`
	Status    enums.OrderStatus `json:"status"`
	Items     []OrderLineDTO    `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderLineDTO is one purchased line with its price snapshot.
type OrderLineDTO struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderListResult is one page of orders.
type OrderListResult = pagination.Page[OrderDTO]

func orderToDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:        order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Status:    order.Status,
		Items:     make([]OrderLineDTO, 0, len(order.Items)),
		CreatedAt: order.CreatedAt,
	}
	subtotal := decimal.Zero
	for _, line := range order.Items {
		entry := OrderLineDTO{
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
			LineTotal: line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		}
		if line.Item != nil {
			entry.Name = line.Item.Name
			entry.SKU = line.Item.SKU
		}
		subtotal = subtotal.Add(entry.LineTotal)
		dto.Items = append(dto.Items, entry)
	}
	dto.Subtotal = subtotal
	return dto
}
