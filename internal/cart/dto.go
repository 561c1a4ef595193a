package cart

import (
	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// CartDTO is the read model returned by cart endpoints.
type CartDTO struct {
	ID       uuid.UUID        `json:"id"`
	UserID   uuid.UUID        `json:"user_id"`
	Status   enums.CartStatus `json:"status"`
	Items    []CartLineDTO    `json:"items"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

// CartLineDTO is one line of a cart with its price snapshot.
type CartLineDTO struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func cartToDTO(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}
	dto := &CartDTO{
		ID:       cart.ID,
		UserID:   cart.UserID,
		Status:   cart.Status,
		Items:    make([]CartLineDTO, 0, len(cart.Items)),
		Subtotal: decimal.Zero,
	}
	for _, line := range cart.Items {
		entry := CartLineDTO{
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
			LineTotal: line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		}
		if line.Item != nil {
			entry.Name = line.Item.Name
			entry.SKU = line.Item.SKU
		}
		dto.Items = append(dto.Items, entry)
		dto.Subtotal = dto.Subtotal.Add(entry.LineTotal)
	}
	dto.Subtotal = dto.Subtotal.Round(2)
	return dto
}
