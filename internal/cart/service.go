package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
)

// Service exposes cart operations for the authenticated owner plus the
// admin overview.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Empty(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	ListAll(ctx context.Context) ([]CartDTO, error)
}

type itemLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

// ServiceParams wires the dependencies for the cart service.
type ServiceParams struct {
	Repo     *Repository
	ItemRepo itemLoader
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	itemRepo itemLoader
	logg     *logger.Logger
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.ItemRepo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		itemRepo: params.ItemRepo,
		logg:     params.Logger,
	}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cartToDTO(cart), nil
}

// AddItem upserts a cart line: an existing line has its quantity increased
// and its price snapshot refreshed to the item's current price.
func (s *service) AddItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	line, err := s.repo.FindLine(ctx, cart.ID, itemID)
	switch {
	case err == nil:
		requested := line.Quantity + qty
		if err := checkStock(item, requested); err != nil {
			return nil, err
		}
		line.Quantity = requested
		line.Price = item.Price
		if err := s.repo.SaveLine(ctx, line); err != nil {
			return nil, err
		}
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		if err := checkStock(item, qty); err != nil {
			return nil, err
		}
		newLine := &models.CartItem{
			CartID:   cart.ID,
			ItemID:   itemID,
			Quantity: qty,
			Price:    item.Price,
		}
		if err := s.repo.CreateLine(ctx, newLine); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"item_id": itemID, "qty": qty}), "cart item added")
	return s.GetCart(ctx, userID)
}

// UpdateItem replaces the line quantity. The price snapshot taken when the
// line was added is left untouched.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*CartDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	line, err := s.repo.FindLine(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := checkStock(item, qty); err != nil {
		return nil, err
	}

	line.Quantity = qty
	if err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindLine(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *service) Empty(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearLines(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *service) ListAll(ctx context.Context) ([]CartDTO, error) {
	carts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]CartDTO, 0, len(carts))
	for i := range carts {
		dtos = append(dtos, *cartToDTO(&carts[i]))
	}
	return dtos, nil
}

// checkStock is advisory: the binding check happens again inside the
// checkout transaction.
func checkStock(item *models.Item, requested int) error {
	if item.StockQuantity < requested {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"item_id":   item.ID,
				"requested": requested,
				"available": item.StockQuantity,
			})
	}
	return nil
}
