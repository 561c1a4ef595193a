package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ItemService exposes catalog item management and browsing operations.
type ItemService interface {
	Create(ctx context.Context, input CreateItemInput) (*ItemDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	List(ctx context.Context, input ListItemsInput) (*ItemListResult, error)
}

// CreateItemInput holds the validated payload to create an item.
type CreateItemInput struct {
	CategoryID    uuid.UUID
	Name          string
	Description   *string
	SKU           string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      *string
}

// UpdateItemInput holds optional mutation values for an item.
type UpdateItemInput struct {
	CategoryID    *uuid.UUID
	Name          *string
	Description   *string
	SKU           *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *string
}

// ItemServiceParams wires the dependencies for the item service.
type ItemServiceParams struct {
	Repo         *ItemRepository
	CategoryRepo *CategoryRepository
	Logger       *logger.Logger
}

type itemService struct {
	repo         *ItemRepository
	categoryRepo *CategoryRepository
	logg         *logger.Logger
}

// NewItemService builds the item service.
func NewItemService(params ItemServiceParams) (ItemService, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.CategoryRepo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &itemService{
		repo:         params.Repo,
		categoryRepo: params.CategoryRepo,
		logg:         params.Logger,
	}, nil
}

func (s *itemService) Create(ctx context.Context, input CreateItemInput) (*ItemDTO, error) {
	if err := validateItemBasics(input.Name, input.SKU, input.Price, input.StockQuantity); err != nil {
		return nil, err
	}
	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	item := &models.Item{
		CategoryID:    input.CategoryID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		SKU:           strings.TrimSpace(input.SKU),
		Price:         input.Price.Round(2),
		StockQuantity: input.StockQuantity,
		ImageURL:      input.ImageURL,
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "item_id", created.ID), "item created")
	return itemToDTO(created), nil
}

func (s *itemService) Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		item.CategoryID = *input.CategoryID
		item.Category = nil
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be empty")
		}
		item.Name = name
	}
	if input.Description != nil {
		item.Description = input.Description
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		item.SKU = sku
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		item.Price = input.Price.Round(2)
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
		}
		item.StockQuantity = *input.StockQuantity
	}
	if input.ImageURL != nil {
		item.ImageURL = input.ImageURL
	}

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, err
	}
	return s.Get(ctx, updated.ID)
}

func (s *itemService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "item_id", id), "item deleted")
	return nil
}

func (s *itemService) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return itemToDTO(item), nil
}

func (s *itemService) List(ctx context.Context, input ListItemsInput) (*ItemListResult, error) {
	return s.repo.ListItems(ctx, input)
}

func validateItemBasics(name, sku string, price decimal.Decimal, stock int) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if strings.TrimSpace(sku) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	return nil
}
