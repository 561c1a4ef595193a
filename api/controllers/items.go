package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgutierrezc/shopline-backend/api/middleware"
	"github.com/mgutierrezc/shopline-backend/api/responses"
	"github.com/mgutierrezc/shopline-backend/api/validators"
	"github.com/mgutierrezc/shopline-backend/internal/catalog"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/pagination"
)

// ListItems serves the browsable catalog. Guests only see items that are in
// stock; authenticated callers can widen the view with the in_stock filter.
func ListItems(svc catalog.ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query().Get("q")
		if query == "" {
			query = r.URL.Query().Get("name")
		}
		if query == "" {
			query = r.URL.Query().Get("sku")
		}

		filters := catalog.ItemListFilters{
			Query:       validators.SanitizeString(query, 128),
			InStockOnly: r.URL.Query().Get("in_stock") == "true",
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("category_id")); raw != "" {
			categoryID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
				return
			}
			filters.CategoryID = &categoryID
		}

		if middleware.RoleFromContext(r.Context()) == enums.RoleGuest.String() {
			filters.InStockOnly = true
		}

		result, err := svc.List(r.Context(), catalog.ListItemsInput{
			Filters: filters,
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetItem returns a single catalog item by id.
func GetItem(svc catalog.ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		id, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

type createItemRequest struct {
	CategoryID    uuid.UUID       `json:"category_id" validate:"required"`
	Name          string          `json:"name" validate:"required,min=2,max=255"`
	Description   *string         `json:"description,omitempty" validate:"omitempty,max=2048"`
	SKU           string          `json:"sku" validate:"required,min=2,max=64"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	StockQuantity int             `json:"stock_quantity" validate:"min=0"`
	ImageURL      *string         `json:"img_url,omitempty" validate:"omitempty,url"`
}

// AdminCreateItem creates a catalog item.
func AdminCreateItem(svc catalog.ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), catalog.CreateItemInput{
			CategoryID:    body.CategoryID,
			Name:          validators.SanitizeString(body.Name, 255),
			Description:   body.Description,
			SKU:           validators.SanitizeString(body.SKU, 64),
			Price:         body.Price,
			StockQuantity: body.StockQuantity,
			ImageURL:      body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

type updateItemRequest struct {
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=2048"`
	SKU           *string          `json:"sku,omitempty" validate:"omitempty,min=2,max=64"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty" validate:"omitempty,min=0"`
	ImageURL      *string          `json:"img_url,omitempty" validate:"omitempty,url"`
}

// AdminUpdateItem applies partial updates to an item.
func AdminUpdateItem(svc catalog.ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		id, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), id, catalog.UpdateItemInput{
			CategoryID:    body.CategoryID,
			Name:          body.Name,
			Description:   body.Description,
			SKU:           body.SKU,
			Price:         body.Price,
			StockQuantity: body.StockQuantity,
			ImageURL:      body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// AdminDeleteItem removes an item from the catalog.
func AdminDeleteItem(svc catalog.ItemService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		id, err := uuidParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
