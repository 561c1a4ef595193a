package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/internal/inventory"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/metrics"
	"github.com/mgutierrezc/shopline-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error)
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error) {
	return inventory.Reserve(ctx, tx, requests)
}

// Service executes checkout and order management operations.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID) (*OrderDTO, error)
	GetForActor(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.Role) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, p pagination.Params) (*OrderListResult, error)
	ListAll(ctx context.Context, input ListInput) (*OrderListResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

// ServiceParams wires the dependencies for the orders service.
type ServiceParams struct {
	Tx          txRunner
	Repo        *Repository
	CartRepo    *cart.Repository
	Users       userLoader
	Reservation reservationRunner
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
}

type service struct {
	tx          txRunner
	repo        *Repository
	cartRepo    *cart.Repository
	users       userLoader
	reservation reservationRunner
	checkout    *metrics.CheckoutMetrics
	logg        *logger.Logger
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Reservation == nil {
		params.Reservation = reservationEngine{}
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:          params.Tx,
		repo:        params.Repo,
		cartRepo:    params.CartRepo,
		users:       params.Users,
		reservation: params.Reservation,
		checkout:    params.Metrics,
		logg:        params.Logger,
	}, nil
}

// PlaceOrder converts the user's cart into an order inside one transaction:
// stock is reserved per line, the snapshot lines are written, the shared
// email discount is applied to the total, and the cart is cleared. Any
// failure rolls the whole thing back.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID) (*OrderDTO, error) {
	start := time.Now()
	var (
		orderID  uuid.UUID
		discount int
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.repo.WithTx(tx)

		// The discount tier is read inside the transaction so a concurrent
		// account change cannot apply a stale percentage.
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		discount = user.Discount

		record, err := cartRepo.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		shell := &models.Order{
			UserID: userID,
			Total:  decimal.Zero,
			Status: enums.OrderStatusInProgress,
		}
		created, err := ordersRepo.Create(ctx, shell)
		if err != nil {
			return err
		}
		orderID = created.ID

		requests := make([]inventory.ReservationRequest, len(record.Items))
		for i, line := range record.Items {
			requests[i] = inventory.ReservationRequest{ItemID: line.ItemID, Qty: line.Quantity}
		}

		reservations, err := s.reservation.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}

		total := decimal.Zero
		lines := make([]models.OrderItem, 0, len(reservations))
		for _, res := range reservations {
			lines = append(lines, models.OrderItem{
				OrderID:  created.ID,
				ItemID:   res.ItemID,
				Quantity: res.Qty,
				Price:    res.UnitPrice,
			})
			total = total.Add(res.UnitPrice.Mul(decimal.NewFromInt(int64(res.Qty))))
		}
		if err := ordersRepo.CreateItems(ctx, lines); err != nil {
			return err
		}

		discounted := applyDiscount(total, discount)
		if err := ordersRepo.UpdateTotal(ctx, created.ID, discounted); err != nil {
			return err
		}

		return cartRepo.ClearLines(ctx, record.ID)
	})
	if err != nil {
		s.checkout.IncRejected(rejectionReason(err))
		s.checkout.ObserveDuration("rejected", time.Since(start))
		return nil, err
	}

	s.checkout.IncPlaced()
	s.checkout.ObserveDuration("placed", time.Since(start))

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID,
		"total":    order.Total,
		"discount": discount,
	}), "order placed")

	dto := orderToDTO(order)
	dto.Discount = discount
	return dto, nil
}

// GetForActor returns the order if the actor owns it or is an admin.
func (s *service) GetForActor(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.Role) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actorID && actorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return orderToDTO(order), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, p pagination.Params) (*OrderListResult, error) {
	return s.repo.List(ctx, ListInput{UserID: &userID, Pagination: p})
}

func (s *service) ListAll(ctx context.Context, input ListInput) (*OrderListResult, error) {
	return s.repo.List(ctx, input)
}

// UpdateStatus moves the order through its lifecycle. Only orders still
// in progress may change, and only to a terminal status.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
			WithDetails(map[string]any{"from": order.Status, "to": status})
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID,
		"status":   status,
	}), "order status updated")

	order.Status = status
	return orderToDTO(order), nil
}

func applyDiscount(total decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 {
		return total.Round(2)
	}
	factor := decimal.NewFromInt(int64(100 - percent)).Div(decimal.NewFromInt(100))
	return total.Mul(factor).Round(2)
}

func rejectionReason(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		return "empty_cart"
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
		return "insufficient_stock"
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return "not_found"
	default:
		return "error"
	}
}
