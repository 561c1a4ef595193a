package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	conn   *gorm.DB
	svc    Service
	userID uuid.UUID
	cartID uuid.UUID
	itemA  models.Item
	itemB  models.Item
}

type stubUserRepo struct {
	conn *gorm.DB
}

func (s stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

func newFixture(t *testing.T, discount int) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Item{},
		&models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	))

	user := models.User{
		Fullname:     "Buyer",
		Username:     "buyer-" + uuid.NewString(),
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Discount:     discount,
	}
	require.NoError(t, conn.Create(&user).Error)
	userCart := models.Cart{UserID: user.ID}
	require.NoError(t, conn.Create(&userCart).Error)

	category := models.Category{Name: "Books"}
	require.NoError(t, conn.Create(&category).Error)
	itemA := models.Item{
		CategoryID:    category.ID,
		Name:          "Paperback",
		SKU:           "BOOK-A",
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: 5,
	}
	itemB := models.Item{
		CategoryID:    category.ID,
		Name:          "Hardcover",
		SKU:           "BOOK-B",
		Price:         decimal.RequireFromString("5.00"),
		StockQuantity: 2,
	}
	require.NoError(t, conn.Create(&itemA).Error)
	require.NoError(t, conn.Create(&itemB).Error)

	svc, err := NewService(ServiceParams{
		Tx:       db.FromGorm(conn),
		Repo:     NewRepository(conn),
		CartRepo: cart.NewRepository(conn),
		Users:    stubUserRepo{conn: conn},
		Logger:   logger.NewNop(),
	})
	require.NoError(t, err)

	return &fixture{
		conn:   conn,
		svc:    svc,
		userID: user.ID,
		cartID: userCart.ID,
		itemA:  itemA,
		itemB:  itemB,
	}
}

func (f *fixture) addLine(t *testing.T, item models.Item, qty int) {
	t.Helper()
	line := models.CartItem{
		CartID:   f.cartID,
		ItemID:   item.ID,
		Quantity: qty,
		Price:    item.Price,
	}
	require.NoError(t, f.conn.Create(&line).Error)
}

func (f *fixture) stockOf(t *testing.T, itemID uuid.UUID) int {
	t.Helper()
	var item models.Item
	require.NoError(t, f.conn.First(&item, "id = ?", itemID).Error)
	return item.StockQuantity
}

func (f *fixture) cartLineCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).
		Where("cart_id = ?", f.cartID).Count(&count).Error)
	return count
}

func TestPlaceOrderAppliesDiscount(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	// 2 x 10.00 + 1 x 5.00 = 25.00, minus 20% = 20.00
	f.addLine(t, f.itemA, 2)
	f.addLine(t, f.itemB, 1)

	order, err := f.svc.PlaceOrder(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusInProgress, order.Status)
	require.True(t, order.Total.Equal(decimal.RequireFromString("20.00")), "total %s", order.Total)
	require.True(t, order.Subtotal.Equal(decimal.RequireFromString("25.00")), "subtotal %s", order.Subtotal)
	require.Equal(t, 20, order.Discount)
	require.Len(t, order.Items, 2)

	require.Equal(t, 3, f.stockOf(t, f.itemA.ID))
	require.Equal(t, 1, f.stockOf(t, f.itemB.ID))
	require.EqualValues(t, 0, f.cartLineCount(t))
}

func TestPlaceOrderNoDiscount(t *testing.T) {
	f := newFixture(t, 0)
	f.addLine(t, f.itemA, 1)

	order, err := f.svc.PlaceOrder(context.Background(), f.userID)
	require.NoError(t, err)
	require.True(t, order.Total.Equal(decimal.RequireFromString("10.00")), "total %s", order.Total)
}

func TestPlaceOrderSnapshotsPriceAtSale(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	// The cart holds a stale snapshot; checkout re-reads the current price.
	line := models.CartItem{
		CartID:   f.cartID,
		ItemID:   f.itemA.ID,
		Quantity: 1,
		Price:    decimal.RequireFromString("1.00"),
	}
	require.NoError(t, f.conn.Create(&line).Error)

	order, err := f.svc.PlaceOrder(ctx, f.userID)
	require.NoError(t, err)
	require.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	require.True(t, order.Total.Equal(decimal.RequireFromString("10.00")))
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	f.addLine(t, f.itemA, 1)
	f.addLine(t, f.itemB, 3) // only 2 in stock

	_, err := f.svc.PlaceOrder(ctx, f.userID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, 0, orderCount)

	require.Equal(t, 5, f.stockOf(t, f.itemA.ID))
	require.Equal(t, 2, f.stockOf(t, f.itemB.ID))
	require.EqualValues(t, 2, f.cartLineCount(t))
}

type trackingTxRunner struct {
	inner txRunner
	inTx  *bool
}

func (t trackingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	*t.inTx = true
	defer func() { *t.inTx = false }()
	return t.inner.WithTx(ctx, fn)
}

type trackingUserRepo struct {
	stubUserRepo
	inTx *bool
	seen *bool
}

func (r trackingUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	*r.seen = *r.inTx
	return r.stubUserRepo.FindByID(ctx, id)
}

func TestPlaceOrderReadsDiscountInsideTransaction(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	f.addLine(t, f.itemA, 1)

	var inTx, seenInTx bool
	svc, err := NewService(ServiceParams{
		Tx:       trackingTxRunner{inner: db.FromGorm(f.conn), inTx: &inTx},
		Repo:     NewRepository(f.conn),
		CartRepo: cart.NewRepository(f.conn),
		Users:    trackingUserRepo{stubUserRepo: stubUserRepo{conn: f.conn}, inTx: &inTx, seen: &seenInTx},
		Logger:   logger.NewNop(),
	})
	require.NoError(t, err)

	order, err := svc.PlaceOrder(ctx, f.userID)
	require.NoError(t, err)
	require.Equal(t, 10, order.Discount)
	require.True(t, seenInTx, "discount was read outside the checkout transaction")
}

func TestPlaceOrderReservesLinesInAddOrder(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	// Both lines are short; the oldest one must be the shortage reported.
	base := time.Now().Add(-time.Hour)
	older := models.CartItem{
		CartID:    f.cartID,
		ItemID:    f.itemB.ID,
		Quantity:  3, // only 2 in stock
		Price:     f.itemB.Price,
		CreatedAt: base,
	}
	newer := models.CartItem{
		CartID:    f.cartID,
		ItemID:    f.itemA.ID,
		Quantity:  9, // only 5 in stock
		Price:     f.itemA.Price,
		CreatedAt: base.Add(time.Minute),
	}
	// Insert newest first to rule out insertion-order luck.
	require.NoError(t, f.conn.Create(&newer).Error)
	require.NoError(t, f.conn.Create(&older).Error)

	_, err := f.svc.PlaceOrder(ctx, f.userID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok, "details %T", appErr.Details())
	require.Equal(t, f.itemB.ID, details["item_id"])
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.PlaceOrder(context.Background(), f.userID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart), "got %v", err)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.addLine(t, f.itemA, 1)

	order, err := f.svc.PlaceOrder(ctx, f.userID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCompleted, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatus("Shipped"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), enums.OrderStatusCompleted)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestGetForActorOwnership(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.addLine(t, f.itemA, 1)

	order, err := f.svc.PlaceOrder(ctx, f.userID)
	require.NoError(t, err)

	got, err := f.svc.GetForActor(ctx, order.ID, f.userID, enums.RoleUser)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)

	stranger := uuid.New()
	_, err = f.svc.GetForActor(ctx, order.ID, stranger, enums.RoleUser)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.GetForActor(ctx, order.ID, stranger, enums.RoleAdmin)
	require.NoError(t, err)
}

func TestListForUserPaginates(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.addLine(t, f.itemA, 1)
		_, err := f.svc.PlaceOrder(ctx, f.userID)
		require.NoError(t, err)
	}

	page, err := f.svc.ListForUser(ctx, f.userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
}
