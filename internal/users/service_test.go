package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/internal/discount"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	"github.com/mgutierrezc/shopline-backend/pkg/db/models"
	pkgerrors "github.com/mgutierrezc/shopline-backend/pkg/errors"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{}, &models.Role{},
		&models.Cart{}, &models.CartItem{},
	))
	return conn
}

func newService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	discountSvc, err := discount.NewService(discount.ServiceParams{
		Repo:   discount.NewRepository(conn),
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Tx:        db.FromGorm(conn),
		Repo:      NewRepository(conn),
		CartRepo:  cart.NewRepository(conn),
		Discounts: discountSvc,
		Password: config.PasswordConfig{
			ArgonMemoryKB:    1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)
	return svc
}

func seedUser(t *testing.T, conn *gorm.DB, username, email string) uuid.UUID {
	t.Helper()
	user := models.User{
		Fullname:     "Seed " + username,
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
	}
	require.NoError(t, conn.Create(&user).Error)
	require.NoError(t, conn.Create(&models.Cart{UserID: user.ID}).Error)
	return user.ID
}

func discountsFor(t *testing.T, conn *gorm.DB, email string) []int {
	t.Helper()
	var discounts []int
	require.NoError(t, conn.Model(&models.User{}).
		Where("email = ?", email).
		Pluck("discount", &discounts).Error)
	return discounts
}

func TestUpdateEmailRecomputesBothGroups(t *testing.T) {
	conn := newTestDB(t)
	svc := newService(t, conn)
	ctx := context.Background()

	var moverID uuid.UUID
	for i := 0; i < 3; i++ {
		id := seedUser(t, conn, fmt.Sprintf("a-user-%d", i), "a@example.com")
		if i == 0 {
			moverID = id
		}
	}
	seedUser(t, conn, "b-user-0", "b@example.com")

	discountSvc, err := discount.NewService(discount.ServiceParams{
		Repo:   discount.NewRepository(conn),
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, discountSvc.Recompute(ctx, nil, "a@example.com", "b@example.com"))
	require.Equal(t, []int{30, 30, 30}, discountsFor(t, conn, "a@example.com"))

	newEmail := "b@example.com"
	updated, err := svc.Update(ctx, moverID, UpdateUserInput{Email: &newEmail})
	require.NoError(t, err)
	require.Equal(t, "b@example.com", updated.Email)
	require.Equal(t, 20, updated.Discount)

	require.Equal(t, []int{20, 20}, discountsFor(t, conn, "a@example.com"))
	require.Equal(t, []int{20, 20}, discountsFor(t, conn, "b@example.com"))
}

func TestUpdateEmailCapConflict(t *testing.T) {
	conn := newTestDB(t)
	svc := newService(t, conn)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		seedUser(t, conn, fmt.Sprintf("full-user-%d", i), "full@example.com")
	}
	outsider := seedUser(t, conn, "outsider", "other@example.com")

	fullEmail := "full@example.com"
	_, err := svc.Update(ctx, outsider, UpdateUserInput{Email: &fullEmail})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestUpdateUsernameConflict(t *testing.T) {
	conn := newTestDB(t)
	svc := newService(t, conn)
	ctx := context.Background()

	seedUser(t, conn, "taken", "x@example.com")
	userID := seedUser(t, conn, "me", "y@example.com")

	taken := "taken"
	_, err := svc.Update(ctx, userID, UpdateUserInput{Username: &taken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestDeleteRecomputesRemainingGroup(t *testing.T) {
	conn := newTestDB(t)
	svc := newService(t, conn)
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 2)
	for i := 0; i < 2; i++ {
		ids = append(ids, seedUser(t, conn, fmt.Sprintf("pair-%d", i), "pair@example.com"))
	}
	discountSvc, err := discount.NewService(discount.ServiceParams{
		Repo:   discount.NewRepository(conn),
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, discountSvc.Recompute(ctx, nil, "pair@example.com"))
	require.Equal(t, []int{20, 20}, discountsFor(t, conn, "pair@example.com"))

	require.NoError(t, svc.Delete(ctx, ids[0]))

	require.Equal(t, []int{0}, discountsFor(t, conn, "pair@example.com"))

	var cartCount int64
	require.NoError(t, conn.Model(&models.Cart{}).
		Where("user_id = ?", ids[0]).Count(&cartCount).Error)
	require.EqualValues(t, 0, cartCount)

	_, err = svc.Get(ctx, ids[0])
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestUpdatePasswordRehashes(t *testing.T) {
	conn := newTestDB(t)
	svc := newService(t, conn)
	ctx := context.Background()

	userID := seedUser(t, conn, "rehash", "rehash@example.com")
	newPassword := "new-secret"
	_, err := svc.Update(ctx, userID, UpdateUserInput{Password: &newPassword})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, conn.First(&user, "id = ?", userID).Error)
	require.NotEqual(t, "hash", user.PasswordHash)
	require.Contains(t, user.PasswordHash, "$argon2id$")
}
