package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/mgutierrezc/shopline-backend/internal/auth"
	cartsvc "github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/internal/catalog"
	ordersvc "github.com/mgutierrezc/shopline-backend/internal/orders"
	usersvc "github.com/mgutierrezc/shopline-backend/internal/users"
	pkgAuth "github.com/mgutierrezc/shopline-backend/pkg/auth"
	"github.com/mgutierrezc/shopline-backend/pkg/auth/session"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, input authsvc.RegisterInput) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{}, nil
}

func (stubAuthService) Login(ctx context.Context, input authsvc.LoginInput) (*authsvc.LoginResult, error) {
	return &authsvc.LoginResult{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

func (stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*authsvc.LoginResult, error) {
	return &authsvc.LoginResult{}, nil
}

type stubUserService struct{}

func (stubUserService) Get(ctx context.Context, userID uuid.UUID) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: userID}, nil
}

func (stubUserService) Update(ctx context.Context, userID uuid.UUID, input usersvc.UpdateUserInput) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: userID}, nil
}

func (stubUserService) Delete(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (stubUserService) ListAll(ctx context.Context) ([]usersvc.UserDTO, error) {
	return nil, nil
}

type stubCategoryService struct{}

func (stubCategoryService) Create(ctx context.Context, input catalog.CreateCategoryInput) (*catalog.CategoryDTO, error) {
	return &catalog.CategoryDTO{}, nil
}

func (stubCategoryService) Update(ctx context.Context, id uuid.UUID, input catalog.UpdateCategoryInput) (*catalog.CategoryDTO, error) {
	return &catalog.CategoryDTO{}, nil
}

func (stubCategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubCategoryService) Get(ctx context.Context, id uuid.UUID) (*catalog.CategoryDTO, error) {
	return &catalog.CategoryDTO{ID: id}, nil
}

func (stubCategoryService) List(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return nil, nil
}

type stubItemService struct {
	lastList *catalog.ListItemsInput
}

func (s *stubItemService) Create(ctx context.Context, input catalog.CreateItemInput) (*catalog.ItemDTO, error) {
	return &catalog.ItemDTO{}, nil
}

func (s *stubItemService) Update(ctx context.Context, id uuid.UUID, input catalog.UpdateItemInput) (*catalog.ItemDTO, error) {
	return &catalog.ItemDTO{}, nil
}

func (s *stubItemService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubItemService) Get(ctx context.Context, id uuid.UUID) (*catalog.ItemDTO, error) {
	return &catalog.ItemDTO{ID: id}, nil
}

func (s *stubItemService) List(ctx context.Context, input catalog.ListItemsInput) (*catalog.ItemListResult, error) {
	s.lastList = &input
	return &catalog.ItemListResult{}, nil
}

type stubCartService struct{}

func (stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (stubCartService) AddItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (stubCartService) Empty(ctx context.Context, userID uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{UserID: userID}, nil
}

func (stubCartService) ListAll(ctx context.Context) ([]cartsvc.CartDTO, error) {
	return nil, nil
}

type stubOrderService struct{}

func (stubOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{UserID: userID}, nil
}

func (stubOrderService) GetForActor(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.Role) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: orderID}, nil
}

func (stubOrderService) ListForUser(ctx context.Context, userID uuid.UUID, p pagination.Params) (*ordersvc.OrderListResult, error) {
	return &ordersvc.OrderListResult{}, nil
}

func (stubOrderService) ListAll(ctx context.Context, input ordersvc.ListInput) (*ordersvc.OrderListResult, error) {
	return &ordersvc.OrderListResult{}, nil
}

func (stubOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{ID: orderID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, items catalog.ItemService) http.Handler {
	return NewRouter(
		cfg,
		logger.NewNop(),
		stubPinger{},
		nil,
		stubSessionManager{},
		Services{
			Auth:       stubAuthService{},
			Users:      stubUserService{},
			Categories: stubCategoryService{},
			Items:      items,
			Cart:       stubCartService{},
			Orders:     stubOrderService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), &stubItemService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), &stubItemService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestGuestsCanBrowseItemsInStockOnly(t *testing.T) {
	items := &stubItemService{}
	router := newTestRouter(testConfig(), items)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for guest browse got %d", resp.Code)
	}
	if items.lastList == nil {
		t.Fatal("expected item list to be invoked")
	}
	if !items.lastList.Filters.InStockOnly {
		t.Fatal("expected guest listing to force the in-stock filter")
	}
}

func TestAuthenticatedBrowseKeepsFilterChoice(t *testing.T) {
	cfg := testConfig()
	items := &stubItemService{}
	router := newTestRouter(cfg, items)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if items.lastList == nil {
		t.Fatal("expected item list to be invoked")
	}
	if items.lastList.Filters.InStockOnly {
		t.Fatal("expected authenticated listing to leave the filter off by default")
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubItemService{})

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubItemService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
