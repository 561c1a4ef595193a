package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgutierrezc/shopline-backend/api/controllers"
	"github.com/mgutierrezc/shopline-backend/api/middleware"
	authsvc "github.com/mgutierrezc/shopline-backend/internal/auth"
	cartsvc "github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/internal/catalog"
	ordersvc "github.com/mgutierrezc/shopline-backend/internal/orders"
	"github.com/mgutierrezc/shopline-backend/internal/seed"
	usersvc "github.com/mgutierrezc/shopline-backend/internal/users"
	"github.com/mgutierrezc/shopline-backend/pkg/auth/session"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	"github.com/mgutierrezc/shopline-backend/pkg/enums"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles the wired application services the router exposes.
type Services struct {
	Auth       authsvc.Service
	Users      usersvc.Service
	Categories catalog.CategoryService
	Items      catalog.ItemService
	Cart       cartsvc.Service
	Orders     ordersvc.Service
	Seed       *seed.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
	})

	// Catalog browsing is open to guests; a guest view is limited to items
	// that are in stock.
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg))
			r.Get("/items", controllers.ListItems(svcs.Items, logg))
			r.Get("/items/search", controllers.ListItems(svcs.Items, logg))
			r.Get("/items/{itemId}", controllers.GetItem(svcs.Items, logg))
			r.Get("/categories", controllers.ListCategories(svcs.Categories, logg))
			r.Get("/categories/{categoryId}", controllers.GetCategory(svcs.Categories, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", controllers.CurrentUser(svcs.Users, logg))
				r.Patch("/", controllers.UpdateCurrentUser(svcs.Users, logg))
				r.Put("/", controllers.UpdateCurrentUser(svcs.Users, logg))
				r.Delete("/", controllers.DeleteCurrentUser(svcs.Users, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(svcs.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(svcs.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svcs.Cart, logg))
				r.Delete("/", controllers.CartEmpty(svcs.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(svcs.Orders, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListMyOrders(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(svcs.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))

		r.Get("/users", controllers.AdminListUsers(svcs.Users, logg))
		r.Get("/carts", controllers.AdminListCarts(svcs.Cart, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(svcs.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(svcs.Orders, logg))
			r.Put("/{orderId}/status", controllers.AdminUpdateOrderStatus(svcs.Orders, logg))
		})

		r.Route("/items", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateItem(svcs.Items, logg))
			r.Patch("/{itemId}", controllers.AdminUpdateItem(svcs.Items, logg))
			r.Put("/{itemId}", controllers.AdminUpdateItem(svcs.Items, logg))
			r.Delete("/{itemId}", controllers.AdminDeleteItem(svcs.Items, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateCategory(svcs.Categories, logg))
			r.Patch("/{categoryId}", controllers.AdminUpdateCategory(svcs.Categories, logg))
			r.Put("/{categoryId}", controllers.AdminUpdateCategory(svcs.Categories, logg))
			r.Delete("/{categoryId}", controllers.AdminDeleteCategory(svcs.Categories, logg))
		})

		r.Post("/setup", controllers.AdminSetup(svcs.Seed, logg))
	})

	return r
}
