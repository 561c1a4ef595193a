package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mgutierrezc/shopline-backend/api/routes"
	authsvc "github.com/mgutierrezc/shopline-backend/internal/auth"
	cartsvc "github.com/mgutierrezc/shopline-backend/internal/cart"
	"github.com/mgutierrezc/shopline-backend/internal/catalog"
	"github.com/mgutierrezc/shopline-backend/internal/discount"
	ordersvc "github.com/mgutierrezc/shopline-backend/internal/orders"
	"github.com/mgutierrezc/shopline-backend/internal/seed"
	usersvc "github.com/mgutierrezc/shopline-backend/internal/users"
	"github.com/mgutierrezc/shopline-backend/pkg/auth/session"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
	"github.com/mgutierrezc/shopline-backend/pkg/metrics"
	"github.com/mgutierrezc/shopline-backend/pkg/migrate"
	"github.com/mgutierrezc/shopline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, sessions)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessions, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager) (routes.Services, error) {
	conn := dbClient.DB()

	userRepo := usersvc.NewRepository(conn)
	cartRepo := cartsvc.NewRepository(conn)
	categoryRepo := catalog.NewCategoryRepository(conn)
	itemRepo := catalog.NewItemRepository(conn)
	orderRepo := ordersvc.NewRepository(conn)

	discounts, err := discount.NewService(discount.ServiceParams{
		Repo:   discount.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Tx:        dbClient,
		Users:     userRepo,
		CartRepo:  cartRepo,
		Discounts: discounts,
		Sessions:  sessions,
		JWT:       cfg.JWT,
		Password:  cfg.Password,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	userService, err := usersvc.NewService(usersvc.ServiceParams{
		Tx:        dbClient,
		Repo:      userRepo,
		CartRepo:  cartRepo,
		Discounts: discounts,
		Password:  cfg.Password,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	categoryService, err := catalog.NewCategoryService(catalog.CategoryServiceParams{
		Repo:   categoryRepo,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	itemService, err := catalog.NewItemService(catalog.ItemServiceParams{
		Repo:         itemRepo,
		CategoryRepo: categoryRepo,
		Logger:       logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	cartService, err := cartsvc.NewService(cartsvc.ServiceParams{
		Repo:     cartRepo,
		ItemRepo: itemRepo,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	orderService, err := ordersvc.NewService(ordersvc.ServiceParams{
		Tx:       dbClient,
		Repo:     orderRepo,
		CartRepo: cartRepo,
		Users:    userRepo,
		Metrics:  metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	seedService, err := seed.NewService(seed.ServiceParams{
		DB:       conn,
		Users:    userRepo,
		Seed:     cfg.Seed,
		Admin:    cfg.Admin,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:       authService,
		Users:      userService,
		Categories: categoryService,
		Items:      itemService,
		Cart:       cartService,
		Orders:     orderService,
		Seed:       seedService,
	}, nil
}
