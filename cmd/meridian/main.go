package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-oms/meridian-oms/internal/app"
	"github.com/meridian-oms/meridian-oms/internal/auth"
	"github.com/meridian-oms/meridian-oms/internal/billing/invoices"
	"github.com/meridian-oms/meridian-oms/internal/billing/payments"
	"github.com/meridian-oms/meridian-oms/internal/inventory"
	"github.com/meridian-oms/meridian-oms/internal/masterdata/products"
	"github.com/meridian-oms/meridian-oms/internal/observability"
	"github.com/meridian-oms/meridian-oms/internal/platform/cache"
	"github.com/meridian-oms/meridian-oms/internal/platform/db"
	"github.com/meridian-oms/meridian-oms/internal/sales/customers"
	"github.com/meridian-oms/meridian-oms/internal/sales/customorders"
	"github.com/meridian-oms/meridian-oms/internal/sales/orders"
	"github.com/meridian-oms/meridian-oms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.NewMiddleware(tokens)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo)
	productsHandler := products.NewHandler(logger, productsService)

	materialsRepo := inventory.NewRepository(pool)
	materialsService := inventory.NewService(materialsRepo)
	materialsHandler := inventory.NewHandler(logger, materialsService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo, customersRepo, productsRepo)
	ordersHandler := orders.NewHandler(logger, ordersService)

	customOrderRepo := customorders.NewRepository(pool)
	customOrderService := customorders.NewService(customOrderRepo, customersRepo)
	customOrderHandler := customorders.NewHandler(logger, customOrderService)

	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo)
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(paymentsRepo, metrics, jobClient, logger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     authMiddleware,
		AuthHandler:        authHandler,
		ProductsHandler:    productsHandler,
		MaterialsHandler:   materialsHandler,
		CustomersHandler:   customersHandler,
		OrdersHandler:      ordersHandler,
		CustomOrderHandler: customOrderHandler,
		InvoicesHandler:    invoicesHandler,
		PaymentsHandler:    paymentsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
