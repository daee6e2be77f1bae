package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/storefront/internal/app"
	"github.com/linemk/storefront/internal/app/handlers"
	"github.com/linemk/storefront/internal/config"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/lib/logger"
	"github.com/linemk/storefront/internal/lib/logger/handlers/urllog"
	"github.com/linemk/storefront/internal/replica"
	"github.com/linemk/storefront/internal/service"
	"github.com/linemk/storefront/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// repositories over the shared *sql.DB
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	wishRepo := storage.NewWishlistRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)

	// per-session replicas plus the reconciler for sign-in/sign-out
	sessions := replica.NewManager()
	reconciler := replica.NewReconciler(application.Logger, cartRepo, wishRepo)

	repoTimeout := application.Config.Checkout.RepoTimeout
	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	cartService := service.NewCartService(application.Logger, cartRepo, productRepo, sessions, reconciler, repoTimeout)
	wishlistService := service.NewWishlistService(application.Logger, wishRepo, productRepo, sessions, repoTimeout)
	checkoutService := service.NewCheckoutService(application.Logger, orderRepo)
	orderQueryService := service.NewOrderQueryService(application.Logger, orderRepo)
	sweepService := service.NewSweepService(application.Logger, orderRepo,
		application.Config.Checkout.SweepInterval, application.Config.Checkout.SweepGrace)

	// sign-in endpoint (also triggers replica reconciliation)
	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService, cartService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)

		r.Post("/api/logout", handlers.LogoutHandler(application.Logger, cartService))

		r.Get("/api/cart", handlers.GetCartHandler(application.Logger, cartService))
		r.Post("/api/cart", handlers.AddCartItemHandler(application.Logger, cartService))
		r.Put("/api/cart/{productID}", handlers.SetCartQuantityHandler(application.Logger, cartService))
		r.Delete("/api/cart/{productID}", handlers.RemoveCartItemHandler(application.Logger, cartService))
		r.Delete("/api/cart", handlers.ClearCartHandler(application.Logger, cartService))

		r.Get("/api/wishlist", handlers.GetWishlistHandler(application.Logger, wishlistService))
		r.Post("/api/wishlist", handlers.AddWishlistItemHandler(application.Logger, wishlistService))
		r.Delete("/api/wishlist/{productID}", handlers.RemoveWishlistItemHandler(application.Logger, wishlistService))
		r.Delete("/api/wishlist", handlers.ClearWishlistHandler(application.Logger, wishlistService))

		// order commit pipeline + order queries
		r.Post("/api/orders", handlers.CreateOrderHandler(application.Logger, checkoutService, cartService))
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderQueryService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go sweepService.Run(sweepCtx)

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	sweepCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
