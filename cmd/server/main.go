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
	"github.com/joho/godotenv"
	"github.com/melihmerall/ilisan-commerce/internal/app"
	"github.com/melihmerall/ilisan-commerce/internal/app/handlers"
	"github.com/melihmerall/ilisan-commerce/internal/config"
	"github.com/melihmerall/ilisan-commerce/internal/gateway"
	"github.com/melihmerall/ilisan-commerce/internal/jwtauth/jwtmiddleware"
	"github.com/melihmerall/ilisan-commerce/internal/lib/logger"
	"github.com/melihmerall/ilisan-commerce/internal/lib/logger/handlers/urllog"
	"github.com/melihmerall/ilisan-commerce/internal/notify"
	"github.com/melihmerall/ilisan-commerce/internal/service"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// Gateway keys and DB credentials come from the environment; a local
	// .env file is honored when present.
	_ = godotenv.Load()

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

	// repositories per aggregate
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	addressRepo := storage.NewAddressRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	rateRepo := storage.NewShippingRateRepository(application.DB)
	activityRepo := storage.NewActivityLogRepository(application.DB)

	gw := gateway.NewIyzicoClient(log, cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.SecretKey, cfg.Gateway.Timeout)
	notifier := notify.NewEmailNotifier(log, cfg.SMTP)

	authService := service.NewAuthService(log, userRepo, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	cartService := service.NewCartService(log, application.DB, cartRepo, productRepo)
	shippingService := service.NewShippingService(log, rateRepo, productRepo)
	checkoutService := service.NewCheckoutService(log, application.DB, cartRepo, productRepo, addressRepo,
		orderRepo, userRepo, shippingService, gw, notifier, activityRepo, cfg.Checkout)
	paymentService := service.NewPaymentService(log, orderRepo, gw, notifier, activityRepo)
	orderService := service.NewOrderService(log, orderRepo)

	router.Post("/api/auth/register", handlers.RegisterHandler(log, authService, cartService))
	router.Post("/api/auth/login", handlers.LoginHandler(log, authService, cartService))

	// payment notification paths carry no bearer token
	router.Post("/api/payment/callback", handlers.CallbackHandler(log, paymentService, cfg.Checkout))
	router.Post("/api/payment/webhook", handlers.WebhookHandler(log, paymentService))
	router.Get("/api/orders/id/{orderID}", handlers.OrderByIDHandler(log, orderService))
	router.Get("/api/orders/{orderNumber}", handlers.OrderHandler(log, orderService))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware())
		r.Get("/api/me/orders", handlers.MyOrdersHandler(log, orderService))
	})

	// cart and checkout serve both guests and signed-in users
	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewOptionalJWTMiddleware())
		r.Get("/api/cart", handlers.GetCartHandler(log, cartService))
		r.Post("/api/cart/items", handlers.AddCartItemHandler(log, cartService))
		r.Delete("/api/cart/items/{productID}", handlers.RemoveCartItemHandler(log, cartService))
		r.Post("/api/checkout", handlers.CheckoutHandler(log, checkoutService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
