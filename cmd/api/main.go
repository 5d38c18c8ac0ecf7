package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/moodshop-api/internal/config"
	"github.com/flicky/moodshop-api/internal/database"
	"github.com/flicky/moodshop-api/internal/handler"
	"github.com/flicky/moodshop-api/internal/logging"
	"github.com/flicky/moodshop-api/internal/mail"
	"github.com/flicky/moodshop-api/internal/payment"
	"github.com/flicky/moodshop-api/internal/repository"
	"github.com/flicky/moodshop-api/internal/service"
	"github.com/flicky/moodshop-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	if cfg.DB.Migrate {
		if err := database.Migrate(cfg.DB.DSN()); err != nil {
			log.Error("run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	dbPool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer consumeCh.Close()

	publishCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer publishCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories and stores
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	cartStore := repository.NewCartStore(redisClient, cfg.Cart.TTL)
	flowStore := repository.NewFlowStore(redisClient, cfg.Checkout.FlowTTL)
	otpStore := repository.NewOTPStore(redisClient)
	denylist := repository.NewTokenDenylist(redisClient)

	mailer := mail.NewSender(cfg.SMTP, log)
	gateway := payment.NewSimulatedGateway(cfg.Payment.Delay, cfg.Payment.DeclineOver)
	publisher := worker.NewPublisher(publishCh)

	// Services
	authSvc := service.NewAuthService(userRepo, otpStore, denylist, mailer, cfg.JWT, cfg.OTP)
	productSvc := service.NewProductService(productRepo, redisClient)
	cartSvc := service.NewCartService(cartStore, productRepo)
	checkoutSvc := service.NewCheckoutService(cartStore, flowStore, orderRepo, gateway, publisher, cfg.Checkout.AllowGuest)
	orderSvc := service.NewOrderService(orderRepo)

	// Worker
	orderWorker := worker.NewOrderWorker(consumeCh, orderRepo, mailer, redisClient, log)

	gin.SetMode(gin.ReleaseMode)
	router, err := handler.NewRouter(handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Product:  handler.NewProductHandler(productSvc),
		Cart:     handler.NewCartHandler(cartSvc),
		Checkout: handler.NewCheckoutHandler(checkoutSvc),
		Order:    handler.NewOrderHandler(orderSvc),
		Health:   handler.NewHealthHandler(dbPool, redisClient, amqpConn),
	}, authSvc, handler.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SessionTTL:     cfg.Cart.TTL,
		SecureCookies:  cfg.Server.SecureCookies,
		AuthRateLimit:  cfg.Server.AuthRateLimit,
		AuthRateBurst:  cfg.Server.AuthRateBurst,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, log)
	if err != nil {
		log.Error("build router", "error", err)
		os.Exit(1)
	}

	if err := orderWorker.Start(ctx); err != nil {
		log.Error("start invoice worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	orderWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
