package handler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/flicky/moodshop-api/internal/metrics"
	"github.com/flicky/moodshop-api/internal/middleware"
)

type Handlers struct {
	Auth     *AuthHandler
	Product  *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Order    *OrderHandler
	Health   *HealthHandler
}

type RouterOptions struct {
	AllowedOrigins []string
	SessionTTL     time.Duration
	SecureCookies  bool
	AuthRateLimit  float64
	AuthRateBurst  int
	// TrustedProxies may set X-Forwarded-For; nil trusts none, so the
	// client IP is the peer address.
	TrustedProxies []string
}

func NewRouter(h Handlers, parser middleware.TokenParser, opts RouterOptions, log *slog.Logger) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.SessionHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.SessionHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(metrics.Middleware(), middleware.RequestLogger(log))

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1", middleware.Session(opts.SessionTTL, opts.SecureCookies), middleware.OptionalAuth(parser))
	{
		v1.GET("/products", h.Product.List)
		v1.GET("/products/:id", h.Product.GetByID)
		v1.GET("/moods", h.Product.Moods)
		v1.GET("/moods/:mood/recommendations", h.Product.Recommend)
		v1.GET("/categories", h.Product.Categories)

		cart := v1.Group("/cart")
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.Clear)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:productId", h.Cart.UpdateItem)
		cart.DELETE("/items/:productId", h.Cart.DeleteItem)

		limiter := middleware.NewRateLimiter(opts.AuthRateLimit, opts.AuthRateBurst)
		auth := v1.Group("/auth")
		auth.POST("/otp", limiter.Handler(), h.Auth.SendOTP)
		auth.POST("/otp/verify", limiter.Handler(), h.Auth.VerifyOTP)
		auth.POST("/logout", middleware.RequireAuth(), h.Auth.Logout)
		auth.GET("/session", h.Auth.Session)

		co := v1.Group("/checkout")
		co.GET("", h.Checkout.Get)
		co.POST("", h.Checkout.Submit)
		co.DELETE("/submission", h.Checkout.CancelSubmission)

		orders := v1.Group("/orders")
		orders.GET("", middleware.RequireAuth(), h.Order.ListOrders)
		orders.GET("/:number", h.Order.GetOrder)
	}

	return router, nil
}
