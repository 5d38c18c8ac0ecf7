package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/moodshop-api/internal/checkout"
	"github.com/flicky/moodshop-api/internal/config"
	"github.com/flicky/moodshop-api/internal/dto"
	"github.com/flicky/moodshop-api/internal/mail"
	"github.com/flicky/moodshop-api/internal/middleware"
	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/payment"
	"github.com/flicky/moodshop-api/internal/repository"
	"github.com/flicky/moodshop-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- in-memory Postgres stand-ins ---

type memUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byEmail[user.Email]; ok {
		*user = *existing
		return nil
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	cp := *user
	r.byEmail[user.Email] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byEmail[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	seq    int
	orders map[uuid.UUID]*model.Order
}

func (r *memOrderRepo) Create(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.Number = "MS-" + decimal.NewFromInt(int64(1000+r.seq)).String()
	order.CreatedAt = time.Now()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (r *memOrderRepo) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Number == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, o := range r.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- server under test ---

type testServer struct {
	router *gin.Engine
	orders *memOrderRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		SessionTTL:     time.Hour,
		AuthRateLimit:  100,
		AuthRateBurst:  100,
	})
}

func newTestServerWith(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	orders := &memOrderRepo{orders: map[uuid.UUID]*model.Order{}}
	users := &memUserRepo{byEmail: map[string]*model.User{}}
	products := repository.NewStaticProductRepository()
	carts := repository.NewCartStore(rdb, time.Hour)

	authSvc := service.NewAuthService(
		users,
		repository.NewOTPStore(rdb),
		repository.NewTokenDenylist(rdb),
		mail.NewSender(config.SMTPConfig{From: "shop@example.com"}, log),
		config.JWTConfig{Secret: "test-secret", Expiration: time.Hour},
		config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3, DemoMode: true},
	)
	checkoutSvc := service.NewCheckoutService(
		carts,
		repository.NewFlowStore(rdb, time.Hour),
		orders,
		payment.NewSimulatedGateway(0, decimal.NewFromInt(10000)),
		nil,
		true,
	)

	h := Handlers{
		Auth:     NewAuthHandler(authSvc),
		Product:  NewProductHandler(service.NewProductService(products, rdb)),
		Cart:     NewCartHandler(service.NewCartService(carts, products)),
		Checkout: NewCheckoutHandler(checkoutSvc),
		Order:    NewOrderHandler(service.NewOrderService(orders)),
		Health:   NewHealthHandler(nil, rdb, nil),
	}
	router, err := NewRouter(h, authSvc, opts, log)
	require.NoError(t, err)

	return &testServer{router: router, orders: orders}
}

type client struct {
	srv       *testServer
	sessionID string
	token     string
}

func (s *testServer) newClient() *client { return &client{srv: s} }

func (c *client) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(middleware.SessionHeader, c.sessionID)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.srv.router.ServeHTTP(w, req)
	if id := w.Header().Get(middleware.SessionHeader); id != "" {
		c.sessionID = id
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func validCheckout() dto.CheckoutRequest {
	return dto.CheckoutRequest{
		Shipping: model.ShippingAddress{
			Name: "Jane Doe", Email: "jane@example.com", Address: "123 Main St",
			City: "Anytown", State: "CA", Zip: "12345", Country: "United States",
		},
		PaymentMethod: model.PaymentPayPal,
	}
}

// --- tests ---

func TestProducts(t *testing.T) {
	c := newTestServer(t).newClient()

	w := c.do(t, http.MethodGet, "/api/v1/products?mood=calm&sort=price-low", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.ProductListResponse](t, w)
	require.Equal(t, 4, list.Total)
	for _, p := range list.Products {
		assert.Equal(t, model.MoodCalm, p.Mood)
	}
	assert.Equal(t, "Sound Machine", list.Products[0].Name)

	w = c.do(t, http.MethodGet, "/api/v1/products?mood=grumpy", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(t, http.MethodGet, "/api/v1/products/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Meditation Cushion", decode[dto.ProductResponse](t, w).Name)

	w = c.do(t, http.MethodGet, "/api/v1/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(t, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendations(t *testing.T) {
	c := newTestServer(t).newClient()

	w := c.do(t, http.MethodGet, "/api/v1/moods/energetic/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[dto.RecommendationResponse](t, w)
	assert.Equal(t, model.MoodEnergetic, rec.Mood)
	assert.NotEmpty(t, rec.Products)

	w = c.do(t, http.MethodGet, "/api/v1/moods", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]dto.MoodResponse](t, w)["moods"], 4)
}

func TestCart(t *testing.T) {
	c := newTestServer(t).newClient()

	w := c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	cart := decode[dto.CartResponse](t, w)
	assert.Equal(t, 2, cart.ItemCount)
	assert.Equal(t, "79.98", cart.Subtotal.StringFixed(2))

	// quantity defaults to one
	w = c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 3, decode[dto.CartResponse](t, w).ItemCount)

	w = c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 404})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// oversized quantities are rejected before they reach the cart
	w = c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1, "quantity": int64(math.MaxInt64)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do(t, http.MethodPut, "/api/v1/cart/items/1", gin.H{"quantity": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 3, decode[dto.CartResponse](t, w).ItemCount)

	w = c.do(t, http.MethodPut, "/api/v1/cart/items/1", gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	cart = decode[dto.CartResponse](t, w)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)

	w = c.do(t, http.MethodDelete, "/api/v1/cart/items/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.CartResponse](t, w).Items)

	// another session sees its own cart
	other := c.srv.newClient()
	w = other.do(t, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[dto.CartResponse](t, w).ItemCount)
	assert.NotEqual(t, c.sessionID, other.sessionID)
}

func TestCheckout_EmptyCartRedirects(t *testing.T) {
	c := newTestServer(t).newClient()

	w := c.do(t, http.MethodGet, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "/cart", decode[map[string]string](t, w)["redirect"])
}

func TestCheckout_GuestPlacesOrder(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newClient()

	require.Equal(t, http.StatusCreated, c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 5, "quantity": 2}).Code)

	w := c.do(t, http.MethodGet, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, checkout.StateFilling, decode[dto.CheckoutResponse](t, w).State)

	w = c.do(t, http.MethodPost, "/api/v1/checkout", validCheckout())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[dto.CheckoutResponse](t, w)
	assert.Equal(t, checkout.StateComplete, resp.State)
	require.NotNil(t, resp.Order)
	assert.Equal(t, resp.OrderNumber, resp.Order.Number)
	assert.Equal(t, "49.98", resp.Order.Total.StringFixed(2))
	assert.True(t, strings.HasPrefix(resp.OrderNumber, "MS-"))

	w = c.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Zero(t, decode[dto.CartResponse](t, w).ItemCount)

	// the confirmation stays visible
	w = c.do(t, http.MethodGet, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, resp.OrderNumber, decode[dto.CheckoutResponse](t, w).OrderNumber)

	w = c.do(t, http.MethodGet, "/api/v1/orders/"+resp.OrderNumber, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.newClient().do(t, http.MethodGet, "/api/v1/orders/"+resp.OrderNumber, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.do(t, http.MethodGet, "/api/v1/orders/MS-0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckout_InvalidForm(t *testing.T) {
	c := newTestServer(t).newClient()
	require.Equal(t, http.StatusCreated, c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 3}).Code)

	req := validCheckout()
	req.Shipping.Zip = "12"
	req.PaymentMethod = model.PaymentCreditCard

	w := c.do(t, http.MethodPost, "/api/v1/checkout", req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	assert.Contains(t, body.Fields, "zip")
	assert.Contains(t, body.Fields, "card_number")

	w = c.do(t, http.MethodGet, "/api/v1/checkout", nil)
	resp := decode[dto.CheckoutResponse](t, w)
	assert.Equal(t, checkout.StateFilling, resp.State)
	assert.Equal(t, "Jane Doe", resp.Shipping.Name)
	assert.Empty(t, c.srv.orders.orders)
}

func TestCheckout_DeclinedCardKeepsCart(t *testing.T) {
	c := newTestServer(t).newClient()
	require.Equal(t, http.StatusCreated, c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 15}).Code)

	req := validCheckout()
	req.PaymentMethod = model.PaymentCreditCard
	req.Card = &checkout.Card{Number: payment.DeclinedTestCard, Expiry: "12/30", CVC: "123"}

	w := c.do(t, http.MethodPost, "/api/v1/checkout", req)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "card declined", decode[map[string]string](t, w)["reason"])

	w = c.do(t, http.MethodGet, "/api/v1/checkout", nil)
	resp := decode[dto.CheckoutResponse](t, w)
	assert.Equal(t, checkout.StateFilling, resp.State)
	assert.Equal(t, "card declined", resp.LastError)
	assert.Equal(t, 1, resp.Cart.ItemCount)

	req.Card.Number = "4242 4242 4242 4242"
	w = c.do(t, http.MethodPost, "/api/v1/checkout", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCheckout_CancelWithoutSubmission(t *testing.T) {
	c := newTestServer(t).newClient()
	w := c.do(t, http.MethodDelete, "/api/v1/checkout/submission", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth_OTPLoginAndLogout(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newClient()

	w := c.do(t, http.MethodPost, "/api/v1/auth/otp", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(t, http.MethodPost, "/api/v1/auth/otp", gin.H{"email": "Jane@Example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	sent := decode[dto.SendOTPResponse](t, w)
	require.Len(t, sent.DemoCode, 6)

	wrong := "000000"
	if sent.DemoCode == wrong {
		wrong = "111111"
	}
	w = c.do(t, http.MethodPost, "/api/v1/auth/otp/verify", gin.H{"email": "jane@example.com", "code": wrong})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(t, http.MethodPost, "/api/v1/auth/otp/verify", gin.H{"email": "jane@example.com", "code": sent.DemoCode})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	auth := decode[dto.AuthResponse](t, w)
	assert.True(t, auth.IsNewUser)
	assert.Equal(t, "jane@example.com", auth.User.Email)
	c.token = auth.Token

	w = c.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[dto.SessionResponse](t, w)
	assert.True(t, session.LoggedIn)
	assert.Equal(t, "jane@example.com", session.Email)

	// a logged-in order is listed for the user
	require.Equal(t, http.StatusCreated, c.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1}).Code)
	require.Equal(t, http.StatusOK, c.do(t, http.MethodGet, "/api/v1/checkout", nil).Code)
	w = c.do(t, http.MethodPost, "/api/v1/checkout", validCheckout())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(t, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.OrderListResponse](t, w)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "jane@example.com", list.Orders[0].Email)

	w = c.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = c.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c.token = ""
	w = c.do(t, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t).newClient()

	assert.Equal(t, http.StatusOK, c.do(t, http.MethodGet, "/healthz", nil).Code)

	w := c.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "connected", decode[map[string]string](t, w)["redis"])
}

func TestAuthRateLimit_IgnoresForwardedFor(t *testing.T) {
	srv := newTestServerWith(t, RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
		SessionTTL:     time.Hour,
		AuthRateLimit:  0.001,
		AuthRateBurst:  1,
	})

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/otp", strings.NewReader(`{"email":"jane@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", "203.0.113."+strings.Repeat("1", i+1))
		req.RemoteAddr = "198.51.100.7:4000"
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 429, 429, 429, 429}, codes)
}

func TestNewRouter_InvalidTrustedProxy(t *testing.T) {
	_, err := NewRouter(Handlers{}, nil, RouterOptions{TrustedProxies: []string{"not-an-ip"}}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	assert.Error(t, err)
}
