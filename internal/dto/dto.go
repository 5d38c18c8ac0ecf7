package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/moodshop-api/internal/checkout"
	"github.com/flicky/moodshop-api/internal/model"
)

// --- Auth ---

type SendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

type SendOTPResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
	// DemoCode is only filled in demo mode.
	DemoCode string `json:"demo_code,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	IsNewUser bool         `json:"is_new_user"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	LoggedIn  bool   `json:"logged_in"`
	Email     string `json:"email,omitempty"`
}

// --- Product ---

type ListProductsRequest struct {
	Mood     string `form:"mood,default=all"`
	Category string `form:"category,default=all"`
	Search   string `form:"search"`
	Sort     string `form:"sort,default=featured"`
}

type ProductResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Image         string          `json:"image"`
	Mood          model.Mood      `json:"mood"`
	Category      model.Category  `json:"category"`
	CategoryLabel string          `json:"category_label"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

type MoodResponse struct {
	Mood        model.Mood `json:"mood"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
}

type CategoryResponse struct {
	ID    model.Category `json:"id"`
	Label string         `json:"label"`
}

type RecommendationResponse struct {
	MoodResponse
	Products []ProductResponse `json:"products"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	// Quantity defaults to 1 when omitted.
	Quantity int `json:"quantity" binding:"omitempty,min=1,max=99"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,max=99"`
}

type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
}

type CartItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// --- Checkout ---

type CheckoutRequest struct {
	Shipping      model.ShippingAddress `json:"shipping"`
	PaymentMethod model.PaymentMethod   `json:"payment_method"`
	Card          *checkout.Card        `json:"card,omitempty"`
}

type CheckoutResponse struct {
	State         checkout.State        `json:"state"`
	Shipping      model.ShippingAddress `json:"shipping"`
	PaymentMethod model.PaymentMethod   `json:"payment_method,omitempty"`
	LastError     string                `json:"last_error,omitempty"`
	OrderNumber   string                `json:"order_number,omitempty"`
	Cart          CartResponse          `json:"cart"`
	Order         *OrderResponse        `json:"order,omitempty"`
}

// --- Order ---

type OrderResponse struct {
	ID            uuid.UUID             `json:"id"`
	Number        string                `json:"number"`
	Email         string                `json:"email"`
	Shipping      model.ShippingAddress `json:"shipping"`
	PaymentMethod model.PaymentMethod   `json:"payment_method"`
	TransactionID string                `json:"transaction_id"`
	Status        string                `json:"status"`
	Items         []OrderItemResponse   `json:"items"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	ShippingCost  decimal.Decimal       `json:"shipping_cost"`
	Total         decimal.Decimal       `json:"total"`
	CreatedAt     time.Time             `json:"created_at"`
}

type OrderItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}
