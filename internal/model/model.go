package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodCalm      Mood = "calm"
	MoodSad       Mood = "sad"
	MoodEnergetic Mood = "energetic"
)

// Moods lists every mood in display order.
var Moods = []Mood{MoodHappy, MoodCalm, MoodSad, MoodEnergetic}

func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodCalm, MoodSad, MoodEnergetic:
		return true
	}
	return false
}

type Category string

const (
	CategoryGiftSets    Category = "gift-sets"
	CategoryHome        Category = "home"
	CategoryWellness    Category = "wellness"
	CategoryElectronics Category = "electronics"
	CategoryStationery  Category = "stationery"
	CategoryFoodDrink   Category = "food-drink"
	CategoryDigital     Category = "digital"
)

var Categories = []Category{
	CategoryGiftSets, CategoryHome, CategoryWellness, CategoryElectronics,
	CategoryStationery, CategoryFoodDrink, CategoryDigital,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Mood        Mood
	Category    Category
}

// Session is the per-request view of who is shopping. It is built by
// middleware and handed to services explicitly.
type Session struct {
	ID       string
	LoggedIn bool
	UserID   uuid.UUID
	Email    string
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentPayPal     PaymentMethod = "paypal"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCreditCard || p == PaymentPayPal
}

type ShippingAddress struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,simple_email"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required,zip5"`
	Country string `json:"country" validate:"required"`
}

// Trimmed returns the address with surrounding whitespace removed from
// every field.
func (a ShippingAddress) Trimmed() ShippingAddress {
	return ShippingAddress{
		Name:    strings.TrimSpace(a.Name),
		Email:   strings.TrimSpace(a.Email),
		Address: strings.TrimSpace(a.Address),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Zip:     strings.TrimSpace(a.Zip),
		Country: strings.TrimSpace(a.Country),
	}
}

const (
	OrderStatusPaid = "paid"
)

type Order struct {
	ID            uuid.UUID
	Number        string
	SessionID     string
	UserID        *uuid.UUID
	Email         string
	Shipping      ShippingAddress
	PaymentMethod PaymentMethod
	TransactionID string
	Status        string
	Total         decimal.Decimal
	Items         []OrderItem
	CreatedAt     time.Time
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderMessage struct {
	OrderID uuid.UUID `json:"order_id"`
	Number  string    `json:"number"`
	Email   string    `json:"email"`
}
