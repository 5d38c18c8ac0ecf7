package model

import (
	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 99

// Cart keeps one line per product in insertion order. The subtotal is
// always derived from the lines and never stored.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Add inserts a line for p or raises the quantity of the existing one.
// Quantities below one count as one; the line saturates at MaxLineQuantity.
func (c *Cart) Add(p Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	quantity = min(quantity, MaxLineQuantity)
	if i := c.index(p.ID); i >= 0 {
		c.Items[i].Quantity = min(c.Items[i].Quantity+quantity, MaxLineQuantity)
		return
	}
	c.Items = append(c.Items, CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  quantity,
	})
}

func (c *Cart) Remove(productID int64) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// SetQuantity sets the line quantity, capped at MaxLineQuantity; zero or
// less removes the line.
func (c *Cart) SetQuantity(productID int64, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.Items[i].Quantity = min(quantity, MaxLineQuantity)
	}
}

// Deduct lowers the line by quantity, removing it once nothing is left.
func (c *Cart) Deduct(productID int64, quantity int) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	if c.Items[i].Quantity <= quantity {
		c.Remove(productID)
		return
	}
	c.Items[i].Quantity -= quantity
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) Item(productID int64) (CartItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

func (c *Cart) index(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
