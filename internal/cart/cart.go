// Package cart implements the in-memory shopping cart: a slice of line
// items mutated through a pure reducer, plus derived totals.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// deliveryFee is the flat courier fee charged on any non-empty cart.
var deliveryFee = decimal.RequireFromString("8.00")

// FlatDeliveryFee returns the flat courier fee applied to non-empty carts.
func FlatDeliveryFee() decimal.Decimal {
	return deliveryFee
}

// Product describes a purchasable catalog item as the cart needs it.
// Descriptive fields are carried through to order building and display.
type Product struct {
	ID        string
	Name      string
	Image     string
	StoreID   string
	StoreName string
	Price     decimal.Decimal
}

// LineItem is a product plus the quantity the customer intends to buy.
// Quantity is always >= 1; removing the line is the only way to reach zero.
type LineItem struct {
	Product
	Quantity int
}

// Action is a cart state transition. Exactly one of Add, ChangeQuantity or
// Remove.
type Action interface {
	isAction()
}

// Add appends a new line with quantity 1, or increments the existing line
// for the same product id.
type Add struct {
	Product Product
}

// ChangeQuantity applies a delta to a line's quantity, clamped at 1.
// Unknown product ids are ignored.
type ChangeQuantity struct {
	ProductID string
	Delta     int
}

// Remove deletes a line entirely. Unknown product ids are ignored.
type Remove struct {
	ProductID string
}

func (Add) isAction()            {}
func (ChangeQuantity) isAction() {}
func (Remove) isAction()         {}

// Reduce applies a single action to the current items and returns the next
// state. The input slice is never mutated; insertion order is preserved.
func Reduce(items []LineItem, a Action) []LineItem {
	switch act := a.(type) {
	case Add:
		next := make([]LineItem, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID == act.Product.ID {
				next[i].Quantity++
				return next
			}
		}
		return append(next, LineItem{Product: act.Product, Quantity: 1})

	case ChangeQuantity:
		next := make([]LineItem, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID == act.ProductID {
				q := next[i].Quantity + act.Delta
				if q < 1 {
					q = 1
				}
				next[i].Quantity = q
				break
			}
		}
		return next

	case Remove:
		next := make([]LineItem, 0, len(items))
		for _, item := range items {
			if item.ID != act.ProductID {
				next = append(next, item)
			}
		}
		return next
	}
	return items
}

// Cart holds the current line items behind a mutex. Handlers for the same
// browser session may run on different goroutines, so every access goes
// through the lock; all transitions go through Reduce.
type Cart struct {
	mu    sync.Mutex
	items []LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Dispatch applies an action to the cart.
func (c *Cart) Dispatch(a Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = Reduce(c.items, a)
}

// Items returns a copy of the current line items in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	return items
}

// Count is the sum of all line quantities. Recomputed on every read so it
// can never desync from the items.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Subtotal is the sum over items of price * quantity.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subtotal(c.items)
}

// DeliveryFee is the flat fee, or zero for an empty cart.
func (c *Cart) DeliveryFee() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fee(c.items)
}

// Total is Subtotal + DeliveryFee, computed under a single lock so the two
// terms come from the same snapshot.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subtotal(c.items).Add(fee(c.items))
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

func fee(items []LineItem) decimal.Decimal {
	if subtotal(items).IsPositive() {
		return deliveryFee
	}
	return decimal.Zero
}
