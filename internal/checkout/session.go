// Package checkout drives the order/payment flow for one storefront
// session: it turns the cart into a backend order exactly once, requests a
// payment preference for that order, and hands out the hosted-checkout
// redirect URL.
package checkout

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feiralocal/storefront/internal/backend"
	"github.com/feiralocal/storefront/internal/cart"
)

// Sentinel errors for checkout preconditions.
var (
	// ErrEmptyCart is returned when checkout is entered with nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNoOrder is returned when payment is requested before an order
	// exists. Surfaced immediately; no backend call is made.
	ErrNoOrder = errors.New("order not yet created")
)

// OrderAPI is the slice of the backend client order submission needs.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req backend.OrderRequest) (string, error)
}

// PaymentAPI is the slice of the backend client payment handoff needs.
type PaymentAPI interface {
	CreatePreference(ctx context.Context, orderID string) (*backend.Preference, error)
}

// State is the order submission state for a session.
type State int

const (
	// StateNone means no order has been attempted yet.
	StateNone State = iota
	// StateCreating means an order-creation request is in flight.
	StateCreating
	// StateCreated means the backend assigned an order id.
	StateCreated
	// StateFailed means the last creation attempt failed; retry allowed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateCreating:
		return "creating"
	case StateCreated:
		return "created"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Session is the checkout state machine for one storefront session. The
// cart is owned by the session; order and preference are owned by the
// backend once created, the session only holds their ids.
type Session struct {
	cart     *cart.Cart
	orders   OrderAPI
	payments PaymentAPI
	sandbox  bool

	mu        sync.Mutex
	state     State
	orderID   string
	paymentID string

	// gen is bumped by Reset. A Submit result whose generation no longer
	// matches must not be applied: the session it belonged to is gone.
	gen uint64
}

// NewSession creates a checkout session around the given cart. When
// sandbox is true, Pay returns the sandbox redirect URL.
func NewSession(c *cart.Cart, orders OrderAPI, payments PaymentAPI, sandbox bool) *Session {
	return &Session{
		cart:     c,
		orders:   orders,
		payments: payments,
		sandbox:  sandbox,
	}
}

// Cart returns the session's cart.
func (s *Session) Cart() *cart.Cart {
	return s.cart
}

// State returns the current order submission state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OrderID returns the backend-assigned order id, or "" before creation.
func (s *Session) OrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderID
}

// Submit creates a backend order from the current cart snapshot. It is
// idempotent per session: when an order already exists or a creation
// request is in flight, Submit returns immediately without issuing a
// second request. On failure the cart is left untouched and the session
// moves to StateFailed so the user can retry.
func (s *Session) Submit(ctx context.Context, address string) error {
	items := s.cart.Items()
	if len(items) == 0 {
		return ErrEmptyCart
	}

	s.mu.Lock()
	if s.state == StateCreating || s.state == StateCreated {
		s.mu.Unlock()
		return nil
	}
	s.state = StateCreating
	gen := s.gen
	s.mu.Unlock()

	req := buildOrderRequest(items, address)
	orderID, err := s.orders.CreateOrder(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// Session was reset while the request was in flight; the result
		// must not touch the new state.
		zctx.From(ctx).Debug("Discarding stale order result", zap.String("order_id", orderID))
		return nil
	}
	if err != nil {
		s.state = StateFailed
		return errors.Wrap(err, "create order")
	}
	s.state = StateCreated
	s.orderID = orderID
	return nil
}

// Pay requests a payment preference for the created order and returns the
// redirect URL for the hosted payment page. This is a one-way handoff;
// the return leg is handled by the payment status resolver. On failure
// the order id is retained so a new preference can be requested.
func (s *Session) Pay(ctx context.Context) (string, error) {
	s.mu.Lock()
	orderID := s.orderID
	gen := s.gen
	s.mu.Unlock()

	if orderID == "" {
		return "", ErrNoOrder
	}

	pref, err := s.payments.CreatePreference(ctx, orderID)
	if err != nil {
		return "", errors.Wrap(err, "create preference")
	}

	s.mu.Lock()
	if s.gen == gen {
		s.paymentID = pref.PaymentID
	}
	s.mu.Unlock()

	zctx.From(ctx).Info("Payment handoff",
		zap.String("order_id", orderID),
		zap.String("preference_id", pref.ID),
		zap.Bool("sandbox", s.sandbox),
	)

	if s.sandbox {
		return pref.SandboxInitPoint, nil
	}
	return pref.InitPoint, nil
}

// PaymentID returns the payment id from the last created preference, or ""
// when none exists yet.
func (s *Session) PaymentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentID
}

// Reset abandons the current checkout attempt: clears the cart and order
// state and invalidates any in-flight results.
func (s *Session) Reset() {
	s.cart.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateNone
	s.orderID = ""
	s.paymentID = ""
}

// buildOrderRequest converts a cart snapshot into an order-creation
// request, recomputing totals from the same snapshot.
func buildOrderRequest(items []cart.LineItem, address string) backend.OrderRequest {
	req := backend.OrderRequest{
		Items:   make([]backend.OrderItem, len(items)),
		Address: address,
	}
	for i, item := range items {
		req.Items[i] = backend.OrderItem{
			ProductID: item.ID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Name:      item.Name,
			StoreID:   item.StoreID,
		}
		req.Subtotal = req.Subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if req.Subtotal.IsPositive() {
		req.DeliveryFee = cart.FlatDeliveryFee()
	}
	req.Total = req.Subtotal.Add(req.DeliveryFee)
	return req
}
