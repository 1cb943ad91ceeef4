// Package payment resolves the outcome of a payment after the customer
// returns from the hosted checkout page. The status query parameters on
// the return URL are informational only; the backend's payment record is
// the single source of truth.
package payment

import (
	"context"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feiralocal/storefront/internal/backend"
)

// ErrMissingReference is returned when the return URL carries no
// external_reference parameter. Fatal: without an order id there is
// nothing to resolve and no status fetch is attempted.
var ErrMissingReference = errors.New("order reference missing from return URL")

// StatusAPI is the slice of the backend client the resolver needs.
type StatusAPI interface {
	PaymentByOrder(ctx context.Context, orderID string) (*backend.Payment, error)
	RefreshStatus(ctx context.Context, paymentID string) (*backend.Payment, error)
}

// Return holds the query parameters the payment processor appends to the
// redirect back to the storefront. PaymentID and Status are never trusted
// over a fresh status fetch.
type Return struct {
	OrderID   string
	PaymentID string
	Status    string
}

// ParseReturn extracts the return parameters from the redirect URL query.
func ParseReturn(q url.Values) (Return, error) {
	r := Return{
		OrderID:   q.Get("external_reference"),
		PaymentID: q.Get("payment_id"),
		Status:    q.Get("status"),
	}
	if r.OrderID == "" {
		return Return{}, ErrMissingReference
	}
	return r, nil
}

// Kind is one of the mutually exclusive terminal render states.
type Kind string

const (
	// KindApproved: payment settled, show confirmation.
	KindApproved Kind = "approved"
	// KindPending: still processing, show waiting state.
	KindPending Kind = "pending"
	// KindRejected: payment refused, offer retry with the same order.
	KindRejected Kind = "rejected"
	// KindCancelled: payment cancelled, offer retry with the same order.
	KindCancelled Kind = "cancelled"
	// KindNotFound: no payment record exists, or the fetch itself failed.
	// Deliberately distinct from the failure kinds above.
	KindNotFound Kind = "not_found"
	// KindUnknown: the backend reported a status outside the four known
	// values. Treated as failure with the raw status kept for diagnostics.
	KindUnknown Kind = "unknown"
)

// Outcome is the resolved terminal state for a payment.
type Outcome struct {
	Kind          Kind
	OrderID       string
	PaymentID     string
	Amount        decimal.Decimal
	PaymentMethod string
	StatusDetail  string
	PayerEmail    string

	// RawStatus carries the unrecognized backend status for KindUnknown.
	RawStatus string
	// Retryable is true when the customer should be sent back to checkout
	// with the same order id.
	Retryable bool
	// Err holds the fetch error for KindNotFound outcomes caused by a
	// transport or backend failure rather than a missing record.
	Err error
}

// Resolver fetches and classifies payment outcomes.
type Resolver struct {
	api StatusAPI
}

// NewResolver creates a Resolver backed by the given status API.
func NewResolver(api StatusAPI) *Resolver {
	return &Resolver{api: api}
}

// Resolve performs a single authoritative status fetch for the order and
// maps it to exactly one outcome. Absence of a payment record and a
// rejected payment are never conflated.
func (r *Resolver) Resolve(ctx context.Context, orderID string) Outcome {
	p, err := r.api.PaymentByOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			zctx.From(ctx).Error("Payment status fetch failed",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
		return Outcome{Kind: KindNotFound, OrderID: orderID, Err: err}
	}
	return classify(ctx, p)
}

// Recheck asks the backend to re-query the payment processor and
// classifies the refreshed snapshot. Manual entry point; the resolver
// never polls on its own.
func (r *Resolver) Recheck(ctx context.Context, paymentID string) Outcome {
	p, err := r.api.RefreshStatus(ctx, paymentID)
	if err != nil {
		return Outcome{Kind: KindNotFound, PaymentID: paymentID, Err: err}
	}
	return classify(ctx, p)
}

func classify(ctx context.Context, p *backend.Payment) Outcome {
	out := Outcome{
		OrderID:       p.OrderID,
		PaymentID:     p.ID,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		StatusDetail:  p.StatusDetail,
		PayerEmail:    p.PayerEmail,
	}

	switch p.Status {
	case backend.StatusApproved:
		out.Kind = KindApproved
	case backend.StatusPending:
		out.Kind = KindPending
	case backend.StatusRejected:
		out.Kind = KindRejected
		out.Retryable = true
	case backend.StatusCancelled:
		out.Kind = KindCancelled
		out.Retryable = true
	default:
		// Explicit fallback, never a silent default.
		zctx.From(ctx).Warn("Unknown payment status",
			zap.String("order_id", p.OrderID),
			zap.String("status", string(p.Status)),
		)
		out.Kind = KindUnknown
		out.RawStatus = string(p.Status)
		out.Retryable = true
	}
	return out
}
