package backend

import (
	"context"
	"net/url"

	"github.com/go-faster/jx"
)

type preferenceRequest struct {
	OrderID string `json:"pedido_id"`
}

// CreatePreference asks the backend to create a hosted-checkout preference
// for an existing order. A new preference may be requested repeatedly for
// the same order id after failures.
func (c *Client) CreatePreference(ctx context.Context, orderID string) (*Preference, error) {
	var pref Preference
	err := c.post(ctx, "/pagamentos/criar-preferencia", preferenceRequest{OrderID: orderID}, func(d *jx.Decoder) error {
		var err error
		pref, err = decodePreference(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// PaymentByOrder fetches the authoritative payment snapshot for an order.
// Returns an error matching ErrNotFound when no payment record exists.
func (c *Client) PaymentByOrder(ctx context.Context, orderID string) (*Payment, error) {
	return c.getPayment(ctx, "/pagamentos/pedido/"+url.PathEscape(orderID))
}

// PaymentByID fetches a payment snapshot by its own id.
func (c *Client) PaymentByID(ctx context.Context, paymentID string) (*Payment, error) {
	return c.getPayment(ctx, "/pagamentos/"+url.PathEscape(paymentID))
}

// RefreshStatus asks the backend to re-query the payment processor for the
// given processor payment id and returns the refreshed snapshot. This is
// the manual re-check entry point; there is no automatic polling.
func (c *Client) RefreshStatus(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	err := c.post(ctx, "/pagamentos/consultar-status/"+url.PathEscape(paymentID), nil, func(d *jx.Decoder) error {
		var err error
		p, err = decodePayment(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) getPayment(ctx context.Context, path string) (*Payment, error) {
	var p Payment
	err := c.get(ctx, path, nil, func(d *jx.Decoder) error {
		var err error
		p, err = decodePayment(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
