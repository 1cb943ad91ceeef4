package backend

import (
	"context"
	"net/url"

	"github.com/go-faster/jx"
)

// NewCustomer is the registration payload for POST /clientes/.
type NewCustomer struct {
	Name      string `json:"nome"`
	Email     string `json:"email"`
	Phone     string `json:"telefone"`
	CPF       string `json:"cpf"`
	Address   string `json:"endereco"`
	City      string `json:"cidade"`
	State     string `json:"estado"`
	PostalCode string `json:"cep"`
}

// CustomerByEmail looks up a customer account by email. Returns an error
// matching ErrNotFound when no account exists.
func (c *Client) CustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	return c.getCustomer(ctx, "/clientes/por-email/"+url.PathEscape(email))
}

// CustomerByCPF looks up a customer account by CPF (digits only).
func (c *Client) CustomerByCPF(ctx context.Context, cpf string) (*Customer, error) {
	return c.getCustomer(ctx, "/clientes/por-cpf/"+url.PathEscape(cpf))
}

func (c *Client) getCustomer(ctx context.Context, path string) (*Customer, error) {
	var cust Customer
	err := c.get(ctx, path, nil, func(d *jx.Decoder) error {
		var err error
		cust, err = decodeCustomer(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

// CreateCustomer registers a new customer account and returns the created
// record.
func (c *Client) CreateCustomer(ctx context.Context, nc NewCustomer) (*Customer, error) {
	var cust Customer
	err := c.post(ctx, "/clientes/", nc, func(d *jx.Decoder) error {
		var err error
		cust, err = decodeCustomer(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &cust, nil
}
