package backend

import (
	"context"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order-creation request.
type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Name      string
	StoreID   string
}

// OrderRequest is the body for POST /pedidos. Totals are computed by the
// caller from the cart snapshot; the backend assigns the order id.
type OrderRequest struct {
	Items       []OrderItem
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
	Address     string
}

// MarshalJSON encodes the request with the backend's Portuguese field
// names. Monetary values are emitted as JSON numbers, not strings.
func (o OrderRequest) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("itens")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("produto_id")
		e.Str(item.ProductID)
		e.FieldStart("quantidade")
		e.Int(item.Quantity)
		e.FieldStart("preco_unitario")
		e.Num(jx.Num(item.UnitPrice.String()))
		e.FieldStart("nome")
		e.Str(item.Name)
		e.FieldStart("loja_id")
		e.Str(item.StoreID)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	e.Num(jx.Num(o.Subtotal.String()))
	e.FieldStart("taxa_entrega")
	e.Num(jx.Num(o.DeliveryFee.String()))
	e.FieldStart("total")
	e.Num(jx.Num(o.Total.String()))
	e.FieldStart("endereco")
	e.Str(o.Address)
	e.ObjEnd()
	return e.Bytes(), nil
}

// CreateOrder submits an order and returns the backend-assigned order id.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	var orderID string
	err := c.post(ctx, "/pedidos", req, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key == "id" {
				var err error
				orderID, err = decStr(d)
				return err
			}
			return d.Skip()
		})
	})
	if err != nil {
		return "", err
	}
	return orderID, nil
}
