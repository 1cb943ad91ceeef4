package backend

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Product is a catalog item as served by /produtos. Price comes over the
// wire as a decimal string; PromoPrice is zero when the product has no
// active promotion.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	PromoPrice  decimal.Decimal
	StoreID     string
	CategoryID  string
	ImageURL    string
	Active      bool
}

// Store is a marketplace vendor (lojista).
type Store struct {
	ID     string
	Name   string
	City   string
	Active bool
}

// ProductImage is one entry of a product's image gallery. Principal marks
// the cover image; Order gives gallery position.
type ProductImage struct {
	ID        string
	ProductID string
	URL       string
	Principal bool
	Order     int
}

// Customer mirrors the backend's cliente record.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CPF       string
	Address   string
	City      string
	State     string
	PostalCode string
	BirthDate string
	Active    bool
}

// Preference is the payment preference created for an order. InitPoint is
// the production hosted-checkout URL, SandboxInitPoint the test one.
type Preference struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
	PaymentID        string
	OrderID          string
}

// Status is the payment processor's settlement status.
type Status string

// Known payment statuses. Anything else is treated as an explicit unknown,
// never silently mapped to one of these.
const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Known reports whether s is one of the four documented statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Payment is the authoritative payment snapshot for an order. Read-only
// from the client's perspective; always fetched fresh.
type Payment struct {
	ID            string
	OrderID       string
	PreferenceID  string
	PaymentID     string
	Status        Status
	StatusDetail  string
	PaymentType   string
	PaymentMethod string
	Amount        decimal.Decimal
	PayerEmail    string
	InitPoint     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// --- jx decode helpers ---
//
// The backend is not under our control, so decoding is tolerant: unknown
// keys are skipped, null is accepted wherever a scalar is expected, and
// decimals arrive as either JSON strings or numbers.

func decStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decBool(d *jx.Decoder) (bool, error) {
	if d.Next() == jx.Null {
		return false, d.Null()
	}
	return d.Bool()
}

func decInt(d *jx.Decoder) (int, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int()
}

func decDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		if s == "" {
			return decimal.Zero, nil
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "decimal %q", s)
		}
		return v, nil
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "decimal %q", n.String())
		}
		return v, nil
	}
}

// timeLayouts covers the timestamp shapes the backend emits: full RFC 3339
// and naive ISO without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func decTime(d *jx.Decoder) (time.Time, error) {
	s, err := decStr(d)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("timestamp %q", s)
}

func decodeProduct(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decStr(d)
		case "nome":
			p.Name, err = decStr(d)
		case "descricao":
			p.Description, err = decStr(d)
		case "preco":
			p.Price, err = decDecimal(d)
		case "preco_promocional":
			p.PromoPrice, err = decDecimal(d)
		case "lojista_id":
			p.StoreID, err = decStr(d)
		case "categoria_id":
			p.CategoryID, err = decStr(d)
		case "imagem_url":
			p.ImageURL, err = decStr(d)
		case "ativo":
			p.Active, err = decBool(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

func decodeStore(d *jx.Decoder) (Store, error) {
	var s Store
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = decStr(d)
		case "nome":
			s.Name, err = decStr(d)
		case "cidade":
			s.City, err = decStr(d)
		case "ativo":
			s.Active, err = decBool(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return s, err
}

func decodeProductImage(d *jx.Decoder) (ProductImage, error) {
	var img ProductImage
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			img.ID, err = decStr(d)
		case "produto_id":
			img.ProductID, err = decStr(d)
		case "url":
			img.URL, err = decStr(d)
		case "principal":
			img.Principal, err = decBool(d)
		case "ordem":
			img.Order, err = decInt(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return img, err
}

func decodeCustomer(d *jx.Decoder) (Customer, error) {
	var c Customer
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = decStr(d)
		case "nome":
			c.Name, err = decStr(d)
		case "email":
			c.Email, err = decStr(d)
		case "telefone":
			c.Phone, err = decStr(d)
		case "cpf":
			c.CPF, err = decStr(d)
		case "endereco":
			c.Address, err = decStr(d)
		case "cidade":
			c.City, err = decStr(d)
		case "estado":
			c.State, err = decStr(d)
		case "cep":
			c.PostalCode, err = decStr(d)
		case "data_nascimento":
			c.BirthDate, err = decStr(d)
		case "ativo":
			c.Active, err = decBool(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodePreference(d *jx.Decoder) (Preference, error) {
	var p Preference
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decStr(d)
		case "init_point":
			p.InitPoint, err = decStr(d)
		case "sandbox_init_point":
			p.SandboxInitPoint, err = decStr(d)
		case "pagamento_id":
			p.PaymentID, err = decStr(d)
		case "pedido_id":
			p.OrderID, err = decStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

func decodePayment(d *jx.Decoder) (Payment, error) {
	var p Payment
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decStr(d)
		case "pedido_id":
			p.OrderID, err = decStr(d)
		case "preference_id":
			p.PreferenceID, err = decStr(d)
		case "payment_id":
			p.PaymentID, err = decStr(d)
		case "status":
			var s string
			s, err = decStr(d)
			p.Status = Status(s)
		case "status_detail":
			p.StatusDetail, err = decStr(d)
		case "payment_type":
			p.PaymentType, err = decStr(d)
		case "payment_method":
			p.PaymentMethod, err = decStr(d)
		case "valor":
			p.Amount, err = decDecimal(d)
		case "payer_email":
			p.PayerEmail, err = decStr(d)
		case "init_point":
			p.InitPoint, err = decStr(d)
		case "criado_em":
			p.CreatedAt, err = decTime(d)
		case "atualizado_em":
			p.UpdatedAt, err = decTime(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}
