package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/go-faster/jx"
)

// ProductFilter narrows a product listing. Zero values mean "no filter";
// Limit defaults to 50.
type ProductFilter struct {
	StoreID    string
	CategoryID string
	Active     *bool
	Skip       int
	Limit      int
}

// ListProducts fetches a page of products matching the filter.
func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	if f.StoreID != "" {
		q.Set("lojista_id", f.StoreID)
	}
	if f.CategoryID != "" {
		q.Set("categoria_id", f.CategoryID)
	}
	if f.Active != nil {
		q.Set("ativo", strconv.FormatBool(*f.Active))
	}
	q.Set("skip", strconv.Itoa(f.Skip))
	q.Set("limit", strconv.Itoa(limit))

	var products []Product
	err := c.get(ctx, "/produtos/", q, func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			p, err := decodeProduct(d)
			if err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a single product by id. Returns an error matching
// ErrNotFound when the product does not exist.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := c.get(ctx, "/produtos/"+url.PathEscape(id), nil, func(d *jx.Decoder) error {
		var err error
		p, err = decodeProduct(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListStores fetches a page of vendors.
func (c *Client) ListStores(ctx context.Context, skip, limit int) ([]Store, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var stores []Store
	err := c.get(ctx, "/lojistas/", q, func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			s, err := decodeStore(d)
			if err != nil {
				return err
			}
			stores = append(stores, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stores, nil
}

// GetStore fetches a single vendor by id.
func (c *Client) GetStore(ctx context.Context, id string) (*Store, error) {
	var s Store
	err := c.get(ctx, "/lojistas/"+url.PathEscape(id), nil, func(d *jx.Decoder) error {
		var err error
		s, err = decodeStore(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListProductImages fetches a product's image gallery in backend order.
func (c *Client) ListProductImages(ctx context.Context, productID string) ([]ProductImage, error) {
	q := url.Values{}
	q.Set("produto_id", productID)

	var images []ProductImage
	err := c.get(ctx, "/produto-imagens", q, func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			img, err := decodeProductImage(d)
			if err != nil {
				return err
			}
			images = append(images, img)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
