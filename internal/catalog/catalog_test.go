package catalog

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feiralocal/storefront/internal/backend"
)

type mockAPI struct {
	stores    []backend.Store
	products  []backend.Product
	images    map[string][]backend.ProductImage
	storeErr  error
	listErr   error
	imagesErr error
}

func (m *mockAPI) ListProducts(_ context.Context, f backend.ProductFilter) ([]backend.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if f.StoreID == "" {
		return m.products, nil
	}
	var out []backend.Product
	for _, p := range m.products {
		if p.StoreID == f.StoreID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockAPI) GetProduct(_ context.Context, id string) (*backend.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &backend.StatusError{Code: 404}
}

func (m *mockAPI) ListStores(_ context.Context, _, _ int) ([]backend.Store, error) {
	return m.stores, m.storeErr
}

func (m *mockAPI) GetStore(_ context.Context, id string) (*backend.Store, error) {
	if m.storeErr != nil {
		return nil, m.storeErr
	}
	for _, s := range m.stores {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, &backend.StatusError{Code: 404}
}

func (m *mockAPI) ListProductImages(_ context.Context, productID string) ([]backend.ProductImage, error) {
	if m.imagesErr != nil {
		return nil, m.imagesErr
	}
	return m.images[productID], nil
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		stores: []backend.Store{
			{ID: "loja1", Name: "Mercearia Central", Active: true},
			{ID: "loja2", Name: "Padaria do Bairro", Active: true},
		},
		products: []backend.Product{
			{ID: "p1", Name: "Pão de Queijo", Price: decimal.RequireFromString("12.50"), StoreID: "loja1", ImageURL: "fallback1.jpg"},
			{ID: "p2", Name: "Café", Price: decimal.RequireFromString("8.00"), StoreID: "loja2", ImageURL: "fallback2.jpg"},
			{ID: "p3", Name: "Bolo", Price: decimal.RequireFromString("20.00"), StoreID: "orphan", ImageURL: ""},
		},
		images: map[string][]backend.ProductImage{
			"p1": {
				{ID: "i1", ProductID: "p1", URL: "gallery1.jpg", Principal: false, Order: 1},
				{ID: "i2", ProductID: "p1", URL: "cover1.jpg", Principal: true, Order: 2},
			},
		},
	}
}

func TestFrontPage_JoinsStoresAndCoverImages(t *testing.T) {
	svc := NewService(newMockAPI())

	page, err := svc.FrontPage(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Stores, 2)
	require.Len(t, page.Products, 3)

	byID := make(map[string]Product)
	for _, p := range page.Products {
		byID[p.ID] = p
	}

	assert.Equal(t, "Mercearia Central", byID["p1"].StoreName)
	assert.Equal(t, "cover1.jpg", byID["p1"].Image)
	// No gallery: falls back to the product's own image.
	assert.Equal(t, "fallback2.jpg", byID["p2"].Image)
	// Unknown store id gets the placeholder name.
	assert.Equal(t, "Loja desconhecida", byID["p3"].StoreName)
}

func TestFrontPage_StoreListingErrorPropagates(t *testing.T) {
	api := newMockAPI()
	api.storeErr = errors.New("backend down")
	svc := NewService(api)

	_, err := svc.FrontPage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list stores")
}

func TestFrontPage_GalleryErrorDegrades(t *testing.T) {
	api := newMockAPI()
	api.imagesErr = errors.New("gallery unavailable")
	svc := NewService(api)

	page, err := svc.FrontPage(context.Background())
	require.NoError(t, err)
	for _, p := range page.Products {
		if p.ID == "p1" {
			assert.Equal(t, "fallback1.jpg", p.Image)
		}
	}
}

func TestStorePage(t *testing.T) {
	svc := NewService(newMockAPI())

	store, products, err := svc.StorePage(context.Background(), "loja1")
	require.NoError(t, err)
	assert.Equal(t, "Mercearia Central", store.Name)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "Mercearia Central", products[0].StoreName)
}

func TestProductDetail(t *testing.T) {
	svc := NewService(newMockAPI())

	detail, err := svc.ProductDetail(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Pão de Queijo", detail.Name)
	assert.Equal(t, "Mercearia Central", detail.StoreName)
	assert.Equal(t, "cover1.jpg", detail.Image)
	assert.Len(t, detail.Gallery, 2)
}

func TestProductDetail_NotFound(t *testing.T) {
	svc := NewService(newMockAPI())

	_, err := svc.ProductDetail(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestPrincipalImage_OrderFallback(t *testing.T) {
	gallery := []backend.ProductImage{
		{URL: "b.jpg", Order: 2},
		{URL: "a.jpg", Order: 1},
	}
	assert.Equal(t, "a.jpg", principalImage(gallery))
	assert.Equal(t, "", principalImage(nil))
}
