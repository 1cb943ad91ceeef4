// Package catalog assembles storefront browse views from the backend
// catalog endpoints: stores and products fetched concurrently, store names
// joined onto products, and the principal gallery image picked per product.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/feiralocal/storefront/internal/backend"
)

// imageFetchLimit bounds concurrent gallery fetches per view.
const imageFetchLimit = 8

// API is the slice of the backend client the catalog needs.
type API interface {
	ListProducts(ctx context.Context, f backend.ProductFilter) ([]backend.Product, error)
	GetProduct(ctx context.Context, id string) (*backend.Product, error)
	ListStores(ctx context.Context, skip, limit int) ([]backend.Store, error)
	GetStore(ctx context.Context, id string) (*backend.Store, error)
	ListProductImages(ctx context.Context, productID string) ([]backend.ProductImage, error)
}

// Product is a catalog item ready for display and for adding to the cart:
// backend product joined with its vendor name and cover image.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	PromoPrice  decimal.Decimal
	Image       string
	StoreID     string
	StoreName   string
}

// ProductDetail is a single product with its full gallery.
type ProductDetail struct {
	Product
	Gallery []backend.ProductImage
}

// FrontPage is the storefront landing view.
type FrontPage struct {
	Stores   []backend.Store
	Products []Product
}

// Service builds browse views.
type Service struct {
	api API
}

// NewService creates a catalog Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

// FrontPage loads active stores and products concurrently and joins them.
func (s *Service) FrontPage(ctx context.Context) (*FrontPage, error) {
	var (
		stores   []backend.Store
		products []backend.Product
	)
	active := true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stores, err = s.api.ListStores(gctx, 0, 100)
		return errors.Wrap(err, "list stores")
	})
	g.Go(func() error {
		var err error
		products, err = s.api.ListProducts(gctx, backend.ProductFilter{Active: &active, Limit: 100})
		return errors.Wrap(err, "list products")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined, err := s.join(ctx, products, storeNames(stores))
	if err != nil {
		return nil, err
	}
	return &FrontPage{Stores: stores, Products: joined}, nil
}

// Stores lists the marketplace vendors.
func (s *Service) Stores(ctx context.Context) ([]backend.Store, error) {
	stores, err := s.api.ListStores(ctx, 0, 100)
	if err != nil {
		return nil, errors.Wrap(err, "list stores")
	}
	return stores, nil
}

// Products lists active products joined with their vendor names.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	page, err := s.FrontPage(ctx)
	if err != nil {
		return nil, err
	}
	return page.Products, nil
}

// StorePage loads one vendor and its products.
func (s *Service) StorePage(ctx context.Context, storeID string) (*backend.Store, []Product, error) {
	var (
		store    *backend.Store
		products []backend.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		store, err = s.api.GetStore(gctx, storeID)
		return errors.Wrap(err, "get store")
	})
	g.Go(func() error {
		var err error
		products, err = s.api.ListProducts(gctx, backend.ProductFilter{StoreID: storeID, Limit: 100})
		return errors.Wrap(err, "list products")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	joined, err := s.join(ctx, products, map[string]string{store.ID: store.Name})
	if err != nil {
		return nil, nil, err
	}
	return store, joined, nil
}

// ProductDetail loads one product with its vendor name and gallery.
func (s *Service) ProductDetail(ctx context.Context, id string) (*ProductDetail, error) {
	p, err := s.api.GetProduct(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}

	var (
		store   *backend.Store
		gallery []backend.ProductImage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		store, err = s.api.GetStore(gctx, p.StoreID)
		return errors.Wrap(err, "get store")
	})
	g.Go(func() error {
		var err error
		gallery, err = s.api.ListProductImages(gctx, p.ID)
		return errors.Wrap(err, "list images")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := toView(*p, map[string]string{store.ID: store.Name})
	if cover := principalImage(gallery); cover != "" {
		view.Image = cover
	}
	return &ProductDetail{Product: view, Gallery: gallery}, nil
}

// join maps backend products to views, fetching each product's gallery with
// bounded concurrency to pick the principal image.
func (s *Service) join(ctx context.Context, products []backend.Product, names map[string]string) ([]Product, error) {
	views := make([]Product, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageFetchLimit)

	for i, p := range products {
		views[i] = toView(p, names)
		g.Go(func() error {
			gallery, err := s.api.ListProductImages(gctx, p.ID)
			if err != nil {
				// A missing gallery degrades to the product's own image.
				return nil
			}
			if cover := principalImage(gallery); cover != "" {
				views[i].Image = cover
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func toView(p backend.Product, names map[string]string) Product {
	name, ok := names[p.StoreID]
	if !ok {
		name = "Loja desconhecida"
	}
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		PromoPrice:  p.PromoPrice,
		Image:       p.ImageURL,
		StoreID:     p.StoreID,
		StoreName:   name,
	}
}

func storeNames(stores []backend.Store) map[string]string {
	names := make(map[string]string, len(stores))
	for _, s := range stores {
		names[s.ID] = s.Name
	}
	return names
}

// principalImage returns the URL marked principal, or the first by gallery
// order, or "".
func principalImage(gallery []backend.ProductImage) string {
	if len(gallery) == 0 {
		return ""
	}
	best := gallery[0]
	for _, img := range gallery[1:] {
		if img.Principal && !best.Principal {
			best = img
			continue
		}
		if img.Principal == best.Principal && img.Order < best.Order {
			best = img
		}
	}
	return best.URL
}
