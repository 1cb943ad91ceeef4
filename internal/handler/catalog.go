package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/feiralocal/storefront/internal/backend"
	"github.com/feiralocal/storefront/internal/catalog"
)

type storeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	City   string `json:"city,omitempty"`
	Active bool   `json:"active"`
}

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	PromoPrice  decimal.Decimal `json:"promo_price,omitempty"`
	Image       string          `json:"image"`
	StoreID     string          `json:"store_id"`
	StoreName   string          `json:"store_name"`
}

type galleryImageResponse struct {
	URL       string `json:"url"`
	Principal bool   `json:"principal"`
	Order     int    `json:"order"`
}

func toStoreResponse(s backend.Store) storeResponse {
	return storeResponse{ID: s.ID, Name: s.Name, City: s.City, Active: s.Active}
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		PromoPrice:  p.PromoPrice,
		Image:       p.Image,
		StoreID:     p.StoreID,
		StoreName:   p.StoreName,
	}
}

func (h *Handler) frontPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalog.FrontPage(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	stores := make([]storeResponse, len(page.Stores))
	for i, s := range page.Stores {
		stores[i] = toStoreResponse(s)
	}
	products := make([]productResponse, len(page.Products))
	for i, p := range page.Products {
		products[i] = toProductResponse(p)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stores":   stores,
		"products": products,
	})
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.catalog.Stores(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]storeResponse, len(stores))
	for i, s := range stores {
		resp[i] = toStoreResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) storePage(w http.ResponseWriter, r *http.Request) {
	store, products, err := h.catalog.StorePage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"store":    toStoreResponse(*store),
		"products": resp,
	})
}

func (h *Handler) productDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.catalog.ProductDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	gallery := make([]galleryImageResponse, len(detail.Gallery))
	for i, img := range detail.Gallery {
		gallery[i] = galleryImageResponse{URL: img.URL, Principal: img.Principal, Order: img.Order}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product": toProductResponse(detail.Product),
		"gallery": gallery,
	})
}
