package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/feiralocal/storefront/internal/cart"
)

type cartItemResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	StoreID   string          `json:"store_id"`
	StoreName string          `json:"store_name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type cartResponse struct {
	Items       []cartItemResponse `json:"items"`
	Count       int                `json:"count"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	DeliveryFee decimal.Decimal    `json:"delivery_fee"`
	Total       decimal.Decimal    `json:"total"`
}

func cartToResponse(c *cart.Cart) cartResponse {
	items := c.Items()
	resp := cartResponse{
		Items:       make([]cartItemResponse, len(items)),
		Count:       c.Count(),
		Subtotal:    c.Subtotal(),
		DeliveryFee: c.DeliveryFee(),
		Total:       c.Total(),
	}
	for i, item := range items {
		resp.Items[i] = cartItemResponse{
			ID:        item.ID,
			Name:      item.Name,
			Image:     item.Image,
			StoreID:   item.StoreID,
			StoreName: item.StoreName,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(w, r)
	writeJSON(w, http.StatusOK, cartToResponse(s.Cart()))
}

type addItemRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	StoreID   string          `json:"store_id"`
	StoreName string          `json:"store_name"`
	Price     decimal.Decimal `json:"price"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.ID == "" {
		writeBadRequest(w, "product id is required")
		return
	}

	s := h.sessions.Get(w, r)
	s.Cart().Dispatch(cart.Add{Product: cart.Product{
		ID:        req.ID,
		Name:      req.Name,
		Image:     req.Image,
		StoreID:   req.StoreID,
		StoreName: req.StoreName,
		Price:     req.Price,
	}})
	writeJSON(w, http.StatusOK, cartToResponse(s.Cart()))
}

type updateItemRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	s := h.sessions.Get(w, r)
	s.Cart().Dispatch(cart.ChangeQuantity{
		ProductID: r.PathValue("id"),
		Delta:     req.Delta,
	})
	writeJSON(w, http.StatusOK, cartToResponse(s.Cart()))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(w, r)
	s.Cart().Dispatch(cart.Remove{ProductID: r.PathValue("id")})
	writeJSON(w, http.StatusOK, cartToResponse(s.Cart()))
}
