package handler

import (
	"net/http"
	"strings"
)

type submitOrderRequest struct {
	Address string `json:"address"`
}

type submitOrderResponse struct {
	OrderID string `json:"order_id"`
	State   string `json:"state"`
}

// submitOrder turns the session's cart into a backend order. Idempotent:
// re-entering checkout while an order exists or is being created does not
// submit again.
func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Address) == "" {
		writeBadRequest(w, "delivery address is required")
		return
	}

	s := h.sessions.Get(w, r)
	if err := s.Submit(r.Context(), req.Address); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitOrderResponse{
		OrderID: s.OrderID(),
		State:   s.State().String(),
	})
}

type payResponse struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

// pay requests a payment preference for the created order and returns the
// hosted-checkout redirect URL. The browser navigates away; the flow
// resumes at the payment return endpoint.
func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(w, r)
	redirect, err := s.Pay(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payResponse{
		OrderID:     s.OrderID(),
		RedirectURL: redirect,
	})
}
