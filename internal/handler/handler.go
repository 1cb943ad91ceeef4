// Package handler exposes the storefront engine over HTTP: session-scoped
// cart and checkout endpoints, the payment return leg, catalog browsing,
// and account flows.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/feiralocal/storefront/internal/backend"
	"github.com/feiralocal/storefront/internal/catalog"
	"github.com/feiralocal/storefront/internal/checkout"
	"github.com/feiralocal/storefront/internal/customer"
	"github.com/feiralocal/storefront/internal/payment"
)

// Handler implements the storefront HTTP API.
type Handler struct {
	sessions *SessionManager
	catalog  *catalog.Service
	accounts *customer.Service
	resolver *payment.Resolver
}

// NewHandler constructs a Handler with the required services.
func NewHandler(
	sessions *SessionManager,
	catalogSvc *catalog.Service,
	accounts *customer.Service,
	resolver *payment.Resolver,
) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  catalogSvc,
		accounts: accounts,
		resolver: resolver,
	}
}

// Routes registers all endpoints on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)

	mux.HandleFunc("POST /api/checkout", h.submitOrder)
	mux.HandleFunc("POST /api/checkout/pay", h.pay)

	mux.HandleFunc("GET /api/payment/return", h.paymentReturn)
	mux.HandleFunc("POST /api/payment/recheck", h.paymentRecheck)

	mux.HandleFunc("GET /api/home", h.frontPage)
	mux.HandleFunc("GET /api/stores", h.listStores)
	mux.HandleFunc("GET /api/stores/{id}", h.storePage)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.productDetail)

	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/logout", h.logout)
	mux.HandleFunc("GET /api/me", h.me)

	return mux
}

// errorResponse is the uniform error body. Retryable marks transport or
// backend failures the user may simply retry.
type errorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Code:    http.StatusBadRequest,
		Message: msg,
	})
}

// writeError classifies err per the storefront error taxonomy and writes
// the matching status. Nothing propagates past this boundary.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	retryable := false
	msg := err.Error()

	switch {
	case errors.Is(err, customer.ErrInvalidEmail),
		errors.Is(err, customer.ErrInvalidCPF),
		errors.Is(err, customer.ErrMissingField),
		errors.Is(err, payment.ErrMissingReference):
		status = http.StatusBadRequest

	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoOrder):
		status = http.StatusConflict

	case errors.Is(err, customer.ErrAccountNotFound),
		errors.Is(err, backend.ErrNotFound):
		status = http.StatusNotFound

	default:
		// Transport or backend failure: retry is user-initiated.
		status = http.StatusBadGateway
		retryable = true
		msg = "marketplace backend unavailable, please try again"
		zctx.From(r.Context()).Error("Backend call failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Code: status, Message: msg, Retryable: retryable})
}
