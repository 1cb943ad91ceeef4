package handler

import (
	"net/http"

	"github.com/feiralocal/storefront/internal/backend"
)

type loginRequest struct {
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

type customerResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Address string `json:"address,omitempty"`
}

func toCustomerResponse(c *backend.Customer) customerResponse {
	return customerResponse{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		City:    c.City,
		State:   c.State,
		Address: c.Address,
	}
}

// login authenticates by email or CPF lookup. Exactly one identifier must
// be provided.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	var (
		c   *backend.Customer
		err error
	)
	switch {
	case req.Email != "":
		c, err = h.accounts.LoginByEmail(r.Context(), req.Email)
	case req.CPF != "":
		c, err = h.accounts.LoginByCPF(r.Context(), req.CPF)
	default:
		writeBadRequest(w, "email or cpf is required")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}

type registerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	CPF     string `json:"cpf"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	CEP     string `json:"cep"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	c, err := h.accounts.Register(r.Context(), backend.NewCustomer{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CPF:       req.CPF,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		PostalCode: req.CEP,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(c))
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.accounts.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, _ *http.Request) {
	c := h.accounts.Current()
	if c == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Code:    http.StatusUnauthorized,
			Message: "not logged in",
		})
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(c))
}
