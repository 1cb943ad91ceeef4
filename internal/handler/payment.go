package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feiralocal/storefront/internal/payment"
)

type outcomeResponse struct {
	Outcome       string          `json:"outcome"`
	Message       string          `json:"message"`
	OrderID       string          `json:"order_id,omitempty"`
	PaymentID     string          `json:"payment_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	StatusDetail  string          `json:"status_detail,omitempty"`
	PayerEmail    string          `json:"payer_email,omitempty"`
	RawStatus     string          `json:"raw_status,omitempty"`
	Retryable     bool            `json:"retryable"`
}

func outcomeMessage(k payment.Kind) string {
	switch k {
	case payment.KindApproved:
		return "Pagamento aprovado"
	case payment.KindPending:
		return "Pagamento pendente"
	case payment.KindRejected:
		return "Pagamento recusado"
	case payment.KindCancelled:
		return "Pagamento cancelado"
	case payment.KindNotFound:
		return "Pagamento não encontrado"
	case payment.KindUnknown:
		return "Falha no pagamento"
	}
	return string(k)
}

func toOutcomeResponse(out payment.Outcome) outcomeResponse {
	return outcomeResponse{
		Outcome:       string(out.Kind),
		Message:       outcomeMessage(out.Kind),
		OrderID:       out.OrderID,
		PaymentID:     out.PaymentID,
		Amount:        out.Amount,
		PaymentMethod: out.PaymentMethod,
		StatusDetail:  out.StatusDetail,
		PayerEmail:    out.PayerEmail,
		RawStatus:     out.RawStatus,
		Retryable:     out.Retryable,
	}
}

// paymentReturn handles the redirect back from the hosted payment page.
// The status query parameter is logged but never trusted: the outcome
// always comes from a fresh backend fetch.
func (h *Handler) paymentReturn(w http.ResponseWriter, r *http.Request) {
	ret, err := payment.ParseReturn(r.URL.Query())
	if err != nil {
		// Fatal: without an order reference there is nothing to fetch.
		writeError(w, r, err)
		return
	}

	if ret.PaymentID != "" || ret.Status != "" {
		zctx.From(r.Context()).Info("Payment return",
			zap.String("order_id", ret.OrderID),
			zap.String("reported_payment_id", ret.PaymentID),
			zap.String("reported_status", ret.Status),
		)
	}

	out := h.resolver.Resolve(r.Context(), ret.OrderID)

	if out.Kind == payment.KindApproved {
		// Order complete: release the cart and order state for this
		// session. Failure outcomes keep everything for retry.
		h.sessions.Get(w, r).Reset()
	}

	writeJSON(w, http.StatusOK, toOutcomeResponse(out))
}

type recheckRequest struct {
	PaymentID string `json:"payment_id"`
}

// paymentRecheck is the manual status re-check entry point. There is no
// automatic polling; the user asks for a refresh explicitly.
func (h *Handler) paymentRecheck(w http.ResponseWriter, r *http.Request) {
	var req recheckRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = h.sessions.Get(w, r).PaymentID()
	}
	if paymentID == "" {
		writeBadRequest(w, "payment id is required")
		return
	}

	out := h.resolver.Recheck(r.Context(), paymentID)
	writeJSON(w, http.StatusOK, toOutcomeResponse(out))
}
