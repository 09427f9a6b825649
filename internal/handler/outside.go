package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/service"
)

// OutsideHandler exposes the merchant-facing and acquirer-facing endpoints.
// These routes carry their own authentication: merchant credentials plus a
// request signature inbound, provider public key on the callback.
type OutsideHandler struct {
	svc *service.GatewayService
}

// NewOutsideHandler creates an OutsideHandler.
func NewOutsideHandler(svc *service.GatewayService) *OutsideHandler {
	return &OutsideHandler{svc: svc}
}

// CreatePayment handles POST /outside/{merchantID}/payment.
func (h *OutsideHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	merchantID, err := strconv.ParseInt(chi.URLParam(r, "merchantID"), 10, 64)
	if err != nil || merchantID <= 0 {
		RespondError(w, domain.ErrValidation("invalid merchant id"))
		return
	}

	var req domain.PaymentRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	result, err := h.svc.CreateSession(r.Context(), merchantID, &req)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, result)
}

// ValidateToken handles GET /outside/session/{token}. The hosted checkout
// calls this to resolve the opaque token into the order it pays for.
func (h *OutsideHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		RespondError(w, domain.ErrValidation("token is required"))
		return
	}

	view, err := h.svc.ValidateToken(r.Context(), token)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

type submitRequest struct {
	BuyerGateEmail string `json:"buyer_gate_email"`
	BuyerGatePhone string `json:"buyer_gate_phone"`
}

// Submit handles POST /outside/session/{token}/submit.
func (h *OutsideHandler) Submit(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		RespondError(w, domain.ErrValidation("token is required"))
		return
	}

	var req submitRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	result, err := h.svc.Submit(r.Context(), token, service.SubmitInput{
		BuyerGateEmail: req.BuyerGateEmail,
		BuyerGatePhone: req.BuyerGatePhone,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// Callback handles POST /outside/callback/{providerPublicKey}. Always answers
// 200 on handled outcomes so the acquirer stops retrying; only transport or
// authorization problems surface as errors.
func (h *OutsideHandler) Callback(w http.ResponseWriter, r *http.Request) {
	publicKey := chi.URLParam(r, "providerPublicKey")
	if publicKey == "" {
		RespondError(w, domain.ErrValidation("provider key is required"))
		return
	}

	var cb domain.AcquirerCallback
	if err := DecodeJSON(r, &cb); err != nil {
		RespondError(w, domain.ErrValidation("invalid callback body"))
		return
	}

	payment, err := h.svc.ProcessCallback(r.Context(), publicKey, &cb)
	if err != nil {
		RespondError(w, err)
		return
	}

	resp := map[string]interface{}{"received": true}
	if payment != nil {
		resp["payment_id"] = payment.ID
	}
	RespondJSON(w, http.StatusOK, resp)
}

// Retry handles POST /outside/{merchantID}/payment/{sessionID}/retry.
func (h *OutsideHandler) Retry(w http.ResponseWriter, r *http.Request) {
	merchantID, err := strconv.ParseInt(chi.URLParam(r, "merchantID"), 10, 64)
	if err != nil || merchantID <= 0 {
		RespondError(w, domain.ErrValidation("invalid merchant id"))
		return
	}
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil || sessionID <= 0 {
		RespondError(w, domain.ErrValidation("invalid session id"))
		return
	}

	result, err := h.svc.Retry(r.Context(), merchantID, sessionID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, result)
}

// TokenStatus handles GET /outside/status/{token}. The hosted checkout polls
// this with the only credential it holds.
func (h *OutsideHandler) TokenStatus(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		RespondError(w, domain.ErrValidation("token is required"))
		return
	}

	status, err := h.svc.TokenStatus(r.Context(), token)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// Status handles GET /outside/{merchantID}/status/{orderID}.
func (h *OutsideHandler) Status(w http.ResponseWriter, r *http.Request) {
	merchantID, err := strconv.ParseInt(chi.URLParam(r, "merchantID"), 10, 64)
	if err != nil || merchantID <= 0 {
		RespondError(w, domain.ErrValidation("invalid merchant id"))
		return
	}
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		RespondError(w, domain.ErrValidation("order id is required"))
		return
	}

	session, err := h.svc.Status(r.Context(), merchantID, orderID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, session)
}
