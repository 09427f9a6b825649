package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/service"
)

// WalletHandler exposes balance, transfer, ledger and withdrawal endpoints.
type WalletHandler struct {
	svc *service.WalletService
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(svc *service.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// GetBalance handles GET /wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	cents, formatted, err := h.svc.Balance(r.Context(), accountID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"balance_cents": cents,
		"balance":       formatted,
	})
}

type transferRequest struct {
	ToUsername string `json:"to_username"`
	Amount     string `json:"amount"`
	Reference  string `json:"reference"`
}

// Transfer handles POST /wallet/transfer.
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req transferRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	result, err := h.svc.Transfer(r.Context(), accountID, service.TransferInput{
		ToUsername: req.ToUsername,
		Amount:     req.Amount,
		Reference:  req.Reference,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"entry":          result.FromEntry,
		"balance":        domain.FormatCents(result.From.Balance),
		"recipient_name": result.To.Username,
	})
}

// ListLedger handles GET /wallet/ledger.
func (h *WalletHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	entries, err := h.svc.ListLedger(r.Context(), accountID, cursor, 20)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

type withdrawalRequest struct {
	Amount      string `json:"amount"`
	BankName    string `json:"bank_name"`
	BankAccount string `json:"bank_account"`
}

// RequestWithdrawal handles POST /wallet/withdrawals.
func (h *WalletHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req withdrawalRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	withdrawal, err := h.svc.RequestWithdrawal(r.Context(), accountID, service.WithdrawalInput{
		Amount:      req.Amount,
		BankName:    req.BankName,
		BankAccount: req.BankAccount,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, withdrawal)
}

// ListWithdrawals handles GET /wallet/withdrawals.
func (h *WalletHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	ws, err := h.svc.ListWithdrawals(r.Context(), accountID, 20)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"withdrawals": ws})
}

// subjectID resolves the authenticated account id from the request context.
func subjectID(r *http.Request) (uuid.UUID, error) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == "" {
		return uuid.Nil, domain.ErrUnauthorized("no auth context")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized("invalid subject")
	}
	return id, nil
}
