package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/service"
)

// AdminHandler exposes the platform fee journal to operators.
type AdminHandler struct {
	payments *service.PaymentService
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(payments *service.PaymentService) *AdminHandler {
	return &AdminHandler{payments: payments}
}

// PlatformBalance handles GET /admin/fees/balance.
func (h *AdminHandler) PlatformBalance(w http.ResponseWriter, r *http.Request) {
	cents, formatted, err := h.payments.PlatformBalance(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"balance_cents": cents,
		"balance":       formatted,
	})
}

// ListAudit handles GET /admin/fees. since is RFC 3339; default 24h back.
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(w, domain.ErrValidation("since must be RFC 3339"))
			return
		}
		since = parsed
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(w, domain.ErrValidation("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	rows, err := h.payments.ListAudit(r.Context(), since, limit)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"fees": rows})
}
