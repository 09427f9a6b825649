package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/service"
	"github.com/gatepay/platform/internal/upload"
)

// multipart proofs plus a little headroom for form overhead
const maxCompleteBodySize = int64(upload.MaxProofFiles)*upload.MaxProofFileSize + 1<<20

// PaymentHandler exposes the P2P order and escrow completion endpoints.
type PaymentHandler struct {
	svc *service.PaymentService
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type createOrderRequest struct {
	SellerUsername string `json:"seller_username"`
	Amount         string `json:"amount"`
	ProductName    string `json:"product_name"`
	ProductDesc    string `json:"product_desc"`
	ProductCat     string `json:"product_cat"`
	Refundable     bool   `json:"refundable"`
}

// CreateOrder handles POST /payments.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req createOrderRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	payment, err := h.svc.CreateOrder(r.Context(), accountID, service.CreateOrderInput{
		SellerUsername: req.SellerUsername,
		Amount:         req.Amount,
		ProductName:    req.ProductName,
		ProductDesc:    req.ProductDesc,
		ProductCat:     req.ProductCat,
		Refundable:     req.Refundable,
		IPAddress:      clientIP(r),
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, payment)
}

// Complete handles POST /payments/{paymentID}/complete with multipart proof
// images under the "proofs" field.
func (h *PaymentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid payment id"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCompleteBodySize)
	if err := r.ParseMultipartForm(maxCompleteBodySize); err != nil {
		RespondError(w, domain.ErrValidation("invalid multipart body"))
		return
	}

	var proofs []upload.ProofImage
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["proofs"] {
			f, err := fh.Open()
			if err != nil {
				RespondError(w, domain.ErrValidation("unreadable proof file"))
				return
			}
			data, err := io.ReadAll(io.LimitReader(f, upload.MaxProofFileSize+1))
			f.Close()
			if err != nil {
				RespondError(w, domain.ErrValidation("unreadable proof file"))
				return
			}
			proofs = append(proofs, upload.ProofImage{Name: fh.Filename, Data: data})
		}
	}

	payment, err := h.svc.CompletePayment(r.Context(), accountID, paymentID, proofs)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, payment)
}

// List handles GET /payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	listings, err := h.svc.ListPayments(r.Context(), accountID, 20)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"payments": listings})
}

// Get handles GET /payments/{paymentID}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, err := subjectID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid payment id"))
		return
	}

	payment, details, err := h.svc.GetPayment(r.Context(), accountID, paymentID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"payment": payment,
		"details": details,
	})
}
