package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/service"
)

// AuthHandler exposes the two-step sign-in flow.
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles POST /auth/sign-in.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Password == "" {
		RespondError(w, domain.ErrValidation("password is required"))
		return
	}

	result, err := h.svc.SignIn(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyOtp handles POST /auth/verify-otp.
func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Email == "" || req.Code == "" {
		RespondError(w, domain.ErrValidation("email and code are required"))
		return
	}

	result, err := h.svc.VerifyOtp(r.Context(), req.Email, req.Code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// ResendOtp handles POST /auth/resend-otp.
func (h *AuthHandler) ResendOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Email == "" {
		RespondError(w, domain.ErrValidation("email is required"))
		return
	}

	result, err := h.svc.ResendOtp(r.Context(), req.Email)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
