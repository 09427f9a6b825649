package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/cache"
	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/guard"
	"github.com/gatepay/platform/internal/handler"
	"github.com/gatepay/platform/internal/infra"
	"github.com/gatepay/platform/internal/ledger"
	"github.com/gatepay/platform/internal/policy"
	"github.com/gatepay/platform/internal/provider"
	"github.com/gatepay/platform/internal/repository"
	"github.com/gatepay/platform/internal/service"
	"github.com/gatepay/platform/internal/upload"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool      *pgxpool.Pool
	Config    *infra.Config
	JWTMgr    *auth.JWTManager
	TokenMgr  *auth.PaymentTokenManager
	OTPStore  cache.Store
	OTPSender auth.Sender
	Logger    *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) (chi.Router, error) {
	pool := deps.Pool
	cfg := deps.Config
	logger := deps.Logger

	// Repositories
	accountRepo := repository.NewAccountRepository()
	ledgerRepo := repository.NewLedgerRepository()
	paymentRepo := repository.NewPaymentRepository()
	sessionRepo := repository.NewSessionRepository()
	merchantRepo := repository.NewMerchantRepository()
	providerRepo := repository.NewProviderRepository()
	withdrawalRepo := repository.NewWithdrawalRepository()
	auditRepo := repository.NewAuditRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Ledger engine
	engine := ledger.NewEngine(accountRepo, ledgerRepo, outboxRepo)

	// Money parameters
	feeRate, err := domain.NewFeeRate(cfg.P2PFeeRate)
	if err != nil {
		return nil, err
	}
	floor, err := domain.ParsePositiveAmount(cfg.TransferFloor)
	if err != nil {
		return nil, err
	}
	ceiling, err := domain.ParsePositiveAmount(cfg.TransferCeiling)
	if err != nil {
		return nil, err
	}

	// External acquirer
	acquirer := provider.NewBerryPayClient(
		cfg.AcquirerAPIURL, cfg.AcquirerPublicKey, cfg.AcquirerSecretKey, cfg.AcquirerAPIKey)
	breaker := guard.NewCircuitBreaker(5, 30*time.Second)

	// OTP gate
	otpGate := auth.NewOTPGate(deps.OTPStore, deps.OTPSender, cfg.IsProduction(), cfg.OTPWhitelist, logger)

	uploader := upload.NewLocalUploader(cfg.UploadDir, cfg.UploadBaseURL)

	// Services
	authSvc := service.NewAuthService(pool, accountRepo, otpGate, deps.JWTMgr, logger)
	gatewaySvc := service.NewGatewayService(pool, merchantRepo, sessionRepo, paymentRepo,
		accountRepo, providerRepo, outboxRepo, engine, deps.TokenMgr, acquirer, breaker,
		cfg.PaymentURLHost, cfg.AcquirerCallbackURL, logger)
	paymentSvc := service.NewPaymentService(pool, paymentRepo, accountRepo, auditRepo,
		outboxRepo, engine, uploader, feeRate, cfg.P2PProviderID, logger)
	walletSvc := service.NewWalletService(pool, accountRepo, ledgerRepo, withdrawalRepo,
		outboxRepo, engine, floor, ceiling, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	outsideHandler := handler.NewOutsideHandler(gatewaySvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	walletHandler := handler.NewWalletHandler(walletSvc)
	adminHandler := handler.NewAdminHandler(paymentSvc)

	// Brute-force limits on the unauthenticated surfaces.
	signInLimiter := guard.NewRateLimiter(10, time.Minute)
	callbackLimiter := guard.NewRateLimiter(60, time.Minute)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS)
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Sign-in flow (no auth)
	r.Route("/auth", func(r chi.Router) {
		r.Use(rateLimit(signInLimiter))
		r.With(policy.Public().Middleware()).Post("/sign-in", authHandler.SignIn)
		r.With(policy.Public().Middleware()).Post("/verify-otp", authHandler.VerifyOtp)
		r.With(policy.Public().Middleware()).Post("/resend-otp", authHandler.ResendOtp)
	})

	// Merchant and acquirer surface; authenticated by signature/credentials,
	// not bearer tokens.
	r.Route("/outside", func(r chi.Router) {
		r.Use(policy.Public().Middleware())
		r.Post("/{merchantID}/payment", outsideHandler.CreatePayment)
		r.Post("/{merchantID}/payment/{sessionID}/retry", outsideHandler.Retry)
		r.Get("/{merchantID}/status/{orderID}", outsideHandler.Status)
		r.Get("/status/{token}", outsideHandler.TokenStatus)
		r.Get("/session/{token}", outsideHandler.ValidateToken)
		r.Post("/session/{token}/submit", outsideHandler.Submit)
		r.With(rateLimit(callbackLimiter)).Post("/callback/{providerPublicKey}", outsideHandler.Callback)
	})

	// Account-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(deps.JWTMgr))
		r.Use(policy.User().Middleware())

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", walletHandler.GetBalance)
			r.Post("/transfer", walletHandler.Transfer)
			r.Get("/ledger", walletHandler.ListLedger)
			r.Post("/withdrawals", walletHandler.RequestWithdrawal)
			r.Get("/withdrawals", walletHandler.ListWithdrawals)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", paymentHandler.CreateOrder)
			r.Get("/", paymentHandler.List)
			r.Get("/{paymentID}", paymentHandler.Get)
			r.Post("/{paymentID}/complete", paymentHandler.Complete)
		})

		r.Route("/admin/fees", func(r chi.Router) {
			r.Use(policy.Role(domain.RoleAdmin).Middleware())
			r.Get("/balance", adminHandler.PlatformBalance)
			r.Get("/", adminHandler.ListAudit)
		})
	})

	return r, nil
}

// rateLimit adapts a guard.RateLimiter into chi middleware keyed by client IP.
func rateLimit(rl *guard.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Forwarded-For")
			if key == "" {
				key = r.RemoteAddr
			}
			if res := rl.Check(r.Context(), key); !res.Allowed {
				http.Error(w, `{"code":"TOO_MANY_REQUESTS","message":"`+res.Reason+`"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
