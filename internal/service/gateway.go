package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/guard"
	"github.com/gatepay/platform/internal/ledger"
	"github.com/gatepay/platform/internal/provider"
	"github.com/gatepay/platform/internal/repository"
)

// acquirerOrderPrefix namespaces the reference we hand to the acquirer so the
// callback can address the exact session row regardless of merchant order ids.
const acquirerOrderPrefix = "gp-"

// GatewayService drives the external payment session protocol: merchant
// request in, hosted checkout, acquirer round trip, callback convergence into
// the payment machine.
type GatewayService struct {
	pool      repository.DB
	merchants repository.MerchantRepository
	sessions  repository.SessionRepository
	payments  repository.PaymentRepository
	accounts  repository.AccountRepository
	providers repository.ProviderRepository
	outbox    repository.OutboxRepository
	engine    *ledger.Engine
	tokens    *auth.PaymentTokenManager
	acquirer  *provider.BerryPayClient
	breaker     *guard.CircuitBreaker
	dedupe      *guard.IdempotencyGuard
	payHost     string
	callbackURL string
	logger      *slog.Logger
}

// NewGatewayService creates a GatewayService.
func NewGatewayService(
	pool repository.DB,
	merchants repository.MerchantRepository,
	sessions repository.SessionRepository,
	payments repository.PaymentRepository,
	accounts repository.AccountRepository,
	providers repository.ProviderRepository,
	outbox repository.OutboxRepository,
	engine *ledger.Engine,
	tokens *auth.PaymentTokenManager,
	acquirer *provider.BerryPayClient,
	breaker *guard.CircuitBreaker,
	payHost string,
	callbackURL string,
	logger *slog.Logger,
) *GatewayService {
	return &GatewayService{
		pool:        pool,
		merchants:   merchants,
		sessions:    sessions,
		payments:    payments,
		accounts:    accounts,
		providers:   providers,
		outbox:      outbox,
		engine:      engine,
		tokens:      tokens,
		acquirer:    acquirer,
		breaker:     breaker,
		dedupe:      guard.NewIdempotencyGuard(),
		payHost:     payHost,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// SessionURL is the opaque handle returned to the merchant.
type SessionURL struct {
	PaymentURL string `json:"payment_url"`
}

// SessionView is what the hosted checkout learns from a validated token.
type SessionView struct {
	SessionID   int64                `json:"session_id"`
	MerchantID  int64                `json:"merchant_id"`
	Status      domain.SessionStatus `json:"status"`
	OrderID     string               `json:"order_id"`
	ProductName string               `json:"product_name"`
	ProductDesc string               `json:"product_desc"`
	Amount      string               `json:"amount"`
	BuyerName   string               `json:"buyer_name"`
	ExpiresAt   time.Time            `json:"expires_at"`
}

// CreateSession opens a payment session for a signed merchant request and
// returns the hosted-checkout URL. Token creation is two-phase: the row is
// inserted first so the minted token can embed the row's own id, then the
// token is stored back onto the row.
func (s *GatewayService) CreateSession(ctx context.Context, merchantID int64, req *domain.PaymentRequest) (*SessionURL, error) {
	merchant, err := s.merchants.FindByID(ctx, s.pool, merchantID)
	if err != nil {
		return nil, domain.ErrInternal("find merchant", err)
	}
	if merchant == nil || merchant.Status != domain.MerchantActive {
		return nil, domain.ErrAccessDenied()
	}
	if merchant.SecretKey != req.SecretKey || merchant.APIKey != req.APIKey {
		return nil, domain.ErrAccessDenied()
	}

	if err := req.Validate(); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if !auth.VerifySignature(requestFields(req), req.Signature) {
		return nil, domain.ErrAccessDenied()
	}

	exists, err := s.sessions.ExistsForOrder(ctx, s.pool, merchantID, req.OrderID)
	if err != nil {
		return nil, domain.ErrInternal("check order uniqueness", err)
	}
	if exists {
		return nil, domain.ErrConflict("a payment session already exists for this order")
	}

	payload, err := (&domain.SessionPayload{PaymentRequest: *req}).Encode()
	if err != nil {
		return nil, domain.ErrInternal("encode session payload", err)
	}

	session, err := s.sessions.Create(ctx, s.pool, &domain.PaymentSession{
		MerchantID: merchantID,
		Payload:    payload,
		Status:     domain.SessionPending,
		ExpiresAt:  time.Now().Add(s.tokens.Expiry()),
	})
	if err != nil {
		return nil, domain.ErrInternal("create session", err)
	}

	token, err := s.tokens.Generate(session.ID, merchantID, req.OrderID)
	if err != nil {
		return nil, domain.ErrInternal("mint session token", err)
	}
	if err := s.sessions.SetToken(ctx, s.pool, session.ID, token); err != nil {
		return nil, domain.ErrInternal("store session token", err)
	}

	s.logger.Info("payment session created",
		"session_id", session.ID, "merchant_id", merchantID, "order_id", req.OrderID)

	return &SessionURL{PaymentURL: fmt.Sprintf("https://%s/%s", s.payHost, token)}, nil
}

// ValidateToken resolves a session token into its session view. A token is
// only honored while the row stores that exact token string, so rotation
// kills superseded tokens even though their signatures still verify. The
// first successful validation advances PENDING to INITIATE.
func (s *GatewayService) ValidateToken(ctx context.Context, token string) (*SessionView, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrAccessDenied()
	}

	session, err := s.sessions.FindByIDAndToken(ctx, s.pool, claims.SessionID, token)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrAccessDenied()
	}

	if time.Now().After(session.ExpiresAt) {
		if err := s.sessions.UpdateStatus(ctx, s.pool, session.ID, domain.SessionExpired); err != nil {
			s.logger.Error("expire session failed", "session_id", session.ID, "error", err)
		}
		return nil, domain.ErrUnauthorized("payment session has expired")
	}

	payload, err := domain.DecodeSessionPayload(session.Payload)
	if err != nil {
		return nil, domain.ErrInternal("decode session payload", err)
	}
	if session.MerchantID != claims.MerchantID || payload.OrderID != claims.OrderID {
		return nil, domain.ErrAccessDenied()
	}

	if session.Status == domain.SessionPending {
		if err := s.sessions.UpdateStatus(ctx, s.pool, session.ID, domain.SessionInitiate); err != nil {
			return nil, domain.ErrInternal("advance session", err)
		}
		session.Status = domain.SessionInitiate
	}

	return &SessionView{
		SessionID:   session.ID,
		MerchantID:  session.MerchantID,
		Status:      session.Status,
		OrderID:     payload.OrderID,
		ProductName: payload.ProductName,
		ProductDesc: payload.ProductDesc,
		Amount:      payload.ProductAmount,
		BuyerName:   payload.BuyerName,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// SubmitResult reports where the buyer goes next.
type SubmitResult struct {
	SessionID   int64                `json:"session_id"`
	Status      domain.SessionStatus `json:"status"`
	RedirectURL string               `json:"redirect_url,omitempty"`
}

// SubmitInput is the buyer's contact from the hosted checkout; the gateway
// account is provisioned against it.
type SubmitInput struct {
	BuyerGateEmail string
	BuyerGatePhone string
}

// Submit forwards a validated session to the acquirer. The submitted buyer
// contact is stored into the session payload and provisioned as a gateway
// account if it does not exist yet, so the later callback can settle against
// a wallet. The session ends up PASSED when the acquirer accepts and UNPASSED
// otherwise.
func (s *GatewayService) Submit(ctx context.Context, token string, in SubmitInput) (*SubmitResult, error) {
	if err := domain.ValidateEmail(in.BuyerGateEmail); err != nil {
		return nil, domain.ErrValidation("buyerGateEmail: " + err.Error())
	}

	view, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if view.Status != domain.SessionInitiate {
		return nil, domain.ErrConflict("session cannot be submitted in status " + string(view.Status))
	}

	session, err := s.sessions.FindByID(ctx, s.pool, view.SessionID)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	payload, err := domain.DecodeSessionPayload(session.Payload)
	if err != nil {
		return nil, domain.ErrInternal("decode session payload", err)
	}

	payload.Gate = &domain.GateDetails{Email: in.BuyerGateEmail, Phone: in.BuyerGatePhone}
	withGate, err := payload.Encode()
	if err != nil {
		return nil, domain.ErrInternal("encode session payload", err)
	}
	if err := s.sessions.UpdatePayload(ctx, s.pool, session.ID, withGate); err != nil {
		return nil, domain.ErrInternal("store gate details", err)
	}

	if _, err := s.provisionGateAccount(ctx, payload); err != nil {
		return nil, err
	}

	breakerKey := "acquirer"
	if res := s.breaker.Check(ctx, breakerKey); !res.Allowed {
		if err := s.sessions.UpdateStatus(ctx, s.pool, session.ID, domain.SessionUnpassed); err != nil {
			return nil, domain.ErrInternal("mark session unpassed", err)
		}
		s.logger.Warn("acquirer circuit open, session unpassed", "session_id", session.ID, "reason", res.Reason)
		return &SubmitResult{SessionID: session.ID, Status: domain.SessionUnpassed}, nil
	}

	gateEmail, gatePhone := payload.GateContact()
	resp, err := s.acquirer.Submit(ctx, provider.PaymentOrder{
		OrderID:     acquirerOrderPrefix + strconv.FormatInt(session.ID, 10),
		Amount:      payload.ProductAmount,
		BuyerEmail:  gateEmail,
		BuyerName:   payload.BuyerName,
		BuyerPhone:  gatePhone,
		ProductName: payload.ProductName,
		ProductDesc: payload.ProductDesc,
		CallbackURL: s.callbackURL,
		ReturnURL:   payload.ReturnURL,
	})
	if err != nil || !resp.Accepted() {
		s.breaker.RecordFailure(breakerKey)
		if updateErr := s.sessions.UpdateStatus(ctx, s.pool, session.ID, domain.SessionUnpassed); updateErr != nil {
			return nil, domain.ErrInternal("mark session unpassed", updateErr)
		}
		s.logger.Warn("acquirer rejected session", "session_id", session.ID, "error", err)
		return &SubmitResult{SessionID: session.ID, Status: domain.SessionUnpassed}, nil
	}
	s.breaker.RecordSuccess(breakerKey)

	if err := s.sessions.UpdateStatus(ctx, s.pool, session.ID, domain.SessionPassed); err != nil {
		return nil, domain.ErrInternal("mark session passed", err)
	}

	s.logger.Info("session submitted to acquirer", "session_id", session.ID, "ref_id", resp.RefID)
	return &SubmitResult{SessionID: session.ID, Status: domain.SessionPassed, RedirectURL: resp.PaymentURL}, nil
}

// ProcessCallback idempotently finalizes a session from the acquirer's
// webhook. Status mapping, payload merge and payment materialization all
// happen here; a duplicate callback resolves to the already-persisted
// payment through the unique constraint on payments(session_id).
func (s *GatewayService) ProcessCallback(ctx context.Context, providerPublicKey string, cb *domain.AcquirerCallback) (*domain.Payment, error) {
	prov, err := s.providers.FindByPublicKey(ctx, s.pool, providerPublicKey)
	if err != nil {
		return nil, domain.ErrInternal("find provider", err)
	}
	if prov == nil {
		return nil, domain.ErrAccessDenied()
	}
	if err := prov.Authorize(time.Now()); err != nil {
		return nil, err
	}

	sessionID, ok := parseAcquirerOrder(cb.TxnOrderID)
	if !ok {
		return nil, domain.ErrValidation("unrecognized order reference")
	}

	session, err := s.sessions.FindByID(ctx, s.pool, sessionID)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound("payment session", cb.TxnOrderID)
	}

	mapped := domain.MapAcquirerStatus(cb.TxnStatusID)

	payload, err := domain.DecodeSessionPayload(session.Payload)
	if err != nil {
		return nil, domain.ErrInternal("decode session payload", err)
	}
	payload.Callback = &domain.CallbackRecord{
		TxnStatusID:  cb.TxnStatusID,
		TxnRefID:     cb.TxnRefID,
		TxnMsg:       cb.TxnMsg,
		TxnDate:      cb.TxnDate,
		TxnBankName:  cb.TxnBankName,
		TxnPaymentID: cb.TxnPaymentID,
		TxnAmount:    cb.TxnAmount,
		ProcessedAt:  time.Now(),
	}
	merged, err := payload.Encode()
	if err != nil {
		return nil, domain.ErrInternal("encode session payload", err)
	}
	if err := s.sessions.UpdatePayload(ctx, s.pool, session.ID, merged); err != nil {
		return nil, domain.ErrInternal("merge callback payload", err)
	}
	if err := s.sessions.UpdateStatus(ctx, s.pool, session.ID, mapped); err != nil {
		return nil, domain.ErrInternal("update session status", err)
	}

	if mapped != domain.SessionSuccess {
		s.logger.Info("callback finalized without payment",
			"session_id", session.ID, "status", mapped, "txn_status", cb.TxnStatusID)
		return nil, nil
	}

	// In-process fast path only; the unique constraint is authoritative.
	dedupeKey := providerPublicKey + ":" + cb.TxnOrderID
	if res := s.dedupe.Check(ctx, dedupeKey); !res.Allowed {
		existing, err := s.payments.FindBySessionID(ctx, s.pool, session.ID)
		if err != nil {
			return nil, domain.ErrInternal("find settled payment", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	payment, err := s.materializePayment(ctx, session, payload, prov.ID)
	if err != nil {
		s.dedupe.Remove(dedupeKey)
		return nil, err
	}
	return payment, nil
}

// materializePayment runs the money-moving half of callback success in one
// transaction: credit the gate account (topup IN), debit it into escrow
// (order OUT), and insert the SUCCESS payment row plus its details.
func (s *GatewayService) materializePayment(ctx context.Context, session *domain.PaymentSession, payload *domain.SessionPayload, providerID int64) (*domain.Payment, error) {
	buyer, err := s.provisionGateAccount(ctx, payload)
	if err != nil {
		return nil, err
	}

	amount, err := domain.ParsePositiveAmount(payload.ProductAmount)
	if err != nil {
		return nil, domain.ErrValidation("productAmount: " + err.Error())
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.engine.LockAccountForUpdate(ctx, tx, buyer.ID); err != nil {
		return nil, err
	}

	sessionID := session.ID
	merchantID := session.MerchantID
	payment, inserted, err := s.payments.Insert(ctx, tx, &domain.Payment{
		ID:         uuid.New(),
		Type:       domain.PaymentGateway,
		BuyerID:    buyer.ID,
		MerchantID: &merchantID,
		SessionID:  &sessionID,
		Amount:     amount,
		Status:     domain.PaymentSuccess,
		ProviderID: &providerID,
	})
	if err != nil {
		return nil, domain.ErrTransient("finalize payment", err)
	}
	if !inserted {
		// A concurrent callback already settled this session.
		if err := tx.Commit(ctx); err != nil {
			return nil, domain.ErrInternal("commit tx", err)
		}
		return payment, nil
	}

	refundable := strings.EqualFold(payload.IsRefundable, "true") || payload.IsRefundable == "1"
	if err := s.payments.InsertDetails(ctx, tx, &domain.PaymentDetails{
		PaymentID:   payment.ID,
		Signature:   strPtr(payload.Signature),
		ProductName: payload.ProductName,
		ProductDesc: strPtr(payload.ProductDesc),
		ProductCat:  strPtr(payload.ProductCat),
		Amount:      amount,
		BuyerName:   strPtr(payload.BuyerName),
		BuyerEmail:  strPtr(payload.BuyerAccount),
		BuyerPhone:  strPtr(payload.BuyerPhone),
		Refundable:  refundable,
	}); err != nil {
		return nil, domain.ErrTransient("insert payment details", err)
	}

	// The acquirer moved real money in; mirror it as a wallet topup, then
	// sweep it into escrow so the balance nets to zero but both legs audit.
	paymentID := payment.ID
	if _, _, err := s.engine.PostEntry(ctx, tx, ledger.EntryParams{
		AccountID: buyer.ID,
		Amount:    amount,
		Direction: domain.DirectionIn,
		Source:    domain.SourceTopup,
		PaymentID: &paymentID,
	}); err != nil {
		return nil, domain.ErrTransient("post topup entry", err)
	}
	if _, _, err := s.engine.PostEntry(ctx, tx, ledger.EntryParams{
		AccountID: buyer.ID,
		Amount:    amount,
		Direction: domain.DirectionOut,
		Source:    domain.SourceOrder,
		PaymentID: &paymentID,
	}); err != nil {
		return nil, domain.ErrTransient("post order entry", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewPaymentEvent(payment, "finalized")); err != nil {
		return nil, domain.ErrTransient("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("gateway payment finalized",
		"payment_id", payment.ID, "session_id", session.ID, "amount", amount)
	return payment, nil
}

// Retry opens a replacement session for a failed or expired one. The old
// row keeps its history but loses its token, so any previously issued token
// dies with the rotation; the new row links back via original_session_id.
func (s *GatewayService) Retry(ctx context.Context, merchantID, sessionID int64) (*SessionURL, error) {
	old, err := s.sessions.FindByID(ctx, s.pool, sessionID)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if old == nil || old.MerchantID != merchantID {
		return nil, domain.ErrNotFound("payment session", strconv.FormatInt(sessionID, 10))
	}

	switch old.Status {
	case domain.SessionFailed, domain.SessionExpired, domain.SessionUnpassed, domain.SessionCancelled:
	default:
		return nil, domain.ErrConflict("session cannot be retried in status " + string(old.Status))
	}

	payload, err := domain.DecodeSessionPayload(old.Payload)
	if err != nil {
		return nil, domain.ErrInternal("decode session payload", err)
	}
	payload.Callback = nil
	fresh, err := payload.Encode()
	if err != nil {
		return nil, domain.ErrInternal("encode session payload", err)
	}

	originalID := old.ID
	if old.OriginalSessionID != nil {
		originalID = *old.OriginalSessionID
	}
	session, err := s.sessions.Create(ctx, s.pool, &domain.PaymentSession{
		MerchantID:        merchantID,
		Payload:           fresh,
		Status:            domain.SessionPending,
		ExpiresAt:         time.Now().Add(s.tokens.Expiry()),
		OriginalSessionID: &originalID,
	})
	if err != nil {
		return nil, domain.ErrInternal("create retry session", err)
	}

	token, err := s.tokens.Generate(session.ID, merchantID, payload.OrderID)
	if err != nil {
		return nil, domain.ErrInternal("mint session token", err)
	}
	if err := s.sessions.SetToken(ctx, s.pool, session.ID, token); err != nil {
		return nil, domain.ErrInternal("store session token", err)
	}

	// Token rotation: the superseded row's stored token is cleared so the
	// old token can never pass the id+token binding again.
	if err := s.sessions.SetToken(ctx, s.pool, old.ID, ""); err != nil {
		return nil, domain.ErrInternal("rotate old session token", err)
	}
	if old.Status != domain.SessionCancelled {
		if err := s.sessions.UpdateStatus(ctx, s.pool, old.ID, domain.SessionCancelled); err != nil {
			return nil, domain.ErrInternal("cancel old session", err)
		}
	}

	s.logger.Info("session retried",
		"old_session_id", old.ID, "new_session_id", session.ID, "merchant_id", merchantID)
	return &SessionURL{PaymentURL: fmt.Sprintf("https://%s/%s", s.payHost, token)}, nil
}

// TokenStatus reports the status of the session behind a checkout token. The
// checkout holds nothing but the token, so this read decodes without
// verifying; the row id inside the claims is all it needs and the response
// carries no payload data.
func (s *GatewayService) TokenStatus(ctx context.Context, token string) (domain.SessionStatus, error) {
	claims, err := s.tokens.DecodeUnverified(token)
	if err != nil {
		return "", domain.ErrValidation("malformed token")
	}

	session, err := s.sessions.FindByID(ctx, s.pool, claims.SessionID)
	if err != nil {
		return "", domain.ErrInternal("find session", err)
	}
	if session == nil {
		return "", domain.ErrNotFound("payment session", strconv.FormatInt(claims.SessionID, 10))
	}

	if session.Status != domain.SessionPending && session.Status != domain.SessionInitiate {
		return session.Status, nil
	}
	if time.Now().After(session.ExpiresAt) {
		return domain.SessionExpired, nil
	}
	return session.Status, nil
}

// Status reports the current state of a merchant's latest session for an order.
func (s *GatewayService) Status(ctx context.Context, merchantID int64, orderID string) (*domain.PaymentSession, error) {
	session, err := s.sessions.FindLatestByOrder(ctx, s.pool, merchantID, orderID)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound("payment session", orderID)
	}
	return session, nil
}

// provisionGateAccount finds or creates the buyer's gateway account keyed by
// the gate contact captured at submission.
func (s *GatewayService) provisionGateAccount(ctx context.Context, payload *domain.SessionPayload) (*domain.Account, error) {
	gateEmail, gatePhone := payload.GateContact()
	account, err := s.accounts.FindByEmail(ctx, s.pool, gateEmail)
	if err != nil {
		return nil, domain.ErrInternal("find gate account", err)
	}
	if account != nil {
		return account, nil
	}

	// Unusable password until the buyer claims the account through the
	// regular sign-in flow.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("hash placeholder password", err)
	}

	now := time.Now()
	account = &domain.Account{
		ID:           uuid.New(),
		Email:        gateEmail,
		Phone:        strPtr(gatePhone),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Status:       domain.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, s.pool, account); err != nil {
		// A concurrent provision may have won the race; re-read.
		existing, findErr := s.accounts.FindByEmail(ctx, s.pool, gateEmail)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, domain.ErrInternal("create gate account", err)
	}

	s.logger.Info("gate account provisioned", "account_id", account.ID)
	return account, nil
}

func parseAcquirerOrder(ref string) (int64, bool) {
	if !strings.HasPrefix(ref, acquirerOrderPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(ref, acquirerOrderPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requestFields flattens the request into the canonical signature field map.
// Field names mirror the wire format exactly.
func requestFields(req *domain.PaymentRequest) map[string]string {
	return map[string]string{
		"secretKey":     req.SecretKey,
		"apiKey":        req.APIKey,
		"returnUrl":     req.ReturnURL,
		"buyerAccount":  req.BuyerAccount,
		"buyerPhone":    req.BuyerPhone,
		"buyerName":     req.BuyerName,
		"orderId":       req.OrderID,
		"productName":   req.ProductName,
		"productDesc":   req.ProductDesc,
		"productAmount": req.ProductAmount,
		"isRefundable":  req.IsRefundable,
		"productCat":    req.ProductCat,
		"signature":     req.Signature,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
