package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/guard"
	"github.com/gatepay/platform/internal/ledger"
	"github.com/gatepay/platform/internal/provider"
)

const (
	testMerchantSecret = "merchant-secret"
	testMerchantAPI    = "merchant-api"
	testProviderKey    = "berrypay-public"
	testCallbackURL    = "https://api.gatepay.test/outside/callback"
)

type gatewayFixture struct {
	store    *fakeStore
	svc      *GatewayService
	merchant *domain.Merchant
	acquirer *httptest.Server
	// last form the acquirer saw
	submitted map[string]string
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	store := newFakeStore()
	f := &gatewayFixture{store: store}

	f.acquirer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.submitted = map[string]string{}
		for k := range r.PostForm {
			f.submitted[k] = r.PostFormValue(k)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":      "1",
			"payment_url": "https://acquirer.test/pay/xyz",
			"ref_id":      "BP-REF-1",
		})
	}))
	t.Cleanup(f.acquirer.Close)

	accounts := &fakeAccountRepo{store: store}
	entries := &fakeLedgerRepo{store: store}
	outbox := &fakeOutboxRepo{store: store}
	engine := ledger.NewEngine(accounts, entries, outbox)

	tokens := auth.NewPaymentTokenManager("token-secret", 15*time.Minute, "gatepay", "checkout")
	acquirer := provider.NewBerryPayClient(f.acquirer.URL, testProviderKey, "acq-secret", "acq-api")
	breaker := guard.NewCircuitBreaker(5, time.Minute)

	f.svc = NewGatewayService(fakeDB{},
		&fakeMerchantRepo{store: store},
		&fakeSessionRepo{store: store},
		&fakePaymentRepo{store: store},
		accounts,
		&fakeProviderRepo{store: store},
		outbox, engine, tokens, acquirer, breaker,
		"pay.gatepay.test", testCallbackURL, slog.Default())

	f.merchant = &domain.Merchant{
		ID:        7,
		Name:      "Test Shop",
		SecretKey: testMerchantSecret,
		APIKey:    testMerchantAPI,
		Status:    domain.MerchantActive,
	}
	store.merchants[f.merchant.ID] = f.merchant
	store.providers[1] = &domain.PaymentProvider{
		ID:        1,
		Name:      "BerryPay",
		PublicKey: testProviderKey,
		Status:    domain.ProviderActive,
	}

	return f
}

func signedRequest(orderID string) *domain.PaymentRequest {
	req := &domain.PaymentRequest{
		SecretKey:     testMerchantSecret,
		APIKey:        testMerchantAPI,
		ReturnURL:     "https://shop.example.com/done",
		BuyerAccount:  "buyer@example.com",
		BuyerPhone:    "60123456789",
		BuyerName:     "Buyer",
		OrderID:       orderID,
		ProductName:   "Widget",
		ProductDesc:   "A widget",
		ProductAmount: "25.00",
		IsRefundable:  "0",
	}
	req.Signature = auth.CanonicalSignature(requestFields(req))
	return req
}

// openSession creates a session and returns the minted token.
func (f *gatewayFixture) openSession(t *testing.T, orderID string) string {
	t.Helper()
	url, err := f.svc.CreateSession(context.Background(), f.merchant.ID, signedRequest(orderID))
	require.NoError(t, err)
	parts := strings.Split(url.PaymentURL, "/")
	return parts[len(parts)-1]
}

func TestCreateSessionMintsTokenBoundToRow(t *testing.T) {
	f := newGatewayFixture(t)

	token := f.openSession(t, "ORD-1")
	require.NotEmpty(t, token)

	view, err := f.svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", view.OrderID)
	assert.Equal(t, f.merchant.ID, view.MerchantID)
	assert.Equal(t, domain.SessionInitiate, view.Status)
}

func TestCreateSessionRejectsDuplicateOrder(t *testing.T) {
	f := newGatewayFixture(t)
	f.openSession(t, "ORD-1")

	_, err := f.svc.CreateSession(context.Background(), f.merchant.ID, signedRequest("ORD-1"))
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
}

func TestCreateSessionRejectsBadSignature(t *testing.T) {
	f := newGatewayFixture(t)

	req := signedRequest("ORD-1")
	req.ProductAmount = "2500.00"

	_, err := f.svc.CreateSession(context.Background(), f.merchant.ID, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestCreateSessionRejectsWrongCredentials(t *testing.T) {
	f := newGatewayFixture(t)

	req := signedRequest("ORD-1")
	req.SecretKey = "wrong"

	_, err := f.svc.CreateSession(context.Background(), f.merchant.ID, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestSubmitStoresGateDetailsAndUsesConfiguredCallback(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")

	result, err := f.svc.Submit(context.Background(), token, SubmitInput{
		BuyerGateEmail: "walkin@example.com",
		BuyerGatePhone: "60198765432",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPassed, result.Status)
	assert.Equal(t, "https://acquirer.test/pay/xyz", result.RedirectURL)

	// the acquirer saw the server-configured callback URL, never a
	// caller-supplied one
	require.NotNil(t, f.submitted)
	assert.Equal(t, testCallbackURL, f.submitted["callback_url"])
	assert.Equal(t, "gp-1", f.submitted["order_id"])

	// the submitted gate contact is what goes to the acquirer
	assert.Equal(t, "walkin@example.com", f.submitted["buyer_email"])
	assert.Equal(t, "60198765432", f.submitted["buyer_phone"])

	// the gate contact is persisted into the session payload
	session := f.store.sessions[result.SessionID]
	payload, err := domain.DecodeSessionPayload(session.Payload)
	require.NoError(t, err)
	require.NotNil(t, payload.Gate)
	assert.Equal(t, "walkin@example.com", payload.Gate.Email)

	// and a gateway account was provisioned for it
	var provisioned *domain.Account
	for _, a := range f.store.accounts {
		if a.Email == "walkin@example.com" {
			provisioned = a
		}
	}
	require.NotNil(t, provisioned)
	assert.Equal(t, domain.RoleUser, provisioned.Role)
}

func TestSubmitRequiresValidGateEmail(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")

	_, err := f.svc.Submit(context.Background(), token, SubmitInput{BuyerGateEmail: "not-an-email"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buyerGateEmail")
}

func TestSubmitIsInitiateOnly(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")

	in := SubmitInput{BuyerGateEmail: "walkin@example.com"}
	_, err := f.svc.Submit(context.Background(), token, in)
	require.NoError(t, err)

	// the session is now PASSED; a second submit is a conflict
	_, err = f.svc.Submit(context.Background(), token, in)
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
}

func (f *gatewayFixture) successCallback(sessionRef string) *domain.AcquirerCallback {
	return &domain.AcquirerCallback{
		TxnStatusID: "1",
		TxnRefID:    "BP-REF-1",
		TxnMsg:      "approved",
		TxnAmount:   "25.00",
		TxnOrderID:  sessionRef,
	}
}

func TestProcessCallbackMaterializesPayment(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")
	_, err := f.svc.Submit(context.Background(), token, SubmitInput{
		BuyerGateEmail: "walkin@example.com",
		BuyerGatePhone: "60198765432",
	})
	require.NoError(t, err)

	payment, err := f.svc.ProcessCallback(context.Background(), testProviderKey, f.successCallback("gp-1"))
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentGateway, payment.Type)
	assert.Equal(t, int64(2_500), payment.Amount)
	require.NotNil(t, payment.SessionID)
	assert.Equal(t, int64(1), *payment.SessionID)

	assert.Equal(t, domain.SessionSuccess, f.store.sessions[1].Status)

	// topup IN plus escrow OUT on the gate account net to zero
	buyer := f.store.accounts[payment.BuyerID]
	assert.Equal(t, "walkin@example.com", buyer.Email)
	assert.Equal(t, int64(0), buyer.Balance)
	assert.Len(t, f.store.entriesFor(buyer.ID), 2)
	assert.Equal(t, int64(0), f.store.ledgerSum(buyer.ID))
}

func TestProcessCallbackIsIdempotent(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")
	_, err := f.svc.Submit(context.Background(), token, SubmitInput{BuyerGateEmail: "walkin@example.com"})
	require.NoError(t, err)

	first, err := f.svc.ProcessCallback(context.Background(), testProviderKey, f.successCallback("gp-1"))
	require.NoError(t, err)
	require.NotNil(t, first)

	// the duplicate resolves to the already-persisted payment; nothing moves
	second, err := f.svc.ProcessCallback(context.Background(), testProviderKey, f.successCallback("gp-1"))
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	assert.Len(t, f.store.payments, 1)
	assert.Len(t, f.store.entriesFor(first.BuyerID), 2)
}

func TestProcessCallbackFailureSkipsMoney(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")
	_, err := f.svc.Submit(context.Background(), token, SubmitInput{BuyerGateEmail: "walkin@example.com"})
	require.NoError(t, err)

	cb := f.successCallback("gp-1")
	cb.TxnStatusID = "0"

	payment, err := f.svc.ProcessCallback(context.Background(), testProviderKey, cb)
	require.NoError(t, err)
	assert.Nil(t, payment)
	assert.Equal(t, domain.SessionFailed, f.store.sessions[1].Status)
	assert.Empty(t, f.store.payments)
	assert.Empty(t, f.store.entries)
}

func TestProcessCallbackRejectsUnknownProvider(t *testing.T) {
	f := newGatewayFixture(t)
	f.openSession(t, "ORD-1")

	_, err := f.svc.ProcessCallback(context.Background(), "who-is-this", f.successCallback("gp-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestTokenStatusFollowsSession(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")

	status, err := f.svc.TokenStatus(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPending, status)

	_, err = f.svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	status, err = f.svc.TokenStatus(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionInitiate, status)

	_, err = f.svc.Submit(context.Background(), token, SubmitInput{BuyerGateEmail: "walkin@example.com"})
	require.NoError(t, err)

	status, err = f.svc.TokenStatus(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPassed, status)
}

func TestTokenStatusReportsExpiry(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.openSession(t, "ORD-1")

	f.store.sessions[1].ExpiresAt = time.Now().Add(-time.Minute)

	status, err := f.svc.TokenStatus(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, status)
}

func TestTokenStatusRejectsMalformedToken(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.svc.TokenStatus(context.Background(), "not-a-token")
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
}

func TestRetryRotatesToken(t *testing.T) {
	f := newGatewayFixture(t)
	oldToken := f.openSession(t, "ORD-1")

	// only failed, expired, unpassed or cancelled sessions may retry
	_, err := f.svc.Retry(context.Background(), f.merchant.ID, 1)
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)

	f.store.sessions[1].Status = domain.SessionFailed

	fresh, err := f.svc.Retry(context.Background(), f.merchant.ID, 1)
	require.NoError(t, err)
	parts := strings.Split(fresh.PaymentURL, "/")
	newToken := parts[len(parts)-1]

	// the superseded token dies with the rotation
	_, err = f.svc.ValidateToken(context.Background(), oldToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	view, err := f.svc.ValidateToken(context.Background(), newToken)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", view.OrderID)
	assert.Equal(t, domain.SessionInitiate, view.Status)

	// the old row is cancelled and linked from the replacement
	assert.Equal(t, domain.SessionCancelled, f.store.sessions[1].Status)
	require.NotNil(t, f.store.sessions[2].OriginalSessionID)
	assert.Equal(t, int64(1), *f.store.sessions[2].OriginalSessionID)
}
