package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus is the external-gateway session state machine:
// PENDING → INITIATE (token first validated) → PASSED|UNPASSED (after acquirer
// submission) → SUCCESS|FAILED|EXPIRED|CANCELLED (after acquirer callback).
// COMPLETED is terminal success.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionInitiate  SessionStatus = "initiate"
	SessionInvalid   SessionStatus = "invalid"
	SessionExpired   SessionStatus = "expired"
	SessionPassed    SessionStatus = "passed"
	SessionUnpassed  SessionStatus = "unpassed"
	SessionSuccess   SessionStatus = "success"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
	SessionCompleted SessionStatus = "completed"
)

// PaymentSession is the scratch record of one external payment flow. Never
// deleted: only transitioned or marked expired. Token is the current session
// token; a token is only valid while it matches this stored string exactly,
// which invalidates any superseded token after a retry rotation.
type PaymentSession struct {
	ID                int64         `json:"id"`
	MerchantID        int64         `json:"merchant_id"`
	Token             string        `json:"-"`
	Payload           string        `json:"-"`
	Status            SessionStatus `json:"status"`
	ExpiresAt         time.Time     `json:"expires_at"`
	OriginalSessionID *int64        `json:"original_session_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// PaymentRequest is the inbound merchant payment request. String-typed amount
// and flag fields are part of the signature canonicalization contract and must
// not be converted before verification.
type PaymentRequest struct {
	SecretKey     string `json:"secretKey"`
	APIKey        string `json:"apiKey"`
	ReturnURL     string `json:"returnUrl,omitempty"`
	BuyerAccount  string `json:"buyerAccount"`
	BuyerPhone    string `json:"buyerPhone"`
	BuyerName     string `json:"buyerName"`
	OrderID       string `json:"orderId"`
	ProductName   string `json:"productName"`
	ProductDesc   string `json:"productDesc"`
	ProductAmount string `json:"productAmount"`
	IsRefundable  string `json:"isRefundable"`
	ProductCat    string `json:"productCat,omitempty"`
	Signature     string `json:"signature"`
}

// Validate checks required fields before any side effect.
func (r *PaymentRequest) Validate() error {
	switch {
	case r.SecretKey == "" || r.APIKey == "":
		return fmt.Errorf("merchant credentials are required")
	case r.OrderID == "":
		return fmt.Errorf("orderId is required")
	case r.BuyerName == "" || r.BuyerPhone == "":
		return fmt.Errorf("buyer name and phone are required")
	case r.ProductName == "" || r.ProductDesc == "":
		return fmt.Errorf("product name and description are required")
	case r.Signature == "":
		return fmt.Errorf("signature is required")
	}
	if err := ValidateEmail(r.BuyerAccount); err != nil {
		return fmt.Errorf("buyerAccount: %w", err)
	}
	if _, err := ParsePositiveAmount(r.ProductAmount); err != nil {
		return fmt.Errorf("productAmount: %w", err)
	}
	return nil
}

// SessionPayload is the stored session payload: the original request, the
// buyer contact captured at checkout submission, and the callback metadata
// merged in once the acquirer reports back.
type SessionPayload struct {
	PaymentRequest
	Gate     *GateDetails    `json:"gateDetails,omitempty"`
	Callback *CallbackRecord `json:"callbackData,omitempty"`
}

// GateDetails is the contact the buyer submits on the hosted checkout. The
// gateway account is provisioned from these, not from the merchant's request.
type GateDetails struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// GateContact returns the email and phone the gateway account should be keyed
// by, falling back to the merchant-supplied buyer fields for sessions that
// were never submitted.
func (p *SessionPayload) GateContact() (email, phone string) {
	if p.Gate != nil && p.Gate.Email != "" {
		return p.Gate.Email, p.Gate.Phone
	}
	return p.BuyerAccount, p.BuyerPhone
}

// DecodeSessionPayload parses the serialized payload of a session row.
func DecodeSessionPayload(raw string) (*SessionPayload, error) {
	var p SessionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	return &p, nil
}

// Encode serializes the payload for storage.
func (p *SessionPayload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode session payload: %w", err)
	}
	return string(data), nil
}

// AcquirerCallback is the acquirer's webhook body.
type AcquirerCallback struct {
	TxnStatusID  string `json:"txn_status_id"`
	TxnRefID     string `json:"txn_ref_id"`
	TxnMsg       string `json:"txn_msg"`
	TxnDate      string `json:"txn_date"`
	TxnBankName  string `json:"txn_bank_name"`
	TxnPaymentID string `json:"txn_payment_id"`
	TxnAmount    string `json:"txn_amount"`
	TxnOrderID   string `json:"txn_order_id"`
	TxnBuyer     string `json:"txn_buyer_email"`
	TxnBuyerTel  string `json:"txn_buyer_phone"`
	TxnBuyerName string `json:"txn_buyer_name"`
	Signature    string `json:"signature"`
}

// CallbackRecord is the callback metadata merged into the session payload.
type CallbackRecord struct {
	TxnStatusID  string    `json:"txn_status_id"`
	TxnRefID     string    `json:"txn_ref_id"`
	TxnMsg       string    `json:"txn_msg"`
	TxnDate      string    `json:"txn_date"`
	TxnBankName  string    `json:"txn_bank_name"`
	TxnPaymentID string    `json:"txn_payment_id"`
	TxnAmount    string    `json:"txn_amount"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// MapAcquirerStatus translates the acquirer's transaction-status code into a
// session status. Unknown codes are treated as failures.
func MapAcquirerStatus(txnStatusID string) SessionStatus {
	switch txnStatusID {
	case "1":
		return SessionSuccess
	case "0", "2":
		return SessionFailed
	case "3":
		return SessionPending
	default:
		return SessionFailed
	}
}
