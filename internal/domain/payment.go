package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentType distinguishes peer-to-peer transfers from external gateway flows.
type PaymentType string

const (
	PaymentP2P     PaymentType = "p2p"
	PaymentGateway PaymentType = "gateway"
)

// PaymentStatus is the settlement outcome axis of a payment.
// REPORT and NEWER are reserved values carried over from the wire format;
// no transition produces them.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSuccess   PaymentStatus = "success"
	PaymentFail      PaymentStatus = "fail"
	PaymentReport    PaymentStatus = "report"
	PaymentRefund    PaymentStatus = "refund"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentNewer     PaymentStatus = "newer"
)

// Payment is one transfer-in-progress. It is an immutable audit record after
// completion: only status, is_completed and updated_at ever mutate.
// Two axes live on the same row: Status (settlement outcome) and IsCompleted
// (escrow delivery-confirmation gate).
type Payment struct {
	ID          uuid.UUID     `json:"payment_id"`
	Type        PaymentType   `json:"payment_type"`
	BuyerID     uuid.UUID     `json:"buyer_id"`
	SellerID    *uuid.UUID    `json:"seller_id,omitempty"`
	MerchantID  *int64        `json:"merchant_id,omitempty"`
	SessionID   *int64        `json:"session_id,omitempty"`
	Amount      int64         `json:"amount"`
	Status      PaymentStatus `json:"status"`
	IsCompleted bool          `json:"is_completed"`
	ProviderID  *int64        `json:"provider_id,omitempty"`
	IPAddress   *string       `json:"ip_address,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PaymentDetails is the single product-metadata record owned by a payment.
type PaymentDetails struct {
	PaymentID      uuid.UUID `json:"payment_id"`
	Signature      *string   `json:"signature,omitempty"`
	ProductName    string    `json:"product_name"`
	ProductDesc    *string   `json:"product_desc,omitempty"`
	ProductCat     *string   `json:"product_cat,omitempty"`
	Amount         int64     `json:"amount"`
	BuyerName      *string   `json:"buyer_name,omitempty"`
	BuyerEmail     *string   `json:"buyer_email,omitempty"`
	BuyerPhone     *string   `json:"buyer_phone,omitempty"`
	Refundable     bool      `json:"refundable"`
	DeliveryStatus *string   `json:"delivery_status,omitempty"`
}

// CanComplete reports whether the escrow release gate may open for this
// payment when invoked by actor. The flip is one-way: is_completed goes
// false→true exactly once, and only while status is success.
func (p *Payment) CanComplete(actor uuid.UUID) error {
	if p.BuyerID != actor {
		return ErrForbidden("only the buyer can confirm delivery and complete this payment")
	}
	if p.IsCompleted {
		return ErrConflict("payment is already completed")
	}
	if p.Status != PaymentSuccess {
		return ErrConflict("payment cannot be completed in status " + string(p.Status))
	}
	return nil
}

// CounterpartSource identifies who receives the escrow release: the seller
// for P2P, the merchant-owning account for gateway payments.
func (p *Payment) CounterpartSource() (sellerID *uuid.UUID, merchantID *int64) {
	if p.Type == PaymentP2P {
		return p.SellerID, nil
	}
	return nil, p.MerchantID
}
