package domain

import "time"

// MerchantStatus enumerates merchant lifecycle states. Only active merchants
// may open payment sessions.
type MerchantStatus string

const (
	MerchantActive    MerchantStatus = "active"
	MerchantInactive  MerchantStatus = "inactive"
	MerchantPending   MerchantStatus = "pending"
	MerchantSuspended MerchantStatus = "suspended"
)

// Merchant is the external-caller descriptor consumed by the session core.
// Onboarding CRUD lives elsewhere; the core only reads credentials and status.
type Merchant struct {
	ID        int64          `json:"merchant_id"`
	Name      string         `json:"name"`
	SecretKey string         `json:"-"`
	APIKey    string         `json:"-"`
	Status    MerchantStatus `json:"status"`
	OwnerID   *string        `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProviderStatus enumerates acquirer states.
type ProviderStatus string

const (
	ProviderActive      ProviderStatus = "active"
	ProviderInactive    ProviderStatus = "inactive"
	ProviderMaintenance ProviderStatus = "maintenance"
)

// PaymentProvider is an acquirer descriptor. Inbound callbacks are authorized
// by public key, active status and non-expiry.
type PaymentProvider struct {
	ID        int64          `json:"provider_id"`
	Name      string         `json:"name"`
	PublicKey string         `json:"public_key"`
	Status    ProviderStatus `json:"status"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Authorize checks status and expiry at the given instant.
func (p *PaymentProvider) Authorize(now time.Time) error {
	if p.Status != ProviderActive {
		return ErrAccessDenied()
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return ErrAccessDenied()
	}
	return nil
}
