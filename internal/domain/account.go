package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the explicit account role. Authorization decisions read this field
// only; id allocation carries no role meaning.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleUser       Role = "user"
)

// AccountStatus enumerates account lifecycle states.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountInactive  AccountStatus = "inactive"
	AccountSuspended AccountStatus = "suspended"
)

// Account represents an accounts row: one identity plus the authoritative
// balance counter. The balance column is mutated only inside a transaction
// that also appends a ledger row carrying the post-mutation snapshot.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	Username     *string       `json:"username,omitempty"`
	Phone        *string       `json:"phone,omitempty"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	Balance      int64         `json:"balance"`
	MerchantID   *int64        `json:"merchant_id,omitempty"`
	Country      *string       `json:"country,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PhoneOrEmail returns the preferred OTP delivery target: phone if present,
// otherwise email.
func (a *Account) PhoneOrEmail() (target string, viaPhone bool) {
	if a.Phone != nil && *a.Phone != "" {
		return *a.Phone, true
	}
	return a.Email, false
}
