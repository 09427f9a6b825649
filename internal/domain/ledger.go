package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction marks which way a ledger row moves money for its account.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Source tags why the balance changed.
type Source string

const (
	SourceTopup   Source = "topup"
	SourceOrder   Source = "order"
	SourceReceive Source = "receive"
	SourceSend    Source = "send"
)

// EntryStatus is the settlement state of a ledger row. Withdrawal OUT rows
// stay pending until the external transfer is confirmed.
type EntryStatus string

const (
	EntryPending EntryStatus = "pending"
	EntrySuccess EntryStatus = "success"
	EntryFail    EntryStatus = "fail"
)

// LedgerEntry is an immutable record of one directional balance change.
// Balance is the account's post-mutation snapshot, written in the same
// transaction as the balance update itself.
type LedgerEntry struct {
	ID         uuid.UUID   `json:"id"`
	AccountID  uuid.UUID   `json:"account_id"`
	Amount     int64       `json:"amount"`
	Direction  Direction   `json:"direction"`
	Source     *Source     `json:"source,omitempty"`
	Balance    int64       `json:"balance"`
	OppositeID *uuid.UUID  `json:"opposite_id,omitempty"`
	PaymentID  *uuid.UUID  `json:"payment_id,omitempty"`
	Status     EntryStatus `json:"status"`
	Reference  *string     `json:"reference,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TransferResult is returned by the paired-row ledger operation.
type TransferResult struct {
	FromEntry *LedgerEntry
	ToEntry   *LedgerEntry
	From      *Account
	To        *Account
}

// AccountAudit is the append-only platform-fee ledger: one row per
// fee-bearing transaction with the running platform balance snapshot.
type AccountAudit struct {
	ID         int64     `json:"id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	Percentage string    `json:"percentage"`
	Amount     int64     `json:"amount"`
	Balance    int64     `json:"balance"`
	Direction  Direction `json:"direction"`
	CreatedAt  time.Time `json:"created_at"`
}

// WithdrawalStatus tracks a request to move money out to a bank.
type WithdrawalStatus string

const (
	WithdrawalRequested WithdrawalStatus = "requested"
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalComplete  WithdrawalStatus = "complete"
	WithdrawalFail      WithdrawalStatus = "fail"
)

// Withdrawal pairs a bank payout request with the single PENDING ledger OUT
// row written at request time.
type Withdrawal struct {
	ID          uuid.UUID        `json:"id"`
	AccountID   uuid.UUID        `json:"account_id"`
	Amount      int64            `json:"amount"`
	BankName    string           `json:"bank_name"`
	BankAccount string           `json:"bank_account"`
	Status      WithdrawalStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
