package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatepay/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// DB is the pool-level handle services hold: direct queries plus the ability
// to open transactions. *pgxpool.Pool satisfies it.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountRepository provides access to accounts.
type AccountRepository interface {
	// FindByID returns an account by ID, nil when absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error)

	// FindByEmail returns an account by email, nil when absent.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.Account, error)

	// FindByUsername returns an account by username, nil when absent.
	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.Account, error)

	// FindByMerchantID returns the account owning the given merchant.
	FindByMerchantID(ctx context.Context, db DBTX, merchantID int64) (*domain.Account, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the account.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)

	// Create inserts a new account.
	Create(ctx context.Context, db DBTX, account *domain.Account) error

	// AdjustBalance applies a server-side balance delta and returns the updated row.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (*domain.Account, error)
}

// LedgerRepository provides access to the append-only wallet ledger.
type LedgerRepository interface {
	// Insert creates a ledger row with its post-mutation balance snapshot.
	Insert(ctx context.Context, db DBTX, entry *domain.LedgerEntry) (*domain.LedgerEntry, error)

	// LinkOpposite back-fills opposite_id on the first row of a pair.
	LinkOpposite(ctx context.Context, db DBTX, id, oppositeID uuid.UUID) error

	// UpdateStatus transitions a pending row (withdrawal settlement).
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.EntryStatus) error

	// ListByAccount returns entries for an account, newest first,
	// with cursor-based pagination.
	ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerEntry, error)
}

// PaymentRepository provides access to payments and payment details.
type PaymentRepository interface {
	// Insert creates a payment. A unique-violation on session_id returns the
	// already-persisted payment instead of an error, making callback
	// finalization idempotent.
	Insert(ctx context.Context, db DBTX, p *domain.Payment) (*domain.Payment, bool, error)

	// InsertDetails creates the product-metadata record for a payment.
	InsertDetails(ctx context.Context, db DBTX, d *domain.PaymentDetails) error

	// FindByID returns a payment by ID, nil when absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Payment, error)

	// FindBySessionID returns the payment materialized for a session, nil
	// when the session has not settled.
	FindBySessionID(ctx context.Context, db DBTX, sessionID int64) (*domain.Payment, error)

	// FindDetails returns the details record owned by a payment.
	FindDetails(ctx context.Context, db DBTX, paymentID uuid.UUID) (*domain.PaymentDetails, error)

	// LockForUpdate acquires a row-level lock on the payment.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error)

	// MarkCompleted flips is_completed, guarded so the flip happens once.
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error

	// SetDeliveryStatus records the delivery confirmation on the details row.
	SetDeliveryStatus(ctx context.Context, db DBTX, paymentID uuid.UUID, status string) error

	// ListByBuyer returns payments where the account is the paying side.
	ListByBuyer(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Payment, error)

	// ListBySeller returns payments where the account is the receiving side.
	ListBySeller(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Payment, error)
}

// SessionRepository provides access to payment sessions.
type SessionRepository interface {
	// Create inserts a session row without a token and returns its id.
	Create(ctx context.Context, db DBTX, s *domain.PaymentSession) (*domain.PaymentSession, error)

	// SetToken stores the minted token back onto the row (second phase of
	// session creation).
	SetToken(ctx context.Context, db DBTX, id int64, token string) error

	// FindByID returns a session by id, nil when absent.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.PaymentSession, error)

	// FindByIDAndToken returns the session only when the stored token matches
	// exactly, nil otherwise.
	FindByIDAndToken(ctx context.Context, db DBTX, id int64, token string) (*domain.PaymentSession, error)

	// ExistsForOrder reports whether the merchant already opened a session
	// for the given order id.
	ExistsForOrder(ctx context.Context, db DBTX, merchantID int64, orderID string) (bool, error)

	// UpdateStatus transitions a session.
	UpdateStatus(ctx context.Context, db DBTX, id int64, status domain.SessionStatus) error

	// UpdatePayload rewrites the serialized payload (callback merge).
	UpdatePayload(ctx context.Context, db DBTX, id int64, payload string) error

	// FindLatestByOrder returns the newest session for a merchant order.
	FindLatestByOrder(ctx context.Context, db DBTX, merchantID int64, orderID string) (*domain.PaymentSession, error)
}

// MerchantRepository provides read access to merchants.
type MerchantRepository interface {
	// FindByID returns a merchant by id, nil when absent.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.Merchant, error)
}

// ProviderRepository provides read access to payment providers.
type ProviderRepository interface {
	// FindByPublicKey returns a provider by its public key, nil when absent.
	FindByPublicKey(ctx context.Context, db DBTX, publicKey string) (*domain.PaymentProvider, error)

	// FindByID returns a provider by id, nil when absent.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.PaymentProvider, error)
}

// WithdrawalRepository provides access to withdrawal requests.
type WithdrawalRepository interface {
	// Insert creates a withdrawal request.
	Insert(ctx context.Context, db DBTX, w *domain.Withdrawal) (*domain.Withdrawal, error)

	// FindByID returns a withdrawal by id, nil when absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Withdrawal, error)

	// UpdateStatus transitions a withdrawal.
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.WithdrawalStatus) error

	// ListByAccount returns withdrawals for an account, newest first.
	ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Withdrawal, error)
}

// AuditRepository provides access to the platform-fee audit ledger.
type AuditRepository interface {
	// InsertFee appends a fee row carrying the running platform balance.
	// Must run inside the same transaction as the payment it charges.
	InsertFee(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, percentage string, amount int64, direction domain.Direction) (*domain.AccountAudit, error)

	// PlatformBalance returns the latest running balance snapshot.
	PlatformBalance(ctx context.Context, db DBTX) (int64, error)

	// ListSince returns audit rows created at or after the given instant.
	ListSince(ctx context.Context, db DBTX, since time.Time, limit int) ([]domain.AccountAudit, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event within the same transaction as the state
	// change it describes.
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
}
