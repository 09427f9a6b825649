package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/infra"
)

type auditRepo struct{}

// NewAuditRepository returns a pgx-backed AuditRepository.
func NewAuditRepository() AuditRepository {
	return &auditRepo{}
}

const auditColumns = `id, payment_id, percentage, amount, balance, direction, created_at`

// InsertFee computes the running balance server-side off the latest row. The
// caller's transaction must already hold a lock that serializes fee-bearing
// payments (the buyer row lock), otherwise two concurrent fees could read the
// same predecessor.
func (r *auditRepo) InsertFee(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, percentage string, amount int64, direction domain.Direction) (*domain.AccountAudit, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO account_audit (payment_id, percentage, amount, balance, direction)
		SELECT $1, $2, $3,
		       COALESCE((SELECT balance FROM account_audit ORDER BY id DESC LIMIT 1), 0)
		         + CASE WHEN $4 = 'in' THEN $3::numeric ELSE -$3::numeric END,
		       $4
		RETURNING `+auditColumns,
		paymentID, percentage, infra.Int64ToNumeric(amount), string(direction))
	return scanAudit(row)
}

func (r *auditRepo) PlatformBalance(ctx context.Context, db DBTX) (int64, error) {
	var balNum pgtype.Numeric
	err := db.QueryRow(ctx, `
		SELECT COALESCE((SELECT balance FROM account_audit ORDER BY id DESC LIMIT 1), 0)`).Scan(&balNum)
	if err != nil {
		return 0, fmt.Errorf("query platform balance: %w", err)
	}
	return infra.NumericToInt64(balNum)
}

func (r *auditRepo) ListSince(ctx context.Context, db DBTX, since time.Time, limit int) ([]domain.AccountAudit, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.Query(ctx, `
		SELECT `+auditColumns+`
		FROM account_audit
		WHERE created_at >= $1
		ORDER BY id ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit rows: %w", err)
	}
	defer rows.Close()

	var audits []domain.AccountAudit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, rows.Err()
}

func scanAudit(row pgx.Row) (*domain.AccountAudit, error) {
	var a domain.AccountAudit
	var amountNum, balNum pgtype.Numeric
	err := row.Scan(&a.ID, &a.PaymentID, &a.Percentage, &amountNum, &balNum, &a.Direction, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account audit: %w", err)
	}

	var convErr error
	a.Amount, convErr = infra.NumericToInt64(amountNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert amount: %w", convErr)
	}
	a.Balance, convErr = infra.NumericToInt64(balNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert balance: %w", convErr)
	}
	return &a, nil
}
