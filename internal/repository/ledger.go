package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/infra"
)

type ledgerRepo struct{}

// NewLedgerRepository returns a pgx-backed LedgerRepository.
func NewLedgerRepository() LedgerRepository {
	return &ledgerRepo{}
}

const ledgerColumns = `id, account_id, amount, direction, source, balance,
	       opposite_id, payment_id, status, reference, created_at`

func (r *ledgerRepo) Insert(ctx context.Context, db DBTX, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO wallet_ledger
		  (id, account_id, amount, direction, source, balance,
		   opposite_id, payment_id, status, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+ledgerColumns,
		entry.ID,
		entry.AccountID,
		infra.Int64ToNumeric(entry.Amount),
		string(entry.Direction),
		entry.Source,
		infra.Int64ToNumeric(entry.Balance),
		entry.OppositeID,
		entry.PaymentID,
		string(entry.Status),
		entry.Reference,
	)
	return scanLedgerEntry(row)
}

func (r *ledgerRepo) LinkOpposite(ctx context.Context, db DBTX, id, oppositeID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE wallet_ledger SET opposite_id = $1 WHERE id = $2`, oppositeID, id)
	if err != nil {
		return fmt.Errorf("link opposite entry: %w", err)
	}
	return nil
}

func (r *ledgerRepo) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.EntryStatus) error {
	tag, err := db.Exec(ctx, `
		UPDATE wallet_ledger SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("ledger entry", id.String())
	}
	return nil
}

func (r *ledgerRepo) ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = db.Query(ctx, `
			SELECT `+ledgerColumns+`
			FROM wallet_ledger
			WHERE account_id = $1
			  AND (created_at, id) < ((SELECT created_at, id FROM wallet_ledger WHERE id = $2))
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, accountID, *cursor, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT `+ledgerColumns+`
			FROM wallet_ledger
			WHERE account_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, accountID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntryValues(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e, err := scanLedgerEntryValues(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func scanLedgerEntryValues(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var amountNum, balNum pgtype.Numeric
	err := row.Scan(
		&e.ID, &e.AccountID, &amountNum, &e.Direction, &e.Source, &balNum,
		&e.OppositeID, &e.PaymentID, &e.Status, &e.Reference, &e.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}

	var convErr error
	e.Amount, convErr = infra.NumericToInt64(amountNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert amount: %w", convErr)
	}
	e.Balance, convErr = infra.NumericToInt64(balNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert balance: %w", convErr)
	}
	return &e, nil
}
