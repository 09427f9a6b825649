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

type withdrawalRepo struct{}

// NewWithdrawalRepository returns a pgx-backed WithdrawalRepository.
func NewWithdrawalRepository() WithdrawalRepository {
	return &withdrawalRepo{}
}

const withdrawalColumns = `id, account_id, amount, bank_name, bank_account, status, created_at, updated_at`

func (r *withdrawalRepo) Insert(ctx context.Context, db DBTX, w *domain.Withdrawal) (*domain.Withdrawal, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO withdrawals (id, account_id, amount, bank_name, bank_account, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+withdrawalColumns,
		w.ID,
		w.AccountID,
		infra.Int64ToNumeric(w.Amount),
		w.BankName,
		w.BankAccount,
		string(w.Status),
	)
	return scanWithdrawal(row)
}

func (r *withdrawalRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Withdrawal, error) {
	row := db.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals WHERE id = $1`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *withdrawalRepo) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.WithdrawalStatus) error {
	tag, err := db.Exec(ctx, `
		UPDATE withdrawals SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("update withdrawal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("withdrawal", id.String())
	}
	return nil
}

func (r *withdrawalRepo) ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query withdrawals: %w", err)
	}
	defer rows.Close()

	var ws []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		ws = append(ws, *w)
	}
	return ws, rows.Err()
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var amountNum pgtype.Numeric
	err := row.Scan(
		&w.ID, &w.AccountID, &amountNum, &w.BankName, &w.BankAccount,
		&w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}
	w.Amount, err = infra.NumericToInt64(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &w, nil
}
