package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gatepay/platform/internal/domain"
)

type sessionRepo struct{}

// NewSessionRepository returns a pgx-backed SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepo{}
}

const sessionColumns = `id, merchant_id, token, payload, status, expires_at,
	       original_session_id, created_at, updated_at`

func (r *sessionRepo) Create(ctx context.Context, db DBTX, s *domain.PaymentSession) (*domain.PaymentSession, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO payment_sessions
		  (merchant_id, token, payload, status, expires_at, original_session_id)
		VALUES ($1, '', $2, $3, $4, $5)
		RETURNING `+sessionColumns,
		s.MerchantID,
		s.Payload,
		string(s.Status),
		s.ExpiresAt,
		s.OriginalSessionID,
	)
	return scanSession(row)
}

func (r *sessionRepo) SetToken(ctx context.Context, db DBTX, id int64, token string) error {
	tag, err := db.Exec(ctx, `
		UPDATE payment_sessions SET token = $1, updated_at = now() WHERE id = $2`, token, id)
	if err != nil {
		return fmt.Errorf("set session token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("payment session", fmt.Sprint(id))
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.PaymentSession, error) {
	row := db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *sessionRepo) FindByIDAndToken(ctx context.Context, db DBTX, id int64, token string) (*domain.PaymentSession, error) {
	row := db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions WHERE id = $1 AND token = $2`, id, token)
	return scanSession(row)
}

func (r *sessionRepo) ExistsForOrder(ctx context.Context, db DBTX, merchantID int64, orderID string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_sessions
			WHERE merchant_id = $1 AND payload::jsonb ->> 'orderId' = $2
			  AND original_session_id IS NULL
		)`, merchantID, orderID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order uniqueness: %w", err)
	}
	return exists, nil
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, db DBTX, id int64, status domain.SessionStatus) error {
	tag, err := db.Exec(ctx, `
		UPDATE payment_sessions SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("payment session", fmt.Sprint(id))
	}
	return nil
}

func (r *sessionRepo) UpdatePayload(ctx context.Context, db DBTX, id int64, payload string) error {
	tag, err := db.Exec(ctx, `
		UPDATE payment_sessions SET payload = $1, updated_at = now() WHERE id = $2`,
		payload, id)
	if err != nil {
		return fmt.Errorf("update session payload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("payment session", fmt.Sprint(id))
	}
	return nil
}

func (r *sessionRepo) FindLatestByOrder(ctx context.Context, db DBTX, merchantID int64, orderID string) (*domain.PaymentSession, error) {
	row := db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM payment_sessions
		WHERE merchant_id = $1 AND payload::jsonb ->> 'orderId' = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, merchantID, orderID)
	return scanSession(row)
}

func scanSession(row pgx.Row) (*domain.PaymentSession, error) {
	var s domain.PaymentSession
	err := row.Scan(
		&s.ID, &s.MerchantID, &s.Token, &s.Payload, &s.Status, &s.ExpiresAt,
		&s.OriginalSessionID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment session: %w", err)
	}
	return &s, nil
}
