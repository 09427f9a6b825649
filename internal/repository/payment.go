package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/infra"
)

type paymentRepo struct{}

// NewPaymentRepository returns a pgx-backed PaymentRepository.
func NewPaymentRepository() PaymentRepository {
	return &paymentRepo{}
}

const paymentColumns = `id, payment_type, buyer_id, seller_id, merchant_id, session_id,
	       amount, status, is_completed, provider_id, ip_address, created_at, updated_at`

// Insert creates a payment row. The partial unique index on session_id makes
// a second callback for the same session collide; ON CONFLICT DO NOTHING keeps
// the enclosing transaction healthy so the already-persisted row can be read
// back, and callers see one row either way.
func (r *paymentRepo) Insert(ctx context.Context, db DBTX, p *domain.Payment) (*domain.Payment, bool, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO payments
		  (id, payment_type, buyer_id, seller_id, merchant_id, session_id,
		   amount, status, is_completed, provider_id, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) WHERE session_id IS NOT NULL DO NOTHING
		RETURNING `+paymentColumns,
		p.ID,
		string(p.Type),
		p.BuyerID,
		p.SellerID,
		p.MerchantID,
		p.SessionID,
		infra.Int64ToNumeric(p.Amount),
		string(p.Status),
		p.IsCompleted,
		p.ProviderID,
		p.IPAddress,
	)
	inserted, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) && p.SessionID != nil {
			existing, findErr := r.FindBySessionID(ctx, db, *p.SessionID)
			if findErr != nil {
				return nil, false, findErr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("insert payment: %w", err)
	}
	return inserted, true, nil
}

func (r *paymentRepo) InsertDetails(ctx context.Context, db DBTX, d *domain.PaymentDetails) error {
	_, err := db.Exec(ctx, `
		INSERT INTO payment_details
		  (payment_id, signature, product_name, product_desc, product_cat,
		   amount, buyer_name, buyer_email, buyer_phone, refundable, delivery_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.PaymentID,
		d.Signature,
		d.ProductName,
		d.ProductDesc,
		d.ProductCat,
		infra.Int64ToNumeric(d.Amount),
		d.BuyerName,
		d.BuyerEmail,
		d.BuyerPhone,
		d.Refundable,
		d.DeliveryStatus,
	)
	if err != nil {
		return fmt.Errorf("insert payment details: %w", err)
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Payment, error) {
	row := db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) FindBySessionID(ctx context.Context, db DBTX, sessionID int64) (*domain.Payment, error) {
	row := db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE session_id = $1`, sessionID)
	p, err := scanPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) FindDetails(ctx context.Context, db DBTX, paymentID uuid.UUID) (*domain.PaymentDetails, error) {
	row := db.QueryRow(ctx, `
		SELECT payment_id, signature, product_name, product_desc, product_cat,
		       amount, buyer_name, buyer_email, buyer_phone, refundable, delivery_status
		FROM payment_details WHERE payment_id = $1`, paymentID)

	var d domain.PaymentDetails
	var amountNum pgtype.Numeric
	err := row.Scan(
		&d.PaymentID, &d.Signature, &d.ProductName, &d.ProductDesc, &d.ProductCat,
		&amountNum, &d.BuyerName, &d.BuyerEmail, &d.BuyerPhone, &d.Refundable, &d.DeliveryStatus,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment details: %w", err)
	}
	d.Amount, err = infra.NumericToInt64(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &d, nil
}

func (r *paymentRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// MarkCompleted flips the escrow gate. The WHERE clause carries the one-way
// invariant so a concurrent double confirm affects zero rows.
func (r *paymentRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET is_completed = true, updated_at = now()
		WHERE id = $1 AND is_completed = false AND status = 'success'`, id)
	if err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict("payment is not in a completable state")
	}
	return nil
}

func (r *paymentRepo) SetDeliveryStatus(ctx context.Context, db DBTX, paymentID uuid.UUID, status string) error {
	tag, err := db.Exec(ctx, `
		UPDATE payment_details SET delivery_status = $1 WHERE payment_id = $2`,
		status, paymentID)
	if err != nil {
		return fmt.Errorf("set delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("payment details", paymentID.String())
	}
	return nil
}

func (r *paymentRepo) ListByBuyer(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Payment, error) {
	return r.list(ctx, db, `buyer_id = $1`, accountID, limit)
}

func (r *paymentRepo) ListBySeller(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Payment, error) {
	return r.list(ctx, db, `seller_id = $1`, accountID, limit)
}

func (r *paymentRepo) list(ctx context.Context, db DBTX, where string, accountID uuid.UUID, limit int) ([]domain.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var amountNum pgtype.Numeric
	err := row.Scan(
		&p.ID, &p.Type, &p.BuyerID, &p.SellerID, &p.MerchantID, &p.SessionID,
		&amountNum, &p.Status, &p.IsCompleted, &p.ProviderID, &p.IPAddress,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	p.Amount, err = infra.NumericToInt64(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &p, nil
}
