package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gatepay/platform/internal/domain"
)

type merchantRepo struct{}

// NewMerchantRepository returns a pgx-backed MerchantRepository.
func NewMerchantRepository() MerchantRepository {
	return &merchantRepo{}
}

func (r *merchantRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.Merchant, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, secret_key, api_key, status, owner_id, created_at
		FROM merchants WHERE id = $1`, id)

	var m domain.Merchant
	err := row.Scan(&m.ID, &m.Name, &m.SecretKey, &m.APIKey, &m.Status, &m.OwnerID, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan merchant: %w", err)
	}
	return &m, nil
}
