package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gatepay/platform/internal/domain"
)

type providerRepo struct{}

// NewProviderRepository returns a pgx-backed ProviderRepository.
func NewProviderRepository() ProviderRepository {
	return &providerRepo{}
}

const providerColumns = `id, name, public_key, status, expires_at, created_at`

func (r *providerRepo) FindByPublicKey(ctx context.Context, db DBTX, publicKey string) (*domain.PaymentProvider, error) {
	row := db.QueryRow(ctx, `
		SELECT `+providerColumns+`
		FROM payment_providers WHERE public_key = $1`, publicKey)
	return scanProvider(row)
}

func (r *providerRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.PaymentProvider, error) {
	row := db.QueryRow(ctx, `
		SELECT `+providerColumns+`
		FROM payment_providers WHERE id = $1`, id)
	return scanProvider(row)
}

func scanProvider(row pgx.Row) (*domain.PaymentProvider, error) {
	var p domain.PaymentProvider
	err := row.Scan(&p.ID, &p.Name, &p.PublicKey, &p.Status, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment provider: %w", err)
	}
	return &p, nil
}
