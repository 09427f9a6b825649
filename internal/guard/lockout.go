package guard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatepay/platform/internal/domain"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// Querier is the db handle the lockout checks run against.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// RecordAttempt inserts a sign-in attempt row.
func RecordAttempt(ctx context.Context, db Querier, email, ip string, success bool) {
	_, _ = db.Exec(ctx, `
		INSERT INTO login_attempts (email, ip_address, success)
		VALUES ($1, $2, $3)`,
		email, ip, success)
}

// CheckLocked returns ErrAccountLocked if the identity has >= MaxAttempts
// failed sign-ins within the lockout window.
func CheckLocked(ctx context.Context, db Querier, email string) error {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = false
		  AND created_at > $2`,
		email, time.Now().Add(-LockoutWindow)).Scan(&count)
	if err != nil {
		return nil // fail open so a storage hiccup cannot block every sign-in
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed sign-in attempts, try again later")
	}
	return nil
}
