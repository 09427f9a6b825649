package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatepay/platform/internal/cache"
	"github.com/gatepay/platform/internal/domain"
)

const (
	otpTTL         = 5 * time.Minute
	otpResendAfter = 60 * time.Second
	otpMaxAttempts = 5
	otpKeyPrefix   = "otp:"

	// whitelistCode is issued to allow-listed identities outside production so
	// that staging flows do not depend on a live SMS provider. Verification
	// never special-cases it; the code is hashed into the record like any other.
	whitelistCode = "000000"
)

// Sender delivers a one-time code to a phone number or email address.
type Sender interface {
	SendOTP(ctx context.Context, target string, viaPhone bool, code string) error
}

// LogSender writes codes to the log instead of dispatching them. Development
// and test environments only.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendOTP(_ context.Context, target string, viaPhone bool, code string) error {
	s.Logger.Info("otp dispatched",
		slog.String("target", target),
		slog.Bool("via_phone", viaPhone),
		slog.String("code", code))
	return nil
}

type otpRecord struct {
	HashedOTP     string    `json:"hashed_otp"`
	AccountID     string    `json:"account_id"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
	LastRequestAt time.Time `json:"last_request_at"`
}

// OTPGate issues and verifies one-time codes. Records are keyed by email in
// the cache store with a hard TTL; codes are stored bcrypt-hashed and are
// single use.
type OTPGate struct {
	store      cache.Store
	sender     Sender
	production bool
	whitelist  map[string]struct{}
	logger     *slog.Logger
}

// NewOTPGate creates an OTP gate. whitelist lists the emails and phone numbers
// that receive the fixed code instead of a dispatched one; production disables
// the whitelist entirely.
func NewOTPGate(store cache.Store, sender Sender, production bool, whitelist []string, logger *slog.Logger) *OTPGate {
	wl := make(map[string]struct{}, len(whitelist))
	for _, id := range whitelist {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			wl[id] = struct{}{}
		}
	}
	return &OTPGate{store: store, sender: sender, production: production, whitelist: wl, logger: logger}
}

// GenerateAndSend issues a fresh code for the account and dispatches it to
// the account's phone (preferred) or email. A request within 60s of the
// previous one for the same identity is rejected.
func (g *OTPGate) GenerateAndSend(ctx context.Context, account *domain.Account) error {
	key := otpKeyPrefix + account.Email

	var existing otpRecord
	err := cache.GetJSON(ctx, g.store, key, &existing)
	if err == nil && time.Since(existing.LastRequestAt) < otpResendAfter {
		return domain.ErrTooManyRequests("otp requested too recently, try again later")
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		return domain.ErrInternal("otp store read failed", err)
	}

	return g.issue(ctx, account, key)
}

// Resend reissues the code for a pending sign-in. Unlike GenerateAndSend it
// refuses when no record exists, so a resend can never start a challenge that
// sign-in did not.
func (g *OTPGate) Resend(ctx context.Context, account *domain.Account) error {
	key := otpKeyPrefix + account.Email

	var existing otpRecord
	if err := cache.GetJSON(ctx, g.store, key, &existing); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return domain.ErrUnauthorized("no otp session found, sign in again")
		}
		return domain.ErrInternal("otp store read failed", err)
	}
	if time.Since(existing.LastRequestAt) < otpResendAfter {
		return domain.ErrTooManyRequests("otp requested too recently, try again later")
	}

	return g.issue(ctx, account, key)
}

// issue writes a fresh record with zero attempts and dispatches the code.
// Whitelisted identities get the fixed code and no dispatch.
func (g *OTPGate) issue(ctx context.Context, account *domain.Account, key string) error {
	code, err := generateCode()
	if err != nil {
		return domain.ErrInternal("otp generation failed", err)
	}
	fixed := g.whitelisted(account)
	if fixed {
		code = whitelistCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return domain.ErrInternal("otp hash failed", err)
	}

	now := time.Now()
	record := otpRecord{
		HashedOTP:     string(hash),
		AccountID:     account.ID.String(),
		Attempts:      0,
		CreatedAt:     now,
		LastRequestAt: now,
	}
	if err := cache.SetJSON(ctx, g.store, key, record, otpTTL); err != nil {
		return domain.ErrInternal("otp store write failed", err)
	}

	if fixed {
		g.logger.Info("otp whitelist code issued", slog.String("email", account.Email))
		return nil
	}

	target, viaPhone := account.PhoneOrEmail()
	if err := g.sender.SendOTP(ctx, target, viaPhone, code); err != nil {
		g.logger.Error("otp dispatch failed", slog.String("email", account.Email), slog.Any("error", err))
		return domain.ErrInternal("otp dispatch failed", err)
	}

	return nil
}

// whitelisted reports whether the account's email or phone is on the fixed
// code allow-list. Always false in production.
func (g *OTPGate) whitelisted(account *domain.Account) bool {
	if g.production {
		return false
	}
	if _, ok := g.whitelist[strings.ToLower(account.Email)]; ok {
		return true
	}
	if account.Phone != nil {
		if _, ok := g.whitelist[strings.ToLower(*account.Phone)]; ok {
			return true
		}
	}
	return false
}

// Verify checks a submitted code against the stored record. The record is
// deleted on success (one-time use) and after the attempt limit is reached,
// forcing the caller to restart sign-in.
func (g *OTPGate) Verify(ctx context.Context, email, code string) (accountID string, err error) {
	key := otpKeyPrefix + email

	var record otpRecord
	if err := cache.GetJSON(ctx, g.store, key, &record); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return "", domain.ErrUnauthorized("otp expired or not requested")
		}
		return "", domain.ErrInternal("otp store read failed", err)
	}

	if record.Attempts >= otpMaxAttempts {
		_ = g.store.Delete(ctx, key)
		return "", domain.ErrUnauthorized("too many failed attempts, restart sign-in")
	}

	if bcrypt.CompareHashAndPassword([]byte(record.HashedOTP), []byte(code)) != nil {
		record.Attempts++
		remaining := otpMaxAttempts - record.Attempts
		if remaining <= 0 {
			_ = g.store.Delete(ctx, key)
			return "", domain.ErrUnauthorized("too many failed attempts, restart sign-in")
		}
		// Rewrite with the time the record has left; a wrong guess must not
		// stretch the expiry window.
		ttl := otpTTL - time.Since(record.CreatedAt)
		if ttl <= 0 {
			_ = g.store.Delete(ctx, key)
			return "", domain.ErrUnauthorized("otp expired or not requested")
		}
		if err := cache.SetJSON(ctx, g.store, key, record, ttl); err != nil {
			return "", domain.ErrInternal("otp store write failed", err)
		}
		return "", domain.ErrUnauthorized(fmt.Sprintf("invalid code, %d attempts remaining", remaining))
	}

	if err := g.store.Delete(ctx, key); err != nil {
		return "", domain.ErrInternal("otp store delete failed", err)
	}
	return record.AccountID, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
