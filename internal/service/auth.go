package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/domain"
	"github.com/gatepay/platform/internal/guard"
	"github.com/gatepay/platform/internal/repository"
)

// AuthService handles the two-step sign-in flow: password check issues an OTP
// challenge, OTP verification issues the access token. Every denial along the
// way is the same access-denied error so a caller cannot probe which
// credential failed.
type AuthService struct {
	pool     repository.DB
	accounts repository.AccountRepository
	otp      *auth.OTPGate
	jwt      *auth.JWTManager
	logger   *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(
	pool repository.DB,
	accounts repository.AccountRepository,
	otp *auth.OTPGate,
	jwt *auth.JWTManager,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		pool:     pool,
		accounts: accounts,
		otp:      otp,
		jwt:      jwt,
		logger:   logger,
	}
}

// SignInResult tells the caller where the OTP went without revealing the
// full delivery address.
type SignInResult struct {
	OTPSent   bool   `json:"otp_sent"`
	DeliverTo string `json:"deliver_to"`
}

// TokenResult is the successful end of the sign-in flow.
type TokenResult struct {
	AccessToken string          `json:"access_token"`
	Account     *domain.Account `json:"account"`
}

// SignIn verifies the password and dispatches an OTP challenge. Lockout is
// enforced per email over a sliding window of failed attempts.
func (s *AuthService) SignIn(ctx context.Context, email, password, ip string) (*SignInResult, error) {
	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	if err := guard.CheckLocked(ctx, s.pool, email); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("find account", err)
	}
	if account == nil || account.Status != domain.AccountActive {
		guard.RecordAttempt(ctx, s.pool, email, ip, false)
		return nil, domain.ErrAccessDenied()
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		guard.RecordAttempt(ctx, s.pool, email, ip, false)
		return nil, domain.ErrAccessDenied()
	}

	guard.RecordAttempt(ctx, s.pool, email, ip, true)

	if err := s.otp.GenerateAndSend(ctx, account); err != nil {
		return nil, err
	}

	target, viaPhone := account.PhoneOrEmail()
	s.logger.Info("otp challenge issued", "email", email, "via_phone", viaPhone)
	return &SignInResult{OTPSent: true, DeliverTo: maskTarget(target, viaPhone)}, nil
}

// ResendOtp re-issues the OTP challenge for a sign-in that already passed the
// password check. Without a live OTP record the resend is refused, so this
// endpoint cannot be used to trigger dispatch to arbitrary accounts.
func (s *AuthService) ResendOtp(ctx context.Context, email string) (*SignInResult, error) {
	account, err := s.accounts.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("find account", err)
	}
	if account == nil || account.Status != domain.AccountActive {
		return nil, domain.ErrAccessDenied()
	}

	if err := s.otp.Resend(ctx, account); err != nil {
		return nil, err
	}

	target, viaPhone := account.PhoneOrEmail()
	return &SignInResult{OTPSent: true, DeliverTo: maskTarget(target, viaPhone)}, nil
}

// VerifyOtp completes sign-in: on a correct code it mints the access token.
func (s *AuthService) VerifyOtp(ctx context.Context, email, code string) (*TokenResult, error) {
	accountID, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, domain.ErrInternal("parse account id from otp record", err)
	}

	account, err := s.accounts.FindByID(ctx, s.pool, id)
	if err != nil {
		return nil, domain.ErrInternal("find account", err)
	}
	if account == nil || account.Status != domain.AccountActive {
		return nil, domain.ErrAccessDenied()
	}

	token, err := s.jwt.GenerateToken(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, domain.ErrInternal("generate access token", err)
	}

	s.logger.Info("sign-in completed", "account_id", account.ID, "role", account.Role)
	return &TokenResult{AccessToken: token, Account: account}, nil
}

// maskTarget hides most of the delivery address: "john@example.com" →
// "j***@example.com", "+60123456789" → "********6789".
func maskTarget(target string, viaPhone bool) string {
	if viaPhone {
		if len(target) <= 4 {
			return "****"
		}
		masked := make([]byte, len(target)-4)
		for i := range masked {
			masked[i] = '*'
		}
		return string(masked) + target[len(target)-4:]
	}
	for i, c := range target {
		if c == '@' {
			if i <= 1 {
				return "*" + target[i:]
			}
			return target[:1] + "***" + target[i:]
		}
	}
	return "****"
}
