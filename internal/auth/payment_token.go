package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PaymentTokenClaims addresses one external payment session. The token alone
// is not authoritative: validation also requires the session row whose id and
// stored token string both match, so a rotated session invalidates every
// previously issued token even though its signature still verifies.
type PaymentTokenClaims struct {
	jwt.RegisteredClaims
	SessionID  int64  `json:"sessionId"`
	MerchantID int64  `json:"merchantId"`
	OrderID    string `json:"orderId"`
}

// PaymentTokenManager mints and verifies session tokens.
type PaymentTokenManager struct {
	secret   []byte
	expiry   time.Duration
	issuer   string
	audience string
}

// NewPaymentTokenManager creates a payment-session token manager.
func NewPaymentTokenManager(secret string, expiry time.Duration, issuer, audience string) *PaymentTokenManager {
	return &PaymentTokenManager{
		secret:   []byte(secret),
		expiry:   expiry,
		issuer:   issuer,
		audience: audience,
	}
}

// Expiry returns the configured token lifetime, also used for the session
// row's wall-clock expires_at.
func (m *PaymentTokenManager) Expiry() time.Duration { return m.expiry }

// Generate mints a signed token bound to a session row id, merchant and order.
func (m *PaymentTokenManager) Generate(sessionID, merchantID int64, orderID string) (string, error) {
	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}

	now := time.Now()
	claims := PaymentTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			ID:        hex.EncodeToString(jti),
		},
		SessionID:  sessionID,
		MerchantID: merchantID,
		OrderID:    orderID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature, expiry, issuer and audience, returning the claims.
func (m *PaymentTokenManager) Verify(tokenString string) (*PaymentTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PaymentTokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired payment token: %w", err)
	}

	claims, ok := token.Claims.(*PaymentTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid payment token claims")
	}

	return claims, nil
}

// DecodeUnverified parses claims without signature verification. For
// non-authoritative inspection only; never use the result to authorize.
func (m *PaymentTokenManager) DecodeUnverified(tokenString string) (*PaymentTokenClaims, error) {
	claims := &PaymentTokenClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("decode payment token: %w", err)
	}
	return claims, nil
}
