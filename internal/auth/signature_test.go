package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalSignatureKnownVector(t *testing.T) {
	fields := map[string]string{
		"orderId":       "ORD-1001",
		"productAmount": "25.00",
		"buyerName":     "Buyer",
	}

	// buyerName=Buyer&orderId=ORD-1001&productAmount=25.00
	sum := sha256.Sum256([]byte("buyerName=Buyer&orderId=ORD-1001&productAmount=25.00"))
	want := hex.EncodeToString(sum[:])

	assert.Equal(t, want, CanonicalSignature(fields))
}

func TestCanonicalSignatureDropsSignatureField(t *testing.T) {
	fields := map[string]string{
		"orderId":   "ORD-1001",
		"signature": "anything",
	}
	without := map[string]string{
		"orderId": "ORD-1001",
	}
	assert.Equal(t, CanonicalSignature(without), CanonicalSignature(fields))
}

func TestCanonicalSignatureSkipsEmptyValues(t *testing.T) {
	fields := map[string]string{
		"orderId":    "ORD-1001",
		"returnUrl":  "",
		"productCat": "",
	}
	without := map[string]string{
		"orderId": "ORD-1001",
	}
	assert.Equal(t, CanonicalSignature(without), CanonicalSignature(fields))
}

func TestCanonicalSignatureSensitiveToValues(t *testing.T) {
	a := CanonicalSignature(map[string]string{"orderId": "ORD-1"})
	b := CanonicalSignature(map[string]string{"orderId": "ORD-2"})
	assert.NotEqual(t, a, b)
}

func TestVerifySignature(t *testing.T) {
	fields := map[string]string{
		"orderId":       "ORD-1001",
		"productAmount": "25.00",
	}
	sig := CanonicalSignature(fields)

	assert.True(t, VerifySignature(fields, sig))
	assert.True(t, VerifySignature(fields, strings.ToUpper(sig)), "presented signature is case-insensitive")
	assert.False(t, VerifySignature(fields, "deadbeef"))
	assert.False(t, VerifySignature(fields, ""))
}

func TestVerifySignatureTamperedField(t *testing.T) {
	fields := map[string]string{
		"orderId":       "ORD-1001",
		"productAmount": "25.00",
	}
	sig := CanonicalSignature(fields)
	require.True(t, VerifySignature(fields, sig))

	fields["productAmount"] = "2500.00"
	assert.False(t, VerifySignature(fields, sig))
}
