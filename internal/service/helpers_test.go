package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatepay/platform/internal/auth"
	"github.com/gatepay/platform/internal/domain"
)

func TestParseAcquirerOrder(t *testing.T) {
	id, ok := parseAcquirerOrder("gp-42")
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = parseAcquirerOrder("ORD-42")
	assert.False(t, ok)

	_, ok = parseAcquirerOrder("gp-")
	assert.False(t, ok)

	_, ok = parseAcquirerOrder("gp-0")
	assert.False(t, ok)

	_, ok = parseAcquirerOrder("gp--5")
	assert.False(t, ok)

	_, ok = parseAcquirerOrder("gp-notanumber")
	assert.False(t, ok)
}

func TestRequestFieldsMatchesWireNames(t *testing.T) {
	req := &domain.PaymentRequest{
		SecretKey:     "sk",
		APIKey:        "ak",
		ReturnURL:     "https://shop.example.com/done",
		BuyerAccount:  "buyer@example.com",
		BuyerPhone:    "60123456789",
		BuyerName:     "Buyer",
		OrderID:       "ORD-1",
		ProductName:   "Widget",
		ProductDesc:   "A widget",
		ProductAmount: "25.00",
		IsRefundable:  "0",
		ProductCat:    "goods",
		Signature:     "sig",
	}

	fields := requestFields(req)
	assert.Equal(t, "ORD-1", fields["orderId"])
	assert.Equal(t, "25.00", fields["productAmount"])
	assert.Equal(t, "0", fields["isRefundable"])
	assert.Equal(t, "sig", fields["signature"])
	assert.Len(t, fields, 13)
}

func TestRequestSignatureRoundTrip(t *testing.T) {
	req := &domain.PaymentRequest{
		SecretKey:     "sk",
		APIKey:        "ak",
		BuyerAccount:  "buyer@example.com",
		BuyerPhone:    "60123456789",
		BuyerName:     "Buyer",
		OrderID:       "ORD-1",
		ProductName:   "Widget",
		ProductDesc:   "A widget",
		ProductAmount: "25.00",
		IsRefundable:  "0",
	}
	req.Signature = auth.CanonicalSignature(requestFields(req))

	assert.True(t, auth.VerifySignature(requestFields(req), req.Signature))

	// any field change breaks the signature
	req.ProductAmount = "2500.00"
	assert.False(t, auth.VerifySignature(requestFields(req), req.Signature))
}

func TestStrPtr(t *testing.T) {
	p := strPtr("hello")
	require.NotNil(t, p)
	assert.Equal(t, "hello", *p)

	assert.Nil(t, strPtr(""))
}

func TestMaskTarget(t *testing.T) {
	assert.Equal(t, "*******6789", maskTarget("60123456789", true))
	assert.Equal(t, "****", maskTarget("123", true))
	assert.Equal(t, "u***@example.com", maskTarget("user@example.com", false))
	assert.Equal(t, "*@example.com", maskTarget("u@example.com", false))
	assert.Equal(t, "****", maskTarget("no-at-sign", false))
}
