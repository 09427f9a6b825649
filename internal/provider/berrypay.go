package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BerryPayClient submits payment orders to the BerryPay acquirer. Outbound
// calls carry an HMAC-SHA256 signature over a pipe-joined ordered field list,
// keyed by the integration secret.
type BerryPayClient struct {
	apiURL    string
	publicKey string
	secretKey string
	apiKey    string
	client    *http.Client
}

// NewBerryPayClient creates an acquirer client.
func NewBerryPayClient(apiURL, publicKey, secretKey, apiKey string) *BerryPayClient {
	return &BerryPayClient{
		apiURL:    strings.TrimRight(apiURL, "/"),
		publicKey: publicKey,
		secretKey: secretKey,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// PaymentOrder is the outbound order submission.
type PaymentOrder struct {
	OrderID     string
	Amount      string
	BuyerEmail  string
	BuyerName   string
	BuyerPhone  string
	ProductName string
	ProductDesc string
	CallbackURL string
	ReturnURL   string
}

// SubmitResponse is the acquirer's answer to an order submission.
type SubmitResponse struct {
	Status     string `json:"status"`
	Message    string `json:"msg"`
	PaymentURL string `json:"payment_url"`
	RefID      string `json:"ref_id"`
}

// Accepted reports whether the acquirer took the order.
func (r *SubmitResponse) Accepted() bool {
	return r.Status == "1" || strings.EqualFold(r.Status, "success")
}

// SignOrder computes the outbound signature: HMAC-SHA256 keyed by the secret
// over the pipe-joined ordered fields. Field order is part of the integration
// contract and must not change.
func (c *BerryPayClient) SignOrder(o PaymentOrder) string {
	payload := strings.Join([]string{
		c.apiKey,
		o.Amount,
		o.BuyerEmail,
		o.BuyerName,
		o.BuyerPhone,
		o.OrderID,
		o.ProductDesc,
		o.ProductName,
	}, "|")

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Submit posts the order form to the acquirer's collect endpoint.
func (c *BerryPayClient) Submit(ctx context.Context, o PaymentOrder) (*SubmitResponse, error) {
	if c.apiURL == "" || c.secretKey == "" {
		return nil, fmt.Errorf("acquirer is not configured")
	}

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("order_id", o.OrderID)
	form.Set("amount", o.Amount)
	form.Set("buyer_email", o.BuyerEmail)
	form.Set("buyer_name", o.BuyerName)
	form.Set("buyer_phone", o.BuyerPhone)
	form.Set("product_name", o.ProductName)
	form.Set("product_description", o.ProductDesc)
	form.Set("callback_url", o.CallbackURL)
	form.Set("return_url", o.ReturnURL)
	form.Set("signature", c.SignOrder(o))

	endpoint := c.apiURL + "/" + c.publicKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create acquirer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acquirer call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("acquirer error (status %d): %s", resp.StatusCode, string(body))
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode acquirer response: %w", err)
	}
	return &out, nil
}
