package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const (
	// PaystackSignatureHeader carries the webhook HMAC
	PaystackSignatureHeader = "x-paystack-signature"
	paystackChargeSuccess   = "charge.success"
)

// VerifiedPayment is a transaction as the gateway reports it
type VerifiedPayment struct {
	Reference   string
	Status      string
	AmountMinor int64
	Currency    string
	Email       string
	ProductID   string
	SellerID    string
}

// Confirmation converts a verified payment into resolver input. Values the
// buyer's browser supplied fill gaps the gateway left empty.
func (vp *VerifiedPayment) Confirmation(productID, email string) PaymentConfirmation {
	conf := PaymentConfirmation{
		Reference:  vp.Reference,
		ProductID:  vp.ProductID,
		SellerID:   vp.SellerID,
		BuyerEmail: vp.Email,
		Amount:     models.FromMinorUnits(vp.AmountMinor),
		Currency:   vp.Currency,
	}
	if conf.ProductID == "" {
		conf.ProductID = strings.TrimSpace(productID)
	}
	if conf.BuyerEmail == "" {
		conf.BuyerEmail = strings.TrimSpace(email)
	}
	return conf
}

// WebhookEvent is a verified Paystack webhook notification
type WebhookEvent struct {
	Event   string
	Payment *VerifiedPayment
}

// IsChargeSuccess reports whether the webhook announces a captured charge
func (e *WebhookEvent) IsChargeSuccess() bool {
	return e.Event == paystackChargeSuccess && e.Payment != nil && e.Payment.Status == "success"
}

// PaystackGateway verifies Paystack transactions and webhooks. Without a
// secret key it runs in development mode and trusts callbacks.
type PaystackGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPaystackGateway creates a new Paystack adapter
func NewPaystackGateway(secretKey, baseURL string) *PaystackGateway {
	return &PaystackGateway{
		secretKey:  strings.TrimSpace(secretKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     util.GetLogger(),
	}
}

type paystackTransaction struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Metadata  json.RawMessage `json:"metadata"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

type paystackVerifyResponse struct {
	Status  bool                `json:"status"`
	Message string              `json:"message"`
	Data    paystackTransaction `json:"data"`
}

type paystackWebhook struct {
	Event string              `json:"event"`
	Data  paystackTransaction `json:"data"`
}

// VerifyTransaction asks Paystack whether reference was captured. It returns
// ErrPaymentNotSettled for transactions that exist but did not succeed.
func (g *PaystackGateway) VerifyTransaction(ctx context.Context, reference string) (*VerifiedPayment, error) {
	ctx, span := util.StartSpanWithReference(ctx, "PaystackGateway.VerifyTransaction", reference)
	defer span.End()

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: missing reference", ErrInvalidPayment)
	}

	if g.secretKey == "" {
		g.logger.Warn("Paystack secret not configured, trusting callback",
			zap.String("reference", reference))
		util.PaymentVerificationsTotal.WithLabelValues("unverified").Inc()
		return &VerifiedPayment{Reference: reference, Status: "success"}, nil
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", g.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build paystack verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		util.PaymentVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("paystack verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read paystack response: %w", err)
	}

	var out paystackVerifyResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		util.PaymentVerificationsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotSettled, out.Message)
	}
	if resp.StatusCode >= 400 {
		util.PaymentVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("paystack verify failed: status=%d message=%s", resp.StatusCode, out.Message)
	}

	payment := toVerifiedPayment(out.Data)
	if payment.Reference == "" {
		payment.Reference = reference
	}
	if !out.Status || payment.Status != "success" {
		util.PaymentVerificationsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: status=%s", ErrPaymentNotSettled, payment.Status)
	}

	util.PaymentVerificationsTotal.WithLabelValues("success").Inc()
	g.logger.Info("Payment verified",
		zap.String("reference", payment.Reference),
		zap.Int64("amount_minor", payment.AmountMinor),
		zap.String("currency", payment.Currency))

	return payment, nil
}

// ParseWebhook authenticates a webhook body with its HMAC-SHA512 signature
// and decodes it
func (g *PaystackGateway) ParseWebhook(signature string, payload []byte) (*WebhookEvent, error) {
	if g.secretKey == "" {
		return nil, fmt.Errorf("%w: paystack secret is not configured", ErrInvalidSignature)
	}
	if err := verifyPaystackSignature(payload, signature, g.secretKey); err != nil {
		return nil, err
	}

	var hook paystackWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("invalid paystack webhook payload: %w", err)
	}

	return &WebhookEvent{
		Event:   hook.Event,
		Payment: toVerifiedPayment(hook.Data),
	}, nil
}

func verifyPaystackSignature(payload []byte, signature, secret string) error {
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}

	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return ErrInvalidSignature
	}
	return nil
}

// SignPaystackPayload computes the signature Paystack sends for payload
func SignPaystackPayload(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func toVerifiedPayment(tx paystackTransaction) *VerifiedPayment {
	payment := &VerifiedPayment{
		Reference:   strings.TrimSpace(tx.Reference),
		Status:      tx.Status,
		AmountMinor: tx.Amount,
		Currency:    tx.Currency,
		Email:       strings.TrimSpace(tx.Customer.Email),
	}

	// Paystack echoes checkout metadata as an object, or as a string when
	// the client sent it pre-encoded.
	var meta map[string]interface{}
	if err := json.Unmarshal(tx.Metadata, &meta); err != nil {
		var encoded string
		if json.Unmarshal(tx.Metadata, &encoded) == nil {
			_ = json.Unmarshal([]byte(encoded), &meta)
		}
	}
	if meta != nil {
		payment.ProductID = asString(meta["product_id"])
		payment.SellerID = asString(meta["seller_id"])
	}
	return payment
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
