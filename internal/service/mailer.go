package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const resendEndpoint = "https://api.resend.com/emails"

//go:embed templates/receipt.html
var receiptHTML string

var receiptTemplate = template.Must(template.New("receipt").Parse(receiptHTML))

// Mailer delivers receipts to buyers
type Mailer interface {
	SendReceipt(ctx context.Context, receipt *models.Receipt) error
}

// RenderReceipt returns the subject and HTML body for a receipt
func RenderReceipt(receipt *models.Receipt) (string, string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, receipt); err != nil {
		return "", "", fmt.Errorf("render receipt: %w", err)
	}
	return fmt.Sprintf("Receipt: %s", receipt.ProductName), buf.String(), nil
}

// ResendMailer sends email through the Resend REST API. In mock mode it
// renders and logs the message without sending.
type ResendMailer struct {
	apiKey     string
	from       string
	mock       bool
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewResendMailer creates a mailer. A missing API key forces mock mode.
func NewResendMailer(apiKey, from string, mock bool) *ResendMailer {
	apiKey = strings.TrimSpace(apiKey)
	return &ResendMailer{
		apiKey:     apiKey,
		from:       from,
		mock:       mock || apiKey == "",
		endpoint:   resendEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     util.GetLogger(),
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// SendReceipt renders and sends a receipt email
func (m *ResendMailer) SendReceipt(ctx context.Context, receipt *models.Receipt) error {
	ctx, span := util.StartSpanWithReference(ctx, "ResendMailer.SendReceipt", receipt.AccessInfo.Reference)
	defer span.End()

	if strings.TrimSpace(receipt.Email) == "" {
		return fmt.Errorf("receipt %s has no recipient", receipt.AccessInfo.Reference)
	}

	subject, html, err := RenderReceipt(receipt)
	if err != nil {
		return err
	}

	if m.mock {
		m.logger.Info("Mock email sent",
			zap.String("to", receipt.Email),
			zap.String("subject", subject),
			zap.String("reference", receipt.AccessInfo.Reference))
		return nil
	}

	payload, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{receipt.Email},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var out resendResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode >= 400 {
		msg := out.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("resend send failed: status=%d message=%s", resp.StatusCode, msg)
	}

	m.logger.Info("Receipt email sent",
		zap.String("reference", receipt.AccessInfo.Reference),
		zap.String("email_id", out.ID))
	return nil
}
