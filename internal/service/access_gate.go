package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Decision is the outcome of a credential check
type Decision int

const (
	Denied Decision = iota
	Granted
)

func (d Decision) String() string {
	if d == Granted {
		return "granted"
	}
	return "denied"
}

// LockedView is what a redemption page may show before unlocking. It never
// carries the stored key.
type LockedView struct {
	Reference    string              `json:"reference"`
	ProductName  string              `json:"product_name"`
	DeliveryMode models.DeliveryMode `json:"delivery_mode"`
	RequiresKey  bool                `json:"requires_key"`
}

// ViewerGrant is returned after a successful unlock
type ViewerGrant struct {
	Reference   string    `json:"reference"`
	ProductName string    `json:"product_name"`
	Token       string    `json:"token"`
	ContentURL  string    `json:"content_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ViewerContent locates the shared file behind an unlocked view
type ViewerContent struct {
	ProductName string
	FileURL     string
}

// AccessGate verifies buyer credentials for view-only purchases. Checks are
// read-only against the ledger; unlocked state lives only in the viewer
// token handed to the session.
type AccessGate struct {
	ledger   OrderLedger
	products ProductReader
	limiter  AttemptLimiter
	tokens   *ViewerTokens
	logger   *zap.Logger
}

// NewAccessGate creates a new access gate. limiter may be nil to disable
// attempt throttling.
func NewAccessGate(ledger OrderLedger, products ProductReader, limiter AttemptLimiter, tokens *ViewerTokens) *AccessGate {
	return &AccessGate{
		ledger:   ledger,
		products: products,
		limiter:  limiter,
		tokens:   tokens,
		logger:   util.GetLogger(),
	}
}

// LookupOrder finds the order for a redemption reference
func (g *AccessGate) LookupOrder(ctx context.Context, reference string) (*models.Order, error) {
	ctx, span := util.StartSpanWithReference(ctx, "AccessGate.LookupOrder", reference)
	defer span.End()

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrOrderNotFound
	}

	order, err := g.ledger.FindOrderByReference(ctx, reference)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, reference)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}
	return order, nil
}

// CheckCredential grants access iff the order holds a key equal to the
// trimmed submission, compared exactly and case-sensitively
func CheckCredential(order *models.Order, submitted string) Decision {
	if order == nil || !order.HasAccessKey() {
		return Denied
	}
	candidate := strings.TrimSpace(submitted)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(*order.AccessKey)) == 1 {
		return Granted
	}
	return Denied
}

// Describe returns the locked view for a reference
func (g *AccessGate) Describe(ctx context.Context, reference string) (*LockedView, error) {
	ctx, span := util.StartSpanWithReference(ctx, "AccessGate.Describe", reference)
	defer span.End()

	order, err := g.LookupOrder(ctx, reference)
	if err != nil {
		return nil, err
	}

	view := &LockedView{
		Reference:    order.Reference,
		DeliveryMode: models.DeliveryNone,
		RequiresKey:  order.HasAccessKey(),
	}
	if product, err := g.products.GetProductByID(ctx, order.ProductID); err == nil {
		view.ProductName = product.Name
		view.DeliveryMode = product.DeliveryMode()
	}
	return view, nil
}

// Redeem checks a submitted key and, on success, issues a viewer grant.
func (g *AccessGate) Redeem(ctx context.Context, reference, submitted string) (*ViewerGrant, error) {
	ctx, span := util.StartSpanWithReference(ctx, "AccessGate.Redeem", reference)
	defer span.End()

	reference = strings.TrimSpace(reference)
	if g.limiter != nil {
		allowed, err := g.limiter.Allow(ctx, reference)
		if err != nil {
			g.logger.Warn("Attempt limiter unavailable, continuing unthrottled",
				zap.String("reference", reference),
				zap.Error(err))
		} else if !allowed {
			util.UnlockAttemptsTotal.WithLabelValues("throttled").Inc()
			return nil, ErrTooManyAttempts
		}
	}

	order, err := g.LookupOrder(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			util.UnlockAttemptsTotal.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	if CheckCredential(order, submitted) != Granted {
		util.UnlockAttemptsTotal.WithLabelValues("denied").Inc()
		g.logger.Info("Unlock denied", zap.String("reference", reference))
		return nil, ErrDenied
	}

	content, err := g.contentFor(ctx, order)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := g.tokens.Issue(order.Reference)
	if err != nil {
		return nil, err
	}

	if g.limiter != nil {
		if err := g.limiter.Reset(ctx, reference); err != nil {
			g.logger.Warn("Failed to reset unlock attempts",
				zap.String("reference", reference),
				zap.Error(err))
		}
	}

	util.UnlockAttemptsTotal.WithLabelValues("granted").Inc()
	g.logger.Info("Unlock granted", zap.String("reference", reference))

	return &ViewerGrant{
		Reference:   order.Reference,
		ProductName: content.ProductName,
		Token:       token,
		ContentURL:  fmt.Sprintf("/view/%s/content?token=%s", url.PathEscape(order.Reference), url.QueryEscape(token)),
		ExpiresAt:   expiresAt,
	}, nil
}

// OpenViewer resolves the file behind a viewer token
func (g *AccessGate) OpenViewer(ctx context.Context, reference, token string) (*ViewerContent, error) {
	ctx, span := util.StartSpanWithReference(ctx, "AccessGate.OpenViewer", reference)
	defer span.End()

	if err := g.tokens.Verify(token, strings.TrimSpace(reference)); err != nil {
		return nil, err
	}

	order, err := g.LookupOrder(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !order.HasAccessKey() {
		return nil, ErrContentUnavailable
	}
	return g.contentFor(ctx, order)
}

// contentFor reads the product's current shared file for an order
func (g *AccessGate) contentFor(ctx context.Context, order *models.Order) (*ViewerContent, error) {
	product, err := g.products.GetProductByID(ctx, order.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s no longer exists", ErrContentUnavailable, order.ProductID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	d, ok := product.Delivery.(models.ViewOnlyDelivery)
	if !ok {
		return nil, fmt.Errorf("%w: product %s is no longer view-only", ErrContentUnavailable, product.ID)
	}
	return &ViewerContent{ProductName: product.Name, FileURL: d.FileURL}, nil
}
