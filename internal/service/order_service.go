package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService serves seller-scoped reads over the order ledger
type OrderService struct {
	ledger   OrderLedger
	products ProductReader
	logger   *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(ledger OrderLedger, products ProductReader) *OrderService {
	return &OrderService{
		ledger:   ledger,
		products: products,
		logger:   util.GetLogger(),
	}
}

// SellerSummary is the dashboard overview for one seller
type SellerSummary struct {
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	OrderCount     int             `json:"order_count"`
	ActiveProducts int             `json:"active_products"`
	TotalProducts  int             `json:"total_products"`
	FollowUps      int             `json:"follow_ups"`
	RecentOrders   []models.Order  `json:"recent_orders"`
}

const recentOrdersLimit = 5

// ListSellerOrders returns the seller's orders, newest first
func (s *OrderService) ListSellerOrders(ctx context.Context, identity models.Identity) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListSellerOrders")
	defer span.End()

	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}

	orders, err := s.ledger.ListOrdersForSeller(ctx, identity.SellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Summary computes revenue, order and product counts for the seller
func (s *OrderService) Summary(ctx context.Context, identity models.Identity) (*SellerSummary, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Summary")
	defer span.End()

	orders, err := s.ListSellerOrders(ctx, identity)
	if err != nil {
		return nil, err
	}

	products, err := s.products.ListProductsBySeller(ctx, identity.SellerID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	summary := &SellerSummary{
		TotalRevenue:  decimal.Zero,
		OrderCount:    len(orders),
		TotalProducts: len(products),
	}
	for _, o := range orders {
		summary.TotalRevenue = summary.TotalRevenue.Add(o.Amount)
		if o.FollowUp != nil {
			summary.FollowUps++
		}
	}
	for _, p := range products {
		if p.IsActive {
			summary.ActiveProducts++
		}
	}

	recent := orders
	if len(recent) > recentOrdersLimit {
		recent = recent[:recentOrdersLimit]
	}
	summary.RecentOrders = recent

	s.logger.Debug("Seller summary computed",
		zap.String("seller_id", identity.SellerID),
		zap.Int("orders", summary.OrderCount))

	return summary, nil
}
