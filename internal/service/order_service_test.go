package service

import (
	"context"
	"fmt"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSellerSummary(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	seedProduct(t, s, "p1", models.PhysicalDelivery{}, true)
	seedProduct(t, s, "p2", models.PhysicalDelivery{}, false)

	flag := models.FollowUpAmountMismatch
	for i := 0; i < 7; i++ {
		o := &models.Order{
			ID:        fmt.Sprintf("o%d", i),
			ProductID: "p1",
			SellerID:  "seller-1",
			Amount:    decimal.RequireFromString("1000.50"),
			Reference: fmt.Sprintf("r%d", i),
			Status:    models.OrderStatusPaid,
		}
		if i == 0 {
			o.FollowUp = &flag
		}
		require.NoError(t, s.InsertOrder(ctx, o))
	}
	require.NoError(t, s.InsertOrder(ctx, &models.Order{
		ID: "other", SellerID: "seller-2", Reference: "other", Amount: decimal.RequireFromString("99"),
	}))

	summary, err := NewOrderService(s, s).Summary(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.OrderCount)
	assert.True(t, summary.TotalRevenue.Equal(decimal.RequireFromString("7003.50")))
	assert.Equal(t, 2, summary.TotalProducts)
	assert.Equal(t, 1, summary.ActiveProducts)
	assert.Equal(t, 1, summary.FollowUps)
	assert.Len(t, summary.RecentOrders, 5)
}

func TestListSellerOrdersRequiresIdentity(t *testing.T) {
	s := store.NewMemoryStore()
	_, err := NewOrderService(s, s).ListSellerOrders(context.Background(), models.Identity{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
