package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	receipts []*models.Receipt
	err      error
}

func (d *recordingDispatcher) DispatchReceipt(ctx context.Context, receipt *models.Receipt) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receipts = append(d.receipts, receipt)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.receipts)
}

type recordingEvents struct {
	mu         sync.Mutex
	paid       []*models.OrderPaidEvent
	unrecorded []*models.DeliveryUnrecordedEvent
}

func (e *recordingEvents) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paid = append(e.paid, event)
	return nil
}

func (e *recordingEvents) PublishDeliveryUnrecorded(ctx context.Context, event *models.DeliveryUnrecordedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unrecorded = append(e.unrecorded, event)
	return nil
}

type sequenceKeys struct {
	mu   sync.Mutex
	keys []string
	n    int
}

func (s *sequenceKeys) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.keys[s.n%len(s.keys)]
	s.n++
	return k, nil
}

// brokenLedger fails every write, as an unavailable database would.
type brokenLedger struct {
	*store.MemoryStore
}

func (b brokenLedger) InsertOrder(ctx context.Context, order *models.Order) error {
	return errors.New("connection refused")
}

type memoryLimiter struct {
	mu    sync.Mutex
	max   int
	count map[string]int
}

func newMemoryLimiter(max int) *memoryLimiter {
	return &memoryLimiter{max: max, count: make(map[string]int)}
}

func (l *memoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count[key]++
	return l.count[key] <= l.max, nil
}

func (l *memoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.count, key)
	return nil
}

func seedProduct(t *testing.T, s *store.MemoryStore, id string, delivery models.Delivery, active bool) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:       id,
		SellerID: "seller-1",
		Name:     "Product " + id,
		Price:    decimal.RequireFromString("2500"),
		Currency: "NGN",
		Delivery: delivery,
		IsActive: active,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedSeller(t *testing.T, s *store.MemoryStore) {
	t.Helper()
	require.NoError(t, s.CreateProfile(context.Background(), &models.Profile{
		ID:       "seller-1",
		Username: "ada",
		FullName: "Ada Books",
		Phone:    "+234 801 234 5678",
	}))
}
