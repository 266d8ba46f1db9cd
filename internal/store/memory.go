package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront-service/internal/models"
)

// MemoryStore keeps profiles, products and orders in process memory. It
// honours the same uniqueness and ownership rules as the Postgres store and
// backs local development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  map[string]models.Profile
	products  map[string]models.Product
	orders    map[string]models.Order // keyed by reference
	processed map[string]string
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[string]models.Profile),
		products:  make(map[string]models.Product),
		orders:    make(map[string]models.Order),
		processed: make(map[string]string),
		now:       time.Now,
	}
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// CreateProfile inserts a seller profile
func (m *MemoryStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[profile.ID]; ok {
		return fmt.Errorf("profile %s: %w", profile.ID, ErrConflict)
	}
	for _, p := range m.profiles {
		if p.Username == profile.Username {
			return fmt.Errorf("profile %s: %w", profile.Username, ErrConflict)
		}
	}
	profile.CreatedAt = m.now()
	m.profiles[profile.ID] = *profile
	return nil
}

// GetProfileByID retrieves a seller profile by ID
func (m *MemoryStore) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

// GetProfileByUsername retrieves a seller profile by store username
func (m *MemoryStore) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.profiles {
		if p.Username == username {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("profile %s: %w", username, ErrNotFound)
}

// CreateProduct inserts a product
func (m *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[product.ID]; ok {
		return fmt.Errorf("product %s: %w", product.ID, ErrConflict)
	}
	now := m.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	m.products[product.ID] = *product
	return nil
}

// UpdateProduct updates a product owned by product.SellerID
func (m *MemoryStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.products[product.ID]
	if !ok || existing.SellerID != product.SellerID {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = m.now()
	m.products[product.ID] = *product
	return nil
}

// SetProductActive toggles catalog visibility of a seller's product
func (m *MemoryStore) SetProductActive(ctx context.Context, sellerID, productID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok || p.SellerID != sellerID {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	p.IsActive = active
	p.UpdatedAt = m.now()
	m.products[productID] = p
	return nil
}

// GetProductByID retrieves a product by ID
func (m *MemoryStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

// ListProductsBySeller retrieves a seller's products, newest first
func (m *MemoryStore) ListProductsBySeller(ctx context.Context, sellerID string, activeOnly bool) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := []models.Product{}
	for _, p := range m.products {
		if p.SellerID != sellerID || (activeOnly && !p.IsActive) {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

// ListActiveProducts retrieves active products across all sellers, newest first
func (m *MemoryStore) ListActiveProducts(ctx context.Context, limit int) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := []models.Product{}
	for _, p := range m.products {
		if p.IsActive {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

// InsertOrder records an order; the reference is unique
func (m *MemoryStore) InsertOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.Reference]; ok {
		return fmt.Errorf("order reference %s: %w", order.Reference, ErrConflict)
	}
	order.CreatedAt = m.now()
	stored := *order
	stored.AccessKey = cloneString(order.AccessKey)
	stored.FollowUp = cloneString(order.FollowUp)
	m.orders[order.Reference] = stored
	return nil
}

// FindOrderByReference retrieves an order by its transaction reference
func (m *MemoryStore) FindOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[reference]
	if !ok {
		return nil, fmt.Errorf("order reference %s: %w", reference, ErrNotFound)
	}
	o.AccessKey = cloneString(o.AccessKey)
	o.FollowUp = cloneString(o.FollowUp)
	return &o, nil
}

// ListOrdersForSeller retrieves a seller's orders, newest first
func (m *MemoryStore) ListOrdersForSeller(ctx context.Context, sellerID string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range m.orders {
		if o.SellerID == sellerID {
			o.AccessKey = cloneString(o.AccessKey)
			o.FollowUp = cloneString(o.FollowUp)
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// CountOrders returns the number of stored orders
func (m *MemoryStore) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// IsEventProcessed checks if an event has been processed
func (m *MemoryStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.processed[eventID]
	return ok, nil
}

// MarkEventProcessed marks an event as processed
func (m *MemoryStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processed[eventID]; !ok {
		m.processed[eventID] = eventType
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
