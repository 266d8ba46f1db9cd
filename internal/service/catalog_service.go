package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductInput is a seller-submitted product definition
type ProductInput struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ImageURL     string          `json:"image_url"`
	DeliveryMode string          `json:"delivery_mode"`
	FileURL      string          `json:"file_url"`
	DeliveryKey  string          `json:"delivery_key"`
	IsActive     *bool           `json:"is_active"`
}

// Storefront is a seller's public page
type Storefront struct {
	Profile  *models.Profile
	Products []models.Product
}

// ExploreItem is one marketplace listing. Seller is nil when the profile is
// gone.
type ExploreItem struct {
	Product models.Product
	Seller  *models.Profile
}

const (
	defaultExploreLimit = 50
	maxExploreLimit     = 200
)

// CatalogService manages seller products and public catalog reads
type CatalogService struct {
	products        ProductRepository
	profiles        ProfileReader
	defaultCurrency string
	storage         StoragePolicy
	logger          *zap.Logger
}

// NewCatalogService creates a new catalog service. Product file URLs must
// satisfy storage.
func NewCatalogService(products ProductRepository, profiles ProfileReader, defaultCurrency string, storage StoragePolicy) *CatalogService {
	return &CatalogService{
		products:        products,
		profiles:        profiles,
		defaultCurrency: defaultCurrency,
		storage:         storage,
		logger:          util.GetLogger(),
	}
}

// CreateProduct adds a product to the seller's catalog
func (s *CatalogService) CreateProduct(ctx context.Context, identity models.Identity, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}

	product := &models.Product{
		ID:       uuid.New().String(),
		SellerID: identity.SellerID,
		IsActive: true,
	}
	if err := s.apply(product, in); err != nil {
		return nil, err
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("seller_id", product.SellerID),
		zap.String("delivery_mode", string(product.DeliveryMode())))

	return product, nil
}

// UpdateProduct replaces a product the seller owns
func (s *CatalogService) UpdateProduct(ctx context.Context, identity models.Identity, productID string, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	product, err := s.owned(ctx, identity, productID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(product, in); err != nil {
		return nil, err
	}

	if err := s.products.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info("Product updated",
		zap.String("product_id", product.ID),
		zap.String("seller_id", product.SellerID))

	return product, nil
}

// SetActive toggles whether a product shows in the public catalog
func (s *CatalogService) SetActive(ctx context.Context, identity models.Identity, productID string, active bool) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.SetActive")
	defer span.End()

	if _, err := s.owned(ctx, identity, productID); err != nil {
		return err
	}
	if err := s.products.SetProductActive(ctx, identity.SellerID, productID, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to set product active: %w", err)
	}

	s.logger.Info("Product visibility changed",
		zap.String("product_id", productID),
		zap.Bool("active", active))
	return nil
}

// ListSellerProducts returns every product the seller owns
func (s *CatalogService) ListSellerProducts(ctx context.Context, identity models.Identity) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListSellerProducts")
	defer span.End()

	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	return s.products.ListProductsBySeller(ctx, identity.SellerID, false)
}

// GetPublicProduct returns an active product and its seller
func (s *CatalogService) GetPublicProduct(ctx context.Context, productID string) (*models.Product, *models.Profile, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetPublicProduct")
	defer span.End()

	product, err := s.products.GetProductByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrProductNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get product: %w", err)
	}
	if !product.IsActive {
		return nil, nil, ErrProductNotFound
	}

	profile, err := s.profiles.GetProfileByID(ctx, product.SellerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to get seller profile: %w", err)
	}
	return product, profile, nil
}

// Storefront returns a seller's public page with active products only
func (s *CatalogService) Storefront(ctx context.Context, username string) (*Storefront, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Storefront")
	defer span.End()

	profile, err := s.profiles.GetProfileByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	products, err := s.products.ListProductsBySeller(ctx, profile.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &Storefront{Profile: profile, Products: products}, nil
}

// Explore lists active products from every seller, newest first, with their
// seller profiles attached.
func (s *CatalogService) Explore(ctx context.Context, limit int) ([]ExploreItem, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Explore")
	defer span.End()

	if limit <= 0 {
		limit = defaultExploreLimit
	}
	if limit > maxExploreLimit {
		limit = maxExploreLimit
	}

	products, err := s.products.ListActiveProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	sellers := make(map[string]*models.Profile)
	items := make([]ExploreItem, 0, len(products))
	for _, p := range products {
		profile, seen := sellers[p.SellerID]
		if !seen {
			profile, err = s.profiles.GetProfileByID(ctx, p.SellerID)
			if errors.Is(err, store.ErrNotFound) {
				profile = nil
			} else if err != nil {
				return nil, fmt.Errorf("failed to get seller profile: %w", err)
			}
			sellers[p.SellerID] = profile
		}
		items = append(items, ExploreItem{Product: p, Seller: profile})
	}
	return items, nil
}

// SellerProfile returns a seller's profile by ID
func (s *CatalogService) SellerProfile(ctx context.Context, sellerID string) (*models.Profile, error) {
	profile, err := s.profiles.GetProfileByID(ctx, sellerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (s *CatalogService) owned(ctx context.Context, identity models.Identity, productID string) (*models.Product, error) {
	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	product, err := s.products.GetProductByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product.SellerID != identity.SellerID {
		return nil, ErrForbidden
	}
	return product, nil
}

// apply validates in and copies it onto product
func (s *CatalogService) apply(product *models.Product, in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}

	mode, err := models.ParseDeliveryMode(in.DeliveryMode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	delivery, err := models.NewDelivery(mode, in.FileURL, in.DeliveryKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	if mode == models.DeliveryDirectDownload || mode == models.DeliveryViewOnly {
		if err := s.storage.Allows(in.FileURL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	product.Name = name
	product.Description = strings.TrimSpace(in.Description)
	product.Price = in.Price
	product.Currency = currency
	product.ImageURL = strings.TrimSpace(in.ImageURL)
	product.Delivery = delivery
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	return nil
}
