package service

import (
	"context"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seller = models.Identity{SellerID: "seller-1", Email: "ada@example.com"}

func newCatalog(t *testing.T) (*CatalogService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	seedSeller(t, s)
	return NewCatalogService(s, s, "NGN", StoragePolicy{}), s
}

func viewOnlyInput() ProductInput {
	return ProductInput{
		Name:         "  Design Handbook ",
		Price:        decimal.RequireFromString("4500"),
		DeliveryMode: "view_only",
		FileURL:      "https://files/handbook.pdf",
	}
}

func TestCreateProductRequiresIdentity(t *testing.T) {
	catalog, _ := newCatalog(t)

	_, err := catalog.CreateProduct(context.Background(), models.Identity{}, viewOnlyInput())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateProductBuildsVariant(t *testing.T) {
	catalog, _ := newCatalog(t)

	p, err := catalog.CreateProduct(context.Background(), seller, viewOnlyInput())
	require.NoError(t, err)
	assert.Equal(t, "seller-1", p.SellerID)
	assert.Equal(t, "Design Handbook", p.Name)
	assert.Equal(t, "NGN", p.Currency)
	assert.True(t, p.IsActive)
	assert.Equal(t, models.ViewOnlyDelivery{FileURL: "https://files/handbook.pdf"}, p.Delivery)
}

func TestCreateProductValidation(t *testing.T) {
	catalog, _ := newCatalog(t)
	ctx := context.Background()

	noName := viewOnlyInput()
	noName.Name = " "
	_, err := catalog.CreateProduct(ctx, seller, noName)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	free := viewOnlyInput()
	free.Price = decimal.Zero
	_, err = catalog.CreateProduct(ctx, seller, free)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	mixed := viewOnlyInput()
	mixed.DeliveryKey = "also a key"
	_, err = catalog.CreateProduct(ctx, seller, mixed)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	unknown := viewOnlyInput()
	unknown.DeliveryMode = "telepathy"
	_, err = catalog.CreateProduct(ctx, seller, unknown)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestUpdateProductEnforcesOwnership(t *testing.T) {
	catalog, _ := newCatalog(t)
	ctx := context.Background()

	p, err := catalog.CreateProduct(ctx, seller, viewOnlyInput())
	require.NoError(t, err)

	intruder := models.Identity{SellerID: "seller-2"}
	in := viewOnlyInput()
	in.Name = "Stolen"
	_, err = catalog.UpdateProduct(ctx, intruder, p.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, catalog.SetActive(ctx, intruder, p.ID, false), ErrForbidden)

	_, err = catalog.UpdateProduct(ctx, seller, "missing", in)
	assert.ErrorIs(t, err, ErrProductNotFound)

	in.DeliveryMode = "key_access"
	in.FileURL = ""
	in.DeliveryKey = "LICENSE"
	updated, err := catalog.UpdateProduct(ctx, seller, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Stolen", updated.Name)
	assert.Equal(t, models.KeyAccessDelivery{Secret: "LICENSE"}, updated.Delivery)
}

func TestStorefrontListsActiveProductsOnly(t *testing.T) {
	catalog, _ := newCatalog(t)
	ctx := context.Background()

	visible, err := catalog.CreateProduct(ctx, seller, viewOnlyInput())
	require.NoError(t, err)
	hidden, err := catalog.CreateProduct(ctx, seller, viewOnlyInput())
	require.NoError(t, err)
	require.NoError(t, catalog.SetActive(ctx, seller, hidden.ID, false))

	front, err := catalog.Storefront(ctx, "ADA")
	require.NoError(t, err)
	assert.Equal(t, "seller-1", front.Profile.ID)
	require.Len(t, front.Products, 1)
	assert.Equal(t, visible.ID, front.Products[0].ID)

	_, _, err = catalog.GetPublicProduct(ctx, hidden.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	p, profile, err := catalog.GetPublicProduct(ctx, visible.ID)
	require.NoError(t, err)
	assert.Equal(t, visible.ID, p.ID)
	assert.Equal(t, "ada", profile.Username)

	_, err = catalog.Storefront(ctx, "nobody")
	assert.ErrorIs(t, err, ErrStoreNotFound)

	all, err := catalog.ListSellerProducts(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateProductRejectsFileOutsideStorage(t *testing.T) {
	s := store.NewMemoryStore()
	seedSeller(t, s)
	policy, err := NewStoragePolicy("https://files.example.com/storage")
	require.NoError(t, err)
	catalog := NewCatalogService(s, s, "NGN", policy)
	ctx := context.Background()

	for _, fileURL := range []string{
		"http://169.254.169.254/latest/meta-data/iam",
		"http://localhost:8080/metrics",
		"https://files.example.com/other/handbook.pdf",
	} {
		in := viewOnlyInput()
		in.FileURL = fileURL
		_, err := catalog.CreateProduct(ctx, seller, in)
		assert.ErrorIs(t, err, ErrInvalidProduct, fileURL)
	}

	download := viewOnlyInput()
	download.DeliveryMode = "direct_download"
	download.FileURL = "http://10.0.0.5/internal.zip"
	_, err = catalog.CreateProduct(ctx, seller, download)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	ok := viewOnlyInput()
	ok.FileURL = "https://files.example.com/storage/seller-1/handbook.pdf"
	p, err := catalog.CreateProduct(ctx, seller, ok)
	require.NoError(t, err)

	in := viewOnlyInput()
	in.FileURL = "http://127.0.0.1:6379/"
	_, err = catalog.UpdateProduct(ctx, seller, p.ID, in)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestExploreAttachesSellers(t *testing.T) {
	catalog, s := newCatalog(t)
	ctx := context.Background()

	shown, err := catalog.CreateProduct(ctx, seller, viewOnlyInput())
	require.NoError(t, err)
	hidden, err := catalog.CreateProduct(ctx, seller, viewOnlyInput())
	require.NoError(t, err)
	require.NoError(t, catalog.SetActive(ctx, seller, hidden.ID, false))

	require.NoError(t, s.CreateProduct(ctx, &models.Product{
		ID:       "orphan",
		SellerID: "deleted-seller",
		Name:     "Orphan",
		Price:    decimal.RequireFromString("100"),
		Delivery: models.PhysicalDelivery{},
		IsActive: true,
	}))

	items, err := catalog.Explore(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[string]ExploreItem{}
	for _, item := range items {
		byID[item.Product.ID] = item
	}
	require.Contains(t, byID, shown.ID)
	require.NotNil(t, byID[shown.ID].Seller)
	assert.Equal(t, "Ada Books", byID[shown.ID].Seller.FullName)
	assert.Nil(t, byID["orphan"].Seller)
	assert.NotContains(t, byID, hidden.ID)

	limited, err := catalog.Explore(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
