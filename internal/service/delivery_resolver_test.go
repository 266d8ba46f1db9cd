package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[1-9][0-9]{5}$`)

type resolverFixture struct {
	store      *store.MemoryStore
	dispatcher *recordingDispatcher
	events     *recordingEvents
	resolver   *DeliveryResolver
}

func newResolverFixture(t *testing.T, keys KeyGenerator) *resolverFixture {
	t.Helper()
	s := store.NewMemoryStore()
	seedSeller(t, s)
	if keys == nil {
		keys = NewRandomKeyGenerator()
	}
	f := &resolverFixture{
		store:      s,
		dispatcher: &recordingDispatcher{},
		events:     &recordingEvents{},
	}
	f.resolver = NewDeliveryResolver(s, s, s, keys, f.dispatcher, f.events, "NGN", "https://shop.example")
	return f
}

func payment(reference, productID string) PaymentConfirmation {
	return PaymentConfirmation{
		Reference:  reference,
		ProductID:  productID,
		BuyerEmail: "buyer@example.com",
		Amount:     decimal.RequireFromString("2500"),
		Currency:   "NGN",
	}
}

func TestResolveViewOnlyGeneratesKey(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, true)

	res, err := f.resolver.ResolvePayment(context.Background(), payment("abc123", "p"))
	require.NoError(t, err)
	require.True(t, res.Order.HasAccessKey())
	assert.Regexp(t, sixDigits, *res.Order.AccessKey)
	assert.Equal(t, models.OrderStatusPaid, res.Order.Status)

	stored, err := f.store.FindOrderByReference(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, *res.Order.AccessKey, *stored.AccessKey)

	require.Equal(t, 1, f.dispatcher.count())
	receipt := f.dispatcher.receipts[0]
	assert.Equal(t, *stored.AccessKey, receipt.AccessInfo.AccessKey)
	assert.Equal(t, "https://shop.example/view/abc123", receipt.AccessInfo.ViewURL)
	assert.Equal(t, "Ada Books", receipt.SellerName)
}

func TestResolveDistinctReferencesDrawIndependentKeys(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, true)

	seen := make(map[string]int)
	for i := 0; i < 200; i++ {
		res, err := f.resolver.ResolvePayment(context.Background(), payment(fmt.Sprintf("ref-%d", i), "p"))
		require.NoError(t, err)
		require.Regexp(t, sixDigits, *res.Order.AccessKey)
		seen[*res.Order.AccessKey]++
	}
	// 200 draws over 900,000 values collide with probability ~2%.
	assert.GreaterOrEqual(t, len(seen), 198)
}

func TestResolveOtherModesGrantNoKey(t *testing.T) {
	cases := []struct {
		name     string
		delivery models.Delivery
	}{
		{"direct_download", models.DownloadDelivery{FileURL: "https://files/g.zip"}},
		{"key_access", models.KeyAccessDelivery{Secret: "LICENSE-1234"}},
		{"physical", models.PhysicalDelivery{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newResolverFixture(t, nil)
			seedProduct(t, f.store, "p", tc.delivery, true)

			res, err := f.resolver.ResolvePayment(context.Background(), payment("ref-"+tc.name, "p"))
			require.NoError(t, err)
			assert.Nil(t, res.Order.AccessKey)
			assert.Nil(t, res.Order.FollowUp)
			assert.Empty(t, res.Receipt.AccessInfo.AccessKey)
		})
	}
}

func TestResolveDirectDownloadReceipt(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "q", models.DownloadDelivery{FileURL: "https://files/G"}, true)

	res, err := f.resolver.ResolvePayment(context.Background(), payment("xyz789", "q"))
	require.NoError(t, err)
	assert.Nil(t, res.Order.AccessKey)

	require.Equal(t, 1, f.dispatcher.count())
	receipt := f.dispatcher.receipts[0]
	assert.Equal(t, "receipt", receipt.Type)
	assert.Equal(t, models.DeliveryDirectDownload, receipt.DeliveryType)
	assert.Equal(t, "https://files/G", receipt.AccessInfo.FileURL)
	assert.Empty(t, receipt.AccessInfo.ViewURL)
	assert.Equal(t, "2500.00", receipt.Price)
}

func TestResolveKeyAccessSurfacesStaticKey(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "k", models.KeyAccessDelivery{Secret: "LICENSE-1234"}, true)

	res, err := f.resolver.ResolvePayment(context.Background(), payment("key-ref", "k"))
	require.NoError(t, err)
	assert.Equal(t, "LICENSE-1234", res.Receipt.AccessInfo.DeliveryKey)
	assert.Nil(t, res.Order.AccessKey)
}

func TestResolveDuplicateReferenceKeepsFirstKey(t *testing.T) {
	keys := &sequenceKeys{keys: []string{"482913", "111111"}}
	f := newResolverFixture(t, keys)
	seedProduct(t, f.store, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, true)
	ctx := context.Background()

	first, err := f.resolver.ResolvePayment(ctx, payment("abc123", "p"))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := f.resolver.ResolvePayment(ctx, payment("abc123", "p"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, "482913", *second.Order.AccessKey)
	assert.Equal(t, "482913", second.Receipt.AccessInfo.AccessKey)

	assert.Equal(t, 1, f.store.CountOrders())
	assert.Equal(t, 1, f.dispatcher.count())
	assert.Len(t, f.events.paid, 1)
}

func TestResolveConcurrentCallbacksRecordOneOrder(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, true)

	const callers = 16
	results := make([]*Resolution, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.resolver.ResolvePayment(context.Background(), payment("race", "p"))
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	stored, err := f.store.FindOrderByReference(context.Background(), "race")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.CountOrders())
	assert.Equal(t, 1, f.dispatcher.count())

	fresh := 0
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, *stored.AccessKey, *res.Order.AccessKey)
		if !res.Duplicate {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
}

func TestResolveMissingProductFlagsFollowUp(t *testing.T) {
	f := newResolverFixture(t, nil)
	conf := payment("ghost-ref", "deleted-product")
	conf.SellerID = "seller-1"

	res, err := f.resolver.ResolvePayment(context.Background(), conf)
	require.NoError(t, err)
	require.NotNil(t, res.Order.FollowUp)
	assert.Equal(t, models.FollowUpProductNotFound, *res.Order.FollowUp)
	assert.Equal(t, "seller-1", res.Order.SellerID)
	assert.Nil(t, res.Order.AccessKey)
	assert.Equal(t, 1, f.store.CountOrders())
	assert.Equal(t, models.DeliveryNone, res.Receipt.DeliveryType)
}

func TestResolveInactiveProductStillDelivers(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, false)

	res, err := f.resolver.ResolvePayment(context.Background(), payment("inactive-ref", "p"))
	require.NoError(t, err)
	require.NotNil(t, res.Order.FollowUp)
	assert.Equal(t, models.FollowUpProductInactive, *res.Order.FollowUp)
	assert.True(t, res.Order.HasAccessKey())
}

func TestResolveOverpaymentRecordsChargedAmount(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "p", models.KeyAccessDelivery{Secret: "LICENSE-XYZ"}, true)

	conf := payment("over-ref", "p")
	conf.Amount = decimal.RequireFromString("3000")
	res, err := f.resolver.ResolvePayment(context.Background(), conf)
	require.NoError(t, err)
	require.NotNil(t, res.Order.FollowUp)
	assert.Equal(t, models.FollowUpAmountMismatch, *res.Order.FollowUp)
	assert.True(t, res.Order.Amount.Equal(decimal.RequireFromString("3000")))
	assert.Equal(t, "LICENSE-XYZ", res.Receipt.AccessInfo.DeliveryKey)
}

func TestResolveShortChargeWithholdsDelivery(t *testing.T) {
	tests := []struct {
		name     string
		delivery models.Delivery
		amount   string
		currency string
		reason   string
	}{
		{"underpaid key", models.KeyAccessDelivery{Secret: "LICENSE-XYZ"}, "1", "NGN", models.FollowUpUnderpaid},
		{"underpaid download", models.DownloadDelivery{FileURL: "https://files/g.zip"}, "2499.99", "NGN", models.FollowUpUnderpaid},
		{"underpaid view", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, "100", "NGN", models.FollowUpUnderpaid},
		{"other currency", models.KeyAccessDelivery{Secret: "LICENSE-XYZ"}, "2500", "USD", models.FollowUpCurrencyMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newResolverFixture(t, nil)
			seedProduct(t, f.store, "p", tc.delivery, true)

			conf := payment("short-ref", "p")
			conf.Amount = decimal.RequireFromString(tc.amount)
			conf.Currency = tc.currency
			res, err := f.resolver.ResolvePayment(context.Background(), conf)
			require.NoError(t, err)

			require.NotNil(t, res.Order.FollowUp)
			assert.Equal(t, tc.reason, *res.Order.FollowUp)
			assert.True(t, res.Order.DeliveryWithheld())
			assert.Nil(t, res.Order.AccessKey)
			assert.Equal(t, 1, f.store.CountOrders())

			assert.Equal(t, models.DeliveryNone, res.Receipt.DeliveryType)
			assert.Equal(t, models.AccessInfo{Reference: "short-ref"}, res.Receipt.AccessInfo)
			require.Equal(t, 1, f.dispatcher.count())
			assert.Empty(t, f.dispatcher.receipts[0].AccessInfo.DeliveryKey)
			assert.Empty(t, f.dispatcher.receipts[0].AccessInfo.FileURL)

			again, err := f.resolver.ResolvePayment(context.Background(), conf)
			require.NoError(t, err)
			assert.True(t, again.Duplicate)
			assert.Equal(t, models.AccessInfo{Reference: "short-ref"}, again.Receipt.AccessInfo)
		})
	}
}

func TestResolveShortChargeOnInactiveProductStaysWithheld(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, false)

	conf := payment("inactive-short", "p")
	conf.Amount = decimal.RequireFromString("1")
	res, err := f.resolver.ResolvePayment(context.Background(), conf)
	require.NoError(t, err)
	require.NotNil(t, res.Order.FollowUp)
	assert.Equal(t, models.FollowUpUnderpaid, *res.Order.FollowUp)
	assert.Nil(t, res.Order.AccessKey)
}

func TestResolveUnknownAmountUsesPrice(t *testing.T) {
	f := newResolverFixture(t, nil)
	seedProduct(t, f.store, "p", models.PhysicalDelivery{}, true)

	conf := payment("dev-ref", "p")
	conf.Amount = decimal.Zero
	res, err := f.resolver.ResolvePayment(context.Background(), conf)
	require.NoError(t, err)
	assert.Nil(t, res.Order.FollowUp)
	assert.True(t, res.Order.Amount.Equal(decimal.RequireFromString("2500")))
}

func TestResolveInsertFailureIsReportedDistinctly(t *testing.T) {
	s := store.NewMemoryStore()
	seedProduct(t, s, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, true)
	dispatcher := &recordingDispatcher{}
	events := &recordingEvents{}
	resolver := NewDeliveryResolver(brokenLedger{s}, s, s, NewRandomKeyGenerator(), dispatcher, events, "NGN", "")

	res, err := resolver.ResolvePayment(context.Background(), payment("lost-ref", "p"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeliveryUnrecorded)
	assert.Nil(t, res)
	assert.Equal(t, 0, dispatcher.count())
	require.Len(t, events.unrecorded, 1)
	assert.Equal(t, "lost-ref", events.unrecorded[0].Reference)
	assert.Equal(t, models.EventTypeDeliveryUnrecorded, events.unrecorded[0].EventType)
}

func TestResolveDispatchFailureKeepsOrder(t *testing.T) {
	f := newResolverFixture(t, nil)
	f.dispatcher.err = fmt.Errorf("broker down")
	seedProduct(t, f.store, "p", models.PhysicalDelivery{}, true)

	res, err := f.resolver.ResolvePayment(context.Background(), payment("ref", "p"))
	require.NoError(t, err)
	assert.NotNil(t, res.Order)
	assert.Equal(t, 1, f.store.CountOrders())
}

func TestResolveRejectsBlankReference(t *testing.T) {
	f := newResolverFixture(t, nil)
	_, err := f.resolver.ResolvePayment(context.Background(), payment("  ", "p"))
	assert.ErrorIs(t, err, ErrInvalidPayment)
	assert.Equal(t, 0, f.store.CountOrders())
}

func TestResolveWithProductArgument(t *testing.T) {
	f := newResolverFixture(t, nil)
	p := seedProduct(t, f.store, "p", models.ViewOnlyDelivery{FileURL: "https://files/f.pdf"}, true)

	res, err := f.resolver.Resolve(context.Background(), p, PaymentConfirmation{
		Reference:  "direct",
		BuyerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "p", res.Order.ProductID)
	assert.Equal(t, "seller-1", res.Order.SellerID)
	assert.True(t, res.Order.HasAccessKey())
}
