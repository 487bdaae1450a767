package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mtlprog/wallet/internal/domain"
)

type stubSource struct {
	assets []domain.Asset
	err    error
}

func (s *stubSource) FetchAssets(_ context.Context) ([]domain.Asset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.assets, nil
}

func testAssets() []domain.Asset {
	return []domain.Asset{
		{ID: "btc", Name: "Bitcoin", IsCrypto: true, PriceUSD: 43251.23},
		{ID: "ETH", Name: "Ethereum", IsCrypto: true, PriceUSD: 2310.45},
		{ID: "USD", Name: "US Dollar", IsCrypto: false, PriceUSD: 1.0},
		{ID: "BAD", Name: "Worthless", IsCrypto: true, PriceUSD: 0},
	}
}

func newTestCache(t *testing.T, source Source) *Cache {
	t.Helper()
	c, err := NewCache(context.Background(), source, time.Hour, 100)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewCacheRejectsNilSource(t *testing.T) {
	if _, err := NewCache(context.Background(), nil, time.Hour, 100); err == nil {
		t.Error("NewCache(nil source) error = nil, want error")
	}
}

func TestRefreshFiltersToTradableAssets(t *testing.T) {
	c := newTestCache(t, &stubSource{assets: testAssets()})

	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2 (fiat and zero-price filtered out)", got)
	}
	if c.ContainsAsset("USD") {
		t.Error("ContainsAsset(USD) = true, fiat should be filtered")
	}
	if c.ContainsAsset("BAD") {
		t.Error("ContainsAsset(BAD) = true, zero price should be filtered")
	}
}

func TestLookupsAreCaseInsensitiveAndAgree(t *testing.T) {
	c := newTestCache(t, &stubSource{assets: testAssets()})

	for _, id := range []string{"BTC", "btc", "Btc"} {
		asset, ok := c.AssetByID(id)
		if !ok {
			t.Fatalf("AssetByID(%q) not found", id)
		}
		if asset.ID != "BTC" {
			t.Errorf("AssetByID(%q).ID = %q, want BTC (normalized)", id, asset.ID)
		}

		price, ok := c.AssetPrice(id)
		if !ok || price != 43251.23 {
			t.Errorf("AssetPrice(%q) = %v, %v, want 43251.23, true", id, price, ok)
		}

		if !c.ContainsAsset(id) {
			t.Errorf("ContainsAsset(%q) = false, want true", id)
		}
	}

	if _, ok := c.AssetByID("XRP"); ok {
		t.Error("AssetByID(XRP) found, want not found")
	}
	if c.ContainsAsset("XRP") {
		t.Error("ContainsAsset(XRP) = true, want false")
	}
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	source := &stubSource{assets: testAssets()}
	c := newTestCache(t, source)

	source.err = errors.New("api down")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() error = nil, want error")
	}

	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d after failed refresh, want previous snapshot of 2", got)
	}
	if !c.ContainsAsset("BTC") {
		t.Error("ContainsAsset(BTC) = false after failed refresh")
	}
}

func TestSuccessfulEmptyRefreshClearsSnapshot(t *testing.T) {
	source := &stubSource{assets: testAssets()}
	c := newTestCache(t, source)

	// Only non-qualifying entries left: a successful fetch replaces the
	// snapshot wholesale even when nothing qualifies.
	source.assets = []domain.Asset{{ID: "USD", Name: "US Dollar", IsCrypto: false, PriceUSD: 1}}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := c.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0 after successful empty refresh", got)
	}
}

func TestRefreshTruncatesToMaxAssets(t *testing.T) {
	assets := make([]domain.Asset, 10)
	for i := range assets {
		assets[i] = domain.Asset{
			ID:       string(rune('A'+i)) + "COIN",
			Name:     "Coin",
			IsCrypto: true,
			PriceUSD: float64(i + 1),
		}
	}

	c, err := NewCache(context.Background(), &stubSource{assets: assets}, time.Hour, 3)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	t.Cleanup(c.Close)

	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3 (capped)", got)
	}

	values := c.CachedValues()
	if len(values) != 3 {
		t.Fatalf("len(CachedValues()) = %d, want 3", len(values))
	}
	// Source order preserved
	if values[0].ID != "ACOIN" || values[2].ID != "CCOIN" {
		t.Errorf("CachedValues() order = %v, want first three in source order", values)
	}
}

func TestCachedValuesReturnsACopy(t *testing.T) {
	c := newTestCache(t, &stubSource{assets: testAssets()})

	values := c.CachedValues()
	values[0] = domain.Asset{ID: "HACKED"}

	if c.ContainsAsset("HACKED") {
		t.Error("mutating the returned slice changed the cache")
	}
	if !c.ContainsAsset("BTC") {
		t.Error("ContainsAsset(BTC) = false after mutating a snapshot copy")
	}
}

func TestExpired(t *testing.T) {
	c := newTestCache(t, &stubSource{assets: testAssets()})

	if c.Expired() {
		t.Error("Expired() = true right after refresh, want false")
	}

	c.mu.Lock()
	c.lastRefreshed = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()

	if !c.Expired() {
		t.Error("Expired() = false for a stale snapshot, want true")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newTestCache(t, &stubSource{assets: testAssets()})
	c.Close()
	c.Close()
}

func TestPricesMatchesLookups(t *testing.T) {
	c := newTestCache(t, &stubSource{assets: testAssets()})

	prices := c.Prices()
	if len(prices) != 2 {
		t.Fatalf("len(Prices()) = %d, want 2", len(prices))
	}
	for id, price := range prices {
		got, ok := c.AssetPrice(id)
		if !ok || got != price {
			t.Errorf("AssetPrice(%q) = %v, %v, disagrees with Prices() %v", id, got, ok, price)
		}
	}
}
