package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/wallet/internal/domain"
)

// Cache holds a periodically refreshed snapshot of tradable-asset prices.
// Reads never trigger a fetch; the cache owns a background goroutine that
// refreshes the snapshot at a fixed interval. A failed fetch keeps the
// previous snapshot intact, a successful fetch replaces it wholesale.
type Cache struct {
	source     Source
	interval   time.Duration
	maxAssets  int
	cancelOnce sync.Once
	cancel     context.CancelFunc
	done       chan struct{}

	mu            sync.RWMutex
	assets        map[string]domain.Asset
	ordered       []domain.Asset
	lastRefreshed time.Time
}

// NewCache creates a cache bound to the given price source, performs one
// synchronous refresh, and starts the background refresh loop. The initial
// refresh failing is not fatal: the cache starts empty and retries on the
// next tick.
func NewCache(ctx context.Context, source Source, interval time.Duration, maxAssets int) (*Cache, error) {
	if source == nil {
		return nil, errors.New("pricing: nil source")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("pricing: invalid refresh interval %v", interval)
	}
	if maxAssets <= 0 {
		return nil, fmt.Errorf("pricing: invalid max assets %d", maxAssets)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c := &Cache{
		source:    source,
		interval:  interval,
		maxAssets: maxAssets,
		cancel:    cancel,
		done:      make(chan struct{}),
		assets:    make(map[string]domain.Asset),
	}

	if err := c.Refresh(ctx); err != nil {
		slog.Error("AssetCache: initial refresh failed", "error", err)
	}

	go c.run(loopCtx)
	return c, nil
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("AssetCache: refresh loop stopped")
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				slog.Error("AssetCache: refresh failed", "error", err)
			} else {
				slog.Info("AssetCache: refresh completed", "assets", c.Len())
			}
		}
	}
}

// Refresh fetches the asset list, filters it to tradable entries, truncates it
// to the configured cap, and atomically swaps the snapshot. On fetch or parse
// failure the existing snapshot and lastRefreshed stay untouched.
func (c *Cache) Refresh(ctx context.Context) error {
	fetched, err := c.source.FetchAssets(ctx)
	if err != nil {
		return fmt.Errorf("fetching assets: %w", err)
	}

	qualifying := lo.Filter(fetched, func(a domain.Asset, _ int) bool {
		return a.Tradable()
	})
	qualifying = lo.Subset(qualifying, 0, uint(c.maxAssets))

	byID := make(map[string]domain.Asset, len(qualifying))
	ordered := make([]domain.Asset, 0, len(qualifying))
	for _, a := range qualifying {
		a.ID = domain.NormalizeAssetID(a.ID)
		byID[a.ID] = a
		ordered = append(ordered, a)
	}

	c.mu.Lock()
	c.assets = byID
	c.ordered = ordered
	c.lastRefreshed = time.Now()
	c.mu.Unlock()
	return nil
}

// CachedValues returns a snapshot of the cached assets in source order.
func (c *Cache) CachedValues() []domain.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Asset, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// AssetByID looks up an asset case-insensitively.
func (c *Cache) AssetByID(id string) (domain.Asset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.assets[domain.NormalizeAssetID(id)]
	return a, ok
}

// AssetPrice looks up an asset's USD price case-insensitively.
func (c *Cache) AssetPrice(id string) (float64, bool) {
	a, ok := c.AssetByID(id)
	if !ok {
		return 0, false
	}
	return a.PriceUSD, true
}

// ContainsAsset reports whether the asset is cached, case-insensitively.
func (c *Cache) ContainsAsset(id string) bool {
	_, ok := c.AssetByID(id)
	return ok
}

// Prices returns the current id -> price mapping.
func (c *Cache) Prices() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.assets))
	for id, a := range c.assets {
		out[id] = a.PriceUSD
	}
	return out
}

// Len returns the number of cached assets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.assets)
}

// Expired reports whether the snapshot is older than the refresh interval.
func (c *Cache) Expired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.lastRefreshed) >= c.interval
}

// Close stops the background refresh loop and waits for it to exit.
// It is safe to call more than once.
func (c *Cache) Close() {
	c.cancelOnce.Do(func() {
		c.cancel()
		<-c.done
	})
}
