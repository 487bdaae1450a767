package domain

import (
	"fmt"
	"strings"
)

// Asset is an immutable snapshot of a tradable instrument. Snapshots are
// replaced wholesale on each cache refresh, never mutated in place.
type Asset struct {
	ID       string  `json:"asset_id"`
	Name     string  `json:"name"`
	IsCrypto bool    `json:"is_crypto"`
	PriceUSD float64 `json:"price_usd"`
}

// NormalizeAssetID returns the canonical uppercase form of an asset id.
// Ids are normalized both on cache write and on lookup.
func NormalizeAssetID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Tradable reports whether the asset qualifies for the cache: a crypto asset
// with a positive USD price and non-blank id and name.
func (a Asset) Tradable() bool {
	return a.IsCrypto &&
		a.PriceUSD > 0 &&
		strings.TrimSpace(a.ID) != "" &&
		strings.TrimSpace(a.Name) != ""
}

// String renders the asset for the list-offerings response.
func (a Asset) String() string {
	return fmt.Sprintf("%s (%s): $%s", a.ID, a.Name, FormatUSD(a.PriceUSD))
}
