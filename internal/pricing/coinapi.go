package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/wallet/internal/domain"
)

const apiKeyHeader = "X-CoinAPI-Key"

// Source fetches the full list of tradable assets from an external feed.
type Source interface {
	FetchAssets(ctx context.Context) ([]domain.Asset, error)
}

// coinAPIAsset mirrors the CoinAPI /v1/assets response schema.
type coinAPIAsset struct {
	AssetID  string  `json:"asset_id"`
	Name     string  `json:"name"`
	IsCrypto int     `json:"type_is_crypto"`
	PriceUSD float64 `json:"price_usd"`
}

// CoinAPIClient fetches asset prices from the CoinAPI REST API with retry on 429.
type CoinAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewCoinAPIClient creates a new CoinAPI client.
func NewCoinAPIClient(baseURL, apiKey string, maxRetries int, baseDelay time.Duration) *CoinAPIClient {
	return &CoinAPIClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// FetchAssets retrieves all assets from CoinAPI.
func (c *CoinAPIClient) FetchAssets(ctx context.Context) ([]domain.Asset, error) {
	body, err := c.fetchWithRetry(ctx, c.baseURL+"/v1/assets")
	if err != nil {
		return nil, err
	}

	var raw []coinAPIAsset
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinAPI response: %w", err)
	}

	return lo.Map(raw, func(a coinAPIAsset, _ int) domain.Asset {
		return domain.Asset{
			ID:       a.AssetID,
			Name:     a.Name,
			IsCrypto: a.IsCrypto == 1,
			PriceUSD: a.PriceUSD,
		}
	}), nil
}

func (c *CoinAPIClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries+1; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinAPI request: %w", err)
		}
		req.Header.Set(apiKeyHeader, c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinAPI request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinAPI response: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("CoinAPI rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("CoinAPI unauthorized: API key is invalid")
		case http.StatusForbidden:
			return nil, fmt.Errorf("CoinAPI forbidden: API key lacks privileges")
		case http.StatusBadRequest:
			return nil, fmt.Errorf("CoinAPI bad request: missing or invalid parameters")
		case 550:
			return nil, fmt.Errorf("CoinAPI no data: requested resource has no data")
		default:
			return nil, fmt.Errorf("CoinAPI HTTP %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, lastErr
}
