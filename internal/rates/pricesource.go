package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CryptoPriceSource resolves the USD price of a supported asset.
type CryptoPriceSource interface {
	USDPrice(ctx context.Context, currency string) (float64, error)
}

// FxRateSource resolves the USD/NGN macro exchange rate.
type FxRateSource interface {
	UsdToNgn(ctx context.Context) (float64, error)
}

const priceRequestTimeout = 5 * time.Second

// coinIDs maps our asset codes to the price API's coin identifiers.
var coinIDs = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"usdt": "tether",
	"usdc": "usd-coin",
}

// CoinPriceClient fetches crypto/USD spot prices from a CoinGecko-compatible
// endpoint.
type CoinPriceClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCoinPriceClient(baseURL string) *CoinPriceClient {
	return &CoinPriceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: priceRequestTimeout},
	}
}

func (c *CoinPriceClient) USDPrice(ctx context.Context, currency string) (float64, error) {
	coinID, ok := coinIDs[currency]
	if !ok {
		return 0, fmt.Errorf("no price feed for currency %q", currency)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(coinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price feed request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned status %d", res.StatusCode)
	}

	var body map[string]struct {
		Usd float64 `json:"usd"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, err
	}

	price, ok := body[coinID]
	if !ok || price.Usd <= 0 {
		return 0, fmt.Errorf("price feed returned no usable price for %s", currency)
	}

	return price.Usd, nil
}

// FxRateClient fetches the USD/NGN reference rate from an exchange-rate API
// with a {"rates": {"NGN": ...}} response shape.
type FxRateClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewFxRateClient(baseURL string) *FxRateClient {
	return &FxRateClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: priceRequestTimeout},
	}
}

func (c *FxRateClient) UsdToNgn(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest/USD", nil)
	if err != nil {
		return 0, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fx rate request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fx rate API returned status %d", res.StatusCode)
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, err
	}

	rate, ok := body.Rates["NGN"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("fx rate API returned no NGN rate")
	}

	return rate, nil
}

// PriceCache is the slice of the cache the cached source needs.
type PriceCache interface {
	Get(key string) (string, error)
	Set(key string, value string, expiration time.Duration) error
}

// CachedPriceSource wraps a CryptoPriceSource with a short-lived cache so a
// burst of quote requests does not hammer the upstream feed. Cache failures
// fall through to the source.
type CachedPriceSource struct {
	source CryptoPriceSource
	cache  PriceCache
	ttl    time.Duration
}

func NewCachedPriceSource(source CryptoPriceSource, cache PriceCache, ttl time.Duration) *CachedPriceSource {
	return &CachedPriceSource{
		source: source,
		cache:  cache,
		ttl:    ttl,
	}
}

func (c *CachedPriceSource) USDPrice(ctx context.Context, currency string) (float64, error) {
	key := "price:usd:" + currency

	if cached, err := c.cache.Get(key); err == nil {
		if price, err := strconv.ParseFloat(cached, 64); err == nil && price > 0 {
			return price, nil
		}
	}

	price, err := c.source.USDPrice(ctx, currency)
	if err != nil {
		return 0, err
	}

	_ = c.cache.Set(key, strconv.FormatFloat(price, 'f', -1, 64), c.ttl)

	return price, nil
}
