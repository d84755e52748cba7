// internal/market/feed.go
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultDexScreenerURL = "https://api.dexscreener.com/latest/dex"
	DefaultCoinGeckoURL   = "https://api.coingecko.com/api/v3"

	DefaultSpotFallbackUSD = 160.36

	spotCacheKey = "spot:solana"
)

var (
	ErrPairNotFound     = errors.New("pair not found")
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// PairInfo is the price data of a trading pair. HasPrice is false when the
// feed returned the pair without a usable USD price.
type PairInfo struct {
	PriceUSD float64
	HasPrice bool
	IconURL  string
}

// Config configures a Feed. Zero values fall back to defaults.
type Config struct {
	DexScreenerURL  string
	CoinGeckoURL    string
	RequestTimeout  time.Duration
	SpotTimeout     time.Duration
	CacheTTL        time.Duration
	SpotFallbackUSD float64
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

// Feed reads pair prices from DexScreener and the SOL spot price from CoinGecko.
type Feed struct {
	dexURL   string
	geckoURL string

	requestTimeout time.Duration
	spotTimeout    time.Duration
	cacheTTL       time.Duration
	fallback       float64

	client *http.Client
	cache  *ristretto.Cache
	group  singleflight.Group
	logger *zap.Logger
}

type dexScreenerResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	PriceUSD  string `json:"priceUsd"`
	Icon      string `json:"icon"`
	Info struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

// NewFeed creates a feed with a TTL cache in front of both sources.
func NewFeed(cfg Config) (*Feed, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DexScreenerURL == "" {
		cfg.DexScreenerURL = DefaultDexScreenerURL
	}
	if cfg.CoinGeckoURL == "" {
		cfg.CoinGeckoURL = DefaultCoinGeckoURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.SpotTimeout <= 0 {
		cfg.SpotTimeout = 5 * time.Second
	}
	if cfg.SpotFallbackUSD <= 0 {
		cfg.SpotFallbackUSD = DefaultSpotFallbackUSD
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create price cache: %w", err)
	}

	return &Feed{
		dexURL:         strings.TrimRight(cfg.DexScreenerURL, "/"),
		geckoURL:       strings.TrimRight(cfg.CoinGeckoURL, "/"),
		requestTimeout: cfg.RequestTimeout,
		spotTimeout:    cfg.SpotTimeout,
		cacheTTL:       cfg.CacheTTL,
		fallback:       cfg.SpotFallbackUSD,
		client:         cfg.HTTPClient,
		cache:          cache,
		logger:         cfg.Logger.Named("market_feed"),
	}, nil
}

// PairInfo returns the first pair DexScreener reports for chainID/pairID.
// Concurrent lookups of the same pair share one request.
func (f *Feed) PairInfo(ctx context.Context, chainID, pairID string) (PairInfo, error) {
	key := "pair:" + chainID + "/" + pairID
	if cached, ok := f.cacheGet(key); ok {
		return cached.(PairInfo), nil
	}

	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		info, err := f.fetchPair(ctx, chainID, pairID)
		if err != nil {
			return PairInfo{}, err
		}
		f.cacheSet(key, info)
		return info, nil
	})
	if err != nil {
		f.logger.Warn("Pair lookup failed",
			zap.String("chain_id", chainID),
			zap.String("pair", pairID),
			zap.Error(err))
		return PairInfo{}, err
	}
	return v.(PairInfo), nil
}

// SpotPriceUSD returns the SOL price in USD, or the fallback on any failure.
func (f *Feed) SpotPriceUSD(ctx context.Context) float64 {
	if cached, ok := f.cacheGet(spotCacheKey); ok {
		return cached.(float64)
	}

	v, err, _ := f.group.Do(spotCacheKey, func() (interface{}, error) {
		price, err := f.fetchSpot(ctx)
		if err != nil {
			return 0.0, err
		}
		f.cacheSet(spotCacheKey, price)
		return price, nil
	})
	if err != nil {
		f.logger.Warn("Spot price unavailable, using fallback",
			zap.Float64("fallback_usd", f.fallback),
			zap.Error(err))
		return f.fallback
	}
	return v.(float64)
}

// Close releases the cache.
func (f *Feed) Close() error {
	f.cache.Close()
	return nil
}

func (f *Feed) fetchPair(ctx context.Context, chainID, pairID string) (PairInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, f.requestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/pairs/%s/%s", f.dexURL, url.PathEscape(chainID), url.PathEscape(pairID))
	var response dexScreenerResponse
	if err := f.getJSON(ctx, endpoint, &response); err != nil {
		return PairInfo{}, fmt.Errorf("failed to get pair %s: %w", pairID, err)
	}
	if len(response.Pairs) == 0 {
		return PairInfo{}, fmt.Errorf("%w: %s", ErrPairNotFound, pairID)
	}

	pair := response.Pairs[0]
	info := PairInfo{
		IconURL: pair.Icon,
	}
	if info.IconURL == "" {
		info.IconURL = pair.Info.ImageURL
	}
	if pair.PriceUSD != "" {
		if price, err := strconv.ParseFloat(pair.PriceUSD, 64); err == nil {
			info.PriceUSD = price
			info.HasPrice = true
		} else {
			f.logger.Debug("Unparsable pair price",
				zap.String("pair", pairID),
				zap.String("price_usd", pair.PriceUSD))
		}
	}
	return info, nil
}

func (f *Feed) fetchSpot(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.spotTimeout)
	defer cancel()

	var response map[string]map[string]float64
	endpoint := f.geckoURL + "/simple/price?ids=solana&vs_currencies=usd"
	if err := f.getJSON(ctx, endpoint, &response); err != nil {
		return 0, fmt.Errorf("failed to get spot price: %w", err)
	}
	price, ok := response["solana"]["usd"]
	if !ok {
		return 0, errors.New("spot price missing from response")
	}
	return price, nil
}

func (f *Feed) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (f *Feed) cacheGet(key string) (interface{}, bool) {
	if f.cacheTTL <= 0 {
		return nil, false
	}
	return f.cache.Get(key)
}

func (f *Feed) cacheSet(key string, value interface{}) {
	if f.cacheTTL <= 0 {
		return
	}
	f.cache.SetWithTTL(key, value, 1, f.cacheTTL)
	f.cache.Wait()
}
