package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-admission/internal/chains"
)

const apiKeyHeader = "x-cg-demo-api-key"

// RegistryOptions parameterise the registry resolver.
type RegistryOptions struct {
	BaseURL       string
	APIKey        string
	UserAgent     string
	Timeout       time.Duration
	DetailFetches int
	Scoring       Scoring
}

// Registry resolves candidates against the curated token registry. The API
// key is optional; absence degrades to the unauthenticated rate tier.
type Registry struct {
	opts   RegistryOptions
	client *resty.Client
	logger zerolog.Logger
}

// NewRegistry constructs a registry resolver.
func NewRegistry(opts RegistryOptions, logger zerolog.Logger) *Registry {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	if opts.DetailFetches <= 0 {
		opts.DetailFetches = 3
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		client.SetHeader("User-Agent", ua)
	}
	if opts.APIKey != "" {
		client.SetHeader(apiKeyHeader, opts.APIKey)
	}

	return &Registry{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "registry_resolver").Logger(),
	}
}

// Coin is the registry's authoritative record for one listed asset.
type Coin struct {
	ID              string
	Symbol          string
	Name            string
	Native          bool
	ContractAddress string
	Network         string
	Website         string
	WhitepaperURL   string
	ImageURL        string
	MarketCap       decimal.Decimal
	Rank            int
}

type searchResponse struct {
	Coins []searchHit `json:"coins"`
}

type searchHit struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
	Large         string `json:"large"`
}

type coinResponse struct {
	ID              string            `json:"id"`
	Symbol          string            `json:"symbol"`
	Name            string            `json:"name"`
	AssetPlatformID string            `json:"asset_platform_id"`
	Platforms       map[string]string `json:"platforms"`
	MarketCapRank   int               `json:"market_cap_rank"`
	Links           struct {
		Homepage   []string `json:"homepage"`
		Whitepaper string   `json:"whitepaper"`
	} `json:"links"`
	Image struct {
		Large string `json:"large"`
	} `json:"image"`
	MarketData struct {
		MarketCap map[string]decimal.Decimal `json:"market_cap"`
	} `json:"market_data"`
}

// Search queries the registry by free text and resolves the top hits into
// candidates. Queries shaped like contract addresses are skipped; the DEX
// resolver owns those.
func (r *Registry) Search(ctx context.Context, query string) ([]TokenCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" || chains.LooksLikeAddress(query) {
		return nil, nil
	}

	hits, err := r.searchHits(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(hits) > r.opts.DetailFetches {
		hits = hits[:r.opts.DetailFetches]
	}

	// Detail fetches run concurrently; a failed fetch drops that hit only.
	candidates := make([]*TokenCandidate, len(hits))
	var wg sync.WaitGroup
	for i, hit := range hits {
		wg.Add(1)
		go func(i int, hit searchHit) {
			defer wg.Done()
			coin, err := r.Coin(ctx, hit.ID)
			if err != nil {
				r.logger.Warn().Err(err).Str("id", hit.ID).Msg("registry detail fetch failed")
				return
			}
			if coin == nil {
				return
			}
			c := r.toCandidate(coin, hit, query)
			candidates[i] = &c
		}(i, hit)
	}
	wg.Wait()

	out := make([]TokenCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// Coin fetches full details for a registry slug. A missing slug yields
// (nil, nil) so callers can distinguish "not listed" from transport failure.
func (r *Registry) Coin(ctx context.Context, id string) (*Coin, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParams(map[string]string{
			"localization":   "false",
			"tickers":        "false",
			"market_data":    "true",
			"community_data": "false",
			"developer_data": "false",
		}).
		Get("/coins/{id}")
	if err != nil {
		return nil, fmt.Errorf("registry coin request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("registry coin %q: unexpected status %d", id, resp.StatusCode())
	}

	var payload coinResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode registry coin: %w", err)
	}

	coin := &Coin{
		ID:            payload.ID,
		Symbol:        strings.ToUpper(payload.Symbol),
		Name:          payload.Name,
		WhitepaperURL: payload.Links.Whitepaper,
		ImageURL:      payload.Image.Large,
		MarketCap:     payload.MarketData.MarketCap["usd"],
		Rank:          payload.MarketCapRank,
	}
	if coin.Symbol == "" {
		coin.Symbol = strings.ToUpper(id)
	}
	if coin.Name == "" {
		coin.Name = id
	}
	for _, homepage := range payload.Links.Homepage {
		if strings.TrimSpace(homepage) != "" {
			coin.Website = homepage
			break
		}
	}

	network, address := primaryPlatform(payload.Platforms)
	if payload.AssetPlatformID == "" && address == "" {
		coin.Native = true
	} else {
		coin.ContractAddress = address
		coin.Network = network
	}
	return coin, nil
}

func (r *Registry) searchHits(ctx context.Context, query string) ([]searchHit, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("registry search request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("registry search: unexpected status %d", resp.StatusCode())
	}

	var payload searchResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode registry search: %w", err)
	}
	return payload.Coins, nil
}

func (r *Registry) toCandidate(coin *Coin, hit searchHit, query string) TokenCandidate {
	candidate := TokenCandidate{
		Source:          SourceRegistry,
		ExternalID:      coin.ID,
		Symbol:          coin.Symbol,
		Name:            coin.Name,
		IsNative:        coin.Native,
		ContractAddress: coin.ContractAddress,
		Network:         coin.Network,
		Website:         coin.Website,
		WhitepaperURL:   coin.WhitepaperURL,
		ImageURL:        coin.ImageURL,
		MarketCap:       coin.MarketCap,
		Confidence:      r.score(hit, query),
	}
	if candidate.IsNative {
		candidate.LiquidityUSD = AlwaysSufficientLiquidity()
	}
	return candidate
}

// score is heuristic and monotonic: better matches score higher, nothing more
// is promised.
func (r *Registry) score(hit searchHit, query string) int {
	s := r.opts.Scoring
	confidence := s.Base
	if strings.EqualFold(hit.Symbol, query) {
		confidence += s.ExactSymbolBonus
	}
	if strings.Contains(strings.ToLower(hit.Name), strings.ToLower(query)) {
		confidence += s.NameMatchBonus
	}
	if hit.MarketCapRank > 0 && hit.MarketCapRank <= s.TopRankCutoff {
		confidence += s.TopRankBonus
	}
	return confidence
}

// preferredPlatforms orders registry platform keys so the resolved contract
// is deterministic when an asset is deployed on several chains.
var preferredPlatforms = []string{
	"ethereum",
	"binance-smart-chain",
	"base",
	"polygon-pos",
	"arbitrum-one",
	"optimistic-ethereum",
	"avalanche",
	"solana",
	"sui",
}

var platformNetworks = map[string]string{
	"ethereum":            "ethereum",
	"binance-smart-chain": "bsc",
	"base":                "base",
	"polygon-pos":         "polygon",
	"arbitrum-one":        "arbitrum",
	"optimistic-ethereum": "optimism",
	"avalanche":           "avalanche",
	"fantom":              "fantom",
	"solana":              "solana",
	"sui":                 "sui",
	"pulsechain":          "pulsechain",
	"zksync":              "zksync",
	"linea":               "linea",
	"scroll":              "scroll",
}

func primaryPlatform(platforms map[string]string) (network, address string) {
	for _, key := range preferredPlatforms {
		if addr := strings.TrimSpace(platforms[key]); addr != "" {
			return platformNetwork(key), addr
		}
	}

	keys := make([]string, 0, len(platforms))
	for key := range platforms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if addr := strings.TrimSpace(platforms[key]); addr != "" && key != "" {
			return platformNetwork(key), addr
		}
	}
	return "", ""
}

func platformNetwork(platform string) string {
	if network, ok := platformNetworks[platform]; ok {
		return network
	}
	return chains.Normalize(platform)
}

var _ Resolver = (*Registry)(nil)
