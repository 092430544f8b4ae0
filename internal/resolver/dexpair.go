package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-admission/internal/chains"
)

// DexPairOptions parameterise the DEX pair resolver.
type DexPairOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Scoring   Scoring
}

// DexPairs resolves unverified on-chain tokens through the DEX aggregator.
// Liquidity is the primary trust signal here, so confidence is a coarse
// binary tier rather than a graded score.
type DexPairs struct {
	opts   DexPairOptions
	client *resty.Client
	logger zerolog.Logger
}

// NewDexPairs constructs a DEX pair resolver.
func NewDexPairs(opts DexPairOptions, logger zerolog.Logger) *DexPairs {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		client.SetHeader("User-Agent", ua)
	}

	return &DexPairs{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "dexpair_resolver").Logger(),
	}
}

// PairInfo is the identity extracted from the most liquid trading pair
// referencing a token contract.
type PairInfo struct {
	PoolAddress  string
	Symbol       string
	Name         string
	Website      string
	Twitter      string
	Telegram     string
	LiquidityUSD decimal.Decimal
	MarketCap    decimal.Decimal
	PriceUSD     decimal.Decimal
	Network      string
}

type tokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	ChainID     string        `json:"chainId"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   dexToken      `json:"baseToken"`
	QuoteToken  dexToken      `json:"quoteToken"`
	PriceUSD    string        `json:"priceUsd"`
	Liquidity   *dexLiquidity `json:"liquidity"`
	FDV         decimal.Decimal `json:"fdv"`
	MarketCap   decimal.Decimal `json:"marketCap"`
	Info        *dexInfo      `json:"info"`
}

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type dexLiquidity struct {
	USD decimal.Decimal `json:"usd"`
}

type dexInfo struct {
	Websites []dexWebsite `json:"websites"`
	Socials  []dexSocial  `json:"socials"`
}

type dexWebsite struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type dexSocial struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Search resolves a contract-address query into at most one candidate: the
// token's most liquid pair across all chains. Free-text queries are skipped;
// the DEX aggregator has no usable name search.
func (d *DexPairs) Search(ctx context.Context, query string) ([]TokenCandidate, error) {
	query = strings.TrimSpace(query)
	if !chains.LooksLikeAddress(query) {
		return nil, nil
	}

	pairs, err := d.tokenPairs(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	best := bestByLiquidity(pairs)
	info := d.pairInfo(best, query)

	candidate := TokenCandidate{
		Source:          SourceDexPair,
		ExternalID:      query,
		Symbol:          info.Symbol,
		Name:            info.Name,
		ContractAddress: query,
		Network:         info.Network,
		PoolAddress:     info.PoolAddress,
		Website:         info.Website,
		Twitter:         info.Twitter,
		Telegram:        info.Telegram,
		MarketCap:       info.MarketCap,
		LiquidityUSD:    info.LiquidityUSD,
		Confidence:      d.score(info.LiquidityUSD),
	}
	return []TokenCandidate{candidate}, nil
}

// ResolvePair finds the most liquid pair for the token on the requested
// network. Returns (nil, nil) when no pair exists there. Liquidity ties keep
// whichever pair the upstream listed first; the upstream documents no
// tie-break of its own.
func (d *DexPairs) ResolvePair(ctx context.Context, address, network string) (*PairInfo, error) {
	pairs, err := d.tokenPairs(ctx, address)
	if err != nil {
		return nil, err
	}

	canonical := chains.Normalize(network)
	onNetwork := pairs[:0:0]
	for _, pair := range pairs {
		if chains.Normalize(pair.ChainID) == canonical {
			onNetwork = append(onNetwork, pair)
		}
	}
	if len(onNetwork) == 0 {
		return nil, nil
	}

	best := bestByLiquidity(onNetwork)
	info := d.pairInfo(best, address)
	return &info, nil
}

func (d *DexPairs) tokenPairs(ctx context.Context, address string) ([]dexPair, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("address", address).
		Get("/latest/dex/tokens/{address}")
	if err != nil {
		return nil, fmt.Errorf("dex pairs request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("dex pairs: unexpected status %d", resp.StatusCode())
	}

	var payload tokensResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode dex pairs: %w", err)
	}
	return payload.Pairs, nil
}

func (d *DexPairs) pairInfo(pair dexPair, address string) PairInfo {
	// The queried token may sit on either side of the pair.
	side := pair.BaseToken
	if !strings.EqualFold(side.Address, address) && strings.EqualFold(pair.QuoteToken.Address, address) {
		side = pair.QuoteToken
	}

	info := PairInfo{
		PoolAddress: pair.PairAddress,
		Symbol:      side.Symbol,
		Name:        side.Name,
		Network:     chains.Normalize(pair.ChainID),
		MarketCap:   pair.MarketCap,
	}
	if info.MarketCap.IsZero() {
		info.MarketCap = pair.FDV
	}
	if pair.Liquidity != nil {
		info.LiquidityUSD = pair.Liquidity.USD
	}
	if price, err := decimal.NewFromString(pair.PriceUSD); err == nil {
		info.PriceUSD = price
	}

	if pair.Info != nil {
		if len(pair.Info.Websites) > 0 {
			info.Website = pair.Info.Websites[0].URL
		}
		for _, social := range pair.Info.Socials {
			switch strings.ToLower(social.Type) {
			case "website":
				if info.Website == "" {
					info.Website = social.URL
				}
			case "twitter":
				if info.Twitter == "" {
					info.Twitter = social.URL
				}
			case "telegram":
				if info.Telegram == "" {
					info.Telegram = social.URL
				}
			}
		}
	}
	return info
}

func (d *DexPairs) score(liquidity decimal.Decimal) int {
	s := d.opts.Scoring
	if liquidity.GreaterThan(s.HighLiquidityUSD) {
		return s.DexHigh
	}
	return s.DexLow
}

func bestByLiquidity(pairs []dexPair) dexPair {
	best := pairs[0]
	for _, pair := range pairs[1:] {
		if pairLiquidity(pair).GreaterThan(pairLiquidity(best)) {
			best = pair
		}
	}
	return best
}

func pairLiquidity(pair dexPair) decimal.Decimal {
	if pair.Liquidity == nil {
		return decimal.Zero
	}
	return pair.Liquidity.USD
}

var _ Resolver = (*DexPairs)(nil)
