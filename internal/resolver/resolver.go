// Package resolver reconciles token identities from the curated registry and
// the DEX pair aggregator into ranked admission candidates.
package resolver

import (
	"context"

	"github.com/shopspring/decimal"
)

// Candidate sources.
const (
	SourceRegistry = "registry"
	SourceDexPair  = "dex-pair"
)

// TokenCandidate is a provisional token identity produced by a search. It is
// never persisted; confidence is a ranking hint only.
type TokenCandidate struct {
	Source          string          `json:"source"`
	ExternalID      string          `json:"externalId"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	IsNative        bool            `json:"isNative"`
	ContractAddress string          `json:"contractAddress,omitempty"`
	Network         string          `json:"network,omitempty"`
	PoolAddress     string          `json:"poolAddress,omitempty"`
	Website         string          `json:"website,omitempty"`
	WhitepaperURL   string          `json:"whitepaperUrl,omitempty"`
	Twitter         string          `json:"twitter,omitempty"`
	Telegram        string          `json:"telegram,omitempty"`
	ImageURL        string          `json:"image,omitempty"`
	MarketCap       decimal.Decimal `json:"marketCap"`
	LiquidityUSD    decimal.Decimal `json:"liquidityUsd"`
	Confidence      int             `json:"confidence"`
}

// Resolver queries one external source for candidates matching a free-text
// query. "No match" is an empty slice, not an error.
type Resolver interface {
	Search(ctx context.Context, query string) ([]TokenCandidate, error)
}

// Scoring collects the confidence weights. Values are tuning parameters with
// no meaning beyond relative ordering.
type Scoring struct {
	Base                int
	ExactSymbolBonus    int
	NameMatchBonus      int
	TopRankBonus        int
	TopRankCutoff       int
	DexHigh             int
	DexLow              int
	HighLiquidityUSD    decimal.Decimal
	AutoSelectThreshold int
	MaxCandidates       int
}

// DefaultScoring mirrors the config defaults.
func DefaultScoring() Scoring {
	return Scoring{
		Base:                50,
		ExactSymbolBonus:    30,
		NameMatchBonus:      20,
		TopRankBonus:        10,
		TopRankCutoff:       100,
		DexHigh:             70,
		DexLow:              50,
		HighLiquidityUSD:    decimal.NewFromInt(100000),
		AutoSelectThreshold: 80,
		MaxCandidates:       5,
	}
}

// nativeLiquidity is the sentinel assigned where a liquidity check does not
// apply (native assets, caller-confirmed registry data).
var nativeLiquidity = decimal.NewFromInt(1000000)

// AlwaysSufficientLiquidity returns the sentinel liquidity value.
func AlwaysSufficientLiquidity() decimal.Decimal {
	return nativeLiquidity
}
