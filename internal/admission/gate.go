package admission

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-admission/internal/chains"
	"token-admission/internal/ingestion"
	"token-admission/internal/resolver"
	"token-admission/internal/storage"
)

// ManualWhitepaperSentinel marks whitepaper content supplied directly by the
// caller without a source URL.
const ManualWhitepaperSentinel = "MANUALLY_PROVIDED"

// Audit outcomes.
const (
	OutcomeAdmitted = "admitted"
	OutcomeRejected = "rejected"
)

// RegistryClient is the authoritative detail lookup against the token
// registry, used for native re-resolution and market-cap probes.
type RegistryClient interface {
	Coin(ctx context.Context, id string) (*resolver.Coin, error)
}

// PairResolver looks up the canonical DEX pair for a contract on a network.
type PairResolver interface {
	ResolvePair(ctx context.Context, address, network string) (*resolver.PairInfo, error)
}

// SubmitRequest mirrors the admission endpoint body. Symbol, name and
// website are present when the caller confirmed a registry candidate in the
// search step.
type SubmitRequest struct {
	ContractAddress   string `json:"contractAddress"`
	Network           string `json:"network"`
	WebsiteURL        string `json:"websiteUrl,omitempty"`
	WhitepaperURL     string `json:"whitepaperUrl,omitempty"`
	WhitepaperContent string `json:"whitepaperContent,omitempty"`
	Symbol            string `json:"symbol,omitempty"`
	Name              string `json:"name,omitempty"`
}

// Result is returned to the caller after a successful admission. The
// downstream analysis keeps running after this returns.
type Result struct {
	ProjectID    string
	Symbol       string
	HasWebsite   bool
	LiquidityUSD decimal.Decimal
	PriceUSD     decimal.Decimal
	MarketCap    decimal.Decimal
}

// GateOptions hold admission thresholds.
type GateOptions struct {
	MinLiquidityUSD    decimal.Decimal
	WhitepaperMaxChars int
}

// Gate runs the admission checks and, on success, hands off to the
// ingestion dispatcher. Every check short-circuits on failure.
type Gate struct {
	opts       GateOptions
	validator  *chains.Validator
	projects   storage.ProjectStore
	registry   RegistryClient
	dex        PairResolver
	dispatcher ingestion.Dispatcher
	audit      storage.AdmissionLogStore
	logger     zerolog.Logger
}

// NewGate constructs the admission gate. The audit store is optional.
func NewGate(
	opts GateOptions,
	validator *chains.Validator,
	projects storage.ProjectStore,
	registry RegistryClient,
	dex PairResolver,
	dispatcher ingestion.Dispatcher,
	audit storage.AdmissionLogStore,
	logger zerolog.Logger,
) *Gate {
	if opts.WhitepaperMaxChars <= 0 {
		opts.WhitepaperMaxChars = 240000
	}
	return &Gate{
		opts:       opts,
		validator:  validator,
		projects:   projects,
		registry:   registry,
		dex:        dex,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger.With().Str("component", "admission_gate").Logger(),
	}
}

// resolved is the token identity the gate settles on before dispatch.
type resolved struct {
	symbol      string
	name        string
	website     string
	poolAddress string
	liquidity   decimal.Decimal
	marketCap   decimal.Decimal
	native      bool
}

// Admit validates, resolves and dispatches one candidate submission.
func (g *Gate) Admit(ctx context.Context, req SubmitRequest) (*Result, error) {
	if strings.TrimSpace(req.ContractAddress) == "" || strings.TrimSpace(req.Network) == "" {
		return nil, newError(KindValidation, "Contract address and network are required.")
	}

	network := chains.Normalize(req.Network)
	native := chains.IsNative(req.ContractAddress)

	if !native && !g.validator.IsValidAddress(req.ContractAddress, network) {
		return nil, newError(KindValidation, "Invalid contract address format for the selected network.")
	}

	address := g.validator.NormalizeAddress(req.ContractAddress, network)

	// Fail-fast duplicate check. The store's unique constraint remains the
	// authority under concurrent submissions.
	existing, err := g.projects.FindProject(ctx, address, network)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		admErr := newError(KindConflict, "Token already exists in our database.")
		admErr.Symbol = existing.Symbol
		admErr.TokenID = &existing.ID
		g.record(ctx, existing.Symbol, address, network, OutcomeRejected, string(KindConflict), decimal.Zero, &existing.ID)
		return nil, admErr
	}

	res, err := g.resolve(ctx, req, address, network, native)
	if err != nil {
		g.recordFailure(ctx, req, address, network, err)
		return nil, err
	}

	g.mergeOverrides(req, res)

	if res.website == "" {
		admErr := newError(KindNeedsWebsite, "This token does not have a website listed on any source.")
		admErr.NeedsWebsite = true
		admErr.Symbol = res.symbol
		liquidity := res.liquidity
		admErr.Liquidity = &liquidity
		g.recordFailure(ctx, req, address, network, admErr)
		return nil, admErr
	}

	ingestReq := ingestion.Request{
		ContractAddress:   address,
		Network:           network,
		Symbol:            res.symbol,
		Name:              res.name,
		PoolAddress:       res.poolAddress,
		WebsiteURL:        res.website,
		WhitepaperURL:     g.whitepaperURL(req),
		WhitepaperContent: g.whitepaperContent(req),
		MarketCap:         res.marketCap,
		TriggerAnalysis:   res.website != "",
	}
	if res.native {
		// Native assets are tracked under the catch-all network.
		ingestReq.Network = "other"
	}

	dispatched, err := g.dispatcher.Dispatch(ctx, ingestReq)
	if err != nil {
		admErr := newError(KindUpstream, fmt.Sprintf("Ingestion failed: %v", err))
		g.recordFailure(ctx, req, address, network, admErr)
		return nil, admErr
	}

	g.record(ctx, res.symbol, address, network, OutcomeAdmitted, "", res.liquidity, nil)
	g.logger.Info().
		Str("symbol", res.symbol).
		Str("network", network).
		Str("project_id", dispatched.ProjectID).
		Msg("token admitted")

	return &Result{
		ProjectID:    dispatched.ProjectID,
		Symbol:       res.symbol,
		HasWebsite:   true,
		LiquidityUSD: res.liquidity,
		PriceUSD:     dispatched.PriceUSD,
		MarketCap:    dispatched.MarketCap,
	}, nil
}

func (g *Gate) resolve(ctx context.Context, req SubmitRequest, address, network string, native bool) (*resolved, error) {
	if native {
		return g.resolveNative(ctx, req)
	}
	if req.Symbol != "" && req.Name != "" && req.WebsiteURL != "" {
		return g.resolveConfirmed(ctx, req), nil
	}
	return g.resolveRaw(ctx, address, network)
}

// resolveNative re-fetches full details from the registry; the earlier
// search result is not trusted as final.
func (g *Gate) resolveNative(ctx context.Context, req SubmitRequest) (*resolved, error) {
	id := chains.NativeID(req.ContractAddress)

	coin, err := g.registry.Coin(ctx, id)
	if err != nil {
		g.logger.Warn().Err(err).Str("id", id).Msg("registry fetch failed for native token")
		coin = nil
	}
	if coin == nil {
		return nil, newError(KindNotFound, fmt.Sprintf("Token %q not found in the registry. Please verify the registry ID.", id))
	}

	res := &resolved{
		symbol:    coin.Symbol,
		name:      coin.Name,
		website:   coin.Website,
		liquidity: resolver.AlwaysSufficientLiquidity(),
		marketCap: coin.MarketCap,
		native:    true,
	}

	if res.website == "" && req.WebsiteURL == "" {
		admErr := newError(KindNeedsWebsite, "Website URL is required for layer-1 tokens.")
		admErr.NeedsWebsite = true
		admErr.Symbol = res.symbol
		return nil, admErr
	}
	return res, nil
}

// resolveConfirmed trusts the registry data the caller confirmed during the
// search step and skips the slower DEX lookup entirely.
func (g *Gate) resolveConfirmed(ctx context.Context, req SubmitRequest) *resolved {
	res := &resolved{
		symbol:    req.Symbol,
		name:      req.Name,
		website:   req.WebsiteURL,
		liquidity: resolver.AlwaysSufficientLiquidity(),
	}
	res.marketCap = g.probeMarketCap(ctx, req.Symbol)
	return res
}

func (g *Gate) resolveRaw(ctx context.Context, address, network string) (*resolved, error) {
	pair, err := g.dex.ResolvePair(ctx, address, network)
	if err != nil {
		g.logger.Warn().Err(err).Str("address", address).Str("network", network).Msg("dex pair lookup failed")
		pair = nil
	}
	if pair == nil {
		return nil, newError(KindNotFound, "Token not found on any DEX for the selected network. Please ensure the token is listed.")
	}

	if pair.LiquidityUSD.LessThan(g.opts.MinLiquidityUSD) {
		admErr := newError(KindInsufficientLiquidity,
			fmt.Sprintf("Token liquidity too low. Minimum $%s liquidity required.", g.opts.MinLiquidityUSD.String()))
		admErr.Symbol = pair.Symbol
		liquidity := pair.LiquidityUSD
		admErr.Liquidity = &liquidity
		return nil, admErr
	}

	res := &resolved{
		symbol:      pair.Symbol,
		name:        pair.Name,
		website:     pair.Website,
		poolAddress: pair.PoolAddress,
		liquidity:   pair.LiquidityUSD,
		marketCap:   pair.MarketCap,
	}
	if res.marketCap.IsZero() && res.symbol != "" {
		res.marketCap = g.probeMarketCap(ctx, res.symbol)
	}
	return res, nil
}

// probeMarketCap is optional enrichment, never blocking: any failure is
// logged and discarded, the field just stays absent.
func (g *Gate) probeMarketCap(ctx context.Context, symbol string) decimal.Decimal {
	coin, err := g.registry.Coin(ctx, strings.ToLower(symbol))
	if err != nil || coin == nil {
		g.logger.Debug().Str("symbol", symbol).Msg("market cap probe found nothing")
		return decimal.Zero
	}
	return coin.MarketCap
}

func (g *Gate) mergeOverrides(req SubmitRequest, res *resolved) {
	if req.WebsiteURL != "" {
		res.website = ensureScheme(req.WebsiteURL)
	}
}

func (g *Gate) whitepaperURL(req SubmitRequest) string {
	url := strings.TrimSpace(req.WhitepaperURL)
	if url != "" {
		return ensureScheme(url)
	}
	if strings.TrimSpace(req.WhitepaperContent) != "" {
		return ManualWhitepaperSentinel
	}
	return ""
}

func (g *Gate) whitepaperContent(req SubmitRequest) string {
	content := strings.TrimSpace(req.WhitepaperContent)
	return truncateChars(content, g.opts.WhitepaperMaxChars)
}

func (g *Gate) recordFailure(ctx context.Context, req SubmitRequest, address, network string, err error) {
	outcome := OutcomeRejected
	detail := err.Error()
	symbol := req.Symbol
	liquidity := decimal.Zero
	if admErr, ok := err.(*Error); ok {
		detail = string(admErr.Kind)
		if admErr.Symbol != "" {
			symbol = admErr.Symbol
		}
		if admErr.Liquidity != nil {
			liquidity = *admErr.Liquidity
		}
	}
	g.record(ctx, symbol, address, network, outcome, detail, liquidity, nil)
}

// record writes the audit log entry, best-effort.
func (g *Gate) record(ctx context.Context, symbol, address, network, outcome, detail string, liquidity decimal.Decimal, projectID *int64) {
	if g.audit == nil {
		return
	}
	rec := storage.AdmissionRecord{
		Symbol:          symbol,
		ContractAddress: address,
		Network:         network,
		Outcome:         outcome,
		LiquidityUSD:    liquidity,
		ProjectID:       projectID,
	}
	if detail != "" {
		rec.Detail = &detail
	}
	if _, err := g.audit.InsertAdmission(ctx, rec); err != nil {
		g.logger.Warn().Err(err).Msg("failed to write admission audit record")
	}
}

func ensureScheme(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "https://" + url
	}
	return url
}

func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
