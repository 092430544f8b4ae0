package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const ingestionPath = "/functions/v1/project-ingestion"

// Request 封装下游摄取管道的载荷。
type Request struct {
	ContractAddress   string
	Network           string
	Symbol            string
	Name              string
	PoolAddress       string
	WebsiteURL        string
	WhitepaperURL     string
	WhitepaperContent string
	MarketCap         decimal.Decimal
	TriggerAnalysis   bool
}

// Result carries the identifiers and pricing data the downstream service
// returns on success.
type Result struct {
	ProjectID string
	PriceUSD  decimal.Decimal
	MarketCap decimal.Decimal
}

// Dispatcher 定义摄取任务的派发接口。
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (*Result, error)
}

// HTTPDispatcher fires the ingestion job at the downstream edge function.
// The analysis work behind that endpoint is asynchronous; this call only
// registers the job and returns immediately-available fields.
type HTTPDispatcher struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	logger     zerolog.Logger
}

// NewHTTPDispatcher 构造摄取派发器。
func NewHTTPDispatcher(baseURL, serviceKey string, timeout time.Duration, logger zerolog.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPDispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "ingestion_dispatcher").Logger(),
	}
}

type ingestionPayload struct {
	ContractAddress   string          `json:"contract_address"`
	Network           string          `json:"network"`
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	PoolAddress       string          `json:"pool_address,omitempty"`
	WebsiteURL        string          `json:"website_url"`
	WhitepaperURL     string          `json:"whitepaper_url,omitempty"`
	WhitepaperContent string          `json:"whitepaper_content,omitempty"`
	Source            string          `json:"source"`
	TriggerAnalysis   bool            `json:"trigger_analysis"`
	MarketCap         decimal.Decimal `json:"market_cap,omitempty"`
}

type ingestionResponse struct {
	ProjectID json.Number     `json:"project_id"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	MarketCap decimal.Decimal `json:"market_cap"`
}

// Dispatch posts the ingestion payload once. A non-success response fails the
// whole admission; no retry is attempted here.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if d.baseURL == "" {
		return nil, fmt.Errorf("ingestion base URL not configured")
	}

	website := req.WebsiteURL
	if website == "" {
		website = "pending"
	}

	payload := ingestionPayload{
		ContractAddress:   req.ContractAddress,
		Network:           req.Network,
		Symbol:            req.Symbol,
		Name:              req.Name,
		PoolAddress:       req.PoolAddress,
		WebsiteURL:        website,
		WhitepaperURL:     req.WhitepaperURL,
		WhitepaperContent: req.WhitepaperContent,
		Source:            "manual",
		TriggerAnalysis:   req.TriggerAnalysis,
		MarketCap:         req.MarketCap,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ingestion payload: %w", err)
	}

	url := d.baseURL + ingestionPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ingestion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.serviceKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.serviceKey)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send ingestion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ingestion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ingestion failed (%d): %s", resp.StatusCode, excerpt(respBody, 200))
	}

	var result ingestionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode ingestion response: %w", err)
	}

	d.logger.Info().
		Str("symbol", req.Symbol).
		Str("network", req.Network).
		Bool("trigger_analysis", req.TriggerAnalysis).
		Str("project_id", result.ProjectID.String()).
		Msg("摄取任务已派发")

	return &Result{
		ProjectID: result.ProjectID.String(),
		PriceUSD:  result.PriceUSD,
		MarketCap: result.MarketCap,
	}, nil
}

func excerpt(body []byte, max int) string {
	text := strings.TrimSpace(string(body))
	if len(text) > max {
		return text[:max]
	}
	return text
}

var _ Dispatcher = (*HTTPDispatcher)(nil)
