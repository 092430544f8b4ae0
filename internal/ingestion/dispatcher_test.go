package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestDispatchSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"project_id": 42, "price_usd": 7.42, "market_cap": 4100000000}`))
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "service-key", time.Second, zerolog.Nop())
	result, err := d.Dispatch(context.Background(), Request{
		ContractAddress: "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984",
		Network:         "ethereum",
		Symbol:          "UNI",
		Name:            "Uniswap",
		WebsiteURL:      "https://uniswap.org",
		MarketCap:       decimal.NewFromInt(4100000000),
		TriggerAnalysis: true,
	})
	if err != nil {
		t.Fatalf("派发失败: %v", err)
	}

	if gotPath != "/functions/v1/project-ingestion" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPayload["source"] != "manual" {
		t.Fatalf("source = %v", gotPayload["source"])
	}
	if gotPayload["trigger_analysis"] != true {
		t.Fatal("trigger_analysis must be set")
	}
	if gotPayload["website_url"] != "https://uniswap.org" {
		t.Fatalf("website_url = %v", gotPayload["website_url"])
	}

	if result.ProjectID != "42" {
		t.Fatalf("project id = %q", result.ProjectID)
	}
	if result.PriceUSD.String() != "7.42" {
		t.Fatalf("price = %s", result.PriceUSD)
	}
}

func TestDispatchWebsitePlaceholder(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"project_id": 1}`))
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "", time.Second, zerolog.Nop())
	if _, err := d.Dispatch(context.Background(), Request{Symbol: "UNI"}); err != nil {
		t.Fatalf("派发失败: %v", err)
	}
	if gotPayload["website_url"] != "pending" {
		t.Fatalf("empty website must dispatch as %q placeholder, got %v", "pending", gotPayload["website_url"])
	}
}

func TestDispatchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("edge function unavailable"))
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "", time.Second, zerolog.Nop())
	_, err := d.Dispatch(context.Background(), Request{Symbol: "UNI"})
	if err == nil {
		t.Fatal("non-2xx response must fail the dispatch")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "edge function unavailable") {
		t.Fatalf("error should carry status and body excerpt: %v", err)
	}
}

func TestDispatchRequiresBaseURL(t *testing.T) {
	d := NewHTTPDispatcher("", "", time.Second, zerolog.Nop())
	if _, err := d.Dispatch(context.Background(), Request{Symbol: "UNI"}); err == nil {
		t.Fatal("missing base URL must fail")
	}
}
