// Package httpapi exposes the admission and candidate-search endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"token-admission/internal/admission"
	"token-admission/internal/chains"
	"token-admission/internal/ratelimit"
	"token-admission/internal/resolver"
	"token-admission/internal/version"
)

const minQueryLength = 2

// Aggregator is the candidate-search entrypoint consumed by the server.
type Aggregator interface {
	Aggregate(ctx context.Context, query string) (resolver.SearchResult, error)
}

// Server wires the admission pipeline behind HTTP.
type Server struct {
	router     *mux.Router
	gate       *admission.Gate
	aggregator Aggregator
	limiter    *ratelimit.Limiter
	logger     zerolog.Logger
	handler    http.Handler
}

// NewServer constructs the API server.
func NewServer(gate *admission.Gate, aggregator Aggregator, limiter *ratelimit.Limiter, allowedOrigins []string, logger zerolog.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		gate:       gate,
		aggregator: aggregator,
		limiter:    limiter,
		logger:     logger.With().Str("component", "httpapi").Logger(),
	}
	s.routes()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = corsMiddleware.Handler(s.router)
	return s
}

// Handler returns the root http.Handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/add-token", s.handleAddToken()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/search-tokens", s.handleSearchTokens()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/networks", s.handleNetworks()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/health", s.handleHealth()).Methods(http.MethodGet)
}

func (s *Server) handleAddToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r)
		if !s.limiter.Allow(clientIP) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		var req admission.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "Invalid request body.",
			})
			return
		}

		result, err := s.gate.Admit(r.Context(), req)
		if err != nil {
			s.writeAdmissionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"tokenId":        result.ProjectID,
			"symbol":         result.Symbol,
			"hasWebsite":     result.HasWebsite,
			"liquidity":      result.LiquidityUSD,
			"priceUsd":       result.PriceUSD,
			"marketCap":      result.MarketCap,
			"analysisStatus": "pending",
			"message":        "Token added successfully! Website analysis in progress (may take 1-2 minutes).",
		})
	}
}

func (s *Server) handleSearchTokens() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if len(query) < minQueryLength {
			writeJSON(w, http.StatusOK, resolver.SearchResult{Candidates: []resolver.TokenCandidate{}})
			return
		}

		result, err := s.aggregator.Aggregate(r.Context(), query)
		if err != nil {
			s.logger.Error().Err(err).Str("query", query).Msg("search failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "Search failed. Please try again.",
			})
			return
		}
		if result.Candidates == nil {
			result.Candidates = []resolver.TokenCandidate{}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleNetworks() http.HandlerFunc {
	type network struct {
		Value   string `json:"value"`
		Display string `json:"display"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		known := chains.Known()
		networks := make([]network, 0, len(known))
		for _, key := range known {
			networks = append(networks, network{Value: key, Display: chains.DisplayName(key)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"networks": networks})
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version.Version,
		})
	}
}

func (s *Server) writeAdmissionError(w http.ResponseWriter, err error) {
	var admErr *admission.Error
	if !errors.As(err, &admErr) {
		s.logger.Error().Err(err).Msg("admission failed unexpectedly")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Unexpected error: " + err.Error(),
		})
		return
	}

	body := map[string]any{"error": admErr.Message}
	if admErr.NeedsWebsite {
		body["needsWebsite"] = true
	}
	if admErr.Symbol != "" {
		body["symbol"] = admErr.Symbol
	}
	if admErr.Liquidity != nil {
		body["liquidity"] = *admErr.Liquidity
	}
	if admErr.TokenID != nil {
		body["tokenId"] = *admErr.TokenID
	}
	writeJSON(w, admErr.HTTPStatus(), body)
}

// ClientIP identifies the caller for rate limiting: first entry of the
// forwarded-for header, or a sentinel when absent.
func ClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return "unknown"
	}
	parts := strings.Split(forwarded, ",")
	return strings.TrimSpace(parts[0])
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
