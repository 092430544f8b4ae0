package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-admission/internal/admission"
	"token-admission/internal/chains"
	"token-admission/internal/config"
	"token-admission/internal/httpapi"
	"token-admission/internal/ingestion"
	"token-admission/internal/ratelimit"
	"token-admission/internal/resolver"
	"token-admission/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) scoring() resolver.Scoring {
	s := a.Config.Scoring
	return resolver.Scoring{
		Base:                s.Base,
		ExactSymbolBonus:    s.ExactSymbolBonus,
		NameMatchBonus:      s.NameMatchBonus,
		TopRankBonus:        s.TopRankBonus,
		TopRankCutoff:       s.TopRankCutoff,
		DexHigh:             s.DexHigh,
		DexLow:              s.DexLow,
		HighLiquidityUSD:    decimal.NewFromFloat(s.HighLiquidityUSD),
		AutoSelectThreshold: s.AutoSelectThreshold,
		MaxCandidates:       s.MaxCandidates,
	}
}

func (a *App) newResolvers() (*resolver.Registry, *resolver.DexPairs) {
	scoring := a.scoring()

	registry := resolver.NewRegistry(resolver.RegistryOptions{
		BaseURL:       a.Config.Registry.BaseURL,
		APIKey:        a.Config.Registry.APIKey,
		UserAgent:     a.Config.Registry.UserAgent,
		Timeout:       a.Config.Registry.RequestTimeout,
		DetailFetches: a.Config.Registry.DetailFetches,
		Scoring:       scoring,
	}, a.Logger)

	dex := resolver.NewDexPairs(resolver.DexPairOptions{
		BaseURL:   a.Config.Dex.BaseURL,
		UserAgent: a.Config.Dex.UserAgent,
		Timeout:   a.Config.Dex.RequestTimeout,
		Scoring:   scoring,
	}, a.Logger)

	return registry, dex
}

func (a *App) newAggregator() *resolver.Aggregator {
	registry, dex := a.newResolvers()
	return resolver.NewAggregator(registry, dex, a.scoring(), a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run starts the admission API server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	registry, dex := a.newResolvers()
	aggregator := resolver.NewAggregator(registry, dex, a.scoring(), a.Logger)
	validator := chains.NewValidator(a.Logger)

	dispatcher := ingestion.NewHTTPDispatcher(
		a.Config.Ingestion.BaseURL,
		a.Config.Ingestion.ServiceKey,
		a.Config.Ingestion.RequestTimeout,
		a.Logger,
	)

	gate := admission.NewGate(
		admission.GateOptions{
			MinLiquidityUSD:    decimal.NewFromFloat(a.Config.Admission.MinLiquidityUSD),
			WhitepaperMaxChars: a.Config.Admission.WhitepaperMaxChars,
		},
		validator,
		store,
		registry,
		dex,
		dispatcher,
		store,
		a.Logger,
	)

	limiter := ratelimit.New(a.Config.RateLimit.Ceiling, a.Config.RateLimit.Window, a.Logger)
	go func() {
		if err := limiter.Run(ctx, a.Config.RateLimit.SweepInterval); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Warn().Err(err).Msg("rate limit sweeper stopped")
		}
	}()

	api := httpapi.NewServer(gate, aggregator, limiter, a.Config.Server.AllowedOrigins, a.Logger)

	server := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	a.Logger.Info().Str("addr", a.Config.Server.Addr).Msg("admission API listening")

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error().Err(err).Msg("server shutdown failed")
			return err
		}
		a.Logger.Info().Msg("admission API stopped")
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("server terminated with error")
			return err
		}
		return nil
	}
}

// SearchOptions configure the one-off search command.
type SearchOptions struct {
	Query string
}

// RecentOptions configure the recent command.
type RecentOptions struct {
	Limit int
}
