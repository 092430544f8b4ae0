package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"token-admission/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Dex       DexConfig       `mapstructure:"dex"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Admission AdmissionConfig `mapstructure:"admission"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RegistryConfig covers the curated token registry API.
type RegistryConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	DetailFetches  int           `mapstructure:"detail_fetches"`
}

// DexConfig covers the DEX pair aggregator API.
type DexConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ScoringConfig holds candidate confidence weights. The magnitudes are
// tuning parameters, not contracts; only the relative ordering matters.
type ScoringConfig struct {
	Base                int     `mapstructure:"base"`
	ExactSymbolBonus    int     `mapstructure:"exact_symbol_bonus"`
	NameMatchBonus      int     `mapstructure:"name_match_bonus"`
	TopRankBonus        int     `mapstructure:"top_rank_bonus"`
	TopRankCutoff       int     `mapstructure:"top_rank_cutoff"`
	DexHigh             int     `mapstructure:"dex_high"`
	DexLow              int     `mapstructure:"dex_low"`
	HighLiquidityUSD    float64 `mapstructure:"high_liquidity_usd"`
	AutoSelectThreshold int     `mapstructure:"auto_select_threshold"`
	MaxCandidates       int     `mapstructure:"max_candidates"`
}

// AdmissionConfig holds gate thresholds. MinLiquidityUSD is deliberately a
// dead-token filter, far below scoring.high_liquidity_usd; the two must stay
// independently tunable.
type AdmissionConfig struct {
	MinLiquidityUSD    float64 `mapstructure:"min_liquidity_usd"`
	WhitepaperMaxChars int     `mapstructure:"whitepaper_max_chars"`
}

// RateLimitConfig throttles submissions per client.
type RateLimitConfig struct {
	Ceiling       int           `mapstructure:"ceiling"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// IngestionConfig captures downstream pipeline connectivity.
type IngestionConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ServiceKey     string        `mapstructure:"service_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOKENGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tokengate")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("registry.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("registry.request_timeout", "10s")
	v.SetDefault("registry.user_agent", "tokengate/1.0")
	v.SetDefault("registry.detail_fetches", 3)

	v.SetDefault("dex.base_url", "https://api.dexscreener.com")
	v.SetDefault("dex.request_timeout", "10s")
	v.SetDefault("dex.user_agent", "tokengate/1.0")

	v.SetDefault("scoring.base", 50)
	v.SetDefault("scoring.exact_symbol_bonus", 30)
	v.SetDefault("scoring.name_match_bonus", 20)
	v.SetDefault("scoring.top_rank_bonus", 10)
	v.SetDefault("scoring.top_rank_cutoff", 100)
	v.SetDefault("scoring.dex_high", 70)
	v.SetDefault("scoring.dex_low", 50)
	v.SetDefault("scoring.high_liquidity_usd", 100000.0)
	v.SetDefault("scoring.auto_select_threshold", 80)
	v.SetDefault("scoring.max_candidates", 5)

	v.SetDefault("admission.min_liquidity_usd", 100.0)
	v.SetDefault("admission.whitepaper_max_chars", 240000)

	v.SetDefault("ratelimit.ceiling", 50)
	v.SetDefault("ratelimit.window", "1h")
	v.SetDefault("ratelimit.sweep_interval", "10m")

	v.SetDefault("ingestion.request_timeout", "30s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.RateLimit.Ceiling <= 0 {
		return fmt.Errorf("ratelimit.ceiling must be greater than zero")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be greater than zero")
	}
	if c.Admission.MinLiquidityUSD < 0 {
		return fmt.Errorf("admission.min_liquidity_usd cannot be negative")
	}
	if c.Admission.WhitepaperMaxChars <= 0 {
		return fmt.Errorf("admission.whitepaper_max_chars must be greater than zero")
	}
	if c.Scoring.MaxCandidates <= 0 {
		return fmt.Errorf("scoring.max_candidates must be greater than zero")
	}
	if c.Registry.DetailFetches <= 0 {
		return fmt.Errorf("registry.detail_fetches must be greater than zero")
	}
	return nil
}
