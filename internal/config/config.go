package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrMissingCredentials reports a provider key that a command cannot run without.
var ErrMissingCredentials = eris.New("missing provider credentials")

// Config holds the full application configuration.
type Config struct {
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Limits     LimitsConfig     `yaml:"limits" mapstructure:"limits"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Aggregate  AggregateConfig  `yaml:"aggregate" mapstructure:"aggregate"`
	Coverage   CoverageConfig   `yaml:"coverage" mapstructure:"coverage"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge" mapstructure:"knowledge"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	PollTimeoutSecs  int    `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// JinaConfig holds Jina Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ProviderLimits bounds calls to one external provider.
type ProviderLimits struct {
	MaxConcurrent     int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxRetries        int `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelayMs       int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	CircuitThreshold  int `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs  int `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// LimitsConfig holds per-provider call limits.
type LimitsConfig struct {
	Search ProviderLimits `yaml:"search" mapstructure:"search"`
	Scrape ProviderLimits `yaml:"scrape" mapstructure:"scrape"`
	LLM    ProviderLimits `yaml:"llm" mapstructure:"llm"`
}

// DiscoveryConfig configures URL discovery.
type DiscoveryConfig struct {
	// Provider selects the search backend: "perplexity" or "jina".
	Provider    string `yaml:"provider" mapstructure:"provider"`
	ContextSize string `yaml:"context_size" mapstructure:"context_size"`
	MaxURLs     int    `yaml:"max_urls" mapstructure:"max_urls"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ClassifyConfig configures requirement source-type classification.
type ClassifyConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// ScrapeConfig configures the batch scraper.
type ScrapeConfig struct {
	ChunkSize         int      `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkDelayMs      int      `yaml:"chunk_delay_ms" mapstructure:"chunk_delay_ms"`
	CooldownSecs      int      `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
	WaitMs            int      `yaml:"wait_ms" mapstructure:"wait_ms"`
	SchemaTimeoutSecs int      `yaml:"schema_timeout_secs" mapstructure:"schema_timeout_secs"`
	PlainTimeoutSecs  int      `yaml:"plain_timeout_secs" mapstructure:"plain_timeout_secs"`
	MinTextLen        int      `yaml:"min_text_len" mapstructure:"min_text_len"`
	UseBatch          bool     `yaml:"use_batch" mapstructure:"use_batch"`
	LocalFallback     bool     `yaml:"local_fallback" mapstructure:"local_fallback"`
	JinaFallback      bool     `yaml:"jina_fallback" mapstructure:"jina_fallback"`
	CacheTTLHours     int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	ExcludePaths      []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// AggregateConfig configures deduplication.
type AggregateConfig struct {
	Semantic bool `yaml:"semantic" mapstructure:"semantic"`
}

// WeightsConfig holds per-jurisdiction coverage weights.
type WeightsConfig struct {
	Federal  float64 `yaml:"federal" mapstructure:"federal"`
	State    float64 `yaml:"state" mapstructure:"state"`
	City     float64 `yaml:"city" mapstructure:"city"`
	Industry float64 `yaml:"industry" mapstructure:"industry"`
}

// CoverageConfig configures coverage scoring.
type CoverageConfig struct {
	Threshold float64       `yaml:"threshold" mapstructure:"threshold"`
	Weights   WeightsConfig `yaml:"weights" mapstructure:"weights"`
}

// KnowledgeConfig selects the knowledge-base catalog. An empty path uses
// the embedded catalog.
type KnowledgeConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the page cache backend.
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RunTimeoutSecs int      `yaml:"run_timeout_secs" mapstructure:"run_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaPricing             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlPricing        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaPricing holds Jina Reader pricing.
type JinaPricing struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// PerplexityPricing holds Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// FirecrawlPricing holds Firecrawl pricing.
type FirecrawlPricing struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPLIANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl.poll_timeout_secs", 300)
	v.SetDefault("firecrawl.poll_interval_secs", 2)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("limits.search.max_concurrent", 4)
	v.SetDefault("limits.search.requests_per_minute", 50)
	v.SetDefault("limits.search.max_retries", 3)
	v.SetDefault("limits.search.base_delay_ms", 1000)
	v.SetDefault("limits.scrape.max_concurrent", 5)
	v.SetDefault("limits.scrape.requests_per_minute", 100)
	v.SetDefault("limits.scrape.max_retries", 3)
	v.SetDefault("limits.scrape.base_delay_ms", 2000)
	v.SetDefault("limits.scrape.circuit_threshold", 5)
	v.SetDefault("limits.scrape.circuit_reset_secs", 30)
	v.SetDefault("limits.llm.max_concurrent", 5)
	v.SetDefault("limits.llm.requests_per_minute", 50)
	v.SetDefault("limits.llm.max_retries", 3)
	v.SetDefault("limits.llm.base_delay_ms", 1000)

	v.SetDefault("discovery.provider", "perplexity")
	v.SetDefault("discovery.context_size", "high")
	v.SetDefault("discovery.max_urls", 40)
	v.SetDefault("discovery.timeout_secs", 60)
	v.SetDefault("classify.batch_size", 20)

	v.SetDefault("scrape.chunk_size", 5)
	v.SetDefault("scrape.chunk_delay_ms", 1000)
	v.SetDefault("scrape.cooldown_secs", 10)
	v.SetDefault("scrape.wait_ms", 2000)
	v.SetDefault("scrape.schema_timeout_secs", 30)
	v.SetDefault("scrape.plain_timeout_secs", 20)
	v.SetDefault("scrape.min_text_len", 50)
	v.SetDefault("scrape.use_batch", false)
	v.SetDefault("scrape.local_fallback", true)
	v.SetDefault("scrape.jina_fallback", true)
	v.SetDefault("scrape.cache_ttl_hours", 24)
	v.SetDefault("scrape.exclude_paths", []string{"/blog/*", "/news/*", "/press/*", "/careers/*"})

	v.SetDefault("aggregate.semantic", true)
	v.SetDefault("coverage.threshold", 0.6)
	v.SetDefault("coverage.weights.federal", 0.4)
	v.SetDefault("coverage.weights.state", 0.3)
	v.SetDefault("coverage.weights.city", 0.1)
	v.SetDefault("coverage.weights.industry", 0.2)
	v.SetDefault("knowledge.path", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "compliance-cache.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.run_timeout_secs", 600)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("pricing.jina.per_mtok", 0.02)
	v.SetDefault("pricing.perplexity.per_query", 0.005)
	v.SetDefault("pricing.firecrawl.plan_monthly", 19.00)
	v.SetDefault("pricing.firecrawl.credits_included", 3000)
}

// Validate checks the settings a command needs. Modes: "check" and "serve"
// need every provider key; "cache" needs a real store driver; "kb" needs
// nothing. Missing keys wrap ErrMissingCredentials.
func (c *Config) Validate(mode string) error {
	var missing, invalid []string

	switch mode {
	case "check", "serve":
		switch c.Discovery.Provider {
		case "", "perplexity":
			if c.Perplexity.Key == "" {
				missing = append(missing, "perplexity.key is required")
			}
		case "jina":
			if c.Jina.Key == "" {
				missing = append(missing, "jina.key is required")
			}
		default:
			invalid = append(invalid, "discovery.provider must be perplexity or jina")
		}
		if c.Firecrawl.Key == "" {
			missing = append(missing, "firecrawl.key is required")
		}
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			invalid = append(invalid, "server.port must be between 1 and 65535")
		}
	case "cache":
		switch strings.ToLower(c.Store.Driver) {
		case "sqlite", "postgres", "postgresql":
			if c.Store.DSN == "" {
				invalid = append(invalid, "store.dsn is required")
			}
		default:
			invalid = append(invalid, "store.driver must be sqlite or postgres")
		}
	}

	if len(missing) > 0 {
		return eris.Wrap(ErrMissingCredentials, "config: "+strings.Join(append(missing, invalid...), "; "))
	}
	if len(invalid) > 0 {
		return eris.New("config: " + strings.Join(invalid, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
