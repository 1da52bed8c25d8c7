package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Exa       ExaConfig       `yaml:"exa" mapstructure:"exa"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Generate  GenerateConfig  `yaml:"generate" mapstructure:"generate"`
	Resend    ResendConfig    `yaml:"resend" mapstructure:"resend"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ExaConfig holds Exa search API settings.
type ExaConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	ResultsPerSeed int     `yaml:"results_per_seed" mapstructure:"results_per_seed"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// JinaConfig holds Jina AI Reader settings. Used only to backfill empty article text.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractConfig selects the extraction backend.
type ExtractConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// GenerateConfig configures the lead generation loop.
type GenerateConfig struct {
	DefaultResults  int      `yaml:"default_results" mapstructure:"default_results"`
	MaxAttempts     int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BackoffSecs     int      `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	MaxArticleChars int      `yaml:"max_article_chars" mapstructure:"max_article_chars"`
	ReferenceURLs   []string `yaml:"reference_urls" mapstructure:"reference_urls"`
}

// Timeout returns the wall-clock ceiling for a single run.
func (g GenerateConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// Backoff returns the fixed delay after a failed extraction attempt.
func (g GenerateConfig) Backoff() time.Duration {
	return time.Duration(g.BackoffSecs) * time.Second
}

// ResendConfig holds Resend email API settings.
type ResendConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	From    string `yaml:"from" mapstructure:"from"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Models        map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	ExaPerRequest float64                 `yaml:"exa_per_request" mapstructure:"exa_per_request"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the environment variable names the hosted
// dashboard used, accepted as fallbacks after the LEADGEN_ prefixed form.
var legacyEnv = map[string]string{
	"exa.key":            "EXA_API_KEY",
	"gemini.key":         "GOOGLE_GENERATIVE_AI_API_KEY",
	"anthropic.key":      "ANTHROPIC_API_KEY",
	"resend.key":         "RESEND_API_KEY",
	"store.database_url": "DATABASE_URL",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		prefixed := "LEADGEN_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("exa.results_per_seed", 5)
	v.SetDefault("exa.concurrency", 5)
	v.SetDefault("exa.rate_limit_rps", 5.0)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("gemini.model", "gemini-3-flash-preview")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("extract.provider", "gemini")
	v.SetDefault("generate.default_results", 10)
	v.SetDefault("generate.max_attempts", 5)
	v.SetDefault("generate.timeout_secs", 300)
	v.SetDefault("generate.backoff_secs", 3)
	v.SetDefault("generate.max_article_chars", 1500)
	v.SetDefault("resend.base_url", "https://api.resend.com")
	v.SetDefault("resend.from", "Lead Scout <onboarding@resend.dev>")
	v.SetDefault("pricing.exa_per_request", 0.005)

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

// Validate checks settings that would otherwise fail deep inside a run.
// Credentials are not checked here: each run may supply its own.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	switch c.Extract.Provider {
	case "gemini", "anthropic":
	default:
		return eris.Errorf("config: unsupported extract provider %q", c.Extract.Provider)
	}
	if c.Generate.MaxAttempts <= 0 {
		return eris.New("config: generate.max_attempts must be positive")
	}
	if c.Generate.TimeoutSecs <= 0 {
		return eris.New("config: generate.timeout_secs must be positive")
	}
	if c.Generate.DefaultResults < 5 || c.Generate.DefaultResults > 25 {
		return eris.Errorf("config: generate.default_results %d outside [5, 25]", c.Generate.DefaultResults)
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
