package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Languages the article storage has slug and content columns for. A target
// outside this set would be translated and then dropped at persist, so it is
// rejected up front.
var supportedLanguages = map[string]bool{
	"en": true,
	"pl": true,
}

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	BotToken    string `env:"BOT_TOKEN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Site the published article links point at.
	SiteBaseURL string `env:"SITE_BASE_URL" envDefault:"https://app.icoffio.com"`

	// LLM provider
	LLMAPIKey          string  `env:"LLM_API_KEY,required"`
	LLMModel           string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMRateLimitRPS    float64 `env:"LLM_RATE_LIMIT_RPS" envDefault:"2"`
	TransformTargetMin int     `env:"TRANSFORM_TARGET_WORDS_MIN" envDefault:"400"`
	TransformTargetMax int     `env:"TRANSFORM_TARGET_WORDS_MAX" envDefault:"600"`

	// Translation fan-out. The pivot language is always published; targets
	// fall back to pivot content on per-language failure.
	PivotLanguage   string   `env:"PIVOT_LANGUAGE" envDefault:"en"`
	TargetLanguages []string `env:"TARGET_LANGUAGES" envSeparator:"," envDefault:"pl"`

	// Image sourcing
	StockSearchURL   string `env:"STOCK_SEARCH_URL" envDefault:"https://api.unsplash.com/search/photos"`
	StockAccessKey   string `env:"STOCK_ACCESS_KEY"`
	ImageModel       string `env:"IMAGE_MODEL" envDefault:"dall-e-3"`
	ImageSize        string `env:"IMAGE_SIZE" envDefault:"1024x1024"`
	ImageFetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"60s"`

	// Content extraction
	WebFetchTimeout time.Duration `env:"WEB_FETCH_TIMEOUT" envDefault:"30s"`
	MaxContentChars int           `env:"MAX_CONTENT_CHARS" envDefault:"20000"`

	// Queue worker
	WorkerBatchSize    int           `env:"WORKER_BATCH_SIZE" envDefault:"1"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"5s"`
	JobMaxRetries      int           `env:"JOB_MAX_RETRIES" envDefault:"2"`
	StaleJobThreshold  time.Duration `env:"STALE_JOB_THRESHOLD" envDefault:"10m"`
	StaleSweepInterval time.Duration `env:"STALE_SWEEP_INTERVAL" envDefault:"1m"`

	// Preferences read-through cache. Non-authoritative: the database row is
	// the source of truth.
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" envDefault:"30s"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !supportedLanguages[c.PivotLanguage] {
		return fmt.Errorf("unsupported pivot language %q", c.PivotLanguage)
	}
	for _, lang := range c.TargetLanguages {
		if !supportedLanguages[lang] {
			return fmt.Errorf("unsupported target language %q", lang)
		}
	}
	return nil
}
