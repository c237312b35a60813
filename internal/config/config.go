package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Oracle settings. An empty API key selects the deterministic mock.
	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `mapstructure:"OPENAI_BASE_URL"`
	Model         string        `mapstructure:"LLM_MODEL"`
	OracleTimeout time.Duration `mapstructure:"ORACLE_TIMEOUT"`

	Company string `mapstructure:"COMPANY"`

	// Report targets and policies.
	FCRTarget             float64 `mapstructure:"FCR_TARGET" validate:"gt=0,lte=100"`
	RelevanceTarget       float64 `mapstructure:"RELEVANCE_TARGET" validate:"gte=1,lte=5"`
	UnderperformThreshold float64 `mapstructure:"UNDERPERFORM_THRESHOLD" validate:"gte=1,lte=5"`
	PoorBucketLimit       int     `mapstructure:"POOR_BUCKET_LIMIT" validate:"gte=0"`
	FCRMinBotMessages     int     `mapstructure:"FCR_MIN_BOT_MESSAGES" validate:"gte=0"`
	FCRMaxUserMessages    int     `mapstructure:"FCR_MAX_USER_MESSAGES" validate:"gte=0"`
	SampleSize            int     `mapstructure:"SAMPLE_SIZE" validate:"gt=0"`
	WriteBackSatisfaction bool    `mapstructure:"WRITE_BACK_SATISFACTION"`

	// Intent ranking.
	IntentConfigPath string  `mapstructure:"INTENT_CONFIG_PATH"`
	TargetCSAT       float64 `mapstructure:"TARGET_CSAT" validate:"gte=1,lte=5"`
	WeightFrequency  float64 `mapstructure:"WEIGHT_FREQUENCY" validate:"gte=0"`
	WeightUnresolved float64 `mapstructure:"WEIGHT_UNRESOLVED" validate:"gte=0"`
	WeightCSATGap    float64 `mapstructure:"WEIGHT_CSAT_GAP" validate:"gte=0"`
	WeightEffortInv  float64 `mapstructure:"WEIGHT_EFFORT_INV" validate:"gte=0"`

	// Synthetic generation.
	PerContext  int `mapstructure:"PER_CONTEXT" validate:"gt=0"`
	MaxWorkers  int `mapstructure:"MAX_WORKERS" validate:"gt=0"`
	MaxAttempts int `mapstructure:"MAX_ATTEMPTS" validate:"gt=0"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("ORACLE_TIMEOUT", "30s")
	v.SetDefault("COMPANY", "Kavak")

	v.SetDefault("FCR_TARGET", 80.0)
	v.SetDefault("RELEVANCE_TARGET", 4.5)
	v.SetDefault("UNDERPERFORM_THRESHOLD", 3.5)
	v.SetDefault("POOR_BUCKET_LIMIT", 10)
	v.SetDefault("FCR_MIN_BOT_MESSAGES", 1)
	v.SetDefault("FCR_MAX_USER_MESSAGES", 1)
	v.SetDefault("SAMPLE_SIZE", 20)
	v.SetDefault("WRITE_BACK_SATISFACTION", false)

	v.SetDefault("TARGET_CSAT", 4.5)
	v.SetDefault("WEIGHT_FREQUENCY", 0.35)
	v.SetDefault("WEIGHT_UNRESOLVED", 0.30)
	v.SetDefault("WEIGHT_CSAT_GAP", 0.20)
	v.SetDefault("WEIGHT_EFFORT_INV", 0.15)

	v.SetDefault("PER_CONTEXT", 3)
	v.SetDefault("MAX_WORKERS", 6)
	v.SetDefault("MAX_ATTEMPTS", 4)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
