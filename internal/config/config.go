package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, BaseURL string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

type GatewayCfg struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

type SecurityCfg struct {
	RateLimitPerMin int
	AdminToken      string // guards the /admin surface
}

type RequeryCfg struct {
	Interval time.Duration
	MinAge   time.Duration
	Batch    int
}

type Cfg struct {
	App     AppCfg
	DB      DBCfg
	Redis   RedisCfg
	Gateway GatewayCfg
	Sec     SecurityCfg
	Requery RequeryCfg
}

func Load() Cfg {
	// 1) Load .env into process env (if file exists)
	_ = godotenv.Load()

	// 2) Read from env via viper
	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_MIN", 60)
	viper.SetDefault("ADMIN_TOKEN", "")
	viper.SetDefault("GATEWAY_TIMEOUT_SEC", 20)
	viper.SetDefault("REQUERY_INTERVAL_SEC", 120)
	viper.SetDefault("REQUERY_MIN_AGE_SEC", 300)
	viper.SetDefault("REQUERY_BATCH", 25)

	cfg := Cfg{
		App: AppCfg{
			Env:     viper.GetString("APP_ENV"),
			Port:    viper.GetString("APP_PORT"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Gateway: GatewayCfg{
			BaseURL:       strings.TrimRight(viper.GetString("GATEWAY_BASE_URL"), "/"),
			SecretKey:     strings.TrimSpace(viper.GetString("GATEWAY_SECRET_KEY")),
			WebhookSecret: strings.TrimSpace(viper.GetString("GATEWAY_WEBHOOK_SECRET")),
			Timeout:       time.Duration(viper.GetInt("GATEWAY_TIMEOUT_SEC")) * time.Second,
		},
		Sec: SecurityCfg{
			RateLimitPerMin: viper.GetInt("RATE_LIMIT_PER_MIN"),
			AdminToken:      strings.TrimSpace(viper.GetString("ADMIN_TOKEN")),
		},
		Requery: RequeryCfg{
			Interval: time.Duration(viper.GetInt("REQUERY_INTERVAL_SEC")) * time.Second,
			MinAge:   time.Duration(viper.GetInt("REQUERY_MIN_AGE_SEC")) * time.Second,
			Batch:    viper.GetInt("REQUERY_BATCH"),
		},
	}

	// 3) Fail fast on required settings
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if cfg.Gateway.BaseURL == "" || cfg.Gateway.SecretKey == "" {
		log.Fatal().Msg("GATEWAY_BASE_URL and GATEWAY_SECRET_KEY are required")
	}
	if cfg.Gateway.WebhookSecret == "" {
		// An unsigned webhook endpoint would accept forged "paid" notifications.
		log.Fatal().Msg("GATEWAY_WEBHOOK_SECRET is required")
	}

	return cfg
}
