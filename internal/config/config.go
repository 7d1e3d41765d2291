package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ServerPort int
	LogLevel   string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte

	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	BlacklistRetention time.Duration
	PruneInterval      time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	ESURL        string
	ESUser       string
	ESPassword   string
	ESAuditIndex string
}

type tokenPreset struct {
	access    time.Duration
	refresh   time.Duration
	retention time.Duration
}

// Production keeps tokens shorter and revocations around longer.
var presets = map[string]tokenPreset{
	"development": {access: 15 * time.Minute, refresh: 7 * 24 * time.Hour, retention: 24 * time.Hour},
	"production":  {access: 5 * time.Minute, refresh: 3 * 24 * time.Hour, retention: 7 * 24 * time.Hour},
	"test":        {access: time.Hour, refresh: 24 * time.Hour, retention: time.Hour},
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	env := EnvDefault("APP_ENV", "development")
	preset, ok := presets[env]
	if !ok {
		preset = presets["development"]
	}

	cfg := &Config{
		Env:        env,
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		AccessTTL:          EnvDurationDefault("ACCESS_TOKEN_TTL", preset.access),
		RefreshTTL:         EnvDurationDefault("REFRESH_TOKEN_TTL", preset.refresh),
		BlacklistRetention: EnvDurationDefault("BLACKLIST_RETENTION", preset.retention),
		PruneInterval:      EnvDurationDefault("BLACKLIST_PRUNE_INTERVAL", time.Hour),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),

		ESURL:        os.Getenv("ES_URL"),
		ESUser:       os.Getenv("ES_USER"),
		ESPassword:   os.Getenv("ES_PASSWORD"),
		ESAuditIndex: EnvDefault("ES_AUDIT_INDEX", "auth_audit"),
	}

	// A revoked token must stay on the blacklist at least as long as it
	// could still verify.
	if minRetention := max(cfg.AccessTTL, cfg.RefreshTTL); cfg.BlacklistRetention < minRetention {
		log.Printf("Notice: blacklist retention %v below max token lifetime, raising to %v",
			cfg.BlacklistRetention, minRetention)
		cfg.BlacklistRetention = minRetention
	}

	return cfg
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
