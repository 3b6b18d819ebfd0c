package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type CacheConfig struct {
	DataDir   string
	BaseURL   string
	UserAgent string
	Retries   int
	RPS       int
	MaxAge    time.Duration
	PgLockDSN string
}

func LoadCacheConfig() CacheConfig {
	dataDir := os.Getenv("CARDVAULT_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = "."
		}
		dataDir = filepath.Join(home, ".cardvault", "data")
	}

	baseURL := os.Getenv("CARDVAULT_PROVIDER_URL")
	if baseURL == "" {
		baseURL = "https://api.scryfall.com"
	}

	ua := os.Getenv("CARDVAULT_USER_AGENT")
	if ua == "" {
		ua = "cardvault/1 (+https://cardvault.local)"
	}

	return CacheConfig{
		DataDir:   dataDir,
		BaseURL:   baseURL,
		UserAgent: ua,
		Retries:   envInt("CARDVAULT_HTTP_RETRIES", 5),
		RPS:       envInt("CARDVAULT_HTTP_RPS", 5),
		MaxAge:    time.Duration(envInt("CARDVAULT_MAX_AGE_HOURS", 7*24)) * time.Hour,
		PgLockDSN: os.Getenv("CARDVAULT_PG_LOCK_DSN"),
	}
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	Duration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("CARDVAULT_ADMIN_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("CARDVAULT_ISSUER")
	if issuer == "" {
		issuer = "cardvault"
	}

	return AuthConfig{
		Secret:   secret,
		Issuer:   issuer,
		Duration: time.Duration(envInt("CARDVAULT_TOKEN_TTL_HOURS", 24)) * time.Hour,
	}
}

type ServerConfig struct {
	Addr         string
	EventAddr    string
	RefreshEvery time.Duration
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("CARDVAULT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	eventAddr := os.Getenv("CARDVAULT_EVENT_ADDR")
	if eventAddr == "" {
		eventAddr = ":7071"
	}
	return ServerConfig{
		Addr:         addr,
		EventAddr:    eventAddr,
		RefreshEvery: time.Duration(envInt("CARDVAULT_REFRESH_HOURS", 0)) * time.Hour,
	}
}

// envInt reads an integer env var; if parsing fails, fall back to def.
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
