package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string
	ListenAddr      string
	DatabaseURL     string
	EvidenceDir     string
	SentinelURL     string
	VerifyWorkers   int
	MonitorInterval time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads configuration from the environment, with a .env file as a
// convenience for local runs. An empty DATABASE_URL selects the in-memory
// store; an empty SENTINEL_URL selects the simulated satellite provider.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:             getenv("APP_ENV", "development"),
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		EvidenceDir:     getenv("EVIDENCE_DIR", "data/evidence"),
		SentinelURL:     os.Getenv("SENTINEL_URL"),
		VerifyWorkers:   getenvInt("VERIFY_WORKERS", 2),
		MonitorInterval: getenvDuration("MONITOR_INTERVAL", 24*time.Hour),
	}
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
