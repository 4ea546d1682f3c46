package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds the platform constants for the public widget layer. These
// are deployment configuration, not code: the per-session cap and session
// TTL in particular are tuned per environment.
type Config struct {
	// SessionTTL is the absolute lifetime of an anonymous widget session.
	SessionTTL time.Duration
	// SessionMaxQueries is the per-session query cap snapshotted into each
	// session at issuance. Independent of any tenant's monthly cap.
	SessionMaxQueries int
	// SessionCountIgnored controls whether ignored (test/internal) traffic
	// still consumes session-level quota.
	SessionCountIgnored bool
	// StoreTimeout bounds every external lookup (tenant, plan, session,
	// log count). On timeout the request fails closed.
	StoreTimeout time.Duration
	// SessionCleanupInterval is how often the expired-session pruning job runs.
	SessionCleanupInterval time.Duration
	// AdminAPIToken guards the admin/reporting routes. Empty disables them.
	AdminAPIToken string
	// AnswerServiceURL is the base URL of the out-of-process answering
	// pipeline. Empty means answering is unavailable (503 on queries).
	AnswerServiceURL string
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() *Config {
	return &Config{
		SessionTTL:             time.Duration(envInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		SessionMaxQueries:      envInt("SESSION_MAX_QUERIES", 50),
		SessionCountIgnored:    envBool("SESSION_COUNT_IGNORED", false),
		StoreTimeout:           time.Duration(envInt("STORE_TIMEOUT_MS", 3000)) * time.Millisecond,
		SessionCleanupInterval: time.Duration(envInt("SESSION_CLEANUP_MINUTES", 60)) * time.Minute,
		AdminAPIToken:          os.Getenv("ADMIN_API_TOKEN"),
		AnswerServiceURL:       os.Getenv("ANSWER_SERVICE_URL"),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, raw, fallback)
		return fallback
	}
	return b
}
