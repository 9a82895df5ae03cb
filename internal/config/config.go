package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// DATABASE_URL and TMDB_API_KEY are required; everything else has a default.
//
// WORKER_SECRET and SELF_BASE_URL are deliberately not required at startup:
// without them the worker endpoints answer 500 (configuration error) and the
// trigger degrades to a no-op, which keeps the read-only surface usable on a
// partially configured deployment.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Metadata provider
	TMDBAPIKey    string
	TMDBBaseURL   string
	TMDBTimeout   time.Duration
	TMDBRateLimit int // requests per second

	// Worker loop
	WorkerSecret string
	SelfBaseURL  string // base URL this service reaches itself on, for the trigger
	TimeBudget   time.Duration
	BatchSize    int // queue items claimed (and processed concurrently) per round
	PollInterval time.Duration

	// Enqueuer
	EnqueueBatchSize int
	WakeTimeout      time.Duration // enqueue wake-up call; timeout counts as success

	// Recursive trigger
	TriggerTimeout time.Duration

	// Backfill
	BackfillPageSize   int
	ProviderBatchSize  int           // concurrent provider calls per backfill batch
	ProviderBatchDelay time.Duration // pause between backfill batches
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	tmdbKey := os.Getenv("TMDB_API_KEY")
	if tmdbKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		TMDBAPIKey:    tmdbKey,
		TMDBBaseURL:   getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBTimeout:   getDuration("TMDB_TIMEOUT", 10*time.Second),
		TMDBRateLimit: getInt("TMDB_RATE_LIMIT", 40),

		WorkerSecret: os.Getenv("WORKER_SECRET"),
		SelfBaseURL:  os.Getenv("SELF_BASE_URL"),
		TimeBudget:   getDuration("WORKER_TIME_BUDGET", 50*time.Second),
		BatchSize:    getInt("WORKER_BATCH_SIZE", 10),
		PollInterval: getDuration("POLL_INTERVAL", time.Minute),

		EnqueueBatchSize: getInt("ENQUEUE_BATCH_SIZE", 100),
		WakeTimeout:      getDuration("WAKE_TIMEOUT", 150*time.Millisecond),

		TriggerTimeout: getDuration("TRIGGER_TIMEOUT", time.Second),

		BackfillPageSize:   getInt("BACKFILL_PAGE_SIZE", 50),
		ProviderBatchSize:  getInt("PROVIDER_BATCH_SIZE", 5),
		ProviderBatchDelay: getDuration("PROVIDER_BATCH_DELAY", 150*time.Millisecond),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
