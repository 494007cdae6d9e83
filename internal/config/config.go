// README: Config loader with env defaults for HTTP, backend API, redis, and tracking cadence.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Tracking holds the cadence of every periodic loop in the engine.
type Tracking struct {
	StatusResync      time.Duration
	ProgressTick      time.Duration
	ProgressIncrement float64
	MatchingResync    time.Duration
	LocationPoll      time.Duration
	MessagePoll       time.Duration
	TypingIdle        time.Duration
	MessagePageSize   int
	PollPageSize      int
	PassengerID       string
}

type Config struct {
	HTTP struct {
		Addr string
	}
	Backend struct {
		BaseURL string
		Timeout time.Duration
	}
	Redis struct {
		Addr string // empty disables the driver-fix fan-out store
	}
	Tracking Tracking
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("TRACK_HTTP_ADDR", ":8080")
	cfg.Backend.BaseURL = envOrDefault("TRACK_BACKEND_URL", "http://localhost:9000/api/v1")
	cfg.Backend.Timeout = envOrDefaultDuration("TRACK_BACKEND_TIMEOUT", 10*time.Second)
	cfg.Redis.Addr = os.Getenv("TRACK_REDIS_ADDR")

	cfg.Tracking.StatusResync = envOrDefaultDuration("TRACK_STATUS_RESYNC", 15*time.Second)
	cfg.Tracking.ProgressTick = envOrDefaultDuration("TRACK_PROGRESS_TICK", 500*time.Millisecond)
	cfg.Tracking.ProgressIncrement = envOrDefaultFloat("TRACK_PROGRESS_INCREMENT", 0.05)
	cfg.Tracking.MatchingResync = envOrDefaultDuration("TRACK_MATCHING_RESYNC", 5*time.Second)
	cfg.Tracking.LocationPoll = envOrDefaultDuration("TRACK_LOCATION_POLL", 10*time.Second)
	cfg.Tracking.MessagePoll = envOrDefaultDuration("TRACK_MESSAGE_POLL", 3*time.Second)
	cfg.Tracking.TypingIdle = envOrDefaultDuration("TRACK_TYPING_IDLE", 3*time.Second)
	cfg.Tracking.MessagePageSize = envOrDefaultInt("TRACK_MESSAGE_PAGE_SIZE", 50)
	cfg.Tracking.PollPageSize = envOrDefaultInt("TRACK_POLL_PAGE_SIZE", 20)
	cfg.Tracking.PassengerID = envOrDefault("TRACK_PASSENGER_ID", "passenger")
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
