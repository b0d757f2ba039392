package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	RedisURL string
	Port     string

	// Advisory wait attached to newly submitted jobs.
	EstimatedWaitSeconds int

	// Stream bridge tuning.
	HeartbeatInterval time.Duration
	PollInterval      time.Duration

	// Worker tuning. The pauses simulate inference pacing and may be
	// zeroed in tests.
	ReconnectBackoff time.Duration
	ClaimDelay       time.Duration
	WarmupMin        time.Duration
	WarmupMax        time.Duration
	StepDelayMin     time.Duration
	StepDelayMax     time.Duration

	// Optional YAML plan overriding the built-in step tree.
	PlanPath string
}

func Load() Config {
	return Config{
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
		Port:                 getEnv("PORT", "8000"),
		EstimatedWaitSeconds: getEnvInt("ESTIMATED_WAIT_SECONDS", 30),
		HeartbeatInterval:    getEnvDuration("STREAM_HEARTBEAT_INTERVAL", 15*time.Second),
		PollInterval:         getEnvDuration("STREAM_POLL_INTERVAL", time.Second),
		ReconnectBackoff:     getEnvDuration("WORKER_RECONNECT_BACKOFF", 5*time.Second),
		ClaimDelay:           getEnvDuration("WORKER_CLAIM_DELAY", 2*time.Second),
		WarmupMin:            getEnvDuration("WORKER_WARMUP_MIN", 3*time.Second),
		WarmupMax:            getEnvDuration("WORKER_WARMUP_MAX", 5*time.Second),
		StepDelayMin:         getEnvDuration("WORKER_STEP_DELAY_MIN", 300*time.Millisecond),
		StepDelayMax:         getEnvDuration("WORKER_STEP_DELAY_MAX", 800*time.Millisecond),
		PlanPath:             getEnv("WORKER_PLAN", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		_, err := fmt.Sscanf(v, "%d", &n)
		if err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
