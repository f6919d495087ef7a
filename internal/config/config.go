package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port   string
	DBPath string

	// Detection defaults pushed to clients on connect
	Sensitivity float64

	// Aggregation: half-width of the merge lookup box, in degrees
	MergeBoxDegrees float64

	// Hub
	HeartbeatInterval time.Duration

	// Traffic rollup schedule (cron spec)
	TrafficRollupSpec string
}

// Load reads configuration from the environment, with an optional .env file
func Load() *Config {
	// A missing .env is fine; plain env vars still apply
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		Port:              getEnv("PORT", ":8080"),
		DBPath:            getEnv("DB_PATH", "./data/roadpulse.db"),
		Sensitivity:       getEnvFloat("DETECTION_SENSITIVITY", 2.5),
		MergeBoxDegrees:   getEnvFloat("MERGE_BOX_DEGREES", 0.0005),
		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		TrafficRollupSpec: getEnv("TRAFFIC_ROLLUP_SPEC", "0 * * * *"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid float for %s, using default %v", key, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s, using default %v", key, fallback)
	}
	return fallback
}
