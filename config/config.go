package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataSource    string
	PostgresTable string
	MaxRetries    int

	HTTPAddr string

	HistogramBuckets int
	ScatterSample    int
	TopModels        int

	// Default filter window. A zero bound means "use the observed min/max".
	DefaultYearMin  float64
	DefaultYearMax  float64
	DefaultPriceMin float64
	DefaultPriceMax float64

	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string
	MemcacheAddr string

	ExportDir     string
	ExportWorkers int

	ChromeBin    string
	SnapshotURL  string
	SnapshotPath string

	LogDebug bool
	LogHuman bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		DataSource:    getEnv("DATA_SOURCE", "./vehicles.csv"),
		PostgresTable: getEnv("POSTGRES_TABLE", "vehicles"),
		MaxRetries:    getEnvInt("MAX_RETRIES", 3),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		HistogramBuckets: getEnvInt("HISTOGRAM_BUCKETS", 50),
		ScatterSample:    getEnvInt("SCATTER_SAMPLE", 5000),
		TopModels:        getEnvInt("TOP_MODELS", 10),

		DefaultYearMin:  getEnvFloat("DEFAULT_YEAR_MIN", 0),
		DefaultYearMax:  getEnvFloat("DEFAULT_YEAR_MAX", 0),
		DefaultPriceMin: getEnvFloat("DEFAULT_PRICE_MIN", 0),
		DefaultPriceMax: getEnvFloat("DEFAULT_PRICE_MAX", 0),

		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		MemcacheAddr: getEnv("MEMCACHE_ADDR", "localhost:11211"),

		ExportDir:     getEnv("EXPORT_DIR", "./output/charts"),
		ExportWorkers: getEnvInt("EXPORT_WORKERS", 4),

		ChromeBin:    getEnv("CHROME_BIN", ""),
		SnapshotURL:  getEnv("SNAPSHOT_URL", "http://localhost:8080/"),
		SnapshotPath: getEnv("SNAPSHOT_PATH", "./output/dashboard.png"),

		LogDebug: getEnvBool("LOG_DEBUG", false),
		LogHuman: getEnvBool("LOG_HUMAN", true),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
