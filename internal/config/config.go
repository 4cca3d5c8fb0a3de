package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server
	ContentAPI
	Workers
	Cache
	Refresher
	History
	Log
	RosterFile string
}

type Server struct {
	Port      string
	StaticDir string
}

type ContentAPI struct {
	BaseURL            string
	ServiceAccountJSON string
	ServiceAccountFile string
	Timeout            time.Duration
	MaxAttempts        int
	RetryDelay         time.Duration
	AggregationTimeout time.Duration
}

type Workers struct {
	StatusCount int
}

type Cache struct {
	Host     string
	Port     string
	Password string
	TTL      time.Duration
}

// Refresher.Interval should stay below Cache.TTL, otherwise cached regions
// expire before the next refresh writes them again.
type Refresher struct {
	Interval time.Duration
}

type History struct {
	DBPath string
}

type Log struct {
	Level  string
	Format string
}

// NewConfig reads the environment, after loading a .env file if one exists.
// Variables already set in the environment win over the file.
func NewConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: Server{
			Port:      getEnvString("SERVER_PORT", getEnvString("PORT", "5001")),
			StaticDir: getEnvString("STATIC_DIR", "frontend/dist"),
		},
		ContentAPI: ContentAPI{
			BaseURL:            getEnvString("CONTENT_API_URL", "https://shoppingcontent.googleapis.com"),
			ServiceAccountJSON: getEnvString("SERVICE_ACCOUNT_JSON", ""),
			ServiceAccountFile: getEnvString("SERVICE_ACCOUNT_FILE", ""),
			Timeout:            getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
			MaxAttempts:        getEnvInt("UPSTREAM_MAX_ATTEMPTS", 1),
			RetryDelay:         getEnvDuration("UPSTREAM_RETRY_DELAY", 500*time.Millisecond),
			AggregationTimeout: getEnvDuration("AGGREGATION_TIMEOUT", 30*time.Second),
		},
		Workers: Workers{
			StatusCount: getEnvInt("UPSTREAM_CONCURRENCY", 4),
		},
		Cache: Cache{
			Host:     getEnvString("CACHE_HOST", "localhost"),
			Port:     getEnvString("CACHE_PORT", "6379"),
			Password: getEnvString("CACHE_PASSWORD", ""),
			TTL:      getEnvDuration("CACHE_TTL", 60*time.Second),
		},
		Refresher: Refresher{
			Interval: getEnvDuration("REFRESH_INTERVAL", 45*time.Second),
		},
		History: History{
			DBPath: getEnvString("HISTORY_DB_PATH", "status_history.db"),
		},
		Log: Log{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		RosterFile: getEnvString("ROSTER_FILE", ""),
	}
}

// Credentials returns the service account JSON, inline value first.
func (c *ContentAPI) Credentials() ([]byte, error) {
	if c.ServiceAccountJSON != "" {
		return []byte(c.ServiceAccountJSON), nil
	}

	if c.ServiceAccountFile != "" {
		data, err := os.ReadFile(c.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}

	return nil, errors.New("neither SERVICE_ACCOUNT_JSON nor SERVICE_ACCOUNT_FILE is set")
}

func getEnvString(key string, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
