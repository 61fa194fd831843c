package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Remote file polling
	PollInterval    time.Duration
	PollMaxAttempts int
	AnalysisTimeout time.Duration

	// Video intake
	UploadTimeout time.Duration
	FetchTimeout  time.Duration

	// Uploads
	UploadDir        string
	MaxUploadBytes   int64
	TempFileMaxAge   time.Duration
	AnalyzePerMinute int

	// Redis (optional)
	RedisURL string

	// Analysis tickets
	TicketSecret string
	TicketTTL    time.Duration

	// Logging
	LogDir string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		PollInterval:         getEnvAsSecondsOrDefault("REMOTE_POLL_INTERVAL_SECONDS", 10),
		PollMaxAttempts:      getEnvAsIntOrDefault("REMOTE_POLL_MAX_ATTEMPTS", 60),
		AnalysisTimeout:      getEnvAsSecondsOrDefault("ANALYSIS_TIMEOUT_SECONDS", 900),
		UploadTimeout:        getEnvAsSecondsOrDefault("UPLOAD_TIMEOUT_SECONDS", 300),
		FetchTimeout:         getEnvAsSecondsOrDefault("YOUTUBE_FETCH_TIMEOUT_SECONDS", 300),
		UploadDir:            getEnvOrDefault("UPLOAD_DIR", filepath.Join(os.TempDir(), "interview-uploads")),
		MaxUploadBytes:       int64(getEnvAsIntOrDefault("MAX_UPLOAD_MB", 200)) * 1024 * 1024,
		TempFileMaxAge:       time.Duration(getEnvAsIntOrDefault("TEMP_FILE_MAX_AGE_MINUTES", 60)) * time.Minute,
		AnalyzePerMinute:     getEnvAsIntOrDefault("ANALYZE_RATE_LIMIT_PER_MINUTE", 10),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		TicketSecret:         getEnvOrDefault("TICKET_SECRET", ""),
		TicketTTL:            getEnvAsSecondsOrDefault("TICKET_TTL_SECONDS", 900),
		LogDir:               getEnvOrDefault("LOG_DIR", "logs"),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// RedisEnabled reports whether the progress stream and delete retries are on.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// RequestBudget is the longest an /analyze request may run: taking in the
// video (upload or YouTube fetch, never both) and then analyzing it.
func (c *Config) RequestBudget() time.Duration {
	return max(c.UploadTimeout, c.FetchTimeout) + c.AnalysisTimeout + time.Minute
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getEnvAsSecondsOrDefault(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsIntOrDefault(key, defaultSeconds)) * time.Second
}
