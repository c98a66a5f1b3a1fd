package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the studio backend.
type Config struct {
	Env      string
	HTTPPort string

	JobsDir       string
	SweepInterval time.Duration
	JobMaxAge     time.Duration
	// JobWorkers bounds concurrent generation jobs; 0 keeps the historical
	// goroutine-per-job behavior.
	JobWorkers int

	OpenAIAPIKey string
	GenModel     string
	GenMaxTokens int
	GenTimeout   time.Duration

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RateLimitCapacity int
	RateLimitRefill   float64

	PostgresDSN string

	UploadsDir        string
	SketchS3Bucket    string
	SketchS3Region    string
	SketchS3Endpoint  string
	SketchS3PathStyle bool
	SketchMaxBytes    int64
	SketchMaxWidth    int

	CORSOrigins []string
	SessionTTL  time.Duration
}

// Load reads configuration from environment variables with sane defaults for
// local development.
func Load() Config {
	return Config{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		JobsDir:       getEnv("JOBS_DIR", "./jobs"),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),
		JobMaxAge:     getEnvDuration("JOB_MAX_AGE", 24*time.Hour),
		JobWorkers:    getEnvInt("JOB_WORKERS", 0),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		GenModel:     getEnv("GEN_MODEL", "gpt-4o-mini"),
		GenMaxTokens: getEnvInt("GEN_MAX_TOKENS", 5000),
		GenTimeout:   getEnvDuration("GEN_TIMEOUT", 2*time.Minute),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RateLimitCapacity: getEnvInt("RATE_LIMIT_CAPACITY", 5),
		RateLimitRefill:   getEnvFloat("RATE_LIMIT_REFILL_PER_SEC", 0.05),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		UploadsDir:        getEnv("UPLOADS_DIR", "./uploads"),
		SketchS3Bucket:    getEnv("SKETCH_S3_BUCKET", ""),
		SketchS3Region:    getEnv("SKETCH_S3_REGION", "us-east-1"),
		SketchS3Endpoint:  getEnv("SKETCH_S3_ENDPOINT", ""),
		SketchS3PathStyle: getEnvBool("SKETCH_S3_PATH_STYLE", false),
		SketchMaxBytes:    getEnvInt64("SKETCH_MAX_BYTES", 8*1024*1024),
		SketchMaxWidth:    getEnvInt("SKETCH_MAX_WIDTH", 1280),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		SessionTTL:  getEnvDuration("SESSION_TTL", 24*time.Hour),
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
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
