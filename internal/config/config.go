package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration. It is built once at startup and
// passed by value; nothing mutates it afterwards.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	Brand     BrandConfig
	RateLimit RateLimitConfig
	Notify    NotifyConfig
}

// BrandConfig controls the chain enforcement pipeline.
type BrandConfig struct {
	EnforcementMode string
	RulesPath       string
}

// RateLimitConfig controls shop submission quotas.
type RateLimitConfig struct {
	SubmissionsPerHour int
	SubmissionsPerDay  int

	// Redis-backed guards. Both are disabled when RedisAddr is empty.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	LockTTLSeconds    int
	AttemptsPerMinute float64
	AttemptBurst      int
}

// NotifyConfig configures moderator notifications.
type NotifyConfig struct {
	TopicARN  string
	AWSRegion string
}

const (
	EnforcementOff     = "off"
	EnforcementShadow  = "shadow"
	EnforcementEnforce = "enforce"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewBrandRulesHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:       getenv("APP_SERVICE", "shopfinder"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "shopfinder"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", true),

		Brand: BrandConfig{
			EnforcementMode: NormalizeEnforcementMode(getenv("BRAND_ENFORCEMENT_MODE", EnforcementEnforce)),
			RulesPath:       strings.TrimSpace(getenv("BRAND_RULES_PATH", "")),
		},
		RateLimit: RateLimitConfig{
			SubmissionsPerHour: getenvPositiveInt("SHOP_SUBMISSIONS_PER_HOUR", 3),
			SubmissionsPerDay:  getenvPositiveInt("SHOP_SUBMISSIONS_PER_DAY", 12),
			RedisAddr:          strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:      strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:            getenvInt("REDIS_DB", 0),
			LockTTLSeconds:     getenvPositiveInt("SUBMIT_LOCK_TTL_SECONDS", 10),
			AttemptsPerMinute:  getenvPositiveFloat("SUBMIT_ATTEMPTS_PER_MINUTE", 10),
			AttemptBurst:       getenvPositiveInt("SUBMIT_ATTEMPT_BURST", 5),
		},
		Notify: NotifyConfig{
			TopicARN:  strings.TrimSpace(getenv("REVIEW_NOTIFY_TOPIC_ARN", "")),
			AWSRegion: strings.TrimSpace(getenv("AWS_REGION", "")),
		},
	}
}

// NormalizeEnforcementMode maps raw input onto off|shadow|enforce. Anything
// unrecognised falls back to enforce.
func NormalizeEnforcementMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case EnforcementOff:
		return EnforcementOff
	case EnforcementShadow:
		return EnforcementShadow
	default:
		return EnforcementEnforce
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvPositiveInt(key string, def int) int {
	parsed := getenvInt(key, def)
	if parsed <= 0 {
		return def
	}
	return parsed
}

func getenvPositiveFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
