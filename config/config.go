package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	DBURL    string
	RedisURL string

	JWTSecret        string
	AccessExpiryMin  int
	RefreshExpiryDay int

	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	MaxRequestSizeMB  int
	OutboundUserAgent string

	PasswordMinLength  int
	RateLimitPerMinute int
}

func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Env:                getEnv("ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DBURL:              mustGetEnv("DATABASE_URL"),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:          mustGetEnv("JWT_SECRET_KEY"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
		RefreshExpiryDay:   getEnvAsInt("REFRESH_TOKEN_EXPIRE_DAYS", 30),
		ConnectTimeout:     time.Duration(getEnvAsInt("PROXY_CONNECT_TIMEOUT", 10)) * time.Second,
		ReadTimeout:        time.Duration(getEnvAsInt("PROXY_READ_TIMEOUT", 30)) * time.Second,
		MaxRequestSizeMB:   getEnvAsInt("MAX_REQUEST_SIZE_MB", 10),
		OutboundUserAgent:  getEnv("IOS_USER_AGENT", "iOS/26.1"),
		PasswordMinLength:  getEnvAsInt("PASSWORD_MIN_LENGTH", 8),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessExpiryMin) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshExpiryDay) * 24 * time.Hour
}

func (c *Config) MaxRequestBytes() int64 {
	return int64(c.MaxRequestSizeMB) * 1024 * 1024
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
