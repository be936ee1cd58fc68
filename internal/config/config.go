package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	FrontendURL string

	AllowedOrigins []string

	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	RedisAddr     string
	RedisPassword string

	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int

	BcryptCost int

	HistoryRetentionDays int
	StoreTimeoutMS       int

	OAuthConfig OAuthConfig
}

func LoadConfig() *Config {
	port := GetEnv("PORT", "8080")
	environment := GetEnv("ENVIRONMENT", "development")

	// Frontend & CORS
	frontendURL := GetEnv("FRONTEND_URL", "http://localhost:5173")
	allowedOriginsStr := GetEnv("ALLOWED_ORIGINS", "")

	allowedOrigins := []string{
		frontendURL,
		"http://localhost:5173", // Local development
	}
	if allowedOriginsStr != "" {
		for _, origin := range strings.Split(allowedOriginsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	// Database
	dbURL := GetEnv("DATABASE_URL", GetEnv("DATABASE_URI", ""))
	dbMaxOpenConns := GetEnvAsInt("DB_MAX_OPEN_CONNS", 25)
	dbMaxIdleConns := GetEnvAsInt("DB_MAX_IDLE_CONNS", 25)
	dbConnMaxLifetimeMin := GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	// Token cache
	redisAddr := GetEnv("REDIS_URL", "localhost:6379")
	redisPassword := GetEnv("REDIS_PASSWORD", "")

	// Security
	jwtSecret := GetEnv("JWT_SECRET", "your-secret-key-change-this-in-production")
	accessTTLMin := GetEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 15)
	refreshTTLDays := GetEnvAsInt("REFRESH_TOKEN_TTL_DAYS", 30)
	bcryptCost := GetEnvAsInt("BCRYPT_COST", 12)

	historyRetentionDays := GetEnvAsInt("LOGIN_HISTORY_RETENTION_DAYS", 90)
	storeTimeoutMS := GetEnvAsInt("STORE_TIMEOUT_MS", 3000)

	oauthConfig := LoadOAuthConfig()

	return &Config{
		Port:                  port,
		Environment:           environment,
		FrontendURL:           frontendURL,
		AllowedOrigins:        allowedOrigins,
		DatabaseURL:           dbURL,
		DBMaxOpenConns:        dbMaxOpenConns,
		DBMaxIdleConns:        dbMaxIdleConns,
		DBConnMaxLifetimeMin:  dbConnMaxLifetimeMin,
		RedisAddr:             redisAddr,
		RedisPassword:         redisPassword,
		JWTSecret:             jwtSecret,
		AccessTokenTTLMinutes: accessTTLMin,
		RefreshTokenTTLDays:   refreshTTLDays,
		BcryptCost:            bcryptCost,
		HistoryRetentionDays:  historyRetentionDays,
		StoreTimeoutMS:        storeTimeoutMS,
		OAuthConfig:           *oauthConfig,
	}
}

// IsProduction reports whether the service runs with production settings
// (secure cookies, strict origins).
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
