package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env              string
	HTTPPort         string
	GatewayBaseURL   string
	GatewayUsername  string
	GatewayPassword  string
	GatewayTimeout   time.Duration
	JWTIssuer        string
	JWTSigningKey    string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AdminUsername    string
	AdminPassword    string
	RedisAddr        string
	RateLimitBackend string
	RateLimitPerMin  int
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPPort:         getEnv("HTTP_PORT", "8082"),
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://nationalinstituteoflanguage.in/wp-json/attendance-tracker/v1"),
		GatewayUsername:  getEnv("GATEWAY_USERNAME", ""),
		GatewayPassword:  getEnv("GATEWAY_PASSWORD", ""),
		GatewayTimeout:   durationEnv("GATEWAY_TIMEOUT", 15*time.Second),
		JWTIssuer:        getEnv("JWT_ISSUER", "student-monitor"),
		JWTSigningKey:    getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:        durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       durationEnv("REFRESH_TTL", 24*time.Hour),
		AdminUsername:    getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimitPerMin:  intEnv("RATE_LIMIT_PER_MIN", 120),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
