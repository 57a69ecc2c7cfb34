package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes"

type AppConfig struct {
	Port     string
	LogLevel string

	DatabaseDriver string // sqlite, postgres or memory
	DatabasePath   string
	DatabaseURL    string

	HorizonDays        int
	ProjectionInterval time.Duration
	ProjectionWorkers  int
	ViewCacheTTL       time.Duration

	JWTSecret         string
	AccessTokenExpiry time.Duration
	AuthDisabled      bool

	RateLimitPerSecond float64
	RateLimitBurst     int
	AllowedOrigins     []string

	NotifyProvider       string
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string
	DigestRecipient      string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)
	if jwtSecret == defaultJWTSecret {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	rateLimit, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SECOND", "10"), 64)
	if err != nil || rateLimit <= 0 {
		log.Printf("WARNING: Invalid RATE_LIMIT_PER_SECOND. Using default 10. Error: %v", err)
		rateLimit = 10
	}

	horizonDays := getEnvAsInt("HORIZON_DAYS", 30)
	if horizonDays < 0 {
		log.Printf("WARNING: HORIZON_DAYS must not be negative (got %d). Using default 30.", horizonDays)
		horizonDays = 30
	}

	workers := getEnvAsInt("PROJECTION_WORKERS", 4)
	if workers < 1 {
		workers = 1
	}

	Cfg = &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabasePath:   getEnv("DATABASE_PATH", "./cashflow.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		HorizonDays:        horizonDays,
		ProjectionInterval: getEnvAsDuration("PROJECTION_INTERVAL", time.Hour),
		ProjectionWorkers:  workers,
		ViewCacheTTL:       getEnvAsDuration("VIEW_CACHE_TTL", 5*time.Minute),

		JWTSecret:         jwtSecret,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 720*time.Hour),
		AuthDisabled:      getEnvAsBool("AUTH_DISABLED", false),

		RateLimitPerSecond: rateLimit,
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		NotifyProvider:       strings.ToLower(getEnv("NOTIFY_PROVIDER", "none")),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:           getEnv("SENDER_NAME", "CashFlow"),
		DigestRecipient:      getEnv("DIGEST_RECIPIENT", ""),
	}

	switch Cfg.DatabaseDriver {
	case "sqlite", "memory":
	case "postgres":
		if Cfg.DatabaseURL == "" {
			log.Fatalf("FATAL: DATABASE_URL is required when DATABASE_DRIVER is 'postgres'.")
		}
	default:
		log.Fatalf("FATAL: Unsupported DATABASE_DRIVER '%s'. Use sqlite, postgres or memory.", Cfg.DatabaseDriver)
	}

	if Cfg.NotifyProvider == "mailgun" {
		if Cfg.MailgunDomain == "" || Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN and MAILGUN_PRIVATE_API_KEY are required when NOTIFY_PROVIDER is 'mailgun'.")
		}
		if Cfg.DigestRecipient == "" {
			log.Println("WARNING: NOTIFY_PROVIDER is 'mailgun' but DIGEST_RECIPIENT is empty; digests will not be sent.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, Driver=%s, HorizonDays=%d, NotifyProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabaseDriver, Cfg.HorizonDays, Cfg.NotifyProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration accepts "0" to mean disabled.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if valueStr == "0" {
		return 0
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
