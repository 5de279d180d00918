package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/noteswriter/noteswriter-backend/internal/logger"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Env            string
	Port           string
	LogLevel       string
	AllowedOrigins []string

	DatabaseURL string
	RedisURL    string

	Gmail GmailConfig
	SMTP  SMTPConfig

	GeminiAPIKey   string
	OTPMaxAttempts int
}

// GmailConfig carries the OAuth credentials of the account that sends OTP mail.
type GmailConfig struct {
	Token        string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Expiry       string
}

// Enabled reports whether enough credentials are present to refresh an access token.
func (g GmailConfig) Enabled() bool {
	return g.RefreshToken != "" && g.ClientID != "" && g.ClientSecret != ""
}

type SMTPConfig struct {
	From     string
	Password string
	Host     string
	Port     string
}

func (s SMTPConfig) Enabled() bool {
	return s.From != "" && s.Password != "" && s.Host != "" && s.Port != ""
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Log.Infof("config: .env not found, using process environment: %v", err)
	}

	cfg := &Config{
		Env:          getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "5001"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatabaseURL:  getDatabaseURL(),
		RedisURL:     getRedisURL(),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		Gmail: GmailConfig{
			Token:        getEnv("GMAIL_TOKEN", ""),
			RefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
			TokenURI:     getEnv("GMAIL_TOKEN_URI", "https://oauth2.googleapis.com/token"),
			ClientID:     getEnv("GMAIL_CLIENT_ID", ""),
			ClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
			Expiry:       getEnv("GMAIL_EXPIRY", ""),
		},
		SMTP: SMTPConfig{
			From:     getEnv("EMAIL_FROM", ""),
			Password: getEnv("EMAIL_PASSWORD", ""),
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
		},
	}

	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	attempts, err := strconv.Atoi(getEnv("OTP_MAX_ATTEMPTS", "5"))
	if err != nil || attempts < 0 {
		return nil, fmt.Errorf("config: OTP_MAX_ATTEMPTS must be a non-negative integer, got %q", os.Getenv("OTP_MAX_ATTEMPTS"))
	}
	cfg.OTPMaxAttempts = attempts

	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL or DB_HOST/DB_USER/DB_NAME is required in production")
		}
		if !cfg.Gmail.Enabled() && !cfg.SMTP.Enabled() {
			return nil, fmt.Errorf("config: Gmail or SMTP credentials are required in production")
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv treats an empty variable the same as an unset one.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getDatabaseURL prefers DATABASE_URL and otherwise assembles a DSN from DB_* parts.
func getDatabaseURL() string {
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return dbURL
	}

	host := getEnv("DB_HOST", "")
	user := getEnv("DB_USER", "")
	name := getEnv("DB_NAME", "")
	if host == "" || user == "" || name == "" {
		return ""
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, getEnv("DB_PASSWORD", "")),
		Host:     host + ":" + getEnv("DB_PORT", "5432"),
		Path:     name,
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

// getRedisURL prefers REDIS_URL and otherwise assembles one from REDIS_* parts.
// An empty result selects the in-process store.
func getRedisURL() string {
	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		return redisURL
	}

	host := getEnv("REDIS_HOST", "")
	if host == "" {
		return ""
	}

	u := url.URL{
		Scheme: "redis",
		Host:   host + ":" + getEnv("REDIS_PORT", "6379"),
	}
	username := getEnv("REDIS_USERNAME", "")
	password := getEnv("REDIS_PASSWORD", "")
	if username != "" || password != "" {
		u.User = url.UserPassword(username, password)
	}
	return u.String()
}
