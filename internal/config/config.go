// Package config centralises configuration parsing for the service.
package config

import (
	"os"
	"strings"
	"time"
)

// ProviderSettings holds the OAuth and API settings for one activity provider.
type ProviderSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIBase      string
	Scope        string
}

// Config captures runtime configuration values.
type Config struct {
	Port         string
	Env          string
	LogLevel     string
	StoreBackend string // redis, postgres or sqlite
	RedisURL     string
	DatabaseURL  string
	SessionKey   string
	FrontendURL  string
	CORSOrigins  []string
	HTTPTimeout  time.Duration

	Strava ProviderSettings
	Garmin ProviderSettings

	GeminiAPIKey string
	GeminiModel  string
	CalendarURL  string
}

// Load reads environment variables into Config, applying defaults for local dev.
func Load() Config {
	frontend := getEnv("FRONTEND_URL", "http://localhost:5173")
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "redis")),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SessionKey:   os.Getenv("SESSION_KEY"),
		FrontendURL:  strings.TrimRight(frontend, "/"),
		CORSOrigins:  splitAndTrim(getEnv("CORS_ORIGIN", frontend)),
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		Strava: ProviderSettings{
			ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
			ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("STRAVA_REDIRECT_URI"),
			AuthURL:      getEnv("STRAVA_AUTH_URL", "https://www.strava.com/oauth/authorize"),
			TokenURL:     getEnv("STRAVA_TOKEN_URL", "https://www.strava.com/oauth/token"),
			APIBase:      getEnv("STRAVA_API_BASE", "https://www.strava.com/api/v3/"),
			Scope:        getEnv("STRAVA_SCOPE", "read,activity:read_all"),
		},
		Garmin: ProviderSettings{
			ClientID:     os.Getenv("GARMIN_CLIENT_ID"),
			ClientSecret: os.Getenv("GARMIN_CLIENT_SECRET"),
			RedirectURI:  getEnv("GARMIN_REDIRECT_URI", frontend),
			AuthURL:      os.Getenv("GARMIN_AUTH_URL"),
			TokenURL:     os.Getenv("GARMIN_TOKEN_URL"),
			APIBase:      os.Getenv("GARMIN_API_BASE"),
			Scope:        getEnv("GARMIN_SCOPE", "activities"),
		},
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		CalendarURL:  os.Getenv("COACH_CALENDAR_URL"),
	}
	return cfg
}

// Production reports whether cookies and redirects should assume HTTPS.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
