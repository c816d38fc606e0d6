package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration sourced from the environment.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string

	HTTPAddr string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Charge-creation provider.
	ProviderBaseURL  string
	ProviderAPIToken string
	ProviderTimeout  time.Duration
	// PostbackURL is handed to the provider at charge creation; approval
	// notifications come back to it.
	PostbackURL string

	// Telegram delivery. When the token is empty, notifications are
	// written to the log instead.
	TelegramBotToken string
	GroupInviteLink  string
}

// Load reads configuration from environment variables, honoring a local
// .env file when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "pixgate"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		DBType:     getenv("DATABASE_TYPE", "sqlite"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "pixgate"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		ProviderBaseURL:  strings.TrimRight(getenv("PROVIDER_BASE_URL", "https://api.invictuspay.app.br"), "/"),
		ProviderAPIToken: strings.TrimSpace(getenv("PROVIDER_API_TOKEN", "")),
		ProviderTimeout:  time.Duration(getenvInt("PROVIDER_TIMEOUT_SECONDS", 25)) * time.Second,
		PostbackURL:      strings.TrimSpace(getenv("POSTBACK_URL", "")),

		TelegramBotToken: strings.TrimSpace(getenv("BOT_TOKEN", "")),
		GroupInviteLink:  strings.TrimSpace(getenv("GROUP_INVITE_LINK", "")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
