package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Mongo booking archive.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Gemini.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	// Google Sheets booking log.
	SpreadsheetID   string `mapstructure:"SPREADSHEET_ID"`
	SheetRange      string `mapstructure:"SHEET_RANGE"`
	GoogleCredsPath string `mapstructure:"GOOGLE_CREDS_PATH"`

	// Inbound channel webhook and outbound send API.
	WebhookVerifyToken string `mapstructure:"WEBHOOK_VERIFY_TOKEN"`
	PageID             string `mapstructure:"PAGE_ID"`
	PageAccessToken    string `mapstructure:"PAGE_ACCESS_TOKEN"`

	// Escalation notifications.
	ModeratorWebhookURL string `mapstructure:"MODERATOR_WEBHOOK_URL"`

	// Business profile.
	BusinessName   string   `mapstructure:"BUSINESS_NAME"`
	BotName        string   `mapstructure:"BOT_NAME"`
	BusinessTZ     string   `mapstructure:"BUSINESS_TZ"`
	Location       string   `mapstructure:"LOCATION"`
	TimeSlots      []string `mapstructure:"TIME_SLOTS"`
	CommitTriggers []string `mapstructure:"COMMIT_TRIGGERS"`

	// Conversation tuning.
	HistoryWindow       int `mapstructure:"HISTORY_WINDOW"`
	ExtractionCadence   int `mapstructure:"EXTRACTION_CADENCE"`
	SuggestionFrequency int `mapstructure:"SUGGESTION_FREQUENCY"`
	SanitizerMaxLength  int `mapstructure:"SANITIZER_MAX_LENGTH"`

	// Session rate limiting (sliding window).
	RateLimitEnabled  bool `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitMax      int  `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWarnAt   int  `mapstructure:"RATE_LIMIT_WARN_AT"`
	RateLimitWindowS  int  `mapstructure:"RATE_LIMIT_WINDOW_S"`
	RateLimitCooldown int  `mapstructure:"RATE_LIMIT_COOLDOWN_S"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "beatbook")
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("SHEET_RANGE", "Sheet1!A:I")
	viper.SetDefault("GOOGLE_CREDS_PATH", "config/credentials.json")
	viper.SetDefault("BUSINESS_NAME", "555Beatbox Academy")
	viper.SetDefault("BOT_NAME", "Luke")
	viper.SetDefault("BUSINESS_TZ", "Asia/Singapore")
	viper.SetDefault("LOCATION", "Bukit Timah Studio")
	viper.SetDefault("TIME_SLOTS", []string{"Friday 3-4pm", "Saturday 3-4pm", "Sunday 12-1pm"})
	viper.SetDefault("COMMIT_TRIGGERS", []string{"BOOKING_CONFIRMED"})
	viper.SetDefault("HISTORY_WINDOW", 25)
	viper.SetDefault("EXTRACTION_CADENCE", 5)
	viper.SetDefault("SUGGESTION_FREQUENCY", 4)
	viper.SetDefault("SANITIZER_MAX_LENGTH", 500)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_MAX", 10)
	viper.SetDefault("RATE_LIMIT_WARN_AT", 8)
	viper.SetDefault("RATE_LIMIT_WINDOW_S", 60)
	viper.SetDefault("RATE_LIMIT_COOLDOWN_S", 300)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Viper leaves list-valued env overrides as a single comma-joined string.
	if len(AppConfig.TimeSlots) == 1 && strings.Contains(AppConfig.TimeSlots[0], ",") {
		AppConfig.TimeSlots = splitAndTrim(AppConfig.TimeSlots[0])
	}
	if len(AppConfig.CommitTriggers) == 1 && strings.Contains(AppConfig.CommitTriggers[0], ",") {
		AppConfig.CommitTriggers = splitAndTrim(AppConfig.CommitTriggers[0])
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
