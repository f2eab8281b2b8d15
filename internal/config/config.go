package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the process configuration, read from the environment
type Config struct {
	Env   string
	Debug bool

	BotToken string  `validate:"required"`
	AdminIDs []int64 `validate:"required,min=1"`

	DBPath string `validate:"required"`

	Transport     string `validate:"oneof=polling webhook"`
	WebhookURL    string `validate:"required_if=Transport webhook"`
	WebhookSecret string `validate:"omitempty,max=256"`
	HTTPAddr      string `validate:"required"`

	SheetKey             string
	SheetCredentials     string `validate:"required_with=SheetKey"`
	OrdersSheet          string `validate:"required"`
	PlatformsSheet       string `validate:"required"`
	ReportUTCOffsetHours int    `validate:"min=-12,max=14"`

	ReplicationQueueSize    int `validate:"min=1"`
	ReplicationDrainTimeout time.Duration
	ReplicationCallTimeout  time.Duration

	OrdersPerPage int `validate:"min=1,max=50"`

	SessionBackend string `validate:"oneof=memory redis"`
	RedisAddr      string `validate:"required_if=SessionBackend redis"`
	RedisPassword  string
	RedisDB        int `validate:"min=0"`
	SessionTTL     time.Duration

	OperatorAPIKey    string
	OperatorAPISecret string `validate:"required_with=OperatorAPIKey"`
	JWTSecret         string `validate:"required_with=OperatorAPIKey"`

	UserRateLimitPerMin int `validate:"min=0"`
}

// IsProduction reports whether ENV=production
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SheetURL is the browser link to the report spreadsheet, empty when none is configured
func (c Config) SheetURL() string {
	if c.SheetKey == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + c.SheetKey
}

// Load reads .env when present, then the environment, and validates the result
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := Config{
		Env:               getEnv("ENV", "development"),
		BotToken:          getEnv("BOT_TOKEN", ""),
		DBPath:            getEnv("DB_PATH", "orders.db"),
		Transport:         strings.ToLower(getEnv("TRANSPORT", "polling")),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		SheetKey:          getEnv("GOOGLE_SHEET_KEY", ""),
		SheetCredentials:  getEnv("GOOGLE_SHEETS_CREDENTIALS", ""),
		OrdersSheet:       getEnv("ORDERS_SHEET_NAME", "Orders"),
		PlatformsSheet:    getEnv("PLATFORMS_SHEET_NAME", "Platforms"),
		SessionBackend:    strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		OperatorAPIKey:    getEnv("OPERATOR_API_KEY", ""),
		OperatorAPISecret: getEnv("OPERATOR_API_SECRET", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
	}

	var err error
	if cfg.Debug, err = getEnvBool("DEBUG", false); err != nil {
		return Config{}, fmt.Errorf("invalid DEBUG: %w", err)
	}
	if cfg.AdminIDs, err = parseIDs(getEnv("ADMIN_IDS", "")); err != nil {
		return Config{}, fmt.Errorf("invalid ADMIN_IDS: %w", err)
	}
	if cfg.ReportUTCOffsetHours, err = getEnvInt("REPORT_UTC_OFFSET_HOURS", 3); err != nil {
		return Config{}, fmt.Errorf("invalid REPORT_UTC_OFFSET_HOURS: %w", err)
	}
	if cfg.ReplicationQueueSize, err = getEnvInt("REPLICATION_QUEUE_SIZE", 256); err != nil {
		return Config{}, fmt.Errorf("invalid REPLICATION_QUEUE_SIZE: %w", err)
	}
	if cfg.ReplicationDrainTimeout, err = getEnvDuration("REPLICATION_DRAIN_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, fmt.Errorf("invalid REPLICATION_DRAIN_TIMEOUT: %w", err)
	}
	if cfg.ReplicationCallTimeout, err = getEnvDuration("REPLICATION_CALL_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, fmt.Errorf("invalid REPLICATION_CALL_TIMEOUT: %w", err)
	}
	if cfg.OrdersPerPage, err = getEnvInt("ORDERS_PER_PAGE", 5); err != nil {
		return Config{}, fmt.Errorf("invalid ORDERS_PER_PAGE: %w", err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 0); err != nil {
		return Config{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.UserRateLimitPerMin, err = getEnvInt("USER_RATE_LIMIT_PER_MIN", 60); err != nil {
		return Config{}, fmt.Errorf("invalid USER_RATE_LIMIT_PER_MIN: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.ReplicationDrainTimeout < 0 || c.ReplicationCallTimeout <= 0 || c.SessionTTL < 0 {
		return fmt.Errorf("invalid configuration: replication timeouts and SESSION_TTL must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

// parseIDs reads a comma-separated list of Telegram user ids
func parseIDs(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
