package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Bot      BotConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	AdminAPI AdminAPIConfig
	Sheets   SheetsConfig
	Storage  StorageConfig
	Speech   SpeechConfig
	Notify   NotifyConfig
}

// NotifyConfig holds the optional operations webhook endpoint.
type NotifyConfig struct {
	WebhookURL string
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// BotConfig holds chat transport parameters.
type BotConfig struct {
	APIToken      string
	APIBaseURL    string
	FileBaseURL   string
	AdminID       int64
	WebhookSecret string
	MaxPhotos     int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AdminAPIConfig defines the roster REST surface credentials.
type AdminAPIConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	PasswordHash          string
	BcryptCost            int
}

// SheetsConfig points at the spreadsheet mirror.
type SheetsConfig struct {
	BaseURL       string
	SpreadsheetID string
	WorksheetName string
	AccessToken   string
}

// StorageConfig points at the object storage that receives uploaded photos.
type StorageConfig struct {
	EndpointURL string
	Bucket      string
	AccessKey   string
	SecretKey   string
	PublicURL   string
}

// SpeechConfig points at the speech-to-text endpoint.
type SpeechConfig struct {
	EndpointURL    string
	APIKey         string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	adminID, err := strconv.ParseInt(getEnv("ADMIN_TELEGRAM_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "feedback-intake-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Bot: BotConfig{
			APIToken:      os.Getenv("BOT_API_TOKEN"),
			APIBaseURL:    getEnv("BOT_API_BASE_URL", "https://api.telegram.org"),
			FileBaseURL:   getEnv("BOT_FILE_BASE_URL", "https://api.telegram.org/file"),
			AdminID:       adminID,
			WebhookSecret: os.Getenv("BOT_WEBHOOK_SECRET"),
			MaxPhotos:     getEnvAsInt("BOT_MAX_PHOTOS", 3),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		AdminAPI: AdminAPIConfig{
			JWTSecret:             getEnv("ADMIN_API_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("ADMIN_API_TOKEN_TTL_MINUTES", 60),
			PasswordHash:          os.Getenv("ADMIN_API_PASSWORD_HASH"),
			BcryptCost:            getEnvAsInt("ADMIN_API_BCRYPT_COST", 12),
		},
		Sheets: SheetsConfig{
			BaseURL:       getEnv("SHEETS_BASE_URL", "https://sheets.googleapis.com"),
			SpreadsheetID: os.Getenv("SPREADSHEET_ID"),
			WorksheetName: getEnv("WORKSHEET_NAME", "Report"),
			AccessToken:   os.Getenv("SHEETS_ACCESS_TOKEN"),
		},
		Storage: StorageConfig{
			EndpointURL: os.Getenv("S3_ENDPOINT_URL"),
			Bucket:      os.Getenv("S3_BUCKET_NAME"),
			AccessKey:   os.Getenv("S3_ACCESS_KEY"),
			SecretKey:   os.Getenv("S3_SECRET_KEY"),
			PublicURL:   os.Getenv("S3_PUBLIC_URL"),
		},
		Speech: SpeechConfig{
			EndpointURL:    os.Getenv("STT_ENDPOINT_URL"),
			APIKey:         os.Getenv("STT_API_KEY"),
			TimeoutSeconds: getEnvAsInt("STT_TIMEOUT_SECONDS", 30),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if cfg.Bot.APIToken == "" {
		return nil, fmt.Errorf("BOT_API_TOKEN is required")
	}
	if cfg.Bot.AdminID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is required")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
