package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	AWS        AWSConfig
	Hosting    HostingConfig
	Notetaker  NotetakerConfig
	Share      ShareConfig
	Sweeper    SweeperConfig
	Dispatcher DispatcherConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/meetscribe?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the raw-capture S3 bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	CapturesBucket       string
	PresignExpireMinutes int
}

// HostingConfig holds the external video hosting / transcoding service settings.
type HostingConfig struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
}

// NotetakerConfig holds the external meeting-bot service settings.
type NotetakerConfig struct {
	BaseURL string
	APIKey  string
}

// ShareConfig holds share-link settings: rate limit window and the public origin
// used to build external share URLs (<origin>/shared/<token>).
type ShareConfig struct {
	PublicOrigin  string
	MaxRequests   int
	WindowSeconds int
}

// SweeperConfig holds stale-recording sweep settings.
type SweeperConfig struct {
	StaleHours      int
	IntervalMinutes int
}

// DispatcherConfig holds notetaker queue dispatch settings.
type DispatcherConfig struct {
	PollSeconds int
	BatchSize   int
	LeadMinutes int // dispatch the bot this many minutes before the event starts
	MaxAttempts int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/meetscribe?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "meetscribe"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			CapturesBucket:       getEnv("AWS_S3_CAPTURES_BUCKET", "meetscribe-captures-bucket"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Hosting: HostingConfig{
			BaseURL:     getEnv("HOSTING_BASE_URL", "https://api.mux.com"),
			TokenID:     getEnv("HOSTING_TOKEN_ID", ""),
			TokenSecret: getEnv("HOSTING_TOKEN_SECRET", ""),
		},
		Notetaker: NotetakerConfig{
			BaseURL: getEnv("NOTETAKER_BASE_URL", ""),
			APIKey:  getEnv("NOTETAKER_API_KEY", ""),
		},
		Share: ShareConfig{
			PublicOrigin:  getEnv("SHARE_PUBLIC_ORIGIN", "http://localhost:3000"),
			MaxRequests:   getEnvInt("SHARE_RATE_MAX_REQUESTS", 10),
			WindowSeconds: getEnvInt("SHARE_RATE_WINDOW_SEC", 60),
		},
		Sweeper: SweeperConfig{
			StaleHours:      getEnvInt("SWEEP_STALE_HOURS", 12),
			IntervalMinutes: getEnvInt("SWEEP_INTERVAL_MINUTES", 60),
		},
		Dispatcher: DispatcherConfig{
			PollSeconds: getEnvInt("DISPATCH_POLL_SEC", 15),
			BatchSize:   getEnvInt("DISPATCH_BATCH_SIZE", 10),
			LeadMinutes: getEnvInt("DISPATCH_LEAD_MINUTES", 1),
			MaxAttempts: getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
