// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/AutoSEM/utils"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Security  SecurityConfig  `json:"security"`
	JWT       JWTConfig       `json:"jwt"`
	Admin     AdminConfig     `json:"admin"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Cache     CacheConfig     `json:"cache"`
	Meta      MetaConfig      `json:"meta"`
	TikTok    TikTokConfig    `json:"tiktok"`
	GoogleAds GoogleAdsConfig `json:"google_ads"`
	Shopify   ShopifyConfig   `json:"shopify"`
	Klaviyo   KlaviyoConfig   `json:"klaviyo"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
}

type SecurityConfig struct {
	AllowedOrigins  []string `json:"allowed_origins"`
	AuthRateLimit   int      `json:"auth_rate_limit"`   // requests per minute
	GlobalRateLimit int      `json:"global_rate_limit"` // requests per minute
}

type JWTConfig struct {
	SecretKey       string        `json:"secret_key"`
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
	Issuer          string        `json:"issuer"`
	Audience        string        `json:"audience"`
}

// AdminConfig holds the single operator account. PasswordHash is a bcrypt
// hash; the plaintext password never appears in config.
type AdminConfig struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	NotifyEmail  string `json:"notify_email"`
}

type LoggingConfig struct {
	Level    string `json:"level"`  // debug, info, warn, error
	Output   string `json:"output"` // stdout, file, both
	Dir      string `json:"dir"`
	MaxSize  int    `json:"max_size"` // MB
	MaxAge   int    `json:"max_age"`  // days
	Compress bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type MetaConfig struct {
	AccessToken string `json:"access_token"`
	AppID       string `json:"app_id"`
	AppSecret   string `json:"app_secret"`
	AdAccountID string `json:"ad_account_id"`
}

type TikTokConfig struct {
	AccessToken  string `json:"access_token"`
	AdvertiserID string `json:"advertiser_id"`
}

type GoogleAdsConfig struct {
	DeveloperToken string `json:"developer_token"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	RefreshToken   string `json:"refresh_token"`
	CustomerID     string `json:"customer_id"`
}

type ShopifyConfig struct {
	ShopDomain  string `json:"shop_domain"`
	AccessToken string `json:"access_token"`
}

type KlaviyoConfig struct {
	APIKey string `json:"api_key"`
}

type SchedulerConfig struct {
	Enabled              bool          `json:"enabled"`
	SyncInterval         time.Duration `json:"sync_interval"`
	OptimizeInterval     time.Duration `json:"optimize_interval"`
	CatalogSyncInterval  time.Duration `json:"catalog_sync_interval"`
	TokenRefreshInterval time.Duration `json:"token_refresh_interval"`
	HeartbeatInterval    time.Duration `json:"heartbeat_interval"`
	SnapshotHourUTC      int           `json:"snapshot_hour_utc"`
	SnapshotMinuteUTC    int           `json:"snapshot_minute_utc"`
	RunOnStart           bool          `json:"run_on_start"`
}

// LoadProductionConfig loads configuration from the environment, with an
// optional .env file for local development.
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "autosem"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
		},
		Security: SecurityConfig{
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AuthRateLimit:   getEnvInt("AUTH_RATE_LIMIT", 20),
			GlobalRateLimit: getEnvInt("GLOBAL_RATE_LIMIT", 2000),
		},
		JWT: JWTConfig{
			SecretKey:       getEnvString("JWT_SECRET_KEY", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TOKEN_TTL", utils.AccessTokenTTL),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TOKEN_TTL", utils.RefreshTokenTTL),
			Issuer:          getEnvString("JWT_ISSUER", "autosem"),
			Audience:        getEnvString("JWT_AUDIENCE", "autosem-api"),
		},
		Admin: AdminConfig{
			Username:     getEnvString("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnvString("ADMIN_PASSWORD_HASH", ""),
			NotifyEmail:  getEnvString("ADMIN_NOTIFY_EMAIL", ""),
		},
		Logging: LoggingConfig{
			Level:    getEnvString("LOG_LEVEL", "info"),
			Output:   getEnvString("LOG_OUTPUT", "both"),
			Dir:      getEnvString("LOG_DIR", "logs"),
			MaxSize:  getEnvInt("LOG_MAX_SIZE", 50),
			MaxAge:   getEnvInt("LOG_MAX_AGE", 30),
			Compress: getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			RedisURL:        getEnvString("REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("REDIS_DB", 0),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Second),
		},
		Meta: MetaConfig{
			AccessToken: getEnvString("META_ACCESS_TOKEN", ""),
			AppID:       getEnvString("META_APP_ID", ""),
			AppSecret:   getEnvString("META_APP_SECRET", ""),
			AdAccountID: getEnvString("META_AD_ACCOUNT_ID", ""),
		},
		TikTok: TikTokConfig{
			AccessToken:  getEnvString("TIKTOK_ACCESS_TOKEN", ""),
			AdvertiserID: getEnvString("TIKTOK_ADVERTISER_ID", ""),
		},
		GoogleAds: GoogleAdsConfig{
			DeveloperToken: getEnvString("GOOGLE_ADS_DEVELOPER_TOKEN", ""),
			ClientID:       getEnvString("GOOGLE_ADS_CLIENT_ID", ""),
			ClientSecret:   getEnvString("GOOGLE_ADS_CLIENT_SECRET", ""),
			RefreshToken:   getEnvString("GOOGLE_ADS_REFRESH_TOKEN", ""),
			CustomerID:     getEnvString("GOOGLE_ADS_CUSTOMER_ID", ""),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  getEnvString("SHOPIFY_SHOP_DOMAIN", ""),
			AccessToken: getEnvString("SHOPIFY_ACCESS_TOKEN", ""),
		},
		Klaviyo: KlaviyoConfig{
			APIKey: getEnvString("KLAVIYO_API_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:              getEnvBool("SCHEDULER_ENABLED", true),
			SyncInterval:         getEnvDuration("SCHEDULER_SYNC_INTERVAL", 2*time.Hour),
			OptimizeInterval:     getEnvDuration("SCHEDULER_OPTIMIZE_INTERVAL", 6*time.Hour),
			CatalogSyncInterval:  getEnvDuration("SCHEDULER_CATALOG_SYNC_INTERVAL", 12*time.Hour),
			TokenRefreshInterval: getEnvDuration("SCHEDULER_TOKEN_REFRESH_INTERVAL", 24*time.Hour),
			HeartbeatInterval:    getEnvDuration("SCHEDULER_HEARTBEAT_INTERVAL", 5*time.Minute),
			SnapshotHourUTC:      getEnvInt("SCHEDULER_SNAPSHOT_HOUR_UTC", 0),
			SnapshotMinuteUTC:    getEnvInt("SCHEDULER_SNAPSHOT_MINUTE_UTC", 0),
			RunOnStart:           getEnvBool("SCHEDULER_RUN_ON_START", false),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	if cfg.JWT.SecretKey == "" {
		errors = append(errors, "JWT_SECRET_KEY is required")
	} else if len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}

	if cfg.Admin.PasswordHash == "" {
		errors = append(errors, "ADMIN_PASSWORD_HASH is required")
	}

	if cfg.Scheduler.SyncInterval <= 0 {
		errors = append(errors, "SCHEDULER_SYNC_INTERVAL must be positive")
	}
	if cfg.Scheduler.OptimizeInterval <= 0 {
		errors = append(errors, "SCHEDULER_OPTIMIZE_INTERVAL must be positive")
	}
	if cfg.Scheduler.SnapshotHourUTC < 0 || cfg.Scheduler.SnapshotHourUTC > 23 {
		errors = append(errors, "SCHEDULER_SNAPSHOT_HOUR_UTC must be between 0 and 23")
	}
	if cfg.Scheduler.SnapshotMinuteUTC < 0 || cfg.Scheduler.SnapshotMinuteUTC > 59 {
		errors = append(errors, "SCHEDULER_SNAPSHOT_MINUTE_UTC must be between 0 and 59")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Real environment always wins over the .env file
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
