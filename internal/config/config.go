package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Database    DatabaseConfig
	Coupang     CoupangConfig
	Source      SourceConfig
	Category    CategoryConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Media       MediaConfig
	Approval    ApprovalConfig
	API         APIConfig
	WebhookURL  string // UPLOAD_WEBHOOK_URL: receives a JSON event for every finished upload
	// Defaults are the process-level settings a request may override
	Defaults Settings
}

// DatabaseConfig is optional; an empty Host disables upload records
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Enabled reports whether a database was configured
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// CoupangConfig is the seller account used to call the marketplace API
type CoupangConfig struct {
	BaseURL                   string
	AccessKey                 string
	SecretKey                 string
	VendorID                  string
	VendorUserID              string
	DeliveryCompanyCode       string
	OutboundShippingPlaceCode int64
	Timeout                   time.Duration
	RequestsPerSecond         float64
}

// SourceConfig controls how wholesale pages are fetched
type SourceConfig struct {
	StorageStatePath string // DOMEGGOOK_STORAGE_STATE: browser storage-state JSON with login cookies
	Timeout          time.Duration
}

type CategoryConfig struct {
	RulesPath string // generated keyword rules (JSON array)
	MapJSON   string // DOMEGGOOK_CATEGORY_MAP_JSON: extra rules, lowest precedence
	CacheTTL  time.Duration
}

// RedisConfig is optional; an empty Addr keeps the category cache in process
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; no brokers disables upload events on Kafka
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MediaConfig struct {
	OutDir         string // downloaded images are written here and served under /images
	LocalImageBase string // public base URL of OutDir
	Concurrency    int
}

type ApprovalConfig struct {
	Attempts int
	Delay    time.Duration
}

type APIConfig struct {
	KeyHash string // API_KEY_HASH: bcrypt hash of the key required on /v1; empty disables auth
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	port := getEnvOrViper("PORT", "3000")
	cfg := &Config{
		Port:        port,
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     strings.TrimSpace(getEnvOrViper("DB_HOST", "")),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "relister"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Coupang: CoupangConfig{
			BaseURL:                   strings.TrimSuffix(getEnvOrViper("COUPANG_BASE_URL", "https://api-gateway.coupang.com"), "/"),
			AccessKey:                 strings.TrimSpace(getEnvOrViper("COUPANG_ACCESS_KEY", "")),
			SecretKey:                 strings.TrimSpace(getEnvOrViper("COUPANG_SECRET_KEY", "")),
			VendorID:                  strings.TrimSpace(getEnvOrViper("COUPANG_VENDOR_ID", "")),
			VendorUserID:              strings.TrimSpace(getEnvOrViper("COUPANG_VENDOR_USER_ID", "")),
			DeliveryCompanyCode:       strings.TrimSpace(getEnvOrViper("COUPANG_DELIVERY_COMPANY_CODE", "")),
			OutboundShippingPlaceCode: getInt64("COUPANG_OUTBOUND_SHIPPING_PLACE_CODE", 24093380),
			Timeout:                   getDuration("COUPANG_TIMEOUT", 30*time.Second),
			RequestsPerSecond:         getFloat("COUPANG_REQUESTS_PER_SECOND", 5),
		},
		Source: SourceConfig{
			StorageStatePath: getEnvOrViper("DOMEGGOOK_STORAGE_STATE", "storageState.json"),
			Timeout:          getDuration("SOURCE_TIMEOUT", 90*time.Second),
		},
		Category: CategoryConfig{
			RulesPath: getEnvOrViper("CATEGORY_RULES_PATH", "data/categoryRules.generated.json"),
			MapJSON:   getEnvOrViper("DOMEGGOOK_CATEGORY_MAP_JSON", ""),
			CacheTTL:  getDuration("CATEGORY_CACHE_TTL", 6*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getEnvOrViper("REDIS_ADDR", "")),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       int(getInt64("REDIS_DB", 0)),
		},
		Kafka: KafkaConfig{
			Brokers: SplitList(getEnvOrViper("KAFKA_BROKERS", "")),
			Topic:   getEnvOrViper("KAFKA_UPLOAD_TOPIC", "relister.uploads"),
		},
		Media: MediaConfig{
			OutDir:         getEnvOrViper("OUT_DIR", "out"),
			LocalImageBase: strings.TrimSuffix(getEnvOrViper("LOCAL_IMAGE_BASE", "http://localhost:"+port+"/images"), "/"),
			Concurrency:    int(getInt64("IMAGE_DOWNLOAD_CONCURRENCY", 6)),
		},
		Approval: ApprovalConfig{
			Attempts: int(getInt64("APPROVAL_POLL_ATTEMPTS", 3)),
			Delay:    getDuration("APPROVAL_POLL_DELAY", 5*time.Second),
		},
		API: APIConfig{
			KeyHash: strings.TrimSpace(getEnvOrViper("API_KEY_HASH", "")),
		},
		WebhookURL: strings.TrimSpace(getEnvOrViper("UPLOAD_WEBHOOK_URL", "")),
	}
	cfg.Defaults = defaultSettings()

	if cfg.Approval.Attempts < 1 {
		return nil, fmt.Errorf("APPROVAL_POLL_ATTEMPTS must be at least 1")
	}
	if cfg.Coupang.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("COUPANG_REQUESTS_PER_SECOND must be positive")
	}

	return cfg, nil
}

// defaultSettings reads the process-level defaults for per-request settings
func defaultSettings() Settings {
	var s Settings
	s.MarginRate = numberFromEnv("MARGIN_RATE")
	s.MarginAdd = numberFromEnv("MARGIN_ADD")
	s.PriceMin = numberFromEnv("PRICE_MIN")
	s.PriceMax = numberFromEnv("PRICE_MAX")
	s.RoundUnit = numberFromEnv("PRICE_ROUND_UNIT")
	s.MaxContentImages = numberFromEnv("MAX_CONTENT_IMAGES")
	s.AllowedIPs = getEnvOrViper("COUPANG_ALLOWED_IPS", "")
	s.AutoCategoryMatch = flagFromEnv("AUTO_CATEGORY_MATCH")
	s.AutoCategoryRecommend = flagFromEnv("AUTO_CATEGORY_RECOMMEND")
	s.AutoRequest = flagFromEnv("AUTO_REQUEST")
	return s
}

// SplitList splits a comma separated value, dropping blanks
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(getEnvOrViper(key, "")), 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(getEnvOrViper(key, "")), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getDuration accepts Go durations ("5s") or a bare number of milliseconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnvOrViper(key, ""))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func numberFromEnv(key string) Number {
	raw := strings.TrimSpace(getEnvOrViper(key, ""))
	f, err := strconv.ParseFloat(raw, 64)
	if raw == "" || err != nil {
		return Number{}
	}
	return Number{Value: f, Set: true}
}

func flagFromEnv(key string) Flag {
	raw := strings.TrimSpace(getEnvOrViper(key, ""))
	if raw == "" {
		return Flag{}
	}
	return Flag{Value: parseFlag(raw), Set: true}
}
