// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store formats accepted by STORE_FORMAT.
const (
	StoreFormatJSON    = "json"
	StoreFormatMsgpack = "msgpack"
	StoreFormatSQLite  = "sqlite"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the store, cache database and report (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	LookbackDays   int
	ReleaseBaseURL string // Monthly spreadsheet releases, e.g. .../m_release
	DailyBaseURL   string // Daily results/offer pages
	FetchWorkers   int
	FetchRate      float64 // Requests per second shared by all fetchers
	HTTPTimeout    time.Duration

	StoreFormat string
	StoreFile   string
	ReportFile  string

	RefreshSchedule     string // cron expression with seconds field
	MaintenanceSchedule string
	MinFreeDiskGB       float64

	S3 *S3Config
}

// S3Config holds settings for publishing the report and store snapshot.
// Publishing is disabled when Bucket is empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional, for S3-compatible providers (R2, MinIO)
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string

	SnapshotSchedule      string
	SnapshotRetentionDays int
}

// Enabled reports whether publishing is configured.
func (c *S3Config) Enabled() bool {
	return c != nil && c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BOJOPS_DATA_DIR", "data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	format := strings.ToLower(getEnv("STORE_FORMAT", StoreFormatJSON))

	cfg := &Config{
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LookbackDays:    getEnvAsInt("LOOKBACK_DAYS", 1050),
		ReleaseBaseURL:  getEnv("RELEASE_BASE_URL", "https://www.boj.or.jp/en/statistics/boj/fm/ope/m_release"),
		DailyBaseURL:    getEnv("DAILY_BASE_URL", "https://www3.boj.or.jp/market/en/stat"),
		FetchWorkers:    getEnvAsInt("FETCH_WORKERS", 4),
		FetchRate:       getEnvAsFloat("FETCH_RATE_PER_SEC", 2),
		HTTPTimeout:     time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		StoreFormat:     format,
		StoreFile:       resolvePath(absDataDir, getEnv("STORE_FILE", defaultStoreFile(format))),
		ReportFile:      resolvePath(absDataDir, getEnv("REPORT_FILE", "BOJ_plot.pdf")),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 30 18 * * MON-FRI"),
		S3:              loadS3Config(),

		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
		MinFreeDiskGB:       getEnvAsFloat("MIN_FREE_DISK_GB", 0.5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.StoreFormat {
	case StoreFormatJSON, StoreFormatMsgpack, StoreFormatSQLite:
	default:
		return fmt.Errorf("invalid STORE_FORMAT %q (must be json, msgpack or sqlite)", c.StoreFormat)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("LOOKBACK_DAYS must be positive, got %d", c.LookbackDays)
	}
	if c.FetchWorkers <= 0 {
		return fmt.Errorf("FETCH_WORKERS must be positive, got %d", c.FetchWorkers)
	}
	if c.FetchRate <= 0 {
		return fmt.Errorf("FETCH_RATE_PER_SEC must be positive, got %g", c.FetchRate)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.ReleaseBaseURL == "" || c.DailyBaseURL == "" {
		return fmt.Errorf("RELEASE_BASE_URL and DAILY_BASE_URL are required")
	}
	return nil
}

// CacheDBPath is the SQLite file holding raw downloaded releases and pages.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultStoreFile(format string) string {
	switch format {
	case StoreFormatMsgpack:
		return "BOJ_Ops.msgpack"
	case StoreFormatSQLite:
		return "BOJ_Ops.db"
	default:
		return "BOJ_Ops.json"
	}
}

func resolvePath(dataDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}

func loadS3Config() *S3Config {
	return &S3Config{
		Bucket:          getEnv("S3_BUCKET", ""),
		Region:          getEnv("S3_REGION", "auto"),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("S3_PREFIX", "bojops/"),

		SnapshotSchedule:      getEnv("S3_SNAPSHOT_SCHEDULE", "0 0 3 * * SUN"),
		SnapshotRetentionDays: getEnvAsInt("S3_SNAPSHOT_RETENTION_DAYS", 90),
	}
}
