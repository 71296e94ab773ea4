package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Archive backends.
const (
	ArchiveFilesystem = "filesystem"
	ArchiveGCS        = "gcs"
	ArchiveS3         = "s3"
)

// Directory backends serving zones and tenants.
const (
	DirectoryMongoDB = "mongodb"
	DirectorySheets  = "sheets"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	MongoDB   MongoDBConfig
	Directory DirectoryConfig
	Sheets    SheetsConfig
	Intake    IntakeConfig
	Reporting ReportingConfig
	Archive   ArchiveConfig
	Lock      LockConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// DirectoryConfig selects where zones and tenants are read from.
type DirectoryConfig struct {
	Backend string
}

// SheetsConfig contains configuration required to read the directory from Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ZonesRange      string
	TenantsRange    string
}

// IntakeConfig controls observation intake.
type IntakeConfig struct {
	// PolicyFile is an optional YAML conformity policy; built-in bounds apply when empty.
	PolicyFile string
	// AllowUntenanted admits observations without a tenant id.
	AllowUntenanted bool
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	CycleTimeout time.Duration
	Workers      int

	// Location is resolved from Timezone by Validate.
	Location *time.Location
}

// ArchiveConfig selects and configures the archive backend.
type ArchiveConfig struct {
	Backend string
	Dir     string

	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsJSON string

	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string
}

// LockConfig selects the key lock used around report publication.
type LockConfig struct {
	Backend   string
	RedisAddr string
	RedisDB   int
	TTL       time.Duration
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cycleTimeout, err := getDurationWithDefault("REPORT_CYCLE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	workers, err := getIntWithDefault("REPORT_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getDurationWithDefault("REPORT_LOCK_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	redisDB, err := getIntWithDefault("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	allowUntenanted, err := getBoolWithDefault("INTAKE_ALLOW_UNTENANTED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "4000"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "haccp"),
		},
		Directory: DirectoryConfig{
			Backend: getenvWithDefault("DIRECTORY_BACKEND", DirectoryMongoDB),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
			ZonesRange:      getenvWithDefault("SHEETS_ZONES_RANGE", "Zones!A2:D"),
			TenantsRange:    getenvWithDefault("SHEETS_TENANTS_RANGE", "Tenants!A2:B"),
		},
		Intake: IntakeConfig{
			PolicyFile:      os.Getenv("CONFORMITY_POLICY_FILE"),
			AllowUntenanted: allowUntenanted,
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 3 1 * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Europe/Paris"),
			CycleTimeout: cycleTimeout,
			Workers:      workers,
		},
		Archive: ArchiveConfig{
			Backend:            getenvWithDefault("ARCHIVE_BACKEND", ArchiveFilesystem),
			Dir:                getenvWithDefault("ARCHIVE_DIR", "./archives"),
			GCSBucket:          os.Getenv("GCS_BUCKET"),
			GCSPrefix:          os.Getenv("GCS_PREFIX"),
			GCSCredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),
			S3Bucket:           os.Getenv("S3_BUCKET"),
			S3Prefix:           os.Getenv("S3_PREFIX"),
			S3Region:           getenvWithDefault("AWS_REGION", "eu-west-3"),
			S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		},
		Lock: LockConfig{
			Backend:   getenvWithDefault("LOCK_BACKEND", LockLocal),
			RedisAddr: getenvWithDefault("REDIS_ADDRESS", "localhost:6379"),
			RedisDB:   redisDB,
			TTL:       lockTTL,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	switch c.Directory.Backend {
	case DirectoryMongoDB:
	case DirectorySheets:
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided for the sheets directory")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEETS_SPREADSHEET_ID must be provided for the sheets directory")
		}
	default:
		return fmt.Errorf("DIRECTORY_BACKEND %q is not supported", c.Directory.Backend)
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Reporting.Timezone, err)
	}
	c.Reporting.Location = loc

	if c.Reporting.CycleTimeout <= 0 {
		return errors.New("REPORT_CYCLE_TIMEOUT must be positive")
	}
	if c.Reporting.Workers <= 0 {
		return errors.New("REPORT_WORKERS must be positive")
	}

	switch c.Archive.Backend {
	case ArchiveFilesystem:
		if c.Archive.Dir == "" {
			return errors.New("ARCHIVE_DIR must be provided for the filesystem backend")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return errors.New("GCS_BUCKET must be provided for the gcs backend")
		}
	case ArchiveS3:
		if c.Archive.S3Bucket == "" {
			return errors.New("S3_BUCKET must be provided for the s3 backend")
		}
	default:
		return fmt.Errorf("ARCHIVE_BACKEND %q is not supported", c.Archive.Backend)
	}

	switch c.Lock.Backend {
	case LockLocal:
	case LockRedis:
		if c.Lock.RedisAddr == "" {
			return errors.New("REDIS_ADDRESS must be provided for the redis lock")
		}
		if c.Lock.TTL <= c.Reporting.CycleTimeout {
			return errors.New("REPORT_LOCK_TTL must exceed REPORT_CYCLE_TIMEOUT")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND %q is not supported", c.Lock.Backend)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getIntWithDefault(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getBoolWithDefault(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
