package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/receipt-directory/constants"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig
	Supabase SupabaseConfig
	Database DatabaseConfig
	SQLite   SQLiteConfig
	Server   ServerConfig
	Export   ExportConfig
	Storage  StorageConfig
}

// StoreConfig selects where expense records are read from.
type StoreConfig struct {
	Backend     string
	RecordsFile string
	UserID      string
}

type SupabaseConfig struct {
	URL string
	Key string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

type SQLiteConfig struct {
	Path string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// ExportConfig tunes receipt downloads and archive jobs.
type ExportConfig struct {
	OutputDir        string
	FetchTimeout     time.Duration
	FetchConcurrency int
	MaxReceiptBytes  int64
	IncludeManifest  bool
}

// StorageConfig configures object storage fetchers.
type StorageConfig struct {
	S3Region string
}

// LoadConfig loads configuration from environment variables, reading a .env file first
// when one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", constants.BackendSupabase),
			RecordsFile: getEnv("RECORDS_FILE", ""),
			UserID:      getEnv("RECEIPTS_USER_ID", ""),
		},
		Supabase: SupabaseConfig{
			URL: getEnv("SUPABASE_URL", ""),
			Key: getEnv("SUPABASE_KEY", ""),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_DB_PATH", "./data/receipts.db"),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Export: ExportConfig{
			OutputDir:        getEnv("EXPORT_DIR", "."),
			FetchTimeout:     getEnvAsDuration("EXPORT_FETCH_TIMEOUT", 30*time.Second),
			FetchConcurrency: getEnvAsInt("EXPORT_FETCH_CONCURRENCY", 1),
			MaxReceiptBytes:  getEnvAsInt64("EXPORT_MAX_RECEIPT_BYTES", 25<<20),
			IncludeManifest:  getEnvAsBool("EXPORT_INCLUDE_MANIFEST", false),
		},
		Storage: StorageConfig{
			S3Region: getEnv("AWS_REGION", ""),
		},
	}
}

// FileConfig is the on-disk shape of a --config file. Empty fields leave the
// environment values in place.
type FileConfig struct {
	Store struct {
		Backend     string `yaml:"backend" toml:"backend" json:"backend"`
		RecordsFile string `yaml:"records_file" toml:"records_file" json:"records_file"`
		UserID      string `yaml:"user_id" toml:"user_id" json:"user_id"`
	} `yaml:"store" toml:"store" json:"store"`
	Supabase struct {
		URL string `yaml:"url" toml:"url" json:"url"`
		Key string `yaml:"key" toml:"key" json:"key"`
	} `yaml:"supabase" toml:"supabase" json:"supabase"`
	Database struct {
		DSN string `yaml:"dsn" toml:"dsn" json:"dsn"`
	} `yaml:"database" toml:"database" json:"database"`
	SQLite struct {
		Path string `yaml:"path" toml:"path" json:"path"`
	} `yaml:"sqlite" toml:"sqlite" json:"sqlite"`
	Export struct {
		OutputDir        string `yaml:"output_dir" toml:"output_dir" json:"output_dir"`
		FetchTimeout     string `yaml:"fetch_timeout" toml:"fetch_timeout" json:"fetch_timeout"`
		FetchConcurrency int    `yaml:"fetch_concurrency" toml:"fetch_concurrency" json:"fetch_concurrency"`
		IncludeManifest  *bool  `yaml:"include_manifest" toml:"include_manifest" json:"include_manifest"`
	} `yaml:"export" toml:"export" json:"export"`
	Storage struct {
		S3Region string `yaml:"s3_region" toml:"s3_region" json:"s3_region"`
	} `yaml:"storage" toml:"storage" json:"storage"`
}

// LoadConfigFile reads a TOML, YAML or JSON file and overlays it on c.
func (c *Config) LoadConfigFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error accessing config file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
	return c.apply(&fc)
}

func (c *Config) apply(fc *FileConfig) error {
	setString(&c.Store.Backend, fc.Store.Backend)
	setString(&c.Store.RecordsFile, fc.Store.RecordsFile)
	setString(&c.Store.UserID, fc.Store.UserID)
	setString(&c.Supabase.URL, fc.Supabase.URL)
	setString(&c.Supabase.Key, fc.Supabase.Key)
	setString(&c.Database.DSN, fc.Database.DSN)
	setString(&c.SQLite.Path, fc.SQLite.Path)
	setString(&c.Export.OutputDir, fc.Export.OutputDir)
	setString(&c.Storage.S3Region, fc.Storage.S3Region)
	if fc.Export.FetchTimeout != "" {
		d, err := time.ParseDuration(fc.Export.FetchTimeout)
		if err != nil {
			return fmt.Errorf("export.fetch_timeout: %w", err)
		}
		c.Export.FetchTimeout = d
	}
	if fc.Export.FetchConcurrency != 0 {
		c.Export.FetchConcurrency = fc.Export.FetchConcurrency
	}
	if fc.Export.IncludeManifest != nil {
		c.Export.IncludeManifest = *fc.Export.IncludeManifest
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Backend {
	case constants.BackendSupabase:
		if c.Supabase.URL == "" {
			problems = append(problems, "SUPABASE_URL is required for the supabase backend")
		}
		if c.Supabase.Key == "" {
			problems = append(problems, "SUPABASE_KEY is required for the supabase backend")
		}
	case constants.BackendPostgres:
		if c.Database.DSN == "" {
			problems = append(problems, "DB_URL is required for the postgres backend")
		}
	case constants.BackendSQLite:
		if c.SQLite.Path == "" {
			problems = append(problems, "SQLITE_DB_PATH is required for the sqlite backend")
		}
	case constants.BackendFile:
		if c.Store.RecordsFile == "" {
			problems = append(problems, "RECORDS_FILE is required for the file backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.Store.Backend,
			[]string{constants.BackendSupabase, constants.BackendPostgres, constants.BackendSQLite, constants.BackendFile}))
	}

	if c.Server.GRPCAddr == "" {
		problems = append(problems, "GRPC_ADDR is required")
	}
	if c.Export.FetchConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("invalid fetch concurrency %d: must be at least 1", c.Export.FetchConcurrency))
	}
	if c.Export.FetchTimeout < 0 {
		problems = append(problems, "EXPORT_FETCH_TIMEOUT must not be negative")
	}
	if c.Export.MaxReceiptBytes <= 0 {
		problems = append(problems, "EXPORT_MAX_RECEIPT_BYTES must be positive")
	}

	if len(problems) > 0 {
		return NewAppError("CONFIG_ERROR", strings.Join(problems, "; "), ErrInvalidInput)
	}
	return nil
}
