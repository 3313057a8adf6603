// Package config provides centralized configuration management for quicknotes.
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables, then CLI flags. Secrets (connection strings and
// keys) are read from the environment only.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/quicknotes/internal/crypto"
	"github.com/kuitang/quicknotes/internal/logutil"
	"github.com/kuitang/quicknotes/internal/ratelimit"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

const (
	defaultListenAddr      = ":8080"
	defaultAPIURL          = "http://localhost:8080"
	defaultMongoDatabase   = "notes_app"
	defaultMongoCollection = "notes"
	defaultDatabasePath    = "./data/notes.db"
	defaultS3Region        = "auto"
	defaultS3Prefix        = "notes/"
	defaultConnectTimeout  = 10 * time.Second
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string

	// Terminal client settings
	APIURL  string
	LogFile string // empty discards TUI logs

	Store     StoreConfig
	RateLimit ratelimit.Config
}

// StoreConfig selects and configures the note store backend.
type StoreConfig struct {
	Backend        string
	ConnectTimeout time.Duration

	// MongoDB
	MongoURI        string // MONGODB_URI, env only
	MongoDatabase   string
	MongoCollection string

	// SQLite
	DatabasePath string
	DatabaseKey  string // 64 hex characters, optional, env only
	// DatabaseMasterKey derives DatabaseKey when set. Env only.
	DatabaseMasterKey string

	// S3 (uses the standard AWS_ env vars)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3Prefix          string
}

// Flags carries CLI flag values; empty fields leave lower layers in place.
type Flags struct {
	ConfigFile string
	Addr       string
	Backend    string
	APIURL     string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// fileConfig is the YAML file layout.
type fileConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	APIURL     string `yaml:"api_url"`
	LogFile    string `yaml:"log_file"`
	Store      struct {
		Backend         string        `yaml:"backend"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout"`
		MongoDatabase   string        `yaml:"mongodb_database"`
		MongoCollection string        `yaml:"mongodb_collection"`
		DatabasePath    string        `yaml:"database_path"`
		S3Endpoint      string        `yaml:"s3_endpoint"`
		S3Region        string        `yaml:"s3_region"`
		S3Bucket        string        `yaml:"s3_bucket"`
		S3Prefix        string        `yaml:"s3_prefix"`
	} `yaml:"store"`
	RateLimit struct {
		RPS             float64       `yaml:"rps"`
		Burst           int           `yaml:"burst"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
	} `yaml:"rate_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr: defaultListenAddr,
		APIURL:     defaultAPIURL,
		Store: StoreConfig{
			Backend:         BackendMongo,
			ConnectTimeout:  defaultConnectTimeout,
			MongoDatabase:   defaultMongoDatabase,
			MongoCollection: defaultMongoCollection,
			DatabasePath:    defaultDatabasePath,
			S3Region:        defaultS3Region,
			S3Prefix:        defaultS3Prefix,
		},
		RateLimit: ratelimit.DefaultConfig,
	}
}

// LoadConfig builds the configuration from all layers and validates it.
func LoadConfig(flags Flags) (*Config, error) {
	cfg := Default()

	path := flags.ConfigFile
	if path == "" {
		path = strings.TrimSpace(os.Getenv("QUICKNOTES_CONFIG"))
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		err = cfg.applyFile(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(r io.Reader) error {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.APIURL, fc.APIURL)
	setString(&c.LogFile, fc.LogFile)

	setString(&c.Store.Backend, fc.Store.Backend)
	if fc.Store.ConnectTimeout > 0 {
		c.Store.ConnectTimeout = fc.Store.ConnectTimeout
	}
	setString(&c.Store.MongoDatabase, fc.Store.MongoDatabase)
	setString(&c.Store.MongoCollection, fc.Store.MongoCollection)
	setString(&c.Store.DatabasePath, fc.Store.DatabasePath)
	setString(&c.Store.S3Endpoint, fc.Store.S3Endpoint)
	setString(&c.Store.S3Region, fc.Store.S3Region)
	setString(&c.Store.S3Bucket, fc.Store.S3Bucket)
	setString(&c.Store.S3Prefix, fc.Store.S3Prefix)

	if fc.RateLimit.RPS != 0 {
		c.RateLimit.RPS = fc.RateLimit.RPS
	}
	if fc.RateLimit.Burst != 0 {
		c.RateLimit.Burst = fc.RateLimit.Burst
	}
	if fc.RateLimit.CleanupInterval != 0 {
		c.RateLimit.CleanupInterval = fc.RateLimit.CleanupInterval
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnvOrDefault("LISTEN_ADDR", c.ListenAddr)
	c.APIURL = getEnvOrDefault("API_URL", c.APIURL)
	c.LogFile = getEnvOrDefault("LOG_FILE", c.LogFile)

	c.Store.Backend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", c.Store.Backend))
	c.Store.ConnectTimeout = parseDurationOrDefault("STORE_CONNECT_TIMEOUT", c.Store.ConnectTimeout)

	c.Store.MongoURI = strings.TrimSpace(os.Getenv("MONGODB_URI"))
	c.Store.MongoDatabase = getEnvOrDefault("MONGODB_DB", c.Store.MongoDatabase)
	c.Store.MongoCollection = getEnvOrDefault("MONGODB_COLLECTION", c.Store.MongoCollection)

	c.Store.DatabasePath = getEnvOrDefault("DATABASE_PATH", c.Store.DatabasePath)
	c.Store.DatabaseKey = strings.TrimSpace(os.Getenv("DATABASE_KEY"))
	c.Store.DatabaseMasterKey = os.Getenv("DATABASE_MASTER_KEY")

	c.Store.S3Endpoint = getEnvOrDefault("AWS_ENDPOINT_URL_S3", c.Store.S3Endpoint)
	c.Store.S3Region = getEnvOrDefault("AWS_REGION", c.Store.S3Region)
	c.Store.S3AccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	c.Store.S3SecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	c.Store.S3Bucket = getEnvOrDefault("BUCKET_NAME", c.Store.S3Bucket)
	c.Store.S3Prefix = getEnvOrDefault("S3_PREFIX", c.Store.S3Prefix)

	c.RateLimit.RPS = parseFloat64OrDefault("RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = parseIntOrDefault("RATE_LIMIT_BURST", c.RateLimit.Burst)
	c.RateLimit.CleanupInterval = parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", c.RateLimit.CleanupInterval)
}

func (c *Config) applyFlags(flags Flags) {
	setString(&c.ListenAddr, flags.Addr)
	setString(&c.APIURL, flags.APIURL)
	if flags.Backend != "" {
		c.Store.Backend = strings.ToLower(flags.Backend)
	}
}

// Validate checks that all required configuration is present and valid.
// A missing MONGODB_URI is deliberately not an error here: it is reported
// as a store failure on first connect, which the health endpoint exposes.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, "LISTEN_ADDR must not be empty")
	}

	switch c.Store.Backend {
	case BackendMongo:
		if c.Store.MongoDatabase == "" {
			errs = append(errs, "MONGODB_DB must not be empty")
		}
		if c.Store.MongoCollection == "" {
			errs = append(errs, "MONGODB_COLLECTION must not be empty")
		}
	case BackendSQLite:
		if c.Store.DatabasePath == "" {
			errs = append(errs, "DATABASE_PATH is required for the sqlite backend")
		}
		if c.Store.DatabaseKey != "" {
			if len(c.Store.DatabaseKey) != 64 {
				errs = append(errs, "DATABASE_KEY must be 64 hex characters (32 bytes)")
			} else if _, err := hex.DecodeString(c.Store.DatabaseKey); err != nil {
				errs = append(errs, "DATABASE_KEY must be hex encoded")
			}
		}
		if c.Store.DatabaseMasterKey != "" {
			if c.Store.DatabaseKey != "" {
				errs = append(errs, "set only one of DATABASE_KEY and DATABASE_MASTER_KEY")
			} else if _, err := crypto.DatabaseKeyHex(c.Store.DatabaseMasterKey); err != nil {
				errs = append(errs, "DATABASE_MASTER_KEY "+err.Error())
			}
		}
	case BackendS3:
		if c.Store.S3Bucket == "" {
			errs = append(errs, "BUCKET_NAME is required for the s3 backend")
		}
		if (c.Store.S3AccessKeyID == "") != (c.Store.S3SecretAccessKey == "") {
			errs = append(errs, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be one of mongo, sqlite, s3 (got %q)", c.Store.Backend))
	}

	if c.Store.ConnectTimeout <= 0 {
		errs = append(errs, "STORE_CONNECT_TIMEOUT must be positive")
	}

	if c.RateLimit.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}
	if c.RateLimit.CleanupInterval <= 0 {
		errs = append(errs, "RATE_LIMIT_CLEANUP_INTERVAL must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// SQLiteKey returns the SQLCipher key: DATABASE_KEY as given, or one
// derived from DATABASE_MASTER_KEY. Empty means unencrypted.
func (s StoreConfig) SQLiteKey() (string, error) {
	if s.DatabaseMasterKey != "" {
		return crypto.DatabaseKeyHex(s.DatabaseMasterKey)
	}
	return s.DatabaseKey, nil
}

// HasConnectionString reports whether the selected backend has its
// connection secret configured. Only mongo needs one.
func (c *Config) HasConnectionString() bool {
	if c.Store.Backend != BackendMongo {
		return true
	}
	return c.Store.MongoURI != ""
}

// PrintStartupSummary prints a human-readable summary of the configuration.
// Secrets are described by presence and length only.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "quicknotes server starting...")
	switch c.Store.Backend {
	case BackendMongo:
		fmt.Fprintf(w, "  Store:   MongoDB (db: %s, collection: %s, uri: %s)\n",
			c.Store.MongoDatabase, c.Store.MongoCollection, logutil.DescribeSecret(c.Store.MongoURI))
	case BackendSQLite:
		encrypted := "no"
		if c.Store.DatabaseKey != "" || c.Store.DatabaseMasterKey != "" {
			encrypted = "yes"
		}
		fmt.Fprintf(w, "  Store:   SQLite (path: %s, encrypted: %s)\n", c.Store.DatabasePath, encrypted)
	case BackendS3:
		fmt.Fprintf(w, "  Store:   S3 (endpoint: %s, bucket: %s, prefix: %s)\n",
			c.Store.S3Endpoint, c.Store.S3Bucket, c.Store.S3Prefix)
	}
	fmt.Fprintf(w, "  Limit:   %.0f req/s, burst %d\n", c.RateLimit.RPS, c.RateLimit.Burst)
	fmt.Fprintf(w, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintln(w, "")
}

// Helper functions for parsing environment variables

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
