/*-------------------------------------------------------------------------
 *
 * jobs-feed - Configuration
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jobs-feed/internal/crypto"

	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultConfigFile is looked up next to the binary when no path is given
const DefaultConfigFile = "jobs-feed.yaml"

// Config represents the complete function configuration
type Config struct {
	// Database connection configuration
	Database DatabaseConfig `yaml:"database"`

	// Log level: debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Secret file holding the key for an encrypted database password
	SecretFile string `yaml:"secret_file"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver           string `yaml:"driver"`            // postgres (default) or sqlite
	ConnectionString string `yaml:"connection_string"` // Full postgres:// URL, overrides the fields below
	Host             string `yaml:"host"`              // Database host (default: localhost)
	Port             int    `yaml:"port"`              // Database port (default: 5432)
	Database         string `yaml:"database"`          // Database name (default: postgres)
	User             string `yaml:"user"`              // Database user (required for postgres)
	Password         string `yaml:"password"`          // Plain, or sealed with the secret file key
	SSLMode          string `yaml:"sslmode"`           // disable, require, verify-ca, verify-full (default: prefer)
	SQLitePath       string `yaml:"sqlite_path"`       // Database file when driver is sqlite

	// Connection pool settings
	PoolMaxConns        int    `yaml:"pool_max_conns"`          // Maximum number of connections (default: 2)
	PoolMinConns        int    `yaml:"pool_min_conns"`          // Minimum number of connections (default: 0)
	PoolMaxConnIdleTime string `yaml:"pool_max_conn_idle_time"` // Idle time before a connection is closed (default: 5m)
	ConnectTimeout      string `yaml:"connect_timeout"`         // Dial timeout (default: 10s)
}

// CLIFlags represents command line flag values and whether they were explicitly set
type CLIFlags struct {
	ConfigFileSet bool

	DBDriver      string
	DBDriverSet   bool
	DBHost        string
	DBHostSet     bool
	DBPort        int
	DBPortSet     bool
	DBName        string
	DBNameSet     bool
	DBUser        string
	DBUserSet     bool
	DBPassword    string
	DBPassSet     bool
	DBSSLMode     string
	DBSSLSet      bool
	SQLitePath    string
	SQLitePathSet bool

	LogLevel    string
	LogLevelSet bool

	SecretFile    string
	SecretFileSet bool
}

// LoadConfig loads configuration with proper priority:
// 1. Command line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Hard-coded defaults (lowest priority)
//
// An encrypted password is opened with the secret file key before the
// result is validated.
func LoadConfig(configPath string, cliFlags CLIFlags) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		fileCfg, err := loadConfigFile(configPath)
		if err != nil {
			// A missing default file is fine, an explicit one is not
			if cliFlags.ConfigFileSet || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else {
			mergeConfig(cfg, fileCfg)
		}
	}

	applyEnvironmentVariables(cfg)
	applyCLIFlags(cfg, cliFlags)

	if err := decryptPassword(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:              DriverPostgres,
			Host:                "localhost",
			Port:                5432,
			Database:            "postgres",
			SSLMode:             "prefer",
			PoolMaxConns:        2,
			PoolMinConns:        0,
			PoolMaxConnIdleTime: "5m",
			ConnectTimeout:      "10s",
		},
		LogLevel: "warn",
	}
}

// loadConfigFile loads configuration from a YAML file
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// mergeConfig merges source config into dest, only overriding non-zero values
func mergeConfig(dest, src *Config) {
	d, s := &dest.Database, &src.Database

	mergeString(&d.Driver, s.Driver)
	mergeString(&d.ConnectionString, s.ConnectionString)
	mergeString(&d.Host, s.Host)
	if s.Port != 0 {
		d.Port = s.Port
	}
	mergeString(&d.Database, s.Database)
	mergeString(&d.User, s.User)
	mergeString(&d.Password, s.Password)
	mergeString(&d.SSLMode, s.SSLMode)
	mergeString(&d.SQLitePath, s.SQLitePath)
	if s.PoolMaxConns != 0 {
		d.PoolMaxConns = s.PoolMaxConns
	}
	if s.PoolMinConns != 0 {
		d.PoolMinConns = s.PoolMinConns
	}
	mergeString(&d.PoolMaxConnIdleTime, s.PoolMaxConnIdleTime)
	mergeString(&d.ConnectTimeout, s.ConnectTimeout)

	mergeString(&dest.LogLevel, src.LogLevel)
	mergeString(&dest.SecretFile, src.SecretFile)
}

func mergeString(dest *string, val string) {
	if val != "" {
		*dest = val
	}
}

// setStringFromEnv sets a string config value from an environment variable if it exists
func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

// setIntFromEnv sets an integer config value from an environment variable if it parses
func setIntFromEnv(dest *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			*dest = n
		}
	}
}

// applyEnvironmentVariables overrides config with environment variables if they exist.
// JOBSFEED_ variables win over the standard PG* ones.
func applyEnvironmentVariables(cfg *Config) {
	db := &cfg.Database

	// Standard PostgreSQL variables first so the prefixed ones override them
	setStringFromEnv(&db.Host, "PGHOST")
	setIntFromEnv(&db.Port, "PGPORT")
	setStringFromEnv(&db.Database, "PGDATABASE")
	setStringFromEnv(&db.User, "PGUSER")
	setStringFromEnv(&db.Password, "PGPASSWORD")
	setStringFromEnv(&db.SSLMode, "PGSSLMODE")

	setStringFromEnv(&db.Driver, "JOBSFEED_DB_DRIVER")
	setStringFromEnv(&db.ConnectionString, "JOBSFEED_DB_CONNECTION_STRING")
	setStringFromEnv(&db.Host, "JOBSFEED_DB_HOST")
	setIntFromEnv(&db.Port, "JOBSFEED_DB_PORT")
	setStringFromEnv(&db.Database, "JOBSFEED_DB_NAME")
	setStringFromEnv(&db.User, "JOBSFEED_DB_USER")
	setStringFromEnv(&db.Password, "JOBSFEED_DB_PASSWORD")
	setStringFromEnv(&db.SSLMode, "JOBSFEED_DB_SSLMODE")
	setStringFromEnv(&db.SQLitePath, "JOBSFEED_DB_SQLITE_PATH")
	setIntFromEnv(&db.PoolMaxConns, "JOBSFEED_DB_POOL_MAX_CONNS")
	setIntFromEnv(&db.PoolMinConns, "JOBSFEED_DB_POOL_MIN_CONNS")
	setStringFromEnv(&db.PoolMaxConnIdleTime, "JOBSFEED_DB_POOL_MAX_CONN_IDLE_TIME")
	setStringFromEnv(&db.ConnectTimeout, "JOBSFEED_DB_CONNECT_TIMEOUT")

	setStringFromEnv(&cfg.LogLevel, "JOBSFEED_LOG_LEVEL")
	setStringFromEnv(&cfg.SecretFile, "JOBSFEED_SECRET_FILE")
}

// applyCLIFlags overrides config with CLI flags if they were explicitly set
func applyCLIFlags(cfg *Config, flags CLIFlags) {
	db := &cfg.Database

	if flags.DBDriverSet {
		db.Driver = flags.DBDriver
	}
	if flags.DBHostSet {
		db.Host = flags.DBHost
	}
	if flags.DBPortSet {
		db.Port = flags.DBPort
	}
	if flags.DBNameSet {
		db.Database = flags.DBName
	}
	if flags.DBUserSet {
		db.User = flags.DBUser
	}
	if flags.DBPassSet {
		db.Password = flags.DBPassword
	}
	if flags.DBSSLSet {
		db.SSLMode = flags.DBSSLMode
	}
	if flags.SQLitePathSet {
		db.SQLitePath = flags.SQLitePath
	}
	if flags.LogLevelSet {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.SecretFileSet {
		cfg.SecretFile = flags.SecretFile
	}
}

// decryptPassword replaces a sealed password with its plaintext when a
// secret file is configured
func decryptPassword(cfg *Config) error {
	if cfg.SecretFile == "" || cfg.Database.Password == "" {
		return nil
	}

	key, err := crypto.LoadKeyFromFile(expandHome(cfg.SecretFile))
	if err != nil {
		return fmt.Errorf("failed to load secret file: %w", err)
	}

	password, err := key.Decrypt(cfg.Database.Password)
	if err != nil {
		return fmt.Errorf("failed to decrypt database password: %w", err)
	}
	cfg.Database.Password = password
	return nil
}

// Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	db := &cfg.Database

	switch db.Driver {
	case DriverPostgres:
		if db.ConnectionString == "" {
			if db.User == "" {
				return fmt.Errorf("database user is required (set via --db-user, JOBSFEED_DB_USER, PGUSER env var, or config file)")
			}
			if db.Port <= 0 || db.Port > 65535 {
				return fmt.Errorf("database port %d is out of range", db.Port)
			}
		}
	case DriverSQLite:
		if db.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required when driver is %q", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported database driver %q (expected %q or %q)", db.Driver, DriverPostgres, DriverSQLite)
	}

	if db.PoolMaxConns < 0 || db.PoolMinConns < 0 {
		return fmt.Errorf("pool connection limits must not be negative")
	}
	if db.PoolMaxConns > 0 && db.PoolMinConns > db.PoolMaxConns {
		return fmt.Errorf("pool_min_conns (%d) exceeds pool_max_conns (%d)", db.PoolMinConns, db.PoolMaxConns)
	}
	if _, err := db.IdleTime(); err != nil {
		return err
	}
	if _, err := db.DialTimeout(); err != nil {
		return err
	}

	return nil
}

// IdleTime parses PoolMaxConnIdleTime. Zero means "use the driver default".
func (cfg *DatabaseConfig) IdleTime() (time.Duration, error) {
	return parseDuration("pool_max_conn_idle_time", cfg.PoolMaxConnIdleTime)
}

// DialTimeout parses ConnectTimeout. Zero means "no timeout".
func (cfg *DatabaseConfig) DialTimeout() (time.Duration, error) {
	return parseDuration("connect_timeout", cfg.ConnectTimeout)
}

func parseDuration(name, val string) (time.Duration, error) {
	if val == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", name)
	}
	return d, nil
}

// BuildConnectionString creates a PostgreSQL connection URL from DatabaseConfig.
// ConnectionString wins when set. If password is not set, pgx will look it
// up from the .pgpass file.
func (cfg *DatabaseConfig) BuildConnectionString() string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}

	return u.String()
}

// GetDefaultConfigPath returns the config file next to the binary
func GetDefaultConfigPath(binaryPath string) string {
	return filepath.Join(filepath.Dir(binaryPath), DefaultConfigFile)
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
