// Package config loads task board settings from defaults, a TOML file,
// the environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFile is looked up in the working directory when no
	// config path is given.
	DefaultConfigFile = "taskboard.toml"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds every setting for the server and the board client.
type Config struct {
	Env   string      `toml:"env"`
	Addr  string      `toml:"addr"`
	Store StoreConfig `toml:"store"`
	Log   LogConfig   `toml:"log"`
	Board BoardConfig `toml:"board"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver        string `toml:"driver"`
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// LogConfig configures the console logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// BoardConfig configures the board client.
type BoardConfig struct {
	BaseURL string `toml:"base_url"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Env:  EnvDevelopment,
		Addr: ":8080",
		Store: StoreConfig{
			Driver:        DriverSQLite,
			SQLitePath:    "./data/taskboard.db",
			MongoDatabase: "taskboard",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Board: BoardConfig{
			BaseURL: "http://localhost:8080/api",
		},
	}
}

// IsProduction reports whether diagnostic detail must be withheld from clients.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("store.mongo_uri is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverSQLite, DriverMongo, c.Store.Driver))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	return errors.Join(errs...)
}

// Load builds the configuration. Flags already registered on fs by the
// caller are parsed along with the ones added here.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	var (
		configPath = fs.String("config", "", "path to a TOML config file")
		env        = fs.String("env", "", "operating mode: development or production")
		addr       = fs.String("addr", "", "listen address")
		driver     = fs.String("store", "", "store driver: sqlite or mongo")
		dbPath     = fs.String("db", "", "sqlite database path")
		mongoURI   = fs.String("mongo-uri", "", "mongodb connection string")
		mongoDB    = fs.String("mongo-db", "", "mongodb database name")
		logLevel   = fs.String("log-level", "", "log level: debug, info, warn, error")
		logFormat  = fs.String("log-format", "", "log format: text, json, logfmt")
		baseURL    = fs.String("url", "", "task board API base URL (board client)")
	)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := Default()

	path := firstNonEmpty(*configPath, os.Getenv("TASKBOARD_CONFIG"))
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	override("env", &cfg.Env, *env)
	override("addr", &cfg.Addr, *addr)
	override("store", &cfg.Store.Driver, *driver)
	override("db", &cfg.Store.SQLitePath, *dbPath)
	override("mongo-uri", &cfg.Store.MongoURI, *mongoURI)
	override("mongo-db", &cfg.Store.MongoDatabase, *mongoDB)
	override("log-level", &cfg.Log.Level, *logLevel)
	override("log-format", &cfg.Log.Format, *logFormat)
	override("url", &cfg.Board.BaseURL, *baseURL)

	cfg.Env = strings.ToLower(cfg.Env)
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.Board.BaseURL = strings.TrimRight(cfg.Board.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := getEnv("TASKBOARD_ENV", ""); v != "" {
		cfg.Env = v
	}
	if v := getEnv("PORT", ""); v != "" {
		cfg.Addr = ":" + v
	}
	if v := getEnv("TASKBOARD_ADDR", ""); v != "" {
		cfg.Addr = v
	}
	if v := getEnv("TASKBOARD_STORE", ""); v != "" {
		cfg.Store.Driver = v
	}
	if v := firstNonEmpty(getEnv("TASKBOARD_DB_PATH", ""), getEnv("DB_PATH", "")); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := getEnv("TASKBOARD_MONGO_URI", ""); v != "" {
		cfg.Store.MongoURI = v
	}
	if v := getEnv("TASKBOARD_MONGO_DB", ""); v != "" {
		cfg.Store.MongoDatabase = v
	}
	if v := getEnv("TASKBOARD_LOG_LEVEL", ""); v != "" {
		cfg.Log.Level = v
	}
	if v := getEnv("TASKBOARD_LOG_FORMAT", ""); v != "" {
		cfg.Log.Format = v
	}
	if v := getEnv("TASKBOARD_URL", ""); v != "" {
		cfg.Board.BaseURL = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
