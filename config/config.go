// Package config loads the server configuration.
//
// Values are resolved in order, later sources winning:
//   - built-in defaults
//   - an optional YAML file named by --config or MYFEEDSAVE_CONFIG
//   - environment variables, including those loaded from a .env file
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Store   StoreConfig   `yaml:"store"`
	Uploads UploadsConfig `yaml:"uploads"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Port the server listens on. Default: 8080
	Port string `yaml:"port"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// AuthConfig configures bearer tokens.
type AuthConfig struct {
	// JWTSecret signs and verifies tokens. Required.
	JWTSecret string `yaml:"jwt_secret"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver is "sqlite" or "mongo". Default: sqlite
	Driver string `yaml:"driver"`

	SQLite SQLiteConfig `yaml:"sqlite"`
	Mongo  MongoConfig  `yaml:"mongo"`
}

type SQLiteConfig struct {
	// Path of the database file. Default: ./myfeedsave.db
	Path string `yaml:"path"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`

	// Transactions wraps relationship updates in a session transaction.
	// Requires a replica set.
	Transactions bool `yaml:"transactions"`
}

// UploadsConfig configures where uploaded media is written.
type UploadsConfig struct {
	// PictureDir holds profile pictures. Default: upload
	PictureDir string `yaml:"picture_dir"`

	// PostDir holds post media. Default: uploads/posts
	PostDir string `yaml:"post_dir"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is a logrus level name. Default: info
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: json
	Format string `yaml:"format"`

	// Logstash is a host:port to ship entries to over TCP. Empty disables.
	Logstash string `yaml:"logstash"`
}

// Default returns the configuration used before any file or environment
// is applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: "10s",
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{Path: "./myfeedsave.db"},
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "myfeedsave",
			},
		},
		Uploads: UploadsConfig{
			PictureDir: "upload",
			PostDir:    "uploads/posts",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// MYFEEDSAVE_CONFIG is consulted and, failing that, no file is read.
// envFiles are loaded into the environment first; without any, a .env in
// the working directory is used if present.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && (len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("MYFEEDSAVE_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnvironment overrides fields with the environment variables that
// are set.
func (c *Config) applyEnvironment() error {
	strs := map[string]*string{
		"PORT":            &c.Server.Port,
		"JWT_SECRET":      &c.Auth.JWTSecret,
		"DB_DRIVER":       &c.Store.Driver,
		"DATABASE_PATH":   &c.Store.SQLite.Path,
		"MONGO_URI":       &c.Store.Mongo.URI,
		"MONGO_DB":        &c.Store.Mongo.Database,
		"UPLOAD_DIR":      &c.Uploads.PictureDir,
		"POST_UPLOAD_DIR": &c.Uploads.PostDir,
		"LOG_LEVEL":       &c.Log.Level,
		"LOG_FORMAT":      &c.Log.Format,
		"LOGSTASH_ADDR":   &c.Log.Logstash,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("MONGO_TRANSACTIONS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MONGO_TRANSACTIONS: %w", err)
		}
		c.Store.Mongo.Transactions = b
	}

	c.Store.Driver = strings.ToLower(c.Store.Driver)
	return nil
}

// ShutdownAfter is the parsed shutdown timeout, 10s when unparseable
func (c *Config) ShutdownAfter() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret is required (set JWT_SECRET)"))
	}
	if c.Server.Port == "" {
		errs = append(errs, fmt.Errorf("server.port is required"))
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("invalid server.shutdown_timeout: %w", err))
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, fmt.Errorf("store.sqlite.path is required"))
		}
	case DriverMongo:
		if c.Store.Mongo.URI == "" {
			errs = append(errs, fmt.Errorf("store.mongo.uri is required"))
		}
		if c.Store.Mongo.Database == "" {
			errs = append(errs, fmt.Errorf("store.mongo.database is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store driver: %q", c.Store.Driver))
	}

	if c.Uploads.PictureDir == "" || c.Uploads.PostDir == "" {
		errs = append(errs, fmt.Errorf("uploads.picture_dir and uploads.post_dir are required"))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("invalid log format: %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
