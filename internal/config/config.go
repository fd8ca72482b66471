package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

// Backend names accepted in store.backend.
const (
	BackendMongo = "mongo"
	BackendRedis = "redis"
	BackendFile  = "file"
)

// Session backend names accepted in gate.session.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
	SessionBadger = "badger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TARMAC"

// Config is tarmac's runtime configuration.
type Config struct {
	Store   StoreConfig   `split_words:"true"`
	Mongo   MongoConfig   `split_words:"true"`
	Redis   RedisConfig   `split_words:"true"`
	File    FileConfig    `split_words:"true"`
	Gate    GateConfig    `split_words:"true"`
	Log     LogConfig     `split_words:"true"`
	Metrics MetricsConfig `split_words:"true"`
	UI      UIConfig      `split_words:"true"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Backend      string        `split_words:"true"`
	Fallback     bool          `split_words:"true"`
	PollInterval time.Duration `split_words:"true"`
}

// MongoConfig locates the MongoDB collection.
type MongoConfig struct {
	URI        string `split_words:"true"`
	Database   string `split_words:"true"`
	Collection string `split_words:"true"`
	Username   string `split_words:"true"`
	Password   string `split_words:"true"`
}

// RedisConfig locates the Redis server.
type RedisConfig struct {
	Addr     string `split_words:"true"`
	Password string `split_words:"true"`
	DB       int    `split_words:"true"`
	Prefix   string `split_words:"true"`
}

// FileConfig locates the local fallback slot file.
type FileConfig struct {
	Path string `split_words:"true"`
}

// GateConfig configures the shared-secret gate.
type GateConfig struct {
	Secret     string        `split_words:"true"`
	SecretHash string        `split_words:"true"`
	Session    string        `split_words:"true"`
	SessionTTL time.Duration `split_words:"true"`
	SessionID  string        `split_words:"true"`
	BadgerDir  string        `split_words:"true"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Path  string `split_words:"true"`
	Level string `split_words:"true"`
}

// MetricsConfig configures the admin HTTP listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `split_words:"true"`
}

// UIConfig tunes the terminal UI.
type UIConfig struct {
	Refresh time.Duration `split_words:"true"`
}

const (
	defaultConfigPath   = "~/.config/tarmac/config.toml"
	defaultEnvFile      = ".env"
	defaultDataDir      = "~/.local/share/tarmac"
	defaultMongoURI     = "mongodb://localhost:27017"
	defaultMongoDB      = "tarmac"
	defaultCollection   = "flights"
	defaultRedisAddr    = "127.0.0.1:6379"
	defaultRedisPrefix  = "tarmac"
	defaultPollInterval = 2 * time.Second
	defaultSessionTTL   = 12 * time.Hour
	defaultSessionID    = "default"
	defaultLogLevel     = "info"
	defaultRefresh      = time.Second
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: BackendMongo, Fallback: true, PollInterval: defaultPollInterval},
		Mongo: MongoConfig{URI: defaultMongoURI, Database: defaultMongoDB, Collection: defaultCollection},
		Redis: RedisConfig{Addr: defaultRedisAddr, Prefix: defaultRedisPrefix},
		File:  FileConfig{Path: defaultDataDir + "/flights.json"},
		Gate: GateConfig{
			Session:    SessionMemory,
			SessionTTL: defaultSessionTTL,
			SessionID:  defaultSessionID,
			BadgerDir:  defaultDataDir + "/session",
		},
		Log: LogConfig{Path: defaultDataDir + "/tarmac.log", Level: defaultLogLevel},
		UI:  UIConfig{Refresh: defaultRefresh},
	}
}

// fileConfig mirrors the TOML layout. Durations are strings such as "2s".
type fileConfig struct {
	Store struct {
		Backend      string `toml:"backend"`
		Fallback     *bool  `toml:"fallback"`
		PollInterval string `toml:"poll_interval"`
	} `toml:"store"`
	Mongo struct {
		URI        string `toml:"uri"`
		Database   string `toml:"database"`
		Collection string `toml:"collection"`
		Username   string `toml:"username"`
		Password   string `toml:"password"`
	} `toml:"mongo"`
	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Prefix   string `toml:"prefix"`
	} `toml:"redis"`
	File struct {
		Path string `toml:"path"`
	} `toml:"file"`
	Gate struct {
		Secret     string `toml:"secret"`
		SecretHash string `toml:"secret_hash"`
		Session    string `toml:"session"`
		SessionTTL string `toml:"session_ttl"`
		SessionID  string `toml:"session_id"`
		BadgerDir  string `toml:"badger_dir"`
	} `toml:"gate"`
	Log struct {
		Path  string `toml:"path"`
		Level string `toml:"level"`
	} `toml:"log"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
	UI struct {
		Refresh string `toml:"refresh"`
	} `toml:"ui"`
}

// Load builds the configuration from defaults, the TOML file at path (the
// default location when empty; a missing file is not an error), an optional
// .env file and finally TARMAC_* environment variables.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, defaultEnvFile)
}

// LoadWithEnv is Load with an explicit .env location. An empty envFile skips
// the .env step.
func LoadWithEnv(path, envFile string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := applyFile(&cfg, resolved); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.Store.Backend, raw.Store.Backend)
	if raw.Store.Fallback != nil {
		cfg.Store.Fallback = *raw.Store.Fallback
	}
	if err := setDuration(&cfg.Store.PollInterval, raw.Store.PollInterval, "store.poll_interval"); err != nil {
		return err
	}

	setString(&cfg.Mongo.URI, raw.Mongo.URI)
	setString(&cfg.Mongo.Database, raw.Mongo.Database)
	setString(&cfg.Mongo.Collection, raw.Mongo.Collection)
	setString(&cfg.Mongo.Username, raw.Mongo.Username)
	setString(&cfg.Mongo.Password, raw.Mongo.Password)

	setString(&cfg.Redis.Addr, raw.Redis.Addr)
	setString(&cfg.Redis.Password, raw.Redis.Password)
	if raw.Redis.DB != 0 {
		cfg.Redis.DB = raw.Redis.DB
	}
	setString(&cfg.Redis.Prefix, raw.Redis.Prefix)

	setString(&cfg.File.Path, raw.File.Path)

	setString(&cfg.Gate.Secret, raw.Gate.Secret)
	setString(&cfg.Gate.SecretHash, raw.Gate.SecretHash)
	setString(&cfg.Gate.Session, raw.Gate.Session)
	if err := setDuration(&cfg.Gate.SessionTTL, raw.Gate.SessionTTL, "gate.session_ttl"); err != nil {
		return err
	}
	setString(&cfg.Gate.SessionID, raw.Gate.SessionID)
	setString(&cfg.Gate.BadgerDir, raw.Gate.BadgerDir)

	setString(&cfg.Log.Path, raw.Log.Path)
	setString(&cfg.Log.Level, raw.Log.Level)
	setString(&cfg.Metrics.Addr, raw.Metrics.Addr)

	return setDuration(&cfg.UI.Refresh, raw.UI.Refresh, "ui.refresh")
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, value, key string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

func (c *Config) normalize() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Gate.Session = strings.ToLower(strings.TrimSpace(c.Gate.Session))
	c.Gate.Secret = strings.TrimSpace(c.Gate.Secret)
	c.Gate.SecretHash = strings.TrimSpace(c.Gate.SecretHash)
	c.Metrics.Addr = strings.TrimSpace(c.Metrics.Addr)

	for _, p := range []*string{&c.File.Path, &c.Gate.BadgerDir} {
		expanded, err := expandPath(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	if strings.TrimSpace(c.Log.Path) != "" {
		c.Log.Path = mustExpand(c.Log.Path)
	}
	return nil
}

// Validate reports configuration the application cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMongo, BackendRedis, BackendFile:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be mongo, redis or file", c.Store.Backend))
	}
	switch c.Gate.Session {
	case SessionMemory, SessionRedis, SessionBadger:
	default:
		errs = append(errs, fmt.Errorf("gate.session %q must be memory, redis or badger", c.Gate.Session))
	}
	if c.Gate.Secret == "" && c.Gate.SecretHash == "" {
		errs = append(errs, errors.New("gate.secret or gate.secret_hash is required"))
	}
	if c.Store.PollInterval <= 0 {
		errs = append(errs, errors.New("store.poll_interval must be positive"))
	}
	if c.UI.Refresh <= 0 {
		errs = append(errs, errors.New("ui.refresh must be positive"))
	}
	return errors.Join(errs...)
}

// SessionNamespace scopes session markers to the configured session id.
func (c Config) SessionNamespace() string {
	return c.Redis.Prefix + ":session:" + c.Gate.SessionID
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
