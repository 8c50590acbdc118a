package util

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	DefaultAPIBase    = "http://localhost:5001/api"
	defaultAPITimeout = 10 * time.Second

	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultSessionBackend   = SessionBackendFile
	defaultSessionNamespace = "default"
	defaultRedisKeyPrefix   = "fra_portal"
	defaultLogLevel         = "info"
)

const (
	SessionBackendFile     = "file"
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
)

// Config is the full runtime configuration of the portal and the CLI.
// Values come from an optional YAML file, then environment variables, then defaults.
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	DB      DBConfig      `yaml:"db"`
	Log     LogConfig     `yaml:"log"`
}

type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	ServerAddr      string        `yaml:"addr"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
}

type SessionConfig struct {
	Backend   string `yaml:"backend"`
	File      string `yaml:"file"`
	Namespace string `yaml:"namespace"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type DBConfig struct {
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads PORTAL_CONFIG (if set) and layers the environment on top of it.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("PORTAL_CONFIG"))
}

// LoadConfigFile is LoadConfig with an explicit YAML path. An empty path or a
// missing file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config yaml: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FRA_API_BASE"); v != "" {
		cfg.Client.BaseURL = v
	}
	cfg.Client.Timeout = parseDurationOrDefault("FRA_API_TIMEOUT", cfg.Client.Timeout)

	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		cfg.Server.ServerAddr = v
	}
	cfg.Server.WriteTimeout = parseDurationOrDefault("WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ReadTimeout = parseDurationOrDefault("READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.IdleTimeout = parseDurationOrDefault("IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.GracefulTimeout = parseDurationOrDefault("GRACEFUL_TIMEOUT", cfg.Server.GracefulTimeout)

	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("SESSION_FILE"); v != "" {
		cfg.Session.File = v
	}
	if v := os.Getenv("SESSION_NAMESPACE"); v != "" {
		cfg.Session.Namespace = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		} else {
			log.Printf("Invalid REDIS_DB: %s, using %d", v, cfg.Redis.DB)
		}
	}
	if v := os.Getenv("REDIS_KEY_PREFIX"); v != "" {
		cfg.Redis.KeyPrefix = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = DefaultAPIBase
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = defaultAPITimeout
	}
	if cfg.Server.ServerAddr == "" {
		cfg.Server.ServerAddr = defaultServerAddr
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.GracefulTimeout == 0 {
		cfg.Server.GracefulTimeout = defaultGracefulTimeout
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = defaultSessionBackend
	}
	if cfg.Session.File == "" {
		cfg.Session.File = defaultSessionFile()
	}
	if cfg.Session.Namespace == "" {
		cfg.Session.Namespace = defaultSessionNamespace
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = defaultRedisKeyPrefix
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
}

func (cfg *Config) validate() error {
	switch cfg.Session.Backend {
	case SessionBackendFile, SessionBackendMemory:
	case SessionBackendRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("session backend %q requires REDIS_ADDR", cfg.Session.Backend)
		}
	case SessionBackendPostgres:
		if cfg.DB.DSN == "" {
			return fmt.Errorf("session backend %q requires DATABASE_URL", cfg.Session.Backend)
		}
	default:
		return fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
	return nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fra-portal", "session.json")
	}
	return filepath.Join(home, ".fra-portal", "session.json")
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}
