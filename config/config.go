// Package config loads server and client settings and opens connections to
// the backing services.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
	DriverMemory    = "memory"

	ProviderJWT      = "jwt"
	ProviderFirebase = "firebase"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Firebase FirebaseConfig `yaml:"firebase"`
	S3       S3Config       `yaml:"s3"`
	LogLevel string         `yaml:"log_level"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	// MaxUploadBytes caps POST /api/images bodies.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type StoreConfig struct {
	// Driver is one of mongo, firestore or memory.
	Driver string `yaml:"driver"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig enables the list cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type AuthConfig struct {
	// Provider is jwt or firebase.
	Provider     string        `yaml:"provider"`
	JWTKey       string        `yaml:"jwt_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	RoleCacheTTL time.Duration `yaml:"role_cache_ttl"`
}

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// S3Config enables image uploads when Bucket is set.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	// PublicURL is the base returned for uploaded objects. Defaults to the
	// virtual-hosted bucket URL.
	PublicURL string `yaml:"public_url"`
}

func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
			MaxUploadBytes:  10 << 20,
		},
		Store: StoreConfig{Driver: DriverMongo},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "rentals",
		},
		Redis: RedisConfig{TTL: 10 * time.Minute},
		Auth: AuthConfig{
			Provider:     ProviderJWT,
			TokenTTL:     15 * time.Minute,
			RoleCacheTTL: time.Minute,
		},
		S3:       S3Config{Region: "us-east-1"},
		LogLevel: "info",
	}
}

// Load reads .env into the process environment, layers the optional YAML
// file over the defaults, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Error loading .env file", slog.String("error", err.Error()))
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Unset variables leave the
// current value alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("STORE_DRIVER", &c.Store.Driver)
	str("MONGOURI", &c.Mongo.URI)
	str("DB", &c.Mongo.Database)
	str("REDIS_ADD", &c.Redis.Addr)
	str("REDIS_PASS", &c.Redis.Password)
	str("AUTH_PROVIDER", &c.Auth.Provider)
	str("JWT_KEY", &c.Auth.JWTKey)
	str("FIREBASE_PROJECT_ID", &c.Firebase.ProjectID)
	str("FIREBASE_CREDENTIALS", &c.Firebase.CredentialsFile)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_REGION", &c.S3.Region)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)
	str("S3_PUBLIC_URL", &c.S3.PublicURL)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CACHE_TTL: %w", err)
		}
		c.Redis.TTL = d
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	switch c.Store.Driver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the mongo driver")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database is required for the mongo driver")
		}
	case DriverFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for the firestore driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Auth.Provider {
	case ProviderJWT:
		if c.Auth.JWTKey == "" {
			return fmt.Errorf("auth.jwt_key is required for the jwt provider")
		}
	case ProviderFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for the firebase provider")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}

	if c.Redis.Enabled() && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
