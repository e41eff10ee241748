package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaultConfigNeedsJWTKey(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorContains(t, cfg.Validate(), "jwt_key")

	cfg.Auth.JWTKey = "secret"
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestApplyEnvUsesServiceVariableNames(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		"PORT":            "9090",
		"MONGOURI":        "mongodb://db:27017",
		"DB":              "listings",
		"REDIS_ADD":       "cache:6379",
		"REDIS_PASS":      "pw",
		"REDIS_DB":        "2",
		"CACHE_TTL":       "30s",
		"JWT_KEY":         "k",
		"ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"S3_BUCKET":       "photos",
		"LOG_LEVEL":       "debug",
		"STORE_DRIVER":    "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "listings", cfg.Mongo.Database)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	assert.Error(t, DefaultConfig().ApplyEnv(mapLookup(map[string]string{"REDIS_DB": "zero"})))
	assert.Error(t, DefaultConfig().ApplyEnv(mapLookup(map[string]string{"CACHE_TTL": "soon"})))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, "unknown store driver"},
		{"mongo without database", func(c *Config) { c.Mongo.Database = "" }, "mongo.database"},
		{"firestore without project", func(c *Config) { c.Store.Driver = DriverFirestore }, "firebase.project_id"},
		{"firebase auth without project", func(c *Config) { c.Auth.Provider = ProviderFirebase }, "firebase.project_id"},
		{"unknown provider", func(c *Config) { c.Auth.Provider = "ldap" }, "unknown auth provider"},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"redis without ttl", func(c *Config) { c.Redis.Addr = "x:1"; c.Redis.TTL = 0 }, "redis.ttl"},
		{"memory driver", func(c *Config) { c.Store.Driver = DriverMemory; c.Mongo = MongoConfig{} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Auth.JWTKey = "secret"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentals.yaml")
	yamlDoc := `
server:
  port: "7000"
store:
  driver: memory
auth:
  jwt_key: from-file
log_level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("PORT", "7001")
	for _, key := range []string{"STORE_DRIVER", "AUTH_PROVIDER", "JWT_KEY", "LOG_LEVEL", "REDIS_ADD"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "WARN", level.String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedis(context.Background(), RedisConfig{Addr: mr.Addr()})
	assert.Error(t, err)
}
