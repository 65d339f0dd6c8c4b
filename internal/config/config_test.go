package config_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/config"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/adapters/sqlstore"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "waypoint:", cfg.Redis.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_ProjectFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	yaml := `
log:
  level: debug
server:
  addr: ":9090"
store:
  backend: sqlite
  path: data/flows.db
redis:
  db: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".waypoint.yaml"), []byte(yaml), 0o644))
	t.Setenv("WAYPOINT_SERVER_ADDR", ":7070")
	t.Setenv("WAYPOINT_LOCK_TTL", "5s")

	loader := config.NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":7070", cfg.Server.Addr, "env beats file")
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "data/flows.db", cfg.Store.Path)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Lock.TTL)
	assert.Equal(t, ".waypoint.yaml", filepath.Base(loader.ConfigFile()))
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: mysql\n  dsn: user:pw@tcp(db:3306)/waypoint\n"), 0o644))

	cfg, err := config.NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendMySQL, cfg.Store.Backend)
	assert.Equal(t, "user:pw@tcp(db:3306)/waypoint", cfg.Store.DSN)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		store   config.StoreConfig
		wantErr string
	}{
		{"memory", config.StoreConfig{Backend: "memory"}, ""},
		{"redis", config.StoreConfig{Backend: "redis"}, ""},
		{"file without path", config.StoreConfig{Backend: "file"}, "store.path is required"},
		{"sqlite with path", config.StoreConfig{Backend: "sqlite", Path: "x.db"}, ""},
		{"mysql without dsn", config.StoreConfig{Backend: "mysql"}, "store.dsn is required"},
		{"unknown", config.StoreConfig{Backend: "postgres"}, "unknown store.backend"},
		{"encryption key", config.StoreConfig{Backend: "memory", EncryptionKey: testKey}, ""},
		{"encryption key not base64", config.StoreConfig{Backend: "memory", EncryptionKey: "%%%"}, "not valid base64"},
		{"encryption key too short", config.StoreConfig{Backend: "memory", EncryptionKey: base64.StdEncoding.EncodeToString([]byte("short"))}, "must decode to 32 bytes, got 5"},
		{"bad fallback key", config.StoreConfig{Backend: "memory", EncryptionKey: testKey, FallbackKeys: []string{"AAAA"}}, "store.fallback_keys[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{Store: tt.store}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNop()
	dir := t.TempDir()

	t.Run("memory", func(t *testing.T) {
		b, err := config.OpenStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "memory"}}, logger)
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, b.Store)
		assert.NoError(t, b.Close())
	})

	t.Run("file", func(t *testing.T) {
		b, err := config.OpenStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "file", Path: dir}}, logger)
		require.NoError(t, err)
		assert.IsType(t, &file.Store{}, b.Store)
	})

	t.Run("sqlite directory", func(t *testing.T) {
		b, err := config.OpenStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "sqlite", Path: filepath.Join(dir, "db")}}, logger)
		require.NoError(t, err)
		defer b.Close()
		assert.IsType(t, &sqlstore.Store{}, b.Store)
		assert.FileExists(t, filepath.Join(dir, "db", "waypoint.db"))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{
			Store: config.StoreConfig{Backend: "redis"},
			Redis: config.RedisConfig{Addr: mr.Addr(), Prefix: "test:"},
			Lock:  config.LockConfig{TTL: time.Second},
		}
		b, err := config.OpenStore(ctx, cfg, logger)
		require.NoError(t, err)
		defer b.Close()
		assert.IsType(t, &redis.Store{}, b.Store)

		eng := waypoint.New(b.Options...)
		wf, err := eng.CreateWorkflow(ctx, "shared")
		require.NoError(t, err)
		assert.True(t, mr.Exists("test:workflow:"+wf.ID))
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := config.OpenStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "redis"}, Redis: config.RedisConfig{Addr: addr}}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connecting to redis")
	})

	t.Run("encrypted file", func(t *testing.T) {
		path := filepath.Join(dir, "sealed")
		b, err := config.OpenStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "file", Path: path, EncryptionKey: testKey}}, logger)
		require.NoError(t, err)
		assert.NotEqual(t, reflect.TypeOf(&file.Store{}), reflect.TypeOf(b.Store))

		eng := waypoint.New(b.Options...)
		wf, err := eng.CreateWorkflow(ctx, "sealed")
		require.NoError(t, err)
		_, err = eng.CreateNode(ctx, wf.ID, domain.Node{ID: "m", Type: domain.NodeTypeMessage, Message: "top secret"})
		require.NoError(t, err)

		got, err := eng.GetNode(ctx, "m")
		require.NoError(t, err)
		assert.Equal(t, "top secret", got.Message)

		raw, err := file.New(path).Load(ctx, wf.ID)
		require.NoError(t, err)
		require.Len(t, raw.Nodes, 1)
		assert.NotContains(t, raw.Nodes[0].Message, "top secret")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := config.OpenStore(ctx, &config.Config{Store: config.StoreConfig{Backend: "etcd"}}, logger)
		assert.Error(t, err)
	})
}
