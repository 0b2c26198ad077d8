// internal/config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runServer(t *testing.T, args ...string) (*Server, error) {
	t.Helper()
	var got *Server
	cfg := &Server{}
	cmd := NewServerCommand(cfg, func(_ context.Context, c *Server) error {
		got = c
		return nil
	})
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return got, err
}

func TestServerDefaults(t *testing.T) {
	cfg, err := runServer(t)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 60*time.Second, cfg.GracePeriod)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "palace_actions", cfg.QueueName)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, logrus.InfoLevel, cfg.Logger().GetLevel())
}

func TestServerFlagsAndEnv(t *testing.T) {
	t.Setenv("PALACE_PORT", "9000")
	t.Setenv("PALACE_GRACE_PERIOD", "15s")
	t.Setenv("PALACE_LOG_LEVEL", "debug")

	cfg, err := runServer(t, "--bind", "127.0.0.1", "--allowed-origins", "https://a.example,https://b.example")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.GracePeriod)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, logrus.DebugLevel, cfg.Logger().GetLevel())

	cfg, err = runServer(t, "--port", "9100")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port, "flags win over the environment")
}

func TestServerValidation(t *testing.T) {
	for _, args := range [][]string{
		{"--port", "0"},
		{"--grace-period", "0s"},
		{"--log-level", "loud"},
		{"--token-key", "/tmp/key"},
		{"--conn-buffer", "0"},
	} {
		_, err := runServer(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func TestHistorianCommand(t *testing.T) {
	run := func(args ...string) (*Historian, error) {
		var got *Historian
		cmd := NewHistorianCommand(&Historian{}, func(_ context.Context, c *Historian) error {
			got = c
			return nil
		})
		cmd.SetArgs(append([]string{}, args...))
		return got, cmd.Execute()
	}

	_, err := run()
	assert.Error(t, err, "a DSN is required")

	cfg, err := run("--postgres-dsn", "postgres://localhost/palace", "--batch-size", "50")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, 10*time.Minute, cfg.Inactivity)
}
