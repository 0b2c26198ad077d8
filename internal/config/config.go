// internal/config/config.go
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every flag name to form its environment variable.
const EnvPrefix = "PALACE"

// Common holds the settings both binaries share.
type Common struct {
	LogLevel  string
	RedisAddr string
	RedisDB   int
	QueueName string
}

// Logger builds a logrus logger at the configured level.
func (c *Common) Logger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func (c *Common) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", c.LogLevel, err)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("invalid --redis-db: %d", c.RedisDB)
	}
	return nil
}

// Server configures the game server.
type Server struct {
	Common

	Bind           string
	Port           int
	GracePeriod    time.Duration
	AllowedOrigins []string
	PublicURL      string
	ConnBuffer     int
	TokenTTL       time.Duration
	TokenKey       string
	TokenPublicKey string
}

// Addr is the listen address.
func (c *Server) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func (c *Server) validate() error {
	if err := c.Common.validate(); err != nil {
		return err
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.GracePeriod <= 0 {
		return errors.New("--grace-period must be positive")
	}
	if c.ConnBuffer < 1 {
		return fmt.Errorf("invalid --conn-buffer: %d", c.ConnBuffer)
	}
	if (c.TokenKey == "") != (c.TokenPublicKey == "") {
		return errors.New("both --token-key and --token-public-key must be provided together")
	}
	return nil
}

// Historian configures the journal consumer.
type Historian struct {
	Common

	PostgresDSN   string
	BatchSize     int
	FlushInterval time.Duration
	Inactivity    time.Duration
}

func (c *Historian) validate() error {
	if err := c.Common.validate(); err != nil {
		return err
	}
	if c.PostgresDSN == "" {
		return errors.New("--postgres-dsn is required")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("invalid --batch-size: %d", c.BatchSize)
	}
	if c.FlushInterval <= 0 || c.Inactivity <= 0 {
		return errors.New("--flush-interval and --inactivity must be positive")
	}
	return nil
}

// NewServerCommand returns the root command of the game server. run receives
// the validated config.
func NewServerCommand(cfg *Server, run func(context.Context, *Server) error) *cobra.Command {
	cmd := newCommand("palace", "Multiplayer Palace card game server.", func(ctx context.Context) error {
		if err := cfg.validate(); err != nil {
			return err
		}
		return run(ctx, cfg)
	})

	fs := cmd.Flags()
	addCommonFlags(fs, &cfg.Common)
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: PALACE_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: PALACE_PORT)")
	fs.DurationVar(&cfg.GracePeriod, "grace-period", 60*time.Second, "how long a dropped player keeps their seat (env: PALACE_GRACE_PERIOD)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", []string{"*"}, "origins allowed for CORS and WebSocket upgrades (env: PALACE_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "client base URL encoded in share QR codes (env: PALACE_PUBLIC_URL)")
	fs.IntVar(&cfg.ConnBuffer, "conn-buffer", 64, "outbound events buffered per socket (env: PALACE_CONN_BUFFER)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 12*time.Hour, "lifetime of rejoin tokens, 0 for no expiry (env: PALACE_TOKEN_TTL)")
	fs.StringVar(&cfg.TokenKey, "token-key", "", "path to a raw ed25519 private key for rejoin tokens (env: PALACE_TOKEN_KEY)")
	fs.StringVar(&cfg.TokenPublicKey, "token-public-key", "", "path to the matching ed25519 public key (env: PALACE_TOKEN_PUBLIC_KEY)")

	bindEnv(fs)
	return cmd
}

// NewHistorianCommand returns the root command of the journal consumer.
func NewHistorianCommand(cfg *Historian, run func(context.Context, *Historian) error) *cobra.Command {
	cmd := newCommand("palace-historian", "Moves the game action journal from Redis into Postgres.", func(ctx context.Context) error {
		if err := cfg.validate(); err != nil {
			return err
		}
		return run(ctx, cfg)
	})

	fs := cmd.Flags()
	addCommonFlags(fs, &cfg.Common)
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", "", "Postgres connection string (env: PALACE_POSTGRES_DSN)")
	fs.IntVar(&cfg.BatchSize, "batch-size", 20, "records per insert transaction (env: PALACE_BATCH_SIZE)")
	fs.DurationVar(&cfg.FlushInterval, "flush-interval", 500*time.Millisecond, "longest a partial batch waits (env: PALACE_FLUSH_INTERVAL)")
	fs.DurationVar(&cfg.Inactivity, "inactivity", 10*time.Minute, "quiet time before an unfinished game is marked abandoned (env: PALACE_INACTIVITY)")

	bindEnv(fs)
	return cmd
}

func newCommand(use, short string, run func(context.Context) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	cmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func addCommonFlags(fs *pflag.FlagSet, c *Common) {
	fs.StringVar(&c.LogLevel, "log-level", "info", "logrus level: debug, info, warn or error (env: PALACE_LOG_LEVEL)")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for the action journal, empty disables it (env: PALACE_REDIS_ADDR)")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis database number (env: PALACE_REDIS_DB)")
	fs.StringVar(&c.QueueName, "queue-name", "palace_actions", "Redis list holding the action journal (env: PALACE_QUEUE_NAME)")
}

// bindEnv lets PALACE_* environment variables fill any flag not given on the
// command line.
func bindEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
