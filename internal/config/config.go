// Package config holds server settings, read from flags and BINGO_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ReleaseVersion = "0.1.0"

type Config struct {
	Bind           string
	Port           int
	UploadDir      string
	MaxUploadSize  int64
	GameTTL        time.Duration
	SweepInterval  time.Duration
	DatabaseURL    string
	PublicURL      string
	AllowedOrigins []string
	TrustProxy     bool
	Verbose        bool
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("--upload-dir must not be empty"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid --max-upload-size: %d", c.MaxUploadSize))
	}
	if c.GameTTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid --game-ttl: %s", c.GameTTL))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("invalid --sweep-interval: %s", c.SweepInterval))
	}
	if c.PublicURL != "" {
		u, err := url.Parse(c.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid --public-url: %q", c.PublicURL))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// LoadDotEnv reads KEY=value pairs into the environment. Missing files are ignored
// and variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// NewCommand builds the root command. Environment values are applied to any
// flag not given on the command line.
func NewCommand(cfg *Config, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "bingo-server",
		Short:   "Real-time team bingo over websockets.",
		Args:    cobra.ExactArgs(0),
		Version: ReleaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BINGO_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 3000, "port to listen on (env: BINGO_PORT)")
	fs.StringVar(&cfg.UploadDir, "upload-dir", "uploads", "directory for uploaded images (env: BINGO_UPLOAD_DIR)")
	fs.Int64Var(&cfg.MaxUploadSize, "max-upload-size", 5<<20, "maximum image size in bytes (env: BINGO_MAX_UPLOAD_SIZE)")
	fs.DurationVar(&cfg.GameTTL, "game-ttl", 24*time.Hour, "age after which games are discarded (env: BINGO_GAME_TTL)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Hour, "how often expired games are swept, 0 disables (env: BINGO_SWEEP_INTERVAL)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres DSN for the upload ledger, optional (env: BINGO_DATABASE_URL)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "external base URL used in QR codes (env: BINGO_PUBLIC_URL)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origin", nil, "extra websocket origin patterns (env: BINGO_ALLOWED_ORIGIN)")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", false, "honour X-Forwarded-* headers from a reverse proxy (env: BINGO_TRUST_PROXY)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: BINGO_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
