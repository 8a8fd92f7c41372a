/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/khawawish/credentials"
)

const envPrefix = "KHAWAWISH"

type Config struct {
	apiURL      string
	credentials string
	verbose     bool

	// serve
	bind           string
	heartbeat      time.Duration
	imageDir       string
	jwtSecret      string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	tokenTTL       time.Duration
	uploadDir      string

	// play
	reconnect bool

	// account commands
	avatar      bool
	banner      bool
	bio         string
	displayName string
	email       string
	password    string

	// listing commands
	limit    int
	minGames int
	order    string
	page     int
	pageSize int
	sortBy   string
}

func (c *Config) validate() error {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return fmt.Errorf("invalid --api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid --api url (must be http or https): %s", c.apiURL)
	}

	return nil
}

func (c *Config) validateServe() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.heartbeat <= 0 {
		return fmt.Errorf("invalid heartbeat (must be positive): %s", c.heartbeat)
	}
	if c.tokenTTL <= 0 {
		return fmt.Errorf("invalid token ttl (must be positive): %s", c.tokenTTL)
	}
	if c.prefix != "" && !strings.HasPrefix(c.prefix, "/") {
		return fmt.Errorf("invalid prefix (must start with /): %s", c.prefix)
	}

	c.prefix = strings.TrimSuffix(c.prefix, "/")

	return nil
}

func (c *Config) validateListing() error {
	if c.order != "" && c.order != "asc" && c.order != "desc" {
		return fmt.Errorf("invalid --order (must be asc or desc): %s", c.order)
	}
	if c.page < 0 || c.pageSize < 0 || c.minGames < 0 || c.limit < 0 {
		return errors.New("--page, --page-size, --min-games and --limit must not be negative")
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) credentialStore() (*credentials.Store, error) {
	path := c.credentials
	if path == "" {
		var err error
		path, err = credentials.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	return credentials.NewStore(path), nil
}

func normalize(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// bindFlags lets KHAWAWISH_<FLAG> fill any flag not given on the command
// line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "khawawish",
		Short:         "Terminal client and development peer for the Khawawish guessing game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
	}

	fs := cmd.PersistentFlags()
	normalize(fs)

	fs.StringVarP(&cfg.apiURL, "api", "a", "http://localhost:8153/api", "base url of the game api (env: KHAWAWISH_API)")
	fs.StringVar(&cfg.credentials, "credentials", "", "path to the credentials file (env: KHAWAWISH_CREDENTIALS)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: KHAWAWISH_VERBOSE)")

	bindFlags(v, fs)

	cmd.AddCommand(
		newServeCmd(cfg, v),
		newPlayCmd(cfg, v),
		newLoginCmd(cfg, v),
		newRegisterCmd(cfg, v),
		newLogoutCmd(cfg),
		newWhoamiCmd(cfg),
		newLobbiesCmd(cfg),
		newLeaderboardCmd(cfg, v),
		newUserCmd(cfg),
		newSearchCmd(cfg, v),
		newUploadCmd(cfg, v),
		newEditCmd(cfg, v),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("khawawish v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newServeCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory game peer for local development.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateServe(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: KHAWAWISH_BIND)")
	fs.DurationVar(&cfg.heartbeat, "heartbeat", 7*time.Second, "interval between pings to each socket (env: KHAWAWISH_HEARTBEAT)")
	fs.StringVar(&cfg.imageDir, "image-dir", "", "directory of character images; built-in placeholders if unset (env: KHAWAWISH_IMAGE_DIR)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "HS256 signing key; random per run if unset (env: KHAWAWISH_JWT_SECRET)")
	fs.IntVarP(&cfg.port, "port", "p", 8153, "port to listen on (env: KHAWAWISH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "/api", "path to prepend to all URLs (env: KHAWAWISH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: KHAWAWISH_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle lobbies are closed (env: KHAWAWISH_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: KHAWAWISH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: KHAWAWISH_TLS_KEY)")
	fs.DurationVar(&cfg.tokenTTL, "token-ttl", time.Hour, "lifetime of issued access tokens (env: KHAWAWISH_TOKEN_TTL)")
	fs.StringVar(&cfg.uploadDir, "upload-dir", "", "directory for uploaded files; a temp dir if unset (env: KHAWAWISH_UPLOAD_DIR)")

	bindFlags(v, fs)

	return cmd
}

func newPlayCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Connect to the game socket and play interactively.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return play(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	normalize(fs)

	fs.BoolVar(&cfg.reconnect, "reconnect", false, "redial up to 5 times with backoff after a dropped socket (env: KHAWAWISH_RECONNECT)")

	bindFlags(v, fs)

	return cmd
}
