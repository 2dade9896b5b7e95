// Package config loads application configuration from an optional config
// file and CAMPNUDGE_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. client_id is read from CAMPNUDGE_CLIENT_ID.
const EnvPrefix = "CAMPNUDGE"

// Token storage backends.
const (
	TokenBackendSQLite  = "sqlite"
	TokenBackendKeyring = "keyring"
)

// Config holds the application configuration.
type Config struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	AccountID    string `mapstructure:"account_id"`
	UserAgent    string `mapstructure:"user_agent"`
	APIBaseURL   string `mapstructure:"api_base_url"`
	LaunchpadURL string `mapstructure:"launchpad_url"`

	DBPath            string `mapstructure:"db_path"`
	SecretKeyHex      string `mapstructure:"secret_key"`
	TokenBackend      string `mapstructure:"token_backend"`
	KeyringDir        string `mapstructure:"keyring_dir"`
	KeyringPassphrase string `mapstructure:"keyring_passphrase"`
	ListenAddr        string `mapstructure:"listen_addr"`

	ProjectPattern  string        `mapstructure:"project_pattern"`
	MaxProjectAge   time.Duration `mapstructure:"max_project_age"`
	MaxProjectIdle  time.Duration `mapstructure:"max_project_idle"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	TokenMaxAge     time.Duration `mapstructure:"token_max_age"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ScanConcurrency int           `mapstructure:"scan_concurrency"`
	ThreadSubject   string        `mapstructure:"thread_subject"`
	ThreadMarker    string        `mapstructure:"thread_marker"`

	// SecretKey is the decoded SecretKeyHex; nil when no key is configured,
	// in which case tokens are stored as plaintext.
	SecretKey []byte `mapstructure:"-"`
	// ProjectRegexp is the compiled ProjectPattern.
	ProjectRegexp *regexp.Regexp `mapstructure:"-"`
}

var defaults = map[string]any{
	"client_id":          "",
	"client_secret":      "",
	"redirect_uri":       "http://localhost:8000/callback",
	"account_id":         "",
	"user_agent":         "campnudge (ops@example.com)",
	"api_base_url":       "https://3.basecampapi.com",
	"launchpad_url":      "https://launchpad.37signals.com",
	"db_path":            "campnudge.db",
	"secret_key":         "",
	"token_backend":      TokenBackendSQLite,
	"keyring_dir":        "~/.config/campnudge/keyring",
	"keyring_passphrase": "",
	"listen_addr":        "127.0.0.1:8000",
	"project_pattern":    `(?i)^K6\d{3}_EXTERNAL.*`,
	"max_project_age":    5 * 365 * 24 * time.Hour,
	"max_project_idle":   365 * 24 * time.Hour,
	"stale_after":        7 * 24 * time.Hour,
	"cooldown":           7 * 24 * time.Hour,
	"token_max_age":      7 * 24 * time.Hour,
	"request_timeout":    30 * time.Second,
	"scan_concurrency":   4,
	"thread_subject":     "📢 Unread Client Messages & Comments Notification",
	"thread_marker":      "Unread Client Messages & Comments Notification",
}

// Load reads configuration and returns a Config whose values are well formed.
// configFile is optional; when set it must exist. Environment variables
// override file values, which override defaults. Credentials required to
// reach the API are checked separately by RequireAPICredentials so commands
// that only touch the database work without them.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RequireAPICredentials reports the first missing setting needed to talk to
// the OAuth2 provider and the Basecamp API.
func (c *Config) RequireAPICredentials() error {
	required := []struct {
		key, value string
	}{
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"redirect_uri", c.RedirectURI},
		{"account_id", c.AccountID},
		{"user_agent", c.UserAgent},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", envName(r.key))
		}
	}
	return nil
}

// HasSecretKey reports whether tokens are encrypted at rest.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != nil
}

func (c *Config) validate() error {
	var errs []error

	durations := []struct {
		key   string
		value time.Duration
	}{
		{"max_project_age", c.MaxProjectAge},
		{"max_project_idle", c.MaxProjectIdle},
		{"stale_after", c.StaleAfter},
		{"cooldown", c.Cooldown},
		{"token_max_age", c.TokenMaxAge},
		{"request_timeout", c.RequestTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration, got %s", envName(d.key), d.value))
		}
	}

	if c.ScanConcurrency < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", envName("scan_concurrency"), c.ScanConcurrency))
	}

	re, err := regexp.Compile(c.ProjectPattern)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s is not a valid regular expression: %w", envName("project_pattern"), err))
	}
	c.ProjectRegexp = re

	switch c.TokenBackend {
	case TokenBackendSQLite, TokenBackendKeyring:
	default:
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", envName("token_backend"), TokenBackendSQLite, TokenBackendKeyring, c.TokenBackend))
	}

	if c.SecretKeyHex != "" {
		key, err := hex.DecodeString(c.SecretKeyHex)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be hex-encoded: %w", envName("secret_key"), err))
		} else if len(key) != 32 {
			errs = append(errs, fmt.Errorf("%s must decode to 32 bytes for AES-256, got %d", envName("secret_key"), len(key)))
		} else {
			c.SecretKey = key
		}
	}

	if strings.TrimSpace(c.ThreadMarker) == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", envName("thread_marker")))
	} else if !strings.Contains(c.ThreadSubject, c.ThreadMarker) {
		errs = append(errs, fmt.Errorf("%s must contain %s so created threads are found again", envName("thread_subject"), envName("thread_marker")))
	}

	return errors.Join(errs...)
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
