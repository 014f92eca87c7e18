// Package config loads process configuration from the environment and the
// remote profile (endpoints, confirmation markers, labels) from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-level settings read from PRECOMMANDER_* variables.
type Config struct {
	// BaseURL is the origin of the legacy console, e.g. https://www.xchat.cz.
	BaseURL string `env:"PRECOMMANDER_BASE_URL" envDefault:"https://www.xchat.cz"`
	// PagePath is the text-input page the engine attaches to, relative to
	// BaseURL, including the session prefix (e.g. /~$123~abc/modchat?op=textpageng).
	PagePath string `env:"PRECOMMANDER_PAGE_PATH"`
	// Cookie is a raw Cookie header carrying the operator's session.
	Cookie string `env:"PRECOMMANDER_COOKIE"`
	// ProfilePath is an optional YAML file overriding the built-in profile.
	ProfilePath string `env:"PRECOMMANDER_PROFILE"`
	// ReportTo overrides the reply recipient. Empty means the acting nick.
	ReportTo string `env:"PRECOMMANDER_REPORT_TO"`

	RequestTimeout time.Duration `env:"PRECOMMANDER_REQUEST_TIMEOUT" envDefault:"20s"`
	RequestsPerSec float64       `env:"PRECOMMANDER_REQUESTS_PER_SEC" envDefault:"4"`
	RequestBurst   int           `env:"PRECOMMANDER_REQUEST_BURST" envDefault:"2"`
	// MaxPages is the hard ceiling on any paginated listing walk.
	MaxPages int `env:"PRECOMMANDER_MAX_PAGES" envDefault:"50"`
	// ConfirmDelay is the wait before the second confirmation reread.
	ConfirmDelay time.Duration `env:"PRECOMMANDER_CONFIRM_DELAY" envDefault:"300ms"`

	AttachInterval    time.Duration `env:"PRECOMMANDER_ATTACH_INTERVAL" envDefault:"1s"`
	AttachMaxAttempts int           `env:"PRECOMMANDER_ATTACH_MAX_ATTEMPTS" envDefault:"10"`

	LogLevel  string `env:"PRECOMMANDER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PRECOMMANDER_LOG_FORMAT" envDefault:"text"`

	Matrix MatrixConfig
}

// MatrixConfig enables the optional audit room mirror. All three fields and
// AuditRoom must be set for the mirror to be active.
type MatrixConfig struct {
	Homeserver  string `env:"MATRIX_HOMESERVER"`
	UserID      string `env:"MATRIX_USER_ID"`
	AccessToken string `env:"MATRIX_ACCESS_TOKEN"`
	AuditRoom   string `env:"MATRIX_AUDIT_ROOM"`
}

// Enabled reports whether the audit mirror is fully configured.
func (m MatrixConfig) Enabled() bool {
	return m.Homeserver != "" && m.UserID != "" && m.AccessToken != "" && m.AuditRoom != ""
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the Config for values the engine cannot run with.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("PRECOMMANDER_BASE_URL must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("PRECOMMANDER_MAX_PAGES must be positive, got %d", c.MaxPages)
	}
	if c.RequestsPerSec <= 0 {
		return fmt.Errorf("PRECOMMANDER_REQUESTS_PER_SEC must be positive, got %v", c.RequestsPerSec)
	}
	if c.RequestBurst <= 0 {
		c.RequestBurst = 1
	}
	return nil
}

// LoadProfile returns the built-in profile, overridden by the YAML file at
// c.ProfilePath when set.
func (c *Config) LoadProfile() (*Profile, error) {
	if c.ProfilePath == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(c.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}
