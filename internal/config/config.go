package config

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigDir   = filepath.Join(home, ".config", "cdn-publish")
	DefaultBaseURL     = "https://storage.bunnycdn.com"
	DefaultEnvFileName = ".env"
)

var (
	ErrNoBaseURL   = errors.New("config: storage api base url missing")
	ErrBadBaseURL  = errors.New("config: storage api base url must be an absolute http(s) url")
	ErrNoAccessKey = errors.New("config: storage api key missing")
	ErrNoZone      = errors.New("config: storage zone name missing")
)

// Config holds the connection settings of a storage zone.
type Config struct {
	BaseURL   string `mapstructure:"storage_api_base_url"`
	AccessKey string `mapstructure:"storage_api_key"`
	Zone      string `mapstructure:"zone_name"`
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrBadBaseURL
	}

	if c.AccessKey == "" {
		return ErrNoAccessKey
	}

	if strings.Trim(c.Zone, "/") == "" {
		return ErrNoZone
	}

	return nil
}

// ZoneURL returns the root url of the storage zone, without a trailing slash.
func (c *Config) ZoneURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + url.PathEscape(strings.Trim(c.Zone, "/"))
}

// LogValue renders the config with the access key masked.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", c.BaseURL),
		slog.String("zone", c.Zone),
		slog.String("access_key", maskSecret(c.AccessKey)),
	)
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
