package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config represents the application configuration structure
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	OpenFGA  OpenFGAConfig  `mapstructure:"openfga"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Authz    AuthzConfig    `mapstructure:"authz"`

	// Application profile name (e.g. "dev", "prod")
	Profile string `mapstructure:"profile"`

	logger ringLogger
}

type ServerConfig struct {
	Host     string             `mapstructure:"host"`
	Port     int                `mapstructure:"port"`
	Limits   ServerLimitsConfig `mapstructure:"limits"`
	Metrics  MetricsConfig      `mapstructure:"metrics"`
	Health   HealthConfig       `mapstructure:"health"`
	Ready    ReadyConfig        `mapstructure:"ready"`
	Security SecurityConfig     `mapstructure:"security"`
}

type ServerLimitsConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
}

type APIConfig struct {
	Base string `mapstructure:"base"`
}

// OpenFGAConfig locates the external OpenFGA server. The store and
// authorization model are created out of band (see the bootstrap command)
// and referenced here by ID.
type OpenFGAConfig struct {
	Scheme      string `mapstructure:"scheme"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	Token       string `mapstructure:"token"`
	StoreID     string `mapstructure:"store_id"`
	AuthModelID string `mapstructure:"auth_model_id"`
}

// URL returns the base HTTP URL of the OpenFGA server.
func (o OpenFGAConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", o.Scheme, o.Host, o.Port)
}

// BackendConfig points the CLI at a running gateway instance.
type BackendConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AuthzConfig tunes the gateway's permission check path.
type AuthzConfig struct {
	// CacheTTL is how long an allowed check result may be reused.
	// Zero disables caching entirely.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ReadyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// GetListenAddr returns the host:port the gateway binds to.
func (c *Config) GetListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetApiBasePath returns the base path for API routes, e.g. "/api".
func (c *Config) GetApiBasePath() string {
	base := c.API.Base
	if len(base) == 0 {
		return "/api"
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}

// GetBackendUrl returns the gateway endpoint the CLI talks to.
func (c *Config) GetBackendUrl() string {
	return strings.TrimSuffix(c.Backend.Endpoint, "/")
}

// HasDatabase reports whether a Postgres resource store is configured.
func (c *Config) HasDatabase() bool {
	return len(c.Database.URL) > 0
}

// GetLogger exposes the in-memory ring buffer of recent log entries.
func (c *Config) GetLogger() *ringLogger {
	return &c.logger
}

// Validate checks the parts of the configuration that would otherwise only
// fail deep inside a request.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Backend.Endpoint) > 0 {
		if _, err := url.Parse(c.Backend.Endpoint); err != nil {
			return fmt.Errorf("invalid backend endpoint: %w", err)
		}
	}
	switch c.OpenFGA.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("invalid openfga scheme: %q", c.OpenFGA.Scheme)
	}
	return nil
}
