package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// DefaultConfig returns a configuration populated purely from defaults.
// Used by tests and by commands that do not need a config file.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logrus.Fatalf("error unmarshaling default config: %v", err)
	}

	return &config
}

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	loadEnvFile()

	v := viper.New()

	setupViperConfig(v, configFile)
	bindEnvironmentVariables(v)

	config, err := readAndUnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := applyLegacyOpenFGAURL(config, os.Getenv("OPENFGA_CLIENT_URL")); err != nil {
		return nil, err
	}

	if err := setupLogging(config, v); err != nil {
		return nil, err
	}

	return config, nil
}

// applyLegacyOpenFGAURL honours the single-URL environment variable the
// original deployment scripts exported, splitting it into the scheme, host,
// and port fields the structured config uses.
func applyLegacyOpenFGAURL(config *Config, raw string) error {
	if len(raw) == 0 {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid OPENFGA_CLIENT_URL: %w", err)
	}
	if len(parsed.Scheme) == 0 || len(parsed.Hostname()) == 0 {
		return fmt.Errorf("invalid OPENFGA_CLIENT_URL: %q", raw)
	}

	config.OpenFGA.Scheme = parsed.Scheme
	config.OpenFGA.Host = parsed.Hostname()

	port := parsed.Port()
	if len(port) == 0 {
		port = "80"
		if parsed.Scheme == "https" {
			port = "443"
		}
	}
	config.OpenFGA.Port = port

	return nil
}

// loadEnvFile loads the .env file if it exists
func loadEnvFile() {
	if err := gotenv.Load(); err != nil {
		// .env file not found, that's okay - continue with other sources
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}
}

// setupViperConfig configures viper with file paths and defaults
func setupViperConfig(v *viper.Viper, configFile string) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/hiershare")
	v.AddConfigPath("~/.config/hiershare")

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}

	setDefaults(v)

	v.SetEnvPrefix("HIERSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
}

// bindEnvironmentVariables binds all environment variables to viper.
// The second name on each binding keeps compatibility with the environment
// the original deployment scripts exported.
func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("profile", "HIERSHARE_PROFILE", "PROFILE")
	v.BindEnv("database.url", "HIERSHARE_DATABASE_URL", "DATABASE_URL")

	v.BindEnv("openfga.scheme", "HIERSHARE_OPENFGA_SCHEME")
	v.BindEnv("openfga.host", "HIERSHARE_OPENFGA_HOST")
	v.BindEnv("openfga.port", "HIERSHARE_OPENFGA_PORT")
	v.BindEnv("openfga.token", "HIERSHARE_OPENFGA_TOKEN")
	v.BindEnv("openfga.store_id", "HIERSHARE_OPENFGA_STORE_ID", "OPENFGA_STORE_ID")
	v.BindEnv("openfga.auth_model_id", "HIERSHARE_OPENFGA_AUTH_MODEL_ID", "OPENFGA_AUTH_MODEL_ID")

	v.BindEnv("backend.endpoint", "HIERSHARE_BACKEND_ENDPOINT")

	v.BindEnv("logging.level", "HIERSHARE_LOGGING_LEVEL")
	v.BindEnv("logging.format", "HIERSHARE_LOGGING_FORMAT")
	v.BindEnv("logging.output", "HIERSHARE_LOGGING_OUTPUT")
}

// readAndUnmarshalConfig reads the configuration file and unmarshals it
func readAndUnmarshalConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setupLogging configures the logging system based on the config
func setupLogging(config *Config, v *viper.Viper) error {
	logrusLevel, err := logrus.ParseLevel(config.Logging.Level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}

	logrus.SetLevel(logrusLevel)
	config.logger = *NewRingLogger()
	logrus.AddHook(&config.logger)

	switch strings.ToLower(config.Logging.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		logrus.WithFields(logrus.Fields{
			"format": config.Logging.Format,
		}).Warn("Unknown log format")
	}

	// Dump out the config settings if in debug mode
	if logrusLevel >= logrus.DebugLevel {
		for key, value := range v.AllSettings() {
			logrus.Debugf("Config '%s': %v\n", key, value)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {

	v.SetDefault("profile", "dev")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)

	// API defaults
	v.SetDefault("api.base", "/api")

	// Metrics defaults
	v.SetDefault("server.metrics.enabled", true)
	v.SetDefault("server.metrics.path", "/metrics")

	// Health defaults
	v.SetDefault("server.health.enabled", true)
	v.SetDefault("server.health.path", "/health")

	// Ready defaults
	v.SetDefault("server.ready.enabled", true)
	v.SetDefault("server.ready.path", "/ready")

	// Security defaults
	v.SetDefault("server.security.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.security.cors.allowed_headers", []string{"Content-Type", "X-User-Id", "X-Requested-With"})
	v.SetDefault("server.security.cors.max_age", 86400)

	// Limit defaults
	v.SetDefault("server.limits.read_timeout", "30s")
	v.SetDefault("server.limits.write_timeout", "30s")
	v.SetDefault("server.limits.idle_timeout", "120s")
	v.SetDefault("server.limits.requests_per_minute", 100)
	v.SetDefault("server.limits.burst", 10)

	// OpenFGA defaults match a locally run server container
	v.SetDefault("openfga.scheme", "http")
	v.SetDefault("openfga.host", "localhost")
	v.SetDefault("openfga.port", "8080")
	v.SetDefault("openfga.token", "")
	v.SetDefault("openfga.store_id", "")
	v.SetDefault("openfga.auth_model_id", "")

	// Where the CLI finds the gateway
	v.SetDefault("backend.endpoint", "http://localhost:5001")

	// Permission decision cache
	v.SetDefault("authz.cache_ttl", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}
