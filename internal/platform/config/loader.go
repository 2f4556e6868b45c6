package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "audio-notify-server-go/internal/platform/errors"
)

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = "config.yaml"

// Loader reads the server configuration from an optional YAML file,
// layering environment variables on top.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader that reads the default config file location.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      DefaultConfigFile,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the configuration: defaults, then file, then environment.
// A missing config file is not an error; a malformed one is.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	cfg := DefaultConfig()
	path := ""

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig,
				"load", fmt.Sprintf("malformed config file %s", l.path), err)
		}
		path = l.path
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, platformerrors.Wrap(platformerrors.KindConfig,
			"load", fmt.Sprintf("read config file %s", l.path), err)
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

// applyEnv layers NOTIFY_* environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NOTIFY_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("NOTIFY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NOTIFY_SOUND_FILE"); v != "" {
		cfg.Notify.SoundFile = v
	}
	if v := os.Getenv("NOTIFY_DEBUG"); isTruthy(v) {
		cfg.Log.Level = "DEBUG"
	}
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return platformerrors.New(platformerrors.KindConfig,
			"validate", fmt.Sprintf("invalid port %d", cfg.Server.Port))
	}
	if cfg.Server.Host == "" {
		return platformerrors.New(platformerrors.KindConfig,
			"validate", "server host must not be empty")
	}
	return nil
}
