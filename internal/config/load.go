package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultFile    = "tasksync.toml"
	DefaultEnvFile = ".env"
	envPrefix      = "TASKSYNC_"
)

type LoadOptions struct {
	// Path is the TOML file. When empty, DefaultFile is used if it exists.
	Path string
	// EnvFile is loaded into the process environment without overriding
	// variables that are already set. Missing files are ignored.
	EnvFile string
}

// Load layers defaults, the TOML file, the env file and TASKSYNC_* variables.
// Flags are applied by the caller afterwards.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(opts.Path)
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(&cfg, path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func applyEnv(cfg *Config) error {
	setString(&cfg.API.BaseURL, "API_URL")
	setString(&cfg.API.BackendRevision, "BACKEND_REVISION")
	setString(&cfg.Store.Path, "STORE_PATH")
	setString(&cfg.Update.Contract, "UPDATE_CONTRACT")
	setString(&cfg.Realtime.Mode, "REALTIME_MODE")
	setString(&cfg.Realtime.URL, "REALTIME_URL")
	setString(&cfg.Relay.Addr, "RELAY_ADDR")
	setString(&cfg.Relay.UpstreamURL, "RELAY_UPSTREAM_URL")
	setString(&cfg.Relay.TranscriptPath, "RELAY_TRANSCRIPT_PATH")
	setString(&cfg.UI.StatePath, "UI_STATE_PATH")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")

	if v, ok := getEnvInt(envPrefix + "REALTIME_MAX_RECONNECT_ATTEMPTS"); ok {
		cfg.Realtime.MaxReconnectAttempts = v
	}
	if v, ok := getEnvInt(envPrefix + "REMINDER_BUFFER"); ok && v > 0 {
		cfg.Reminders.Buffer = v
	}
	if v, ok := getEnvInt(envPrefix + "REMINDER_LOOKAHEAD"); ok && v > 0 {
		cfg.Reminders.Lookahead = v
	}
	if v, ok := getEnvBool(envPrefix + "DESKTOP_NOTIFICATIONS"); ok {
		cfg.Reminders.Desktop = v
	}

	durations := []struct {
		name string
		dst  *Duration
	}{
		{"API_TIMEOUT", &cfg.API.Timeout},
		{"REALTIME_RECONNECT_INTERVAL", &cfg.Realtime.ReconnectInterval},
		{"REMINDER_POLL_INTERVAL", &cfg.Reminders.PollInterval},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(os.Getenv(envPrefix + d.name))
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w %s%s: %q", ErrInvalid, envPrefix, d.name, raw)
		}
		d.dst.Duration = v
	}
	return nil
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(envPrefix + name)); v != "" {
		*dst = v
	}
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
