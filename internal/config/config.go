package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalid = errors.New("config: invalid")

const (
	RealtimeNoop      = "noop"
	RealtimeWebSocket = "websocket"

	RevisionPhase2 = "phase2"
	RevisionPhase3 = "phase3"
)

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Update    UpdateConfig    `toml:"update"`
	Realtime  RealtimeConfig  `toml:"realtime"`
	Reminders RemindersConfig `toml:"reminders"`
	Relay     RelayConfig     `toml:"relay"`
	UI        UIConfig        `toml:"ui"`
	Log       LogConfig       `toml:"log"`
}

type APIConfig struct {
	BaseURL         string   `toml:"base_url"`
	Timeout         Duration `toml:"timeout"`
	BackendRevision string   `toml:"backend_revision"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type UpdateConfig struct {
	Contract string `toml:"contract"`
}

type RealtimeConfig struct {
	Mode                 string   `toml:"mode"`
	URL                  string   `toml:"url"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
	ReconnectInterval    Duration `toml:"reconnect_interval"`
}

type RemindersConfig struct {
	PollInterval Duration `toml:"poll_interval"`
	Buffer       int      `toml:"buffer"`
	Lookahead    int      `toml:"lookahead"`
	Desktop      bool     `toml:"desktop_notifications"`
}

type RelayConfig struct {
	Addr           string `toml:"addr"`
	UpstreamURL    string `toml:"upstream_url"`
	TranscriptPath string `toml:"transcript_path"`
}

type UIConfig struct {
	// StatePath remembers the last view and filter between runs. Empty
	// disables it.
	StatePath string `toml:"state_path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:         "http://localhost:8000",
			Timeout:         Duration{15 * time.Second},
			BackendRevision: RevisionPhase3,
		},
		Store:  StoreConfig{Path: "tasksync.db"},
		Update: UpdateConfig{Contract: "v1"},
		Realtime: RealtimeConfig{
			Mode:                 RealtimeNoop,
			URL:                  "ws://localhost:8000/ws",
			MaxReconnectAttempts: 5,
			ReconnectInterval:    Duration{5 * time.Second},
		},
		Reminders: RemindersConfig{
			PollInterval: Duration{time.Minute},
			Buffer:       64,
			Lookahead:    10,
		},
		Relay: RelayConfig{
			Addr:           ":3000",
			UpstreamURL:    "http://localhost:8000/chat",
			TranscriptPath: "chat.db",
		},
		UI: UIConfig{StatePath: "tasksync-ui.json"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "tasksync.log",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w api.base_url: empty", ErrInvalid)
	}
	if c.API.Timeout.Duration <= 0 {
		return fmt.Errorf("%w api.timeout: %s", ErrInvalid, c.API.Timeout)
	}
	switch c.API.BackendRevision {
	case RevisionPhase2, RevisionPhase3:
	default:
		return fmt.Errorf("%w api.backend_revision: %q", ErrInvalid, c.API.BackendRevision)
	}
	switch c.Realtime.Mode {
	case RealtimeNoop:
	case RealtimeWebSocket:
		if strings.TrimSpace(c.Realtime.URL) == "" {
			return fmt.Errorf("%w realtime.url: empty", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w realtime.mode: %q", ErrInvalid, c.Realtime.Mode)
	}
	if c.Realtime.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w realtime.max_reconnect_attempts: %d", ErrInvalid, c.Realtime.MaxReconnectAttempts)
	}
	if c.Realtime.ReconnectInterval.Duration <= 0 {
		return fmt.Errorf("%w realtime.reconnect_interval: %s", ErrInvalid, c.Realtime.ReconnectInterval)
	}
	if c.Reminders.PollInterval.Duration < time.Second {
		return fmt.Errorf("%w reminders.poll_interval: %s", ErrInvalid, c.Reminders.PollInterval)
	}
	if c.Reminders.Buffer <= 0 || c.Reminders.Lookahead <= 0 {
		return fmt.Errorf("%w reminders: buffer=%d lookahead=%d", ErrInvalid, c.Reminders.Buffer, c.Reminders.Lookahead)
	}
	if strings.TrimSpace(c.Update.Contract) == "" {
		return fmt.Errorf("%w update.contract: empty", ErrInvalid)
	}
	return nil
}
