// Package config reads the Connection Driver's environment variables and
// the per-game JSON configuration file from the data root, per spec §6.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/staminal/host/internal/logging"
	"github.com/staminal/host/internal/staminalerr"
)

// DefaultEventBufferSize is used when no game config is loaded, per spec
// §9's resolution of that open question.
const DefaultEventBufferSize = 64 * 1024

// Env holds the Connection Driver's environment-derived configuration.
type Env struct {
	URI      string
	Lang     string
	Home     string
	Game     string
	LogLevel logging.Level
	LogDeps  bool
	LogFile  string
	NoColor  bool
}

// FromEnviron reads Env from the process environment.
func FromEnviron() Env {
	return Env{
		URI:      os.Getenv("STAM_URI"),
		Lang:     envOr("STAM_LANG", "en"),
		Home:     os.Getenv("STAM_HOME"),
		Game:     os.Getenv("STAM_GAME"),
		LogLevel: logging.ParseLevel(os.Getenv("STAM_LOG_LEVEL")),
		LogDeps:  os.Getenv("STAM_LOGDEPS") != "",
		LogFile:  os.Getenv("STAM_LOG_FILE"),
		NoColor:  os.Getenv("NO_COLOR") != "",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GameConfig is the per-game JSON configuration living at
// <data root>/<game>/game.json.
type GameConfig struct {
	EventBufferSize uint32 `json:"event_buffer_size"`
}

// LoadGameConfig reads and validates the game configuration for game under
// home. A missing or empty event_buffer_size falls back to
// DefaultEventBufferSize rather than failing, since spec §9 leaves
// server-less test harnesses without a loaded game config unspecified.
func LoadGameConfig(home, game string) (*GameConfig, error) {
	path := filepath.Join(home, game, "game.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GameConfig{EventBufferSize: DefaultEventBufferSize}, nil
		}
		return nil, staminalerr.Wrap(staminalerr.ConfigError, err, "reading game config "+path)
	}

	var cfg GameConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, staminalerr.Wrap(staminalerr.ConfigError, err, "parsing game config "+path)
	}
	if cfg.EventBufferSize == 0 {
		cfg.EventBufferSize = DefaultEventBufferSize
	}
	return &cfg, nil
}
