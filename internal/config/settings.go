package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// EnvConfig names the environment variable that points at a settings file.
const EnvConfig = "REVIEWGATE_CONFIG"

// localSettingsFile is looked up in the working directory.
const localSettingsFile = ".reviewgate.toml"

// Settings holds persistent CLI defaults loaded from a TOML file.
type Settings struct {
	Logger   Logger   `toml:"logger"`
	Review   Review   `toml:"review"`
	IssueLog IssueLog `toml:"issue_log"`

	// Path is the file the settings came from, empty for built-in defaults.
	Path string `toml:"-"`
}

// Logger configures slog.
type Logger struct {
	Level string `toml:"level"`
}

// Review holds defaults for the review command.
type Review struct {
	Format        string   `toml:"format"`
	MinConfidence int      `toml:"min_confidence"`
	Workers       int      `toml:"workers"`
	Exclude       []string `toml:"exclude"`
	DeepSecrets   bool     `toml:"deep_secrets"`
	ScopingField  string   `toml:"scoping_field"`
}

// IssueLog controls the dated JSONL finding log.
type IssueLog struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DefaultSettings returns the values used when no settings file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Logger:   Logger{Level: "warn"},
		Review:   Review{Format: "table", MinConfidence: 70},
		IssueLog: IssueLog{Enabled: true},
	}
}

// ConfigDir is the per-user settings directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "reviewgate")
}

// StateDir is the per-user state directory, used for the issue log when
// the project tree is not writable.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "reviewgate")
}

// LoadSettings decodes a TOML file over the defaults. Keys missing from the
// file keep their default value.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if _, err := toml.DecodeFile(filepath.Clean(path), s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// LocateAndLoadSettings looks through the possible places for the settings
// file, favoring the provided path if it is set. An explicit path that does
// not exist is an error; the implicit locations are optional.
func LocateAndLoadSettings(path string) (*Settings, error) {
	if path != "" {
		return LoadSettings(path)
	}
	if path = os.Getenv(EnvConfig); path != "" {
		return LoadSettings(path)
	}
	for _, candidate := range []string{
		localSettingsFile,
		filepath.Join(ConfigDir(), "config.toml"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return LoadSettings(candidate)
		}
	}
	return DefaultSettings(), nil
}

// SlogLevel parses Logger.Level. An empty level means warn.
func (s *Settings) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s.Logger.Level)) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", s.Logger.Level)
	}
}
