// Package settings provides tool-level settings loading and defaults.
//
// Settings live in a TOML file in the data directory and cover how the
// tool itself behaves: logging, the update check, and the modlist watch
// loop. They are deliberately separate from the profile config, which
// describes the mirrored game installation and travels with it.
package settings

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/modmirror/modmirror/internal/atomicfile"
	"github.com/modmirror/modmirror/internal/migrate"
	"github.com/modmirror/modmirror/internal/paths"
)

// ///////////////////////////////////////////////
// Settings Types
// ///////////////////////////////////////////////

// Settings represents the top-level tool settings.
type Settings struct {
	// Version is the settings schema version used for migrations.
	Version int `toml:"version"`
	// Log holds logging settings.
	Log LogSettings `toml:"log"`
	// Update holds release update-check settings.
	Update UpdateSettings `toml:"update"`
	// Watch holds modlist watch-loop settings.
	Watch WatchSettings `toml:"watch"`
}

// LogSettings holds logging settings.
type LogSettings struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// UpdateSettings holds release update-check settings.
type UpdateSettings struct {
	// Check enables the startup check for a newer release.
	Check bool `toml:"check"`
}

// WatchSettings holds modlist watch-loop settings.
type WatchSettings struct {
	// PollIntervalSeconds is the stat-polling interval used when native
	// file notifications are unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Version: migrate.Settings.CurrentVersion,
		Log: LogSettings{
			Level:     "info",
			MaxSizeMB: 10,
		},
		Update: UpdateSettings{
			Check: true,
		},
		Watch: WatchSettings{
			PollIntervalSeconds: 2,
		},
	}
}

// Example returns the settings written to settings.default.toml by the
// genconfig tool. Currently identical to [Default].
func Example() *Settings {
	return Default()
}

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the field is missing or unparseable.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads settings from the data directory. A missing file yields the
// defaults; an old schema is migrated, backed up, and re-saved.
func Load(dataDir paths.DataDir) (*Settings, error) {
	path := dataDir.Settings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	version := PeekVersion(data)
	migrated := migrate.Settings.NeedsMigration(version)
	if migrated {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write settings backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Settings.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate settings: %w", migrateErr)
		}
	}

	s := Default()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	// A file from a newer release keeps its version field.
	if s.Version < migrate.Settings.CurrentVersion {
		s.Version = migrate.Settings.CurrentVersion
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	if migrated {
		if err := s.Save(path); err != nil {
			slog.Warn("failed to save migrated settings", "error", err)
		}
	}
	return s, nil
}

// Save writes the settings to disk as TOML using atomic file write.
func (s *Settings) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all settings values are within acceptable ranges.
func (s *Settings) Validate() error {
	if !validLogLevels[strings.ToLower(s.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", s.Log.Level)
	}
	if s.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", s.Log.MaxSizeMB)
	}
	if s.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watch.poll_interval_seconds must be > 0, got %d", s.Watch.PollIntervalSeconds)
	}
	return nil
}
