// Package main implements the modmirror command, which reads a Mod
// Organizer profile and maintains a git-friendly mirror of its modlist and
// owned mods.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	rootpkg "github.com/modmirror/modmirror"
	"github.com/modmirror/modmirror/internal/config"
	"github.com/modmirror/modmirror/internal/logger"
	"github.com/modmirror/modmirror/internal/modlist"
	"github.com/modmirror/modmirror/internal/paths"
	"github.com/modmirror/modmirror/internal/prereq"
	"github.com/modmirror/modmirror/internal/settings"
	"github.com/modmirror/modmirror/internal/update"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically, so dev builds get a useful version string
// without needing git at runtime.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for modmirror data,
// typically ~/.modmirror. Falls back to ./.modmirror if the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Init
// ///////////////////////////////////////////////

// initProfileConfig writes the sample profile config to path. It refuses to
// overwrite an existing file so a typo'd -init can never destroy a working
// setup.
func initProfileConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, rootpkg.SampleProfileJSON, 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	configPath := flag.String("config", "", "Path to the profile config JSON (required)")
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for settings, lock, and logs")
	profileName := flag.String("profile", "default", "Mod manager profile name to mirror")
	watch := flag.Bool("watch", false, "Keep running and re-mirror whenever the modlist changes")
	doInit := flag.Bool("init", false, "Write a sample profile config to -config and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	tailLines := flag.Int("tail", 0, "Print the last N log lines and exit")
	noUpdateCheck := flag.Bool("no-update-check", false, "Skip the release update check")
	flag.Parse()

	if *showVersion {
		fmt.Println("modmirror " + resolveVersion())
		return
	}

	dp := DataPaths{Root: *dataDir}

	if err := os.MkdirAll(dp.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	if *tailLines > 0 {
		out, err := logger.ReadTail(dp.Log(), *tailLines)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: read log: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "fatal: -config is required (use -init to create one)")
		flag.Usage()
		os.Exit(2)
	}

	if *doInit {
		if err := initProfileConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote sample config to %s\n", *configPath)
		return
	}

	if alive, pid := checkStaleLock(dp); alive {
		fmt.Fprintf(os.Stderr, "another instance is already running (pid %d)\n", pid)
		os.Exit(1)
	}

	if _, err := os.Stat(dp.Settings()); os.IsNotExist(err) {
		if writeErr := os.WriteFile(dp.Settings(), rootpkg.DefaultSettingsTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default settings: %v\n", writeErr)
		}
	}

	st, err := settings.Load(dp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load settings: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLevel(st.Log.Level)
	log, logCloser, err := logger.NewLogger(dp.Log(), logLevel, st.Log.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("modmirror starting", "version", ver, "data_dir", dp.Root)

	if st.Update.Check && !*noUpdateCheck {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("update check panic", "error", r)
				}
			}()
			update.Check(ver, dp, log)
		}()
	}

	token := lockToken()
	lockF, err := writeLock(dp, token)
	if err != nil {
		slog.Error("failed to acquire run lock", "error", err)
		os.Exit(1)
	}
	defer removeLock(dp, token, lockF)

	if err := prereq.Check(log); err != nil {
		slog.Error("prerequisite check failed", "error", err)
		os.Exit(1)
	}

	profile, err := paths.NormalizeFileName(*profileName)
	if err != nil {
		slog.Error("invalid profile name", "profile", *profileName, "error", err)
		os.Exit(1)
	}

	_, folders, err := config.Load(*configPath, log)
	if err != nil {
		slog.Error("failed to load profile config", "config", *configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("resolved profile config",
		"game_dir", folders.GameDir,
		"mirror_dir", folders.MirrorDir,
		"downloads", strings.Join(folders.DownloadDirs, ";"),
		"own_mods", len(folders.OwnModNames))

	if err := mirrorPass(folders, profile, log); err != nil {
		slog.Error("mirror pass failed", "error", err)
		os.Exit(1)
	}

	if *watch {
		runWatch(folders, profile, st, log)
	}
}

// ///////////////////////////////////////////////
// Watch Loop
// ///////////////////////////////////////////////

// runWatch blocks re-running the mirror pass whenever the profile's modlist
// changes, until an OS interrupt/terminate signal arrives. A failed pass is
// logged and the loop keeps going; the next change gets a fresh attempt.
func runWatch(folders *config.Folders, profile string, st *settings.Settings, log *slog.Logger) {
	pollInterval := time.Duration(st.Watch.PollIntervalSeconds) * time.Second
	watcher, err := modlist.NewWatcher(gameProfileDir(folders, profile), pollInterval, log)
	if err != nil {
		slog.Error("failed to create modlist watcher", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	if watcher.Polling() {
		slog.Info("using polling mode for modlist watching")
	}

	sigCh := signalChannel()
	slog.Info("watching for modlist changes", "profile", profile)

	for {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			return

		case <-watcher.Events():
			slog.Info("modlist changed, re-running mirror pass")
			if err := mirrorPass(folders, profile, log); err != nil {
				slog.Error("mirror pass failed", "error", err)
			}
		}
	}
}
