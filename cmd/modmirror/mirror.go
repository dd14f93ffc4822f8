package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/modmirror/modmirror/internal/atomicfile"
	"github.com/modmirror/modmirror/internal/config"
	"github.com/modmirror/modmirror/internal/modlist"
	"github.com/modmirror/modmirror/internal/paths"
	"github.com/modmirror/modmirror/internal/workspace"
)

// ///////////////////////////////////////////////
// Mirror Pass
// ///////////////////////////////////////////////

// gameProfileDir returns the canonical dir path of a named profile inside
// the game tree. The profile name must already be a normalized file name.
func gameProfileDir(f *config.Folders, profile string) string {
	return f.GameDir + paths.ProfilesDirName + paths.Separator + profile + paths.Separator
}

// mirrorProfileDir returns the canonical dir path of the same profile
// inside the mirror tree.
func mirrorProfileDir(f *config.Folders, profile string) string {
	return f.MirrorDir + "mo2" + paths.Separator + paths.ProfilesDirName + paths.Separator + profile + paths.Separator
}

// mirrorPass runs one pass of the game-to-mirror sync for the given profile:
// it stages a disabled-stripped copy of the modlist through the scratch
// workspace, publishes it into the mirror tree, materializes the owned-mod
// directories, and inventories plugin files for every enabled mod.
//
// The scratch workspace is acquired under the profile's tmp dir and released
// before returning, success or not.
func mirrorPass(f *config.Folders, profile string, log *slog.Logger) error {
	ws, err := workspace.Acquire(f.TmpDir, log)
	if err != nil {
		return fmt.Errorf("acquire workspace: %w", err)
	}
	defer ws.Release()

	profileDir := gameProfileDir(f, profile)
	ml, err := modlist.Load(profileDir)
	if err != nil {
		return fmt.Errorf("load modlist for profile %q: %w", profile, err)
	}
	enabled := ml.AllEnabled()
	log.Info("loaded modlist", "profile", profile, "entries", len(ml.Entries()), "enabled", len(enabled))

	// Stage the rewritten modlist in the workspace first so a failed encode
	// or disk-full never leaves a half-written file in the mirror.
	stage, err := ws.SubDir("stage", 0)
	if err != nil {
		return fmt.Errorf("workspace stage dir: %w", err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return fmt.Errorf("create stage dir: %w", err)
	}
	if err := ml.Write(stage); err != nil {
		return fmt.Errorf("stage modlist: %w", err)
	}
	staged, err := os.ReadFile(stage + paths.ModlistFile)
	if err != nil {
		return fmt.Errorf("read staged modlist: %w", err)
	}

	mirrorProfile := mirrorProfileDir(f, profile)
	if err := os.MkdirAll(mirrorProfile, 0o755); err != nil {
		return fmt.Errorf("create mirror profile dir: %w", err)
	}
	if err := atomicfile.Write(mirrorProfile+paths.ModlistFile, staged, 0o644); err != nil {
		return fmt.Errorf("publish modlist: %w", err)
	}
	log.Debug("published modlist", "path", mirrorProfile+paths.ModlistFile)

	for _, dir := range f.MirrorOwnModDirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create own-mod dir %s: %w", dir, err)
		}
	}

	plugins := 0
	for _, mod := range enabled {
		if _, isSep := modlist.SeparatorName(mod); isSep {
			continue
		}
		modDir := f.ModsDir() + strings.ToLower(mod) + paths.Separator
		if f.IsIgnored(modDir) {
			log.Debug("skipping ignored mod", "mod", mod)
			continue
		}
		files, err := modlist.PluginFiles(f.GameDir, mod)
		if err != nil {
			return fmt.Errorf("inventory plugins for %q: %w", mod, err)
		}
		for _, p := range files {
			log.Debug("plugin", "mod", mod, "file", p)
		}
		plugins += len(files)
	}
	log.Info("mirror pass complete", "profile", profile, "mods", len(enabled), "plugins", plugins)
	return nil
}
