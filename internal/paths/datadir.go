package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Well-Known Names
// ///////////////////////////////////////////////

// Data directory file names. The data directory holds modmirror's own
// state (settings, log, run lock), not anything belonging to the mirrored
// game profile.
const (
	SettingsFile      = "settings.toml"
	LogFile           = "modmirror.log"
	LockFile          = "modmirror.lock"
	ManifestCacheFile = "release-cache.json"
	DataDirRel        = ".modmirror" // relative to $HOME
)

// ReleaseManifest is the in-repo path of the release manifest fetched by
// the update check.
const ReleaseManifest = "release.json"

// Names inside the mirrored game tree. These follow the layout of the mod
// manager being mirrored and are not configurable.
const (
	ModlistFile      = "modlist.txt"
	ModsDirName      = "mods"
	ProfilesDirName  = "profiles"
	DownloadsDirName = "downloads"
)

// Default folder names created next to the profile config when the config
// does not choose explicit locations.
const (
	CacheDirName = "modmirror.cache"
	TmpDirName   = "modmirror.tmp"
)

// MirrorModsPrefix is where owned mods live inside the mirror tree,
// relative to the mirror root.
const MirrorModsPrefix = "mo2" + Separator + "mods" + Separator

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at modmirror's data
// directory.
type DataDir struct {
	Root string
}

// Settings returns the full path to the tool settings file.
func (d DataDir) Settings() string { return filepath.Join(d.Root, SettingsFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Lock returns the full path to the run lock file.
func (d DataDir) Lock() string { return filepath.Join(d.Root, LockFile) }

// ManifestCache returns the full path to the cached release manifest.
func (d DataDir) ManifestCache() string { return filepath.Join(d.Root, ManifestCacheFile) }
