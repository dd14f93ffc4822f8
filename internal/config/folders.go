package config

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/modmirror/modmirror/internal/paths"
)

// ///////////////////////////////////////////////
// Token Substitution
// ///////////////////////////////////////////////

// configDirToken expands to the directory holding the profile config.
// Substitution runs on normalized (lowercased) paths, so matching uses the
// lowercase spelling of every token.
const configDirToken = "{config-dir}"

// defaultIgnoresSentinel in the ignores list expands to the stock ignore
// set under the game root.
const defaultIgnoresSentinel = "{DEFAULT-IGNORES}"

// maxResolvePasses bounds the substitution loop. Tokens may reference each
// other, so resolution repeats until a pass changes nothing; a config whose
// tokens chase each other forever trips this cap instead of hanging.
const maxResolvePasses = 64

// defaultIgnores are the game-root subtrees skipped by default: tool
// output and caches that have no place in a mirror.
var defaultIgnores = []string{
	"plugins" + paths.Separator + "data" + paths.Separator + "rootbuilder",
	"crashdumps",
	"logs",
	"webcache",
	"overwrite" + paths.Separator + "root" + paths.Separator + "logs",
	"overwrite" + paths.Separator + "shadercache",
}

// normalizeAgainst turns a raw config value into a canonical dir path,
// joining relative values onto baseDir first.
func normalizeAgainst(value, baseDir string) (string, error) {
	if filepath.IsAbs(value) {
		return paths.NormalizeDirPath(value)
	}
	return paths.NormalizeDirPath(baseDir + value)
}

// resolveConfigPath resolves one raw config value into a canonical dir
// path, expanding {config-dir} and named tokens until a pass changes
// nothing. Token values are raw config strings; the normalize step at the
// top of each pass folds them into canonical form.
func resolveConfigPath(key, value, configDir string, tokens map[string]string) (string, error) {
	for pass := 0; pass < maxResolvePasses; pass++ {
		norm, err := normalizeAgainst(value, configDir)
		if err != nil {
			return "", configErrf(key, "%v", err)
		}
		next := strings.ReplaceAll(norm, configDirToken, configDir)
		for name, val := range tokens {
			next = strings.ReplaceAll(next, "{"+strings.ToLower(name)+"}", val)
		}
		if next == norm {
			return norm, nil
		}
		value = next
	}
	return "", configErrf(key, "no fixed point after %d substitution passes; tokens reference each other in a cycle", maxResolvePasses)
}

// resolveGameSubdir resolves an ignore entry, which must land inside the
// game root.
func resolveGameSubdir(key, value, gameDir string) (string, error) {
	var raw string
	if filepath.IsAbs(value) {
		raw = value
	} else {
		raw = gameDir + value
	}
	out, err := paths.NormalizeDirPath(raw)
	if err != nil {
		return "", configErrf(key, "entry %q: %v", value, err)
	}
	if !strings.HasPrefix(out, gameDir) {
		return "", configErrf(key, "entry %q resolves to %s, outside the game root %s", value, out, gameDir)
	}
	return out, nil
}

// ///////////////////////////////////////////////
// Folders
// ///////////////////////////////////////////////

// Folders is the fully resolved profile: every root the mirroring pass
// needs, in canonical dir form.
type Folders struct {
	// ConfigDir is the directory holding the profile config file.
	ConfigDir string
	// GameDir is the game (MO2) root. Short paths are relative to it.
	GameDir string
	// DownloadDirs are the roots scanned for downloaded archives.
	DownloadDirs []string
	// IgnoreDirs are game-root subtrees excluded from mirroring.
	IgnoreDirs []string
	// CacheDir holds persistent caches; TmpDir hosts the scratch
	// workspace; MirrorDir is the version-controlled mirror checkout.
	CacheDir  string
	TmpDir    string
	MirrorDir string
	// OwnModNames are the lowercased names of mods owned by the mirror.
	OwnModNames []string
}

// Resolve resolves every raw path in the profile against the directory of
// configFile and returns the aggregate. configFile is the path of the
// profile config document, in any spelling.
func (p *Profile) Resolve(configFile string) (*Folders, error) {
	configDir, err := paths.NormalizeDirPath(filepath.Dir(configFile))
	if err != nil {
		return nil, configErrf("", "config dir: %v", err)
	}
	tokens := p.tokens()

	f := &Folders{ConfigDir: configDir}
	if f.GameDir, err = resolveConfigPath("mo2", p.Game, configDir, tokens); err != nil {
		return nil, err
	}

	downloads := p.Downloads
	if len(downloads) == 0 {
		downloads = []string{f.GameDir + paths.DownloadsDirName + paths.Separator}
	}
	for _, d := range downloads {
		dir, err := resolveConfigPath("downloads", d, configDir, tokens)
		if err != nil {
			return nil, err
		}
		f.DownloadDirs = append(f.DownloadDirs, dir)
	}

	ignores := p.Ignores
	if ignores == nil {
		ignores = []string{defaultIgnoresSentinel}
	}
	for _, ig := range ignores {
		if ig == defaultIgnoresSentinel {
			for _, rel := range defaultIgnores {
				dir, err := paths.NormalizeDirPath(f.GameDir + rel)
				if err != nil {
					return nil, configErrf("ignores", "%v", err)
				}
				f.IgnoreDirs = append(f.IgnoreDirs, dir)
			}
			continue
		}
		dir, err := resolveGameSubdir("ignores", ig, f.GameDir)
		if err != nil {
			return nil, err
		}
		f.IgnoreDirs = append(f.IgnoreDirs, dir)
	}

	// Cache and scratch default to siblings of the config dir so that a
	// mirror wipe never takes them out.
	cache := p.Cache
	if cache == "" {
		cache = configDir + ".." + paths.Separator + paths.CacheDirName + paths.Separator
	}
	if f.CacheDir, err = resolveConfigPath("cache", cache, configDir, tokens); err != nil {
		return nil, err
	}
	tmp := p.Tmp
	if tmp == "" {
		tmp = configDir + ".." + paths.Separator + paths.TmpDirName + paths.Separator
	}
	if f.TmpDir, err = resolveConfigPath("tmp", tmp, configDir, tokens); err != nil {
		return nil, err
	}
	mirror := p.Mirror
	if mirror == "" {
		mirror = configDir
	}
	if f.MirrorDir, err = resolveConfigPath("mirror", mirror, configDir, tokens); err != nil {
		return nil, err
	}

	for _, m := range p.OwnMods {
		name, err := paths.NormalizeFileName(m)
		if err != nil {
			return nil, configErrf("ownmods", "entry %q: %v", m, err)
		}
		f.OwnModNames = append(f.OwnModNames, name)
	}
	return f, nil
}

// ///////////////////////////////////////////////
// Queries
// ///////////////////////////////////////////////

// FilePathToShort converts a canonical file path under the game root into
// its short form.
func (f *Folders) FilePathToShort(fpath string) (string, error) {
	if !paths.IsNormalizedFilePath(fpath) {
		return "", &paths.InvariantError{Path: fpath, Reason: "not a normalized file path"}
	}
	return paths.ToShortPath(f.GameDir, fpath)
}

// ShortFilePathTo converts a short file path back into the canonical full
// path under the game root.
func (f *Folders) ShortFilePathTo(short string) (string, error) {
	if !paths.IsShortFilePath(short) {
		return "", &paths.InvariantError{Path: short, Reason: "not a short file path"}
	}
	return f.GameDir + short, nil
}

// DirPathToShort converts a canonical dir path under the game root into
// its short form.
func (f *Folders) DirPathToShort(dpath string) (string, error) {
	if !paths.IsNormalizedDirPath(dpath) {
		return "", &paths.InvariantError{Path: dpath, Reason: "not a normalized dir path"}
	}
	return paths.ToShortPath(f.GameDir, dpath)
}

// ShortDirPathTo converts a short dir path back into the canonical full
// path under the game root.
func (f *Folders) ShortDirPathTo(short string) (string, error) {
	if !paths.IsShortDirPath(short) {
		return "", &paths.InvariantError{Path: short, Reason: "not a short dir path"}
	}
	return f.GameDir + short, nil
}

// IsIgnored reports whether dpath (a canonical dir or file path) falls
// inside any ignored subtree.
func (f *Folders) IsIgnored(dpath string) bool {
	for _, ig := range f.IgnoreDirs {
		if strings.HasPrefix(dpath, ig) {
			return true
		}
	}
	return false
}

// IsOwnMod reports whether name (any spelling) is one of the mirror-owned
// mods.
func (f *Folders) IsOwnMod(name string) bool {
	return slices.Contains(f.OwnModNames, strings.ToLower(name))
}

// ModsDir returns the mods root under the game dir.
func (f *Folders) ModsDir() string {
	return f.GameDir + paths.ModsDirName + paths.Separator
}

// GameOwnModDirs returns the canonical dirs of every owned mod under the
// game root.
func (f *Folders) GameOwnModDirs() []string {
	dirs := make([]string, 0, len(f.OwnModNames))
	for _, m := range f.OwnModNames {
		dirs = append(dirs, f.GameDir+m+paths.Separator)
	}
	return dirs
}

// MirrorOwnModDirs returns the canonical dirs of every owned mod inside
// the mirror checkout.
func (f *Folders) MirrorOwnModDirs() []string {
	dirs := make([]string, 0, len(f.OwnModNames))
	for _, m := range f.OwnModNames {
		dirs = append(dirs, f.MirrorDir+paths.MirrorModsPrefix+m+paths.Separator)
	}
	return dirs
}
