// Package modlist reads and rewrites the mod manager's modlist.txt.
//
// The file lists one mod per line, newest first: "+name" enabled, "-name"
// disabled, and separator pseudo-mods ending in "_separator". It is
// written by the mod manager in cp1252, so loading and saving go through
// a charmap transcode rather than assuming UTF-8.
package modlist

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding/charmap"

	"github.com/modmirror/modmirror/internal/atomicfile"
	"github.com/modmirror/modmirror/internal/paths"
)

const header = "# This file was automatically modified by modmirror."

const separatorSuffix = "_separator"

// ModList holds the entries in natural (load) order: oldest first, which
// is the reverse of the on-disk order. Disabled entries are dropped at
// load, except separators, which are kept for structure.
type ModList struct {
	entries []string
}

// Load reads modlist.txt from the profile dir, which must be a normalized
// dir path.
func Load(profileDir string) (*ModList, error) {
	if !paths.IsNormalizedDirPath(profileDir) {
		return nil, &paths.InvariantError{Path: profileDir, Reason: "not a normalized dir path"}
	}
	raw, err := os.ReadFile(profileDir + paths.ModlistFile)
	if err != nil {
		return nil, fmt.Errorf("read modlist: %w", err)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode modlist: %w", err)
	}

	lines := strings.Split(string(decoded), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	m := &ModList{}
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.HasPrefix(line, "-") && !strings.HasSuffix(line, separatorSuffix) {
			continue
		}
		m.entries = append(m.entries, line)
	}
	// On-disk order is newest first; flip into natural order.
	for i, j := 0, len(m.entries)-1; i < j; i, j = i+1, j-1 {
		m.entries[i], m.entries[j] = m.entries[j], m.entries[i]
	}
	return m, nil
}

// Entries returns the entries in natural order, prefixes included.
func (m *ModList) Entries() []string { return m.entries }

// AllEnabled returns the names of all enabled mods in natural order.
func (m *ModList) AllEnabled() []string {
	var out []string
	for _, e := range m.entries {
		if strings.HasPrefix(e, "+") {
			out = append(out, e[1:])
		}
	}
	return out
}

// SeparatorName returns the display name of a separator entry, or false
// for a regular mod line.
func SeparatorName(entry string) (string, bool) {
	name := strings.TrimLeft(entry, "+-")
	if !strings.HasSuffix(name, separatorSuffix) {
		return "", false
	}
	return strings.TrimSuffix(name, separatorSuffix), true
}

// Write saves the list back to modlist.txt in the profile dir, in on-disk
// order with the generated-file header.
func (m *ModList) Write(profileDir string) error {
	return m.write(profileDir, nil)
}

// WriteDisablingIf saves the list, turning every enabled mod for which
// disable returns true into a disabled entry.
func (m *ModList) WriteDisablingIf(profileDir string, disable func(mod string) bool) error {
	return m.write(profileDir, disable)
}

func (m *ModList) write(profileDir string, disable func(string) bool) error {
	if !paths.IsNormalizedDirPath(profileDir) {
		return &paths.InvariantError{Path: profileDir, Reason: "not a normalized dir path"}
	}
	var b strings.Builder
	b.WriteString(header + "\r\n")
	for i := len(m.entries) - 1; i >= 0; i-- {
		line := m.entries[i]
		if disable != nil && strings.HasPrefix(line, "+") {
			if name := line[1:]; disable(name) {
				line = "-" + name
			}
		}
		b.WriteString(line + "\r\n")
	}
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(b.String()))
	if err != nil {
		return fmt.Errorf("encode modlist: %w", err)
	}
	return atomicfile.Write(profileDir+paths.ModlistFile, encoded, 0o644)
}

// PluginFiles returns the normalized paths of the plugin files (esp, esl,
// esm) directly under the mod's directory. A mod with no directory on disk
// has no plugins.
func PluginFiles(gameDir, mod string) ([]string, error) {
	if !paths.IsNormalizedDirPath(gameDir) {
		return nil, &paths.InvariantError{Path: gameDir, Reason: "not a normalized dir path"}
	}
	name, err := paths.NormalizeFileName(mod)
	if err != nil {
		return nil, err
	}
	root := gameDir + paths.ModsDirName + paths.Separator + name + paths.Separator
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat mod dir: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(root), "*.{esp,esl,esm}", doublestar.WithCaseInsensitive())
	if err != nil {
		return nil, fmt.Errorf("glob plugins in %s: %w", root, err)
	}
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, root+strings.ToLower(match))
	}
	sort.Strings(out)
	return out, nil
}
