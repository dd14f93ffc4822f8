// Package paths defines the canonical string forms used as file and
// directory identity keys across modmirror.
//
// The mirrored game tree lives on a case-insensitive filesystem, so every
// component keys its caches, diffs, and comparisons on a single canonical
// spelling: absolute, all lowercase, native separators only, with directory
// paths carrying exactly one trailing separator and file paths carrying
// none. "Short" paths are the same spelling made relative to the game root;
// they stay valid when the tree is checked out on another machine.
//
// Nothing here touches the filesystem beyond resolving relative paths
// against the working directory.
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Separator is the native path separator as a string.
const Separator = string(filepath.Separator)

// foreignSeparator is the separator of the other platform family. A path
// containing it is rejected rather than silently converted, because a mixed
// spelling would break string equality between components.
var foreignSeparator = func() string {
	if filepath.Separator == '/' {
		return "\\"
	}
	return "/"
}()

// ///////////////////////////////////////////////
// Invariant Errors
// ///////////////////////////////////////////////

// ErrInvariant is the sentinel matched by [errors.Is] for any path that
// reaches a package boundary in a malformed shape. Callers treat it as
// fatal: a malformed key means some earlier step produced a path outside
// the canonical form.
var ErrInvariant = errors.New("path invariant violated")

// InvariantError reports a concrete path that failed a shape check, with
// the reason it was rejected.
type InvariantError struct {
	Path   string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("path invariant violated: %s: %q", e.Reason, e.Path)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// ///////////////////////////////////////////////
// Normalized Forms
// ///////////////////////////////////////////////

// NormalizeDirPath resolves path to its canonical directory spelling:
// absolute, lowercase, native separators, exactly one trailing separator.
// The result of a successful call normalizes to itself.
func NormalizeDirPath(path string) (string, error) {
	// Checked before Abs: on Windows, Abs would silently fold foreign
	// separators into native ones instead of surfacing the mistake.
	if strings.Contains(path, foreignSeparator) {
		return "", &InvariantError{Path: path, Reason: "foreign separator"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	p := strings.ToLower(abs)
	if !strings.HasSuffix(p, Separator) {
		p += Separator
	}
	return p, nil
}

// NormalizeFilePath resolves path to its canonical file spelling: absolute,
// lowercase, native separators, no trailing separator. A path that already
// ends in a separator names a directory and is rejected.
func NormalizeFilePath(path string) (string, error) {
	if strings.HasSuffix(path, Separator) || strings.HasSuffix(path, foreignSeparator) {
		return "", &InvariantError{Path: path, Reason: "trailing separator on file path"}
	}
	if strings.Contains(path, foreignSeparator) {
		return "", &InvariantError{Path: path, Reason: "foreign separator"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return strings.ToLower(abs), nil
}

// IsNormalizedDirPath reports whether path is already in the canonical
// directory form. Used as an assertion guard at function boundaries.
func IsNormalizedDirPath(path string) bool {
	n, err := NormalizeDirPath(path)
	return err == nil && n == path
}

// IsNormalizedFilePath reports whether path is already in the canonical
// file form.
func IsNormalizedFilePath(path string) bool {
	n, err := NormalizeFilePath(path)
	return err == nil && n == path
}

// ///////////////////////////////////////////////
// Short (game-root-relative) Forms
// ///////////////////////////////////////////////

// ToShortPath strips base from the front of full. full must start with
// base; anything else means the caller is holding a path from outside the
// tree it thinks it is in, which is an invariant violation.
func ToShortPath(base, full string) (string, error) {
	if !strings.HasPrefix(full, base) {
		return "", &InvariantError{Path: full, Reason: "not under base " + base}
	}
	return full[len(base):], nil
}

// IsShortFilePath reports whether p has the shape of a short file path:
// relative, lowercase, native separators, no trailing separator. It never
// touches the filesystem.
func IsShortFilePath(p string) bool {
	if p == "" || filepath.IsAbs(p) {
		return false
	}
	if strings.Contains(p, foreignSeparator) {
		return false
	}
	if strings.HasSuffix(p, Separator) {
		return false
	}
	return p == strings.ToLower(p)
}

// IsShortDirPath reports whether p has the shape of a short directory
// path: relative, lowercase, native separators, one trailing separator.
func IsShortDirPath(p string) bool {
	if p == "" || filepath.IsAbs(p) {
		return false
	}
	if strings.Contains(p, foreignSeparator) {
		return false
	}
	if !strings.HasSuffix(p, Separator) {
		return false
	}
	return p == strings.ToLower(p)
}

// NormalizeFileName lowercases a bare file name. A name containing either
// separator character is not a bare name and is rejected.
func NormalizeFileName(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", &InvariantError{Path: name, Reason: "separator in file name"}
	}
	return strings.ToLower(name), nil
}
