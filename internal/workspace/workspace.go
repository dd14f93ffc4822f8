// Package workspace manages one process-exclusive scratch directory tree
// under the resolved tmp root.
//
// The workspace directory is handed to archive extraction and build steps
// as their scratch root; it is guaranteed empty at acquisition and removed
// at release. Every recursive delete this package performs is gated on the
// marker segment being present in the target path, so even a crashed prior
// run can only ever have left data under the marker, never real mod or
// mirror data.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/modmirror/modmirror/internal/paths"
)

// Marker is the fixed workspace directory name. The improbable suffix
// keeps it from ever colliding with a real mod or profile directory, which
// is what makes recursive deletion under it safe.
const Marker = "modmirror.jbsltet9"

const (
	// maxReserveSlots is how many numbered fallback directories are tried
	// when the primary workspace is locked by another process.
	maxReserveSlots = 10
	// maxRemoveRetries and retryDelay bound how long Release waits out a
	// transient external lock (antivirus, indexing) on the tree.
	maxRemoveRetries = 3
	retryDelay       = time.Second
)

// ErrExhausted is returned by Acquire when the workspace and every reserve
// slot exist and none can be removed. There is no degraded mode: reusing a
// non-empty scratch dir would corrupt downstream extraction, so the caller
// must abort the run.
var ErrExhausted = errors.New("all workspace slots are occupied and locked")

type state int

const (
	stateActive state = iota
	stateReleased
)

// Workspace is one acquired scratch directory. Not safe for concurrent
// use; Release must be called exactly once per Acquire (extra calls are
// no-ops).
type Workspace struct {
	dir   string
	log   *slog.Logger
	state state

	// injectable for tests
	removeAll func(string) error
	sleep     func(time.Duration)
}

// Dir returns the workspace root as a normalized dir path. It exists and
// is empty right after Acquire.
func (w *Workspace) Dir() string { return w.dir }

// Acquire claims the scratch directory under baseDir, which must be a
// normalized dir path. A stale tree left by a crashed prior run is removed
// first; if it is locked, numbered reserve slots are tried in order. All
// slots occupied and locked means ErrExhausted.
func Acquire(baseDir string, log *slog.Logger) (*Workspace, error) {
	return acquire(baseDir, log, os.RemoveAll, time.Sleep)
}

func acquire(baseDir string, log *slog.Logger, removeAll func(string) error, sleep func(time.Duration)) (*Workspace, error) {
	if !paths.IsNormalizedDirPath(baseDir) {
		return nil, &paths.InvariantError{Path: baseDir, Reason: "workspace base is not a normalized dir path"}
	}

	chosen, err := claimSlot(baseDir, log, removeAll)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(chosen, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", chosen, err)
	}
	log.Debug("workspace acquired", "path", chosen)
	return &Workspace{dir: chosen, log: log, removeAll: removeAll, sleep: sleep}, nil
}

// claimSlot picks the first usable workspace path: the primary marker dir,
// or the first reserve slot that is absent or removable.
func claimSlot(baseDir string, log *slog.Logger, removeAll func(string) error) (string, error) {
	primary := baseDir + Marker + paths.Separator
	err := clearStale(primary, log, removeAll)
	if err == nil {
		return primary, nil
	}
	log.Warn("stale workspace is locked, trying reserve slots", "path", primary, "error", err)

	for i := 0; i < maxReserveSlots; i++ {
		slot := baseDir + Marker + "_" + strconv.Itoa(i) + paths.Separator
		if err := clearStale(slot, log, removeAll); err == nil {
			return slot, nil
		}
		log.Warn("reserve slot is locked", "path", slot, "error", err)
	}
	return "", fmt.Errorf("workspace under %s: %w", baseDir, ErrExhausted)
}

// clearStale removes a leftover tree at path if one exists.
func clearStale(path string, log *slog.Logger, removeAll func(string) error) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	log.Info("removing stale workspace leftover", "path", path)
	return remove(path, removeAll)
}

// remove is the single recursive-delete gate: it refuses any path that
// does not contain the marker segment.
func remove(path string, removeAll func(string) error) error {
	if !containsMarker(path) {
		return &paths.InvariantError{Path: path, Reason: "recursive delete outside the workspace marker"}
	}
	return removeAll(path)
}

// containsMarker reports whether path has a whole segment spelled as the
// marker or as a numbered reserve slot. A segment that merely begins with
// the marker text does not count.
func containsMarker(path string) bool {
	for rest := path; ; {
		i := strings.Index(rest, paths.Separator+Marker)
		if i < 0 {
			return false
		}
		tail := rest[i+len(paths.Separator)+len(Marker):]
		if tail == "" || strings.HasPrefix(tail, paths.Separator) {
			return true
		}
		if len(tail) >= 2 && tail[0] == '_' && tail[1] >= '0' && tail[1] <= '9' &&
			(len(tail) == 2 || strings.HasPrefix(tail[2:], paths.Separator)) {
			return true
		}
		rest = rest[i+1:]
	}
}

// RemoveTree recursively deletes path, subject to the marker gate. It is
// how collaborators holding a sub-path of the workspace delete their part.
func RemoveTree(path string) error {
	return remove(path, os.RemoveAll)
}

// SubDir derives the numbered nested scratch path prefix<n> under the
// workspace, for splitting work among sub-tasks. The name must be a bare
// lowercase file name.
func (w *Workspace) SubDir(prefix string, n int) (string, error) {
	norm, err := paths.NormalizeFileName(prefix)
	if err != nil {
		return "", err
	}
	if norm != prefix {
		return "", &paths.InvariantError{Path: prefix, Reason: "sub-workspace prefix is not lowercase"}
	}
	if !containsMarker(w.dir) {
		return "", &paths.InvariantError{Path: w.dir, Reason: "workspace path lost its marker"}
	}
	return w.dir + prefix + strconv.Itoa(n) + paths.Separator, nil
}

// Release removes the workspace tree, retrying through transient external
// locks. After the retries are exhausted it logs and gives up; the
// leftover is reclaimed by a future Acquire. Safe to call more than once
// and from a defer on the failure path: it never returns an error, so it
// cannot mask a propagating one.
func (w *Workspace) Release() {
	if w.state != stateActive {
		return
	}
	w.state = stateReleased

	var err error
	for attempt := 1; attempt <= maxRemoveRetries; attempt++ {
		if err = remove(w.dir, w.removeAll); err == nil {
			w.log.Debug("workspace released", "path", w.dir)
			return
		}
		if attempt < maxRemoveRetries {
			w.log.Warn("workspace removal failed, retrying", "path", w.dir, "attempt", attempt, "error", err)
			w.sleep(retryDelay)
		}
	}
	w.log.Warn("could not remove workspace, leaving it for a future run", "path", w.dir, "error", err)
}
