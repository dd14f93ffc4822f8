// Run-lock management for single-instance execution.
//
// Two concurrent mirror passes against the same data directory would race on
// the staging workspace and the mirror tree, so the tool takes an exclusive
// advisory lock on a lock file before doing any work. The lock file content
// is "PID:TOKEN" so a crashed instance can be distinguished from a live one
// and so removal only ever deletes a file this instance wrote.

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// Run Lock
// ///////////////////////////////////////////////

// lockToken generates a random 16-character hex token used to prove ownership
// of the lock file, so [removeLock] only deletes the file if this instance
// wrote it.
func lockToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writeLock creates or opens the lock file at [DataPaths.Lock], acquires an
// advisory file lock, and writes "PID:TOKEN" content. The returned file
// handle must be kept open for the lifetime of the run to hold the lock; pass
// it to [removeLock] on shutdown.
func writeLock(dp DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(dp.Lock(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock run-lock file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	content := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if _, err := f.WriteString(content); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return f, nil
}

// removeLock releases the advisory lock, closes the file handle, and removes
// the lock file only if the stored token matches, preventing accidental
// removal of a file owned by a different instance.
func removeLock(dp DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(dp.Lock())
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == token {
		os.Remove(dp.Lock())
	}
}

// checkStaleLock checks whether another instance is running. It attempts to
// acquire the advisory lock on the lock file; if the lock fails, another
// instance holds it. If the lock succeeds, any previous instance is dead and
// the stale file is cleaned up.
func checkStaleLock(dp DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(dp.Lock(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(dp.Lock())
		f.Close()
		parts := strings.SplitN(string(data), ":", 2)
		if len(parts) >= 1 {
			if p, convErr := strconv.Atoi(parts[0]); convErr == nil {
				return true, p
			}
		}
		return true, 0
	}

	// Lock acquired -- previous instance is dead. Clean up stale file.
	_ = unlockFile(f)
	f.Close()
	os.Remove(dp.Lock())
	return false, 0
}
