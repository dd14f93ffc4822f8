// Package prereq probes for the external tools the mirroring pipeline
// shells out to.
package prereq

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// probeTimeout bounds the version probe; a hung git (e.g. a broken
// credential helper shim on PATH) must not hang startup.
const probeTimeout = 10 * time.Second

// Check verifies that git is available, since the mirror tree is a git
// checkout. 7z is optional: without it archive re-packing is skipped, so
// its absence only logs a warning.
func Check(log *slog.Logger) error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git is not in PATH: %w (install \"Git for Windows\" or \"GitHub Desktop\" and make sure the folder with git.exe is in PATH)", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "--version").Output()
	if err != nil {
		return fmt.Errorf("git --version failed: %w", err)
	}
	log.Debug("git found", "version", strings.TrimSpace(string(out)))

	if _, err := exec.LookPath("7z"); err != nil {
		log.Warn("7z is not in PATH, archive re-packing will be unavailable")
	}
	return nil
}
