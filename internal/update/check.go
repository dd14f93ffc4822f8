// Package update checks for newer releases of modmirror via the release
// manifest.
package update

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/modmirror/modmirror/internal/atomicfile"
	"github.com/modmirror/modmirror/internal/paths"
	"github.com/modmirror/modmirror/internal/remote"
)

var (
	manifestURL     string
	manifestURLOnce sync.Once
)

func getManifestURL() string {
	manifestURLOnce.Do(func() { manifestURL = remote.RawURL(paths.ReleaseManifest) })
	return manifestURL
}

// httpClient is a lazily-initialized retryablehttp client. Initialized
// once via httpClientOnce.
var (
	httpClient     *retryablehttp.Client
	httpClientOnce sync.Once
)

func getHTTPClient() *retryablehttp.Client {
	httpClientOnce.Do(func() {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.HTTPClient.Timeout = 5 * time.Second
		httpClient.Logger = nil // suppress retryablehttp's default logging
	})
	return httpClient
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Check fetches the release manifest and logs if a newer version is
// available. Non-fatal: every failure is logged at debug and swallowed.
// A successful fetch refreshes the on-disk manifest cache under dataDir;
// when the fetch fails, the cache answers instead, so an offline run
// still knows about a release seen earlier.
func Check(current string, dataDir paths.DataDir, log *slog.Logger) {
	if getManifestURL() == "" {
		log.Debug("skipping version check: no remote URL configured")
		return
	}
	remoteVer, err := fetchLatest()
	if err != nil {
		log.Debug("version check failed, trying cached manifest", "error", err)
		remoteVer, err = readCache(dataDir)
		if err != nil {
			log.Debug("no cached manifest", "error", err)
			return
		}
	} else if cacheErr := writeCache(dataDir, remoteVer); cacheErr != nil {
		log.Debug("failed to write manifest cache", "error", cacheErr)
	}

	if remoteVer == "" || remoteVer == current {
		return
	}
	if semverLess(current, remoteVer) {
		log.Info("new version available", "current", current, "latest", remoteVer)
	}
}

// ///////////////////////////////////////////////
// Internal helpers
// ///////////////////////////////////////////////

// fetchLatest downloads the release manifest and returns the version
// string stored under the "." key, which represents the latest stable
// release.
func fetchLatest() (string, error) {
	url := getManifestURL()
	resp, err := getHTTPClient().Get(url)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return parseManifest(body)
}

func parseManifest(body []byte) (string, error) {
	var manifest map[string]string
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest["."], nil
}

func writeCache(dataDir paths.DataDir, version string) error {
	data, err := json.Marshal(map[string]string{".": version})
	if err != nil {
		return err
	}
	return atomicfile.Write(dataDir.ManifestCache(), data, 0o644)
}

func readCache(dataDir paths.DataDir) (string, error) {
	data, err := os.ReadFile(dataDir.ManifestCache())
	if err != nil {
		return "", err
	}
	return parseManifest(data)
}

// semverLess returns true if a < b using simple numeric comparison.
// Handles versions like "0.1.0", "1.2.3". Non-semver strings are not
// compared. Per semver, a pre-release version is less than the same
// version without one (e.g., "0.1.0-dev" < "0.1.0").
func semverLess(a, b string) bool {
	pa := parseSemver(a)
	pb := parseSemver(b)
	if pa == nil || pb == nil {
		return false
	}
	for i := 0; i < 3; i++ {
		if pa[i] < pb[i] {
			return true
		}
		if pa[i] > pb[i] {
			return false
		}
	}
	// Numeric parts are equal; a pre-release version is less than a release.
	if hasPreRelease(a) && !hasPreRelease(b) {
		return true
	}
	return false
}

// hasPreRelease reports whether a version string contains a pre-release
// suffix (e.g., "0.1.0-dev" or "v1.0.0-beta+build").
func hasPreRelease(s string) bool {
	s = strings.TrimPrefix(s, "v")
	return strings.ContainsAny(s, "-")
}

// parseSemver splits a version string like "v1.2.3" or "0.1.0-dev" into a
// three-element int slice [major, minor, patch]. Pre-release suffixes
// after "-" or "+" are stripped. Returns nil if the string is not valid
// semver.
func parseSemver(s string) []int {
	s = strings.TrimPrefix(s, "v")
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return nil
	}
	result := make([]int, 3)
	for i, p := range parts {
		if idx := strings.IndexAny(p, "-+"); idx >= 0 {
			p = p[:idx]
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil
			}
			n = n*10 + int(c-'0')
		}
		result[i] = n
	}
	return result
}
