// Tests for settings loading: defaults on a missing file, round trip
// through Save, validation failures, and version peeking.

package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modmirror/modmirror/internal/migrate"
	"github.com/modmirror/modmirror/internal/paths"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(paths.DataDir{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *s != *Default() {
		t.Errorf("Load on empty dir = %+v, want defaults %+v", s, Default())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}
	s := Default()
	s.Log.Level = "trace"
	s.Update.Check = false
	s.Watch.PollIntervalSeconds = 7
	if err := s.Save(dd.Settings()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(dd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *s {
		t.Errorf("round trip = %+v, want %+v", got, s)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}
	doc := "version = 1\n[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(dd.Settings(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(dd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", s.Log.Level, "debug")
	}
	if s.Log.MaxSizeMB != Default().Log.MaxSizeMB {
		t.Errorf("Log.MaxSizeMB = %d, want default %d", s.Log.MaxSizeMB, Default().Log.MaxSizeMB)
	}
	if !s.Update.Check {
		t.Error("Update.Check lost its default")
	}
}

func TestLoadKeepsNewerFileUntouched(t *testing.T) {
	// A settings file written by a newer release must not be downgraded
	// or rewritten; running an old binary should be harmless.
	dd := paths.DataDir{Root: t.TempDir()}
	future := migrate.Settings.CurrentVersion + 1
	doc := fmt.Sprintf("version = %d\n", future)
	if err := os.WriteFile(dd.Settings(), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(dd)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Version != future {
		t.Errorf("Version = %d, want %d", s.Version, future)
	}
	if _, err := os.Stat(dd.Settings() + ".bak"); !os.IsNotExist(err) {
		t.Error("a newer file should not be backed up")
	}
	data, err := os.ReadFile(dd.Settings())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != doc {
		t.Errorf("file was rewritten: %q", data)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []string{
		"[log]\nlevel = \"verbose\"\n",
		"[log]\nlevel = \"info\"\nmax_size_mb = 0\n",
		"[watch]\npoll_interval_seconds = -1\n",
	}
	for _, doc := range tests {
		dd := paths.DataDir{Root: t.TempDir()}
		if err := os.WriteFile(dd.Settings(), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(dd); err == nil || !strings.Contains(err.Error(), "validate settings") {
			t.Errorf("Load(%q): got %v, want validation error", doc, err)
		}
	}
}

func TestPeekVersion(t *testing.T) {
	if got := PeekVersion([]byte("version = 3\n")); got != 3 {
		t.Errorf("PeekVersion = %d, want 3", got)
	}
	if got := PeekVersion([]byte("[log]\nlevel = \"info\"\n")); got != 1 {
		t.Errorf("PeekVersion without field = %d, want 1", got)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default settings do not validate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := Default().Save(path); err != nil {
		t.Errorf("Save defaults: %v", err)
	}
}
