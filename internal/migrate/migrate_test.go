// Tests for sequential migration application, version skipping, error
// propagation, and [Registry.NeedsMigration] detection.
package migrate

import (
	"fmt"
	"strings"
	"testing"
)

func TestRunSkipsOldVersions(t *testing.T) {
	called := false
	r := &Registry{CurrentVersion: 1, Migrations: []Migration{
		{Version: 1, Description: "already applied", Upgrade: func(d []byte) ([]byte, error) {
			called = true
			return d, nil
		}},
	}}
	out, version, err := r.Run([]byte("data"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("migration should have been skipped")
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
	if string(out) != "data" {
		t.Fatalf("data changed: %q", out)
	}
}

func TestRunAppliesSequentially(t *testing.T) {
	r := &Registry{CurrentVersion: 3, Migrations: []Migration{
		// Registered out of order on purpose; Run must sort by version.
		{Version: 3, Description: "v2->v3", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v3")...), nil
		}},
		{Version: 2, Description: "v1->v2", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v2")...), nil
		}},
	}}
	out, version, err := r.Run([]byte("data"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 3 {
		t.Fatalf("version = %d, want 3", version)
	}
	if string(out) != "data-v2-v3" {
		t.Fatalf("out = %q, want data-v2-v3", out)
	}
}

func TestRunStopsOnError(t *testing.T) {
	r := &Registry{CurrentVersion: 3, Migrations: []Migration{
		{Version: 2, Description: "fails", Upgrade: func(d []byte) ([]byte, error) {
			return nil, fmt.Errorf("boom")
		}},
		{Version: 3, Description: "never reached", Upgrade: func(d []byte) ([]byte, error) {
			t.Fatal("migration after a failure must not run")
			return d, nil
		}},
	}}
	_, version, err := r.Run([]byte("data"), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "v2") {
		t.Errorf("error %q does not name the failing version", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1 (unchanged)", version)
	}
}

func TestNeedsMigration(t *testing.T) {
	r := &Registry{CurrentVersion: 2, Migrations: []Migration{
		{Version: 2, Description: "v1->v2", Upgrade: func(d []byte) ([]byte, error) { return d, nil }},
	}}

	tests := []struct {
		name        string
		fileVersion int
		want        bool
	}{
		{"older file", 1, true},
		{"current file", 2, false},
		// A file ahead of this binary must not be rewritten; there is
		// nothing to upgrade it to.
		{"newer file", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.NeedsMigration(tt.fileVersion); got != tt.want {
				t.Errorf("NeedsMigration(%d) = %v, want %v", tt.fileVersion, got, tt.want)
			}
		})
	}
}

func TestRegisterRejectsDuplicateVersion(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate version")
		}
	}()
	r := &Registry{CurrentVersion: 2}
	up := func(d []byte) ([]byte, error) { return d, nil }
	r.Register(Migration{Version: 2, Description: "first", Upgrade: up})
	r.Register(Migration{Version: 2, Description: "dup", Upgrade: up})
}
