// Package migrate applies sequential schema migrations to on-disk data,
// upgrading from one version to the next. Profile configs written by older
// modmirror releases are brought up to the current schema before parsing.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades raw on-disk data from the prior schema version to
// [Migration.Version].
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short human-readable label for log output.
	Description string
	// Upgrade transforms data from the prior version.
	Upgrade func(data []byte) ([]byte, error)
}

// Registry holds the version and migrations for a single schema target.
// Each on-disk format gets its own instance so version numbers stay
// independent.
type Registry struct {
	// CurrentVersion is the latest schema version this registry targets.
	CurrentVersion int
	// Migrations is the ordered list of versioned upgrades. Exported so
	// tests can substitute a migration list.
	Migrations []Migration
}

// ///////////////////////////////////////////////
// Registry API
// ///////////////////////////////////////////////

// Register appends a migration. It panics on a duplicate version so a
// conflicting registration fails loudly at init time.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether data at fileVersion would have any
// migrations applied. A file newer than [Registry.CurrentVersion] has
// nothing to upgrade to and is left untouched.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	if fileVersion > r.CurrentVersion {
		return false
	}
	if fileVersion < r.CurrentVersion {
		return true
	}
	for _, m := range r.Migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}

// Run applies registered migrations sequentially where fromVersion is
// older than the migration's version. Returns the transformed data and the
// final version reached.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	sorted := make([]Migration, len(r.Migrations))
	copy(sorted, r.Migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	version := fromVersion
	for _, m := range sorted {
		if version < m.Version {
			slog.Info("applying migration", "version", m.Version, "description", m.Description)
			var err error
			data, err = m.Upgrade(data)
			if err != nil {
				return nil, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
			}
			version = m.Version
		}
	}
	return data, version, nil
}

// ///////////////////////////////////////////////
// Registries
// ///////////////////////////////////////////////

// Profile is the migration registry for profile config JSON files.
// Migrations are registered by the config package.
var Profile = &Registry{CurrentVersion: 2}

// Settings is the migration registry for settings.toml files.
var Settings = &Registry{CurrentVersion: 1}
