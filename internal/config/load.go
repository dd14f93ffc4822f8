package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/modmirror/modmirror/internal/atomicfile"
	"github.com/modmirror/modmirror/internal/migrate"
)

// Load reads the profile config at path, migrating an old schema in place
// (with a .bak of the original), and resolves it into [Folders].
func Load(path string, log *slog.Logger) (*Profile, *Folders, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read profile config: %w", err)
	}

	version := PeekVersion(data)
	if migrate.Profile.NeedsMigration(version) {
		if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
			log.Warn("could not back up profile config before migration", "path", path+".bak", "error", err)
		}
		migrated, to, err := migrate.Profile.Run(data, version)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate profile config: %w", err)
		}
		if err := atomicfile.Write(path, migrated, 0o644); err != nil {
			log.Warn("could not save migrated profile config", "path", path, "error", err)
		} else {
			log.Info("migrated profile config", "path", path, "from", version, "to", to)
		}
		data = migrated
	}

	p, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	f, err := p.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	return p, f, nil
}
