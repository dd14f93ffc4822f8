package settings

// FieldDoc holds documentation and alternative examples for a single
// settings field. The genconfig tool uses [FieldDoc] values to annotate
// the generated settings.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// Docs maps TOML field paths (dot-separated, e.g. "log.level") to their
// [FieldDoc] entries for the generated settings.default.toml.
var Docs = map[string]FieldDoc{
	"version": {
		Comment: "Settings schema version — do not edit.",
	},

	"log.level": {
		Comment:      "Minimum log level: trace, debug, info, warn, error.",
		Alternatives: []string{`level = "debug"`},
	},
	"log.max_size_mb": {
		Comment: "Log file size in megabytes before rotation.",
	},

	"update.check": {
		Comment: "Check for a newer release at startup. Never blocks the run.",
	},

	"watch.poll_interval_seconds": {
		Comment: "Stat-polling interval for modlist changes when native file\nnotifications are unavailable (network shares, some containers).",
	},
}
