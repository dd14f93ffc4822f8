// Package modmirror provides embedded assets for the modmirror tool.
//
// The root package exists solely to embed [settings.default.toml] via
// [DefaultSettingsTOML] and the sample profile config via
// [SampleProfileJSON]. The command seeds both into place on first run.
package modmirror

import _ "embed"

// DefaultSettingsTOML holds the raw bytes of settings.default.toml,
// embedded at build time. The command copies this file to the data
// directory on first run.
//
//go:embed settings.default.toml
var DefaultSettingsTOML []byte

// SampleProfileJSON holds a minimal starting-point profile config,
// written next to a profile on -init.
//
//go:embed profile.sample.json
var SampleProfileJSON []byte
