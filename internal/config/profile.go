// Package config loads the profile config and resolves every configured
// root into the canonical directory form used across modmirror.
//
// The profile config is a JSON object living next to the mirrored game
// profile. It names the game root ("mo2"), where downloads land, which
// subtrees of the game root to ignore, and where the cache, scratch, and
// mirror trees live. Values may reference each other through {token}
// placeholders, which are substituted recursively until the path stops
// changing.
//
// The whole object is parsed and type-checked in one pass up front; a
// wrong-typed value is reported as a [ConfigError] naming the key before
// any path resolution starts.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// ErrConfig is the sentinel matched by [errors.Is] for any profile config
// problem. Config errors are fatal at startup.
var ErrConfig = errors.New("invalid profile config")

// ConfigError reports a problem with a specific config key.
type ConfigError struct {
	Key string // offending key, empty when the whole document is bad
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("profile config key %q: %s", e.Key, e.Msg)
	}
	return "profile config: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrf(key, format string, args ...any) error {
	return &ConfigError{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// ///////////////////////////////////////////////
// Schema
// ///////////////////////////////////////////////

// Profile is the typed form of the profile config document. Path values
// are kept raw here; resolution into canonical directories happens in
// [Profile.Resolve].
type Profile struct {
	// Version is the config schema version used for migrations.
	Version int
	// Game is the raw path of the game root ("mo2" key, required).
	Game string
	// Downloads holds the raw download root paths. The "downloads" key
	// accepts a single string or a list.
	Downloads []string
	// Ignores holds the raw ignore entries, possibly including the
	// default-set sentinel.
	Ignores []string
	// Cache, Tmp, and Mirror are the raw paths of the cache root, the
	// scratch root, and the version-controlled mirror root.
	Cache  string
	Tmp    string
	Mirror string
	// OwnMods lists the mods whose contents are owned by the mirror.
	OwnMods []string
	// Vars holds user-defined substitution tokens. Any unrecognized
	// string-valued top-level key is folded in here as well, so a config
	// can define tokens without an explicit vars table.
	Vars map[string]string

	// downloadsRaw keeps the single-string spelling of "downloads" when
	// the config used that shape, so the key stays usable as a
	// substitution token. Empty when the list form was given.
	downloadsRaw string
}

// PeekVersion reads just the version field from raw JSON bytes.
// Returns 1 if the field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Parsing
// ///////////////////////////////////////////////

// Parse type-checks a profile config document into a [Profile].
// Every wrong-typed value is reported against its key; the required "mo2"
// key must be present and a string.
func Parse(data []byte) (*Profile, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Msg: "not a JSON object: " + err.Error()}
	}

	p := &Profile{Vars: map[string]string{}}
	extra := map[string]string{}
	seenGame := false

	for key, val := range raw {
		var err error
		switch key {
		case "version":
			err = decodeInto(key, val, &p.Version, "an integer")
		case "mo2":
			err = decodeInto(key, val, &p.Game, "a string")
			seenGame = err == nil
		case "downloads":
			p.Downloads, p.downloadsRaw, err = decodeStringOrList(key, val)
		case "ignores":
			err = decodeInto(key, val, &p.Ignores, "a list of strings")
		case "cache":
			err = decodeInto(key, val, &p.Cache, "a string")
		case "tmp":
			err = decodeInto(key, val, &p.Tmp, "a string")
		case "mirror":
			err = decodeInto(key, val, &p.Mirror, "a string")
		case "ownmods":
			err = decodeInto(key, val, &p.OwnMods, "a list of strings")
		case "vars":
			err = decodeInto(key, val, &p.Vars, "a string map")
		default:
			// Unknown string-valued keys become substitution tokens;
			// anything else is ignored.
			var s string
			if json.Unmarshal(val, &s) == nil {
				extra[key] = s
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if !seenGame {
		return nil, configErrf("mo2", "required")
	}
	if p.Game == "" {
		return nil, configErrf("mo2", "must not be empty")
	}

	// The explicit vars table wins over loose top-level tokens.
	for k, v := range extra {
		if _, ok := p.Vars[k]; !ok {
			p.Vars[k] = v
		}
	}
	return p, nil
}

// decodeInto unmarshals val into out, turning a type mismatch into a
// [ConfigError] naming the key.
func decodeInto(key string, val json.RawMessage, out any, want string) error {
	if err := json.Unmarshal(val, out); err != nil {
		return configErrf(key, "must be %s, got %s", want, string(val))
	}
	return nil
}

// decodeStringOrList accepts either a single string or a list of strings.
// For the single-string shape it also returns the raw string so the key can
// act as a substitution token.
func decodeStringOrList(key string, val json.RawMessage) ([]string, string, error) {
	var one string
	if err := json.Unmarshal(val, &one); err == nil {
		return []string{one}, one, nil
	}
	var many []string
	if err := json.Unmarshal(val, &many); err == nil {
		return many, "", nil
	}
	return nil, "", configErrf(key, "must be a string or a list of strings, got %s", string(val))
}

// tokens returns the substitution table used during path resolution: every
// string-valued path entry keyed by its config name, plus all user vars.
// Values are the raw config strings; they get normalized on the pass after
// substitution.
func (p *Profile) tokens() map[string]string {
	t := map[string]string{"mo2": p.Game}
	if p.Cache != "" {
		t["cache"] = p.Cache
	}
	if p.Tmp != "" {
		t["tmp"] = p.Tmp
	}
	if p.Mirror != "" {
		t["mirror"] = p.Mirror
	}
	if p.downloadsRaw != "" {
		t["downloads"] = p.downloadsRaw
	}
	for k, v := range p.Vars {
		t[k] = v
	}
	return t
}
