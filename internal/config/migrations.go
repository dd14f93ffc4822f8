package config

import (
	"encoding/json"

	"github.com/modmirror/modmirror/internal/migrate"
)

// Schema v1 named the mirror checkout "github" after the only hosting it
// supported. v2 renames the key to "mirror".
func init() {
	migrate.Profile.Register(migrate.Migration{
		Version:     2,
		Description: "rename the legacy 'github' key to 'mirror'",
		Upgrade:     renameGithubKey,
	})
}

func renameGithubKey(data []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ConfigError{Msg: "not a JSON object: " + err.Error()}
	}
	if v, ok := m["github"]; ok {
		if _, taken := m["mirror"]; !taken {
			m["mirror"] = v
		}
		delete(m, "github")
	}
	m["version"] = 2
	return json.MarshalIndent(m, "", "  ")
}
