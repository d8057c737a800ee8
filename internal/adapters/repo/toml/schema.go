package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	Endpoint string      `toml:"endpoint"`
	TokenRef string      `toml:"token_ref,omitempty"`
	SavedAt  string      `toml:"saved_at,omitempty"`
	User     *userSchema `toml:"user,omitempty"`
}

// userSchema keeps the record in its JSON wire form so fields of any
// shape survive the TOML round trip.
type userSchema struct {
	ID     string `toml:"id"`
	Record string `toml:"record"`
}
