package config

import (
	"encoding/json"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

// RenderTOML renders the configuration as TOML.
func (c *Config) RenderTOML() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render config as toml: %w", err)
	}
	return data, nil
}

// RenderJSON renders the configuration as indented JSON.
func (c *Config) RenderJSON() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render config as json: %w", err)
	}
	return data, nil
}
