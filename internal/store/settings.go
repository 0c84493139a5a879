package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/factorpool/internal/contracts"
)

// WriteSettings writes the settings sidecar as YAML
func WriteSettings(path string, s contracts.TestSettings) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// ReadSettings reads a settings sidecar; a missing file returns an os.IsNotExist error
func ReadSettings(path string) (*contracts.TestSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s contracts.TestSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return &s, nil
}
