package calculator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadEconomy reads economy overrides from a YAML file on top of the built-in
// tables. Keys absent from the file keep their defaults; a table present in
// the file replaces the default table wholesale. An empty path or a missing
// file yields the defaults.
func LoadEconomy(path string) (*Economy, error) {
	econ := DefaultEconomy()
	if path == "" {
		return econ, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return econ, nil
		}
		return nil, fmt.Errorf("read economy file: %w", err)
	}

	if err := yaml.Unmarshal(b, econ); err != nil {
		return nil, fmt.Errorf("parse economy file %s: %w", path, err)
	}
	if err := econ.Validate(); err != nil {
		return nil, err
	}
	return econ, nil
}

// YAML encodes the active tables in the same layout LoadEconomy reads.
func (e *Economy) YAML() ([]byte, error) {
	return yaml.Marshal(e)
}
