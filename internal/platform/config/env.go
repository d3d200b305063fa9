// Package config loads service configuration from the environment. Every
// packworks command declares its settings as a struct with `env` tags and
// layers flag overrides on top.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target from its `env`-tagged fields, applying
// envDefault values for variables that are unset.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
