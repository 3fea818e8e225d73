// Package config loads typed configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into a new T using its `env` tags.
func Load[T any]() (*T, error) {
	return LoadWithPrefix[T]("")
}

// LoadWithPrefix is like Load but prepends prefix to every variable name,
// so SHOP_HTTP_PORT fills a field tagged `env:"HTTP_PORT"`.
func LoadWithPrefix[T any](prefix string) (*T, error) {
	cfg := new(T)
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
