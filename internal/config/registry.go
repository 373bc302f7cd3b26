package config

import (
	"fmt"
	"time"
)

// RegistryConfig tunes the in-memory layer holding compiled configurations.
type RegistryConfig struct {
	// L1Capacity caps the number of compiled configs held in memory.
	// One entry per SDK key; the cap prevents unbounded growth when
	// on-demand loads see many distinct keys.
	L1Capacity int `envconfig:"L1_CAPACITY" default:"128" validate:"min=1"`

	// L1TTL expires compiled configs so a project dropped from the CDN
	// eventually stops being served from memory.
	L1TTL time.Duration `envconfig:"L1_TTL" default:"10m" validate:"gt=0"`
}

// Validate checks the registry configuration.
func (c *RegistryConfig) Validate() error {
	if c.L1TTL < time.Second {
		return fmt.Errorf("registry L1 TTL must be at least 1s, got %s", c.L1TTL)
	}
	return nil
}
