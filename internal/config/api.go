package config

import (
	"fmt"
	"time"
)

// APIConfig holds settings for the read-only HTTP config API.
type APIConfig struct {
	Port string `envconfig:"PORT" default:"8080"`

	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"10s" validate:"gt=0"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s" validate:"gt=0"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s" validate:"gt=0"`

	// APIKeyHash is the SHA-256 hex digest of the accepted API key.
	// The plaintext key never appears in the environment.
	APIKeyHash string `envconfig:"KEY_HASH"`

	// SkipAuth disables authentication. Development and tests only;
	// production refuses to start with it set.
	SkipAuth bool `envconfig:"SKIP_AUTH" default:"false"`
}

// Validate checks the API configuration against the environment.
func (c *APIConfig) Validate(environment string) error {
	if err := validatePort(c.Port, "api"); err != nil {
		return err
	}

	if c.SkipAuth {
		if environment == EnvironmentProduction {
			return fmt.Errorf("api authentication cannot be disabled in production environment")
		}
		return nil
	}

	if c.APIKeyHash == "" {
		return fmt.Errorf("api key hash is required when authentication is enabled")
	}
	// SHA-256 hex digest is always 64 characters.
	if len(c.APIKeyHash) != 64 {
		return fmt.Errorf("api key hash must be a 64-character SHA-256 hex digest, got %d characters", len(c.APIKeyHash))
	}

	return nil
}
