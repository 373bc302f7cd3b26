package config

import (
	"fmt"
	"strings"
	"time"
)

// PollerConfig contains configuration for the datafile polling worker.
type PollerConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// Interval is the duration between poll cycles.
	Interval time.Duration `envconfig:"INTERVAL" default:"1m"`

	// URLTemplate is the datafile CDN location; %s is replaced with the
	// SDK key. Example: "https://cdn.example.com/datafiles/%s.json".
	URLTemplate string `envconfig:"URL_TEMPLATE" default:"https://cdn.example.com/datafiles/%s.json"`

	// SDKKeys lists the projects the poller keeps fresh. On-demand loads
	// through the registry still work for keys outside this list.
	SDKKeys []string `envconfig:"SDK_KEYS"`

	// FetchTimeout bounds a single datafile download.
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s" validate:"gt=0"`
}

// Validate checks the poller configuration.
func (c *PollerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Interval < time.Second {
		return fmt.Errorf("poller interval must be at least 1s, got %s", c.Interval)
	}

	if !strings.Contains(c.URLTemplate, "%s") {
		return fmt.Errorf("poller URL template must contain a %%s placeholder for the SDK key")
	}
	if _, err := parseAndValidateURL(fmt.Sprintf(c.URLTemplate, "placeholder"), []string{"http", "https"}); err != nil {
		return fmt.Errorf("invalid poller URL template: %w", err)
	}

	for _, key := range c.SDKKeys {
		if err := validateNoWhitespace(key, "sdk key"); err != nil {
			return err
		}
	}

	return nil
}
