package projectconfig

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/datafile"
)

func TestAccessors_HitReturnsStoredEntity(t *testing.T) {
	cfg, handler := newTestConfig(t)

	assert.Equal(t, "random", cfg.GroupByID("g1").Policy)
	assert.Equal(t, "11", cfg.ExperimentByKey("exp2").ID)
	assert.Equal(t, "exp2", cfg.ExperimentByID("11").Key)
	assert.Equal(t, "e1", cfg.EventByKey("purchase").ID)
	assert.Equal(t, "at1", cfg.AttributeByKey("plan").ID)
	assert.Equal(t, "checkout", cfg.FeatureByKey("checkout").Key)
	assert.Equal(t, "200", cfg.RolloutByID("200").ID)

	assert.Empty(t, handler.errs, "hits must not signal")
}

func TestAccessors_MissSignalsAndReturnsZeroValue(t *testing.T) {
	tests := []struct {
		name     string
		lookup   func(c *Config) any
		wantKind EntityKind
		wantMsg  string
	}{
		{
			name:     "Should signal group miss by id",
			lookup:   func(c *Config) any { return c.GroupByID("nope") },
			wantKind: KindGroup,
			wantMsg:  `group with id "nope" not found`,
		},
		{
			name:     "Should signal experiment miss by key",
			lookup:   func(c *Config) any { return c.ExperimentByKey("nope") },
			wantKind: KindExperiment,
			wantMsg:  `experiment with key "nope" not found`,
		},
		{
			name:     "Should signal experiment miss by id",
			lookup:   func(c *Config) any { return c.ExperimentByID("999") },
			wantKind: KindExperiment,
			wantMsg:  `experiment with id "999" not found`,
		},
		{
			name:     "Should signal event miss by key",
			lookup:   func(c *Config) any { return c.EventByKey("nope") },
			wantKind: KindEvent,
			wantMsg:  `event with key "nope" not found`,
		},
		{
			name:     "Should signal audience miss by id",
			lookup:   func(c *Config) any { return c.AudienceByID("nope") },
			wantKind: KindAudience,
			wantMsg:  `audience with id "nope" not found`,
		},
		{
			name:     "Should signal attribute miss by key",
			lookup:   func(c *Config) any { return c.AttributeByKey("nope") },
			wantKind: KindAttribute,
			wantMsg:  `attribute with key "nope" not found`,
		},
		{
			name:     "Should signal feature miss by key",
			lookup:   func(c *Config) any { return c.FeatureByKey("nope") },
			wantKind: KindFeature,
			wantMsg:  `feature with key "nope" not found`,
		},
		{
			name:     "Should signal rollout miss by id",
			lookup:   func(c *Config) any { return c.RolloutByID("nope") },
			wantKind: KindRollout,
			wantMsg:  `rollout with id "nope" not found`,
		},
		{
			name:     "Should signal variation miss within a known experiment",
			lookup:   func(c *Config) any { return c.VariationFromKey("exp2", "nope") },
			wantKind: KindVariation,
			wantMsg:  `variation with key "nope" not found in experiment with key "exp2"`,
		},
		{
			name:     "Should signal experiment miss for a variation lookup on an unknown experiment",
			lookup:   func(c *Config) any { return c.VariationFromID("nope", "110") },
			wantKind: KindExperiment,
			wantMsg:  `experiment with key "nope" not found`,
		},
		{
			name:     "Should signal variation miss by experiment id",
			lookup:   func(c *Config) any { return c.VariationFromIDByExperimentID("11", "999") },
			wantKind: KindVariation,
			wantMsg:  `variation with id "999" not found in experiment with id "11"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			handler := &captureHandler{}
			logger := slog.New(slog.NewTextHandler(&logBuffer, nil))
			cfg := New(testDatafile(), nil, logger, handler)

			got := tt.lookup(cfg)

			// A miss still returns a dereferenceable zero-value entity.
			assert.NotNil(t, got)
			switch v := got.(type) {
			case datafile.Experiment:
				assert.Empty(t, v.ID)
			case datafile.Variation:
				assert.Empty(t, v.ID)
			}

			require.Len(t, handler.errs, 1)
			var nfe *NotFoundError
			require.True(t, errors.As(handler.errs[0], &nfe))
			assert.Equal(t, tt.wantKind, nfe.Kind)
			assert.Equal(t, tt.wantMsg, nfe.Error())

			// The same condition is logged.
			assert.Contains(t, logBuffer.String(), "not found")
			assert.Contains(t, logBuffer.String(), string(tt.wantKind))
		})
	}
}

func TestAttributeID(t *testing.T) {
	reserved := datafile.ReservedAttributePrefix + "user_agent"

	tests := []struct {
		name       string
		attributes []datafile.Attribute
		key        string
		want       string
		wantMiss   bool
		wantLog    string
	}{
		{
			name:       "Should return the declared id for a known attribute",
			attributes: []datafile.Attribute{{ID: "at1", Key: "plan"}},
			key:        "plan",
			want:       "at1",
		},
		{
			name: "Should return the key itself for a reserved-prefix attribute",
			key:  reserved,
			want: reserved,
		},
		{
			name:       "Should prefer the declared id when a declared key carries the reserved prefix",
			attributes: []datafile.Attribute{{ID: "at9", Key: reserved}},
			key:        reserved,
			want:       "at9",
			wantLog:    "reserved prefix",
		},
		{
			name:     "Should signal a miss for an unknown non-reserved key",
			key:      "unknown",
			want:     "",
			wantMiss: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			handler := &captureHandler{}
			logger := slog.New(slog.NewTextHandler(&logBuffer, nil))

			df := &datafile.Datafile{Version: "4", Attributes: tt.attributes}
			cfg := New(df, nil, logger, handler)

			got := cfg.AttributeID(tt.key)
			assert.Equal(t, tt.want, got)

			if tt.wantMiss {
				require.Len(t, handler.errs, 1)
				var nfe *NotFoundError
				require.True(t, errors.As(handler.errs[0], &nfe))
				assert.Equal(t, KindAttribute, nfe.Kind)
			} else {
				assert.Empty(t, handler.errs)
			}

			if tt.wantLog != "" {
				assert.Contains(t, logBuffer.String(), tt.wantLog)
			}
		})
	}
}

func TestNilHandlerAndLoggerAreSafe(t *testing.T) {
	cfg := New(testDatafile(), nil, nil, nil)

	// Misses with no sink wired must not panic.
	assert.NotPanics(t, func() {
		cfg.ExperimentByKey("nope")
		cfg.AttributeID("nope")
	})
}

func TestNew_PanicsOnNilDatafile(t *testing.T) {
	assert.Panics(t, func() { New(nil, nil, nil, nil) })
}
