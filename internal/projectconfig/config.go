// Package projectconfig compiles a decoded datafile into a set of
// cross-referenced lookup maps and exposes typed accessors over them.
//
// A Config is built once, eagerly and synchronously, and is never mutated
// afterwards: a newer document is handled by building a brand-new Config and
// swapping the reference consumers hold. Because no field changes after
// construction, concurrent readers need no synchronization.
package projectconfig

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/rafaeljc/mimir/internal/datafile"
	"github.com/rafaeljc/mimir/internal/validation"
)

// Config is the compiled, read-only index over one datafile.
type Config struct {
	logger  *slog.Logger
	handler ErrorHandler

	// raw is the exact payload that produced this index, kept verbatim for
	// callers that need to forward or re-persist it.
	raw []byte
	df  *datafile.Datafile

	groupMap         map[string]datafile.Group
	experimentIDMap  map[string]datafile.Experiment
	experimentKeyMap map[string]datafile.Experiment
	eventMap         map[string]datafile.Event
	attributeMap     map[string]datafile.Attribute
	audienceMap      map[string]datafile.Audience
	featureMap       map[string]datafile.FeatureFlag
	rolloutMap       map[string]datafile.Rollout

	// Variations are indexed four ways so that both key- and id-addressed
	// callers resolve without a second lookup. Rollout rules are indexed
	// here under their own id/key but never appear in the experiment maps.
	variationKeyMap       map[string]map[string]datafile.Variation // experiment key -> variation key
	variationIDMap        map[string]map[string]datafile.Variation // experiment key -> variation id
	variationKeyMapByID   map[string]map[string]datafile.Variation // experiment id -> variation key
	variationIDMapByID    map[string]map[string]datafile.Variation // experiment id -> variation id

	// experimentFeatureMap holds an entry iff at least one feature flag
	// lists the experiment id. Absence means "not a feature experiment",
	// not "unknown experiment".
	experimentFeatureMap map[string][]string
}

// New compiles a parsed datafile into a Config. raw is the original payload
// the datafile was parsed from and is retained verbatim.
//
// logger and handler are the side channels for accessor misses; a nil logger
// falls back to slog.Default() and a nil handler to NoOpHandler.
// Construction itself cannot fail on a parsed datafile: the fatal failure
// points (decode, version gate) live in datafile.Parse.
func New(df *datafile.Datafile, raw []byte, logger *slog.Logger, handler ErrorHandler) *Config {
	validation.AssertNotNil(df, "datafile")

	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = NoOpHandler{}
	}

	c := &Config{
		logger:  logger,
		handler: handler,
		raw:     slices.Clone(raw),
		df:      df,
	}
	c.build()
	return c
}

// NewFromPayload decodes raw and compiles it in one step. It surfaces the
// fatal datafile errors (DecodeError, UnsupportedVersionError) unchanged.
func NewFromPayload(raw []byte, logger *slog.Logger, handler ErrorHandler) (*Config, error) {
	df, err := datafile.Parse(raw)
	if err != nil {
		return nil, err
	}
	return New(df, raw, logger, handler), nil
}

// Version returns the document's declared schema version.
func (c *Config) Version() string { return c.df.Version }

// Revision returns the document revision this index was built from.
func (c *Config) Revision() string { return c.df.Revision }

// ProjectID returns the owning project id.
func (c *Config) ProjectID() string { return c.df.ProjectID }

// AccountID returns the owning account id.
func (c *Config) AccountID() string { return c.df.AccountID }

// RawDatafile returns a copy of the exact bytes that produced this index.
func (c *Config) RawDatafile() []byte { return slices.Clone(c.raw) }

// Entity array exposure. Each call returns a fresh copy so callers cannot
// reorder or rewrite the arrays the index was built from.

func (c *Config) Groups() []datafile.Group             { return slices.Clone(c.df.Groups) }
func (c *Config) Experiments() []datafile.Experiment   { return slices.Clone(c.df.Experiments) }
func (c *Config) Events() []datafile.Event             { return slices.Clone(c.df.Events) }
func (c *Config) Attributes() []datafile.Attribute     { return slices.Clone(c.df.Attributes) }
func (c *Config) Audiences() []datafile.Audience       { return slices.Clone(c.df.Audiences) }
func (c *Config) TypedAudiences() []datafile.Audience  { return slices.Clone(c.df.TypedAudiences) }
func (c *Config) FeatureFlags() []datafile.FeatureFlag { return slices.Clone(c.df.FeatureFlags) }
func (c *Config) Rollouts() []datafile.Rollout         { return slices.Clone(c.df.Rollouts) }

// Derived map exposure for bulk consumers. Views are copies: mutating one
// does not reach the index.

func (c *Config) GroupMap() map[string]datafile.Group             { return maps.Clone(c.groupMap) }
func (c *Config) ExperimentIDMap() map[string]datafile.Experiment { return maps.Clone(c.experimentIDMap) }
func (c *Config) ExperimentKeyMap() map[string]datafile.Experiment {
	return maps.Clone(c.experimentKeyMap)
}
func (c *Config) EventMap() map[string]datafile.Event         { return maps.Clone(c.eventMap) }
func (c *Config) AttributeMap() map[string]datafile.Attribute { return maps.Clone(c.attributeMap) }
func (c *Config) AudienceMap() map[string]datafile.Audience   { return maps.Clone(c.audienceMap) }
func (c *Config) FeatureMap() map[string]datafile.FeatureFlag { return maps.Clone(c.featureMap) }
func (c *Config) RolloutMap() map[string]datafile.Rollout     { return maps.Clone(c.rolloutMap) }

func (c *Config) VariationKeyMap() map[string]map[string]datafile.Variation {
	return cloneVariationMaps(c.variationKeyMap)
}
func (c *Config) VariationIDMap() map[string]map[string]datafile.Variation {
	return cloneVariationMaps(c.variationIDMap)
}
func (c *Config) VariationKeyMapByExperimentID() map[string]map[string]datafile.Variation {
	return cloneVariationMaps(c.variationKeyMapByID)
}
func (c *Config) VariationIDMapByExperimentID() map[string]map[string]datafile.Variation {
	return cloneVariationMaps(c.variationIDMapByID)
}

// ExperimentFeatureMap returns the reverse experiment-id to feature-id index.
func (c *Config) ExperimentFeatureMap() map[string][]string {
	m := make(map[string][]string, len(c.experimentFeatureMap))
	for id, features := range c.experimentFeatureMap {
		m[id] = slices.Clone(features)
	}
	return m
}

func cloneVariationMaps(src map[string]map[string]datafile.Variation) map[string]map[string]datafile.Variation {
	out := make(map[string]map[string]datafile.Variation, len(src))
	for k, inner := range src {
		out[k] = maps.Clone(inner)
	}
	return out
}
