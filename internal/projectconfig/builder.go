package projectconfig

import (
	"maps"

	"github.com/rafaeljc/mimir/internal/datafile"
)

// mapBy projects a slice into a map keyed by the extractor. When the same
// key appears twice the later occurrence silently wins; duplicate keys in a
// single entity list are a tolerated quirk of accepted documents, and
// rejecting them here would refuse documents the upstream schema accepts.
func mapBy[T any](items []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, item := range items {
		m[key(item)] = item
	}
	return m
}

// build runs the one-shot compilation. The pass order is load-bearing:
// the group merge must complete before experiments are indexed by key, and
// the experiment maps must be final before the reverse feature index reads
// them. No pass can fail on a parsed datafile.
func (c *Config) build() {
	df := c.df

	// Pass 1: direct id/key projections of the raw collections.
	c.groupMap = mapBy(df.Groups, func(g datafile.Group) string { return g.ID })
	c.experimentIDMap = mapBy(df.Experiments, func(e datafile.Experiment) string { return e.ID })
	c.eventMap = mapBy(df.Events, func(e datafile.Event) string { return e.Key })
	c.attributeMap = mapBy(df.Attributes, func(a datafile.Attribute) string { return a.Key })
	c.audienceMap = mapBy(df.Audiences, func(a datafile.Audience) string { return a.ID })
	c.featureMap = mapBy(df.FeatureFlags, func(f datafile.FeatureFlag) string { return f.Key })
	c.rolloutMap = mapBy(df.Rollouts, func(r datafile.Rollout) string { return r.ID })

	// Pass 2: typed audiences overlay the plain set; a typed definition
	// replaces a plain one sharing its id.
	maps.Copy(c.audienceMap, mapBy(df.TypedAudiences, func(a datafile.Audience) string { return a.ID }))

	// Pass 3: merge group-nested experiments into the flat experiment space,
	// stamped with the owning group's id and policy. Well-formed documents
	// do not collide with top-level experiment ids; the merge does not
	// validate that.
	c.mergeGroupedExperiments()

	// Passes 4 and 5: the experiment-key map plus the four variation
	// sub-maps, for flat experiments and for rollout rules alike.
	c.indexExperiments()
	c.indexRolloutRules()

	// Pass 6: reverse experiment -> owning features index.
	c.buildExperimentFeatureMap()
}

// mergeGroupedExperiments projects each group's nested experiments into an
// id-keyed map stamped with the group's id and policy, then merges it into
// the flat experiment-id map.
func (c *Config) mergeGroupedExperiments() {
	for _, g := range c.df.Groups {
		stamped := make([]datafile.Experiment, len(g.Experiments))
		for i, exp := range g.Experiments {
			exp.GroupID = g.ID
			exp.GroupPolicy = g.Policy
			stamped[i] = exp
		}
		maps.Copy(c.experimentIDMap, mapBy(stamped, func(e datafile.Experiment) string { return e.ID }))
	}
}

// indexExperiments registers every experiment now in the flat id map under
// its key and populates its variation sub-maps.
func (c *Config) indexExperiments() {
	c.experimentKeyMap = make(map[string]datafile.Experiment, len(c.experimentIDMap))
	c.variationKeyMap = make(map[string]map[string]datafile.Variation)
	c.variationIDMap = make(map[string]map[string]datafile.Variation)
	c.variationKeyMapByID = make(map[string]map[string]datafile.Variation)
	c.variationIDMapByID = make(map[string]map[string]datafile.Variation)

	for _, exp := range c.experimentIDMap {
		c.experimentKeyMap[exp.Key] = exp
		c.indexVariations(exp.Key, exp.ID, exp.Variations)
	}
}

// indexRolloutRules gives every rollout rule the same four variation
// sub-map shapes, keyed by the rule's own key and id. Rules are deliberately
// not registered in the experiment maps.
func (c *Config) indexRolloutRules() {
	for _, rollout := range c.df.Rollouts {
		for _, rule := range rollout.Experiments {
			c.indexVariations(rule.Key, rule.ID, rule.Variations)
		}
	}
}

// indexVariations populates the four variation sub-maps for one experiment
// or rollout rule. An empty variations list still initializes the sub-maps,
// so a registered experiment never has a missing inner map.
func (c *Config) indexVariations(experimentKey, experimentID string, variations []datafile.Variation) {
	byKey := mapBy(variations, func(v datafile.Variation) string { return v.Key })
	byID := mapBy(variations, func(v datafile.Variation) string { return v.ID })

	c.variationKeyMap[experimentKey] = byKey
	c.variationIDMap[experimentKey] = byID
	c.variationKeyMapByID[experimentID] = byKey
	c.variationIDMapByID[experimentID] = byID
}

// buildExperimentFeatureMap derives the reverse index from feature flags to
// the experiments they list. An experiment id gets an entry iff some feature
// references it.
func (c *Config) buildExperimentFeatureMap() {
	c.experimentFeatureMap = make(map[string][]string)
	for _, feature := range c.df.FeatureFlags {
		for _, experimentID := range feature.ExperimentIDs {
			c.experimentFeatureMap[experimentID] = append(c.experimentFeatureMap[experimentID], feature.ID)
		}
	}
}
