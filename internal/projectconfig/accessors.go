package projectconfig

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rafaeljc/mimir/internal/datafile"
)

// Accessors resolve entities with a uniform miss contract: on a hit the
// stored entity is returned unmodified; on a miss the index logs the
// condition, dispatches a NotFoundError to the error handler, and returns a
// zero-value entity. Callers that ignore the signal can still dereference
// the result, which is the compatibility contract downstream decision code
// relies on.

// reportMiss is the single funnel for every not-found signal.
func (c *Config) reportMiss(kind EntityKind, msg string) {
	c.logger.Warn(msg, slog.String("entity_kind", string(kind)))
	c.handler.Handle(&NotFoundError{Kind: kind, Message: msg})
}

// GroupByID resolves a mutual-exclusion group.
func (c *Config) GroupByID(id string) datafile.Group {
	if g, ok := c.groupMap[id]; ok {
		return g
	}
	c.reportMiss(KindGroup, fmt.Sprintf("group with id %q not found", id))
	return datafile.Group{}
}

// ExperimentByKey resolves an experiment from the flat space, grouped or not.
func (c *Config) ExperimentByKey(key string) datafile.Experiment {
	if exp, ok := c.experimentKeyMap[key]; ok {
		return exp
	}
	c.reportMiss(KindExperiment, fmt.Sprintf("experiment with key %q not found", key))
	return datafile.Experiment{}
}

// ExperimentByID resolves an experiment by id. Rollout rule ids miss here
// on purpose: rules never enter the experiment maps.
func (c *Config) ExperimentByID(id string) datafile.Experiment {
	if exp, ok := c.experimentIDMap[id]; ok {
		return exp
	}
	c.reportMiss(KindExperiment, fmt.Sprintf("experiment with id %q not found", id))
	return datafile.Experiment{}
}

// EventByKey resolves a conversion event.
func (c *Config) EventByKey(key string) datafile.Event {
	if ev, ok := c.eventMap[key]; ok {
		return ev
	}
	c.reportMiss(KindEvent, fmt.Sprintf("event with key %q not found", key))
	return datafile.Event{}
}

// AudienceByID resolves an audience. Typed definitions win over plain ones
// sharing an id; that resolution happened at build time.
func (c *Config) AudienceByID(id string) datafile.Audience {
	if a, ok := c.audienceMap[id]; ok {
		return a
	}
	c.reportMiss(KindAudience, fmt.Sprintf("audience with id %q not found", id))
	return datafile.Audience{}
}

// AttributeByKey resolves a declared attribute.
func (c *Config) AttributeByKey(key string) datafile.Attribute {
	if a, ok := c.attributeMap[key]; ok {
		return a
	}
	c.reportMiss(KindAttribute, fmt.Sprintf("attribute with key %q not found", key))
	return datafile.Attribute{}
}

// FeatureByKey resolves a feature flag.
func (c *Config) FeatureByKey(key string) datafile.FeatureFlag {
	if f, ok := c.featureMap[key]; ok {
		return f
	}
	c.reportMiss(KindFeature, fmt.Sprintf("feature with key %q not found", key))
	return datafile.FeatureFlag{}
}

// RolloutByID resolves a rollout.
func (c *Config) RolloutByID(id string) datafile.Rollout {
	if r, ok := c.rolloutMap[id]; ok {
		return r
	}
	c.reportMiss(KindRollout, fmt.Sprintf("rollout with id %q not found", id))
	return datafile.Rollout{}
}

// VariationFromKey resolves a variation by experiment key and variation key.
func (c *Config) VariationFromKey(experimentKey, variationKey string) datafile.Variation {
	variations, ok := c.variationKeyMap[experimentKey]
	if !ok {
		c.reportMiss(KindExperiment, fmt.Sprintf("experiment with key %q not found", experimentKey))
		return datafile.Variation{}
	}
	if v, ok := variations[variationKey]; ok {
		return v
	}
	c.reportMiss(KindVariation,
		fmt.Sprintf("variation with key %q not found in experiment with key %q", variationKey, experimentKey))
	return datafile.Variation{}
}

// VariationFromID resolves a variation by experiment key and variation id.
func (c *Config) VariationFromID(experimentKey, variationID string) datafile.Variation {
	variations, ok := c.variationIDMap[experimentKey]
	if !ok {
		c.reportMiss(KindExperiment, fmt.Sprintf("experiment with key %q not found", experimentKey))
		return datafile.Variation{}
	}
	if v, ok := variations[variationID]; ok {
		return v
	}
	c.reportMiss(KindVariation,
		fmt.Sprintf("variation with id %q not found in experiment with key %q", variationID, experimentKey))
	return datafile.Variation{}
}

// VariationFromKeyByExperimentID resolves a variation by experiment id and
// variation key. Rollout rule ids resolve here even though the rules are
// absent from the experiment maps.
func (c *Config) VariationFromKeyByExperimentID(experimentID, variationKey string) datafile.Variation {
	variations, ok := c.variationKeyMapByID[experimentID]
	if !ok {
		c.reportMiss(KindExperiment, fmt.Sprintf("experiment with id %q not found", experimentID))
		return datafile.Variation{}
	}
	if v, ok := variations[variationKey]; ok {
		return v
	}
	c.reportMiss(KindVariation,
		fmt.Sprintf("variation with key %q not found in experiment with id %q", variationKey, experimentID))
	return datafile.Variation{}
}

// VariationFromIDByExperimentID resolves a variation by experiment id and
// variation id.
func (c *Config) VariationFromIDByExperimentID(experimentID, variationID string) datafile.Variation {
	variations, ok := c.variationIDMapByID[experimentID]
	if !ok {
		c.reportMiss(KindExperiment, fmt.Sprintf("experiment with id %q not found", experimentID))
		return datafile.Variation{}
	}
	if v, ok := variations[variationID]; ok {
		return v
	}
	c.reportMiss(KindVariation,
		fmt.Sprintf("variation with id %q not found in experiment with id %q", variationID, experimentID))
	return datafile.Variation{}
}

// AttributeID resolves an attribute key to the id used on the wire.
//
// Reserved attributes (keys carrying the "$opt_" prefix) are addressed by
// name, so the key itself is the id. A declared attribute whose key carries
// the reserved prefix is an authoring anomaly: it is logged and its declared
// id still wins. An unknown, non-reserved key signals a miss and resolves
// to the empty id.
func (c *Config) AttributeID(key string) string {
	attr, declared := c.attributeMap[key]
	reserved := strings.HasPrefix(key, datafile.ReservedAttributePrefix)

	switch {
	case declared && reserved:
		c.logger.Warn("declared attribute key carries the reserved prefix, using its declared id",
			slog.String("attribute_key", key),
			slog.String("attribute_id", attr.ID),
		)
		return attr.ID
	case declared:
		return attr.ID
	case reserved:
		return key
	default:
		c.reportMiss(KindAttribute, fmt.Sprintf("attribute with key %q not found", key))
		return ""
	}
}

// FeatureIDsForExperiment reports whether the experiment id is listed by any
// feature flag and, when it is, the owning feature ids. A false result
// returns no list, which is distinct from a feature with an empty list.
func (c *Config) FeatureIDsForExperiment(experimentID string) ([]string, bool) {
	ids, ok := c.experimentFeatureMap[experimentID]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

// IsFeatureExperiment reports whether any feature flag lists the experiment.
func (c *Config) IsFeatureExperiment(experimentID string) bool {
	_, ok := c.experimentFeatureMap[experimentID]
	return ok
}
