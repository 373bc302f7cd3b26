// Package datafile defines the decoded form of the versioned configuration
// document (the "datafile") that describes a project's experimentation and
// feature-flag setup. It owns deserialization, collection defaulting, and the
// version gate; the compiled lookup structure lives in projectconfig.
package datafile

import "encoding/json"

// ReservedAttributePrefix marks attributes that are addressed by name rather
// than by an assigned id (e.g. "$opt_user_agent").
const ReservedAttributePrefix = "$opt_"

// Datafile is the top-level envelope of the configuration document.
// Collections may be absent in the raw JSON; Parse guarantees they are
// non-nil afterwards (absence means "no entities of this kind", not an error).
type Datafile struct {
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	ProjectID string `json:"projectId"`
	AccountID string `json:"accountId"`

	AnonymizeIP  bool `json:"anonymizeIP"`
	BotFiltering bool `json:"botFiltering"`

	Groups         []Group       `json:"groups"`
	Experiments    []Experiment  `json:"experiments"`
	Events         []Event       `json:"events"`
	Attributes     []Attribute   `json:"attributes"`
	Audiences      []Audience    `json:"audiences"`
	TypedAudiences []Audience    `json:"typedAudiences"`
	FeatureFlags   []FeatureFlag `json:"featureFlags"`
	Rollouts       []Rollout     `json:"rollouts"`
}

// Group is a set of experiments sharing a mutual-exclusion policy for
// traffic allocation. Its nested experiments are not part of the flat
// experiment space until projectconfig merges them in.
type Group struct {
	ID                string              `json:"id"`
	Policy            string              `json:"policy"`
	Experiments       []Experiment        `json:"experiments"`
	TrafficAllocation []TrafficAllocation `json:"trafficAllocation"`
}

// Experiment is a single A/B test. Rollout rules share this shape.
type Experiment struct {
	ID                string              `json:"id"`
	Key               string              `json:"key"`
	Status            string              `json:"status"`
	LayerID           string              `json:"layerId"`
	Variations        []Variation         `json:"variations"`
	TrafficAllocation []TrafficAllocation `json:"trafficAllocation"`
	AudienceIDs       []string            `json:"audienceIds"`
	ForcedVariations  map[string]string   `json:"forcedVariations"`

	// GroupID and GroupPolicy are assigned by the group merge pass, never
	// decoded from the document.
	GroupID     string `json:"-"`
	GroupPolicy string `json:"-"`
}

// Variation is one arm of an experiment or rollout rule.
type Variation struct {
	ID             string              `json:"id"`
	Key            string              `json:"key"`
	FeatureEnabled bool                `json:"featureEnabled"`
	Variables      []VariationVariable `json:"variables"`
}

// VariationVariable overrides a feature variable's value for one variation.
type VariationVariable struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// TrafficAllocation maps a bucket range to a variation or experiment id.
// The bucketing subsystem consumes it; this package only carries it.
type TrafficAllocation struct {
	EntityID   string `json:"entityId"`
	EndOfRange int    `json:"endOfRange"`
}

// Event is a conversion event keyed by name.
type Event struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	ExperimentIDs []string `json:"experimentIds"`
}

// Attribute is a user attribute available for audience targeting.
type Attribute struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// Audience is a targeting segment. Conditions are kept as raw JSON because
// condition evaluation is a separate subsystem; the same shape covers both
// the plain and the typed audience collections.
type Audience struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Conditions json.RawMessage `json:"conditions"`
}

// FeatureFlag ties a feature key to the experiments and rollout that
// control its exposure. ExperimentIDs reference the flat experiment space.
type FeatureFlag struct {
	ID            string            `json:"id"`
	Key           string            `json:"key"`
	RolloutID     string            `json:"rolloutId"`
	ExperimentIDs []string          `json:"experimentIds"`
	Variables     []FeatureVariable `json:"variables"`
}

// FeatureVariable declares a typed variable attached to a feature.
type FeatureVariable struct {
	ID           string `json:"id"`
	Key          string `json:"key"`
	Type         string `json:"type"`
	DefaultValue string `json:"defaultValue"`
}

// Rollout is an ordered list of experiment-shaped rules used for gradual
// feature exposure. Rules are indexed like experiments for variation lookup
// but never enter the experiment maps.
type Rollout struct {
	ID          string       `json:"id"`
	Experiments []Experiment `json:"experiments"`
}

// applyDefaults replaces absent entity collections with empty ones so that
// indexing never has to distinguish nil from empty. It has no failure modes.
func (d *Datafile) applyDefaults() {
	if d.Groups == nil {
		d.Groups = []Group{}
	}
	if d.Experiments == nil {
		d.Experiments = []Experiment{}
	}
	if d.Events == nil {
		d.Events = []Event{}
	}
	if d.Attributes == nil {
		d.Attributes = []Attribute{}
	}
	if d.Audiences == nil {
		d.Audiences = []Audience{}
	}
	if d.TypedAudiences == nil {
		d.TypedAudiences = []Audience{}
	}
	if d.FeatureFlags == nil {
		d.FeatureFlags = []FeatureFlag{}
	}
	if d.Rollouts == nil {
		d.Rollouts = []Rollout{}
	}
}
