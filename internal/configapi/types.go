package configapi

import (
	"time"

	"github.com/rafaeljc/mimir/internal/datafile"
	"github.com/rafaeljc/mimir/internal/projectconfig"
	"github.com/rafaeljc/mimir/internal/store"
)

// SummaryResponse is the metadata view of a compiled configuration. It
// answers "what is live for this key" without shipping the whole document.
type SummaryResponse struct {
	// SDKKey identifies the project whose configuration was compiled.
	SDKKey string `json:"sdk_key"`

	// Version is the schema version of the source document.
	Version string `json:"version"`

	// Revision is the document revision the configuration was built from.
	Revision string `json:"revision"`

	ProjectID string `json:"project_id"`
	AccountID string `json:"account_id"`

	// Entity counts, taken from the flattened view (grouped experiments
	// are counted once, in the flat experiment space).
	Experiments  int `json:"experiments"`
	FeatureFlags int `json:"feature_flags"`
	Rollouts     int `json:"rollouts"`
	Audiences    int `json:"audiences"`
	Events       int `json:"events"`
	Attributes   int `json:"attributes"`
	Groups       int `json:"groups"`
}

// ExperimentResponse is the read model for a single experiment, including
// group membership stamped during compilation.
type ExperimentResponse struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Status string `json:"status"`

	// GroupID and GroupPolicy are empty for ungrouped experiments.
	GroupID     string `json:"group_id,omitempty"`
	GroupPolicy string `json:"group_policy,omitempty"`

	Variations []VariationResponse `json:"variations"`

	// FeatureIDs lists the features referencing this experiment. Omitted
	// entirely for a/b experiments not attached to any feature.
	FeatureIDs []string `json:"feature_ids,omitempty"`
}

// VariationResponse is the read model for one experiment or rule arm.
type VariationResponse struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	FeatureEnabled bool   `json:"feature_enabled"`
}

// FeatureResponse is the read model for a feature flag and its attached
// delivery mechanisms.
type FeatureResponse struct {
	ID            string   `json:"id"`
	Key           string   `json:"key"`
	RolloutID     string   `json:"rollout_id,omitempty"`
	ExperimentIDs []string `json:"experiment_ids"`

	Variables []FeatureVariableResponse `json:"variables"`
}

// FeatureVariableResponse describes one typed variable of a feature.
type FeatureVariableResponse struct {
	Key          string `json:"key"`
	Type         string `json:"type"`
	DefaultValue string `json:"default_value"`
}

// RevisionResponse is one row of the archived revision history. Payloads
// are fetched via the datafile endpoint, never inlined in listings.
type RevisionResponse struct {
	ID        int64     `json:"id"`
	Revision  string    `json:"revision"`
	FetchedAt time.Time `json:"fetched_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PaginatedResponse is a standard wrapper for list endpoints to support
// offset pagination.
type PaginatedResponse struct {
	Data interface{} `json:"data"`

	Pagination Pagination `json:"pagination"`
}

// Pagination metadata for list consumers.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}

func mapConfigToSummary(sdkKey string, cfg *projectconfig.Config) SummaryResponse {
	return SummaryResponse{
		SDKKey:       sdkKey,
		Version:      cfg.Version(),
		Revision:     cfg.Revision(),
		ProjectID:    cfg.ProjectID(),
		AccountID:    cfg.AccountID(),
		Experiments:  len(cfg.ExperimentIDMap()),
		FeatureFlags: len(cfg.FeatureMap()),
		Rollouts:     len(cfg.RolloutMap()),
		Audiences:    len(cfg.AudienceMap()),
		Events:       len(cfg.EventMap()),
		Attributes:   len(cfg.AttributeMap()),
		Groups:       len(cfg.GroupMap()),
	}
}

func mapExperimentToResponse(cfg *projectconfig.Config, exp datafile.Experiment) ExperimentResponse {
	resp := ExperimentResponse{
		ID:          exp.ID,
		Key:         exp.Key,
		Status:      exp.Status,
		GroupID:     exp.GroupID,
		GroupPolicy: exp.GroupPolicy,
		Variations:  make([]VariationResponse, 0, len(exp.Variations)),
	}
	for _, v := range exp.Variations {
		resp.Variations = append(resp.Variations, VariationResponse{
			ID:             v.ID,
			Key:            v.Key,
			FeatureEnabled: v.FeatureEnabled,
		})
	}
	if ids, ok := cfg.FeatureIDsForExperiment(exp.ID); ok {
		resp.FeatureIDs = ids
	}
	return resp
}

func mapFeatureToResponse(flag datafile.FeatureFlag) FeatureResponse {
	resp := FeatureResponse{
		ID:            flag.ID,
		Key:           flag.Key,
		RolloutID:     flag.RolloutID,
		ExperimentIDs: flag.ExperimentIDs,
		Variables:     make([]FeatureVariableResponse, 0, len(flag.Variables)),
	}
	for _, v := range flag.Variables {
		resp.Variables = append(resp.Variables, FeatureVariableResponse{
			Key:          v.Key,
			Type:         v.Type,
			DefaultValue: v.DefaultValue,
		})
	}
	return resp
}

func mapRevisionToResponse(rev *store.DatafileRevision) RevisionResponse {
	return RevisionResponse{
		ID:        rev.ID,
		Revision:  rev.Revision,
		FetchedAt: rev.FetchedAt,
		CreatedAt: rev.CreatedAt,
	}
}
