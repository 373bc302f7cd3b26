package configapi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/projectconfig"
	"github.com/rafaeljc/mimir/internal/registry"
)

// resolveConfig loads the compiled configuration for the request's SDK key.
// On failure it writes the error response itself and returns nil; handlers
// bail out when the returned config is nil.
func (a *API) resolveConfig(w http.ResponseWriter, r *http.Request) *projectconfig.Config {
	log := logger.FromContext(r.Context())

	sdkKey := chi.URLParam(r, "sdkKey")
	cfg, err := a.provider.Get(r.Context(), sdkKey)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownSDKKey) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_NOT_FOUND",
				Message: "No configuration known for this SDK key",
			})
			return nil
		}

		log.Error("failed to resolve configuration",
			slog.String("sdk_key", sdkKey),
			slog.String("error", err.Error()),
		)
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_UPSTREAM",
			Message: "Failed to load configuration for this SDK key",
		})
		return nil
	}

	return cfg
}

// handleDatafile processes GET /api/v1/projects/{sdkKey}/datafile.
// The payload is the source document byte for byte, so downstream SDKs can
// be pointed at this endpoint instead of the vendor CDN.
func (a *API) handleDatafile(w http.ResponseWriter, r *http.Request) {
	cfg := a.resolveConfig(w, r)
	if cfg == nil {
		return
	}

	raw := cfg.RawDatafile()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Datafile-Revision", cfg.Revision())
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// handleSummary processes GET /api/v1/projects/{sdkKey}/summary.
func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	cfg := a.resolveConfig(w, r)
	if cfg == nil {
		return
	}

	sdkKey := chi.URLParam(r, "sdkKey")
	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapConfigToSummary(sdkKey, cfg))
}

// handleExperiment processes GET /api/v1/projects/{sdkKey}/experiments/{experimentKey}.
// Grouped experiments are served from the flat space like any other; rollout
// rules are not addressable here.
func (a *API) handleExperiment(w http.ResponseWriter, r *http.Request) {
	cfg := a.resolveConfig(w, r)
	if cfg == nil {
		return
	}

	experimentKey := chi.URLParam(r, "experimentKey")
	exp, ok := cfg.ExperimentKeyMap()[experimentKey]
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_NOT_FOUND",
			Message: "Experiment not found",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapExperimentToResponse(cfg, exp))
}

// handleFeature processes GET /api/v1/projects/{sdkKey}/features/{featureKey}.
func (a *API) handleFeature(w http.ResponseWriter, r *http.Request) {
	cfg := a.resolveConfig(w, r)
	if cfg == nil {
		return
	}

	featureKey := chi.URLParam(r, "featureKey")
	flag, ok := cfg.FeatureMap()[featureKey]
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_NOT_FOUND",
			Message: "Feature not found",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapFeatureToResponse(flag))
}

// handleRevisions processes GET /api/v1/projects/{sdkKey}/revisions.
// Answers 503 when no archive database is configured.
func (a *API) handleRevisions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if a.archive == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_ARCHIVE_DISABLED",
			Message: "Revision history requires a configured archive database",
		})
		return
	}

	page, err := parseOptionalInt(r, "page", 1)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	pageSize, err := parseOptionalInt(r, "page_size", 20)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	// Silently clamp out-of-bounds values.
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize

	sdkKey := chi.URLParam(r, "sdkKey")
	revisions, totalItems, err := a.archive.ListRevisions(r.Context(), sdkKey, pageSize, offset)
	if err != nil {
		log.Error("failed to list revisions",
			slog.String("sdk_key", sdkKey),
			slog.String("error", err.Error()),
		)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to list revisions",
		})
		return
	}

	dtos := make([]RevisionResponse, len(revisions))
	for i, rev := range revisions {
		dtos[i] = mapRevisionToResponse(rev)
	}

	totalPages := 0
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(pageSize)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PaginatedResponse{
		Data: dtos,
		Pagination: Pagination{
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    pageSize,
		},
	})
}

// parseOptionalInt reads an optional integer query parameter, returning the
// default when absent.
func parseOptionalInt(r *http.Request, key string, defaultValue int) (int, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' must be an integer", key)
	}
	return val, nil
}
