// Package configapi implements the read-only HTTP surface over compiled
// configurations. Downstream evaluators and debugging humans use it to
// inspect what a project's live document compiles to, and to fetch the raw
// datafile bytes verbatim.
package configapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rafaeljc/mimir/internal/projectconfig"
	"github.com/rafaeljc/mimir/internal/store"
)

// ConfigProvider resolves an SDK key to its compiled configuration.
// Implemented by the registry; abstracted here so handlers can be unit
// tested with a stub.
type ConfigProvider interface {
	Get(ctx context.Context, sdkKey string) (*projectconfig.Config, error)
}

// API holds dependencies and the router for the config API.
type API struct {
	// Router is the chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	provider ConfigProvider

	// archive is nil when no database is configured; the revisions
	// endpoint then answers 503.
	archive store.DatafileArchive

	// apiKeyHash is the SHA-256 hash of the valid API key.
	apiKeyHash string

	// skipAuth disables authentication (dev/test environments only).
	skipAuth bool
}

// NewAPI creates a new API instance with authentication enabled.
// archive may be nil.
func NewAPI(provider ConfigProvider, archive store.DatafileArchive, apiKeyHash string) *API {
	return NewAPIWithConfig(provider, archive, apiKeyHash, false)
}

// NewAPIWithConfig creates a new API instance with explicit control over
// authentication. Panics when provider is nil, or when auth is enabled
// without a key hash.
func NewAPIWithConfig(provider ConfigProvider, archive store.DatafileArchive, apiKeyHash string, skipAuth bool) *API {
	if provider == nil {
		panic("configapi: config provider cannot be nil")
	}
	if !skipAuth && apiKeyHash == "" {
		panic("configapi: apiKeyHash cannot be empty when authentication is enabled")
	}

	api := &API{
		Router:     chi.NewRouter(),
		provider:   provider,
		archive:    archive,
		apiKeyHash: apiKeyHash,
		skipAuth:   skipAuth,
	}

	api.configureRoutes()
	return api
}

func (a *API) configureRoutes() {
	r := a.Router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/projects/{sdkKey}", func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/datafile", a.handleDatafile)
		r.Get("/summary", a.handleSummary)
		r.Get("/experiments/{experimentKey}", a.handleExperiment)
		r.Get("/features/{featureKey}", a.handleFeature)
		r.Get("/revisions", a.handleRevisions)
	})
}

// Serve blocks, serving the API until the context is cancelled, then shuts
// down gracefully within the given timeout.
func (a *API) Serve(ctx context.Context, server *http.Server) error {
	server.Handler = a.Router

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.WriteTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
