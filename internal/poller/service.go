// Package poller implements the background worker that keeps tracked
// projects fresh: it downloads each SDK key's datafile from the CDN on an
// interval and hands new payloads to the registry for compilation.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/projectconfig"
)

// Updater receives freshly fetched payloads. Implemented by the registry.
type Updater interface {
	Update(ctx context.Context, sdkKey string, rec cache.DatafileRecord) (*projectconfig.Config, error)
}

// Config holds the configuration for the poller service.
type Config struct {
	// Interval is the duration between poll cycles.
	Interval time.Duration
	// SDKKeys lists the projects to keep fresh.
	SDKKeys []string
}

// Service orchestrates the polling process.
type Service struct {
	logger  *slog.Logger
	config  Config
	fetcher *Fetcher
	updater Updater
}

// New creates a new poller service.
func New(logger *slog.Logger, cfg Config, fetcher *Fetcher, updater Updater) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if fetcher == nil {
		panic("poller: fetcher cannot be nil")
	}
	if updater == nil {
		panic("poller: updater cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = time.Minute // Safe default
	}

	return &Service{
		logger:  logger,
		config:  cfg,
		fetcher: fetcher,
		updater: updater,
	}
}

// Run starts the poll loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting poller service",
		slog.String("interval", s.config.Interval.String()),
		slog.Int("sdk_keys", len(s.config.SDKKeys)),
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Poll once immediately so tracked projects are servable at startup.
	s.pollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poller service stopping...")
			return nil
		case <-ticker.C:
			s.pollAll(ctx)
		}
	}
}

// pollAll performs a single cycle over every tracked SDK key. Per-key
// failures are logged and the cycle moves on; the next tick retries.
func (s *Service) pollAll(ctx context.Context) {
	start := time.Now()

	for _, sdkKey := range s.config.SDKKeys {
		if ctx.Err() != nil {
			return
		}
		s.poll(ctx, sdkKey)
	}

	observability.PollerCycleDuration.Observe(time.Since(start).Seconds())
}

func (s *Service) poll(ctx context.Context, sdkKey string) {
	rec, notModified, err := s.fetcher.Fetch(ctx, sdkKey)
	if err != nil {
		observability.PollerFetchTotal.WithLabelValues("error").Inc()
		s.logger.Warn("datafile fetch failed",
			slog.String("sdk_key", sdkKey),
			slog.String("error", err.Error()),
		)
		return
	}
	if notModified {
		observability.PollerFetchTotal.WithLabelValues("not_modified").Inc()
		return
	}

	if _, err := s.updater.Update(ctx, sdkKey, *rec); err != nil {
		// A payload that fails decode or the version gate never replaces
		// the config currently being served.
		observability.PollerFetchTotal.WithLabelValues("error").Inc()
		s.logger.Error("fetched datafile rejected",
			slog.String("sdk_key", sdkKey),
			slog.String("error", err.Error()),
		)
		return
	}

	observability.PollerFetchTotal.WithLabelValues("updated").Inc()
}
