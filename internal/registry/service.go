// Package registry owns the mapping from SDK key to the compiled
// configuration currently being served. It layers the in-memory cache of
// compiled configs over the Redis store of raw payloads and applies the
// swap-whole-configs-only update discipline: a new document is compiled
// into a brand-new index and then swapped in; a served index is never
// touched.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/datafile"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/projectconfig"
	"github.com/rafaeljc/mimir/internal/store"
)

// ErrUnknownSDKKey is returned when neither memory nor the raw store holds
// a datafile for the requested key.
var ErrUnknownSDKKey = errors.New("unknown sdk key")

// Service resolves and updates compiled configurations.
type Service struct {
	logger  *slog.Logger
	l1      *cache.MemoryCache
	l2      cache.DatafileStore
	archive store.DatafileArchive // nil when no database is configured
	handler projectconfig.ErrorHandler
}

// New creates a registry service. archive may be nil; the other
// dependencies are mandatory.
func New(logger *slog.Logger, l1 *cache.MemoryCache, l2 cache.DatafileStore, archive store.DatafileArchive, handler projectconfig.ErrorHandler) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if l1 == nil {
		panic("registry: memory cache cannot be nil")
	}
	if l2 == nil {
		panic("registry: datafile store cannot be nil")
	}
	if handler == nil {
		handler = projectconfig.NoOpHandler{}
	}

	return &Service{
		logger:  logger,
		l1:      l1,
		l2:      l2,
		archive: archive,
		handler: handler,
	}
}

// Get returns the compiled config for the SDK key. A memory miss falls back
// to the raw store and recompiles, so a restarted instance can serve the
// last known good document before its first poll. Unknown keys return
// ErrUnknownSDKKey.
func (s *Service) Get(ctx context.Context, sdkKey string) (*projectconfig.Config, error) {
	if cfg, ok := s.l1.Get(sdkKey); ok {
		observability.RegistryL1Hits.Inc()
		return cfg, nil
	}
	observability.RegistryL1Misses.Inc()

	rec, err := s.l2.Load(ctx, sdkKey)
	if err != nil {
		if errors.Is(err, cache.ErrDatafileNotFound) {
			return nil, ErrUnknownSDKKey
		}
		return nil, fmt.Errorf("failed to load raw datafile: %w", err)
	}

	cfg, err := s.compile(rec.Raw)
	if err != nil {
		// A payload that no longer parses means the store holds a corrupt
		// or since-unsupported document. Surface it; do not serve it.
		return nil, fmt.Errorf("stored datafile for %q is unusable: %w", sdkKey, err)
	}

	s.l1.Set(sdkKey, cfg)
	observability.RegistryConfigsHeld.Set(float64(s.l1.Len()))
	s.logger.Info("compiled config restored from raw store",
		slog.String("sdk_key", sdkKey),
		slog.String("revision", cfg.Revision()),
	)
	return cfg, nil
}

// Update compiles a freshly fetched payload and makes it the served config
// for the SDK key. When the payload is byte-identical to what is already
// served the update is skipped entirely. The raw store and the archive are
// best-effort: their failures are logged, not propagated, because the new
// config is already live in memory.
func (s *Service) Update(ctx context.Context, sdkKey string, rec cache.DatafileRecord) (*projectconfig.Config, error) {
	if current, ok := s.l1.Get(sdkKey); ok && bytes.Equal(current.RawDatafile(), rec.Raw) {
		return current, nil
	}

	cfg, err := s.compile(rec.Raw)
	if err != nil {
		return nil, err
	}
	rec.Revision = cfg.Revision()

	s.l1.Set(sdkKey, cfg)
	observability.RegistryConfigsHeld.Set(float64(s.l1.Len()))

	if err := s.l2.Save(ctx, sdkKey, rec); err != nil {
		s.logger.Warn("failed to persist raw datafile",
			slog.String("sdk_key", sdkKey),
			slog.String("error", err.Error()),
		)
	}

	if s.archive != nil {
		rev := &store.DatafileRevision{
			SDKKey:    sdkKey,
			Revision:  cfg.Revision(),
			Payload:   rec.Raw,
			FetchedAt: rec.FetchedAt,
		}
		if err := s.archive.SaveRevision(ctx, rev); err != nil {
			s.logger.Warn("failed to archive datafile revision",
				slog.String("sdk_key", sdkKey),
				slog.String("revision", cfg.Revision()),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("config updated",
		slog.String("sdk_key", sdkKey),
		slog.String("revision", cfg.Revision()),
	)
	return cfg, nil
}

// Forget drops the compiled config of an SDK key from memory.
// The raw store keeps its payload; the next Get recompiles it.
func (s *Service) Forget(sdkKey string) {
	s.l1.Del(sdkKey)
	observability.RegistryConfigsHeld.Set(float64(s.l1.Len()))
}

// compile runs decode, the version gate and indexing, instrumented.
func (s *Service) compile(raw []byte) (*projectconfig.Config, error) {
	start := time.Now()

	cfg, err := projectconfig.NewFromPayload(raw, s.logger, s.handler)
	if err != nil {
		observability.RegistryCompileFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	observability.RegistryCompileDuration.Observe(time.Since(start).Seconds())
	return cfg, nil
}

// failureReason maps a compile error to a metric label.
func failureReason(err error) string {
	var versionErr *datafile.UnsupportedVersionError
	if errors.As(err, &versionErr) {
		return "version"
	}
	return "decode"
}
