package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/projectconfig"
)

// fakeUpdater records Update calls and can be told to reject payloads.
type fakeUpdater struct {
	mu        sync.Mutex
	updates   map[string][][]byte
	updateErr error
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{updates: make(map[string][][]byte)}
}

func (f *fakeUpdater) Update(_ context.Context, sdkKey string, rec cache.DatafileRecord) (*projectconfig.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates[sdkKey] = append(f.updates[sdkKey], rec.Raw)
	return nil, nil
}

func (f *fakeUpdater) count(sdkKey string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates[sdkKey])
}

func TestService_PollCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("Should push fetched payloads to the updater", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"version":"4"}`))
		}))
		defer srv.Close()

		updater := newFakeUpdater()
		svc := New(nil, Config{
			Interval: time.Minute,
			SDKKeys:  []string{"sdk-1", "sdk-2"},
		}, NewFetcher(srv.URL+"/%s.json", time.Second), updater)

		svc.pollAll(ctx)

		assert.Equal(t, 1, updater.count("sdk-1"))
		assert.Equal(t, 1, updater.count("sdk-2"))
	})

	t.Run("Should skip the updater on a not-modified response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("If-None-Match") != "" {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			w.Write([]byte(`{"version":"4"}`))
		}))
		defer srv.Close()

		updater := newFakeUpdater()
		svc := New(nil, Config{
			Interval: time.Minute,
			SDKKeys:  []string{"sdk-1"},
		}, NewFetcher(srv.URL+"/%s.json", time.Second), updater)

		svc.pollAll(ctx)
		svc.pollAll(ctx)

		assert.Equal(t, 1, updater.count("sdk-1"))
	})

	t.Run("Should continue the cycle past a failing key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/broken.json" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"version":"4"}`))
		}))
		defer srv.Close()

		updater := newFakeUpdater()
		svc := New(nil, Config{
			Interval: time.Minute,
			SDKKeys:  []string{"broken", "healthy"},
		}, NewFetcher(srv.URL+"/%s.json", time.Second), updater)

		svc.pollAll(ctx)

		assert.Equal(t, 0, updater.count("broken"))
		assert.Equal(t, 1, updater.count("healthy"))
	})

	t.Run("Should survive rejected payloads", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"version":"99"}`))
		}))
		defer srv.Close()

		updater := newFakeUpdater()
		updater.updateErr = errors.New("unsupported datafile version")
		svc := New(nil, Config{
			Interval: time.Minute,
			SDKKeys:  []string{"sdk-1"},
		}, NewFetcher(srv.URL+"/%s.json", time.Second), updater)

		svc.pollAll(ctx)

		assert.Equal(t, 0, updater.count("sdk-1"))
	})
}

func TestService_Run(t *testing.T) {
	t.Run("Should poll immediately and stop on context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"version":"4"}`))
		}))
		defer srv.Close()

		updater := newFakeUpdater()
		svc := New(nil, Config{
			Interval: time.Hour, // only the startup poll fires
			SDKKeys:  []string{"sdk-1"},
		}, NewFetcher(srv.URL+"/%s.json", time.Second), updater)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Run(ctx)
		}()

		require.Eventually(t, func() bool {
			return updater.count("sdk-1") == 1
		}, 2*time.Second, 10*time.Millisecond)

		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("poller did not stop after context cancellation")
		}
	})

	t.Run("Should panic without a fetcher or updater", func(t *testing.T) {
		assert.Panics(t, func() {
			New(nil, Config{}, nil, newFakeUpdater())
		})
		assert.Panics(t, func() {
			New(nil, Config{}, NewFetcher("http://example.com/%s", time.Second), nil)
		})
	})
}
