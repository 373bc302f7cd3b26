package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rafaeljc/mimir/internal/cache"
)

// Fetcher downloads datafiles over HTTP with conditional requests. It keeps
// the last seen ETag per SDK key, so an unchanged document costs a 304 and
// no body transfer. It is used only from the poller goroutine and keeps its
// ETag state unsynchronized on that basis.
type Fetcher struct {
	client      *http.Client
	urlTemplate string
	etags       map[string]string
}

// NewFetcher creates a fetcher for the given URL template ("%s" is replaced
// with the SDK key).
func NewFetcher(urlTemplate string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		urlTemplate: urlTemplate,
		etags:       make(map[string]string),
	}
}

// Fetch downloads the datafile for an SDK key. A 304 response reports
// notModified=true with a nil record.
func (f *Fetcher) Fetch(ctx context.Context, sdkKey string) (rec *cache.DatafileRecord, notModified bool, err error) {
	url := fmt.Sprintf(f.urlTemplate, sdkKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build datafile request: %w", err)
	}
	if etag := f.etags[sdkKey]; etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("datafile request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return nil, true, nil
	case http.StatusOK:
		// fall through to read the body
	default:
		return nil, false, fmt.Errorf("datafile request returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read datafile body: %w", err)
	}

	etag := resp.Header.Get("ETag")
	if etag != "" {
		f.etags[sdkKey] = etag
	}

	return &cache.DatafileRecord{
		Raw:       raw,
		ETag:      etag,
		FetchedAt: time.Now().UTC(),
	}, false, nil
}
