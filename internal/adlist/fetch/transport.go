// Package fetch retrieves raw bytes for a set of sources with bounded
// parallelism, mirroring the callConcurrently worker-pool shape used
// throughout the reference corpus.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// userAgent is sent on every remote fetch so upstream list maintainers can
// identify the aggregator in their access logs.
const userAgent = "adlistgen/1.0 (+https://github.com/nyxdns/adlistgen)"

// defaultTimeout bounds a single remote fetch. Finite per spec §4.1; retries
// are the caller's concern, not this package's.
const defaultTimeout = 30 * time.Second

// Transport is the fetch collaborator contract: bytes in, bytes out, no
// decoding or line-splitting.
type Transport interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// HTTPTransport fetches remote sources over HTTP(S) and reads local files
// from disk. It is the default Transport used outside of tests.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a Transport with a finite per-request timeout.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (t *HTTPTransport) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: get %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body of %s: %w", url, err)
	}
	return body, nil
}

func (t *HTTPTransport) ReadFile(_ context.Context, path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", path, err)
	}
	return b, nil
}

// LocalTransport only knows how to read local files. It is handy in tests
// and for offline pipelines that never touch the network.
type LocalTransport struct{}

func (LocalTransport) FetchBytes(_ context.Context, url string) ([]byte, error) {
	return nil, fmt.Errorf("fetch: LocalTransport cannot fetch remote url %s", url)
}

func (LocalTransport) ReadFile(_ context.Context, path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", path, err)
	}
	return b, nil
}
