package fetch

import (
	"context"
	"sync"

	"github.com/nyxdns/adlistgen/internal/adlist/domain"
)

// MaxWorkers bounds how many sources are fetched concurrently, regardless
// of how many sources are given to Fetcher.Fetch.
const MaxWorkers = 16

// Progress is invoked after each source finishes, successfully or not, with
// a monotonically non-decreasing completed count and a constant total.
type Progress func(completed, total int)

// NoopProgress discards progress notifications.
func NoopProgress(int, int) {}

// Stats reports lightweight, best-effort counters for a single Fetch call.
type Stats struct {
	Attempted int // total sources handed to Fetch
	Succeeded int // sources that returned bytes without error
	Failed    int // sources that errored
}

// Fetcher retrieves raw bytes for a set of sources with bounded parallelism.
type Fetcher struct {
	transport Transport
}

// New returns a Fetcher backed by transport. A nil transport defaults to
// HTTPTransport.
func New(transport Transport) *Fetcher {
	if transport == nil {
		transport = NewHTTPTransport()
	}
	return &Fetcher{transport: transport}
}

// Fetch retrieves bytes for every source, at most MaxWorkers at a time. It
// always returns len(sources) results: a failed source carries its error in
// RawFetchResult.Err rather than being silently dropped, so callers can
// record per-source outcomes before filtering with domain.RawFetchResult.Failed.
// progress is invoked once per completed source; pass NoopProgress to skip it.
func (f *Fetcher) Fetch(ctx context.Context, sources []domain.Source, progress Progress) ([]domain.RawFetchResult, Stats) {
	if progress == nil {
		progress = NoopProgress
	}

	results := make([]domain.RawFetchResult, len(sources))
	total := len(sources)

	var completedMu sync.Mutex
	completed := 0
	reportProgress := func() {
		completedMu.Lock()
		defer completedMu.Unlock()
		completed++
		progress(completed, total)
	}

	semaphore := make(chan struct{}, MaxWorkers)
	var wg sync.WaitGroup
	wg.Add(total)

	for i, src := range sources {
		go func(i int, src domain.Source) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = f.fetchOne(ctx, src)
			reportProgress()
		}(i, src)
	}
	wg.Wait()

	stats := Stats{Attempted: total}
	for _, r := range results {
		if r.Failed() {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
	}
	return results, stats
}

func (f *Fetcher) fetchOne(ctx context.Context, src domain.Source) domain.RawFetchResult {
	var b []byte
	var err error
	if src.IsRemote() {
		b, err = f.transport.FetchBytes(ctx, src.Location)
	} else {
		b, err = f.transport.ReadFile(ctx, src.Location)
	}
	return domain.RawFetchResult{Source: src, Bytes: b, Err: err}
}
