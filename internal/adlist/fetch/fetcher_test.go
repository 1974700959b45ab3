package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nyxdns/adlistgen/internal/adlist/domain"
)

type fakeTransport struct {
	mu      sync.Mutex
	maxConc int
	cur     int

	failURLs map[string]bool
}

func (f *fakeTransport) enter() {
	f.mu.Lock()
	f.cur++
	if f.cur > f.maxConc {
		f.maxConc = f.cur
	}
	f.mu.Unlock()
}

func (f *fakeTransport) leave() {
	f.mu.Lock()
	f.cur--
	f.mu.Unlock()
}

func (f *fakeTransport) FetchBytes(_ context.Context, url string) ([]byte, error) {
	f.enter()
	defer f.leave()
	if f.failURLs[url] {
		return nil, errors.New("boom")
	}
	return []byte("ads.example.com\n"), nil
}

func (f *fakeTransport) ReadFile(_ context.Context, path string) ([]byte, error) {
	return f.FetchBytes(context.Background(), path)
}

func mustSource(t *testing.T, remote bool, loc string) domain.Source {
	t.Helper()
	if remote {
		s, err := domain.NewRemoteSource(loc)
		if err != nil {
			t.Fatalf("NewRemoteSource(%q): %v", loc, err)
		}
		return s
	}
	s, err := domain.NewLocalSource(loc)
	if err != nil {
		t.Fatalf("NewLocalSource(%q): %v", loc, err)
	}
	return s
}

func TestFetcher_Fetch_AllSucceed(t *testing.T) {
	transport := &fakeTransport{}
	f := New(transport)

	sources := []domain.Source{
		mustSource(t, true, "https://example.com/a.txt"),
		mustSource(t, true, "https://example.com/b.txt"),
		mustSource(t, false, "/tmp/c.txt"),
	}

	var calls []int
	results, stats := f.Fetch(context.Background(), sources, func(completed, total int) {
		calls = append(calls, completed)
		if total != len(sources) {
			t.Errorf("progress total = %d, want %d", total, len(sources))
		}
	})

	if len(results) != len(sources) {
		t.Fatalf("got %d results, want %d", len(results), len(sources))
	}
	for i, r := range results {
		if r.Failed() {
			t.Errorf("result[%d] unexpectedly failed: %v", i, r.Err)
		}
	}
	if stats.Attempted != 3 || stats.Succeeded != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want {3 3 0}", stats)
	}
	if len(calls) != 3 {
		t.Errorf("got %d progress calls, want 3", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] < calls[i-1] {
			t.Errorf("progress completed count decreased: %v", calls)
		}
	}
}

func TestFetcher_Fetch_PartialFailureIsolated(t *testing.T) {
	transport := &fakeTransport{failURLs: map[string]bool{"https://example.com/bad.txt": true}}
	f := New(transport)

	sources := []domain.Source{
		mustSource(t, true, "https://example.com/good.txt"),
		mustSource(t, true, "https://example.com/bad.txt"),
	}

	results, stats := f.Fetch(context.Background(), sources, NoopProgress)

	if results[0].Failed() {
		t.Errorf("good source unexpectedly failed")
	}
	if !results[1].Failed() {
		t.Errorf("bad source unexpectedly succeeded")
	}
	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 1 succeeded, 1 failed", stats)
	}
}

func TestFetcher_Fetch_RespectsMaxWorkers(t *testing.T) {
	transport := &fakeTransport{}
	f := New(transport)

	sources := make([]domain.Source, MaxWorkers*4)
	for i := range sources {
		sources[i] = mustSource(t, false, "/tmp/list.txt")
	}

	_, stats := f.Fetch(context.Background(), sources, NoopProgress)

	if transport.maxConc > MaxWorkers {
		t.Errorf("observed concurrency %d exceeds MaxWorkers %d", transport.maxConc, MaxWorkers)
	}
	if stats.Attempted != len(sources) || stats.Succeeded != len(sources) {
		t.Errorf("stats = %+v, want all %d succeeded", stats, len(sources))
	}
}

func TestFetcher_Fetch_EmptySources(t *testing.T) {
	f := New(&fakeTransport{})
	results, stats := f.Fetch(context.Background(), nil, NoopProgress)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if stats.Attempted != 0 {
		t.Errorf("expected zero attempted, got %d", stats.Attempted)
	}
}

func TestFetcher_New_NilTransportDefaultsToHTTP(t *testing.T) {
	f := New(nil)
	if _, ok := f.transport.(*HTTPTransport); !ok {
		t.Errorf("expected default transport to be *HTTPTransport, got %T", f.transport)
	}
}
