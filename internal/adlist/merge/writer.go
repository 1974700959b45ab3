// Package merge persists a normalized, separated entry stream as a stable,
// reproducible file: union with history, case-insensitive dedup,
// case-folded sort, regenerated header, atomic write.
package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	bloom "github.com/nyxdns/adlistgen/internal/adlist/bloomfilter"
	"github.com/nyxdns/adlistgen/internal/adlist/classify"
	"github.com/nyxdns/adlistgen/internal/adlist/common/clock"
	"github.com/nyxdns/adlistgen/internal/adlist/domain"
)

// defaultFPRate is used when a caller passes a non-positive rate to NewWriter.
const defaultFPRate = 0.01

// Writer renders entry streams to disk.
type Writer struct {
	bloomFactory bloom.Factory
	fpRate       float64
	clock        clock.Clock
}

// NewWriter returns a Writer. A nil factory defaults to bloom.NewFactory();
// the header's GeneratedAt timestamp is stamped from clock.RealClock.
func NewWriter(factory bloom.Factory, fpRate float64) *Writer {
	if factory == nil {
		factory = bloom.NewFactory()
	}
	if !(fpRate > 0 && fpRate < 1) {
		fpRate = defaultFPRate
	}
	return &Writer{bloomFactory: factory, fpRate: fpRate, clock: clock.RealClock{}}
}

// WithClock overrides the Writer's clock, used by tests that need a
// deterministic header timestamp.
func (w *Writer) WithClock(c clock.Clock) *Writer {
	w.clock = c
	return w
}

// ReadPrior re-parses path's data lines, skipping its own header block,
// through the Line Classifier and returns the entries found. A missing
// file is an empty prior, never an error — spec §7's PriorOutputMissing.
func (w *Writer) ReadPrior(path string) ([]domain.Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("merge: read prior %s: %w", path, err)
	}

	lines := strings.Split(string(b), "\n")
	entries := make([]domain.Entry, 0, len(lines))
	for _, raw := range lines {
		if isHeaderLine(raw) {
			continue
		}
		line := classify.Line(raw)
		if e, ok := line.Entry(); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Write deduplicates entries (case-insensitive, whitespace-trimmed, on the
// rendered line), sorts them case-folded ascending, regenerates the header
// from header.Title/header.Sources plus the final counts, and writes the
// result atomically via temp-file-plus-rename.
func (w *Writer) Write(path string, header Header, entries []domain.Entry) error {
	deduped := w.dedupe(entries)

	lines := make([]string, len(deduped))
	domains, abpRules := 0, 0
	for i, e := range deduped {
		lines[i] = e.String()
		if e.Kind == domain.EntryDomain {
			domains++
		} else {
			abpRules++
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		return strings.ToLower(lines[i]) < strings.ToLower(lines[j])
	})

	header.GeneratedAt = w.clock.Now()
	header.Total = len(lines)
	header.Domains = domains
	header.ABPRules = abpRules

	var b strings.Builder
	b.WriteString(header.Render())
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	return writeAtomic(path, b.String())
}

// dedupe unions entries into a case-insensitive, whitespace-trimmed set,
// preserving first-seen entries. A Bloom filter sized for len(entries) is
// consulted before the authoritative map on each candidate: a negative
// answer proves the key is new and skips the map lookup outright; a
// positive answer still falls through to the map, since the filter only
// ever produces false positives, never false negatives. Correctness never
// depends on the filter's answer, only on the map.
func (w *Writer) dedupe(entries []domain.Entry) []domain.Entry {
	filter := w.bloomFactory.New(uint64(len(entries)), w.fpRate)
	seen := make(map[string]struct{}, len(entries))
	out := make([]domain.Entry, 0, len(entries))

	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.String()))
		bk := []byte(key)
		if filter.MightContain(bk) {
			if _, dup := seen[key]; dup {
				continue
			}
		}
		seen[key] = struct{}{}
		filter.Add(bk)
		out = append(out, e)
	}
	return out
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".adlistgen-tmp-*")
	if err != nil {
		return fmt.Errorf("merge: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("merge: write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("merge: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("merge: rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
