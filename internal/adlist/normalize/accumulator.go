// Package normalize consumes fetched raw bytes and accumulates them into
// deduplicated domain and ABP-rule sets, using the Line Classifier as its
// sole parsing authority.
package normalize

import (
	"strings"

	logpkg "github.com/nyxdns/adlistgen/internal/adlist/common/log"
	"github.com/nyxdns/adlistgen/internal/adlist/classify"
	"github.com/nyxdns/adlistgen/internal/adlist/domain"
)

// Mode selects which classified variants are productive: a blocklist run
// wants Domain/AbpBlock lines, an allowlist run wants Domain/AbpAllow lines.
type Mode uint8

const (
	ModeBlock Mode = iota
	ModeAllow
)

// Accumulator consumes RawFetchResults in arbitrary order and builds the
// deduplicated domain set, ABP-rule set, AbpAllow shadow set (only
// populated in ModeBlock), and failed-source list described in spec §4.3.
type Accumulator struct {
	mode Mode

	domains   *orderedSet
	abpRules  *orderedSet
	abpAllow  *orderedSet
	failed    []domain.Source
	logger    logpkg.Logger
}

// New returns an Accumulator for the given mode.
func New(mode Mode) *Accumulator {
	return &Accumulator{
		mode:     mode,
		domains:  newOrderedSet(),
		abpRules: newOrderedSet(),
		abpAllow: newOrderedSet(),
		logger:   logpkg.GetLogger(),
	}
}

// Ingest decodes result's bytes as UTF-8 (invalid sequences replaced),
// splits on \r?\n, classifies each line, and accumulates productive
// variants. A result that already carries a fetch error is recorded as
// failed without inspecting its bytes.
func (a *Accumulator) Ingest(result domain.RawFetchResult) {
	if result.Failed() {
		a.failed = append(a.failed, result.Source)
		a.logger.Debug(map[string]any{"source": result.Source.String(), "error": result.Err.Error()}, "normalize_fetch_failed")
		return
	}

	text := strings.ToValidUTF8(string(result.Bytes), "�")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for _, raw := range lines {
		line := classify.Line(raw)
		a.accumulate(line)
	}
}

func (a *Accumulator) accumulate(line domain.ClassifiedLine) {
	switch line.Variant {
	case domain.LineDomain:
		a.domains.add(line.Host)
	case domain.LineAbpBlock:
		if a.mode == ModeBlock {
			a.abpRules.add(line.Host)
		}
	case domain.LineAbpAllow:
		switch a.mode {
		case ModeBlock:
			a.abpAllow.add(line.Host)
		case ModeAllow:
			a.abpRules.add(line.Host)
		}
	case domain.LineSkip, domain.LineDiscard:
		// not productive
	}
}

// Domains returns the accumulated plain-domain entries, in first-seen order.
func (a *Accumulator) Domains() []string {
	return a.domains.values()
}

// AbpRules returns the accumulated ABP-rule entries for this mode's
// productive ABP variant, in first-seen order.
func (a *Accumulator) AbpRules() []string {
	return a.abpRules.values()
}

// AbpAllow returns the shadow set of AbpAllow hosts seen during a ModeBlock
// run. It is always empty in ModeAllow.
func (a *Accumulator) AbpAllow() []string {
	return a.abpAllow.values()
}

// Failed returns the sources whose fetch failed or were skipped.
func (a *Accumulator) Failed() []domain.Source {
	return a.failed
}
