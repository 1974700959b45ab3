// Package orchestrate wires the fetch, normalize, separate, and merge
// stages into the two-pipeline run described for the aggregation engine:
// blocklist and allowlist sources are fetched and normalized concurrently;
// once both pipelines finish, each writes its own stream, the two
// in-memory streams are separated, and both output files are rewritten
// unconditionally so their headers always reflect the post-separation
// counts. Only the blocklist pipeline persists across runs — the
// allowlist carries no such history.
package orchestrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nyxdns/adlistgen/internal/adlist/config"
	"github.com/nyxdns/adlistgen/internal/adlist/domain"
	"github.com/nyxdns/adlistgen/internal/adlist/fetch"
	"github.com/nyxdns/adlistgen/internal/adlist/health"
	logpkg "github.com/nyxdns/adlistgen/internal/adlist/common/log"
	"github.com/nyxdns/adlistgen/internal/adlist/merge"
	"github.com/nyxdns/adlistgen/internal/adlist/normalize"
	"github.com/nyxdns/adlistgen/internal/adlist/separate"
)

// Options bundles the collaborators a Run needs beyond the engine config:
// the transport fetches go over, the journal fetch outcomes are recorded
// to, and the per-pipeline progress callbacks. A nil Transport defaults to
// an HTTPTransport and nil progress callbacks to no-ops; a nil Journal
// turns outcome recording off.
type Options struct {
	Transport     fetch.Transport
	Journal       health.Journal
	BlockProgress fetch.Progress
	AllowProgress fetch.Progress
}

// Result reports what one Run produced.
type Result struct {
	BlockWritten int
	AllowWritten int
	BlockFailed  []domain.Source
	AllowFailed  []domain.Source
}

// pipelineOutcome carries one pipeline's accumulated entries and bookkeeping
// back to the goroutine that launched it.
type pipelineOutcome struct {
	entries []domain.Entry
	failed  []domain.Source
	stats   fetch.Stats
}

// Run fetches and normalizes both source lists concurrently. Each pipeline
// is Fetcher → Normalizer → (merge-with-prior for blocklist only, per
// spec §3: the allowlist carries no persistence) → Writer. Only the fetch
// and normalize stages run concurrently: the prior-output merge and the
// first write of each file wait until both pipelines have finished, and
// then run one after the other, blocklist first. The Separator then runs
// once on the two in-memory streams, and the Writer unconditionally
// re-emits both files with fresh
// headers — the second write happens even when Separate changes nothing,
// since the first write's header counts are stale the moment the other
// pipeline's promotions or removals are known.
func Run(ctx context.Context, cfg *config.AppConfig, opts Options, blockSources, allowSources []domain.Source) (Result, error) {
	transport := opts.Transport
	if transport == nil {
		transport = fetch.NewHTTPTransport()
	}
	journal := opts.Journal

	logger := logpkg.GetLogger()

	var blockOutcome, allowOutcome pipelineOutcome
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		blockOutcome = runPipeline(ctx, transport, journal, normalize.ModeBlock, blockSources, opts.BlockProgress)
	}()
	go func() {
		defer wg.Done()
		allowOutcome = runPipeline(ctx, transport, journal, normalize.ModeAllow, allowSources, opts.AllowProgress)
	}()
	wg.Wait()

	writer := merge.NewWriter(nil, cfg.Fetch.BloomFPRate)

	priorBlock, err := writer.ReadPrior(cfg.Output.BlocklistPath)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrate: read prior blocklist: %w", err)
	}
	mergedBlock := append(append([]domain.Entry{}, priorBlock...), blockOutcome.entries...)

	blockHeader := merge.Header{Title: cfg.Output.Title, Sources: blockOutcome.stats.Attempted}
	allowHeader := merge.Header{Title: cfg.Output.Title + " (allowlist)", Sources: allowOutcome.stats.Attempted}

	// First write per pipeline, pre-separation: the blocklist stream is
	// already merged with its prior output, the allowlist stream is not.
	if err := writer.Write(cfg.Output.BlocklistPath, blockHeader, mergedBlock); err != nil {
		return Result{}, fmt.Errorf("orchestrate: write blocklist (pre-separation): %w", err)
	}
	if err := writer.Write(cfg.Output.AllowlistPath, allowHeader, allowOutcome.entries); err != nil {
		return Result{}, fmt.Errorf("orchestrate: write allowlist (pre-separation): %w", err)
	}

	cleanBlock, cleanAllow := separate.Separate(mergedBlock, allowOutcome.entries)

	// Second write, mandatory regardless of whether Separate changed
	// anything: the pre-separation headers above are stale the moment
	// separation can promote or drop entries.
	if err := writer.Write(cfg.Output.BlocklistPath, blockHeader, cleanBlock); err != nil {
		return Result{}, fmt.Errorf("orchestrate: write blocklist: %w", err)
	}
	if err := writer.Write(cfg.Output.AllowlistPath, allowHeader, cleanAllow); err != nil {
		return Result{}, fmt.Errorf("orchestrate: write allowlist: %w", err)
	}

	logger.Info(map[string]any{
		"block_written": len(cleanBlock),
		"allow_written": len(cleanAllow),
		"block_failed":  len(blockOutcome.failed),
		"allow_failed":  len(allowOutcome.failed),
	}, "orchestrate_run_complete")

	return Result{
		BlockWritten: len(cleanBlock),
		AllowWritten: len(cleanAllow),
		BlockFailed:  blockOutcome.failed,
		AllowFailed:  allowOutcome.failed,
	}, nil
}

// runPipeline fetches sources, records per-source outcomes in the journal
// (pure observability; the journal is never read back into this path), and
// normalizes every result into the mode's productive entry set.
func runPipeline(ctx context.Context, transport fetch.Transport, journal health.Journal, mode normalize.Mode, sources []domain.Source, progress fetch.Progress) pipelineOutcome {
	f := fetch.New(transport)
	results, stats := f.Fetch(ctx, sources, progress)

	if journal != nil {
		now := time.Now()
		for _, r := range results {
			key := r.Source.String()
			if r.Failed() {
				_ = journal.RecordFailure(key, now, r.Err.Error())
			} else {
				_ = journal.RecordSuccess(key, now)
			}
		}
	}

	acc := normalize.New(mode)
	for _, r := range results {
		acc.Ingest(r)
	}

	entries := make([]domain.Entry, 0, len(acc.Domains())+len(acc.AbpRules())+len(acc.AbpAllow()))
	for _, host := range acc.Domains() {
		if e, err := domain.NewEntry(domain.EntryDomain, host); err == nil {
			entries = append(entries, e)
		}
	}

	productiveABPKind := domain.EntryABPBlock
	if mode == normalize.ModeAllow {
		productiveABPKind = domain.EntryABPAllow
	}
	for _, host := range acc.AbpRules() {
		if e, err := domain.NewEntry(productiveABPKind, host); err == nil {
			entries = append(entries, e)
		}
	}

	// ModeBlock's shadow AbpAllow set carries exception rules that must
	// reach the Separator so it can promote them into the allowlist stream.
	if mode == normalize.ModeBlock {
		for _, host := range acc.AbpAllow() {
			if e, err := domain.NewEntry(domain.EntryABPAllow, host); err == nil {
				entries = append(entries, e)
			}
		}
	}

	return pipelineOutcome{entries: entries, failed: acc.Failed(), stats: stats}
}
