package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tablero/internal/metrics"
	"github.com/Veraticus/tablero/internal/model"
	"github.com/Veraticus/tablero/internal/service"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Pipeline defaults.
const (
	DefaultFetchTimeout = 60 * time.Second
	DefaultConcurrency  = 4
)

// PipelineConfig bounds source downloads.
type PipelineConfig struct {
	FetchTimeout time.Duration
	Concurrency  int
}

// ProgressEvent is sent after each source download and after each sheet.
// Sheet is nil for download events.
type ProgressEvent struct {
	Err        error
	Sheet      *SheetOutcome
	Source     string
	SheetCount int
}

// ProgressFunc observes pipeline progress. It is called from the goroutine
// running Pipeline.Run.
type ProgressFunc func(ProgressEvent)

// SourceSummary is the result of syncing one source.
type SourceSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
	RunID      string
	Source     string
	Sheets     []SheetOutcome
	Written    int
}

// Count returns the number of sheets with the given status.
func (s *SourceSummary) Count(status SheetStatus) int {
	n := 0
	for _, o := range s.Sheets {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Dropped returns the total number of dropped rows.
func (s *SourceSummary) Dropped() int {
	n := 0
	for _, o := range s.Sheets {
		n += o.RowsDropped
	}
	return n
}

// RunSummary aggregates a full sync.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []SourceSummary
}

// Written returns the records written across all sources.
func (r *RunSummary) Written() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Written
	}
	return n
}

// Failures returns the number of sources that could not be synced.
func (r *RunSummary) Failures() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline downloads sources in parallel and processes them in order.
type Pipeline struct {
	fetcher   Fetcher
	processor *Processor
	runs      service.RunStore
	logger    *slog.Logger
	progress  ProgressFunc
	now       func() time.Time
	cfg       PipelineConfig
}

// NewPipeline creates a pipeline. runs may be nil, in which case no sync
// history is kept.
func NewPipeline(fetcher Fetcher, processor *Processor, runs service.RunStore, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Pipeline{
		fetcher:   fetcher,
		processor: processor,
		runs:      runs,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// OnProgress installs a progress observer.
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	p.progress = fn
}

type fetchResult struct {
	started  time.Time
	err      error
	workbook model.Workbook
}

// Run syncs every source. Downloads run concurrently; sheets are processed
// one at a time in configuration order. A failing source is recorded in its
// summary and never stops the others.
func (p *Pipeline) Run(ctx context.Context, sources []SourceConfig) RunSummary {
	summary := RunSummary{StartedAt: p.now()}

	results := make([]chan fetchResult, len(sources))
	for i := range results {
		results[i] = make(chan fetchResult, 1)
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	go func() {
		for i, src := range sources {
			g.Go(func() error {
				results[i] <- p.fetch(ctx, src)
				return nil
			})
		}
	}()

	for i, src := range sources {
		res := <-results[i]
		summary.Sources = append(summary.Sources, p.processSource(ctx, src, res))
	}
	_ = g.Wait()

	summary.FinishedAt = p.now()
	p.logger.Info("sync finished",
		"sources", len(sources),
		"failed", summary.Failures(),
		"written", summary.Written(),
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary
}

func (p *Pipeline) fetch(ctx context.Context, src SourceConfig) fetchResult {
	res := fetchResult{started: p.now()}
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()
	res.workbook, res.err = p.fetcher.Fetch(fetchCtx, src)
	return res
}

func (p *Pipeline) processSource(ctx context.Context, src SourceConfig, res fetchResult) SourceSummary {
	logger := p.logger.With("source", src.Name)
	sum := SourceSummary{Source: src.Name, StartedAt: res.started}

	if res.err != nil {
		logger.Error("failed to fetch source", "error", res.err)
		metrics.SourceFailures.WithLabelValues(src.Name).Inc()
		sum.Err = res.err
		p.notify(ProgressEvent{Source: src.Name, Err: res.err})
	} else {
		logger.Info("fetched source", "sheets", len(res.workbook.Sheets))
		p.notify(ProgressEvent{Source: src.Name, SheetCount: len(res.workbook.Sheets)})
		for _, sheet := range res.workbook.Sheets {
			if err := ctx.Err(); err != nil {
				sum.Err = fmt.Errorf("sync interrupted: %w", err)
				break
			}
			outcome := p.processor.ProcessSheet(ctx, src, sheet)
			observe(src.Name, &outcome)
			sum.Sheets = append(sum.Sheets, outcome)
			sum.Written += outcome.Written
			p.notify(ProgressEvent{Source: src.Name, Sheet: &outcome})
		}
	}

	sum.FinishedAt = p.now()
	metrics.SyncDuration.WithLabelValues(src.Name).Observe(sum.FinishedAt.Sub(sum.StartedAt).Seconds())
	sum.RunID = p.recordRun(ctx, &sum)
	return sum
}

func (p *Pipeline) recordRun(ctx context.Context, sum *SourceSummary) string {
	if p.runs == nil {
		return ""
	}
	run := model.SyncRun{
		ID:              uuid.NewString(),
		Source:          sum.Source,
		StartedAt:       sum.StartedAt,
		FinishedAt:      sum.FinishedAt,
		SheetsProcessed: sum.Count(SheetProcessed),
		SheetsSkipped:   sum.Count(SheetSkipped),
		SheetsFailed:    sum.Count(SheetFailed),
		RowsDropped:     sum.Dropped(),
		RecordsWritten:  sum.Written,
	}
	switch {
	case sum.Err != nil:
		run.Error = sum.Err.Error()
	case run.SheetsFailed > 0:
		run.Error = fmt.Sprintf("%d sheets failed to persist", run.SheetsFailed)
	}

	// The run is recorded even when the sync was cancelled.
	if err := p.runs.SaveSyncRun(context.WithoutCancel(ctx), &run); err != nil {
		p.logger.Error("failed to save sync run", "source", sum.Source, "error", err)
		return ""
	}
	return run.ID
}

func (p *Pipeline) notify(ev ProgressEvent) {
	if p.progress != nil {
		p.progress(ev)
	}
}

func observe(source string, o *SheetOutcome) {
	metrics.SheetsProcessed.WithLabelValues(source, string(o.Status)).Inc()
	if o.Status == SheetSkipped {
		metrics.SheetsSkipped.WithLabelValues(source, string(o.Reason)).Inc()
	}
	for reason, n := range o.Drops {
		metrics.RowsDropped.WithLabelValues(source, reason).Add(float64(n))
	}
	if o.Written > 0 {
		metrics.RecordsWritten.WithLabelValues(source).Add(float64(o.Written))
	}
}
