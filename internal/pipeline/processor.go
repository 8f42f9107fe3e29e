package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docledger/internal/dispatch"
	"github.com/joseph-ayodele/docledger/internal/document"
	"github.com/joseph-ayodele/docledger/internal/extract"
	"github.com/joseph-ayodele/docledger/internal/merge"
	"github.com/joseph-ayodele/docledger/internal/segment"
	"github.com/joseph-ayodele/docledger/internal/verify"
)

// Config holds behavior knobs for one pipeline run.
type Config struct {
	MaxSegmentChars int // default segment.DefaultMaxChars
	Concurrency     int // default 4
	// AllowPartial salvages runs where some segments failed extraction by
	// merging only the successful ones. Off by default: a missing segment's
	// members would silently under-report totals.
	AllowPartial bool
}

// Processor coordinates segmentation, concurrent extraction, the merge fold,
// and source verification for one document.
type Processor struct {
	Logger     *slog.Logger
	Extractor  extract.SegmentExtractor
	Cfg        Config
	OnProgress func(fraction float64)
}

func NewProcessor(logger *slog.Logger, extractor extract.SegmentExtractor, cfg Config) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSegmentChars <= 0 {
		cfg.MaxSegmentChars = segment.DefaultMaxChars
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Processor{Logger: logger, Extractor: extractor, Cfg: cfg}
}

// RunResult is the terminal output of one successful run: the merged
// aggregate plus its verification report.
type RunResult struct {
	RunID     uuid.UUID
	Aggregate extract.Aggregate
	Report    extract.ValidationReport
	Pages     int
	Segments  int
	Failed    int
	Elapsed   time.Duration
}

// Process runs the full pipeline over the given pages. Segmentation errors
// and (by default) any segment's extraction failure are fatal; cancellation
// surfaces as common.ErrCancelled via errors.Is / common.IsCancelled, and no
// aggregate is produced. Verification findings never block the result.
//
// A zero-page document is a non-error, zero-progress terminal state: an
// empty aggregate with a clean report.
func (p *Processor) Process(ctx context.Context, pages []document.Page) (*RunResult, error) {
	runID := uuid.New()
	start := time.Now()

	segments, err := segment.Split(pages, p.Cfg.MaxSegmentChars)
	if err != nil {
		p.Logger.Error("pipeline.segment.failed", "run_id", runID, "err", err)
		return nil, err
	}
	p.Logger.Info("pipeline.segment.ok",
		"run_id", runID, "pages", len(pages), "segments", len(segments))

	d := dispatch.New(p.Extractor, p.Logger,
		dispatch.WithConcurrency(p.Cfg.Concurrency),
		dispatch.WithProgress(p.OnProgress),
	)
	results, err := d.Run(ctx, segments)
	if err != nil {
		p.Logger.Warn("pipeline.dispatch.aborted", "run_id", runID, "err", err)
		return nil, err
	}

	failed := 0
	records := make([]extract.PartialRecord, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		records = append(records, r.Record)
	}
	if failed > 0 && !p.Cfg.AllowPartial {
		first := dispatch.FirstFailure(results)
		p.Logger.Error("pipeline.dispatch.failed",
			"run_id", runID, "failed", failed, "first_segment", first.SegmentIndex, "err", first.Err)
		return nil, first.Err
	}

	agg := merge.Fold(records)
	p.Logger.Info("pipeline.merge.ok",
		"run_id", runID,
		"members", len(agg.Members),
		"ledgers", len(agg.Financials.ByMember),
		"total_revenue", agg.Financials.Overall.TotalRevenue,
	)

	report := verify.Check(&agg, segment.PageTextMap(pages))
	p.Logger.Info("pipeline.verify.ok",
		"run_id", runID,
		"valid", report.IsValid,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
		"fields_checked", len(report.VerifiedFields),
	)

	return &RunResult{
		RunID:     runID,
		Aggregate: agg,
		Report:    report,
		Pages:     len(pages),
		Segments:  len(segments),
		Failed:    failed,
		Elapsed:   time.Since(start),
	}, nil
}
