package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joseph-ayodele/docledger/internal/common"
	"github.com/joseph-ayodele/docledger/internal/extract"
)

// Result is one segment's outcome. Slots are positionally ordered by segment
// index regardless of completion order, so the merge fold stays
// deterministic under any network timing.
type Result struct {
	SegmentIndex int
	Record       extract.PartialRecord
	Raw          []byte
	Err          error
}

// Dispatcher runs the extraction model over every segment under a bounded
// worker pool. The extractor is an explicit dependency: no shared client
// state, test doubles plug straight in.
type Dispatcher struct {
	extractor   extract.SegmentExtractor
	logger      *slog.Logger
	concurrency int
	onProgress  func(fraction float64)
}

type Option func(*Dispatcher)

// WithConcurrency caps parallel model calls. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithProgress registers a progress sink. It receives completedCount /
// totalSegments after each counted completion; fractions are monotonically
// non-decreasing, though delivery order across goroutines may appear
// shuffled. Zero segments means zero callbacks.
func WithProgress(fn func(fraction float64)) Option {
	return func(d *Dispatcher) { d.onProgress = fn }
}

func New(extractor extract.SegmentExtractor, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		extractor:   extractor,
		logger:      logger,
		concurrency: 4,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run dispatches every segment and returns one result slot per input
// segment, indexed identically to the input order. A single segment's
// failure is captured in its slot and never aborts sibling in-flight calls;
// the caller decides whether any failure is fatal.
//
// Cancellation is cooperative: the context is checked before each dispatch.
// Segments not yet started are marked cancelled, in-flight calls finish but
// their results are discarded, and Run reports common.ErrCancelled.
func (d *Dispatcher) Run(ctx context.Context, segments []extract.Segment) ([]Result, error) {
	total := len(segments)
	results := make([]Result, total)
	if total == 0 {
		return results, ctx.Err()
	}

	workers := d.concurrency
	if workers > total {
		workers = total
	}

	jobs := make(chan extract.Segment)
	filled := make([]bool, total) // each slot written by exactly one worker
	var (
		wg        sync.WaitGroup
		completed atomic.Int64
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				rec, raw, err := d.extractor.ExtractSegment(ctx, extract.Request{
					Segment:       seg,
					TotalSegments: total,
				})

				if ctx.Err() != nil {
					// Cancelled while in flight: the call was allowed to
					// finish, its result is sunk cost.
					results[seg.Index] = Result{SegmentIndex: seg.Index, Err: common.ErrCancelled}
					filled[seg.Index] = true
					continue
				}

				if err != nil {
					d.logger.Error("dispatch.segment.failed",
						"segment", seg.Index, "pages",
						seg.PageRange, "error", err)
					results[seg.Index] = Result{
						SegmentIndex: seg.Index,
						Err:          common.NewExtractionError(seg.Index, "segment extraction failed", err),
					}
				} else {
					results[seg.Index] = Result{SegmentIndex: seg.Index, Record: rec, Raw: raw}
				}
				filled[seg.Index] = true

				n := completed.Add(1)
				if d.onProgress != nil {
					d.onProgress(float64(n) / float64(total))
				}
			}
		}()
	}

	dispatched := 0
feed:
	for _, seg := range segments {
		// Checked before every dispatch so an already-cancelled run never
		// issues a call.
		if ctx.Err() != nil {
			break feed
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- seg:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if !filled[i] {
				results[i] = Result{SegmentIndex: i, Err: common.ErrCancelled}
			}
		}
		d.logger.Warn("dispatch.cancelled",
			"dispatched", dispatched, "total", total,
			"completed", completed.Load())
		return results, common.NewCancelledError(err)
	}

	d.logger.Info("dispatch.complete", "segments", total, "failures", countFailures(results))
	return results, nil
}

func countFailures(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// FirstFailure returns the first errored slot in segment order, or nil.
func FirstFailure(results []Result) *Result {
	for i := range results {
		if results[i].Err != nil {
			return &results[i]
		}
	}
	return nil
}
