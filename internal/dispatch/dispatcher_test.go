package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docledger/internal/common"
	"github.com/joseph-ayodele/docledger/internal/extract"
)

// fakeExtractor turns a func into a SegmentExtractor.
type fakeExtractor struct {
	fn func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error)
}

func (f *fakeExtractor) ExtractSegment(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
	return f.fn(ctx, req)
}

func makeSegments(n int) []extract.Segment {
	segs := make([]extract.Segment, n)
	for i := range segs {
		segs[i] = extract.Segment{
			Index:     i,
			Text:      fmt.Sprintf("segment %d", i),
			PageRange: extract.PageRange{Start: i + 1, End: i + 1},
		}
	}
	return segs
}

// recordFor tags a partial record so a test can tell which segment produced it.
func recordFor(idx int) extract.PartialRecord {
	return extract.PartialRecord{
		Members: []extract.Member{{ID: fmt.Sprintf("M%d", idx), Name: fmt.Sprintf("member %d", idx)}},
	}
}

func TestRunPreservesSlotOrderUnderSkewedLatency(t *testing.T) {
	const n = 8
	ext := &fakeExtractor{fn: func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
		// Later segments finish first.
		time.Sleep(time.Duration(n-req.Segment.Index) * 2 * time.Millisecond)
		return recordFor(req.Segment.Index), []byte("{}"), nil
	}}

	d := New(ext, nil, WithConcurrency(n))
	results, err := d.Run(context.Background(), makeSegments(n))
	require.NoError(t, err)
	require.Len(t, results, n)

	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.SegmentIndex)
		require.Len(t, r.Record.Members, 1)
		assert.Equal(t, fmt.Sprintf("M%d", i), r.Record.Members[0].ID)
	}
}

func TestRunHonorsConcurrencyLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int64

	ext := &fakeExtractor{fn: func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return recordFor(req.Segment.Index), nil, nil
	}}

	d := New(ext, nil, WithConcurrency(limit))
	_, err := d.Run(context.Background(), makeSegments(12))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(limit))
}

func TestRunProgressIsMonotone(t *testing.T) {
	var (
		mu        sync.Mutex
		fractions []float64
	)
	ext := &fakeExtractor{fn: func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
		return recordFor(req.Segment.Index), nil, nil
	}}

	d := New(ext, nil, WithConcurrency(1), WithProgress(func(f float64) {
		mu.Lock()
		fractions = append(fractions, f)
		mu.Unlock()
	}))
	_, err := d.Run(context.Background(), makeSegments(5))
	require.NoError(t, err)

	require.Len(t, fractions, 5)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestRunZeroSegments(t *testing.T) {
	called := false
	ext := &fakeExtractor{fn: func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
		called = true
		return extract.PartialRecord{}, nil, nil
	}}

	d := New(ext, nil, WithProgress(func(float64) { called = true }))
	results, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, called)
}

func TestRunOneFailureDoesNotAbortSiblings(t *testing.T) {
	boom := errors.New("rate limited")
	ext := &fakeExtractor{fn: func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
		if req.Segment.Index == 2 {
			return extract.PartialRecord{}, nil, boom
		}
		return recordFor(req.Segment.Index), nil, nil
	}}

	d := New(ext, nil, WithConcurrency(2))
	results, err := d.Run(context.Background(), makeSegments(5))
	require.NoError(t, err)

	for i, r := range results {
		if i == 2 {
			require.Error(t, r.Err)
			var ae *common.AppError
			require.ErrorAs(t, r.Err, &ae)
			assert.Equal(t, common.CodeExtraction, ae.Code)
			assert.Equal(t, 2, ae.SegmentIndex)
			assert.ErrorIs(t, r.Err, boom)
		} else {
			require.NoError(t, r.Err)
		}
	}

	first := FirstFailure(results)
	require.NotNil(t, first)
	assert.Equal(t, 2, first.SegmentIndex)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var completions atomic.Int64
	ext := &fakeExtractor{fn: func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
		if req.Segment.Index == 1 {
			// Cancel mid-run: this call still finishes, but its result and
			// everything not yet started must be discarded.
			cancel()
		}
		return recordFor(req.Segment.Index), nil, nil
	}}

	d := New(ext, nil, WithConcurrency(1), WithProgress(func(float64) {
		completions.Add(1)
	}))
	results, err := d.Run(ctx, makeSegments(5))

	require.Error(t, err)
	assert.True(t, common.IsCancelled(err))
	assert.LessOrEqual(t, completions.Load(), int64(2))

	// The slot that completed after cancellation and all unstarted slots are
	// cancelled, not populated.
	require.Len(t, results, 5)
	for i := 2; i < 5; i++ {
		assert.ErrorIs(t, results[i].Err, common.ErrCancelled)
	}
	assert.ErrorIs(t, results[1].Err, common.ErrCancelled)
}

func TestRunAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	ext := &fakeExtractor{fn: func(ctx context.Context, req extract.Request) (extract.PartialRecord, []byte, error) {
		calls.Add(1)
		return extract.PartialRecord{}, nil, nil
	}}

	d := New(ext, nil, WithConcurrency(2))
	results, err := d.Run(ctx, makeSegments(4))

	require.Error(t, err)
	assert.True(t, common.IsCancelled(err))
	for _, r := range results {
		assert.ErrorIs(t, r.Err, common.ErrCancelled)
	}
}
