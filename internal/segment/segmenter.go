package segment

import (
	"fmt"

	"github.com/joseph-ayodele/docledger/internal/common"
	"github.com/joseph-ayodele/docledger/internal/document"
	"github.com/joseph-ayodele/docledger/internal/extract"
)

// DefaultMaxChars mirrors the segment budget the extraction model is
// prompted with. Segments may exceed it when a single page is larger.
const DefaultMaxChars = 4000

// Split partitions the ordered page text into bounded segments. Page
// boundaries are never split: text accumulates page by page and a segment is
// closed once the buffer reaches maxChars or the last page is consumed. A
// single page larger than maxChars still closes as one oversized segment.
//
// Deterministic and side-effect free. A zero-page document yields an empty
// slice and no error. Malformed page input (page number < 1, out-of-order
// pages) fails before any model call is made.
func Split(pages []document.Page, maxChars int) ([]extract.Segment, error) {
	if maxChars <= 0 {
		return nil, common.NewSegmentationError(fmt.Sprintf("max segment chars must be positive, got %d", maxChars), nil)
	}
	for i, p := range pages {
		if p.Number < 1 {
			return nil, common.NewSegmentationError(fmt.Sprintf("page %d has invalid page number %d", i, p.Number), nil)
		}
		if i > 0 && p.Number <= pages[i-1].Number {
			return nil, common.NewSegmentationError(fmt.Sprintf("page numbers not strictly increasing at position %d (%d after %d)", i, p.Number, pages[i-1].Number), nil)
		}
	}
	if len(pages) == 0 {
		return nil, nil
	}

	var (
		segments  []extract.Segment
		buf       string
		firstPage = pages[0].Number
		startPos  = 0
	)
	for i, p := range pages {
		buf += p.Text

		if len(buf) >= maxChars || i == len(pages)-1 {
			segments = append(segments, extract.Segment{
				Index:         len(segments),
				Text:          buf,
				PageRange:     extract.PageRange{Start: firstPage, End: p.Number},
				StartPosition: startPos,
			})
			buf = ""
			if i < len(pages)-1 {
				firstPage = pages[i+1].Number
			}
			startPos += maxChars
		}
	}
	return segments, nil
}

// PageTextMap returns the page-number keyed text lookup used by
// verification. The same unmodified text that fed segmentation.
func PageTextMap(pages []document.Page) map[int]string {
	m := make(map[int]string, len(pages))
	for _, p := range pages {
		m[p.Number] = p.Text
	}
	return m
}
