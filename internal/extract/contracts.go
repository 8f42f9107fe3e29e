package extract

import "context"

// Request carries one segment plus the run-level context the model prompt
// needs (position within the document).
type Request struct {
	Segment       Segment
	TotalSegments int
}

// SegmentExtractor is the oracle contract the pipeline depends on: a
// fallible, network-bound call that turns segment text into a typed partial
// record. Implementations return the raw model JSON alongside the decoded
// record for auditing.
type SegmentExtractor interface {
	ExtractSegment(ctx context.Context, req Request) (PartialRecord, []byte /*rawJSON*/, error)
}
