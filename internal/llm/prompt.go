package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docledger/internal/extract"
)

// BuildSystemPrompt composes the system message for segment extraction:
// completeness rules, traceability requirements, and the record schema.
func BuildSystemPrompt() string {
	parts := []string{
		"You convert financial report text into structured JSON. Return ONLY JSON that matches the provided JSON Schema.",
		"Data integrity is paramount: extract every member and every sales record in the segment, leaving nothing out.",
		"Maintain relationships between related fields, such as member IDs and their corresponding sales records.",
		"Preserve source locations (page number and in-page index) for every extracted value to ensure traceability.",
		"Handle missing optional fields by omitting them; never output null.",
		"Report segment-local totals only: totals must cover this segment's records, not the whole document.",
		"Use numbers for all monetary values, without currency symbols or thousands separators.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the segment text with its position in the
// document, so the model knows which pages it is reading.
func BuildUserPrompt(req extract.Request) string {
	return fmt.Sprintf("Segment %d/%d (Pages %d-%d): %s",
		req.Segment.Index+1,
		req.TotalSegments,
		req.Segment.PageRange.Start,
		req.Segment.PageRange.End,
		req.Segment.Text,
	)
}
