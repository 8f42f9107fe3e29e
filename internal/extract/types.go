package extract

import "time"

// SourceLocation anchors an extracted value to the page (and in-page index)
// it was read from, so verification can trace it back to the source text.
type SourceLocation struct {
	Page  int `json:"page"`
	Index int `json:"index"`
}

// PageRange is the inclusive page span a segment was built from.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Segment is the unit of work dispatched to the extraction model.
// Immutable once produced; Index is the pipeline's canonical order.
type Segment struct {
	Index         int       `json:"segmentIndex"`
	Text          string    `json:"text"`
	PageRange     PageRange `json:"pageRange"`
	StartPosition int       `json:"startPosition"`
}

// Member is a deduplicated person referenced by a stable ID across segments.
// Attributes are fixed at first sighting during merge; only the member's
// ledger keeps growing.
type Member struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Contact        Contact        `json:"contact,omitzero"`
	SourceLocation SourceLocation `json:"sourceLocation"`
}

type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Transaction is one sale/charge line attributed to a member.
type Transaction struct {
	Amount         float64        `json:"amount"`
	Type           string         `json:"type"`
	SourceLocation SourceLocation `json:"sourceLocation"`
}

// Summary holds the derived rollup for one member's transactions.
// Invariant after merge: TotalRevenue == sum of transaction amounts and
// AverageTransaction == TotalRevenue / len(transactions).
type Summary struct {
	TotalRevenue       float64        `json:"totalRevenue"`
	AverageTransaction float64        `json:"averageTransaction"`
	SourceLocation     SourceLocation `json:"sourceLocation"`
}

// MemberLedger accumulates one member's financial record across segments.
type MemberLedger struct {
	MemberID     string        `json:"memberId"`
	TotalSales   float64       `json:"totalSales"`
	Transactions []Transaction `json:"transactions"`
	Summary      Summary       `json:"summary"`
}

// OverallTotals are the document-level totals as reported by the model per
// segment and summed across segments. They are deliberately NOT re-derived
// from the ledgers; verification cross-checks the two (see internal/verify).
type OverallTotals struct {
	TotalSales     float64        `json:"totalSales"`
	TotalRevenue   float64        `json:"totalRevenue"`
	SourceLocation SourceLocation `json:"sourceLocation"`
}

type Financials struct {
	ByMember []MemberLedger `json:"byMember"`
	Overall  OverallTotals  `json:"overall"`
}

type Metadata struct {
	DocumentDate        string    `json:"documentDate,omitempty"`
	ReportPeriod        string    `json:"reportPeriod,omitempty"`
	ExtractionTimestamp time.Time `json:"extractionTimestamp"`
}

// PartialRecord is the structured result of extracting one segment.
type PartialRecord struct {
	Members    []Member   `json:"members"`
	Financials Financials `json:"financials"`
	Metadata   Metadata   `json:"metadata"`
}

// Aggregate is the fully merged, document-wide record. Mutable only inside
// the merge fold; callers treat it as read-only.
type Aggregate struct {
	Members    []Member   `json:"members"`
	Financials Financials `json:"financials"`
	Metadata   Metadata   `json:"metadata"`
}

// Ledger returns the aggregate's ledger for memberID, or nil.
func (a *Aggregate) Ledger(memberID string) *MemberLedger {
	for i := range a.Financials.ByMember {
		if a.Financials.ByMember[i].MemberID == memberID {
			return &a.Financials.ByMember[i]
		}
	}
	return nil
}

// VerifiedField records that a sourced field was examined during
// verification. Verified means "checked", not "confirmed correct".
type VerifiedField struct {
	Name     string         `json:"name"`
	Location SourceLocation `json:"location"`
	Verified bool           `json:"verified"`
}

// ValidationReport is the outcome of cross-checking an aggregate against the
// original page text. Produced once, read-only afterward.
type ValidationReport struct {
	IsValid        bool            `json:"isValid"`
	Errors         []string        `json:"errors"`
	Warnings       []string        `json:"warnings"`
	VerifiedFields []VerifiedField `json:"verifiedFields"`
}
