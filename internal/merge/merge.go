package merge

import (
	"time"

	"github.com/joseph-ayodele/docledger/internal/extract"
)

// Fold reconciles the ordered per-segment records into one aggregate. It
// must be fed in segment-index order; given the same ordered input it
// produces the same aggregate (modulo ExtractionTimestamp).
//
// Rules, applied per record:
//   - Members: first occurrence of an ID wins; later sightings never
//     overwrite attributes, they only extend the member's ledger.
//   - Ledgers: unseen member IDs are inserted verbatim; otherwise
//     transactions are appended, TotalSales and Summary.TotalRevenue are
//     added, and AverageTransaction is recomputed over the grown ledger.
//   - Overall totals: segment-local totals are summed as reported, not
//     re-derived from ledgers. Verification cross-checks the two sums.
//   - Metadata: the first record supplying a non-empty documentDate or
//     reportPeriod wins; ExtractionTimestamp is set here, never
//     model-supplied.
func Fold(records []extract.PartialRecord) extract.Aggregate {
	agg := extract.Aggregate{
		Metadata: extract.Metadata{ExtractionTimestamp: time.Now().UTC()},
	}

	memberSeen := make(map[string]struct{})
	ledgerIdx := make(map[string]int)

	for _, rec := range records {
		for _, m := range rec.Members {
			if _, ok := memberSeen[m.ID]; ok {
				continue
			}
			memberSeen[m.ID] = struct{}{}
			agg.Members = append(agg.Members, m)
		}

		for _, ledger := range rec.Financials.ByMember {
			i, ok := ledgerIdx[ledger.MemberID]
			if !ok {
				ledgerIdx[ledger.MemberID] = len(agg.Financials.ByMember)
				agg.Financials.ByMember = append(agg.Financials.ByMember, ledger)
				continue
			}
			existing := &agg.Financials.ByMember[i]
			existing.Transactions = append(existing.Transactions, ledger.Transactions...)
			existing.TotalSales += ledger.TotalSales
			existing.Summary.TotalRevenue += ledger.Summary.TotalRevenue
			if n := len(existing.Transactions); n > 0 {
				existing.Summary.AverageTransaction = existing.Summary.TotalRevenue / float64(n)
			} else {
				existing.Summary.AverageTransaction = 0
			}
		}

		agg.Financials.Overall.TotalSales += rec.Financials.Overall.TotalSales
		agg.Financials.Overall.TotalRevenue += rec.Financials.Overall.TotalRevenue
		if agg.Financials.Overall.SourceLocation == (extract.SourceLocation{}) {
			agg.Financials.Overall.SourceLocation = rec.Financials.Overall.SourceLocation
		}

		if agg.Metadata.DocumentDate == "" && rec.Metadata.DocumentDate != "" {
			agg.Metadata.DocumentDate = rec.Metadata.DocumentDate
		}
		if agg.Metadata.ReportPeriod == "" && rec.Metadata.ReportPeriod != "" {
			agg.Metadata.ReportPeriod = rec.Metadata.ReportPeriod
		}
	}

	return agg
}
