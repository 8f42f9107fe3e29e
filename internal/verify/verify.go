package verify

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/docledger/internal/extract"
)

// amountTolerance absorbs float accumulation noise when comparing sums that
// were built up independently.
const amountTolerance = 1e-6

// Check cross-references every sourced field in the aggregate against the
// original page text and reports what it found. It never fails the run:
// errors and warnings ride inside the report and the aggregate stays usable.
//
// A missing source page is an error (the provenance chain is broken); a
// numeric value that cannot be found verbatim in its page is only a warning,
// since formatting drift (currency symbols, separators) is expected.
func Check(agg *extract.Aggregate, pageText map[int]string) extract.ValidationReport {
	report := extract.ValidationReport{IsValid: true}

	for _, m := range agg.Members {
		checkField(&report, fmt.Sprintf("member %s", m.ID), m.SourceLocation, nil, pageText)
	}

	for _, ledger := range agg.Financials.ByMember {
		rev := ledger.Summary.TotalRevenue
		checkField(&report, fmt.Sprintf("summary for member %s", ledger.MemberID),
			ledger.Summary.SourceLocation, &rev, pageText)

		for i, tx := range ledger.Transactions {
			amount := tx.Amount
			checkField(&report, fmt.Sprintf("transaction %d for member %s", i+1, ledger.MemberID),
				tx.SourceLocation, &amount, pageText)
		}

		// Reconciliation sanity check: the accumulated summary against the
		// sum of its own transaction lines.
		var txSum float64
		for _, tx := range ledger.Transactions {
			txSum += tx.Amount
		}
		if len(ledger.Transactions) > 0 && math.Abs(txSum-ledger.Summary.TotalRevenue) > amountTolerance {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"Transaction sum (%s) doesn't match total revenue (%s) for member %s",
				formatAmount(txSum), formatAmount(ledger.Summary.TotalRevenue), ledger.MemberID))
		}
	}

	checkOverallDrift(&report, agg)
	checkSplitIdentities(&report, agg.Members)

	return report
}

// checkOverallDrift compares the two independently built document totals:
// the summed segment-local totals the model reported, and the totals derived
// from the merged ledgers. Drift means the model double-counted or omitted a
// value in some segment.
func checkOverallDrift(report *extract.ValidationReport, agg *extract.Aggregate) {
	var ledgerSales, ledgerRevenue float64
	for _, ledger := range agg.Financials.ByMember {
		ledgerSales += ledger.TotalSales
		ledgerRevenue += ledger.Summary.TotalRevenue
	}
	if math.Abs(ledgerRevenue-agg.Financials.Overall.TotalRevenue) > amountTolerance {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Overall total revenue (%s) doesn't match ledger-derived sum (%s)",
			formatAmount(agg.Financials.Overall.TotalRevenue), formatAmount(ledgerRevenue)))
	}
	if math.Abs(ledgerSales-agg.Financials.Overall.TotalSales) > amountTolerance {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Overall total sales (%s) doesn't match ledger-derived sum (%s)",
			formatAmount(agg.Financials.Overall.TotalSales), formatAmount(ledgerSales)))
	}
}

// checkSplitIdentities flags member pairs whose IDs differ but whose names
// are nearly identical, the usual symptom of the model splitting one person
// across segments.
func checkSplitIdentities(report *extract.ValidationReport, members []extract.Member) {
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a := strings.ToLower(strings.TrimSpace(members[i].Name))
			b := strings.ToLower(strings.TrimSpace(members[j].Name))
			if a == "" || b == "" || len(a) < 4 || len(b) < 4 {
				continue
			}
			if dist := levenshtein.Distance(a, b, nil); dist > 0 && dist <= 1 {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"Members %s (%q) and %s (%q) have nearly identical names and may be the same person",
					members[i].ID, members[i].Name, members[j].ID, members[j].Name))
			}
		}
	}
}

// checkField verifies one sourced field. The verifiedFields entry records
// that the field was examined, not that it is correct; a warning still marks
// it verified.
func checkField(report *extract.ValidationReport, name string, loc extract.SourceLocation, value *float64, pageText map[int]string) {
	text, ok := pageText[loc.Page]
	if !ok {
		report.Errors = append(report.Errors, fmt.Sprintf("source page %d not found for %s", loc.Page, name))
		report.IsValid = false
		return
	}

	if value != nil {
		token := formatAmount(*value)
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(token) + `\b`)
		if !re.MatchString(text) {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"exact value %s not found in source text for %s", token, name))
		}
	}

	report.VerifiedFields = append(report.VerifiedFields, extract.VerifiedField{
		Name:     name,
		Location: loc,
		Verified: true,
	})
}

// formatAmount renders a number as a bare decimal token: integers without a
// decimal point, everything else with the shortest exact representation.
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
