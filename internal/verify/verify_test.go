package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docledger/internal/extract"
)

func loc(page int) extract.SourceLocation {
	return extract.SourceLocation{Page: page}
}

func TestCheckCleanAggregate(t *testing.T) {
	agg := extract.Aggregate{
		Members: []extract.Member{{ID: "M1", Name: "Alice Price", SourceLocation: loc(1)}},
		Financials: extract.Financials{
			ByMember: []extract.MemberLedger{{
				MemberID: "M1",
				Transactions: []extract.Transaction{
					{Amount: 60, SourceLocation: loc(1)},
					{Amount: 40, SourceLocation: loc(2)},
				},
				Summary: extract.Summary{TotalRevenue: 100, SourceLocation: loc(2)},
			}},
			Overall: extract.OverallTotals{TotalRevenue: 100, SourceLocation: loc(1)},
		},
	}
	pages := map[int]string{
		1: "Alice Price sold item A for 60",
		2: "and item B for 40, total revenue 100",
	}

	report := Check(&agg, pages)

	assert.True(t, report.IsValid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	// member + summary + 2 transactions were examined.
	assert.Len(t, report.VerifiedFields, 4)
	for _, f := range report.VerifiedFields {
		assert.True(t, f.Verified)
	}
}

func TestCheckMissingSourcePage(t *testing.T) {
	agg := extract.Aggregate{
		Members: []extract.Member{{ID: "M1", Name: "Alice", SourceLocation: loc(99)}},
	}
	pages := map[int]string{1: "page one"}

	report := Check(&agg, pages)

	assert.False(t, report.IsValid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "source page 99 not found for member M1", report.Errors[0])
	// A broken provenance chain is not recorded as examined.
	assert.Empty(t, report.VerifiedFields)
}

func TestCheckNumericValueNotInSource(t *testing.T) {
	agg := extract.Aggregate{
		Financials: extract.Financials{
			ByMember: []extract.MemberLedger{{
				MemberID:     "M1",
				Transactions: []extract.Transaction{{Amount: 60.5, SourceLocation: loc(1)}},
				Summary:      extract.Summary{TotalRevenue: 60.5, SourceLocation: loc(1)},
			}},
			Overall: extract.OverallTotals{TotalRevenue: 60.5},
		},
	}
	pages := map[int]string{1: "the ledger says $60,50 here"}

	report := Check(&agg, pages)

	// Formatting drift is a warning, not an error: the field still counts
	// as examined and the report stays valid.
	assert.True(t, report.IsValid)
	assert.Contains(t, report.Warnings, "exact value 60.5 not found in source text for transaction 1 for member M1")
	assert.Contains(t, report.Warnings, "exact value 60.5 not found in source text for summary for member M1")
	assert.Len(t, report.VerifiedFields, 2)
}

func TestCheckNumericWholeTokenMatch(t *testing.T) {
	agg := extract.Aggregate{
		Financials: extract.Financials{
			ByMember: []extract.MemberLedger{{
				MemberID:     "M1",
				Transactions: []extract.Transaction{{Amount: 60, SourceLocation: loc(1)}},
				Summary:      extract.Summary{TotalRevenue: 60, SourceLocation: loc(1)},
			}},
			Overall: extract.OverallTotals{TotalRevenue: 60},
		},
	}
	// 160 and 608 contain "60" but are not whole-token matches.
	pages := map[int]string{1: "items 160 and 608 only"}

	report := Check(&agg, pages)
	assert.Contains(t, report.Warnings, "exact value 60 not found in source text for transaction 1 for member M1")
}

func TestCheckLedgerSumMismatch(t *testing.T) {
	agg := extract.Aggregate{
		Financials: extract.Financials{
			ByMember: []extract.MemberLedger{{
				MemberID: "M1",
				Transactions: []extract.Transaction{
					{Amount: 60, SourceLocation: loc(1)},
					{Amount: 40, SourceLocation: loc(1)},
				},
				Summary: extract.Summary{TotalRevenue: 120, SourceLocation: loc(1)},
			}},
			Overall: extract.OverallTotals{TotalRevenue: 120},
		},
	}
	pages := map[int]string{1: "60 40 120"}

	report := Check(&agg, pages)

	assert.True(t, report.IsValid)
	assert.Contains(t, report.Warnings,
		"Transaction sum (100) doesn't match total revenue (120) for member M1")
}

func TestCheckOverallTotalsDrift(t *testing.T) {
	agg := extract.Aggregate{
		Financials: extract.Financials{
			ByMember: []extract.MemberLedger{{
				MemberID:     "M1",
				Transactions: []extract.Transaction{{Amount: 100, SourceLocation: loc(1)}},
				Summary:      extract.Summary{TotalRevenue: 100, SourceLocation: loc(1)},
			}},
			// The model's summed segment totals disagree with the ledgers.
			Overall: extract.OverallTotals{TotalRevenue: 130, TotalSales: 2},
		},
	}
	pages := map[int]string{1: "100 130"}

	report := Check(&agg, pages)

	assert.Contains(t, report.Warnings,
		"Overall total revenue (130) doesn't match ledger-derived sum (100)")
	assert.Contains(t, report.Warnings,
		"Overall total sales (2) doesn't match ledger-derived sum (0)")
}

func TestCheckNearIdenticalMemberNames(t *testing.T) {
	agg := extract.Aggregate{
		Members: []extract.Member{
			{ID: "M1", Name: "Johnson", SourceLocation: loc(1)},
			{ID: "M7", Name: "Jonson", SourceLocation: loc(1)},
			{ID: "M9", Name: "Baker", SourceLocation: loc(1)},
		},
	}
	pages := map[int]string{1: "Johnson Jonson Baker"}

	report := Check(&agg, pages)

	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], `Members M1 ("Johnson") and M7 ("Jonson")`)
}
