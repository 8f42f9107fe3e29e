package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docledger/internal/extract"
)

// Artifact is the self-describing structured output of one run: the merged
// aggregate and the verification report that accompanies it.
type Artifact struct {
	Aggregate extract.Aggregate        `json:"aggregate"`
	Report    extract.ValidationReport `json:"validation"`
}

// Service renders run artifacts for downstream consumption.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteJSON writes the artifact as pretty-printed JSON to path.
func (s *Service) WriteJSON(path string, art Artifact) error {
	start := time.Now()
	b, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	s.logger.Info("export.json.ok", "path", path, "bytes", len(b), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// BuildXLSX returns an XLSX workbook (as bytes) with Members, Transactions,
// and Totals sheets for the aggregate.
func (s *Service) BuildXLSX(agg *extract.Aggregate) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()

	if err := s.writeMembersSheet(f, agg); err != nil {
		return nil, err
	}
	if err := s.writeTransactionsSheet(f, agg); err != nil {
		return nil, err
	}
	if err := s.writeTotalsSheet(f, agg); err != nil {
		return nil, err
	}

	// Drop the default sheet excelize creates.
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Members"); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"members", len(agg.Members),
		"ledgers", len(agg.Financials.ByMember),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteXLSX renders the workbook and writes it to path.
func (s *Service) WriteXLSX(path string, agg *extract.Aggregate) error {
	b, err := s.BuildXLSX(agg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (s *Service) writeMembersSheet(f *excelize.File, agg *extract.Aggregate) error {
	const sheet = "Members"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, []any{"Member ID", "Name", "Email", "Phone", "Total Sales", "Total Revenue", "Avg Transaction", "Source Page"}); err != nil {
		return err
	}
	row := 2
	for _, m := range agg.Members {
		var totalSales, totalRevenue, avg float64
		if ledger := agg.Ledger(m.ID); ledger != nil {
			totalSales = ledger.TotalSales
			totalRevenue = ledger.Summary.TotalRevenue
			avg = ledger.Summary.AverageTransaction
		}
		if err := setRow(f, sheet, row, []any{
			m.ID, m.Name, m.Contact.Email, m.Contact.Phone,
			totalSales, totalRevenue, avg, m.SourceLocation.Page,
		}); err != nil {
			return err
		}
		row++
	}
	return nil
}

func (s *Service) writeTransactionsSheet(f *excelize.File, agg *extract.Aggregate) error {
	const sheet = "Transactions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, []any{"Member ID", "Amount", "Type", "Source Page", "Source Index"}); err != nil {
		return err
	}
	row := 2
	for _, ledger := range agg.Financials.ByMember {
		for _, tx := range ledger.Transactions {
			if err := setRow(f, sheet, row, []any{
				ledger.MemberID, tx.Amount, tx.Type, tx.SourceLocation.Page, tx.SourceLocation.Index,
			}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (s *Service) writeTotalsSheet(f *excelize.File, agg *extract.Aggregate) error {
	const sheet = "Totals"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Total Sales", agg.Financials.Overall.TotalSales},
		{"Total Revenue", agg.Financials.Overall.TotalRevenue},
		{"Members", len(agg.Members)},
		{"Document Date", agg.Metadata.DocumentDate},
		{"Report Period", agg.Metadata.ReportPeriod},
		{"Extracted At", agg.Metadata.ExtractionTimestamp.Format(time.RFC3339)},
	}
	for i, r := range rows {
		if err := setRow(f, sheet, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
