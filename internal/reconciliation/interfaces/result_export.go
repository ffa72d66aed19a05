package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	recon "recon-cloud/internal/reconciliation/domain"
)

// BuildResultPDF renders a minimal PDF for a confirmed reconciliation.
func BuildResultPDF(result *recon.ReconciliationResult) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Reconciliation Result")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Account: %s", result.Statement.AccountLabel))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s",
		result.Statement.PeriodStart.Format("2006-01-02"),
		result.Statement.PeriodEnd.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Session: %s", result.SessionID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Confirmed: %s", result.ConfirmedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Operations: %d", result.Summary.OperationCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Match Rate: %d%%", result.Summary.MatchRate))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Balance Gap (%s): %s", result.Statement.Currency, result.Summary.BalanceGap.StringFixed(2)))
	pdf.Ln(5)
	if result.Comments != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Comments: %s", result.Comments))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	// Matches table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Operation", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Transaction", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Label", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, match := range result.Matches {
		pdf.CellFormat(45, 6, match.OperationID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, match.TransactionID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, match.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, match.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Operation", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Included", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Transaction", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Notes", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, decision := range result.Decisions {
		included := "no"
		if decision.Include {
			included = "yes"
		}
		pdf.CellFormat(45, 6, decision.OperationID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, included, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, decision.TransactionID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, decision.Notes, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildResultXLSX renders a minimal XLSX for a confirmed reconciliation.
func BuildResultXLSX(result *recon.ReconciliationResult) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	matchesSheet := "matches"
	decisionsSheet := "decisions"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(matchesSheet)
	f.NewSheet(decisionsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Reconciliation Result")
	_ = f.SetCellValue(summarySheet, "A3", "Account")
	_ = f.SetCellValue(summarySheet, "B3", result.Statement.AccountLabel)
	_ = f.SetCellValue(summarySheet, "A4", "Currency")
	_ = f.SetCellValue(summarySheet, "B4", result.Statement.Currency)
	_ = f.SetCellValue(summarySheet, "A5", "Period Start")
	_ = f.SetCellValue(summarySheet, "B5", result.Statement.PeriodStart.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Period End")
	_ = f.SetCellValue(summarySheet, "B6", result.Statement.PeriodEnd.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A7", "Session")
	_ = f.SetCellValue(summarySheet, "B7", result.SessionID)
	_ = f.SetCellValue(summarySheet, "A8", "Confirmed")
	_ = f.SetCellValue(summarySheet, "B8", result.ConfirmedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A9", "Operations")
	_ = f.SetCellValue(summarySheet, "B9", result.Summary.OperationCount)
	_ = f.SetCellValue(summarySheet, "A10", "Matched")
	_ = f.SetCellValue(summarySheet, "B10", result.Summary.MatchedCount)
	_ = f.SetCellValue(summarySheet, "A11", "Included")
	_ = f.SetCellValue(summarySheet, "B11", result.Summary.IncludedCount)
	_ = f.SetCellValue(summarySheet, "A12", "Ignored")
	_ = f.SetCellValue(summarySheet, "B12", result.Summary.IgnoredCount)
	_ = f.SetCellValue(summarySheet, "A13", "Match Rate (%)")
	_ = f.SetCellValue(summarySheet, "B13", result.Summary.MatchRate)
	_ = f.SetCellValue(summarySheet, "A14", "Balance Gap")
	_ = f.SetCellValue(summarySheet, "B14", result.Summary.BalanceGap.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A15", "Comments")
	_ = f.SetCellValue(summarySheet, "B15", result.Comments)

	_ = f.SetCellValue(matchesSheet, "A1", "Operation")
	_ = f.SetCellValue(matchesSheet, "B1", "Transaction")
	_ = f.SetCellValue(matchesSheet, "C1", "Label")
	_ = f.SetCellValue(matchesSheet, "D1", "Amount")
	for i, match := range result.Matches {
		row := i + 2
		_ = f.SetCellValue(matchesSheet, fmt.Sprintf("A%d", row), match.OperationID)
		_ = f.SetCellValue(matchesSheet, fmt.Sprintf("B%d", row), match.TransactionID)
		_ = f.SetCellValue(matchesSheet, fmt.Sprintf("C%d", row), match.Label)
		_ = f.SetCellValue(matchesSheet, fmt.Sprintf("D%d", row), match.Amount.StringFixed(2))
	}

	_ = f.SetCellValue(decisionsSheet, "A1", "Operation")
	_ = f.SetCellValue(decisionsSheet, "B1", "Included")
	_ = f.SetCellValue(decisionsSheet, "C1", "Transaction")
	_ = f.SetCellValue(decisionsSheet, "D1", "Notes")
	for i, decision := range result.Decisions {
		row := i + 2
		_ = f.SetCellValue(decisionsSheet, fmt.Sprintf("A%d", row), decision.OperationID)
		_ = f.SetCellValue(decisionsSheet, fmt.Sprintf("B%d", row), decision.Include)
		_ = f.SetCellValue(decisionsSheet, fmt.Sprintf("C%d", row), decision.TransactionID)
		_ = f.SetCellValue(decisionsSheet, fmt.Sprintf("D%d", row), decision.Notes)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
