package export

import (
	"fmt"
	"io"

	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/ledger"
	"github.com/xuri/excelize/v2"
)

const (
	loanSheet    = "Statement"
	summarySheet = "Summary"
	salesSheet   = "Sales"
	// "#,##0.00"
	moneyNumFmt = 4
)

type workbook struct {
	f     *excelize.File
	money int
	bold  int
}

func newWorkbook(first string) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &workbook{f: f, money: money, bold: bold}, nil
}

func (wb *workbook) row(sheet string, n int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return wb.f.SetSheetRow(sheet, cell, &values)
}

func (wb *workbook) header(sheet string, n int, values ...any) error {
	if err := wb.row(sheet, n, values...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), n)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, fmt.Sprintf("A%d", n), last, wb.bold)
}

// moneyColumns applies the money format to columns [from, to] of rows [first, last].
func (wb *workbook) moneyColumns(sheet string, from, to string, first, last int) error {
	if last < first {
		return nil
	}
	return wb.f.SetCellStyle(sheet, fmt.Sprintf("%s%d", from, first), fmt.Sprintf("%s%d", to, last), wb.money)
}

// loanSheetRows writes one loan's statement lines starting at row start and
// returns the next free row.
func (wb *workbook) loanSheetRows(sheet string, start int, ls *ledger.LoanStatement) (int, error) {
	if err := wb.header(sheet, start, "Date", "Kind", "Description", "Debit", "Credit", "Principal", "Interest", "Balance"); err != nil {
		return 0, err
	}
	n := start + 1
	for _, l := range ls.Position.Lines {
		if err := wb.row(sheet, n, date(l.Date), string(l.Kind), l.Description,
			l.Debit.InexactFloat64(), l.Credit.InexactFloat64(),
			l.PrincipalApplied.InexactFloat64(), l.InterestApplied.InexactFloat64(), l.Balance.InexactFloat64()); err != nil {
			return 0, err
		}
		n++
	}
	if err := wb.moneyColumns(sheet, "D", "H", start+1, n-1); err != nil {
		return 0, err
	}
	wb.f.SetColWidth(sheet, "A", "B", 14)
	wb.f.SetColWidth(sheet, "C", "C", 40)
	wb.f.SetColWidth(sheet, "D", "H", 14)
	return n, nil
}

func (wb *workbook) loanSummary(sheet string, ls *ledger.LoanStatement) (int, error) {
	p := ls.Position
	rows := [][]any{
		{"Customer", ls.Customer.Name},
		{"Loan", ls.Loan.ID.String()},
		{"Loan date", date(ls.Loan.LoanDate)},
		{"Due date", optionalDate(ls.Loan.DueDate)},
		{"Interest", fmt.Sprintf("%s%% %s", ls.Loan.InterestRate.String(), ls.Loan.InterestType)},
		{"As of", date(p.AsOf)},
		{"Principal outstanding", interest.Round2(p.PrincipalOutstanding).InexactFloat64()},
		{"Interest due", interest.Round2(p.InterestDue).InexactFloat64()},
		{"Outstanding", interest.Round2(p.Outstanding).InexactFloat64()},
	}
	for i, r := range rows {
		if err := wb.row(sheet, i+1, r...); err != nil {
			return 0, err
		}
	}
	if err := wb.moneyColumns(sheet, "B", "B", 7, len(rows)); err != nil {
		return 0, err
	}
	return len(rows) + 2, nil
}

func (e *Exporter) loanXLSX(w io.Writer, s *ledger.LoanStatement) error {
	wb, err := newWorkbook(loanSheet)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	defer wb.f.Close()

	next, err := wb.loanSummary(loanSheet, s)
	if err != nil {
		return err
	}
	if _, err := wb.loanSheetRows(loanSheet, next, s); err != nil {
		return err
	}
	return wb.f.Write(w)
}

func (e *Exporter) customerXLSX(w io.Writer, s *ledger.CustomerStatement) error {
	wb, err := newWorkbook(summarySheet)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	defer wb.f.Close()

	rows := [][]any{
		{"Customer", s.Customer.Name},
		{"Phone", s.Customer.Phone},
		{"Payment day", s.Customer.PaymentDay},
		{"Loans outstanding", s.LoanOutstanding.InexactFloat64()},
		{"Sales outstanding", s.SaleOutstanding.InexactFloat64()},
		{"Total outstanding", s.TotalOutstanding.InexactFloat64()},
	}
	for i, r := range rows {
		if err := wb.row(summarySheet, i+1, r...); err != nil {
			return err
		}
	}
	if err := wb.moneyColumns(summarySheet, "B", "B", 4, 6); err != nil {
		return err
	}
	wb.f.SetColWidth(summarySheet, "A", "A", 20)
	wb.f.SetColWidth(summarySheet, "B", "B", 24)

	for i, ls := range s.Loans {
		sheet := fmt.Sprintf("Loan %d", i+1)
		if _, err := wb.f.NewSheet(sheet); err != nil {
			return err
		}
		next, err := wb.loanSummary(sheet, ls)
		if err != nil {
			return err
		}
		if _, err := wb.loanSheetRows(sheet, next, ls); err != nil {
			return err
		}
	}

	if len(s.Sales) > 0 {
		if _, err := wb.f.NewSheet(salesSheet); err != nil {
			return err
		}
		if err := wb.header(salesSheet, 1, "Date", "Description", "Quantity", "Unit price", "Total", "Paid", "Outstanding", "Status"); err != nil {
			return err
		}
		for i, sale := range s.Sales {
			if err := wb.row(salesSheet, i+2, date(sale.SaleDate), sale.Description, sale.Quantity.InexactFloat64(),
				sale.UnitPrice.InexactFloat64(), sale.Total.InexactFloat64(), sale.Paid.InexactFloat64(),
				sale.Outstanding.InexactFloat64(), string(sale.Status)); err != nil {
				return err
			}
		}
		if err := wb.moneyColumns(salesSheet, "D", "G", 2, len(s.Sales)+1); err != nil {
			return err
		}
		wb.f.SetColWidth(salesSheet, "B", "B", 32)
	}
	return wb.f.Write(w)
}
