package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/ledger"
)

type pdfDoc struct {
	*fpdf.Fpdf
	tr func(string) string
	e  *Exporter
}

func (e *Exporter) newPDF(title string) *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("fredbooks", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	d := &pdfDoc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), e: e}
	d.SetFont("Helvetica", "B", 16)
	d.Cell(0, 10, d.tr(title))
	d.Ln(12)
	return d
}

func (d *pdfDoc) field(label, value string) {
	d.SetFont("Helvetica", "B", 10)
	d.CellFormat(45, 6, d.tr(label), "", 0, "L", false, 0, "")
	d.SetFont("Helvetica", "", 10)
	d.CellFormat(0, 6, d.tr(value), "", 1, "L", false, 0, "")
}

var lineWidths = []float64{22, 62, 26, 26, 26, 28}

func (d *pdfDoc) lines(ls *ledger.LoanStatement) {
	d.Ln(4)
	d.SetFont("Helvetica", "B", 9)
	d.SetFillColor(230, 230, 230)
	for i, h := range []string{"Date", "Description", "Debit", "Credit", "Interest", "Balance"} {
		align := "R"
		if i < 2 {
			align = "L"
		}
		d.CellFormat(lineWidths[i], 7, h, "1", 0, align, true, 0, "")
	}
	d.Ln(-1)

	d.SetFont("Helvetica", "", 9)
	for _, l := range ls.Position.Lines {
		debit, credit, applied := "", "", ""
		if l.Debit.IsPositive() {
			debit = d.e.Amount(l.Debit)
		}
		if l.Credit.IsPositive() {
			credit = d.e.Amount(l.Credit)
		}
		if l.InterestApplied.IsPositive() {
			applied = d.e.Amount(l.InterestApplied)
		}
		desc := l.Description
		if len(desc) > 38 {
			desc = desc[:35] + "..."
		}
		d.CellFormat(lineWidths[0], 6, date(l.Date), "1", 0, "L", false, 0, "")
		d.CellFormat(lineWidths[1], 6, d.tr(desc), "1", 0, "L", false, 0, "")
		d.CellFormat(lineWidths[2], 6, debit, "1", 0, "R", false, 0, "")
		d.CellFormat(lineWidths[3], 6, credit, "1", 0, "R", false, 0, "")
		d.CellFormat(lineWidths[4], 6, applied, "1", 0, "R", false, 0, "")
		d.CellFormat(lineWidths[5], 6, d.e.Amount(l.Balance), "1", 1, "R", false, 0, "")
	}
}

func (d *pdfDoc) loanSection(ls *ledger.LoanStatement) {
	p := ls.Position
	d.field("Customer", ls.Customer.Name)
	d.field("Loan date", date(ls.Loan.LoanDate))
	if due := optionalDate(ls.Loan.DueDate); due != "" {
		d.field("Due date", due)
	}
	d.field("Interest", fmt.Sprintf("%s%% %s", ls.Loan.InterestRate.String(), ls.Loan.InterestType))
	d.field("Status", string(ls.Loan.Status))
	d.field("As of", date(p.AsOf))
	d.field("Principal", d.e.Amount(p.Principal))
	d.field("Principal outstanding", d.e.Amount(p.PrincipalOutstanding))
	d.field("Interest due", d.e.Amount(p.InterestDue))
	d.field("Outstanding", d.e.Amount(interest.Round2(p.Outstanding)))
	d.lines(ls)
}

func (e *Exporter) loanPDF(w io.Writer, s *ledger.LoanStatement) error {
	d := e.newPDF("Loan statement")
	d.loanSection(s)
	return d.Output(w)
}

func (e *Exporter) customerPDF(w io.Writer, s *ledger.CustomerStatement) error {
	d := e.newPDF("Customer statement")
	d.field("Customer", s.Customer.Name)
	if s.Customer.Phone != "" {
		d.field("Phone", s.Customer.Phone)
	}
	d.field("Loans outstanding", e.Amount(s.LoanOutstanding))
	d.field("Sales outstanding", e.Amount(s.SaleOutstanding))
	d.field("Total outstanding", e.Amount(s.TotalOutstanding))

	for i, ls := range s.Loans {
		d.Ln(6)
		d.SetFont("Helvetica", "B", 12)
		d.Cell(0, 8, fmt.Sprintf("Loan %d", i+1))
		d.Ln(9)
		d.loanSection(ls)
	}

	if len(s.Sales) > 0 {
		d.Ln(6)
		d.SetFont("Helvetica", "B", 12)
		d.Cell(0, 8, "Sales")
		d.Ln(9)
		widths := []float64{22, 70, 32, 32, 34}
		d.SetFont("Helvetica", "B", 9)
		for i, h := range []string{"Date", "Description", "Total", "Paid", "Outstanding"} {
			align := "R"
			if i < 2 {
				align = "L"
			}
			d.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
		}
		d.Ln(-1)
		d.SetFont("Helvetica", "", 9)
		for _, sale := range s.Sales {
			d.CellFormat(widths[0], 6, date(sale.SaleDate), "1", 0, "L", false, 0, "")
			d.CellFormat(widths[1], 6, d.tr(sale.Description), "1", 0, "L", false, 0, "")
			d.CellFormat(widths[2], 6, e.Amount(sale.Total), "1", 0, "R", false, 0, "")
			d.CellFormat(widths[3], 6, e.Amount(sale.Paid), "1", 0, "R", false, 0, "")
			d.CellFormat(widths[4], 6, e.Amount(sale.Outstanding), "1", 1, "R", false, 0, "")
		}
	}
	return d.Output(w)
}
