package export

import (
	"encoding/csv"
	"io"

	"github.com/mcclellann/fredBooks/pkg/ledger"
)

var loanHeader = []string{"date", "kind", "description", "debit", "credit", "principal_applied", "interest_applied", "balance"}

func (e *Exporter) loanCSV(w io.Writer, s *ledger.LoanStatement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(loanHeader); err != nil {
		return err
	}
	for _, l := range s.Position.Lines {
		if err := cw.Write([]string{
			date(l.Date), string(l.Kind), l.Description,
			plain(l.Debit), plain(l.Credit), plain(l.PrincipalApplied), plain(l.InterestApplied), plain(l.Balance),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var customerHeader = []string{"record", "reference", "date", "description", "debit", "credit", "balance"}

func (e *Exporter) customerCSV(w io.Writer, s *ledger.CustomerStatement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(customerHeader); err != nil {
		return err
	}
	for _, ls := range s.Loans {
		ref := ls.Loan.ID.String()
		for _, l := range ls.Position.Lines {
			if err := cw.Write([]string{
				"loan", ref, date(l.Date), l.Description, plain(l.Debit), plain(l.Credit), plain(l.Balance),
			}); err != nil {
				return err
			}
		}
	}
	for _, sale := range s.Sales {
		if err := cw.Write([]string{
			"sale", sale.ID.String(), date(sale.SaleDate), sale.Description,
			plain(sale.Total), plain(sale.Paid), plain(sale.Outstanding),
		}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"total", "", "", "Total outstanding", "", "", plain(s.TotalOutstanding)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
