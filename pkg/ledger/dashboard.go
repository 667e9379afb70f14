package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

type LoanTotals struct {
	Active            int             `json:"active"`
	Overdue           int             `json:"overdue"`
	Closed            int             `json:"closed"`
	PrincipalLent     decimal.Decimal `json:"principal_lent"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	InterestAccrued   decimal.Decimal `json:"interest_accrued"`
	InterestCollected decimal.Decimal `json:"interest_collected"`
}

type SaleTotals struct {
	Open        int             `json:"open"`
	Paid        int             `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Dashboard is the overview shown on the landing page.
type Dashboard struct {
	Customers int           `json:"customers"`
	Loans     LoanTotals    `json:"loans"`
	Sales     SaleTotals    `json:"sales"`
	Month     *EntrySummary `json:"month"`
}

// Dashboard totals the user's open loans, the current month's books and the
// sales still awaiting payment.
func (l *Ledger) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	customers, err := l.storage.ListCustomers(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Customers: len(customers)}

	loans, err := l.storage.ListLoans(ctx, userID, models.LoanFilter{})
	if err != nil {
		return nil, err
	}
	today := l.today()
	lt := LoanTotals{
		PrincipalLent:     decimal.Zero,
		Outstanding:       decimal.Zero,
		InterestAccrued:   decimal.Zero,
		InterestCollected: decimal.Zero,
	}
	for _, loan := range loans {
		switch loan.Status {
		case models.LoanStatusClosed:
			lt.Closed++
			continue
		case models.LoanStatusOverdue:
			lt.Overdue++
		default:
			lt.Active++
		}
		txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		pos := interest.Compute(loan, txs, today)
		lt.PrincipalLent = lt.PrincipalLent.Add(loan.Principal)
		lt.Outstanding = lt.Outstanding.Add(pos.Outstanding)
		lt.InterestAccrued = lt.InterestAccrued.Add(pos.InterestAccrued)
		lt.InterestCollected = lt.InterestCollected.Add(pos.InterestPaid)
	}
	lt.PrincipalLent = interest.Round2(lt.PrincipalLent)
	lt.Outstanding = interest.Round2(lt.Outstanding)
	lt.InterestAccrued = interest.Round2(lt.InterestAccrued)
	lt.InterestCollected = interest.Round2(lt.InterestCollected)
	d.Loans = lt

	sales, err := l.storage.ListSales(ctx, userID, models.SaleFilter{})
	if err != nil {
		return nil, err
	}
	st := SaleTotals{Outstanding: decimal.Zero}
	for _, s := range sales {
		if s.Status == models.SaleStatusPaid {
			st.Paid++
			continue
		}
		st.Open++
		paid, err := l.salePaid(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		st.Outstanding = st.Outstanding.Add(s.Total.Sub(paid))
	}
	st.Outstanding = interest.Round2(st.Outstanding)
	d.Sales = st

	from, to := MonthRange(today)
	month, err := l.Summarize(ctx, userID, models.EntryFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	d.Month = month
	return d, nil
}
