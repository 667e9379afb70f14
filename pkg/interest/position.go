package interest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

type LineKind string

const (
	LineDisbursement LineKind = "disbursement"
	LineInterest     LineKind = "interest"
	LinePayment      LineKind = "payment"
)

// Line is one row of a loan statement. Debits raise the balance, credits lower it.
type Line struct {
	Date             time.Time       `json:"date"`
	Kind             LineKind        `json:"kind"`
	Description      string          `json:"description"`
	TransactionID    *uuid.UUID      `json:"transaction_id,omitempty"`
	Debit            decimal.Decimal `json:"debit"`
	Credit           decimal.Decimal `json:"credit"`
	PrincipalApplied decimal.Decimal `json:"principal_applied"`
	InterestApplied  decimal.Decimal `json:"interest_applied"`
	Balance          decimal.Decimal `json:"balance"`
}

// Position is the derived state of a loan at a point in time.
type Position struct {
	LoanID               uuid.UUID       `json:"loan_id"`
	AsOf                 time.Time       `json:"as_of"`
	Principal            decimal.Decimal `json:"principal"`
	PrincipalPaid        decimal.Decimal `json:"principal_paid"`
	PrincipalOutstanding decimal.Decimal `json:"principal_outstanding"`
	InterestAccrued      decimal.Decimal `json:"interest_accrued"`
	InterestPaid         decimal.Decimal `json:"interest_paid"`
	InterestDue          decimal.Decimal `json:"interest_due"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	Outstanding          decimal.Decimal `json:"outstanding"`
	Overpaid             decimal.Decimal `json:"overpaid"`
	DaysElapsed          int             `json:"days_elapsed"`
	Lines                []Line          `json:"lines,omitempty"`
}

// Settled reports whether nothing remains owed on the loan.
func (p *Position) Settled() bool {
	return !Round2(p.Outstanding).IsPositive()
}

// Rounded returns a copy with every amount rounded for presentation.
func (p *Position) Rounded() *Position {
	out := *p
	out.Principal = Round2(p.Principal)
	out.PrincipalPaid = Round2(p.PrincipalPaid)
	out.PrincipalOutstanding = Round2(p.PrincipalOutstanding)
	out.InterestAccrued = Round2(p.InterestAccrued)
	out.InterestPaid = Round2(p.InterestPaid)
	out.InterestDue = Round2(p.InterestDue)
	out.TotalPaid = Round2(p.TotalPaid)
	out.Outstanding = Round2(p.Outstanding)
	out.Overpaid = Round2(p.Overpaid)
	out.Lines = make([]Line, len(p.Lines))
	for i, l := range p.Lines {
		l.Debit = Round2(l.Debit)
		l.Credit = Round2(l.Credit)
		l.PrincipalApplied = Round2(l.PrincipalApplied)
		l.InterestApplied = Round2(l.InterestApplied)
		l.Balance = Round2(l.Balance)
		out.Lines[i] = l
	}
	return &out
}

// Compute walks the loan's payments in date order and returns its position as of
// the given date. Interest accrues on the principal outstanding between payments;
// compound loans also accrue on unpaid interest. Interest and mixed payments
// settle interest due first and the remainder goes to principal. Payments dated
// after asOf are ignored.
func Compute(loan *models.Loan, txs []*models.Transaction, asOf time.Time) *Position {
	sorted := make([]*models.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PaymentDate.Before(sorted[j].PaymentDate)
	})

	asOf = DateOnly(asOf)
	p := &Position{
		LoanID:      loan.ID,
		AsOf:        asOf,
		Principal:   loan.Principal,
		DaysElapsed: Days(loan.LoanDate, asOf),
	}

	principal := loan.Principal
	due := decimal.Zero
	start := DateOnly(loan.LoanDate)
	cursor := start

	p.Lines = append(p.Lines, Line{
		Date:        start,
		Kind:        LineDisbursement,
		Description: "Loan disbursed",
		Debit:       loan.Principal,
		Balance:     loan.Principal,
	})

	accrueTo := func(t time.Time) {
		t = DateOnly(t)
		if !t.After(cursor) {
			return
		}
		base := principal
		if loan.InterestType == models.InterestCompound {
			base = principal.Add(due)
		}
		var amount decimal.Decimal
		switch loan.InterestType {
		case models.InterestMonthly, models.InterestSimple:
			// Months are counted from the loan date so that splitting a span at
			// a payment leaves the total unchanged.
			amount = Accrue(base, loan.InterestRate, loan.InterestType, start, t).
				Sub(Accrue(base, loan.InterestRate, loan.InterestType, start, cursor))
		default:
			amount = Accrue(base, loan.InterestRate, loan.InterestType, cursor, t)
		}
		from := cursor
		cursor = t
		if !amount.IsPositive() {
			return
		}
		due = due.Add(amount)
		p.InterestAccrued = p.InterestAccrued.Add(amount)
		p.Lines = append(p.Lines, Line{
			Date:        t,
			Kind:        LineInterest,
			Description: fmt.Sprintf("Interest %s to %s", from.Format(time.DateOnly), t.Format(time.DateOnly)),
			Debit:       amount,
			Balance:     principal.Add(due),
		})
	}

	for _, tx := range sorted {
		if DateOnly(tx.PaymentDate).After(asOf) {
			break
		}
		accrueTo(tx.PaymentDate)

		remaining := tx.Amount
		toInterest := decimal.Zero
		if tx.Type == models.TransactionTypeInterest || tx.Type == models.TransactionTypeMixed {
			toInterest = decimal.Min(remaining, due)
			remaining = remaining.Sub(toInterest)
		}
		toPrincipal := remaining
		if toPrincipal.GreaterThan(principal) {
			p.Overpaid = p.Overpaid.Add(toPrincipal.Sub(principal))
			toPrincipal = principal
		}

		due = due.Sub(toInterest)
		principal = principal.Sub(toPrincipal)
		p.InterestPaid = p.InterestPaid.Add(toInterest)
		p.PrincipalPaid = p.PrincipalPaid.Add(toPrincipal)
		p.TotalPaid = p.TotalPaid.Add(tx.Amount)

		id := tx.ID
		desc := fmt.Sprintf("Payment (%s)", tx.Type)
		if tx.Notes != "" {
			desc = fmt.Sprintf("%s: %s", desc, tx.Notes)
		}
		p.Lines = append(p.Lines, Line{
			Date:             DateOnly(tx.PaymentDate),
			Kind:             LinePayment,
			Description:      desc,
			TransactionID:    &id,
			Credit:           tx.Amount,
			PrincipalApplied: toPrincipal,
			InterestApplied:  toInterest,
			Balance:          principal.Add(due),
		})
	}
	accrueTo(asOf)

	p.PrincipalOutstanding = principal
	p.InterestDue = due
	p.Outstanding = principal.Add(due)
	return p
}
