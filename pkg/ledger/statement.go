package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

// LoanStatement is a loan's ledger: every disbursement, interest accrual and
// payment with the running balance.
type LoanStatement struct {
	Customer    *models.Customer   `json:"customer"`
	Loan        *models.Loan       `json:"loan"`
	Position    *interest.Position `json:"position"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// CustomerStatement covers all of a customer's loans and sales.
type CustomerStatement struct {
	Customer         *models.Customer `json:"customer"`
	Loans            []*LoanStatement `json:"loans"`
	Sales            []*SaleView      `json:"sales"`
	LoanOutstanding  decimal.Decimal  `json:"loan_outstanding"`
	SaleOutstanding  decimal.Decimal  `json:"sale_outstanding"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// LoanStatement builds the statement of one loan as of asOf (today when zero).
func (l *Ledger) LoanStatement(ctx context.Context, userID, loanID uuid.UUID, asOf time.Time) (*LoanStatement, error) {
	loan, err := l.storage.GetLoan(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}
	customer, err := l.storage.GetCustomer(ctx, userID, loan.CustomerID)
	if err != nil {
		return nil, err
	}
	return l.loanStatement(ctx, customer, loan, l.dateOr(asOf))
}

func (l *Ledger) loanStatement(ctx context.Context, customer *models.Customer, loan *models.Loan, asOf time.Time) (*LoanStatement, error) {
	txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	return &LoanStatement{
		Customer:    customer,
		Loan:        loan,
		Position:    interest.Compute(loan, txs, asOf).Rounded(),
		GeneratedAt: l.timestamp(),
	}, nil
}

// CustomerStatement builds a statement of every loan and sale of a customer.
func (l *Ledger) CustomerStatement(ctx context.Context, userID, customerID uuid.UUID, asOf time.Time) (*CustomerStatement, error) {
	customer, err := l.storage.GetCustomer(ctx, userID, customerID)
	if err != nil {
		return nil, err
	}
	asOf = l.dateOr(asOf)

	loans, err := l.storage.ListLoans(ctx, userID, models.LoanFilter{CustomerID: &customerID})
	if err != nil {
		return nil, err
	}
	stmt := &CustomerStatement{
		Customer:        customer,
		Loans:           make([]*LoanStatement, 0, len(loans)),
		Sales:           []*SaleView{},
		LoanOutstanding: decimal.Zero,
		SaleOutstanding: decimal.Zero,
		GeneratedAt:     l.timestamp(),
	}
	for _, loan := range loans {
		ls, err := l.loanStatement(ctx, customer, loan, asOf)
		if err != nil {
			return nil, err
		}
		stmt.Loans = append(stmt.Loans, ls)
		stmt.LoanOutstanding = stmt.LoanOutstanding.Add(ls.Position.Outstanding)
	}

	sales, err := l.storage.ListSales(ctx, userID, models.SaleFilter{CustomerID: &customerID})
	if err != nil {
		return nil, err
	}
	names := map[uuid.UUID]string{customer.ID: customer.Name}
	for _, s := range sales {
		v, err := l.saleView(ctx, s, names)
		if err != nil {
			return nil, err
		}
		stmt.Sales = append(stmt.Sales, v)
		stmt.SaleOutstanding = stmt.SaleOutstanding.Add(v.Outstanding)
	}

	stmt.TotalOutstanding = stmt.LoanOutstanding.Add(stmt.SaleOutstanding)
	return stmt, nil
}
