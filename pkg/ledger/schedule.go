package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

// ScheduledCustomer is a customer expected to pay on a given weekday.
type ScheduledCustomer struct {
	CustomerID  uuid.UUID       `json:"customer_id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone,omitempty"`
	ActiveLoans int             `json:"active_loans"`
	Outstanding decimal.Decimal `json:"outstanding"`
	InterestDue decimal.Decimal `json:"interest_due"`
}

// DaywiseGroup collects the customers sharing one payment day.
type DaywiseGroup struct {
	Day         string              `json:"day"`
	Customers   []ScheduledCustomer `json:"customers"`
	Outstanding decimal.Decimal     `json:"outstanding"`
}

// Unscheduled labels the group of customers with no preferred payment day.
const Unscheduled = "unscheduled"

// Daywise groups the user's customers by preferred payment day, Monday first,
// with the outstanding totals of their open loans. An empty day returns every
// weekday plus the customers without a payment day.
func (l *Ledger) Daywise(ctx context.Context, userID uuid.UUID, day string) ([]DaywiseGroup, error) {
	day, err := ParseWeekday(day)
	if err != nil {
		return nil, err
	}

	customers, err := l.storage.ListCustomers(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	loans, err := l.storage.ListLoans(ctx, userID, models.LoanFilter{})
	if err != nil {
		return nil, err
	}

	today := l.today()
	byCustomer := map[uuid.UUID]*ScheduledCustomer{}
	for _, c := range customers {
		byCustomer[c.ID] = &ScheduledCustomer{
			CustomerID:  c.ID,
			Name:        c.Name,
			Phone:       c.Phone,
			Outstanding: decimal.Zero,
			InterestDue: decimal.Zero,
		}
	}
	for _, loan := range loans {
		sc, ok := byCustomer[loan.CustomerID]
		if !ok || !loan.Active() {
			continue
		}
		txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		pos := interest.Compute(loan, txs, today)
		sc.ActiveLoans++
		sc.Outstanding = sc.Outstanding.Add(pos.Outstanding)
		sc.InterestDue = sc.InterestDue.Add(pos.InterestDue)
	}

	order := append([]string{}, weekdays...)
	if day != "" {
		order = []string{day}
	} else {
		order = append(order, Unscheduled)
	}

	groups := make([]DaywiseGroup, 0, len(order))
	for _, d := range order {
		g := DaywiseGroup{Day: d, Customers: []ScheduledCustomer{}, Outstanding: decimal.Zero}
		for _, c := range customers {
			pd := c.PaymentDay
			if pd == "" {
				pd = Unscheduled
			}
			if pd != d {
				continue
			}
			sc := *byCustomer[c.ID]
			sc.Outstanding = interest.Round2(sc.Outstanding)
			sc.InterestDue = interest.Round2(sc.InterestDue)
			g.Customers = append(g.Customers, sc)
			g.Outstanding = g.Outstanding.Add(sc.Outstanding)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

type PaymentKind string

const (
	PaymentKindLoan PaymentKind = "loan"
	PaymentKindSale PaymentKind = "sale"
)

// ReceivedPayment is one loan transaction or sale payment in a date-wise report.
type ReceivedPayment struct {
	Kind          PaymentKind     `json:"kind"`
	ID            uuid.UUID       `json:"id"`
	ReferenceID   uuid.UUID       `json:"reference_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	PaymentDate   time.Time       `json:"payment_date"`
	createdAtSort time.Time
}

// PaymentDay is the set of payments received on one date.
type PaymentDay struct {
	Date     time.Time         `json:"date"`
	Payments []ReceivedPayment `json:"payments"`
	Total    decimal.Decimal   `json:"total"`
}

type DatewiseReport struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Days      []PaymentDay    `json:"days"`
	LoanTotal decimal.Decimal `json:"loan_total"`
	SaleTotal decimal.Decimal `json:"sale_total"`
	Total     decimal.Decimal `json:"total"`
}

// Datewise lists every loan transaction and sale payment received in
// [from, to], grouped by payment date in ascending order.
func (l *Ledger) Datewise(ctx context.Context, userID uuid.UUID, from, to time.Time) (*DatewiseReport, error) {
	if from.IsZero() && to.IsZero() {
		from, to = MonthRange(l.today())
	}
	from, to = l.dateOr(from), l.dateOr(to)
	if to.Before(from) {
		return nil, invalid("from date %s is after to date %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	txs, err := l.storage.ListTransactionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	salePayments, err := l.storage.ListSaleTransactionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	names, err := l.customerNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &DatewiseReport{From: from, To: to, Days: []PaymentDay{}, LoanTotal: decimal.Zero, SaleTotal: decimal.Zero}
	var payments []ReceivedPayment

	loanCustomers := map[uuid.UUID]uuid.UUID{}
	for _, t := range txs {
		customerID, ok := loanCustomers[t.LoanID]
		if !ok {
			if loan, err := l.storage.GetLoan(ctx, userID, t.LoanID); err == nil {
				customerID = loan.CustomerID
				loanCustomers[t.LoanID] = customerID
			}
		}
		payments = append(payments, ReceivedPayment{
			Kind:          PaymentKindLoan,
			ID:            t.ID,
			ReferenceID:   t.LoanID,
			CustomerName:  names[customerID],
			Amount:        t.Amount,
			Type:          string(t.Type),
			Notes:         t.Notes,
			PaymentDate:   interest.DateOnly(t.PaymentDate),
			createdAtSort: t.CreatedAt,
		})
		report.LoanTotal = report.LoanTotal.Add(t.Amount)
	}

	saleCustomers := map[uuid.UUID]string{}
	for _, t := range salePayments {
		name, ok := saleCustomers[t.SaleID]
		if !ok {
			if sale, err := l.storage.GetSale(ctx, userID, t.SaleID); err == nil && sale.CustomerID != nil {
				name = names[*sale.CustomerID]
			}
			saleCustomers[t.SaleID] = name
		}
		payments = append(payments, ReceivedPayment{
			Kind:          PaymentKindSale,
			ID:            t.ID,
			ReferenceID:   t.SaleID,
			CustomerName:  name,
			Amount:        t.Amount,
			Notes:         t.Notes,
			PaymentDate:   interest.DateOnly(t.PaymentDate),
			createdAtSort: t.CreatedAt,
		})
		report.SaleTotal = report.SaleTotal.Add(t.Amount)
	}

	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.Before(payments[j].PaymentDate)
		}
		return payments[i].createdAtSort.Before(payments[j].createdAtSort)
	})

	for _, p := range payments {
		n := len(report.Days)
		if n == 0 || !report.Days[n-1].Date.Equal(p.PaymentDate) {
			report.Days = append(report.Days, PaymentDay{Date: p.PaymentDate, Total: decimal.Zero})
			n++
		}
		d := &report.Days[n-1]
		d.Payments = append(d.Payments, p)
		d.Total = d.Total.Add(p.Amount)
	}

	report.Total = report.LoanTotal.Add(report.SaleTotal)
	return report, nil
}
