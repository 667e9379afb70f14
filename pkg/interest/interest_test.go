package interest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(Round2(got)), "want %s, got %s", want, got)
}

func TestDays(t *testing.T) {
	assert.Equal(t, 30, Days(date(2024, 1, 1), date(2024, 1, 31)))
	assert.Equal(t, 366, Days(date(2024, 1, 1), date(2025, 1, 1)))
	assert.Equal(t, 0, Days(date(2024, 1, 31), date(2024, 1, 1)))
	// time of day is ignored
	assert.Equal(t, 1, Days(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)))
}

func TestMonthCount(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want string
	}{
		{"whole months", date(2024, 1, 15), date(2024, 3, 15), "2"},
		{"day before anniversary", date(2024, 1, 15), date(2024, 2, 14), "1"},
		{"half month", date(2024, 1, 10), date(2024, 1, 25), "0.5"},
		{"end of month clamp", date(2023, 1, 31), date(2023, 3, 1), "1.03"},
		{"reversed", date(2024, 3, 1), date(2024, 1, 1), "0"},
		{"same day", date(2024, 3, 1), date(2024, 3, 1), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, MonthCount(tt.from, tt.to))
		})
	}
}

func TestAccrue(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		rate    string
		kind    models.InterestType
		from    time.Time
		to      time.Time
		want    string
	}{
		{"daily 30 days", "1000", "12", models.InterestDaily, date(2024, 1, 1), date(2024, 1, 31), "9.86"},
		{"monthly two months", "1000", "2", models.InterestMonthly, date(2024, 1, 15), date(2024, 3, 15), "40"},
		{"simple half year", "1200", "10", models.InterestSimple, date(2024, 1, 1), date(2024, 7, 1), "60"},
		{"compound two months", "1000", "10", models.InterestCompound, date(2024, 1, 1), date(2024, 3, 1), "210"},
		{"compound fractional month", "1000", "10", models.InterestCompound, date(2024, 1, 1), date(2024, 3, 16), "270.5"},
		{"none", "1000", "10", models.InterestNone, date(2024, 1, 1), date(2024, 3, 1), "0"},
		{"negative balance", "-10", "10", models.InterestMonthly, date(2024, 1, 1), date(2024, 3, 1), "0"},
		{"zero rate", "1000", "0", models.InterestDaily, date(2024, 1, 1), date(2024, 3, 1), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Accrue(dec(tt.balance), dec(tt.rate), tt.kind, tt.from, tt.to)
			assertDecimal(t, tt.want, got)
		})
	}
}

func newLoan(kind models.InterestType, principal, rate string) *models.Loan {
	return &models.Loan{
		ID:           uuid.New(),
		Principal:    dec(principal),
		InterestRate: dec(rate),
		InterestType: kind,
		LoanDate:     date(2024, 1, 1),
		Status:       models.LoanStatusActive,
	}
}

func payment(loan *models.Loan, kind models.TransactionType, amount string, on time.Time) *models.Transaction {
	return &models.Transaction{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		Amount:      dec(amount),
		Type:        kind,
		PaymentDate: on,
	}
}

func TestCompute_NoInterestMatchesPrincipalMinusPayments(t *testing.T) {
	loan := newLoan(models.InterestNone, "1000", "0")
	txs := []*models.Transaction{
		payment(loan, models.TransactionTypeMixed, "300", date(2024, 2, 1)),
		payment(loan, models.TransactionTypePrincipal, "200", date(2024, 1, 15)),
	}

	pos := Compute(loan, txs, date(2024, 3, 1))

	assertDecimal(t, "500", pos.Outstanding)
	assertDecimal(t, "500", pos.TotalPaid)
	assertDecimal(t, "0", pos.InterestAccrued)
	require.Len(t, pos.Lines, 3)
	assert.Equal(t, LineDisbursement, pos.Lines[0].Kind)
	assert.Equal(t, date(2024, 1, 15), pos.Lines[1].Date, "payments are applied in date order")
	assertDecimal(t, "800", pos.Lines[1].Balance)
}

func TestCompute_MixedPaymentSettlesInterestFirst(t *testing.T) {
	loan := newLoan(models.InterestMonthly, "1000", "2")
	txs := []*models.Transaction{
		payment(loan, models.TransactionTypeMixed, "120", date(2024, 2, 1)),
	}

	pos := Compute(loan, txs, date(2024, 3, 1))

	assertDecimal(t, "20", pos.InterestPaid)
	assertDecimal(t, "100", pos.PrincipalPaid)
	assertDecimal(t, "900", pos.PrincipalOutstanding)
	assertDecimal(t, "38", pos.InterestAccrued)
	assertDecimal(t, "18", pos.InterestDue)
	assertDecimal(t, "918", pos.Outstanding)

	kinds := []LineKind{}
	for _, l := range pos.Lines {
		kinds = append(kinds, l.Kind)
	}
	assert.Equal(t, []LineKind{LineDisbursement, LineInterest, LinePayment, LineInterest}, kinds)
}

func TestCompute_PrincipalPaymentLeavesInterestDue(t *testing.T) {
	loan := newLoan(models.InterestMonthly, "1000", "2")
	txs := []*models.Transaction{
		payment(loan, models.TransactionTypePrincipal, "100", date(2024, 2, 1)),
	}

	pos := Compute(loan, txs, date(2024, 3, 1))

	assertDecimal(t, "900", pos.PrincipalOutstanding)
	assertDecimal(t, "38", pos.InterestDue)
	assertDecimal(t, "938", pos.Outstanding)
}

func TestCompute_InterestPaymentExcessReducesPrincipal(t *testing.T) {
	loan := newLoan(models.InterestMonthly, "1000", "2")
	txs := []*models.Transaction{
		payment(loan, models.TransactionTypeInterest, "50", date(2024, 2, 1)),
	}

	pos := Compute(loan, txs, date(2024, 2, 1))

	assertDecimal(t, "20", pos.InterestPaid)
	assertDecimal(t, "970", pos.PrincipalOutstanding)
	assertDecimal(t, "970", pos.Outstanding)
}

func TestCompute_OverpaymentSettlesLoan(t *testing.T) {
	loan := newLoan(models.InterestNone, "1000", "0")
	txs := []*models.Transaction{
		payment(loan, models.TransactionTypePrincipal, "1200", date(2024, 1, 10)),
	}

	pos := Compute(loan, txs, date(2024, 2, 1))

	assertDecimal(t, "0", pos.Outstanding)
	assertDecimal(t, "200", pos.Overpaid)
	assert.True(t, pos.Settled())
}

func TestCompute_IgnoresFuturePayments(t *testing.T) {
	loan := newLoan(models.InterestNone, "1000", "0")
	txs := []*models.Transaction{
		payment(loan, models.TransactionTypePrincipal, "400", date(2024, 6, 1)),
	}

	pos := Compute(loan, txs, date(2024, 2, 1))

	assertDecimal(t, "1000", pos.Outstanding)
	assert.False(t, pos.Settled())
}

func TestCompute_PaymentDatesDoNotChangePeriodicInterest(t *testing.T) {
	for _, kind := range []models.InterestType{models.InterestMonthly, models.InterestSimple} {
		t.Run(string(kind), func(t *testing.T) {
			rate := "2"
			if kind == models.InterestSimple {
				rate = "24"
			}
			loan := newLoan(kind, "10000", rate)
			loan.LoanDate = date(2023, 1, 1)

			whole := Compute(loan, nil, date(2023, 3, 1))
			split := Compute(loan, []*models.Transaction{
				payment(loan, models.TransactionTypeInterest, "1", date(2023, 1, 31)),
			}, date(2023, 3, 1))

			assertDecimal(t, "400", whole.InterestAccrued)
			assertDecimal(t, "400", split.InterestAccrued)
			assertDecimal(t, "10000", split.PrincipalOutstanding)
			assertDecimal(t, "399", split.InterestDue)
		})
	}
}

func TestCompute_CompoundCapitalisesUnpaidInterest(t *testing.T) {
	loan := newLoan(models.InterestCompound, "1000", "10")

	split := Compute(loan, []*models.Transaction{
		payment(loan, models.TransactionTypePrincipal, "0.0000001", date(2024, 2, 1)),
	}, date(2024, 3, 1))
	whole := Compute(loan, nil, date(2024, 3, 1))

	assertDecimal(t, "210", whole.InterestDue)
	assertDecimal(t, "210", split.InterestDue)
}

func TestPosition_Rounded(t *testing.T) {
	loan := newLoan(models.InterestDaily, "1000", "12")
	pos := Compute(loan, nil, date(2024, 1, 31)).Rounded()

	assert.Equal(t, "9.86", pos.InterestDue.String())
	assert.Equal(t, "1009.86", pos.Outstanding.String())
	assert.Equal(t, "1009.86", pos.Lines[len(pos.Lines)-1].Balance.String())
}
