package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/ledger"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleLoanStatement() *ledger.LoanStatement {
	customer := &models.Customer{ID: uuid.New(), Name: "Asha Rao", Phone: "555-0101", PaymentDay: "monday"}
	loan := &models.Loan{
		ID:           uuid.New(),
		CustomerID:   customer.ID,
		Principal:    decimal.NewFromInt(1200),
		InterestRate: decimal.NewFromInt(2),
		InterestType: models.InterestMonthly,
		LoanDate:     day(2024, 1, 1),
		Status:       models.LoanStatusActive,
	}
	txs := []*models.Transaction{{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		Amount:      decimal.NewFromInt(224),
		Type:        models.TransactionTypeMixed,
		PaymentDate: day(2024, 2, 1),
	}}
	return &ledger.LoanStatement{
		Customer:    customer,
		Loan:        loan,
		Position:    interest.Compute(loan, txs, day(2024, 3, 1)).Rounded(),
		GeneratedAt: day(2024, 3, 1),
	}
}

func sampleCustomerStatement() *ledger.CustomerStatement {
	ls := sampleLoanStatement()
	saleID := uuid.New()
	sale := &ledger.SaleView{
		Sale: &models.Sale{
			ID:          saleID,
			CustomerID:  &ls.Customer.ID,
			Description: "Teak chairs",
			Quantity:    decimal.NewFromInt(4),
			UnitPrice:   decimal.NewFromInt(25),
			Total:       decimal.NewFromInt(100),
			SaleDate:    day(2024, 2, 10),
			Status:      models.SaleStatusOpen,
		},
		Paid:        decimal.NewFromInt(40),
		Outstanding: decimal.NewFromInt(60),
	}
	return &ledger.CustomerStatement{
		Customer:         ls.Customer,
		Loans:            []*ledger.LoanStatement{ls},
		Sales:            []*ledger.SaleView{sale},
		LoanOutstanding:  ls.Position.Outstanding,
		SaleOutstanding:  sale.Outstanding,
		TotalOutstanding: ls.Position.Outstanding.Add(sale.Outstanding),
		GeneratedAt:      day(2024, 3, 1),
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "CSV": FormatCSV, " xlsx ": FormatXLSX, "pdf": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "loan_12345678_20240301.csv", FormatCSV.Filename("loan", "1234567890", day(2024, 3, 1)))
}

func TestAmount(t *testing.T) {
	e := New("en")
	assert.Equal(t, "1,234.50", e.Amount(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0.01", e.Amount(decimal.RequireFromString("0.005")))
	assert.Equal(t, "-1,234.50", e.Amount(decimal.RequireFromString("-1234.5")))
	assert.Equal(t, "0.00", e.Amount(decimal.RequireFromString("-0.004")))
	assert.Equal(t, "9,007,199,254,740,993.01", e.Amount(decimal.RequireFromString("9007199254740993.01")),
		"digits beyond float64 precision are kept")
	assert.Equal(t, "123,456,789,012,345.67", e.Amount(decimal.RequireFromString("123456789012345.67")))

	assert.NotNil(t, New("not a locale").printer)
}

func TestLoanStatementCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("en").WriteLoanStatement(&buf, FormatCSV, sampleLoanStatement()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	// header, disbursement, interest, payment, interest
	require.Len(t, rows, 5)
	assert.Equal(t, loanHeader, rows[0])
	assert.Equal(t, []string{"2024-01-01", "disbursement", "Loan disbursed", "1200.00", "0.00", "0.00", "0.00", "1200.00"}, rows[1])
	assert.Equal(t, "24.00", rows[2][3])
	assert.Equal(t, "200.00", rows[3][5])
	assert.Equal(t, "1020.00", rows[4][7])
}

func TestCustomerStatementCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("en").WriteCustomerStatement(&buf, FormatCSV, sampleCustomerStatement()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "sale", rows[5][0])
	assert.Equal(t, "60.00", rows[5][6])
	assert.Equal(t, []string{"total", "", "", "Total outstanding", "", "", "1080.00"}, rows[6])
}

func TestLoanStatementXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("en").WriteLoanStatement(&buf, FormatXLSX, sampleLoanStatement()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{loanSheet}, f.GetSheetList())
	name, err := f.GetCellValue(loanSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", name)

	rows, err := f.GetRows(loanSheet)
	require.NoError(t, err)
	assert.Equal(t, "Date", rows[10][0])
	assert.Equal(t, "Loan disbursed", rows[11][2])
}

func TestCustomerStatementXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("en").WriteCustomerStatement(&buf, FormatXLSX, sampleCustomerStatement()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, "Loan 1", salesSheet}, f.GetSheetList())
	desc, err := f.GetCellValue(salesSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Teak chairs", desc)
}

func TestStatementPDF(t *testing.T) {
	var loan, customer bytes.Buffer
	e := New("en-IN")
	require.NoError(t, e.WriteLoanStatement(&loan, FormatPDF, sampleLoanStatement()))
	require.NoError(t, e.WriteCustomerStatement(&customer, FormatPDF, sampleCustomerStatement()))

	assert.True(t, bytes.HasPrefix(loan.Bytes(), []byte("%PDF-")))
	assert.True(t, bytes.HasPrefix(customer.Bytes(), []byte("%PDF-")))
	assert.Greater(t, customer.Len(), loan.Len())
}

func TestStatementJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("en").WriteLoanStatement(&buf, FormatJSON, sampleLoanStatement()))

	var decoded struct {
		Position struct {
			Outstanding string `json:"outstanding"`
			Lines       []any  `json:"lines"`
		} `json:"position"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "1020", decoded.Position.Outstanding)
	assert.Len(t, decoded.Position.Lines, 4)
}
