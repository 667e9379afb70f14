package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedUser(t *testing.T, s *SQLiteStore, email string) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: email, PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func seedCustomer(t *testing.T, s *SQLiteStore, userID uuid.UUID, name, payDay string) *models.Customer {
	t.Helper()
	now := time.Now().UTC()
	c := &models.Customer{ID: uuid.New(), UserID: userID, Name: name, PaymentDay: payDay, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateCustomer(context.Background(), c))
	return c
}

func seedLoan(t *testing.T, s *SQLiteStore, userID, customerID uuid.UUID) *models.Loan {
	t.Helper()
	now := time.Now().UTC()
	loan := &models.Loan{
		ID:                   uuid.New(),
		UserID:               userID,
		CustomerID:           customerID,
		Principal:            decimal.NewFromFloat(2000.0),
		BaseInterestRate:     decimal.NewFromFloat(5),
		InterestRateVariance: decimal.Zero,
		InterestRate:         decimal.NewFromFloat(5),
		InterestType:         models.InterestDaily,
		LoanDate:             day(2024, 1, 1),
		Status:               models.LoanStatusActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, s.CreateLoan(context.Background(), loan))
	return loan
}

func TestMigrate_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))
	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestSQLiteStore_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "  Fred@Example.com ")
	assert.Equal(t, "fred@example.com", user.Email)

	got, err := s.GetUserByEmail(ctx, "FRED@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	dup := &models.User{ID: uuid.New(), Email: "fred@example.com", PasswordHash: "y", CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrConflict)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Settings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "a@example.com")

	_, err := s.GetSettings(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	st := models.DefaultSettings(user.ID)
	st.ShowSales = false
	require.NoError(t, s.SaveSettings(ctx, st))

	st.CanDelete = false
	st.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.SaveSettings(ctx, st))

	got, err := s.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.ShowSales)
	assert.False(t, got.CanDelete)
	assert.True(t, got.ShowLoans)
}

func TestSQLiteStore_CreateAndGetLoan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "a@example.com")
	customer := seedCustomer(t, s, user.ID, "cust_test", "monday")

	loan := seedLoan(t, s, user.ID, customer.ID)
	due := day(2024, 6, 30)
	loan.DueDate = &due
	require.NoError(t, s.UpdateLoan(ctx, loan))

	fetched, err := s.GetLoan(ctx, user.ID, loan.ID)
	require.NoError(t, err)

	assert.Equal(t, customer.ID, fetched.CustomerID)
	assert.True(t, fetched.Principal.Equal(loan.Principal))
	assert.Equal(t, models.InterestDaily, fetched.InterestType)
	require.NotNil(t, fetched.DueDate)
	assert.True(t, fetched.DueDate.Equal(due))
	assert.True(t, fetched.LoanDate.Equal(day(2024, 1, 1)))
	assert.Nil(t, fetched.LastReviewedAt)

	other := seedUser(t, s, "b@example.com")
	_, err = s.GetLoan(ctx, other.ID, loan.ID)
	assert.ErrorIs(t, err, ErrNotFound, "loans are scoped to their owner")
}

func TestSQLiteStore_ListLoans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "a@example.com")
	alice := seedCustomer(t, s, user.ID, "Alice", "")
	bob := seedCustomer(t, s, user.ID, "Bob", "")

	seedLoan(t, s, user.ID, alice.ID)
	closed := seedLoan(t, s, user.ID, bob.ID)
	closed.Status = models.LoanStatusClosed
	require.NoError(t, s.UpdateLoan(ctx, closed))

	all, err := s.ListLoans(ctx, user.ID, models.LoanFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCustomer, err := s.ListLoans(ctx, user.ID, models.LoanFilter{CustomerID: &bob.ID})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, closed.ID, byCustomer[0].ID)

	active, err := s.GetAllActiveLoans(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSQLiteStore_Transactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "a@example.com")
	customer := seedCustomer(t, s, user.ID, "test", "")
	loan := seedLoan(t, s, user.ID, customer.ID)

	amount := decimal.NewFromFloat(50.0)
	for _, d := range []time.Time{day(2024, 2, 1), day(2024, 1, 15), day(2024, 3, 1)} {
		require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{
			ID:          uuid.New(),
			LoanID:      loan.ID,
			Amount:      amount,
			Type:        models.TransactionTypeMixed,
			PaymentDate: d,
			CreatedAt:   time.Now().UTC(),
		}))
	}

	txs, err := s.GetTransactionsForLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[0].PaymentDate.Equal(day(2024, 1, 15)))
	assert.True(t, txs[0].Amount.Equal(amount))

	between, err := s.ListTransactionsBetween(ctx, user.ID, day(2024, 1, 15), day(2024, 2, 1))
	require.NoError(t, err)
	assert.Len(t, between, 2)

	require.NoError(t, s.DeleteTransaction(ctx, loan.ID, txs[0].ID))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, loan.ID, txs[0].ID), ErrNotFound)

	// Deleting a loan removes its transactions too.
	require.NoError(t, s.DeleteLoan(ctx, user.ID, loan.ID))
	txs, err = s.GetTransactionsForLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSQLiteStore_Customers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "a@example.com")

	seedCustomer(t, s, user.ID, "zed", "friday")
	alice := seedCustomer(t, s, user.ID, "Alice", "monday")
	alice.Phone = "555-0101"
	alice.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.UpdateCustomer(ctx, alice))

	list, err := s.ListCustomers(ctx, user.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Name, "customers are ordered by name")

	found, err := s.ListCustomers(ctx, user.ID, "0101")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, alice.ID, found[0].ID)

	seedLoan(t, s, user.ID, alice.ID)
	assert.ErrorIs(t, s.DeleteCustomer(ctx, user.ID, alice.ID), ErrConflict)
	assert.ErrorIs(t, s.DeleteCustomer(ctx, user.ID, uuid.New()), ErrNotFound)
}

func TestSQLiteStore_DeleteCustomerOfAnotherUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@example.com")
	other := seedUser(t, s, "other@example.com")
	c := seedCustomer(t, s, owner.ID, "Alice", "")
	seedLoan(t, s, owner.ID, c.ID)

	assert.ErrorIs(t, s.DeleteCustomer(ctx, other.ID, c.ID), ErrNotFound)
	_, err := s.GetCustomer(ctx, owner.ID, c.ID)
	assert.NoError(t, err)
}

func TestSQLiteStore_Entries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "a@example.com")

	mk := func(kind models.EntryType, amount string, on time.Time, category, externalID string) *models.Entry {
		now := time.Now().UTC()
		e := &models.Entry{
			ID:            uuid.New(),
			UserID:        user.ID,
			Type:          kind,
			Amount:        decimal.RequireFromString(amount),
			Description:   "test",
			Category:      category,
			PaymentMethod: models.PaymentMethodCash,
			Date:          on,
			ExternalID:    externalID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		require.NoError(t, s.CreateEntry(ctx, e))
		return e
	}

	mk(models.EntryTypeExpense, "12.50", day(2024, 1, 5), "Food", "")
	mk(models.EntryTypeExpense, "40", day(2024, 2, 5), "Fuel", "")
	mk(models.EntryTypeEarning, "1000", day(2024, 1, 31), "Salary", "FIT-1")

	from, to := day(2024, 1, 1), day(2024, 1, 31)
	january, err := s.ListEntries(ctx, user.ID, models.EntryFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, january, 2)

	food, err := s.ListEntries(ctx, user.ID, models.EntryFilter{Type: models.EntryTypeExpense, Category: "food"})
	require.NoError(t, err)
	require.Len(t, food, 1)
	assert.Equal(t, "12.5", food[0].Amount.String())

	exists, err := s.EntryExists(ctx, user.ID, "FIT-1")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &models.Entry{ID: uuid.New(), UserID: user.ID, Type: models.EntryTypeEarning, Amount: decimal.NewFromInt(1),
		PaymentMethod: models.PaymentMethodBank, Date: day(2024, 1, 1), ExternalID: "FIT-1"}
	assert.ErrorIs(t, s.CreateEntry(ctx, dup), ErrConflict)
}

func TestSQLiteStore_Sales(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "a@example.com")
	customer := seedCustomer(t, s, user.ID, "Alice", "")

	now := time.Now().UTC()
	sale := &models.Sale{
		ID:          uuid.New(),
		UserID:      user.ID,
		CustomerID:  &customer.ID,
		Description: "Rice bags",
		Quantity:    decimal.NewFromInt(4),
		UnitPrice:   decimal.NewFromInt(25),
		Total:       decimal.NewFromInt(100),
		SaleDate:    day(2024, 3, 1),
		Status:      models.SaleStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateSale(ctx, sale))
	require.NoError(t, s.CreateSaleTransaction(ctx, &models.SaleTransaction{
		ID: uuid.New(), SaleID: sale.ID, Amount: decimal.NewFromInt(40), PaymentDate: day(2024, 3, 2), CreatedAt: now,
	}))

	got, err := s.GetSale(ctx, user.ID, sale.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CustomerID)
	assert.Equal(t, customer.ID, *got.CustomerID)

	payments, err := s.ListSaleTransactionsBetween(ctx, user.ID, day(2024, 3, 1), day(2024, 3, 31))
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	// Deleting the customer keeps the sale but drops the link.
	require.NoError(t, s.DeleteCustomer(ctx, user.ID, customer.ID))
	got, err = s.GetSale(ctx, user.ID, sale.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CustomerID)

	require.NoError(t, s.DeleteSale(ctx, user.ID, sale.ID))
	payments, err = s.GetSaleTransactions(ctx, sale.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
