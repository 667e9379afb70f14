package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness or reference constraint.
	ErrConflict = errors.New("conflict")
)

// Storage defines the interface for database operations. Reads of user-owned
// rows take the owning user's ID and never return another user's data.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	SaveSettings(ctx context.Context, settings *models.UserSettings) error

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, userID, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, userID uuid.UUID, search string) ([]*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, userID, id uuid.UUID) error

	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, userID, id uuid.UUID) (*models.Loan, error)
	ListLoans(ctx context.Context, userID uuid.UUID, filter models.LoanFilter) ([]*models.Loan, error)
	GetAllActiveLoans(ctx context.Context) ([]*models.Loan, error)
	UpdateLoan(ctx context.Context, loan *models.Loan) error
	DeleteLoan(ctx context.Context, userID, id uuid.UUID) error

	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	GetTransactionsForLoan(ctx context.Context, loanID uuid.UUID) ([]*models.Transaction, error)
	ListTransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.Transaction, error)
	DeleteTransaction(ctx context.Context, loanID, id uuid.UUID) error

	CreateEntry(ctx context.Context, entry *models.Entry) error
	GetEntry(ctx context.Context, userID, id uuid.UUID) (*models.Entry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, filter models.EntryFilter) ([]*models.Entry, error)
	EntryExists(ctx context.Context, userID uuid.UUID, externalID string) (bool, error)
	UpdateEntry(ctx context.Context, entry *models.Entry) error
	DeleteEntry(ctx context.Context, userID, id uuid.UUID) error

	CreateSale(ctx context.Context, sale *models.Sale) error
	GetSale(ctx context.Context, userID, id uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, userID uuid.UUID, filter models.SaleFilter) ([]*models.Sale, error)
	UpdateSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, userID, id uuid.UUID) error

	CreateSaleTransaction(ctx context.Context, transaction *models.SaleTransaction) error
	GetSaleTransactions(ctx context.Context, saleID uuid.UUID) ([]*models.SaleTransaction, error)
	ListSaleTransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.SaleTransaction, error)

	Close() error
}
