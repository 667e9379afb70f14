package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

// LoanInput carries the editable fields of a loan.
type LoanInput struct {
	CustomerID           uuid.UUID           `json:"customer_id"`
	Principal            decimal.Decimal     `json:"principal"`
	BaseInterestRate     decimal.Decimal     `json:"base_interest_rate"`
	InterestRateVariance decimal.Decimal     `json:"interest_rate_variance"`
	InterestType         models.InterestType `json:"interest_type"`
	LoanDate             time.Time           `json:"loan_date"`
	DueDate              *time.Time          `json:"due_date"`
	Notes                string              `json:"notes"`
}

func (l *Ledger) normalizeLoan(in *LoanInput) error {
	if !in.Principal.IsPositive() {
		return invalid("principal must be positive")
	}
	rate := in.BaseInterestRate.Add(in.InterestRateVariance)
	if rate.IsNegative() {
		return invalid("effective interest rate cannot be negative")
	}
	if in.InterestType == "" {
		in.InterestType = models.InterestNone
		if rate.IsPositive() {
			in.InterestType = models.InterestDaily
		}
	}
	if !in.InterestType.Valid() {
		return invalid("unknown interest type %q", in.InterestType)
	}
	in.LoanDate = l.dateOr(in.LoanDate)
	in.DueDate = optionalDate(in.DueDate)
	if in.DueDate != nil && in.DueDate.Before(in.LoanDate) {
		return invalid("due date is before the loan date")
	}
	return nil
}

// LoanView is a loan together with its customer name and current position.
type LoanView struct {
	*models.Loan
	CustomerName string             `json:"customer_name"`
	Position     *interest.Position `json:"position"`
}

// CreateLoan records a new loan for one of the user's customers.
func (l *Ledger) CreateLoan(ctx context.Context, userID uuid.UUID, in LoanInput) (*models.Loan, error) {
	if err := l.normalizeLoan(&in); err != nil {
		return nil, err
	}
	if _, err := l.storage.GetCustomer(ctx, userID, in.CustomerID); err != nil {
		return nil, err
	}

	now := l.timestamp()
	loan := &models.Loan{
		ID:                   uuid.New(),
		UserID:               userID,
		CustomerID:           in.CustomerID,
		Principal:            in.Principal,
		BaseInterestRate:     in.BaseInterestRate,
		InterestRateVariance: in.InterestRateVariance,
		InterestRate:         in.BaseInterestRate.Add(in.InterestRateVariance), // Effective rate
		InterestType:         in.InterestType,
		LoanDate:             in.LoanDate,
		DueDate:              in.DueDate,
		Status:               models.LoanStatusActive,
		Notes:                in.Notes,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if loan.DueDate != nil && l.today().After(*loan.DueDate) {
		loan.Status = models.LoanStatusOverdue
	}

	if err := l.storage.CreateLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}
	slog.Debug("Loan created", "loan_id", loan.ID, "customer_id", loan.CustomerID, "principal", loan.Principal.StringFixed(2))
	return loan, nil
}

// GetLoan retrieves a loan by its ID along with its position as of today.
func (l *Ledger) GetLoan(ctx context.Context, userID, id uuid.UUID) (*LoanView, error) {
	loan, err := l.storage.GetLoan(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return l.view(ctx, loan, nil)
}

func (l *Ledger) view(ctx context.Context, loan *models.Loan, names map[uuid.UUID]string) (*LoanView, error) {
	txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	pos := interest.Compute(loan, txs, l.today()).Rounded()
	pos.Lines = nil

	v := &LoanView{Loan: loan, Position: pos}
	if name, ok := names[loan.CustomerID]; ok {
		v.CustomerName = name
	} else if c, err := l.storage.GetCustomer(ctx, loan.UserID, loan.CustomerID); err == nil {
		v.CustomerName = c.Name
	}
	return v, nil
}

// ListLoans retrieves the user's loans with their positions.
func (l *Ledger) ListLoans(ctx context.Context, userID uuid.UUID, filter models.LoanFilter) ([]*LoanView, error) {
	loans, err := l.storage.ListLoans(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	names, err := l.customerNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*LoanView, 0, len(loans))
	for _, loan := range loans {
		v, err := l.view(ctx, loan, names)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (l *Ledger) customerNames(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error) {
	customers, err := l.storage.ListCustomers(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}
	return names, nil
}

// UpdateLoan replaces a loan's terms and re-derives its status.
func (l *Ledger) UpdateLoan(ctx context.Context, userID, id uuid.UUID, in LoanInput) (*models.Loan, error) {
	if err := l.normalizeLoan(&in); err != nil {
		return nil, err
	}
	loan, err := l.storage.GetLoan(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if interest.DateOnly(tx.PaymentDate).Before(interest.DateOnly(in.LoanDate)) {
			return nil, invalid("loan date is after an existing payment")
		}
	}
	if in.CustomerID != loan.CustomerID {
		if _, err := l.storage.GetCustomer(ctx, userID, in.CustomerID); err != nil {
			return nil, err
		}
	}

	loan.CustomerID = in.CustomerID
	loan.Principal = in.Principal
	loan.BaseInterestRate = in.BaseInterestRate
	loan.InterestRateVariance = in.InterestRateVariance
	loan.InterestRate = in.BaseInterestRate.Add(in.InterestRateVariance)
	loan.InterestType = in.InterestType
	loan.LoanDate = in.LoanDate
	loan.DueDate = in.DueDate
	loan.Notes = in.Notes

	if _, err := l.settle(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// DeleteLoan deletes a loan and its payments.
func (l *Ledger) DeleteLoan(ctx context.Context, userID, id uuid.UUID) error {
	return l.storage.DeleteLoan(ctx, userID, id)
}

// PaymentInput describes a payment received against a loan.
type PaymentInput struct {
	Amount      decimal.Decimal        `json:"amount"`
	Type        models.TransactionType `json:"type"`
	PaymentDate time.Time              `json:"payment_date"`
	Notes       string                 `json:"notes"`
}

// RecordPayment processes a payment for a loan. A payment that brings the
// outstanding balance to zero closes the loan.
func (l *Ledger) RecordPayment(ctx context.Context, userID, loanID uuid.UUID, in PaymentInput) (*models.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	if in.Type == "" {
		in.Type = models.TransactionTypeMixed
	}
	if !in.Type.Valid() {
		return nil, invalid("unknown transaction type %q", in.Type)
	}

	loan, err := l.storage.GetLoan(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.Active() {
		return nil, ErrLoanClosed
	}

	in.PaymentDate = l.dateOr(in.PaymentDate)
	if in.PaymentDate.Before(interest.DateOnly(loan.LoanDate)) {
		return nil, invalid("payment date is before the loan date")
	}

	transaction := &models.Transaction{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		Amount:      in.Amount,
		Type:        in.Type,
		PaymentDate: in.PaymentDate,
		Notes:       in.Notes,
		CreatedAt:   l.timestamp(),
	}
	if err := l.storage.CreateTransaction(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to store payment transaction: %w", err)
	}

	pos, err := l.settle(ctx, loan)
	if err != nil {
		return nil, fmt.Errorf("failed to update loan balance: %w", err)
	}
	if pos.Overpaid.IsPositive() {
		slog.Warn("Loan overpaid", "loan_id", loan.ID, "overpaid", pos.Overpaid.StringFixed(2))
	}
	return transaction, nil
}

// ListPayments returns a loan's payments in date order.
func (l *Ledger) ListPayments(ctx context.Context, userID, loanID uuid.UUID) ([]*models.Transaction, error) {
	if _, err := l.storage.GetLoan(ctx, userID, loanID); err != nil {
		return nil, err
	}
	return l.storage.GetTransactionsForLoan(ctx, loanID)
}

// DeletePayment removes a payment, reopening the loan if it is no longer settled.
func (l *Ledger) DeletePayment(ctx context.Context, userID, loanID, txID uuid.UUID) error {
	loan, err := l.storage.GetLoan(ctx, userID, loanID)
	if err != nil {
		return err
	}
	if err := l.storage.DeleteTransaction(ctx, loanID, txID); err != nil {
		return err
	}
	_, err = l.settle(ctx, loan)
	return err
}

// Position returns the loan's full position, statement lines included, as of a date.
func (l *Ledger) Position(ctx context.Context, userID, loanID uuid.UUID, asOf time.Time) (*interest.Position, error) {
	loan, err := l.storage.GetLoan(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}
	txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	return interest.Compute(loan, txs, l.dateOr(asOf)), nil
}

// settle recomputes the loan's position as of today, derives its status and
// persists the loan.
func (l *Ledger) settle(ctx context.Context, loan *models.Loan) (*interest.Position, error) {
	txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	today := l.today()
	pos := interest.Compute(loan, txs, today)

	status := statusFor(loan, pos, today)
	if status != loan.Status {
		slog.Info("Loan status changed", "loan_id", loan.ID, "from", loan.Status, "to", status,
			"outstanding", pos.Outstanding.StringFixed(2))
		loan.Status = status
	}
	loan.UpdatedAt = l.timestamp()
	if err := l.storage.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}
	return pos, nil
}

func statusFor(loan *models.Loan, pos *interest.Position, today time.Time) models.LoanStatus {
	switch {
	case pos.Settled():
		return models.LoanStatusClosed
	case loan.DueDate != nil && today.After(interest.DateOnly(*loan.DueDate)):
		return models.LoanStatusOverdue
	default:
		return models.LoanStatusActive
	}
}
