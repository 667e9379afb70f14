package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
)

const loanColumns = `id, user_id, customer_id, principal, base_interest_rate, interest_rate_variance, interest_rate, interest_type, loan_date, due_date, status, notes, last_reviewed_at, created_at, updated_at`

// CreateLoan inserts a new loan into the database.
func (s *SQLiteStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO loans (`+loanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID, loan.UserID, loan.CustomerID, loan.Principal, loan.BaseInterestRate, loan.InterestRateVariance, loan.InterestRate,
		loan.InterestType, loan.LoanDate, loan.DueDate, loan.Status, loan.Notes, loan.LastReviewedAt, loan.CreatedAt, loan.UpdatedAt,
	)
	return translate(err, "failed to create loan")
}

// GetLoan retrieves a loan by its ID.
func (s *SQLiteStore) GetLoan(ctx context.Context, userID, id uuid.UUID) (*models.Loan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ? AND user_id = ?`, id, userID)
	loan, err := scanLoan(row)
	if err != nil {
		return nil, translate(err, "loan")
	}
	return loan, nil
}

// ListLoans retrieves a user's loans, newest first.
func (s *SQLiteStore) ListLoans(ctx context.Context, userID uuid.UUID, filter models.LoanFilter) ([]*models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = ?`
	args := []any{userID}
	if filter.CustomerID != nil {
		query += ` AND customer_id = ?`
		args = append(args, *filter.CustomerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY loan_date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()
	return scanLoans(rows)
}

// GetAllActiveLoans retrieves every loan that is not closed, across all users.
func (s *SQLiteStore) GetAllActiveLoans(ctx context.Context) ([]*models.Loan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE status != ?`, models.LoanStatusClosed)
	if err != nil {
		return nil, fmt.Errorf("failed to get all active loans: %w", err)
	}
	defer rows.Close()
	return scanLoans(rows)
}

// UpdateLoan updates an existing loan in the database.
func (s *SQLiteStore) UpdateLoan(ctx context.Context, loan *models.Loan) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE loans SET customer_id = ?, principal = ?, base_interest_rate = ?, interest_rate_variance = ?, interest_rate = ?, interest_type = ?,
		loan_date = ?, due_date = ?, status = ?, notes = ?, last_reviewed_at = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		loan.CustomerID, loan.Principal, loan.BaseInterestRate, loan.InterestRateVariance, loan.InterestRate, loan.InterestType,
		loan.LoanDate, loan.DueDate, loan.Status, loan.Notes, loan.LastReviewedAt, loan.UpdatedAt, loan.ID, loan.UserID,
	)
	if err != nil {
		return translate(err, "failed to update loan")
	}
	return expectOne(result, "loan")
}

// DeleteLoan removes a loan and its transactions from the database within a transaction.
func (s *SQLiteStore) DeleteLoan(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE loan_id IN (SELECT id FROM loans WHERE id = ? AND user_id = ?)`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete associated transactions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	if err := expectOne(result, "loan"); err != nil {
		return err
	}

	return tx.Commit()
}

func scanLoan(row scanner) (*models.Loan, error) {
	var loan models.Loan
	var dueDate, lastReviewed sql.NullTime
	if err := row.Scan(&loan.ID, &loan.UserID, &loan.CustomerID, &loan.Principal, &loan.BaseInterestRate, &loan.InterestRateVariance,
		&loan.InterestRate, &loan.InterestType, &loan.LoanDate, &dueDate, &loan.Status, &loan.Notes, &lastReviewed,
		&loan.CreatedAt, &loan.UpdatedAt); err != nil {
		return nil, err
	}
	if dueDate.Valid {
		loan.DueDate = &dueDate.Time
	}
	if lastReviewed.Valid {
		loan.LastReviewedAt = &lastReviewed.Time
	}
	return &loan, nil
}

func scanLoans(rows *sql.Rows) ([]*models.Loan, error) {
	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// CreateTransaction inserts a new transaction into the database.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, loan_id, amount, type, payment_date, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.LoanID, t.Amount, t.Type, t.PaymentDate, t.Notes, t.CreatedAt,
	)
	return translate(err, "failed to create transaction")
}

// GetTransactionsForLoan retrieves all transactions for a given loan ID.
func (s *SQLiteStore) GetTransactionsForLoan(ctx context.Context, loanID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, loan_id, amount, type, payment_date, notes, created_at FROM transactions WHERE loan_id = ? ORDER BY payment_date ASC, created_at ASC`,
		loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for loan %s: %w", loanID, err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListTransactionsBetween returns a user's loan payments dated within [from, to].
func (s *SQLiteStore) ListTransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.loan_id, t.amount, t.type, t.payment_date, t.notes, t.created_at
		FROM transactions t JOIN loans l ON l.id = t.loan_id
		WHERE l.user_id = ? AND t.payment_date >= ? AND t.payment_date <= ?
		ORDER BY t.payment_date ASC, t.created_at ASC`,
		userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// DeleteTransaction removes one payment from a loan.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, loanID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND loan_id = ?`, id, loanID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOne(result, "transaction")
}

func scanTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.LoanID, &t.Amount, &t.Type, &t.PaymentDate, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for loan transactions: %w", err)
	}
	return transactions, nil
}
