package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
)

const saleColumns = `id, user_id, customer_id, description, quantity, unit_price, total, sale_date, due_date, notes, status, created_at, updated_at`

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// CreateSale inserts a new sale.
func (s *SQLiteStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sales (`+saleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.UserID, nullUUID(sale.CustomerID), sale.Description, sale.Quantity, sale.UnitPrice, sale.Total,
		sale.SaleDate, sale.DueDate, sale.Notes, sale.Status, sale.CreatedAt, sale.UpdatedAt,
	)
	return translate(err, "failed to create sale")
}

func (s *SQLiteStore) GetSale(ctx context.Context, userID, id uuid.UUID) (*models.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ? AND user_id = ?`, id, userID)
	sale, err := scanSale(row)
	if err != nil {
		return nil, translate(err, "sale")
	}
	return sale, nil
}

// ListSales returns a user's sales, newest first.
func (s *SQLiteStore) ListSales(ctx context.Context, userID uuid.UUID, filter models.SaleFilter) ([]*models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE user_id = ?`
	args := []any{userID}
	if filter.CustomerID != nil {
		query += ` AND customer_id = ?`
		args = append(args, *filter.CustomerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY sale_date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []*models.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale row: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return sales, nil
}

func (s *SQLiteStore) UpdateSale(ctx context.Context, sale *models.Sale) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sales SET customer_id = ?, description = ?, quantity = ?, unit_price = ?, total = ?, sale_date = ?, due_date = ?,
		notes = ?, status = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		nullUUID(sale.CustomerID), sale.Description, sale.Quantity, sale.UnitPrice, sale.Total, sale.SaleDate, sale.DueDate,
		sale.Notes, sale.Status, sale.UpdatedAt, sale.ID, sale.UserID,
	)
	if err != nil {
		return translate(err, "failed to update sale")
	}
	return expectOne(result, "sale")
}

// DeleteSale removes a sale and its payments.
func (s *SQLiteStore) DeleteSale(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM sale_transactions WHERE sale_id IN (SELECT id FROM sales WHERE id = ? AND user_id = ?)`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sale payments: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	if err := expectOne(result, "sale"); err != nil {
		return err
	}
	return tx.Commit()
}

func scanSale(row scanner) (*models.Sale, error) {
	var sale models.Sale
	var customerID uuid.NullUUID
	var dueDate sql.NullTime
	if err := row.Scan(&sale.ID, &sale.UserID, &customerID, &sale.Description, &sale.Quantity, &sale.UnitPrice, &sale.Total,
		&sale.SaleDate, &dueDate, &sale.Notes, &sale.Status, &sale.CreatedAt, &sale.UpdatedAt); err != nil {
		return nil, err
	}
	if customerID.Valid {
		sale.CustomerID = &customerID.UUID
	}
	if dueDate.Valid {
		sale.DueDate = &dueDate.Time
	}
	return &sale, nil
}

func (s *SQLiteStore) CreateSaleTransaction(ctx context.Context, t *models.SaleTransaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sale_transactions (id, sale_id, amount, payment_date, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.SaleID, t.Amount, t.PaymentDate, t.Notes, t.CreatedAt,
	)
	return translate(err, "failed to create sale payment")
}

func (s *SQLiteStore) GetSaleTransactions(ctx context.Context, saleID uuid.UUID) ([]*models.SaleTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sale_id, amount, payment_date, notes, created_at FROM sale_transactions WHERE sale_id = ? ORDER BY payment_date ASC, created_at ASC`,
		saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for sale %s: %w", saleID, err)
	}
	defer rows.Close()
	return scanSaleTransactions(rows)
}

// ListSaleTransactionsBetween returns a user's sale payments dated within [from, to].
func (s *SQLiteStore) ListSaleTransactionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.SaleTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.sale_id, t.amount, t.payment_date, t.notes, t.created_at
		FROM sale_transactions t JOIN sales s ON s.id = t.sale_id
		WHERE s.user_id = ? AND t.payment_date >= ? AND t.payment_date <= ?
		ORDER BY t.payment_date ASC, t.created_at ASC`,
		userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list sale payments: %w", err)
	}
	defer rows.Close()
	return scanSaleTransactions(rows)
}

func scanSaleTransactions(rows *sql.Rows) ([]*models.SaleTransaction, error) {
	var out []*models.SaleTransaction
	for rows.Next() {
		var t models.SaleTransaction
		if err := rows.Scan(&t.ID, &t.SaleID, &t.Amount, &t.PaymentDate, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale payment row: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}
