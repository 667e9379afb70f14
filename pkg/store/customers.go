package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
)

const customerColumns = `id, user_id, name, phone, address, payment_day, notes, created_at, updated_at`

// CreateCustomer inserts a new customer.
func (s *SQLiteStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Phone, c.Address, c.PaymentDay, c.Notes, c.CreatedAt, c.UpdatedAt,
	)
	return translate(err, "failed to create customer")
}

// GetCustomer retrieves a customer by its ID.
func (s *SQLiteStore) GetCustomer(ctx context.Context, userID, id uuid.UUID) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCustomer(row)
	if err != nil {
		return nil, translate(err, "customer")
	}
	return c, nil
}

// ListCustomers returns a user's customers ordered by name. A non-empty search
// matches name or phone, case-insensitively.
func (s *SQLiteStore) ListCustomers(ctx context.Context, userID uuid.UUID, search string) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = ?`
	args := []any{userID}
	if search = strings.TrimSpace(search); search != "" {
		query += ` AND (name LIKE ? OR phone LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name COLLATE NOCASE`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return customers, nil
}

// UpdateCustomer updates an existing customer.
func (s *SQLiteStore) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE customers SET name = ?, phone = ?, address = ?, payment_day = ?, notes = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Phone, c.Address, c.PaymentDay, c.Notes, c.UpdatedAt, c.ID, c.UserID,
	)
	if err != nil {
		return translate(err, "failed to update customer")
	}
	return expectOne(result, "customer")
}

// DeleteCustomer removes a customer. Customers that still have loans cannot be
// deleted; sales keep their row but lose the customer link.
func (s *SQLiteStore) DeleteCustomer(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var loans int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans WHERE customer_id = ? AND user_id = ?`, id, userID).Scan(&loans); err != nil {
		return fmt.Errorf("failed to count customer loans: %w", err)
	}
	if loans > 0 {
		return fmt.Errorf("customer has %d loan(s): %w", loans, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sales SET customer_id = NULL WHERE customer_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("failed to detach customer sales: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return translate(err, "failed to delete customer")
	}
	if err := expectOne(result, "customer"); err != nil {
		return err
	}
	return tx.Commit()
}

func scanCustomer(row scanner) (*models.Customer, error) {
	var c models.Customer
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Address, &c.PaymentDay, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
