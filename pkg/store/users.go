package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
)

// CreateUser inserts a new user. Emails are unique regardless of case.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt,
	)
	return translate(err, "failed to create user")
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// GetSettings returns the stored settings for a user, or ErrNotFound if the user
// never saved any.
func (s *SQLiteStore) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	st := models.UserSettings{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT show_expenses, show_loans, show_customers, show_sales, show_daywise, show_datewise, can_add, can_edit, can_delete, updated_at
		FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&st.ShowExpenses, &st.ShowLoans, &st.ShowCustomers, &st.ShowSales, &st.ShowDaywise, &st.ShowDatewise,
		&st.CanAdd, &st.CanEdit, &st.CanDelete, &st.UpdatedAt)
	if err != nil {
		return nil, translate(err, "settings")
	}
	return &st, nil
}

// SaveSettings inserts or replaces a user's settings.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st *models.UserSettings) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, show_expenses, show_loans, show_customers, show_sales, show_daywise, show_datewise, can_add, can_edit, can_delete, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			show_expenses = excluded.show_expenses,
			show_loans = excluded.show_loans,
			show_customers = excluded.show_customers,
			show_sales = excluded.show_sales,
			show_daywise = excluded.show_daywise,
			show_datewise = excluded.show_datewise,
			can_add = excluded.can_add,
			can_edit = excluded.can_edit,
			can_delete = excluded.can_delete,
			updated_at = excluded.updated_at`,
		st.UserID, st.ShowExpenses, st.ShowLoans, st.ShowCustomers, st.ShowSales, st.ShowDaywise, st.ShowDatewise,
		st.CanAdd, st.CanEdit, st.CanDelete, st.UpdatedAt,
	)
	return translate(err, "failed to save settings")
}
