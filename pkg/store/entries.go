package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
)

const entryColumns = `id, user_id, type, amount, description, category, payment_method, date, external_id, created_at, updated_at`

// CreateEntry inserts an expense or earning.
func (s *SQLiteStore) CreateEntry(ctx context.Context, e *models.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Type, e.Amount, e.Description, e.Category, e.PaymentMethod, e.Date, nullString(e.ExternalID), e.CreatedAt, e.UpdatedAt,
	)
	return translate(err, "failed to create entry")
}

func (s *SQLiteStore) GetEntry(ctx context.Context, userID, id uuid.UUID) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err != nil {
		return nil, translate(err, "entry")
	}
	return e, nil
}

// ListEntries returns a user's entries matching the filter, newest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, userID uuid.UUID, filter models.EntryFilter) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = ?`
	args := []any{userID}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Category != "" {
		query += ` AND category = ? COLLATE NOCASE`
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		query += ` AND date >= ?`
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		query += ` AND date <= ?`
		args = append(args, filter.To.UTC())
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return entries, nil
}

// EntryExists reports whether an entry with the given external ID was already imported.
func (s *SQLiteStore) EntryExists(ctx context.Context, userID uuid.UUID, externalID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE user_id = ? AND external_id = ?`, userID, externalID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up entry: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) UpdateEntry(ctx context.Context, e *models.Entry) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE entries SET type = ?, amount = ?, description = ?, category = ?, payment_method = ?, date = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		e.Type, e.Amount, e.Description, e.Category, e.PaymentMethod, e.Date, e.UpdatedAt, e.ID, e.UserID,
	)
	if err != nil {
		return translate(err, "failed to update entry")
	}
	return expectOne(result, "entry")
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectOne(result, "entry")
}

func scanEntry(row scanner) (*models.Entry, error) {
	var e models.Entry
	var externalID sql.NullString
	if err := row.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.Description, &e.Category, &e.PaymentMethod, &e.Date,
		&externalID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ExternalID = externalID.String
	return &e, nil
}
