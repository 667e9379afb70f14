package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/mcclellann/fredBooks/pkg/store"
)

// GetSettings returns the user's settings, or the defaults if none were saved.
func (l *Ledger) GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	s, err := l.storage.GetSettings(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultSettings(userID), nil
	}
	return s, err
}

func (l *Ledger) UpdateSettings(ctx context.Context, userID uuid.UUID, s models.UserSettings) (*models.UserSettings, error) {
	s.UserID = userID
	s.UpdatedAt = l.timestamp()
	if err := l.storage.SaveSettings(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
