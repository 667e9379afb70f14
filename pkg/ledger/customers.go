package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/models"
)

// CustomerInput carries the editable fields of a customer.
type CustomerInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	PaymentDay string `json:"payment_day"`
	Notes      string `json:"notes"`
}

func (in *CustomerInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return invalid("customer name is required")
	}
	day, err := ParseWeekday(in.PaymentDay)
	if err != nil {
		return err
	}
	in.PaymentDay = day
	return nil
}

// CreateCustomer adds a customer for the user.
func (l *Ledger) CreateCustomer(ctx context.Context, userID uuid.UUID, in CustomerInput) (*models.Customer, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := l.timestamp()
	c := &models.Customer{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       in.Name,
		Phone:      in.Phone,
		Address:    in.Address,
		PaymentDay: in.PaymentDay,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.storage.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store customer: %w", err)
	}
	return c, nil
}

func (l *Ledger) GetCustomer(ctx context.Context, userID, id uuid.UUID) (*models.Customer, error) {
	return l.storage.GetCustomer(ctx, userID, id)
}

func (l *Ledger) ListCustomers(ctx context.Context, userID uuid.UUID, search string) ([]*models.Customer, error) {
	return l.storage.ListCustomers(ctx, userID, search)
}

func (l *Ledger) UpdateCustomer(ctx context.Context, userID, id uuid.UUID, in CustomerInput) (*models.Customer, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	c, err := l.storage.GetCustomer(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Phone = in.Phone
	c.Address = in.Address
	c.PaymentDay = in.PaymentDay
	c.Notes = in.Notes
	c.UpdatedAt = l.timestamp()
	if err := l.storage.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCustomer removes a customer that has no loans.
func (l *Ledger) DeleteCustomer(ctx context.Context, userID, id uuid.UUID) error {
	return l.storage.DeleteCustomer(ctx, userID, id)
}
