package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Tab names a feature area that can be hidden per user.
type Tab string

const (
	TabExpenses  Tab = "expenses"
	TabLoans     Tab = "loans"
	TabCustomers Tab = "customers"
	TabSales     Tab = "sales"
	TabDaywise   Tab = "daywise"
	TabDatewise  Tab = "datewise"
)

// Control names a mutating action that can be disabled per user.
type Control string

const (
	ControlAdd    Control = "add"
	ControlEdit   Control = "edit"
	ControlDelete Control = "delete"
)

type UserSettings struct {
	UserID        uuid.UUID `json:"-"`
	ShowExpenses  bool      `json:"show_expenses"`
	ShowLoans     bool      `json:"show_loans"`
	ShowCustomers bool      `json:"show_customers"`
	ShowSales     bool      `json:"show_sales"`
	ShowDaywise   bool      `json:"show_daywise"`
	ShowDatewise  bool      `json:"show_datewise"`
	CanAdd        bool      `json:"can_add"`
	CanEdit       bool      `json:"can_edit"`
	CanDelete     bool      `json:"can_delete"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultSettings returns settings with every tab visible and every control enabled.
func DefaultSettings(userID uuid.UUID) *UserSettings {
	return &UserSettings{
		UserID:        userID,
		ShowExpenses:  true,
		ShowLoans:     true,
		ShowCustomers: true,
		ShowSales:     true,
		ShowDaywise:   true,
		ShowDatewise:  true,
		CanAdd:        true,
		CanEdit:       true,
		CanDelete:     true,
	}
}

func (s *UserSettings) TabVisible(t Tab) bool {
	switch t {
	case TabExpenses:
		return s.ShowExpenses
	case TabLoans:
		return s.ShowLoans
	case TabCustomers:
		return s.ShowCustomers
	case TabSales:
		return s.ShowSales
	case TabDaywise:
		return s.ShowDaywise
	case TabDatewise:
		return s.ShowDatewise
	}
	return false
}

func (s *UserSettings) Allows(c Control) bool {
	switch c {
	case ControlAdd:
		return s.CanAdd
	case ControlEdit:
		return s.CanEdit
	case ControlDelete:
		return s.CanDelete
	}
	return false
}
