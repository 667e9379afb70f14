package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeExpense EntryType = "expense"
	EntryTypeEarning EntryType = "earning"
)

func (t EntryType) Valid() bool {
	return t == EntryTypeExpense || t == EntryTypeEarning
}

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodBank  PaymentMethod = "bank"
	PaymentMethodUPI   PaymentMethod = "upi"
	PaymentMethodOther PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBank, PaymentMethodUPI, PaymentMethodOther:
		return true
	}
	return false
}

// Entry is a single expense or earning.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"-"`
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Category      string          `json:"category,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Date          time.Time       `json:"date"`
	ExternalID    string          `json:"external_id,omitempty"` // FITID for imported rows
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EntryFilter narrows entry listings. Zero fields match everything.
type EntryFilter struct {
	Type     EntryType
	Category string
	From     *time.Time
	To       *time.Time
}

type SaleStatus string

const (
	SaleStatusOpen SaleStatus = "open"
	SaleStatusPaid SaleStatus = "paid"
)

type Sale struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"-"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	SaleDate    time.Time       `json:"sale_date"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Status      SaleStatus      `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type SaleTransaction struct {
	ID          uuid.UUID       `json:"id"`
	SaleID      uuid.UUID       `json:"sale_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaleFilter narrows sale listings. Zero fields match everything.
type SaleFilter struct {
	CustomerID *uuid.UUID
	Status     SaleStatus
}
