package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InterestType selects how interest accrues on a loan.
type InterestType string

const (
	InterestNone     InterestType = "none"
	InterestDaily    InterestType = "daily"    // annual rate, prorated by days/365
	InterestMonthly  InterestType = "monthly"  // rate per month
	InterestSimple   InterestType = "simple"   // annual rate, prorated by months/12
	InterestCompound InterestType = "compound" // rate per month, compounded monthly
)

// Valid reports whether t is a known interest type.
func (t InterestType) Valid() bool {
	switch t {
	case InterestNone, InterestDaily, InterestMonthly, InterestSimple, InterestCompound:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanStatusActive  LoanStatus = "active"
	LoanStatusOverdue LoanStatus = "overdue"
	LoanStatusClosed  LoanStatus = "closed"
)

type Loan struct {
	ID                   uuid.UUID       `json:"id"`
	UserID               uuid.UUID       `json:"-"`
	CustomerID           uuid.UUID       `json:"customer_id"`
	Principal            decimal.Decimal `json:"principal"`
	BaseInterestRate     decimal.Decimal `json:"base_interest_rate"`     // Standard rate for the product, percent
	InterestRateVariance decimal.Decimal `json:"interest_rate_variance"` // Adjustment (positive or negative)
	InterestRate         decimal.Decimal `json:"interest_rate"`          // Resulting effective rate
	InterestType         InterestType    `json:"interest_type"`
	LoanDate             time.Time       `json:"loan_date"`
	DueDate              *time.Time      `json:"due_date,omitempty"`
	Status               LoanStatus      `json:"status"`
	Notes                string          `json:"notes,omitempty"`
	LastReviewedAt       *time.Time      `json:"last_reviewed_at,omitempty"` // Prevents duplicate daily reviews
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Active reports whether the loan still takes payments.
func (l *Loan) Active() bool {
	return l.Status != LoanStatusClosed
}

type TransactionType string

const (
	TransactionTypePrincipal TransactionType = "principal"
	TransactionTypeInterest  TransactionType = "interest"
	TransactionTypeMixed     TransactionType = "mixed"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePrincipal, TransactionTypeInterest, TransactionTypeMixed:
		return true
	}
	return false
}

// Transaction is a payment received against a loan.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	LoanID      uuid.UUID       `json:"loan_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	PaymentDate time.Time       `json:"payment_date"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Customer struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"-"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	PaymentDay string    `json:"payment_day,omitempty"` // weekday name, lower case
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LoanFilter narrows loan listings. Zero fields match everything.
type LoanFilter struct {
	CustomerID *uuid.UUID
	Status     LoanStatus
}
