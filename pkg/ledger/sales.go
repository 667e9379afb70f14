package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

// SaleInput carries the editable fields of a sale.
type SaleInput struct {
	CustomerID  *uuid.UUID      `json:"customer_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SaleDate    time.Time       `json:"sale_date"`
	DueDate     *time.Time      `json:"due_date"`
	Notes       string          `json:"notes"`
}

func (l *Ledger) normalizeSale(ctx context.Context, userID uuid.UUID, in *SaleInput) error {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return invalid("sale description is required")
	}
	if in.Quantity.IsZero() {
		in.Quantity = decimal.NewFromInt(1)
	}
	if !in.Quantity.IsPositive() {
		return invalid("quantity must be positive")
	}
	if !in.UnitPrice.IsPositive() {
		return invalid("unit price must be positive")
	}
	in.SaleDate = l.dateOr(in.SaleDate)
	in.DueDate = optionalDate(in.DueDate)
	if in.DueDate != nil && in.DueDate.Before(in.SaleDate) {
		return invalid("due date is before the sale date")
	}
	if in.CustomerID != nil && *in.CustomerID == uuid.Nil {
		in.CustomerID = nil
	}
	if in.CustomerID != nil {
		if _, err := l.storage.GetCustomer(ctx, userID, *in.CustomerID); err != nil {
			return err
		}
	}
	return nil
}

// SaleView is a sale with its payment totals.
type SaleView struct {
	*models.Sale
	CustomerName string          `json:"customer_name,omitempty"`
	Paid         decimal.Decimal `json:"paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

func (l *Ledger) CreateSale(ctx context.Context, userID uuid.UUID, in SaleInput) (*models.Sale, error) {
	if err := l.normalizeSale(ctx, userID, &in); err != nil {
		return nil, err
	}
	now := l.timestamp()
	sale := &models.Sale{
		ID:          uuid.New(),
		UserID:      userID,
		CustomerID:  in.CustomerID,
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Total:       in.Quantity.Mul(in.UnitPrice),
		SaleDate:    in.SaleDate,
		DueDate:     in.DueDate,
		Notes:       in.Notes,
		Status:      models.SaleStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.storage.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to store sale: %w", err)
	}
	return sale, nil
}

func (l *Ledger) GetSale(ctx context.Context, userID, id uuid.UUID) (*SaleView, error) {
	sale, err := l.storage.GetSale(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return l.saleView(ctx, sale, nil)
}

func (l *Ledger) saleView(ctx context.Context, sale *models.Sale, names map[uuid.UUID]string) (*SaleView, error) {
	paid, err := l.salePaid(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	v := &SaleView{
		Sale:        sale,
		Paid:        interest.Round2(paid),
		Outstanding: interest.Round2(decimal.Max(sale.Total.Sub(paid), decimal.Zero)),
	}
	if sale.CustomerID != nil {
		if name, ok := names[*sale.CustomerID]; ok {
			v.CustomerName = name
		} else if c, err := l.storage.GetCustomer(ctx, sale.UserID, *sale.CustomerID); err == nil {
			v.CustomerName = c.Name
		}
	}
	return v, nil
}

func (l *Ledger) salePaid(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	txs, err := l.storage.GetSaleTransactions(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	paid := decimal.Zero
	for _, t := range txs {
		paid = paid.Add(t.Amount)
	}
	return paid, nil
}

func (l *Ledger) ListSales(ctx context.Context, userID uuid.UUID, filter models.SaleFilter) ([]*SaleView, error) {
	if filter.Status != "" && filter.Status != models.SaleStatusOpen && filter.Status != models.SaleStatusPaid {
		return nil, invalid("unknown sale status %q", filter.Status)
	}
	sales, err := l.storage.ListSales(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	names, err := l.customerNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*SaleView, 0, len(sales))
	for _, s := range sales {
		v, err := l.saleView(ctx, s, names)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// UpdateSale replaces a sale's fields. The new total may not drop below what
// has already been paid, and the sale date may not move past a payment.
func (l *Ledger) UpdateSale(ctx context.Context, userID, id uuid.UUID, in SaleInput) (*models.Sale, error) {
	if err := l.normalizeSale(ctx, userID, &in); err != nil {
		return nil, err
	}
	sale, err := l.storage.GetSale(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	txs, err := l.storage.GetSaleTransactions(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	paid := decimal.Zero
	for _, t := range txs {
		if interest.DateOnly(t.PaymentDate).Before(interest.DateOnly(in.SaleDate)) {
			return nil, invalid("sale date is after an existing payment")
		}
		paid = paid.Add(t.Amount)
	}
	total := in.Quantity.Mul(in.UnitPrice)
	if total.LessThan(paid) {
		return nil, invalid("sale total %s is less than the %s already paid", total.StringFixed(2), paid.StringFixed(2))
	}

	sale.CustomerID = in.CustomerID
	sale.Description = in.Description
	sale.Quantity = in.Quantity
	sale.UnitPrice = in.UnitPrice
	sale.Total = total
	sale.SaleDate = in.SaleDate
	sale.DueDate = in.DueDate
	sale.Notes = in.Notes
	sale.Status = saleStatus(total, paid)
	sale.UpdatedAt = l.timestamp()
	if err := l.storage.UpdateSale(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (l *Ledger) DeleteSale(ctx context.Context, userID, id uuid.UUID) error {
	return l.storage.DeleteSale(ctx, userID, id)
}

// SalePaymentInput describes a payment received against a sale.
type SalePaymentInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Notes       string          `json:"notes"`
}

// RecordSalePayment records a part payment. The amount may not exceed what is
// outstanding; the sale is marked paid once nothing remains.
func (l *Ledger) RecordSalePayment(ctx context.Context, userID, saleID uuid.UUID, in SalePaymentInput) (*models.SaleTransaction, error) {
	if !in.Amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	sale, err := l.storage.GetSale(ctx, userID, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == models.SaleStatusPaid {
		return nil, ErrSalePaid
	}
	paid, err := l.salePaid(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	outstanding := sale.Total.Sub(paid)
	if in.Amount.GreaterThan(outstanding) {
		return nil, invalid("amount %s exceeds the outstanding %s", in.Amount.StringFixed(2), outstanding.StringFixed(2))
	}

	in.PaymentDate = l.dateOr(in.PaymentDate)
	if in.PaymentDate.Before(interest.DateOnly(sale.SaleDate)) {
		return nil, invalid("payment date is before the sale date")
	}

	t := &models.SaleTransaction{
		ID:          uuid.New(),
		SaleID:      sale.ID,
		Amount:      in.Amount,
		PaymentDate: in.PaymentDate,
		Notes:       in.Notes,
		CreatedAt:   l.timestamp(),
	}
	if err := l.storage.CreateSaleTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to store sale payment: %w", err)
	}

	if status := saleStatus(sale.Total, paid.Add(in.Amount)); status != sale.Status {
		sale.Status = status
		sale.UpdatedAt = l.timestamp()
		if err := l.storage.UpdateSale(ctx, sale); err != nil {
			return nil, fmt.Errorf("failed to update sale status: %w", err)
		}
		slog.Info("Sale fully paid", "sale_id", sale.ID, "total", sale.Total.StringFixed(2))
	}
	return t, nil
}

func (l *Ledger) ListSalePayments(ctx context.Context, userID, saleID uuid.UUID) ([]*models.SaleTransaction, error) {
	if _, err := l.storage.GetSale(ctx, userID, saleID); err != nil {
		return nil, err
	}
	return l.storage.GetSaleTransactions(ctx, saleID)
}

func saleStatus(total, paid decimal.Decimal) models.SaleStatus {
	if interest.Round2(total.Sub(paid)).Sign() <= 0 {
		return models.SaleStatusPaid
	}
	return models.SaleStatusOpen
}
