package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

// EntryInput carries the editable fields of an expense or earning.
type EntryInput struct {
	Type          models.EntryType     `json:"type"`
	Amount        decimal.Decimal      `json:"amount"`
	Description   string               `json:"description"`
	Category      string               `json:"category"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Date          time.Time            `json:"date"`
}

func (l *Ledger) normalizeEntry(in *EntryInput) error {
	if !in.Type.Valid() {
		return invalid("type must be %q or %q", models.EntryTypeExpense, models.EntryTypeEarning)
	}
	if !in.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentMethodCash
	}
	if !in.PaymentMethod.Valid() {
		return invalid("unknown payment method %q", in.PaymentMethod)
	}
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Date = l.dateOr(in.Date)
	return nil
}

func (l *Ledger) CreateEntry(ctx context.Context, userID uuid.UUID, in EntryInput) (*models.Entry, error) {
	if err := l.normalizeEntry(&in); err != nil {
		return nil, err
	}
	now := l.timestamp()
	e := &models.Entry{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          in.Type,
		Amount:        in.Amount,
		Description:   in.Description,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Date:          in.Date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.storage.CreateEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to store entry: %w", err)
	}
	return e, nil
}

func (l *Ledger) GetEntry(ctx context.Context, userID, id uuid.UUID) (*models.Entry, error) {
	return l.storage.GetEntry(ctx, userID, id)
}

func (l *Ledger) ListEntries(ctx context.Context, userID uuid.UUID, filter models.EntryFilter) ([]*models.Entry, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("unknown entry type %q", filter.Type)
	}
	return l.storage.ListEntries(ctx, userID, filter)
}

func (l *Ledger) UpdateEntry(ctx context.Context, userID, id uuid.UUID, in EntryInput) (*models.Entry, error) {
	if err := l.normalizeEntry(&in); err != nil {
		return nil, err
	}
	e, err := l.storage.GetEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	e.Type = in.Type
	e.Amount = in.Amount
	e.Description = in.Description
	e.Category = in.Category
	e.PaymentMethod = in.PaymentMethod
	e.Date = in.Date
	e.UpdatedAt = l.timestamp()
	if err := l.storage.UpdateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (l *Ledger) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	return l.storage.DeleteEntry(ctx, userID, id)
}

// CategoryTotal is the sum of one category within one entry type.
type CategoryTotal struct {
	Type     models.EntryType `json:"type"`
	Category string           `json:"category"`
	Total    decimal.Decimal  `json:"total"`
	Count    int              `json:"count"`
}

type EntrySummary struct {
	From          *time.Time      `json:"from,omitempty"`
	To            *time.Time      `json:"to,omitempty"`
	Count         int             `json:"count"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	Net           decimal.Decimal `json:"net"`
	ByCategory    []CategoryTotal `json:"by_category"`
}

const uncategorized = "Uncategorized"

// Summarize totals the user's entries matching the filter by type and category.
func (l *Ledger) Summarize(ctx context.Context, userID uuid.UUID, filter models.EntryFilter) (*EntrySummary, error) {
	entries, err := l.ListEntries(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	summary := &EntrySummary{
		From:          filter.From,
		To:            filter.To,
		Count:         len(entries),
		TotalExpenses: decimal.Zero,
		TotalEarnings: decimal.Zero,
	}

	type key struct {
		kind     models.EntryType
		category string
	}
	totals := map[key]*CategoryTotal{}
	for _, e := range entries {
		if e.Type == models.EntryTypeExpense {
			summary.TotalExpenses = summary.TotalExpenses.Add(e.Amount)
		} else {
			summary.TotalEarnings = summary.TotalEarnings.Add(e.Amount)
		}

		category := e.Category
		if category == "" {
			category = uncategorized
		}
		k := key{e.Type, strings.ToLower(category)}
		t, ok := totals[k]
		if !ok {
			t = &CategoryTotal{Type: e.Type, Category: category, Total: decimal.Zero}
			totals[k] = t
		}
		t.Total = t.Total.Add(e.Amount)
		t.Count++
	}

	summary.TotalExpenses = interest.Round2(summary.TotalExpenses)
	summary.TotalEarnings = interest.Round2(summary.TotalEarnings)
	summary.Net = summary.TotalEarnings.Sub(summary.TotalExpenses)
	for _, t := range totals {
		t.Total = interest.Round2(t.Total)
		summary.ByCategory = append(summary.ByCategory, *t)
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Category < b.Category
	})
	return summary, nil
}

// MonthRange returns the first and last day of the month containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
