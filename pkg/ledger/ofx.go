package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/mcclellann/fredBooks/pkg/store"
	"github.com/shopspring/decimal"
)

// ImportResult reports the outcome of a statement import.
type ImportResult struct {
	Imported   int             `json:"imported"`
	Duplicates int             `json:"duplicates"`
	Skipped    int             `json:"skipped"`
	Entries    []*models.Entry `json:"entries"`
}

// ImportOFX reads an OFX/QFX bank or credit-card statement and records each
// transaction as an expense (debits) or earning (credits). Transactions already
// imported, identified by account and FITID, are skipped.
func (l *Ledger) ImportOFX(ctx context.Context, userID uuid.UUID, r io.Reader) (*ImportResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	resp, err := ofxgo.ParseResponse(strings.NewReader(strings.TrimLeft(string(content), " \t\r\n")))
	if err != nil {
		return nil, invalid("failed to parse OFX file: %v", err)
	}

	var candidates []*models.Entry
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			candidates = append(candidates, l.convertOFX(userID, string(stmt.BankAcctFrom.AcctID), models.PaymentMethodBank, stmt.BankTranList.Transactions)...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			candidates = append(candidates, l.convertOFX(userID, string(stmt.CCAcctFrom.AcctID), models.PaymentMethodCard, stmt.BankTranList.Transactions)...)
		}
	}

	result := &ImportResult{}
	for _, e := range candidates {
		if e == nil {
			result.Skipped++
			continue
		}
		exists, err := l.storage.EntryExists(ctx, userID, e.ExternalID)
		if err != nil {
			return result, err
		}
		if exists {
			result.Duplicates++
			continue
		}
		if err := l.storage.CreateEntry(ctx, e); err != nil {
			if errors.Is(err, store.ErrConflict) {
				result.Duplicates++
				continue
			}
			return result, fmt.Errorf("failed to store imported entry: %w", err)
		}
		result.Imported++
		result.Entries = append(result.Entries, e)
	}

	slog.Info("Imported OFX statement", "user_id", userID, "imported", result.Imported,
		"duplicates", result.Duplicates, "skipped", result.Skipped)
	return result, nil
}

// convertOFX maps statement transactions to entries. Zero-amount transactions
// become nil placeholders so the caller can count them.
func (l *Ledger) convertOFX(userID uuid.UUID, accountID string, method models.PaymentMethod, txs []ofxgo.Transaction) []*models.Entry {
	now := l.timestamp()
	out := make([]*models.Entry, 0, len(txs))
	for i := range txs {
		t := &txs[i]
		amount, err := decimal.NewFromString(t.TrnAmt.Rat.FloatString(2))
		if err != nil || amount.IsZero() {
			out = append(out, nil)
			continue
		}

		kind := models.EntryTypeEarning
		if amount.IsNegative() {
			kind = models.EntryTypeExpense
		}

		out = append(out, &models.Entry{
			ID:            uuid.New(),
			UserID:        userID,
			Type:          kind,
			Amount:        amount.Abs(),
			Description:   ofxDescription(t),
			Category:      ofxCategory(fmt.Sprintf("%v", t.TrnType)),
			PaymentMethod: method,
			Date:          interest.DateOnly(t.DtPosted.Time),
			ExternalID:    accountID + ":" + string(t.FiTID),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return out
}

func ofxDescription(t *ofxgo.Transaction) string {
	if t.Payee != nil && t.Payee.Name != "" {
		return strings.TrimSpace(string(t.Payee.Name))
	}
	if name := strings.TrimSpace(string(t.Name)); name != "" {
		return name
	}
	return strings.TrimSpace(string(t.Memo))
}

func ofxCategory(trnType string) string {
	switch trnType {
	case "INT", "DIV":
		return "Interest"
	case "FEE", "SRVCHG":
		return "Bank Fees"
	case "ATM":
		return "Cash & ATM"
	}
	return ""
}
