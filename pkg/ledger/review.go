package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

// ReviewSummary reports what a review sweep did.
type ReviewSummary struct {
	Reviewed    int             `json:"reviewed"`
	Skipped     int             `json:"skipped"`
	Closed      int             `json:"closed"`
	Overdue     int             `json:"overdue"`
	Failed      int             `json:"failed"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ReviewLoans iterates through all open loans, recomputes each position as of
// today and moves loans between active, overdue and closed. A loan is reviewed
// at most once per calendar day. progress, if non-nil, is called once per loan
// with the total count.
func (l *Ledger) ReviewLoans(ctx context.Context, progress func(total int)) (*ReviewSummary, error) {
	loans, err := l.storage.GetAllActiveLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active loans for review: %w", err)
	}

	today := l.today()
	summary := &ReviewSummary{Outstanding: decimal.Zero}

	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if progress != nil {
			progress(len(loans))
		}

		// Check if the loan has already been reviewed today
		if loan.LastReviewedAt != nil && interest.DateOnly(*loan.LastReviewedAt).Equal(today) {
			slog.Debug("Loan already reviewed today, skipping", "loan_id", loan.ID)
			summary.Skipped++
			continue
		}

		txs, err := l.storage.GetTransactionsForLoan(ctx, loan.ID)
		if err != nil {
			slog.Error("Failed to load loan transactions during review", "loan_id", loan.ID, "error", err)
			summary.Failed++
			continue
		}
		pos := interest.Compute(loan, txs, today)

		previous := loan.Status
		loan.Status = statusFor(loan, pos, today)
		loan.LastReviewedAt = &today
		loan.UpdatedAt = l.timestamp()

		if err := l.storage.UpdateLoan(ctx, loan); err != nil {
			slog.Error("Failed to update loan during review", "loan_id", loan.ID, "error", err)
			summary.Failed++
			continue
		}

		summary.Reviewed++
		switch loan.Status {
		case models.LoanStatusClosed:
			summary.Closed++
		case models.LoanStatusOverdue:
			summary.Overdue++
			summary.Outstanding = summary.Outstanding.Add(pos.Outstanding)
		default:
			summary.Outstanding = summary.Outstanding.Add(pos.Outstanding)
		}
		if previous != loan.Status {
			slog.Info("Loan status changed during review", "loan_id", loan.ID, "from", previous, "to", loan.Status,
				"outstanding", pos.Outstanding.StringFixed(2), "interest_due", pos.InterestDue.StringFixed(2))
		}
	}

	summary.Outstanding = interest.Round2(summary.Outstanding)
	return summary, nil
}
