package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcclellann/fredBooks/pkg/interest"
	"github.com/mcclellann/fredBooks/pkg/store"
)

var (
	// ErrValidation wraps every input error so callers can map it to a 400.
	ErrValidation = errors.New("validation failed")
	// ErrLoanClosed is returned when a payment targets a closed loan.
	ErrLoanClosed = errors.New("loan is closed")
	// ErrSalePaid is returned when a payment targets a fully paid sale.
	ErrSalePaid = errors.New("sale is fully paid")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Ledger handles the business logic for customers, loans, books and sales.
type Ledger struct {
	storage store.Storage
	now     func() time.Time
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage) *Ledger {
	return &Ledger{
		storage: s,
		now:     time.Now,
	}
}

// WithClock replaces the ledger's notion of "now". Used by tests and by
// back-dated CLI reports.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) today() time.Time {
	return interest.DateOnly(l.now())
}

func (l *Ledger) timestamp() time.Time {
	return l.now().UTC()
}

// dateOr returns the date part of t, or today when t is zero.
func (l *Ledger) dateOr(t time.Time) time.Time {
	if t.IsZero() {
		return l.today()
	}
	return interest.DateOnly(t)
}

func optionalDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := interest.DateOnly(*t)
	return &d
}

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// ParseWeekday normalises a weekday name ("Mon", "monday", "MONDAY") to its
// lower-case full form. The empty string is allowed and means "no day".
func ParseWeekday(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, day := range weekdays {
		if s == day || (len(s) >= 3 && strings.HasPrefix(day, s)) {
			return day, nil
		}
	}
	return "", invalid("unknown weekday %q", s)
}

// Weekday returns the lower-case weekday name of t.
func Weekday(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}
