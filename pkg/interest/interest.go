// Package interest holds the only implementation of loan interest accrual and
// outstanding-balance computation. Every caller that needs a derived loan value
// (API responses, statements, dashboards, the review sweep) goes through here.
package interest

import (
	"time"

	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	one          = decimal.NewFromInt(1)
	hundred      = decimal.NewFromInt(100)
	daysInYear   = decimal.NewFromInt(365)
	daysInMonth  = decimal.NewFromInt(30)
	monthsInYear = decimal.NewFromInt(12)
)

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of whole calendar days from one date to another,
// or zero when to is not after from.
func Days(from, to time.Time) int {
	a, b := DateOnly(from), DateOnly(to)
	if !b.After(a) {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// addMonths moves t forward n calendar months, clamping to the last day of the
// target month (Jan 31 + 1 month is Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// MonthCount returns whole calendar months between the dates plus the
// remaining days as a fraction of a 30-day month.
func MonthCount(from, to time.Time) decimal.Decimal {
	a, b := DateOnly(from), DateOnly(to)
	if !b.After(a) {
		return decimal.Zero
	}

	whole := (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
	if b.Day() < a.Day() {
		whole--
	}
	rest := Days(addMonths(a, whole), b)

	return decimal.NewFromInt(int64(whole)).Add(decimal.NewFromInt(int64(rest)).Div(daysInMonth))
}

// Accrue returns the interest earned by balance between from and to.
// ratePercent is annual for daily and simple loans and monthly for monthly and
// compound loans.
func Accrue(balance, ratePercent decimal.Decimal, kind models.InterestType, from, to time.Time) decimal.Decimal {
	if !balance.IsPositive() || !ratePercent.IsPositive() {
		return decimal.Zero
	}
	r := ratePercent.Div(hundred)

	switch kind {
	case models.InterestDaily:
		days := decimal.NewFromInt(int64(Days(from, to)))
		return balance.Mul(r).Mul(days).Div(daysInYear)
	case models.InterestMonthly:
		return balance.Mul(r).Mul(MonthCount(from, to))
	case models.InterestSimple:
		return balance.Mul(r).Mul(MonthCount(from, to)).Div(monthsInYear)
	case models.InterestCompound:
		months := MonthCount(from, to)
		whole := months.IntPart()
		frac := months.Sub(decimal.NewFromInt(whole))
		growth := pow(one.Add(r), whole).Mul(one.Add(r.Mul(frac)))
		return balance.Mul(growth.Sub(one))
	}
	return decimal.Zero
}

func pow(base decimal.Decimal, n int64) decimal.Decimal {
	result := one
	for ; n > 0; n-- {
		result = result.Mul(base)
	}
	return result
}

// Round2 rounds an amount for presentation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
