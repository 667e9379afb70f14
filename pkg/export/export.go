// Package export renders loan and customer statements as JSON, CSV, XLSX or PDF.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mcclellann/fredBooks/pkg/ledger"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrUnknownFormat is returned for a format name that has no renderer.
var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a case-insensitive name to a Format; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/json"
}

// Filename builds a download name such as "loan_1a2b3c4d_20240301.pdf".
func (f Format) Filename(prefix, id string, at time.Time) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s.%s", prefix, id, at.Format("20060102"), f)
}

// Exporter writes statements, formatting amounts for one locale in the
// human-readable formats.
type Exporter struct {
	printer *message.Printer
	point   string
}

// New creates an Exporter for a BCP 47 locale such as "en-IN". Unparseable
// locales fall back to English.
func New(locale string) *Exporter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	point := strings.Trim(p.Sprintf("%.1f", 0.5), "05")
	if point == "" {
		point = "."
	}
	return &Exporter{printer: p, point: point}
}

// Amount formats a money amount with the locale's digit grouping. The digits
// come from the decimal itself; integer parts beyond int64 are left ungrouped.
func (e *Exporter) Amount(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		whole = e.printer.Sprintf("%d", n)
	}
	out := whole + e.point + frac
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

// WriteLoanStatement renders a loan statement in the given format.
func (e *Exporter) WriteLoanStatement(w io.Writer, format Format, s *ledger.LoanStatement) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatCSV:
		return e.loanCSV(w, s)
	case FormatXLSX:
		return e.loanXLSX(w, s)
	case FormatPDF:
		return e.loanPDF(w, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteCustomerStatement renders a customer statement in the given format.
func (e *Exporter) WriteCustomerStatement(w io.Writer, format Format, s *ledger.CustomerStatement) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatCSV:
		return e.customerCSV(w, s)
	case FormatXLSX:
		return e.customerXLSX(w, s)
	case FormatPDF:
		return e.customerPDF(w, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func date(t time.Time) string {
	return t.Format(time.DateOnly)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return date(*t)
}

// plain formats an amount for machine-readable output.
func plain(d decimal.Decimal) string {
	return d.StringFixed(2)
}
