package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/export"
	"github.com/mcclellann/fredBooks/pkg/ledger"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/mcclellann/fredBooks/pkg/store"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// lookupUser resolves the --user flag, an account email.
func lookupUser(ctx context.Context, s store.Storage, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("--user is required")
	}
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s: %w", email, err)
	}
	return user, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.
Migrations also run automatically whenever the database is opened.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := currentConfig()
			slog.Info("Starting database migration", "database", cfg.Database.Path)

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			current, err := s.SchemaVersion(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", headerStyle.Render("Database"), cfg.Database.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d (latest %d)\n", headerStyle.Render("Schema version"), current, store.ExpectedSchemaVersion)
			return nil
		},
	}
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Review open loans once",
		Long: `Recompute every active and overdue loan as of today and update its status.
Loans already reviewed today are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore(currentConfig())
			if err != nil {
				return err
			}
			defer s.Close()

			quiet, _ := cmd.Flags().GetBool("quiet")
			var bar *progressbar.ProgressBar
			progress := func(total int) {
				if quiet {
					return
				}
				if bar == nil {
					bar = newProgressBar(cmd.ErrOrStderr(), total, "Reviewing loans...")
				}
				if err := bar.Add(1); err != nil {
					slog.Warn("Failed to update progress bar", "error", err)
				}
			}

			summary, err := ledger.NewLedger(s).ReviewLoans(cmd.Context(), progress)
			if err != nil {
				return fmt.Errorf("review failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render("Loan review"))
			fmt.Fprintf(out, "  reviewed    %d\n", summary.Reviewed)
			fmt.Fprintf(out, "  skipped     %s\n", mutedStyle.Render(fmt.Sprint(summary.Skipped)))
			fmt.Fprintf(out, "  closed      %d\n", summary.Closed)
			fmt.Fprintf(out, "  overdue     %s\n", warnStyle.Render(fmt.Sprint(summary.Overdue)))
			fmt.Fprintf(out, "  outstanding %s\n", summary.Outstanding.StringFixed(2))
			if summary.Failed > 0 {
				return fmt.Errorf("%d loans could not be reviewed", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("quiet", "q", false, "Do not show a progress bar")
	return cmd
}

func statementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Export a loan or customer statement",
		Example: `  fredbooks statement --user me@example.com --loan 6f1c... --format pdf --out loan.pdf
  fredbooks statement --user me@example.com --customer 2b7e... --format xlsx`,
		RunE: runStatement,
	}
	cmd.Flags().String("user", "", "Account email")
	cmd.Flags().String("loan", "", "Loan ID")
	cmd.Flags().String("customer", "", "Customer ID")
	cmd.Flags().StringP("format", "f", "pdf", "Output format (json, csv, xlsx, pdf)")
	cmd.Flags().StringP("out", "o", "", "Output file (default: generated name in the current directory, - for stdout)")
	cmd.Flags().String("as-of", "", "Statement date, YYYY-MM-DD (default: today)")
	cmd.MarkFlagsMutuallyExclusive("loan", "customer")
	cmd.MarkFlagsOneRequired("loan", "customer")
	return cmd
}

func runStatement(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")
	loanFlag, _ := cmd.Flags().GetString("loan")
	customerFlag, _ := cmd.Flags().GetString("customer")
	formatFlag, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")
	asOfFlag, _ := cmd.Flags().GetString("as-of")

	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	var asOf time.Time
	if asOfFlag != "" {
		if asOf, err = parseDate(asOfFlag); err != nil {
			return fmt.Errorf("invalid --as-of %q: use YYYY-MM-DD", asOfFlag)
		}
	}

	cfg := currentConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := lookupUser(ctx, s, email)
	if err != nil {
		return err
	}
	l := ledger.NewLedger(s)
	exporter := export.New(cfg.Export.Locale)

	var (
		render   func(io.Writer) error
		filename string
	)
	if loanFlag != "" {
		loanID, err := uuid.Parse(loanFlag)
		if err != nil {
			return fmt.Errorf("invalid --loan: %w", err)
		}
		stmt, err := l.LoanStatement(ctx, user.ID, loanID, asOf)
		if err != nil {
			return err
		}
		render = func(w io.Writer) error { return exporter.WriteLoanStatement(w, format, stmt) }
		filename = format.Filename("loan", loanID.String(), stmt.Position.AsOf)
	} else {
		customerID, err := uuid.Parse(customerFlag)
		if err != nil {
			return fmt.Errorf("invalid --customer: %w", err)
		}
		stmt, err := l.CustomerStatement(ctx, user.ID, customerID, asOf)
		if err != nil {
			return err
		}
		render = func(w io.Writer) error { return exporter.WriteCustomerStatement(w, format, stmt) }
		filename = format.Filename("customer", customerID.String(), stmt.GeneratedAt)
	}

	if outPath == "-" {
		return render(cmd.OutOrStdout())
	}
	if outPath == "" {
		outPath = filename
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write statement: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}
	slog.Info("Statement written", "path", outPath, "format", format)
	return nil
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx FILE...",
		Short: "Import bank or card statements (OFX/QFX) as expenses and earnings",
		Long: `Import one or more OFX/QFX statement files. Debits become expenses and
credits become earnings. Transactions seen in an earlier import are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
	cmd.Flags().String("user", "", "Account email")
	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")

	s, err := openStore(currentConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := lookupUser(ctx, s, email)
	if err != nil {
		return err
	}
	l := ledger.NewLedger(s)

	var total ledger.ImportResult
	var failed []string
	bar := newProgressBar(cmd.ErrOrStderr(), len(args), "Importing statements...")
	for _, path := range args {
		result, err := importFile(ctx, l, user.ID, path)
		if err != nil {
			slog.Error("Failed to import statement", "file", path, "error", err)
			failed = append(failed, path)
		} else {
			total.Imported += result.Imported
			total.Duplicates += result.Duplicates
			total.Skipped += result.Skipped
		}
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("OFX import"))
	fmt.Fprintf(out, "  imported   %d\n", total.Imported)
	fmt.Fprintf(out, "  duplicates %s\n", mutedStyle.Render(fmt.Sprint(total.Duplicates)))
	fmt.Fprintf(out, "  skipped    %s\n", mutedStyle.Render(fmt.Sprint(total.Skipped)))
	if len(failed) > 0 {
		return fmt.Errorf("failed to import %d of %d files: %s", len(failed), len(args), strings.Join(failed, ", "))
	}
	return nil
}

func importFile(ctx context.Context, l *ledger.Ledger, userID uuid.UUID, path string) (*ledger.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.ImportOFX(ctx, userID, f)
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show who pays on which weekday",
		RunE:  runSchedule,
	}
	cmd.Flags().String("user", "", "Account email")
	cmd.Flags().String("day", "", "Only this weekday (monday..sunday)")
	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("user")
	day, _ := cmd.Flags().GetString("day")

	cfg := currentConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := lookupUser(ctx, s, email)
	if err != nil {
		return err
	}
	groups, err := ledger.NewLedger(s).Daywise(ctx, user.ID, day)
	if err != nil {
		return err
	}

	exporter := export.New(cfg.Export.Locale)
	out := cmd.OutOrStdout()
	for _, g := range groups {
		if len(g.Customers) == 0 && day == "" {
			continue
		}
		fmt.Fprintf(out, "%s  %s\n", headerStyle.Render(strings.ToUpper(g.Day)), mutedStyle.Render(exporter.Amount(g.Outstanding)))
		if len(g.Customers) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("  (no customers)"))
			continue
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(mutedStyle).
			Headers("CUSTOMER", "PHONE", "LOANS", "OUTSTANDING", "INTEREST DUE").
			StyleFunc(func(row, col int) lipgloss.Style {
				style := lipgloss.NewStyle().Padding(0, 1)
				if row == table.HeaderRow {
					return style.Bold(true)
				}
				if col >= 2 {
					return style.Align(lipgloss.Right)
				}
				return style
			})
		for _, c := range g.Customers {
			t.Row(c.Name, c.Phone, fmt.Sprint(c.ActiveLoans), exporter.Amount(c.Outstanding), exporter.Amount(c.InterestDue))
		}
		fmt.Fprintln(out, t.Render())
	}
	return nil
}
