package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcclellann/fredBooks/pkg/auth"
	"github.com/mcclellann/fredBooks/pkg/config"
	"github.com/mcclellann/fredBooks/pkg/export"
	"github.com/mcclellann/fredBooks/pkg/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "fredbooks",
		Short: "Small-business books: loans, sales, expenses and collections",
		Long: `fredbooks keeps the books of a small lender and shop: customers, interest-bearing
loans and their repayments, credit sales, day-to-day expenses and earnings.

Run "fredbooks serve" for the JSON API, or use the other commands to work on the
same database from a terminal.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/fredbooks/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "database path (overrides database.path)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(statementCmd())
	rootCmd.AddCommand(importOFXCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		return err
	}
	if err := config.SetupLogging(os.Stderr, config.FromViper(viper.GetViper()).Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func currentConfig() *config.Config {
	return config.FromViper(viper.GetViper())
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	return s, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Start the HTTP API. Loans are reviewed once at startup and then every
sweep.interval until the server stops.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := currentConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sqliteStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer sqliteStore.Close()

	authService := auth.NewService(sqliteStore, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).WithCost(cfg.Auth.BcryptCost)
	server := NewServer(sqliteStore, authService, export.New(cfg.Export.Locale))

	ctx := cmd.Context()
	if cfg.Sweep.Interval > 0 {
		go server.runSweeper(ctx, cfg.Sweep.Interval)
	} else {
		slog.Warn("Loan review sweeper disabled", "interval", cfg.Sweep.Interval)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", cfg.Server.Addr, "database", cfg.Database.Path, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

// runSweeper reviews loans once immediately and then on every tick until ctx
// is cancelled.
func (s *Server) runSweeper(ctx context.Context, interval time.Duration) {
	sweep := func() {
		slog.Info("Running loan review sweep...")
		summary, err := s.ledger.ReviewLoans(ctx, nil)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Loan review sweep failed", "error", err)
			}
			return
		}
		slog.Info("Loan review sweep complete",
			"reviewed", summary.Reviewed,
			"skipped", summary.Skipped,
			"closed", summary.Closed,
			"overdue", summary.Overdue,
			"failed", summary.Failed,
			"outstanding", summary.Outstanding.StringFixed(2))
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fredbooks %s\n", version)
		},
	}
}
