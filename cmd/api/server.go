package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mcclellann/fredBooks/pkg/auth"
	"github.com/mcclellann/fredBooks/pkg/export"
	"github.com/mcclellann/fredBooks/pkg/ledger"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/mcclellann/fredBooks/pkg/store"
)

// errForbidden is returned when the user's settings hide a feature or disable
// an action.
var errForbidden = errors.New("forbidden")

// Server holds the ledger instance.
type Server struct {
	ledger   *ledger.Ledger
	auth     *auth.Service
	exporter *export.Exporter
	storage  store.Storage // Keep a reference to the storage to close it
}

func NewServer(s store.Storage, a *auth.Service, e *export.Exporter) *Server {
	return &Server{
		ledger:   ledger.NewLedger(s),
		auth:     a,
		exporter: e,
		storage:  s,
	}
}

// Router builds the /api routes. Everything except registration and login
// requires a bearer token; feature routes are additionally gated by the
// user's settings.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods("GET")
	api.HandleFunc("/auth/register", s.registerHandler).Methods("POST")
	api.HandleFunc("/auth/login", s.loginHandler).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(s.auth.Middleware)
	protected.HandleFunc("/me", s.meHandler).Methods("GET")
	protected.HandleFunc("/settings", s.getSettingsHandler).Methods("GET")
	protected.HandleFunc("/settings", s.updateSettingsHandler).Methods("PUT")
	protected.HandleFunc("/dashboard", s.dashboardHandler).Methods("GET")

	customers := protected.PathPrefix("/customers").Subrouter()
	customers.Use(s.gate(models.TabCustomers))
	customers.HandleFunc("", s.listCustomersHandler).Methods("GET")
	customers.HandleFunc("", s.createCustomerHandler).Methods("POST")
	customers.HandleFunc("/{id}", s.getCustomerHandler).Methods("GET")
	customers.HandleFunc("/{id}", s.updateCustomerHandler).Methods("PUT")
	customers.HandleFunc("/{id}", s.deleteCustomerHandler).Methods("DELETE")
	customers.HandleFunc("/{id}/statement", s.customerStatementHandler).Methods("GET")

	loans := protected.PathPrefix("/loans").Subrouter()
	loans.Use(s.gate(models.TabLoans))
	loans.HandleFunc("", s.listLoansHandler).Methods("GET")
	loans.HandleFunc("", s.createLoanHandler).Methods("POST")
	loans.HandleFunc("/{id}", s.getLoanHandler).Methods("GET")
	loans.HandleFunc("/{id}", s.updateLoanHandler).Methods("PUT")
	loans.HandleFunc("/{id}", s.deleteLoanHandler).Methods("DELETE")
	loans.HandleFunc("/{id}/transactions", s.listPaymentsHandler).Methods("GET")
	loans.HandleFunc("/{id}/transactions", s.recordPaymentHandler).Methods("POST")
	loans.HandleFunc("/{id}/transactions/{txID}", s.deletePaymentHandler).Methods("DELETE")
	loans.HandleFunc("/{id}/statement", s.loanStatementHandler).Methods("GET")

	entries := protected.PathPrefix("/entries").Subrouter()
	entries.Use(s.gate(models.TabExpenses))
	entries.HandleFunc("", s.listEntriesHandler).Methods("GET")
	entries.HandleFunc("", s.createEntryHandler).Methods("POST")
	entries.HandleFunc("/summary", s.entrySummaryHandler).Methods("GET")
	entries.HandleFunc("/import/ofx", s.importOFXHandler).Methods("POST")
	entries.HandleFunc("/{id}", s.getEntryHandler).Methods("GET")
	entries.HandleFunc("/{id}", s.updateEntryHandler).Methods("PUT")
	entries.HandleFunc("/{id}", s.deleteEntryHandler).Methods("DELETE")

	sales := protected.PathPrefix("/sales").Subrouter()
	sales.Use(s.gate(models.TabSales))
	sales.HandleFunc("", s.listSalesHandler).Methods("GET")
	sales.HandleFunc("", s.createSaleHandler).Methods("POST")
	sales.HandleFunc("/{id}", s.getSaleHandler).Methods("GET")
	sales.HandleFunc("/{id}", s.updateSaleHandler).Methods("PUT")
	sales.HandleFunc("/{id}", s.deleteSaleHandler).Methods("DELETE")
	sales.HandleFunc("/{id}/payments", s.listSalePaymentsHandler).Methods("GET")
	sales.HandleFunc("/{id}/payments", s.recordSalePaymentHandler).Methods("POST")

	daywise := protected.PathPrefix("/schedule/daywise").Subrouter()
	daywise.Use(s.gate(models.TabDaywise))
	daywise.HandleFunc("", s.daywiseHandler).Methods("GET")

	datewise := protected.PathPrefix("/schedule/datewise").Subrouter()
	datewise.Use(s.gate(models.TabDatewise))
	datewise.HandleFunc("", s.datewiseHandler).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "route not found")
	})
	return router
}

// Handler wraps the router with panic recovery, CORS and request logging.
func (s *Server) Handler(corsOrigins []string) http.Handler {
	var h http.Handler = s.Router()
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}), handlers.PrintRecoveryStack(true))(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{"Content-Disposition"}),
	)(h)
	return handlers.CustomLoggingHandler(io.Discard, h, logRequest)
}

func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	level := slog.LevelInfo
	if p.StatusCode >= 500 {
		level = slog.LevelError
	}
	slog.Log(p.Request.Context(), level, "HTTP request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"bytes", p.Size,
		"duration", time.Since(p.TimeStamp).String(),
	)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	slog.Error("Recovered from panic in handler", "panic", fmt.Sprint(v...))
}

var controlForMethod = map[string]models.Control{
	http.MethodPost:   models.ControlAdd,
	http.MethodPut:    models.ControlEdit,
	http.MethodDelete: models.ControlDelete,
}

// gate rejects requests to a hidden tab, and mutations the user has disabled.
func (s *Server) gate(tab models.Tab) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := auth.UserID(r.Context())
			settings, err := s.ledger.GetSettings(r.Context(), userID)
			if err != nil {
				writeError(w, err)
				return
			}
			if !settings.TabVisible(tab) {
				writeError(w, fmt.Errorf("%w: the %s tab is hidden", errForbidden, tab))
				return
			}
			if control, ok := controlForMethod[r.Method]; ok && !settings.Allows(control) {
				writeError(w, fmt.Errorf("%w: %s is disabled", errForbidden, control))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func currentUser(r *http.Request) uuid.UUID {
	id, _ := auth.UserID(r.Context())
	return id
}

// pathID parses a UUID route variable.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", ledger.ErrValidation, name)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", ledger.ErrValidation, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, auth.ErrInvalidInput), errors.Is(err, export.ErrUnknownFormat):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, ledger.ErrLoanClosed), errors.Is(err, ledger.ErrSalePaid):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		writeErrorMessage(w, status, "internal server error")
		return
	}
	writeErrorMessage(w, status, err.Error())
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	t, err := parseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", ledger.ErrValidation, name)
	}
	return &t, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", ledger.ErrValidation, name)
	}
	return &id, nil
}
