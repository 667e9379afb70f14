package main

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/export"
	"github.com/mcclellann/fredBooks/pkg/ledger"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

type loanRequest struct {
	CustomerID           uuid.UUID           `json:"customer_id"`
	Principal            decimal.Decimal     `json:"principal"`
	BaseInterestRate     decimal.Decimal     `json:"base_interest_rate"`
	InterestRateVariance decimal.Decimal     `json:"interest_rate_variance"`
	InterestType         models.InterestType `json:"interest_type"`
	LoanDate             Date                `json:"loan_date"`
	DueDate              *Date               `json:"due_date"`
	Notes                string              `json:"notes"`
}

func (req loanRequest) input() ledger.LoanInput {
	return ledger.LoanInput{
		CustomerID:           req.CustomerID,
		Principal:            req.Principal,
		BaseInterestRate:     req.BaseInterestRate,
		InterestRateVariance: req.InterestRateVariance,
		InterestType:         req.InterestType,
		LoanDate:             req.LoanDate.Time,
		DueDate:              req.DueDate.Ptr(),
		Notes:                req.Notes,
	}
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	loan, err := s.ledger.CreateLoan(r.Context(), currentUser(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	loan, err := s.ledger.GetLoan(r.Context(), currentUser(r), loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryUUID(r, "customer_id")
	if err != nil {
		writeError(w, err)
		return
	}
	filter := models.LoanFilter{CustomerID: customerID, Status: models.LoanStatus(r.URL.Query().Get("status"))}

	loans, err := s.ledger.ListLoans(r.Context(), currentUser(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req loanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	loan, err := s.ledger.UpdateLoan(r.Context(), currentUser(r), loanID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.DeleteLoan(r.Context(), currentUser(r), loanID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Amount      decimal.Decimal        `json:"amount"`
		Type        models.TransactionType `json:"type"`
		PaymentDate Date                   `json:"payment_date"`
		Notes       string                 `json:"notes"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tx, err := s.ledger.RecordPayment(r.Context(), currentUser(r), loanID, ledger.PaymentInput{
		Amount:      req.Amount,
		Type:        req.Type,
		PaymentDate: req.PaymentDate.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	txs, err := s.ledger.ListPayments(r.Context(), currentUser(r), loanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) deletePaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	txID, err := pathID(r, "txID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.DeletePayment(r.Context(), currentUser(r), loanID, txID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loanStatementHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	format, asOf, err := statementParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stmt, err := s.ledger.LoanStatement(r.Context(), currentUser(r), loanID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := s.exporter.WriteLoanStatement(&buf, format, stmt); err != nil {
		writeError(w, fmt.Errorf("failed to render loan statement: %w", err))
		return
	}
	writeDocument(w, format, format.Filename("loan", loanID.String(), stmt.Position.AsOf), &buf)
}

func (s *Server) customerStatementHandler(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	format, asOf, err := statementParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stmt, err := s.ledger.CustomerStatement(r.Context(), currentUser(r), customerID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := s.exporter.WriteCustomerStatement(&buf, format, stmt); err != nil {
		writeError(w, fmt.Errorf("failed to render customer statement: %w", err))
		return
	}
	writeDocument(w, format, format.Filename("customer", customerID.String(), stmt.GeneratedAt), &buf)
}

func statementParams(r *http.Request) (export.Format, time.Time, error) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return "", time.Time{}, err
	}
	asOf, err := queryDate(r, "as_of")
	if err != nil || asOf == nil {
		return format, time.Time{}, err
	}
	return format, *asOf, nil
}

func writeDocument(w http.ResponseWriter, format export.Format, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", format.ContentType())
	if format != export.FormatJSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
