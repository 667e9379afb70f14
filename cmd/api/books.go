package main

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mcclellann/fredBooks/pkg/ledger"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/shopspring/decimal"
)

const maxUploadBytes = 10 << 20

// Customers

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.CustomerInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.ledger.CreateCustomer(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.ledger.GetCustomer(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := s.ledger.ListCustomers(r.Context(), currentUser(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var in ledger.CustomerInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.ledger.UpdateCustomer(r.Context(), currentUser(r), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.DeleteCustomer(r.Context(), currentUser(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Entries

type entryRequest struct {
	Type          models.EntryType     `json:"type"`
	Amount        decimal.Decimal      `json:"amount"`
	Description   string               `json:"description"`
	Category      string               `json:"category"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Date          Date                 `json:"date"`
}

func (req entryRequest) input() ledger.EntryInput {
	return ledger.EntryInput{
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Date:          req.Date.Time,
	}
}

func entryFilter(r *http.Request) (models.EntryFilter, error) {
	q := r.URL.Query()
	filter := models.EntryFilter{
		Type:     models.EntryType(q.Get("type")),
		Category: strings.TrimSpace(q.Get("category")),
	}
	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (s *Server) createEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.ledger.CreateEntry(r.Context(), currentUser(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) getEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := s.ledger.GetEntry(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) listEntriesHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := entryFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.ledger.ListEntries(r.Context(), currentUser(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) updateEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.ledger.UpdateEntry(r.Context(), currentUser(r), id, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.DeleteEntry(r.Context(), currentUser(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) entrySummaryHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := entryFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := s.ledger.Summarize(r.Context(), currentUser(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// importOFXHandler accepts the statement either as a multipart "file" field
// or as the raw request body.
func (s *Server) importOFXHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var src io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, fmt.Errorf("%w: multipart upload needs a \"file\" field: %v", ledger.ErrValidation, err))
			return
		}
		defer file.Close()
		src = file
	}

	result, err := s.ledger.ImportOFX(r.Context(), currentUser(r), src)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Sales

type saleRequest struct {
	CustomerID  *uuid.UUID      `json:"customer_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SaleDate    Date            `json:"sale_date"`
	DueDate     *Date           `json:"due_date"`
	Notes       string          `json:"notes"`
}

func (req saleRequest) input() ledger.SaleInput {
	return ledger.SaleInput{
		CustomerID:  req.CustomerID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		SaleDate:    req.SaleDate.Time,
		DueDate:     req.DueDate.Ptr(),
		Notes:       req.Notes,
	}
}

func (s *Server) createSaleHandler(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sale, err := s.ledger.CreateSale(r.Context(), currentUser(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) getSaleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	sale, err := s.ledger.GetSale(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) listSalesHandler(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryUUID(r, "customer_id")
	if err != nil {
		writeError(w, err)
		return
	}
	filter := models.SaleFilter{CustomerID: customerID, Status: models.SaleStatus(r.URL.Query().Get("status"))}
	sales, err := s.ledger.ListSales(r.Context(), currentUser(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) updateSaleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req saleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sale, err := s.ledger.UpdateSale(r.Context(), currentUser(r), id, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) deleteSaleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.DeleteSale(r.Context(), currentUser(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordSalePaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		PaymentDate Date            `json:"payment_date"`
		Notes       string          `json:"notes"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.ledger.RecordSalePayment(r.Context(), currentUser(r), id, ledger.SalePaymentInput{
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) listSalePaymentsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	payments, err := s.ledger.ListSalePayments(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
