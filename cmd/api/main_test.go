package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcclellann/fredBooks/pkg/auth"
	"github.com/mcclellann/fredBooks/pkg/export"
	"github.com/mcclellann/fredBooks/pkg/models"
	"github.com/mcclellann/fredBooks/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-0123456789"

type testAPI struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func setupTestServer(t *testing.T) *testAPI {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	authService := auth.NewService(s, testSecret, time.Hour).WithCost(bcrypt.MinCost)
	server := NewServer(s, authService, export.New("en-IN"))
	return &testAPI{t: t, handler: server.Handler([]string{"*"})}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// signIn registers and logs in a fresh account.
func (a *testAPI) signIn(email string) {
	a.t.Helper()
	rr := a.do("POST", "/api/auth/register", map[string]string{"email": email, "password": "correct horse", "name": "Fred"})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = a.do("POST", "/api/auth/login", map[string]string{"email": email, "password": "correct horse"})
	require.Equal(a.t, http.StatusOK, rr.Code, rr.Body.String())
	login := decodeBody[struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}](a.t, rr)
	require.NotEmpty(a.t, login.Token)
	assert.Equal(a.t, email, login.User.Email)
	a.token = login.Token
}

func (a *testAPI) createCustomer(name string) models.Customer {
	a.t.Helper()
	rr := a.do("POST", "/api/customers", map[string]string{"name": name, "phone": "555-0100", "payment_day": "Monday"})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[models.Customer](a.t, rr)
}

func TestAPI_Health(t *testing.T) {
	api := setupTestServer(t)
	rr := api.do("GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestAPI_RequiresToken(t *testing.T) {
	api := setupTestServer(t)

	rr := api.do("GET", "/api/loans", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	api.token = "not-a-token"
	rr = api.do("GET", "/api/customers", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_Auth(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")

	rr := api.do("POST", "/api/auth/register", map[string]string{"email": "FRED@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do("POST", "/api/auth/login", map[string]string{"email": "fred@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do("POST", "/api/auth/register", map[string]string{"email": "nobody", "password": "correct horse"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do("GET", "/api/me", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "fred@example.com", me["email"])
	assert.Contains(t, me, "settings")
}

func TestAPI_LoanFlow(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")
	customer := api.createCustomer("Asha")

	rr := api.do("POST", "/api/loans", map[string]any{
		"customer_id":        customer.ID,
		"principal":          "1000",
		"base_interest_rate": "2",
		"interest_type":      "monthly",
		"loan_date":          "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	loan := decodeBody[models.Loan](t, rr)
	assert.True(t, loan.InterestRate.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, models.LoanStatusActive, loan.Status)

	rr = api.do("GET", "/api/loans/"+loan.ID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "Asha", view["customer_name"])
	assert.Contains(t, view, "position")

	rr = api.do("POST", "/api/loans/"+loan.ID.String()+"/transactions", map[string]any{
		"amount":       "20",
		"type":         "interest",
		"payment_date": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx := decodeBody[models.Transaction](t, rr)

	rr = api.do("GET", "/api/loans/"+loan.ID.String()+"/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.Transaction](t, rr), 1)

	rr = api.do("GET", "/api/loans?customer_id="+customer.ID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rr), 1)

	rr = api.do("DELETE", "/api/loans/"+loan.ID.String()+"/transactions/"+tx.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do("DELETE", "/api/customers/"+customer.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rr.Code, "customer with loans cannot be deleted")

	rr = api.do("DELETE", "/api/loans/"+loan.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do("GET", "/api/loans/"+loan.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_LoanErrors(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")
	customer := api.createCustomer("Asha")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"zero principal", "POST", "/api/loans", map[string]any{"customer_id": customer.ID, "principal": "0"}, http.StatusBadRequest},
		{"unknown field", "POST", "/api/loans", map[string]any{"customer_key": "x", "principal": "10"}, http.StatusBadRequest},
		{"bad date", "POST", "/api/loans", map[string]any{"customer_id": customer.ID, "principal": "10", "loan_date": "01/02/2024"}, http.StatusBadRequest},
		{"unknown customer", "POST", "/api/loans", map[string]any{"customer_id": "6f1c7c36-5b8e-4b53-9d55-0b2b8b9a2a10", "principal": "10"}, http.StatusNotFound},
		{"bad id", "GET", "/api/loans/not-a-uuid", nil, http.StatusBadRequest},
		{"missing loan", "GET", "/api/loans/6f1c7c36-5b8e-4b53-9d55-0b2b8b9a2a10", nil, http.StatusNotFound},
		{"bad status filter", "GET", "/api/sales?status=sideways", nil, http.StatusBadRequest},
		{"unknown route", "GET", "/api/nowhere", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.Contains(t, rr.Body.String(), `"error"`)
		})
	}
}

func TestAPI_UsersAreIsolated(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")
	customer := api.createCustomer("Asha")

	api.signIn("george@example.com")
	rr := api.do("GET", "/api/customers/"+customer.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do("GET", "/api/customers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[[]models.Customer](t, rr))
}

func TestAPI_SettingsGate(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")

	rr := api.do("PUT", "/api/settings", map[string]bool{"show_sales": false, "can_delete": false})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	settings := decodeBody[models.UserSettings](t, rr)
	assert.False(t, settings.ShowSales)
	assert.True(t, settings.ShowLoans, "omitted fields keep their value")

	rr = api.do("GET", "/api/sales", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	customer := api.createCustomer("Asha")
	rr = api.do("DELETE", "/api/customers/"+customer.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do("GET", "/api/customers/"+customer.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPI_SalesAndEntries(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")
	customer := api.createCustomer("Asha")

	rr := api.do("POST", "/api/sales", map[string]any{
		"customer_id": customer.ID,
		"description": "Rice, 25kg",
		"quantity":    "2",
		"unit_price":  "50",
		"sale_date":   "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sale := decodeBody[models.Sale](t, rr)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(100)))

	rr = api.do("POST", "/api/sales/"+sale.ID.String()+"/payments", map[string]any{"amount": "150", "payment_date": "2024-03-02"})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "overpayment is rejected")

	rr = api.do("POST", "/api/sales/"+sale.ID.String()+"/payments", map[string]any{"amount": "100", "payment_date": "2024-03-02"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = api.do("POST", "/api/sales/"+sale.ID.String()+"/payments", map[string]any{"amount": "1", "payment_date": "2024-03-03"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do("GET", "/api/sales/"+sale.ID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(models.SaleStatusPaid), decodeBody[map[string]any](t, rr)["status"])

	for _, e := range []map[string]any{
		{"type": "expense", "amount": "40", "description": "Diesel", "category": "Fuel", "date": "2024-03-04"},
		{"type": "earning", "amount": "500", "description": "Consulting", "date": "2024-03-05"},
	} {
		rr = api.do("POST", "/api/entries", e)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = api.do("GET", "/api/entries?type=expense", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.Entry](t, rr), 1)

	rr = api.do("GET", "/api/entries/summary?from=2024-03-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decodeBody[struct {
		Net decimal.Decimal `json:"net"`
	}](t, rr)
	assert.True(t, summary.Net.Equal(decimal.NewFromInt(460)), summary.Net.String())

	rr = api.do("GET", "/api/schedule/datewise?from=2024-03-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	report := decodeBody[struct {
		SaleTotal decimal.Decimal `json:"sale_total"`
	}](t, rr)
	assert.True(t, report.SaleTotal.Equal(decimal.NewFromInt(100)), report.SaleTotal.String())

	rr = api.do("GET", "/api/schedule/datewise?from=2024-03-31&to=2024-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do("GET", "/api/schedule/daywise?day=monday", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	groups := decodeBody[[]map[string]any](t, rr)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0]["customers"], 1)

	rr = api.do("GET", "/api/dashboard", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

const testOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>0001
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240301120000[0:GMT]
<DTEND>20240315120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240305120000[0:GMT]
<TRNAMT>-12.00
<FITID>A1
<NAME>Hardware store
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>100.00
<DTASOF>20240315120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestAPI_ImportOFX(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "march.ofx")
	require.NoError(t, err)
	_, err = part.Write([]byte(testOFX))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	upload := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/entries/import/ofx", bytes.NewReader(body.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+api.token)
		rr := httptest.NewRecorder()
		api.handler.ServeHTTP(rr, req)
		return rr
	}

	rr := upload()
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decodeBody[map[string]any](t, rr)["imported"])

	rr = upload()
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.EqualValues(t, 1, decodeBody[map[string]any](t, rr)["duplicates"])
}

func TestAPI_StatementDownload(t *testing.T) {
	api := setupTestServer(t)
	api.signIn("fred@example.com")
	customer := api.createCustomer("Asha")

	rr := api.do("POST", "/api/loans", map[string]any{
		"customer_id":        customer.ID,
		"principal":          "1200",
		"base_interest_rate": "2",
		"interest_type":      "monthly",
		"loan_date":          "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	loan := decodeBody[models.Loan](t, rr)

	rr = api.do("GET", "/api/loans/"+loan.ID.String()+"/statement?format=csv&as_of=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "_20240301.csv")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "date,kind,description"))

	rr = api.do("GET", "/api/customers/"+customer.ID.String()+"/statement?format=pdf", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = api.do("GET", "/api/loans/"+loan.ID.String()+"/statement?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Browser downloads pass the token as a query parameter.
	token := api.token
	api.token = ""
	rr = api.do("GET", "/api/loans/"+loan.ID.String()+"/statement?token="+token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Content-Disposition"))
}
