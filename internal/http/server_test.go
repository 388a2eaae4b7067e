package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/store"
	"tally/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) (*Server, *services.AccountService) {
	t.Helper()
	account := services.NewAccountService(store.NewDocumentStore(memory.New(), "", nil), nil, nil)
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	srv, err := NewServer(opts, account, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, account
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func seed(t *testing.T, account *services.AccountService) {
	t.Helper()
	ctx := context.Background()
	_, err := account.AdjustBalance(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)
	for _, e := range []core.Expense{
		{Subject: "Lunch", Category: core.Food, Date: core.NewDate(2024, 1, 1), Amount: decimal.NewFromInt(10)},
		{Subject: "Fuel", Description: "half tank", Category: core.Gas, Date: core.NewDate(2024, 1, 2), Amount: decimal.NewFromInt(30)},
	} {
		_, err := account.AddExpense(ctx, e)
		require.NoError(t, err)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	for path, body := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, body, rr.Body.String(), path)
	}
}

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (brokenKV) Put(context.Context, string, []byte) error { return errors.New("backend down") }

func TestReadyFailsWhenBackendFails(t *testing.T) {
	account := services.NewAccountService(store.NewDocumentStore(brokenKV{}, "", nil), nil, nil)
	srv, err := NewServer(Options{}, account, nil)
	require.NoError(t, err)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/account", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "backend down")
}

func TestDashboard(t *testing.T) {
	srv, account := newTestServer(t, Options{})
	seed(t, account)

	for _, path := range []string{"/", "/dashboard"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		body := rr.Body.String()
		assert.Contains(t, body, "$60.00")
		assert.Contains(t, body, "/ $100.00")
		assert.Contains(t, body, "Lunch")
		assert.Contains(t, body, "Fuel")
		assert.Contains(t, body, "Total $40.00")
		assert.Contains(t, body, "(75%)")
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	}
}

func TestDashboardEmpty(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses yet.")
	assert.Contains(t, rr.Body.String(), "$0.00")
}

func TestExpensesPage(t *testing.T) {
	srv, account := newTestServer(t, Options{BalanceStep: decimal.NewFromInt(50)})
	seed(t, account)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/expenses", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `name="amount" value="50"`)
	assert.Contains(t, body, `name="amount" value="-50"`)
	assert.Contains(t, body, `action="/expenses/1/delete"`)
	assert.Contains(t, body, `value="2024-03-15"`)
	assert.Contains(t, body, `<option value="Food" selected>`)
	assert.Contains(t, body, "half tank")
}

func TestCreateExpenseForm(t *testing.T) {
	srv, account := newTestServer(t, Options{})

	rr := serve(srv, postForm("/expenses", url.Values{
		"subject":  {"Bus"},
		"category": {"Transportation"},
		"amount":   {"2,50"},
	}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("Location"))

	state, err := account.State(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Expenses, 1)
	e := state.Expenses[0]
	assert.Equal(t, "Bus", e.Subject)
	assert.Equal(t, core.Transportation, e.Category)
	assert.Equal(t, "2024-03-15", e.Date.String())
	assert.True(t, e.Amount.Equal(decimal.RequireFromString("2.5")))
}

func TestCreateExpenseFormRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"bad amount", url.Values{"subject": {"x"}, "amount": {"abc"}}, "invalid amount"},
		{"missing subject", url.Values{"amount": {"3"}}, "empty subject"},
		{"unknown category", url.Values{"subject": {"x"}, "amount": {"3"}, "category": {"Rent"}}, "invalid category"},
		{"bad date", url.Values{"subject": {"x"}, "amount": {"3"}, "date": {"15/03/2024"}}, "invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, account := newTestServer(t, Options{})

			rr := serve(srv, postForm("/expenses", tt.form))
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.message)

			state, err := account.State(context.Background())
			require.NoError(t, err)
			assert.Empty(t, state.Expenses)
		})
	}
}

func TestDeleteExpenseForm(t *testing.T) {
	srv, account := newTestServer(t, Options{})
	seed(t, account)

	rr := serve(srv, postForm("/expenses/0/delete", nil))
	require.Equal(t, http.StatusSeeOther, rr.Code)

	state, err := account.State(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Expenses, 1)
	assert.Equal(t, "Fuel", state.Expenses[0].Subject)

	rr = serve(srv, postForm("/expenses/5/delete", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = serve(srv, postForm("/expenses/abc/delete", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdjustBalanceForm(t *testing.T) {
	srv, account := newTestServer(t, Options{})

	rr := serve(srv, postForm("/balance", url.Values{"amount": {"100"}}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	rr = serve(srv, postForm("/balance", url.Values{"amount": {"-25.5"}}))
	require.Equal(t, http.StatusSeeOther, rr.Code)

	state, err := account.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Balance.Equal(decimal.RequireFromString("74.5")))

	rr = serve(srv, postForm("/balance", url.Values{"amount": {"lots"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestExport(t *testing.T) {
	srv, account := newTestServer(t, Options{})
	seed(t, account)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/export", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv;charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="expenses.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"Subject,Description,Category,Date,Expense\nLunch,,Food,2024-01-01,10\nFuel,half tank,Gas,2024-01-02,30",
		rr.Body.String())

	state, err := account.State(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.Expenses, 2)
}

func TestExportReset(t *testing.T) {
	srv, account := newTestServer(t, Options{})
	seed(t, account)

	rr := serve(srv, postForm("/export/reset", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Lunch,,Food,2024-01-01,10")

	state, err := account.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Equal(core.ZeroState()))
}

func TestAPIAccount(t *testing.T) {
	srv, account := newTestServer(t, Options{})
	seed(t, account)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/account", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"balance": 100,
		"expenses": [
			{"subject":"Lunch","description":"","category":"Food","date":"2024-01-01","expense":10},
			{"subject":"Fuel","description":"half tank","category":"Gas","date":"2024-01-02","expense":30}
		],
		"total": 40,
		"remaining": 60
	}`, rr.Body.String())
}

func TestAPISummary(t *testing.T) {
	srv, account := newTestServer(t, Options{})
	seed(t, account)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got summaryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, json.Number("60"), got.Remaining)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.ByCategory, 2)
	assert.Equal(t, "Food", got.ByCategory[0].Category)
	assert.Equal(t, 25, got.ByCategory[0].Percent)
	assert.Equal(t, "Gas", got.ByCategory[1].Category)
	assert.Len(t, got.Latest, 2)
}

func TestAPICreateExpense(t *testing.T) {
	srv, account := newTestServer(t, Options{})

	rr := serve(srv, postJSON("/api/expenses",
		`{"subject":"Shoes","category":"shopping","date":"2024-02-01","expense":59.99}`))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"expense":59.99`)
	assert.Contains(t, rr.Body.String(), `"remaining":-59.99`)

	state, err := account.State(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Expenses, 1)
	assert.Equal(t, core.Shopping, state.Expenses[0].Category)

	rr = serve(srv, postJSON("/api/expenses", `{"subject":"x","amount":"NaN?"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)

	rr = serve(srv, postJSON("/api/expenses", `{"subject":`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPIRejectsExponentAmounts(t *testing.T) {
	srv, account := newTestServer(t, Options{})

	for _, body := range []string{
		`{"subject":"x","amount":"1e20000000"}`,
		`{"subject":"x","amount":1e2000000}`,
		`{"subject":"x","amount":"10000000000000000"}`,
	} {
		rr := serve(srv, postJSON("/api/expenses", body))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, body)
		assert.Less(t, rr.Body.Len(), 512, body)
	}

	rr := serve(srv, postJSON("/api/balance", `{"amount":"-1E9999999"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	state, err := account.State(context.Background())
	require.NoError(t, err)
	assert.True(t, core.ZeroState().Equal(state))
}

func TestAPIDeleteExpense(t *testing.T) {
	srv, account := newTestServer(t, Options{})
	seed(t, account)

	rr := serve(srv, httptest.NewRequest(http.MethodDelete, "/api/expenses/1", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(srv, httptest.NewRequest(http.MethodDelete, "/api/expenses/1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	state, err := account.State(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Expenses, 1)
	assert.Equal(t, "Lunch", state.Expenses[0].Subject)
}

func TestAPIAdjustBalance(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := serve(srv, postJSON("/api/balance", `{"amount": 250.75}`))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"balance":250.75`)

	rr = serve(srv, postJSON("/api/balance", `{}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestMiddlewareHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "script-src 'none'")
	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	rr = serve(srv, req)
	assert.Equal(t, "upstream-42", rr.Header().Get("X-Request-ID"))
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}

func TestProbeBlocked(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/wp-admin/setup.php", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rr := serve(srv, postJSON("/api/balance", `{"amount": 1}`))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := serve(srv, postJSON("/api/balance", `{"amount": 1}`))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are never limited.
	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/account", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

type panickingAccount struct{ Account }

func (panickingAccount) State(context.Context) (core.AccountState, error) {
	panic("boom")
}

func TestPanicRecovered(t *testing.T) {
	srv, err := NewServer(Options{}, panickingAccount{}, nil)
	require.NoError(t, err)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/account", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := serve(srv, httptest.NewRequest(http.MethodPut, "/expenses", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestSweep(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	serve(srv, postJSON("/api/balance", `{"amount": 1}`))
	// Entries younger than the idle window survive.
	assert.Equal(t, 0, srv.Sweep())
}
