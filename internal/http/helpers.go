package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/store"
)

// accountResponse is the stored document plus its derived totals.
type accountResponse struct {
	store.Document
	Total     json.Number `json:"total"`
	Remaining json.Number `json:"remaining"`
}

func newAccountResponse(state core.AccountState) accountResponse {
	return accountResponse{
		Document:  store.FromState(state),
		Total:     number(state.TotalExpenses()),
		Remaining: number(state.RemainingBalance()),
	}
}

type categoryResponse struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
	Percent  int         `json:"percent"`
}

type summaryResponse struct {
	Balance    json.Number             `json:"balance"`
	Total      json.Number             `json:"total"`
	Remaining  json.Number             `json:"remaining"`
	Count      int                     `json:"count"`
	ByCategory []categoryResponse      `json:"byCategory"`
	Latest     []store.DocumentExpense `json:"latest"`
}

func newSummaryResponse(sum services.Summary) summaryResponse {
	resp := summaryResponse{
		Balance:    number(sum.Balance),
		Total:      number(sum.Total),
		Remaining:  number(sum.Remaining),
		Count:      sum.Count,
		ByCategory: make([]categoryResponse, 0, len(sum.Shares)),
		Latest:     store.FromState(core.AccountState{Expenses: sum.Latest}).Expenses,
	}
	for _, sh := range sum.Shares {
		resp.ByCategory = append(resp.ByCategory, categoryResponse{
			Category: sh.Category.String(),
			Amount:   number(sh.Amount),
			Percent:  sh.Percent,
		})
	}
	return resp
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to client statuses; anything else is a server
// fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptySubject):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeAPIError answers with a JSON error body. Server faults are logged and
// their details withheld.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, log.NewFields().With(log.FieldPath, r.URL.Path))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// render executes a page template into a buffer first so a template failure
// never leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": core.FormatAmount,
		"neg":   func(d decimal.Decimal) decimal.Decimal { return d.Neg() },
		"isNeg": func(d decimal.Decimal) bool { return d.IsNegative() },
	}
}
