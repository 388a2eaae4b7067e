package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/export"
	"tally/internal/log"
	"tally/internal/services"
)

type dashboardPage struct {
	Summary services.Summary
}

// expenseForm echoes submitted values back after a rejected submission.
type expenseForm struct {
	Subject     string
	Description string
	Category    string
	Date        string
	Amount      string
}

type expensesPage struct {
	State      core.AccountState
	Remaining  decimal.Decimal
	Step       decimal.Decimal
	Categories []core.Category
	Form       expenseForm
	Error      string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.account.Summary(r.Context())
	if err != nil {
		s.pageError(w, r, err, log.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", dashboardPage{Summary: sum})
}

func (s *Server) handleExpensesPage(w http.ResponseWriter, r *http.Request) {
	state, err := s.account.State(r.Context())
	if err != nil {
		s.pageError(w, r, err, log.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "expenses.html", s.newExpensesPage(state, s.blankForm(), ""))
}

func (s *Server) newExpensesPage(state core.AccountState, form expenseForm, msg string) expensesPage {
	return expensesPage{
		State:      state,
		Remaining:  state.RemainingBalance(),
		Step:       s.balanceStep,
		Categories: core.Categories(),
		Form:       form,
		Error:      msg,
	}
}

func (s *Server) blankForm() expenseForm {
	return expenseForm{
		Category: core.DefaultCategory.String(),
		Date:     s.now().Format(core.DateLayout),
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}

	e, err := ParseExpense(p, s.now())
	if err != nil {
		s.rejectForm(w, r, p, err)
		return
	}
	if _, err := s.account.AddExpense(r.Context(), e); err != nil {
		s.pageError(w, r, err, log.OpCreate)
		return
	}
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

// rejectForm re-renders the expenses page with the submitted values and the
// validation message.
func (s *Server) rejectForm(w http.ResponseWriter, r *http.Request, p *RequestBodyParser, cause error) {
	state, err := s.account.State(r.Context())
	if err != nil {
		s.pageError(w, r, err, log.OpRead)
		return
	}
	form := expenseForm{
		Subject:     p.Get("subject"),
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Amount:      p.Get("amount"),
	}
	s.render(w, r, statusFor(cause), "expenses.html", s.newExpensesPage(state, form, cause.Error()))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	index, err := ParseIndex(r)
	if err == nil {
		_, err = s.account.DeleteExpense(r.Context(), index)
	}
	if err != nil {
		s.pageError(w, r, err, log.OpDelete)
		return
	}
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		http.Error(w, "Malformed form", http.StatusBadRequest)
		return
	}
	amount, err := ParseAmountField(p)
	if err == nil {
		_, err = s.account.AdjustBalance(r.Context(), amount)
	}
	if err != nil {
		s.pageError(w, r, err, log.OpAdjust)
		return
	}
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.account.Export(r.Context(), &buf); err != nil {
		s.pageError(w, r, err, log.OpExport)
		return
	}
	writeAttachment(w, buf.Bytes())
}

func (s *Server) handleExportReset(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := s.account.ExportAndReset(r.Context(), &buf); err != nil {
		s.pageError(w, r, err, log.OpReset)
		return
	}
	writeAttachment(w, buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", export.ContentDisposition(export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// pageError answers a page request with a plain-text status. Client errors
// carry their message; server faults are logged and hidden.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).LogFields(r.Context(), slog.LevelError, "Request failed",
			log.NewFields().WithOperation(op).WithError(err).With(log.FieldPath, r.URL.Path))
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
