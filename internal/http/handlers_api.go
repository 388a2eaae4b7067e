package http

import (
	"net/http"

	"tally/internal/log"
)

func (s *Server) handleAPIAccount(w http.ResponseWriter, r *http.Request) {
	state, err := s.account.State(r.Context())
	if err != nil {
		writeAPIError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(state))
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.account.Summary(r.Context())
	if err != nil {
		writeAPIError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(sum))
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeAPIError(w, r, err, log.OpCreate)
		return
	}
	e, err := ParseExpense(p, s.now())
	if err != nil {
		writeAPIError(w, r, err, log.OpCreate)
		return
	}
	state, err := s.account.AddExpense(r.Context(), e)
	if err != nil {
		writeAPIError(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(state))
}

func (s *Server) handleAPIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	index, err := ParseIndex(r)
	if err == nil {
		_, err = s.account.DeleteExpense(r.Context(), index)
	}
	if err != nil {
		writeAPIError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIAdjustBalance(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeAPIError(w, r, err, log.OpAdjust)
		return
	}
	amount, err := ParseAmountField(p)
	if err != nil {
		writeAPIError(w, r, err, log.OpAdjust)
		return
	}
	state, err := s.account.AdjustBalance(r.Context(), amount)
	if err != nil {
		writeAPIError(w, r, err, log.OpAdjust)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(state))
}
