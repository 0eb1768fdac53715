package http

import (
	"fmt"
	"net/http"

	"truecost/internal/core"
	"truecost/internal/report"
)

// handleReport serves /api/reports/{basis}?month=YYYY-MM; month defaults to the current one.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	basis, err := report.ParseBasis(r.PathValue("basis"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := parseMonthParam(r.URL.Query(), "month", s.now().Month())
	if err != nil {
		writeError(w, r, err)
		return
	}

	total, err := s.svc.GetReport(r.Context(), m, basis)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Month: m, Basis: string(basis), Amount: total})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	m, err := parseMonthParam(r.URL.Query(), "month", s.now().Month())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.svc.Summary(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	m, err := parseMonthParam(r.URL.Query(), "month", s.now().Month())
	if err != nil {
		writeError(w, r, err)
		return
	}
	cmp, err := s.svc.Compare(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseMonthParam(r.URL.Query(), "as_of", s.now().Month())
	if err != nil {
		writeError(w, r, err)
		return
	}
	bs, err := s.svc.BalanceSheet(r.Context(), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

// handleRange serves ?from=YYYY-MM&to=YYYY-MM, defaulting to the last twelve months.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	current := s.now().Month()
	q := r.URL.Query()
	from, err := parseMonthParam(q, "from", current.AddMonths(-11))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseMonthParam(q, "to", current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if from.MonthsBetween(to) >= report.MaxRangeMonths {
		writeError(w, r, core.Invalid("month_range", fmt.Errorf("range exceeds %d months", report.MaxRangeMonths)))
		return
	}
	months, err := s.svc.ReportRange(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}
