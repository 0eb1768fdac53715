package http

import (
	"net/http"
	"strings"

	"truecost/internal/core"
	applog "truecost/internal/log"
	"truecost/internal/services"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := services.ExpenseInput{
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	// Any of kind, category or life switches to manual classification;
	// kind is then mandatory.
	if req.Kind != "" || strings.TrimSpace(req.Category) != "" || req.UsefulLifeMonths != 0 {
		in.Override = &services.Override{
			Category:         sanitizeInput(req.Category),
			Kind:             core.Kind(req.Kind),
			UsefulLifeMonths: req.UsefulLifeMonths,
		}
	}

	res, err := s.svc.RecordExpense(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t := res.Entry.Transaction
	applog.FromContext(r.Context()).Info("Expense created",
		applog.NewFields().
			WithOperation(applog.OpRecord).
			WithTransaction(t.ID, t.Amount.Cents, string(t.Kind), t.Category, t.UsefulLifeMonths)...)

	w.Header().Set("Location", "/api/transactions/"+t.ID)
	writeJSON(w, http.StatusCreated, newRecordResponse(res))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDateParam(q, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDateParam(q, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.svc.ListTransactions(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = newTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(entry))
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var req patchTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.svc.EditTransaction(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(entry))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.svc.ListAssets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]assetResponse, len(assets))
	for i, a := range assets {
		out[i] = newAssetResponse(a, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": out})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.svc.GetAsset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAssetResponse(asset, true))
}
