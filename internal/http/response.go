package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"truecost/internal/amortization"
	"truecost/internal/core"
	applog "truecost/internal/log"
	"truecost/internal/services"
)

type (
	errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	}

	transactionResponse struct {
		ID               string     `json:"id"`
		Date             core.Date  `json:"date"`
		Amount           core.Money `json:"amount"`
		Description      string     `json:"description"`
		Category         string     `json:"category"`
		Kind             core.Kind  `json:"kind"`
		UsefulLifeMonths int        `json:"useful_life_months,omitempty"`
	}

	scheduleResponse struct {
		Month  core.Month `json:"month"`
		Amount core.Money `json:"amount"`
	}

	assetResponse struct {
		ID                  string             `json:"id"`
		TransactionID       string             `json:"transaction_id"`
		Name                string             `json:"name"`
		Category            string             `json:"category"`
		OriginalCost        core.Money         `json:"original_cost"`
		UsefulLifeMonths    int                `json:"useful_life_months"`
		AcquisitionMonth    core.Month         `json:"acquisition_month"`
		LastMonth           core.Month         `json:"last_month"`
		MonthlyDepreciation core.Money         `json:"monthly_depreciation"`
		Schedule            []scheduleResponse `json:"schedule,omitempty"`
	}

	entryResponse struct {
		Transaction transactionResponse `json:"transaction"`
		Asset       *assetResponse      `json:"asset,omitempty"`
	}

	classificationResponse struct {
		Category         string    `json:"category"`
		Kind             core.Kind `json:"kind"`
		UsefulLifeMonths int       `json:"useful_life_months,omitempty"`
		ItemName         string    `json:"item_name"`
		Reasoning        string    `json:"reasoning,omitempty"`
	}

	recordResponse struct {
		entryResponse
		Classification classificationResponse `json:"classification"`
		Impact         amortization.Impact    `json:"impact"`
	}

	totalResponse struct {
		Month  core.Month `json:"month"`
		Basis  string     `json:"basis"`
		Amount core.Money `json:"amount"`
	}
)

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:               t.ID,
		Date:             t.Date,
		Amount:           t.Amount,
		Description:      t.Description,
		Category:         t.Category,
		Kind:             t.Kind,
		UsefulLifeMonths: t.UsefulLifeMonths,
	}
}

// newAssetResponse includes the month-by-month schedule only when withSchedule is set.
func newAssetResponse(a core.Asset, withSchedule bool) assetResponse {
	out := assetResponse{
		ID:                  a.ID,
		TransactionID:       a.SourceTransactionID,
		Name:                a.Name,
		Category:            a.Category,
		OriginalCost:        a.OriginalCost,
		UsefulLifeMonths:    a.UsefulLifeMonths,
		AcquisitionMonth:    a.AcquisitionMonth,
		LastMonth:           a.LastMonth(),
		MonthlyDepreciation: a.MonthlyDepreciation,
	}
	if withSchedule {
		out.Schedule = make([]scheduleResponse, len(a.Schedule))
		for i, e := range a.Schedule {
			out.Schedule[i] = scheduleResponse{Month: e.Month, Amount: e.Amount}
		}
	}
	return out
}

func newEntryResponse(e core.Entry) entryResponse {
	out := entryResponse{Transaction: newTransactionResponse(e.Transaction)}
	if e.Asset != nil {
		a := newAssetResponse(*e.Asset, true)
		out.Asset = &a
	}
	return out
}

func newRecordResponse(r services.RecordResult) recordResponse {
	return recordResponse{
		entryResponse: newEntryResponse(r.Entry),
		Classification: classificationResponse{
			Category:         r.Classification.Category,
			Kind:             r.Classification.Kind,
			UsefulLifeMonths: r.Classification.UsefulLifeMonths,
			ItemName:         r.Classification.ItemName,
			Reasoning:        r.Classification.Reasoning,
		},
		Impact: r.Impact,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message, field string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message, Field: field})
}

// writeError maps ledger errors onto HTTP statuses. Unknown errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid     *core.InvalidInputError
		notFound    *core.NotFoundError
		unavailable *core.ClassificationUnavailableError
		consistency *core.ConsistencyError
	)
	logger := applog.FromContext(r.Context())

	switch {
	case errors.As(err, &invalid):
		writeJSONError(w, http.StatusUnprocessableEntity, applog.ErrorTypeValidation, invalid.Error(), invalid.Field)
	case errors.As(err, &notFound):
		writeJSONError(w, http.StatusNotFound, applog.ErrorTypeNotFound, notFound.Error(), "")
	case errors.As(err, &unavailable):
		logger.Warn("Classification unavailable", applog.FieldError, err)
		writeJSONError(w, http.StatusServiceUnavailable, applog.ErrorTypeClassification,
			"classification is unavailable, retry later or supply kind and category manually", "")
	case errors.As(err, &consistency):
		logger.Error("Ledger consistency violation",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConsistency)
		writeJSONError(w, http.StatusInternalServerError, applog.ErrorTypeConsistency, "ledger consistency violation", "")
	default:
		logger.Error("Request failed", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeInternal)
		writeJSONError(w, http.StatusInternalServerError, applog.ErrorTypeInternal, "internal error", "")
	}
}
