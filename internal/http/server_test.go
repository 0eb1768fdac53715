package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"truecost/internal/classifier"
	"truecost/internal/core"
	"truecost/internal/ledger"
	applog "truecost/internal/log"
	"truecost/internal/services"
	"truecost/internal/storage/memory"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

// panicService panics on every call it implements.
type panicService struct{ LedgerService }

func (panicService) ListAssets(context.Context) ([]core.Asset, error) { panic("boom") }

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Component: applog.ComponentApp, Output: io.Discard})
}

func newTestServer(t *testing.T, provider classifier.Provider, opts Options) *Server {
	t.Helper()
	svc := services.NewExpenseService(classifier.NewAdapter(provider), ledger.New(memory.New()), nil)
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	s := NewServer(":0", svc, opts)
	s.now = func() core.Date { return core.NewDate(2025, 3, 15) }
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func capitalProvider(category string, life int) classifier.Provider {
	return classifier.ProviderFunc(func(context.Context, classifier.Request) (classifier.Result, error) {
		return classifier.Result{Kind: core.Capital, Category: category, UsefulLifeMonths: life, Reasoning: "durable"}, nil
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, capitalProvider("Home", 12), Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, s, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}

	down := newTestServer(t, capitalProvider("Home", 12), Options{Ready: fakePinger{err: errors.New("db gone")}})
	if rr := do(t, down, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing store status = %d", rr.Code)
	}
}

func TestCreateExpense_CapitalFlow(t *testing.T) {
	s := newTestServer(t, capitalProvider("Kitchen", 12), Options{})

	rr := do(t, s, http.MethodPost, "/api/expenses", `{"description":"Wok","amount":"120.00","date":"2025-01-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	got := decode[struct {
		Transaction struct {
			ID               string  `json:"id"`
			Amount           float64 `json:"amount"`
			Kind             string  `json:"kind"`
			UsefulLifeMonths int     `json:"useful_life_months"`
		} `json:"transaction"`
		Asset *struct {
			ID                  string  `json:"id"`
			MonthlyDepreciation float64 `json:"monthly_depreciation"`
			Schedule            []struct {
				Month string `json:"month"`
			} `json:"schedule"`
		} `json:"asset"`
		Classification struct {
			Reasoning string `json:"reasoning"`
		} `json:"classification"`
		Impact struct {
			Monthly float64 `json:"monthly"`
		} `json:"impact"`
	}](t, rr)

	if got.Transaction.Kind != "capital" || got.Transaction.Amount != 120 || got.Transaction.UsefulLifeMonths != 12 {
		t.Errorf("transaction = %+v", got.Transaction)
	}
	if got.Asset == nil || got.Asset.MonthlyDepreciation != 10 || len(got.Asset.Schedule) != 12 {
		t.Fatalf("asset = %+v", got.Asset)
	}
	if got.Asset.Schedule[0].Month != "2025-01" {
		t.Errorf("schedule starts %s", got.Asset.Schedule[0].Month)
	}
	if got.Classification.Reasoning != "durable" || got.Impact.Monthly != 10 {
		t.Errorf("classification/impact = %+v %+v", got.Classification, got.Impact)
	}

	// reports over the recorded wok
	rr = do(t, s, http.MethodGet, "/api/reports/cash?month=2025-01", "")
	cash := decode[totalResponseJSON](t, rr)
	if cash.Amount != 120 {
		t.Errorf("cash = %v", cash.Amount)
	}
	rr = do(t, s, http.MethodGet, "/api/reports/accrual?month=2025-02", "")
	accrual := decode[totalResponseJSON](t, rr)
	if accrual.Amount != 10 || accrual.Month != "2025-02" {
		t.Errorf("accrual = %+v", accrual)
	}

	rr = do(t, s, http.MethodGet, "/api/assets", "")
	assets := decode[struct {
		Assets []struct {
			ID       string `json:"id"`
			Schedule []any  `json:"schedule"`
		} `json:"assets"`
	}](t, rr)
	if len(assets.Assets) != 1 || assets.Assets[0].Schedule != nil {
		t.Errorf("assets = %+v", assets)
	}
	if rr := do(t, s, http.MethodGet, "/api/assets/"+assets.Assets[0].ID, ""); rr.Code != http.StatusOK {
		t.Errorf("get asset status = %d", rr.Code)
	}
}

type totalResponseJSON struct {
	Month  string  `json:"month"`
	Basis  string  `json:"basis"`
	Amount float64 `json:"amount"`
}

func TestCreateExpense_Errors(t *testing.T) {
	unavailable := classifier.ProviderFunc(func(context.Context, classifier.Request) (classifier.Result, error) {
		return classifier.Result{}, errors.New("model timeout")
	})
	s := newTestServer(t, unavailable, Options{})

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"classifier down", `{"description":"Chair","amount":"80"}`, http.StatusServiceUnavailable, ""},
		{"manual override bypasses classifier", `{"description":"Chair","amount":"80","kind":"capital","category":"Home","useful_life_months":24}`, http.StatusCreated, ""},
		{"negative amount", `{"description":"Chair","amount":-5,"kind":"operating"}`, http.StatusUnprocessableEntity, "amount"},
		{"bad amount", `{"description":"Chair","amount":"abc"}`, http.StatusUnprocessableEntity, "amount"},
		{"bad date", `{"description":"Chair","amount":"1","date":"2025-13-40"}`, http.StatusUnprocessableEntity, "date"},
		{"unknown field", `{"description":"Chair","amount":"1","colour":"red"}`, http.StatusUnprocessableEntity, "body"},
		{"bad kind", `{"description":"Chair","amount":"1","kind":"luxury"}`, http.StatusUnprocessableEntity, "kind"},
		{"capital without life", `{"description":"Chair","amount":"1","kind":"capital"}`, http.StatusUnprocessableEntity, "useful_life_months"},
		{"life beyond cap", `{"description":"Chair","amount":"1","kind":"capital","useful_life_months":1201}`, http.StatusUnprocessableEntity, "useful_life_months"},
		{"absurd life", `{"description":"Chair","amount":"1","kind":"capital","useful_life_months":1125899906842624}`, http.StatusUnprocessableEntity, "useful_life_months"},
		{"amount beyond range", `{"description":"Chair","amount":100000000000000000000,"kind":"operating"}`, http.StatusUnprocessableEntity, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/expenses", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.status, rr.Body.String())
			}
			if tt.field != "" {
				e := decode[errorResponse](t, rr)
				if e.Field != tt.field || e.Error != applog.ErrorTypeValidation {
					t.Errorf("error = %+v, want field %q", e, tt.field)
				}
			}
		})
	}
}

func TestPatchTransaction_OutOfRange(t *testing.T) {
	s := newTestServer(t, capitalProvider("Electronics", 24), Options{})

	rr := do(t, s, http.MethodPost, "/api/expenses", `{"description":"Monitor","amount":"240","date":"2025-02-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	id := decode[entryJSON](t, rr).Transaction.ID

	tests := []struct {
		body  string
		field string
	}{
		{`{"useful_life_months":1201}`, "useful_life_months"},
		{`{"useful_life_months":4294967296}`, "useful_life_months"},
		{`{"amount":"100000000000000000000"}`, "amount"},
	}
	for _, tt := range tests {
		rr := do(t, s, http.MethodPatch, "/api/transactions/"+id, tt.body)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("PATCH %s status = %d, want 422 (body %s)", tt.body, rr.Code, rr.Body.String())
		}
		if e := decode[errorResponse](t, rr); e.Field != tt.field {
			t.Errorf("PATCH %s field = %q, want %q", tt.body, e.Field, tt.field)
		}
	}

	rr = do(t, s, http.MethodGet, "/api/transactions/"+id, "")
	if got := decode[entryJSON](t, rr); got.Asset == nil || got.Asset.UsefulLifeMonths != 24 {
		t.Errorf("transaction changed after rejected edits: %+v", got)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, capitalProvider("Electronics", 24), Options{})

	rr := do(t, s, http.MethodPost, "/api/expenses", `{"description":"Monitor","amount":"240","date":"2025-02-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	id := decode[entryJSON](t, rr).Transaction.ID

	rr = do(t, s, http.MethodPatch, "/api/transactions/"+id, `{"useful_life_months":12}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d body = %s", rr.Code, rr.Body.String())
	}
	edited := decode[entryJSON](t, rr)
	if edited.Transaction.ID != id || edited.Asset == nil || edited.Asset.UsefulLifeMonths != 12 {
		t.Errorf("edited = %+v", edited)
	}

	rr = do(t, s, http.MethodPatch, "/api/transactions/"+id, `{"kind":"operating"}`)
	if rr.Code != http.StatusOK || decode[entryJSON](t, rr).Asset != nil {
		t.Errorf("switch to operating: status %d body %s", rr.Code, rr.Body.String())
	}

	rr = do(t, s, http.MethodGet, "/api/transactions?from=2025-01-01&to=2025-12-31", "")
	list := decode[struct {
		Transactions []struct {
			ID string `json:"id"`
		} `json:"transactions"`
	}](t, rr)
	if len(list.Transactions) != 1 || list.Transactions[0].ID != id {
		t.Errorf("list = %+v", list)
	}

	if rr := do(t, s, http.MethodDelete, "/api/transactions/"+id, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/api/transactions/"+id, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rr.Code)
	}
	if rr := do(t, s, http.MethodDelete, "/api/transactions/"+id, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rr.Code)
	}
}

type entryJSON struct {
	Transaction struct {
		ID string `json:"id"`
	} `json:"transaction"`
	Asset *struct {
		UsefulLifeMonths int `json:"useful_life_months"`
	} `json:"asset"`
}

func TestReports(t *testing.T) {
	s := newTestServer(t, capitalProvider("Kitchen", 12), Options{})
	do(t, s, http.MethodPost, "/api/expenses", `{"description":"Wok","amount":"120","date":"2025-01-10"}`)
	do(t, s, http.MethodPost, "/api/expenses", `{"description":"Coffee","amount":"3.50","date":"2025-03-02","kind":"operating","category":"Food"}`)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/reports/daily?month=2025-03", http.StatusOK},
		{"/api/reports/summary", http.StatusOK},
		{"/api/reports/compare?month=2025-01", http.StatusOK},
		{"/api/reports/balance?as_of=2025-03", http.StatusOK},
		{"/api/reports/range?from=2025-01&to=2025-03", http.StatusOK},
		{"/api/reports/weekly", http.StatusUnprocessableEntity},
		{"/api/reports/cash?month=March", http.StatusUnprocessableEntity},
		{"/api/reports/range?from=2025-04&to=2025-01", http.StatusUnprocessableEntity},
		{"/api/reports/range?from=2000-01&to=2025-01", http.StatusUnprocessableEntity},
		{"/api/transactions?from=yesterday", http.StatusUnprocessableEntity},
		{"/api/transactions?from=2025-03-01&to=2025-01-01", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		if rr := do(t, s, http.MethodGet, tt.path, ""); rr.Code != tt.status {
			t.Errorf("GET %s status = %d, want %d (body %s)", tt.path, rr.Code, tt.status, rr.Body.String())
		}
	}

	// summary defaults to the current month (2025-03)
	sum := decode[struct {
		Month   string  `json:"month"`
		Cash    float64 `json:"cash"`
		Accrual float64 `json:"accrual"`
	}](t, do(t, s, http.MethodGet, "/api/reports/summary", ""))
	if sum.Month != "2025-03" || sum.Cash != 3.5 || sum.Accrual != 13.5 {
		t.Errorf("summary = %+v", sum)
	}

	rng := decode[struct {
		Months []any `json:"months"`
	}](t, do(t, s, http.MethodGet, "/api/reports/range?from=2025-01&to=2025-03", ""))
	if len(rng.Months) != 3 {
		t.Errorf("range months = %d", len(rng.Months))
	}
}

func TestNotFoundAndPanic(t *testing.T) {
	s := newTestServer(t, capitalProvider("Home", 12), Options{})
	if rr := do(t, s, http.MethodGet, "/api/assets/missing", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d", rr.Code)
	}

	p := NewServer(":0", panicService{}, Options{Logger: quietLogger(), RateLimitPerMinute: 100})
	defer p.Shutdown(context.Background())
	rr := do(t, p, http.MethodGet, "/api/assets", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, capitalProvider("Home", 12), Options{RateLimitPerMinute: 2})
	for i := 0; i < 2; i++ {
		if rr := do(t, s, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rr.Code)
		}
	}
	rr := do(t, s, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rr.Code)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	s := newTestServer(t, capitalProvider("Home", 12), Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Wok\x00\x07 pan\t "); got != "Wok pan" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
