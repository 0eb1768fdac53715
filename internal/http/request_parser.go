package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"truecost/internal/core"
)

const maxBodyBytes = 64 << 10

var errMalformedBody = errors.New("malformed JSON body")

type (
	createExpenseRequest struct {
		Description      string     `json:"description"`
		Amount           core.Money `json:"amount"`
		Date             *core.Date `json:"date"`
		Category         string     `json:"category"`
		Kind             string     `json:"kind"`
		UsefulLifeMonths int        `json:"useful_life_months"`
	}

	// patchTransactionRequest leaves absent fields untouched.
	patchTransactionRequest struct {
		Date             *core.Date  `json:"date"`
		Amount           *core.Money `json:"amount"`
		Description      *string     `json:"description"`
		Category         *string     `json:"category"`
		Kind             *string     `json:"kind"`
		UsefulLifeMonths *int        `json:"useful_life_months"`
	}
)

// decodeJSON reads a bounded JSON body, rejecting unknown fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var invalid *core.InvalidInputError
		if errors.As(err, &invalid) {
			return err
		}
		if errors.Is(err, core.ErrInvalidAmount) {
			return core.Invalid("amount", err)
		}
		if errors.Is(err, core.ErrInvalidDay) {
			return core.Invalid("date", err)
		}
		return core.Invalid("body", fmt.Errorf("%w: %v", errMalformedBody, err))
	}
	if dec.More() {
		return core.Invalid("body", errMalformedBody)
	}
	return nil
}

// parseMonthParam reads key as YYYY-MM, falling back to def when absent.
func parseMonthParam(q url.Values, key string, def core.Month) (core.Month, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return core.Month{}, core.Invalid(key, err)
	}
	return m, nil
}

// parseDateParam reads key as YYYY-MM-DD; absent yields the zero (open) bound.
func parseDateParam(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(key, err)
	}
	return d, nil
}

func (p patchTransactionRequest) toPatch() (core.TransactionPatch, error) {
	patch := core.TransactionPatch{
		Date:             p.Date,
		Amount:           p.Amount,
		UsefulLifeMonths: p.UsefulLifeMonths,
	}
	if p.Description != nil {
		d := sanitizeInput(*p.Description)
		patch.Description = &d
	}
	if p.Category != nil {
		c := sanitizeInput(*p.Category)
		patch.Category = &c
	}
	if p.Kind != nil {
		k, err := core.ParseKind(*p.Kind)
		if err != nil {
			return core.TransactionPatch{}, err
		}
		patch.Kind = &k
	}
	return patch, nil
}

// sanitizeInput drops control characters (except tab/newline) and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
