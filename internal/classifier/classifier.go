// Package classifier turns a free-text spend into a category, a kind and,
// for capital purchases, a useful life.
//
// The Adapter owns input sanitization and output validation; the actual
// judgement is delegated to a Provider (a remote model or local rules).
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"truecost/internal/core"
)

const defaultCategory = "Other"

var (
	ErrMalformedReply = errors.New("malformed classification reply")
	ErrEmptyReply     = errors.New("empty classification reply")
)

type (
	// Provider is the swappable classification capability.
	Provider interface {
		Classify(ctx context.Context, req Request) (Result, error)
	}

	Request struct {
		Description string
		Amount      core.Money
		Today       core.Date
	}

	// Result is the raw provider answer, validated by the Adapter before use.
	Result struct {
		Kind             core.Kind
		Category         string
		ItemName         string
		UsefulLifeMonths int
		Reasoning        string
	}

	// ProviderFunc adapts a plain function to Provider.
	ProviderFunc func(ctx context.Context, req Request) (Result, error)
)

func (f ProviderFunc) Classify(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Adapter makes at most one provider call per Classify and never retries.
type Adapter struct {
	provider Provider
	now      func() core.Date
}

func NewAdapter(p Provider) *Adapter {
	return &Adapter{provider: p, now: core.Today}
}

// Classify sanitizes the input, asks the provider once and validates the answer.
// Provider failures, cancellations and malformed answers surface as
// ClassificationUnavailableError; bad input surfaces as InvalidInputError.
func (a *Adapter) Classify(ctx context.Context, description string, amount core.Money) (core.Classification, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return core.Classification{}, core.Invalid("description", core.ErrEmptyDescription)
	}
	if err := amount.Validate(); err != nil {
		return core.Classification{}, core.Invalid("amount", err)
	}
	if a.provider == nil {
		return core.Classification{}, &core.ClassificationUnavailableError{Err: errors.New("no classification provider configured")}
	}

	res, err := a.provider.Classify(ctx, Request{Description: description, Amount: amount, Today: a.now()})
	if err != nil {
		return core.Classification{}, &core.ClassificationUnavailableError{Err: err}
	}
	out, err := validate(res, description)
	if err != nil {
		return core.Classification{}, &core.ClassificationUnavailableError{Err: err}
	}
	return out, nil
}

func validate(res Result, description string) (core.Classification, error) {
	kind := core.Kind(strings.ToLower(strings.TrimSpace(string(res.Kind))))
	if !kind.Valid() {
		return core.Classification{}, fmt.Errorf("%w: kind %q", ErrMalformedReply, res.Kind)
	}
	out := core.Classification{
		Category:  strings.TrimSpace(res.Category),
		Kind:      kind,
		ItemName:  strings.TrimSpace(res.ItemName),
		Reasoning: strings.TrimSpace(res.Reasoning),
	}
	if out.Category == "" {
		out.Category = defaultCategory
	}
	if out.ItemName == "" {
		out.ItemName = description
	}
	if kind == core.Capital {
		if res.UsefulLifeMonths < 1 || res.UsefulLifeMonths > core.MaxUsefulLifeMonths {
			return core.Classification{}, fmt.Errorf("%w: capital purchase with useful life %d", ErrMalformedReply, res.UsefulLifeMonths)
		}
		out.UsefulLifeMonths = res.UsefulLifeMonths
	}
	return out, nil
}
