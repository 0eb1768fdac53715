package core

import (
	"strings"
	"unicode/utf8"
)

const (
	Operating Kind = "operating"
	Capital   Kind = "capital"
)

const maxDescriptionLen = 200

// MaxUsefulLifeMonths bounds the useful life of a capital purchase (100 years).
const MaxUsefulLifeMonths = 1200

type (
	// Kind tells whether a spend is recognized at once or spread over a useful life.
	Kind string

	Transaction struct {
		ID               string
		Seq              int64 // insertion order, breaks ties between equal dates
		Date             Date
		Amount           Money
		Description      string
		Category         string
		Kind             Kind
		UsefulLifeMonths int // zero unless Kind is Capital
	}

	ScheduleEntry struct {
		Month  Month
		Amount Money
	}

	// Asset is the amortizing side of a capital transaction.
	Asset struct {
		ID                  string
		SourceTransactionID string
		Name                string
		Category            string
		OriginalCost        Money
		UsefulLifeMonths    int
		AcquisitionMonth    Month
		MonthlyDepreciation Money
		Schedule            []ScheduleEntry
	}

	// Entry is the unit of storage: a transaction and, for capital spends, its asset.
	Entry struct {
		Transaction Transaction
		Asset       *Asset
	}

	// TransactionPatch carries the fields a user correction may replace.
	// Nil fields keep their current value.
	TransactionPatch struct {
		Date             *Date
		Amount           *Money
		Description      *string
		Category         *string
		Kind             *Kind
		UsefulLifeMonths *int
	}

	// Classification is what the classifier adapter hands back to the ledger.
	Classification struct {
		Category         string
		Kind             Kind
		UsefulLifeMonths int
		ItemName         string
		Reasoning        string
	}
)

func (k Kind) Valid() bool {
	return k == Operating || k == Capital
}

// ParseKind accepts the canonical names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", Invalid("kind", ErrInvalidKind)
	}
	return k, nil
}

// Normalize trims text fields and drops the useful life of operating spends.
func (t Transaction) Normalize() Transaction {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	if t.Kind == Operating {
		t.UsefulLifeMonths = 0
	}
	return t
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if strings.TrimSpace(t.Description) == "" {
		return Invalid("description", ErrEmptyDescription)
	}
	if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		return Invalid("description", ErrDescriptionLong)
	}
	if err := t.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if strings.TrimSpace(t.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	switch t.Kind {
	case Capital:
		if err := ValidateLife(t.UsefulLifeMonths); err != nil {
			return err
		}
	case Operating:
	default:
		return Invalid("kind", ErrInvalidKind)
	}
	return nil
}

// ValidateLife checks a capital useful life against [1, MaxUsefulLifeMonths].
func ValidateLife(months int) error {
	if months < 1 {
		return Invalid("useful_life_months", ErrInvalidLife)
	}
	if months > MaxUsefulLifeMonths {
		return Invalid("useful_life_months", ErrLifeTooLong)
	}
	return nil
}

// Apply returns a copy of t with the patch fields replaced.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	if p.UsefulLifeMonths != nil {
		t.UsefulLifeMonths = *p.UsefulLifeMonths
	}
	return t
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Date == nil && p.Amount == nil && p.Description == nil &&
		p.Category == nil && p.Kind == nil && p.UsefulLifeMonths == nil
}

// LastMonth is the final month of the depreciation schedule.
func (a Asset) LastMonth() Month {
	return a.AcquisitionMonth.AddMonths(a.UsefulLifeMonths - 1)
}

// Covers reports whether m falls in [acquisition, acquisition+life).
func (a Asset) Covers(m Month) bool {
	offset := a.AcquisitionMonth.MonthsBetween(m)
	return offset >= 0 && offset < a.UsefulLifeMonths
}

// DepreciationFor returns the schedule amount for m, zero outside the schedule.
func (a Asset) DepreciationFor(m Month) Money {
	if !a.Covers(m) {
		return Money{}
	}
	offset := a.AcquisitionMonth.MonthsBetween(m)
	if offset < len(a.Schedule) && a.Schedule[offset].Month == m {
		return a.Schedule[offset].Amount
	}
	for _, e := range a.Schedule {
		if e.Month == m {
			return e.Amount
		}
	}
	return Money{}
}

// AccumulatedThrough sums depreciation from acquisition up to and including m.
func (a Asset) AccumulatedThrough(m Month) Money {
	var total Money
	for _, e := range a.Schedule {
		if e.Month.After(m) {
			break
		}
		total = total.Add(e.Amount)
	}
	return total
}

// BookValue is the undepreciated cost left after month m.
func (a Asset) BookValue(m Month) Money {
	return a.OriginalCost.Sub(a.AccumulatedThrough(m))
}

// RemainingMonths counts schedule months strictly after m.
func (a Asset) RemainingMonths(m Month) int {
	if m.Before(a.AcquisitionMonth) {
		return a.UsefulLifeMonths
	}
	left := a.LastMonth().MonthsBetween(m)
	if left >= 0 {
		return 0
	}
	return -left
}

func (e Entry) ID() string {
	return e.Transaction.ID
}

// CheckIntegrity verifies the transaction and asset belong together.
func (e Entry) CheckIntegrity() error {
	t := e.Transaction
	switch {
	case t.Kind == Capital && e.Asset == nil:
		return &ConsistencyError{TransactionID: t.ID, Detail: "capital transaction without asset"}
	case t.Kind == Operating && e.Asset != nil:
		return &ConsistencyError{TransactionID: t.ID, Detail: "operating transaction with asset"}
	case e.Asset != nil && e.Asset.SourceTransactionID != t.ID:
		return &ConsistencyError{TransactionID: t.ID, Detail: "asset points at transaction " + e.Asset.SourceTransactionID}
	}
	return nil
}
