package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"truecost/internal/core"
)

// lowValueCents is the threshold under which unknown items are operating spends.
const lowValueCents = 5000

const (
	dailyExpenseCategory = "Daily Expense"
	fallbackLifeYears    = 3
)

type lifespan struct {
	item  string
	years int
}

// defaultLifespans is ordered so multi-word and more specific items match first.
var defaultLifespans = []lifespan{
	{"washing machine", 10},
	{"air conditioner", 10},
	{"rice cooker", 6},
	{"electric scooter", 5},
	{"television", 8},
	{"refrigerator", 12},
	{"computer", 5},
	{"laptop", 4},
	{"tablet", 4},
	{"phone", 3},
	{"tv", 8},
	{"fridge", 12},
	{"microwave", 8},
	{"cookware", 8},
	{"wok", 10},
	{"pan", 10},
	{"furniture", 10},
	{"mattress", 8},
	{"bed", 10},
	{"sofa", 10},
	{"desk", 12},
	{"table", 12},
	{"chair", 8},
	{"clothing", 2},
	{"clothes", 2},
	{"shoes", 2},
	{"bag", 5},
	{"watch", 10},
	{"glasses", 3},
	{"bicycle", 8},
	{"bike", 8},
	{"car", 10},
}

var expenseKeywords = []string{
	"lunch", "dinner", "breakfast", "meal", "food", "takeout", "coffee", "tea",
	"fruit", "snack", "grocery", "supermarket",
	"taxi", "uber", "lyft", "subway", "metro", "bus", "gas", "fuel",
	"movie", "cinema", "concert", "ticket", "entertainment", "game",
	"phone bill", "internet", "utility", "electricity", "water bill",
	"haircut", "salon", "spa", "massage",
	"hospital", "medicine", "doctor", "pharmacy",
}

// RulesProvider classifies offline from keyword and lifespan tables.
// It never fails, which makes it a usable default without credentials.
type RulesProvider struct{}

func NewRulesProvider() *RulesProvider {
	return &RulesProvider{}
}

func (RulesProvider) Classify(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	words := tokenize(req.Description)

	for _, kw := range expenseKeywords {
		if matches(words, kw) {
			return Result{
				Kind:      core.Operating,
				Category:  dailyExpenseCategory,
				ItemName:  req.Description,
				Reasoning: fmt.Sprintf("contains keyword %q, classified as operating expense", kw),
			}, nil
		}
	}

	for _, ls := range defaultLifespans {
		if matches(words, ls.item) {
			return Result{
				Kind:             core.Capital,
				Category:         titleCase(ls.item),
				ItemName:         req.Description,
				UsefulLifeMonths: ls.years * 12,
				Reasoning:        fmt.Sprintf("matches %q, using default lifespan of %d years", ls.item, ls.years),
			}, nil
		}
	}

	if req.Amount.Cents < lowValueCents {
		return Result{
			Kind:      core.Operating,
			Category:  dailyExpenseCategory,
			ItemName:  req.Description,
			Reasoning: "low amount, treated as operating expense",
		}, nil
	}
	return Result{
		Kind:             core.Capital,
		Category:         defaultCategory,
		ItemName:         req.Description,
		UsefulLifeMonths: fallbackLifeYears * 12,
		Reasoning:        fmt.Sprintf("default capital expenditure, %d years", fallbackLifeYears),
	}, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matches reports whether the phrase appears as consecutive words. Words of
// five letters or more tolerate one typo.
func matches(words []string, phrase string) bool {
	parts := strings.Fields(phrase)
	if len(parts) == 0 || len(parts) > len(words) {
		return false
	}
	for i := 0; i+len(parts) <= len(words); i++ {
		ok := true
		for j, p := range parts {
			if !wordMatches(words[i+j], p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func wordMatches(word, want string) bool {
	if word == want {
		return true
	}
	// plural forms: "shoes" vs "shoe", "chairs" vs "chair"
	if strings.TrimSuffix(word, "s") == want {
		return true
	}
	if len(want) < 5 {
		return false
	}
	return levenshtein.ComputeDistance(word, want) <= 1
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
