package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"truecost/internal/core"
)

// modelReply is the JSON object the model is instructed to return.
type modelReply struct {
	IsCapital       *bool    `json:"is_capital"`
	Category        string   `json:"category"`
	ItemName        string   `json:"item_name"`
	UsefulLifeYears *float64 `json:"useful_life_years"`
	Reasoning       string   `json:"reasoning"`
}

// parseReply decodes a model answer into a Result. Useful life arrives in
// years and is converted to whole months.
func parseReply(raw string) (Result, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return Result{}, ErrEmptyReply
	}
	var reply modelReply
	if err := json.Unmarshal([]byte(clean), &reply); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if reply.IsCapital == nil {
		return Result{}, fmt.Errorf("%w: missing is_capital", ErrMalformedReply)
	}

	res := Result{
		Kind:      core.Operating,
		Category:  reply.Category,
		ItemName:  reply.ItemName,
		Reasoning: reply.Reasoning,
	}
	if *reply.IsCapital {
		res.Kind = core.Capital
		if reply.UsefulLifeYears == nil {
			return Result{}, fmt.Errorf("%w: capital purchase without useful_life_years", ErrMalformedReply)
		}
		res.UsefulLifeMonths = yearsToMonths(*reply.UsefulLifeYears)
	}
	return res, nil
}

func yearsToMonths(years float64) int {
	if math.IsNaN(years) || math.IsInf(years, 0) || years <= 0 {
		return 0
	}
	// Nearest month: 2.99999 years is 36, not 35.
	months := math.Round(years * 12)
	if months > core.MaxUsefulLifeMonths {
		return core.MaxUsefulLifeMonths + 1
	}
	return int(months)
}

// cleanModelJSON strips Markdown fences and any prose around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
