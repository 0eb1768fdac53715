package report

import (
	"context"
	"fmt"
	"sort"

	"truecost/internal/core"
)

type (
	AssetPosition struct {
		AssetID                 string     `json:"asset_id"`
		Name                    string     `json:"name"`
		Category                string     `json:"category"`
		AcquisitionMonth        core.Month `json:"acquisition_month"`
		OriginalCost            core.Money `json:"original_cost"`
		AccumulatedDepreciation core.Money `json:"accumulated_depreciation"`
		BookValue               core.Money `json:"book_value"`
		RemainingMonths         int        `json:"remaining_months"`
	}

	CategoryPosition struct {
		Category     string     `json:"category"`
		OriginalCost core.Money `json:"original_cost"`
		BookValue    core.Money `json:"book_value"`
		Items        int        `json:"items"`
	}

	// BalanceSheet values every asset acquired on or before AsOf.
	BalanceSheet struct {
		AsOf                    core.Month         `json:"as_of"`
		OriginalCost            core.Money         `json:"original_cost"`
		AccumulatedDepreciation core.Money         `json:"accumulated_depreciation"`
		BookValue               core.Money         `json:"book_value"`
		Assets                  []AssetPosition    `json:"assets"`
		ByCategory              []CategoryPosition `json:"by_category"`
	}
)

func (g *Generator) BalanceSheet(ctx context.Context, asOf core.Month) (BalanceSheet, error) {
	assets, err := g.src.ListAssets(ctx)
	if err != nil {
		return BalanceSheet{}, fmt.Errorf("balance sheet %s: %w", asOf, err)
	}

	sheet := BalanceSheet{AsOf: asOf, Assets: []AssetPosition{}}
	byCat := map[string]*CategoryPosition{}
	for _, a := range assets {
		if a.AcquisitionMonth.After(asOf) {
			continue
		}
		pos := AssetPosition{
			AssetID:                 a.ID,
			Name:                    a.Name,
			Category:                a.Category,
			AcquisitionMonth:        a.AcquisitionMonth,
			OriginalCost:            a.OriginalCost,
			AccumulatedDepreciation: a.AccumulatedThrough(asOf),
			BookValue:               a.BookValue(asOf),
			RemainingMonths:         a.RemainingMonths(asOf),
		}
		sheet.Assets = append(sheet.Assets, pos)
		sheet.OriginalCost = sheet.OriginalCost.Add(pos.OriginalCost)
		sheet.AccumulatedDepreciation = sheet.AccumulatedDepreciation.Add(pos.AccumulatedDepreciation)
		sheet.BookValue = sheet.BookValue.Add(pos.BookValue)

		c, ok := byCat[a.Category]
		if !ok {
			c = &CategoryPosition{Category: a.Category}
			byCat[a.Category] = c
		}
		c.OriginalCost = c.OriginalCost.Add(pos.OriginalCost)
		c.BookValue = c.BookValue.Add(pos.BookValue)
		c.Items++
	}

	sheet.ByCategory = make([]CategoryPosition, 0, len(byCat))
	for _, c := range byCat {
		sheet.ByCategory = append(sheet.ByCategory, *c)
	}
	sort.Slice(sheet.ByCategory, func(i, j int) bool {
		return sheet.ByCategory[i].Category < sheet.ByCategory[j].Category
	})
	return sheet, nil
}
