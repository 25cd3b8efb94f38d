package ingest

import (
	"github.com/quidbooks/server/internal/models"
	"github.com/shopspring/decimal"
)

// Summarize aggregates a batch of transactions. Income is the sum of
// positive amounts, expenses the absolute sum of negative ones, and the
// category totals sum absolute amounts per label. All monetary outputs are
// rounded half away from zero to two decimal places.
func Summarize(transactions []models.Transaction) models.Summary {
	totalIncome := decimal.Zero
	totalExpenses := decimal.Zero
	categoryTotals := map[string]decimal.Decimal{}

	for _, t := range transactions {
		switch t.Amount.Sign() {
		case 1:
			totalIncome = totalIncome.Add(t.Amount)
		case -1:
			totalExpenses = totalExpenses.Add(t.Amount.Abs())
		}
		categoryTotals[t.Category] = categoryTotals[t.Category].Add(t.Amount.Abs())
	}

	categories := make(map[string]float64, len(categoryTotals))
	for c, total := range categoryTotals {
		categories[c] = round2(total)
	}

	return models.Summary{
		TotalTransactions: len(transactions),
		TotalIncome:       round2(totalIncome),
		TotalExpenses:     round2(totalExpenses),
		NetAmount:         round2(totalIncome.Sub(totalExpenses)),
		Categories:        categories,
	}
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
