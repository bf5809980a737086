package derive

import (
	"math"

	"github.com/zulandar/fieldsync/internal/models"
)

// RoundCurrency rounds to cents using banker's rounding, so long edit
// sequences don't drift systematically up or down.
func RoundCurrency(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// RecomputeLineItem derives Amount = quantity * unit price.
func RecomputeLineItem(li *models.BidLineItem) {
	li.Amount = RoundCurrency(li.Quantity * li.UnitPrice)
}

// RecomputeBid recomputes every line item, then the bid's subtotal, tax,
// total, and profit margin. A zero total yields a zero margin rather than a
// division error, so a recompute pass can never fail on an empty bid.
func RecomputeBid(b *models.Bid, items []models.BidLineItem) {
	var subtotal float64
	for i := range items {
		RecomputeLineItem(&items[i])
		subtotal += items[i].Amount
	}
	b.Subtotal = RoundCurrency(subtotal)
	b.TaxAmount = RoundCurrency(b.Subtotal * b.TaxRate)
	b.TotalPrice = RoundCurrency(b.Subtotal + b.TaxAmount)

	if b.TotalPrice > 0 {
		b.ProfitMargin = (b.TotalPrice - b.MaterialCost - b.LaborCost) / b.TotalPrice
	} else {
		b.ProfitMargin = 0
	}
}
