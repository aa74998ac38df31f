package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeTotals runs the financial chain over a material list. The order is
// fixed: daily amount → discount (on discountable lines only) → VAT → degressive
// multiplier. Every field of the result keeps full precision; callers round at
// the persistence or presentation boundary, never mid-chain.
//
// The replacement amount is independent of discount, VAT and degressive rate: it
// represents replacement liability, not rental revenue.
//
// An empty material list yields all-zero totals; the degressive rate is still a
// meaningful input because an event with no material has a well-defined duration.
func ComputeTotals(materials []MaterialLine, discountRate, vatRate, degressiveRate decimal.Decimal) Totals {
	var daily, discountable, replacement decimal.Decimal

	for _, m := range materials {
		qty := decimal.NewFromInt(int64(m.BoundQuantity()))
		lineTotal := m.RentalPrice.Mul(qty)
		daily = daily.Add(lineTotal)
		if m.IsDiscountable {
			discountable = discountable.Add(lineTotal)
		}
		replacement = replacement.Add(m.ReplacementPrice.Mul(qty))
	}

	discountAmount := discountable.Mul(discountRate).Div(hundred)
	dailyTotal := daily.Sub(discountAmount)
	vatAmount := dailyTotal.Mul(vatRate).Div(hundred)
	dailyTotalInclVat := dailyTotal.Add(vatAmount)

	return Totals{
		DailyAmount:             daily,
		DiscountableDailyAmount: discountable,
		DiscountAmount:          discountAmount,
		DailyTotal:              dailyTotal,
		VatAmount:               vatAmount,
		DailyTotalInclVat:       dailyTotalInclVat,
		DueAmount:               dailyTotal.Mul(degressiveRate),
		TotalInclVat:            dailyTotalInclVat.Mul(degressiveRate),
		ReplacementAmount:       replacement,
	}
}
