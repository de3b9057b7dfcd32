// Package pricing derives booking prices from a per-person unit price and the
// traveler counts. Every function here is pure.
package pricing

import (
	"math"

	"github.com/example/travelbook/internal/catalog"
	"github.com/example/travelbook/internal/roster"
)

// GSTRate is the flat goods and services tax applied to every booking subtotal.
const GSTRate = 0.18

// Breakdown keeps amounts unrounded; use Display for presentation.
type Breakdown struct {
	UnitPrice float64 `json:"unitPrice"`
	Travelers int     `json:"travelers"`
	Subtotal  float64 `json:"subtotal"`
	TaxRate   float64 `json:"taxRate"`
	TaxAmount float64 `json:"taxAmount"`
	Total     float64 `json:"total"`
}

// Amounts is a Breakdown rounded to whole currency units.
type Amounts struct {
	Subtotal     int64 `json:"subtotal"`
	TaxAmount    int64 `json:"taxAmount"`
	Total        int64 `json:"total"`
	PerTraveler  int64 `json:"perTraveler"`
	TaxRatePoint int   `json:"taxRatePercent"`
}

// Calculate prices counts at unitPrice per traveler. Negative or non-finite
// prices and negative counts are treated as zero.
func Calculate(unitPrice float64, counts roster.Counts) Breakdown {
	if math.IsNaN(unitPrice) || math.IsInf(unitPrice, 0) || unitPrice < 0 {
		unitPrice = 0
	}
	travelers := nonNeg(counts.Adults) + nonNeg(counts.Seniors) + nonNeg(counts.Children)

	subtotal := unitPrice * float64(travelers)
	tax := subtotal * GSTRate
	return Breakdown{
		UnitPrice: unitPrice,
		Travelers: travelers,
		Subtotal:  subtotal,
		TaxRate:   GSTRate,
		TaxAmount: tax,
		Total:     subtotal + tax,
	}
}

// ForItem prices counts at the item's lowest per-person price.
func ForItem(item catalog.Item, counts roster.Counts) Breakdown {
	return Calculate(item.UnitPrice(), counts)
}

// PerTraveler is the unrounded total divided by the number of travelers.
func (b Breakdown) PerTraveler() float64 {
	if b.Travelers == 0 {
		return 0
	}
	return b.Total / float64(b.Travelers)
}

// Display rounds each amount to the nearest whole unit.
func (b Breakdown) Display() Amounts {
	return Amounts{
		Subtotal:     Round(b.Subtotal),
		TaxAmount:    Round(b.TaxAmount),
		Total:        Round(b.Total),
		PerTraveler:  Round(b.PerTraveler()),
		TaxRatePoint: int(math.Round(b.TaxRate * 100)),
	}
}

// Round rounds half away from zero.
func Round(v float64) int64 {
	return int64(math.Round(v))
}

func nonNeg(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
