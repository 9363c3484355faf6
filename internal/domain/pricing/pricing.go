package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	// TaxRate is the GST applied to the room subtotal.
	TaxRate = decimal.RequireFromString("0.12")
	// GreenTaxPerNight is charged flat per room per night.
	GreenTaxPerNight = decimal.NewFromInt(6)
)

// NightlyRate is the price of one stayed night for one room.
type NightlyRate struct {
	Date       string          `json:"date"`
	Price      decimal.Decimal `json:"price"`
	SeasonName string          `json:"season_name"`
	MinNights  int             `json:"min_nights,omitempty"`
}

// Breakdown is the itemised price of a stay. Once attached to a reservation it
// is frozen and never recomputed.
type Breakdown struct {
	NightlyRates []NightlyRate   `json:"nightly_rates"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Taxes        decimal.Decimal `json:"taxes"`
	Fees         decimal.Decimal `json:"fees"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	RoomQty      int             `json:"room_qty"`
}

// Nights returns the number of priced nights.
func (b Breakdown) Nights() int { return len(b.NightlyRates) }

// Calculator turns nightly rates into a Breakdown.
type Calculator interface {
	ComputeTotals(rates []NightlyRate, roomQty int, currency string) Breakdown
}

// StandardCalculator applies the resort's tax and green-tax formula.
type StandardCalculator struct{}

// NewStandardCalculator creates a StandardCalculator.
func NewStandardCalculator() *StandardCalculator {
	return &StandardCalculator{}
}

// ComputeTotals is the pure pricing function:
//
//	subtotal = sum(rates) * roomQty
//	taxes    = round2(subtotal * TaxRate)
//	fees     = GreenTaxPerNight * nights * roomQty
//	discount = 0
//	total    = round2(subtotal + taxes + fees - discount)
//
// Each field is rounded on its own; total is not a sum of rounded parts.
func (c *StandardCalculator) ComputeTotals(rates []NightlyRate, roomQty int, currency string) Breakdown {
	return ComputeTotals(rates, roomQty, currency)
}

// ComputeTotals is the package-level form of StandardCalculator.ComputeTotals.
func ComputeTotals(rates []NightlyRate, roomQty int, currency string) Breakdown {
	qty := decimal.NewFromInt(int64(roomQty))
	nights := decimal.NewFromInt(int64(len(rates)))

	sum := decimal.Zero
	for _, r := range rates {
		sum = sum.Add(r.Price)
	}

	subtotal := sum.Mul(qty)
	taxes := subtotal.Mul(TaxRate).Round(2)
	fees := GreenTaxPerNight.Mul(nights).Mul(qty)
	discount := decimal.Zero
	total := subtotal.Add(taxes).Add(fees).Sub(discount).Round(2)

	echoed := make([]NightlyRate, len(rates))
	copy(echoed, rates)

	return Breakdown{
		NightlyRates: echoed,
		Subtotal:     subtotal,
		Taxes:        taxes,
		Fees:         fees,
		Discount:     discount,
		Total:        total,
		Currency:     currency,
		RoomQty:      roomQty,
	}
}
