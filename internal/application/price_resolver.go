package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/atollstay/service-reservation/internal/domain/pricing"
	"github.com/google/uuid"
)

// MinNightsViolation is a night whose seasonal price requires a longer stay.
type MinNightsViolation struct {
	Date      string `json:"date"`
	MinNights int    `json:"min_nights"`
}

// PriceQuote is the resolver's output. The breakdown covers only the nights
// that resolved to a price.
type PriceQuote struct {
	Breakdown           pricing.Breakdown
	MissingDates        []string
	MinNightsViolations []MinNightsViolation
}

// Bookable reports whether every night resolved and no minimum stay is violated.
func (q *PriceQuote) Bookable() bool {
	return len(q.MissingDates) == 0 && len(q.MinNightsViolations) == 0
}

// PriceResolver maps each stayed night to the seasonal price that applies to it.
type PriceResolver struct {
	seasons    inventory.SeasonRepository
	calculator pricing.Calculator
}

// NewPriceResolver creates a new PriceResolver.
func NewPriceResolver(seasons inventory.SeasonRepository, calculator pricing.Calculator) *PriceResolver {
	return &PriceResolver{seasons: seasons, calculator: calculator}
}

// Resolve prices the stay [checkIn, checkOut) for roomQty rooms in currency.
//
// Seasons are considered in start-date order and a night takes the first
// season containing it, whose oldest active price wins. If that season has no
// price the night is missing, even when a later season also covers it.
// Missing nights are never substituted.
func (r *PriceResolver) Resolve(
	ctx context.Context,
	roomTypeID uuid.UUID,
	checkIn, checkOut time.Time,
	roomQty int,
	currency string,
) (*PriceQuote, error) {
	nights, err := calendar.StayedNights(checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	seasons, err := r.seasons.FindActiveOverlapping(ctx, roomTypeID, currency,
		calendar.Normalize(checkIn), calendar.Normalize(checkOut))
	if err != nil {
		return nil, fmt.Errorf("failed to load seasons: %w", err)
	}
	sort.SliceStable(seasons, func(i, j int) bool {
		return seasons[i].StartDate.Before(seasons[j].StartDate)
	})

	quote := &PriceQuote{MissingDates: []string{}}
	rates := make([]pricing.NightlyRate, 0, len(nights))
	for _, night := range nights {
		dateStr := calendar.FormatDate(night)
		season, ok := matchSeason(seasons, night)
		if !ok {
			quote.MissingDates = append(quote.MissingDates, dateStr)
			continue
		}

		price := season.Prices[0]
		rates = append(rates, pricing.NightlyRate{
			Date:       dateStr,
			Price:      price.NightlyPrice,
			SeasonName: season.Name,
			MinNights:  price.MinNights,
		})
		if price.MinNights > len(nights) {
			quote.MinNightsViolations = append(quote.MinNightsViolations, MinNightsViolation{
				Date:      dateStr,
				MinNights: price.MinNights,
			})
		}
	}

	quote.Breakdown = r.calculator.ComputeTotals(rates, roomQty, currency)
	return quote, nil
}

// matchSeason returns the first season covering date. A covering season
// without prices counts as no match.
func matchSeason(seasons []inventory.Season, date time.Time) (inventory.Season, bool) {
	for _, s := range seasons {
		if s.Covers(date) {
			return s, len(s.Prices) > 0
		}
	}
	return inventory.Season{}, false
}
