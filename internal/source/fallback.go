package source

import (
	"time"

	"github.com/speettolab/speetto-monitor/internal/speetto"
)

// FallbackReadings is the substitute reading set used when the fetch fails
// or extraction finds nothing, so status queries stay servable. Figures
// mirror a real page snapshot; callers must surface that fallback data was
// used (RunResult.UsedFallback, the status endpoint's source field).
func FallbackReadings(now time.Time) []speetto.Reading {
	today := speetto.DateOnly(now)
	return []speetto.Reading{
		{
			Game:      speetto.Speetto1000,
			Round:     99,
			AsOf:      today,
			StockRate: 14, // below threshold, no alert
			First:     speetto.PrizeTier{Amount: "5억원", Remaining: 2},
			Second:    speetto.PrizeTier{Amount: "2천만원", Remaining: 15},
			Third:     speetto.PrizeTier{Amount: "1만원", Remaining: 25000},
		},
		{
			Game:      speetto.Speetto1000,
			Round:     98,
			AsOf:      today,
			StockRate: 100, // eligible: fully stocked with first prizes left
			First:     speetto.PrizeTier{Amount: "5억원", Remaining: 1},
			Second:    speetto.PrizeTier{Amount: "2천만원", Remaining: 8},
			Third:     speetto.PrizeTier{Amount: "1만원", Remaining: 18000},
		},
		{
			Game:      speetto.Speetto2000,
			Round:     61,
			AsOf:      today,
			StockRate: 95, // no first prizes left
			First:     speetto.PrizeTier{Amount: "10억원", Remaining: 0},
			Second:    speetto.PrizeTier{Amount: "1억원", Remaining: 5},
			Third:     speetto.PrizeTier{Amount: "1천만원", Remaining: 12000},
		},
	}
}
