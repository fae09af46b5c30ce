// Package speetto defines the Speetto domain model: the fixed game set,
// per-round readings scraped from the lottery site, and the alert rule.
package speetto

import (
	"fmt"
	"time"

	"github.com/speettolab/speetto-monitor/internal/config"
)

// Game identifies one of the tracked Speetto products.
type Game string

const (
	Speetto1000 Game = "speetto1000"
	Speetto2000 Game = "speetto2000"
)

// AllGames lists every tracked game in extraction order.
var AllGames = []Game{Speetto1000, Speetto2000}

// Valid reports whether g is a known game identifier.
func (g Game) Valid() bool {
	_, ok := config.GameRegistry[string(g)]
	return ok
}

// Label returns the display label used on the source page ("스피또1000").
func (g Game) Label() string {
	return config.GameRegistry[string(g)].Label
}

// PrizeTier is one prize rank with its fixed amount label and the remaining
// ticket count reported by the source.
type PrizeTier struct {
	Amount    string `json:"amount"`
	Remaining int    `json:"remaining"`
}

// Reading is a single observation of one game round. Produced fresh on every
// fetch and never mutated; the next fetch of the same round supersedes it.
type Reading struct {
	Game   Game      `json:"game"`
	Round  int       `json:"round"`
	AsOf   time.Time `json:"as_of"`
	// StockRate is the store in-stock percentage as reported. The source
	// has been observed above 100; the value is stored as-is, never clamped.
	StockRate int       `json:"store_instock_rate"`
	First     PrizeTier `json:"first"`
	Second    PrizeTier `json:"second"`
	Third     PrizeTier `json:"third"`
}

// IsAlertEligible reports whether a reading should trigger an alert:
// stock rate at least 100% and first-prize tickets remaining.
func IsAlertEligible(r Reading) bool {
	return r.StockRate >= 100 && r.First.Remaining > 0
}

// FormatReading renders a reading as a short human-readable block.
func FormatReading(r Reading) string {
	return fmt.Sprintf("%s %d회\n출고율: %d%%\n1등 잔여: %d매\n기준일: %s",
		r.Game.Label(), r.Round, r.StockRate, r.First.Remaining,
		r.AsOf.Format("2006-01-02"))
}

// prizeAmounts returns the fixed amount labels for a game. Amounts are not
// parsed from the page.
func prizeAmounts(g Game) (first, second, third string) {
	gc := config.GameRegistry[string(g)]
	return gc.FirstPrize, gc.SecondPrize, gc.ThirdPrize
}

// DateOnly truncates t to its calendar day in UTC. Readings and the daily
// dedup check both key on this.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
