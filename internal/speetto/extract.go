package speetto

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The extraction rules below are pattern matches over a third-party page
// with no schema contract. They are heuristic, not guaranteed-correct: when
// a game's section cannot be located the game is omitted, never an error,
// so one broken section cannot take down the whole extraction.

const (
	// Section window when no following game section delimits ours. Bounds
	// worst-case section size if the page structure changes.
	sectionWindow = 2000

	sectionMarker = "회 안내사항"
)

var (
	asOfPattern   = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{2})\s*기준`)
	stockPattern  = regexp.MustCompile(`판매점\s*입고율[^0-9]*([0-9]+)%`)
	strongPattern = regexp.MustCompile(`(?i)<strong[^>]*>([^<]*)</strong>`)
	digitsPattern = regexp.MustCompile(`^[0-9,]+$`)
	tokenPattern  = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\b`)

	// One round pattern per game: "<label> N회 안내사항".
	roundPatterns = buildRoundPatterns()
)

func buildRoundPatterns() map[Game]*regexp.Regexp {
	patterns := make(map[Game]*regexp.Regexp, len(AllGames))
	for _, g := range AllGames {
		patterns[g] = regexp.MustCompile(regexp.QuoteMeta(g.Label()) + `\s*(\d+)회\s*` + "안내사항")
	}
	return patterns
}

// Extract parses all recognizable game readings out of raw page markup.
// Pure function of its inputs; games without a recognizable section are
// omitted from the result. now supplies the as-of default when the section
// carries no 기준 date.
func Extract(raw string, now time.Time) []Reading {
	readings := make([]Reading, 0, len(AllGames))
	for _, g := range AllGames {
		if r, ok := extractGame(raw, g, now); ok {
			readings = append(readings, r)
		}
	}
	return readings
}

func extractGame(raw string, game Game, now time.Time) (Reading, bool) {
	loc := roundPatterns[game].FindStringSubmatchIndex(raw)
	if loc == nil {
		return Reading{}, false
	}

	round, err := strconv.Atoi(raw[loc[2]:loc[3]])
	if err != nil || round <= 0 {
		return Reading{}, false
	}

	section := gameSection(raw, loc[0], loc[1])

	asOf := DateOnly(now)
	if m := asOfPattern.FindStringSubmatch(section); m != nil {
		yy, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		dd, _ := strconv.Atoi(m[3])
		asOf = time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	}

	stockRate := 0
	if m := stockPattern.FindStringSubmatch(section); m != nil {
		stockRate, _ = strconv.Atoi(m[1])
	}

	remaining := extractRemaining(section)
	first, second, third := prizeAmounts(game)

	r := Reading{
		Game:      game,
		Round:     round,
		AsOf:      asOf,
		StockRate: stockRate,
		First:     PrizeTier{Amount: first},
		Second:    PrizeTier{Amount: second},
		Third:     PrizeTier{Amount: third},
	}
	if len(remaining) > 0 {
		r.First.Remaining = remaining[0]
	}
	if len(remaining) > 1 {
		r.Second.Remaining = remaining[1]
	}
	if len(remaining) > 2 {
		r.Third.Remaining = remaining[2]
	}
	return r, true
}

// gameSection delimits one game's markup: from its round-heading match up to
// the next game's heading, or a bounded window when none follows.
func gameSection(raw string, start, matchEnd int) string {
	if next := strings.Index(raw[matchEnd:], sectionMarker); next >= 0 {
		return raw[start : matchEnd+next]
	}
	end := start + sectionWindow
	if end > len(raw) {
		end = len(raw)
	}
	return raw[start:end]
}

// extractRemaining recovers up to three remaining-ticket counts from a game
// section, in document order. Two passes: counts are normally emphasized
// with <strong>, so those are preferred; if fewer than three turn up, the
// section's comma-grouped integer tokens backfill values not yet collected.
func extractRemaining(section string) []int {
	var numbers []int

	for _, m := range strongPattern.FindAllStringSubmatch(section, -1) {
		inner := strings.TrimSpace(m[1])
		if !digitsPattern.MatchString(inner) {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(inner, ",", ""))
		if err != nil || n < 0 {
			continue
		}
		numbers = append(numbers, n)
		if len(numbers) == 3 {
			return numbers
		}
	}

	if len(numbers) < 3 {
		for _, tok := range tokenPattern.FindAllString(section, -1) {
			n, err := strconv.Atoi(strings.ReplaceAll(tok, ",", ""))
			if err != nil || contains(numbers, n) {
				continue
			}
			numbers = append(numbers, n)
			if len(numbers) == 3 {
				break
			}
		}
	}

	return numbers
}

func contains(nums []int, n int) bool {
	for _, v := range nums {
		if v == n {
			return true
		}
	}
	return false
}
