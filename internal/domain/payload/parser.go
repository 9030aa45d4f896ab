package payload

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Bandi86/2025-sub012/internal/domain/match"
)

// Date layouts seen across the scrape sources, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02. 15:04",
	"2006.01.02.",
	"2006.01.02",
}

type marketKind int

const (
	kindThreeWay marketKind = iota
	kindTotals
	kindBothScore
)

// Parse turns one raw scraped record into typed values. A date that fails
// every known layout fails the whole record: a match without a date cannot
// be keyed. Malformed names pass through; the anomaly scan flags them.
func Parse(raw RawMatchPayload) (ParsedMatch, error) {
	date, err := ParseDate(raw.Date)
	if err != nil {
		return ParsedMatch{}, err
	}

	parsed := ParsedMatch{
		Date:            date,
		HomeName:        strings.TrimSpace(raw.HomeTeam),
		AwayName:        strings.TrimSpace(raw.AwayTeam),
		CompetitionName: strings.TrimSpace(raw.Competition),
		Markets:         make([]ParsedMarket, 0, len(raw.Markets)),
	}

	for _, block := range raw.Markets {
		market, failures := parseMarket(block)
		parsed.ParseFailures += failures
		parsed.Markets = append(parsed.Markets, market)
	}

	return parsed, nil
}

// ParseDate parses a scraped date string and normalizes it to UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// ParseDecimal normalizes one comma-decimal odds value ("3,70" -> 3.70).
// Values that are not finite positive numbers are rejected.
func ParseDecimal(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty odds value")
	}

	normalized := strings.ReplaceAll(value, ",", ".")
	parsed, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("parse odds value %q: %w", value, err)
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed <= 0 {
		return 0, fmt.Errorf("odds value %q out of range", value)
	}

	return parsed, nil
}

// parseMarket keeps a block even when every value fails to parse: an empty
// market still counts for market-count bookkeeping and shows up in the
// completeness report.
func parseMarket(block RawMarket) (ParsedMarket, int) {
	market := ParsedMarket{Name: strings.TrimSpace(block.Name)}

	itemized := []struct {
		oddType string
		value   string
	}{
		{match.OddHome, block.Odds1},
		{match.OddDraw, block.OddsX},
		{match.OddAway, block.Odds2},
		{match.OddOver, block.Over},
		{match.OddUnder, block.Under},
		{match.OddYes, block.Yes},
		{match.OddNo, block.No},
	}

	failures := 0
	hasItemized := false
	for _, item := range itemized {
		if strings.TrimSpace(item.value) == "" {
			continue
		}
		hasItemized = true
		value, err := ParseDecimal(item.value)
		if err != nil {
			failures++
			continue
		}
		market.Odds = append(market.Odds, ParsedOdd{Type: item.oddType, Value: value})
	}

	// origMarket is a fallback only; itemized fields are the source of
	// truth whenever any of them is present.
	if !hasItemized {
		odds, origFailures := parseOrigMarket(block.Name, block.OrigMarket)
		market.Odds = odds
		failures += origFailures
	}

	return market, failures
}

func parseOrigMarket(name, orig string) ([]ParsedOdd, int) {
	tokens := strings.Fields(orig)
	if len(tokens) == 0 {
		return nil, 0
	}

	types := positionalTypes(inferKind(name), len(tokens))

	odds := make([]ParsedOdd, 0, len(tokens))
	failures := 0
	for i, token := range tokens {
		value, err := ParseDecimal(token)
		if err != nil {
			failures++
			continue
		}
		odds = append(odds, ParsedOdd{Type: types[i], Value: value})
	}

	return odds, failures
}

func inferKind(name string) marketKind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "over/under"),
		strings.Contains(lower, "total"),
		strings.Contains(lower, "gólszám"):
		return kindTotals
	case strings.Contains(lower, "both teams"),
		strings.Contains(lower, "btts"),
		strings.Contains(lower, "mindkét csapat"):
		return kindBothScore
	default:
		return kindThreeWay
	}
}

// positionalTypes assigns the known outcome types in encounter order for
// the market kind; surplus tokens get numbered labels.
func positionalTypes(kind marketKind, count int) []string {
	var known []string
	switch kind {
	case kindTotals:
		known = []string{match.OddOver, match.OddUnder}
	case kindBothScore:
		known = []string{match.OddYes, match.OddNo}
	default:
		known = []string{match.OddHome, match.OddDraw, match.OddAway}
		if count == 2 {
			// Two prices in a default block means a drawless two-way market.
			known = []string{match.OddHome, match.OddAway}
		}
	}

	types := make([]string, count)
	for i := 0; i < count; i++ {
		if i < len(known) {
			types[i] = known[i]
			continue
		}
		types[i] = "outcome" + strconv.Itoa(i+1)
	}

	return types
}
