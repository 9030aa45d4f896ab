package payload

import "time"

// RawMarket is one scraped market block. OrigMarket is the compact
// space-separated comma-decimal encoding ("3,70 3,45 1,82"); the itemized
// fields carry the same values individually and win when present.
type RawMarket struct {
	Name       string `json:"name" validate:"required"`
	OrigMarket string `json:"origMarket"`
	Odds1      string `json:"odds1"`
	OddsX      string `json:"oddsX"`
	Odds2      string `json:"odds2"`
	Over       string `json:"over"`
	Under      string `json:"under"`
	Yes        string `json:"yes"`
	No         string `json:"no"`
}

// RawMatchPayload is one scraped match record as handed over by the
// scraping layer.
type RawMatchPayload struct {
	HomeTeam    string      `json:"homeTeam" validate:"required"`
	AwayTeam    string      `json:"awayTeam" validate:"required"`
	Competition string      `json:"competition" validate:"required"`
	Date        string      `json:"date" validate:"required"`
	Markets     []RawMarket `json:"markets"`
}

type ParsedOdd struct {
	Type  string
	Value float64
}

type ParsedMarket struct {
	Name string
	Odds []ParsedOdd
}

// ParsedMatch is the typed intermediate value between the parser and the
// entity resolver. ParseFailures counts per-odd values that failed decimal
// normalization and were dropped; they are bookkeeping, not errors.
type ParsedMatch struct {
	Date            time.Time
	HomeName        string
	AwayName        string
	CompetitionName string
	Markets         []ParsedMarket
	ParseFailures   int
}
