package report

import "time"

// Reason codes carried by scan findings.
const (
	ReasonLeakedToken     = "name_leaked_token"
	ReasonNameTooLong     = "name_too_long"
	ReasonFarFutureDate   = "date_far_future"
	ReasonTooFewMarkets   = "too_few_markets"
	ReasonEmptyMarket     = "market_no_odds"
	ReasonDuplicateMarket = "duplicate_market_name"
	ReasonPrimaryOddCount = "primary_market_odds_count"
)

// Entity types referenced by findings.
const (
	EntityTeam        = "team"
	EntityCompetition = "competition"
	EntityMatch       = "match"
	EntityMarket      = "market"
)

// Finding is one advisory flag. The scan passes never mutate data; persisting
// or acting on findings is the operator's call.
type Finding struct {
	EntityType string     `json:"entity_type"`
	EntityID   int64      `json:"entity_id"`
	Name       string     `json:"name,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	ReasonCode string     `json:"reason_code"`
	Detail     string     `json:"detail,omitempty"`
}

// RejectedPayload records one payload dropped from a batch (key failure).
type RejectedPayload struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// IngestReport summarizes one batch ingestion run.
type IngestReport struct {
	Payloads         int               `json:"payloads"`
	Rejected         []RejectedPayload `json:"rejected,omitempty"`
	MatchesCreated   int               `json:"matches_created"`
	MatchesUpdated   int               `json:"matches_updated"`
	MarketsCreated   int               `json:"markets_created"`
	MarketsUpdated   int               `json:"markets_updated"`
	OddsWritten      int               `json:"odds_written"`
	OddParseFailures int               `json:"odd_parse_failures"`
}

// UnresolvedGroup reports a duplicate group whose merge was aborted; both
// match rows stay intact.
type UnresolvedGroup struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ReconcileSummary summarizes one deduplication pass. A repeated run with no
// new ingestions reports zeroes everywhere.
type ReconcileSummary struct {
	GroupsProcessed   int               `json:"groups_processed"`
	MatchesRemoved    int               `json:"matches_removed"`
	MarketsReparented int               `json:"markets_reparented"`
	MarketsMerged     int               `json:"markets_merged"`
	OddsOverwritten   int               `json:"odds_overwritten"`
	OddsPreserved     int               `json:"odds_preserved"`
	Unresolved        []UnresolvedGroup `json:"unresolved,omitempty"`
}

// ScanReport combines the anomaly and completeness findings of one pass.
type ScanReport struct {
	ScannedTeams        int       `json:"scanned_teams"`
	ScannedCompetitions int       `json:"scanned_competitions"`
	ScannedMatches      int       `json:"scanned_matches"`
	Findings            []Finding `json:"findings"`
}
