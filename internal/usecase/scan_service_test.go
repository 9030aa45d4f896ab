package usecase

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Bandi86/2025-sub012/internal/domain/match"
	"github.com/Bandi86/2025-sub012/internal/domain/report"
	"github.com/Bandi86/2025-sub012/internal/infrastructure/repository/memory"
	"github.com/Bandi86/2025-sub012/internal/platform/logging"
)

var scanNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testScanConfig() ScanConfig {
	return ScanConfig{
		LeakedTokens:          []string{"kapura", "kapus", "mezszám", "kezdő", "gólszerző", "versus"},
		MaxNameLength:         60,
		FarFutureHorizon:      548 * 24 * time.Hour,
		MinMarketCount:        2,
		PrimaryMarketName:     "Main Market",
		PrimaryMarketOddCount: 3,
		Now:                   func() time.Time { return scanNow },
	}
}

func newScanFixture() (*ScanService, *memory.TeamRepository, *memory.MatchRepository) {
	teams := memory.NewTeamRepository()
	matches := memory.NewMatchRepository()
	svc := NewScanService(teams, memory.NewCompetitionRepository(), matches, testScanConfig(), logging.NewNop())
	return svc, teams, matches
}

func findingsWithReason(findings []report.Finding, reason string) []report.Finding {
	var out []report.Finding
	for _, f := range findings {
		if f.ReasonCode == reason {
			out = append(out, f)
		}
	}
	return out
}

func TestScanFlagsLeakedTokenInTeamName(t *testing.T) {
	svc, teams, _ := newScanFixture()
	ctx := context.Background()

	if _, err := teams.GetOrCreateByName(ctx, "Ferencváros"); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	leaked, err := teams.GetOrCreateByName(ctx, "FC Válasszon kapura lövést csapat")
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}

	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if rep.ScannedTeams != 2 {
		t.Fatalf("ScannedTeams = %d, want 2", rep.ScannedTeams)
	}

	hits := findingsWithReason(rep.Findings, report.ReasonLeakedToken)
	if len(hits) != 1 {
		t.Fatalf("got %d leaked-token findings, want 1: %+v", len(hits), rep.Findings)
	}
	if hits[0].EntityID != leaked.ID || hits[0].Detail != "kapura" {
		t.Fatalf("finding = %+v, want team %d flagged for kapura", hits[0], leaked.ID)
	}
}

func TestScanTokenMatchIsCaseInsensitive(t *testing.T) {
	svc, teams, _ := newScanFixture()
	ctx := context.Background()

	if _, err := teams.GetOrCreateByName(ctx, "KAPUS Hiba SC"); err != nil {
		t.Fatalf("seed team: %v", err)
	}

	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(findingsWithReason(rep.Findings, report.ReasonLeakedToken)) != 1 {
		t.Fatalf("uppercase token not flagged: %+v", rep.Findings)
	}
}

func TestScanFlagsOverlongName(t *testing.T) {
	svc, teams, _ := newScanFixture()
	ctx := context.Background()

	if _, err := teams.GetOrCreateByName(ctx, strings.Repeat("é", 61)); err != nil {
		t.Fatalf("seed team: %v", err)
	}
	if _, err := teams.GetOrCreateByName(ctx, strings.Repeat("é", 60)); err != nil {
		t.Fatalf("seed team: %v", err)
	}

	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	// Length is counted in runes, so 60 multibyte characters pass.
	hits := findingsWithReason(rep.Findings, report.ReasonNameTooLong)
	if len(hits) != 1 {
		t.Fatalf("got %d overlong findings, want 1: %+v", len(hits), rep.Findings)
	}
}

func TestScanFlagsFarFutureDate(t *testing.T) {
	svc, _, matches := newScanFixture()
	ctx := context.Background()

	far, err := matches.Create(ctx, match.Match{
		Date: scanNow.Add(549 * 24 * time.Hour), HomeTeamID: 1, AwayTeamID: 2, CompetitionID: 1,
	})
	if err != nil {
		t.Fatalf("seed match: %v", err)
	}
	if _, err := matches.Create(ctx, match.Match{
		Date: scanNow.Add(24 * time.Hour), HomeTeamID: 3, AwayTeamID: 4, CompetitionID: 1,
	}); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	hits := findingsWithReason(rep.Findings, report.ReasonFarFutureDate)
	if len(hits) != 1 || hits[0].EntityID != far.ID {
		t.Fatalf("far-future findings = %+v, want only match %d", hits, far.ID)
	}
}

func TestScanCompleteness(t *testing.T) {
	svc, _, matches := newScanFixture()
	ctx := context.Background()

	m, err := matches.Create(ctx, match.Match{
		Date: scanNow.Add(24 * time.Hour), HomeTeamID: 1, AwayTeamID: 2, CompetitionID: 1,
	})
	if err != nil {
		t.Fatalf("seed match: %v", err)
	}
	empty, err := matches.CreateMarket(ctx, match.Market{MatchID: m.ID, Name: "Main Market"})
	if err != nil {
		t.Fatalf("seed market: %v", err)
	}

	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if hits := findingsWithReason(rep.Findings, report.ReasonTooFewMarkets); len(hits) != 1 || hits[0].EntityID != m.ID {
		t.Fatalf("too-few-markets findings = %+v, want match %d", hits, m.ID)
	}
	if hits := findingsWithReason(rep.Findings, report.ReasonEmptyMarket); len(hits) != 1 || hits[0].EntityID != empty.ID {
		t.Fatalf("empty-market findings = %+v, want market %d", hits, empty.ID)
	}
	// Zero odds is also the wrong cardinality for the primary market.
	if hits := findingsWithReason(rep.Findings, report.ReasonPrimaryOddCount); len(hits) != 1 {
		t.Fatalf("primary-odds findings = %+v, want 1", hits)
	}
}

func TestScanFlagsDuplicateMarketNames(t *testing.T) {
	svc, _, matches := newScanFixture()
	ctx := context.Background()

	m, err := matches.Create(ctx, match.Match{
		Date: scanNow.Add(24 * time.Hour), HomeTeamID: 1, AwayTeamID: 2, CompetitionID: 1,
	})
	if err != nil {
		t.Fatalf("seed match: %v", err)
	}
	for i := 0; i < 2; i++ {
		mk, err := matches.CreateMarket(ctx, match.Market{MatchID: m.ID, Name: "Gólszám 2,5"})
		if err != nil {
			t.Fatalf("seed market: %v", err)
		}
		if _, err := matches.UpsertOdd(ctx, match.Odd{MarketID: mk.ID, Type: "over", Value: 1.9}); err != nil {
			t.Fatalf("seed odd: %v", err)
		}
	}

	rep, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if hits := findingsWithReason(rep.Findings, report.ReasonDuplicateMarket); len(hits) != 1 {
		t.Fatalf("duplicate-market findings = %+v, want 1", hits)
	}
}

func TestScanReportIsDeterministic(t *testing.T) {
	svc, teams, matches := newScanFixture()
	ctx := context.Background()

	names := []string{"Zebra kapus FC", "Alfa kapus FC", strings.Repeat("x", 70)}
	for _, name := range names {
		if _, err := teams.GetOrCreateByName(ctx, name); err != nil {
			t.Fatalf("seed team: %v", err)
		}
	}
	if _, err := matches.Create(ctx, match.Match{
		Date: scanNow.Add(600 * 24 * time.Hour), HomeTeamID: 1, AwayTeamID: 2, CompetitionID: 1,
	}); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	first, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !reflect.DeepEqual(first.Findings, second.Findings) {
		t.Fatalf("scan output not stable:\n%+v\nvs\n%+v", first.Findings, second.Findings)
	}
	for i := 1; i < len(first.Findings); i++ {
		a, b := first.Findings[i-1], first.Findings[i]
		if a.EntityType > b.EntityType || (a.EntityType == b.EntityType && a.EntityID > b.EntityID) {
			t.Fatalf("findings not sorted at %d: %+v", i, first.Findings)
		}
	}
}
