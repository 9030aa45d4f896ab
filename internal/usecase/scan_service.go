package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Bandi86/2025-sub012/internal/domain/competition"
	"github.com/Bandi86/2025-sub012/internal/domain/match"
	"github.com/Bandi86/2025-sub012/internal/domain/report"
	"github.com/Bandi86/2025-sub012/internal/domain/team"
	"github.com/Bandi86/2025-sub012/internal/platform/logging"
)

// ScanConfig carries the anomaly and completeness thresholds. The leaked
// token list is configuration, not code: it tracks one scraper's bug
// history and changes without a rebuild.
type ScanConfig struct {
	LeakedTokens          []string
	MaxNameLength         int
	FarFutureHorizon      time.Duration
	MinMarketCount        int
	PrimaryMarketName     string
	PrimaryMarketOddCount int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// ScanService runs the anomaly detector and the completeness validator in
// one read-only pass. It only reports; it never mutates data.
type ScanService struct {
	teams        team.Repository
	competitions competition.Repository
	matches      match.Repository
	cfg          ScanConfig
	logger       *logging.Logger
}

func NewScanService(
	teams team.Repository,
	competitions competition.Repository,
	matches match.Repository,
	cfg ScanConfig,
	logger *logging.Logger,
) *ScanService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ScanService{
		teams:        teams,
		competitions: competitions,
		matches:      matches,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *ScanService) Run(ctx context.Context) (report.ScanReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScanService.Run")
	defer span.End()

	var (
		teams     []team.Team
		comps     []competition.Competition
		matches   []match.Match
		summaries []match.MarketSummary
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		teams, err = s.teams.List(ctx)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		comps, err = s.competitions.List(ctx)
		if err != nil {
			return fmt.Errorf("list competitions: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		matches, err = s.matches.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list matches: %w", err)
		}
		summaries, err = s.matches.ListMarketSummaries(ctx)
		if err != nil {
			return fmt.Errorf("list market summaries: %w", err)
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return report.ScanReport{}, err
	}

	rep := report.ScanReport{
		ScannedTeams:        len(teams),
		ScannedCompetitions: len(comps),
		ScannedMatches:      len(matches),
	}

	for _, item := range teams {
		rep.Findings = append(rep.Findings, s.scanName(report.EntityTeam, item.ID, item.Name)...)
	}
	for _, item := range comps {
		rep.Findings = append(rep.Findings, s.scanName(report.EntityCompetition, item.ID, item.Name)...)
	}

	horizon := s.cfg.Now().Add(s.cfg.FarFutureHorizon)
	for _, item := range matches {
		if item.Date.After(horizon) {
			date := item.Date
			rep.Findings = append(rep.Findings, report.Finding{
				EntityType: report.EntityMatch,
				EntityID:   item.ID,
				Date:       &date,
				ReasonCode: report.ReasonFarFutureDate,
			})
		}
	}

	rep.Findings = append(rep.Findings, s.scanCompleteness(matches, summaries)...)

	sortFindings(rep.Findings)

	s.logger.InfoContext(ctx, "scan pass done",
		"teams", rep.ScannedTeams,
		"competitions", rep.ScannedCompetitions,
		"matches", rep.ScannedMatches,
		"findings", len(rep.Findings),
	)

	return rep, nil
}

// scanName is pure: the outcome depends only on the name and the configured
// thresholds, never on ordering or call count.
func (s *ScanService) scanName(entityType string, id int64, name string) []report.Finding {
	var findings []report.Finding

	lower := strings.ToLower(name)
	for _, token := range s.cfg.LeakedTokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(token)) {
			findings = append(findings, report.Finding{
				EntityType: entityType,
				EntityID:   id,
				Name:       name,
				ReasonCode: report.ReasonLeakedToken,
				Detail:     token,
			})
			break
		}
	}

	if s.cfg.MaxNameLength > 0 && len([]rune(name)) > s.cfg.MaxNameLength {
		findings = append(findings, report.Finding{
			EntityType: entityType,
			EntityID:   id,
			Name:       name,
			ReasonCode: report.ReasonNameTooLong,
		})
	}

	return findings
}

func (s *ScanService) scanCompleteness(matches []match.Match, summaries []match.MarketSummary) []report.Finding {
	byMatch := make(map[int64][]match.MarketSummary, len(matches))
	for _, summary := range summaries {
		byMatch[summary.MatchID] = append(byMatch[summary.MatchID], summary)
	}

	var findings []report.Finding
	for _, item := range matches {
		markets := byMatch[item.ID]

		if len(markets) < s.cfg.MinMarketCount {
			findings = append(findings, report.Finding{
				EntityType: report.EntityMatch,
				EntityID:   item.ID,
				ReasonCode: report.ReasonTooFewMarkets,
				Detail:     fmt.Sprintf("%d of %d", len(markets), s.cfg.MinMarketCount),
			})
		}

		seen := make(map[string]bool, len(markets))
		for _, mk := range markets {
			if seen[mk.MarketName] {
				findings = append(findings, report.Finding{
					EntityType: report.EntityMatch,
					EntityID:   item.ID,
					Name:       mk.MarketName,
					ReasonCode: report.ReasonDuplicateMarket,
				})
			}
			seen[mk.MarketName] = true

			if mk.OddCount == 0 {
				findings = append(findings, report.Finding{
					EntityType: report.EntityMarket,
					EntityID:   mk.MarketID,
					Name:       mk.MarketName,
					ReasonCode: report.ReasonEmptyMarket,
				})
			}

			if mk.MarketName == s.cfg.PrimaryMarketName && mk.OddCount != s.cfg.PrimaryMarketOddCount {
				findings = append(findings, report.Finding{
					EntityType: report.EntityMarket,
					EntityID:   mk.MarketID,
					Name:       mk.MarketName,
					ReasonCode: report.ReasonPrimaryOddCount,
					Detail:     fmt.Sprintf("%d of %d", mk.OddCount, s.cfg.PrimaryMarketOddCount),
				})
			}
		}
	}

	return findings
}

func sortFindings(findings []report.Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		if a.ReasonCode != b.ReasonCode {
			return a.ReasonCode < b.ReasonCode
		}
		return a.Detail < b.Detail
	})
}
