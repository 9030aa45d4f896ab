package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"

	"github.com/Bandi86/2025-sub012/internal/domain/competition"
	"github.com/Bandi86/2025-sub012/internal/domain/match"
	"github.com/Bandi86/2025-sub012/internal/domain/payload"
	"github.com/Bandi86/2025-sub012/internal/domain/report"
	"github.com/Bandi86/2025-sub012/internal/domain/team"
	"github.com/Bandi86/2025-sub012/internal/platform/keylock"
	"github.com/Bandi86/2025-sub012/internal/platform/logging"
)

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// IngestService turns raw scraped payloads into canonical rows: it resolves
// team/competition names to ids and upserts the match with its markets and
// odds. Two payloads resolving to the same natural key serialize on a
// per-key lock, so concurrent ingestion cannot double-insert one match.
type IngestService struct {
	teams        team.Repository
	competitions competition.Repository
	matches      match.Repository
	locks        *keylock.KeyLock
	logger       *logging.Logger
	maxWorkers   int
}

func NewIngestService(
	teams team.Repository,
	competitions competition.Repository,
	matches match.Repository,
	logger *logging.Logger,
	maxWorkers int,
) *IngestService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &IngestService{
		teams:        teams,
		competitions: competitions,
		matches:      matches,
		locks:        keylock.New(),
		logger:       logger,
		maxWorkers:   maxWorkers,
	}
}

type ingestStats struct {
	matchesCreated int
	matchesUpdated int
	marketsCreated int
	marketsUpdated int
	oddsWritten    int
	parseFailures  int
}

// IngestBatch processes payloads with bounded parallelism. A payload that
// fails (bad date, unresolvable entities) is rejected and reported; the
// rest of the batch continues.
func (s *IngestService) IngestBatch(ctx context.Context, payloads []payload.RawMatchPayload) (report.IngestReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestService.IngestBatch")
	defer span.End()

	rep := report.IngestReport{Payloads: len(payloads)}
	if len(payloads) == 0 {
		return rep, nil
	}

	pool, err := ants.NewPool(s.maxWorkers)
	if err != nil {
		return rep, fmt.Errorf("create ingest pool: %w", err)
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for idx := range payloads {
		idx := idx
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			stats, err := s.ingestOne(ctx, payloads[idx])

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Rejected payloads wrote nothing, so their per-odd parse
				// failures do not count toward ingested data either.
				rep.Rejected = append(rep.Rejected, report.RejectedPayload{Index: idx, Reason: err.Error()})
				return
			}
			rep.OddParseFailures += stats.parseFailures
			rep.MatchesCreated += stats.matchesCreated
			rep.MatchesUpdated += stats.matchesUpdated
			rep.MarketsCreated += stats.marketsCreated
			rep.MarketsUpdated += stats.marketsUpdated
			rep.OddsWritten += stats.oddsWritten
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			rep.Rejected = append(rep.Rejected, report.RejectedPayload{Index: idx, Reason: submitErr.Error()})
			mu.Unlock()
		}
	}
	wg.Wait()

	sort.Slice(rep.Rejected, func(i, j int) bool { return rep.Rejected[i].Index < rep.Rejected[j].Index })

	s.logger.InfoContext(ctx, "ingest batch done",
		"payloads", rep.Payloads,
		"rejected", len(rep.Rejected),
		"matches_created", rep.MatchesCreated,
		"matches_updated", rep.MatchesUpdated,
		"odds_written", rep.OddsWritten,
	)

	return rep, nil
}

func (s *IngestService) ingestOne(ctx context.Context, raw payload.RawMatchPayload) (ingestStats, error) {
	var stats ingestStats

	if err := payloadValidator.Struct(raw); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	parsed, err := payload.Parse(raw)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	stats.parseFailures = parsed.ParseFailures

	home, err := s.teams.GetOrCreateByName(ctx, parsed.HomeName)
	if err != nil {
		return stats, fmt.Errorf("resolve home team: %w", err)
	}
	away, err := s.teams.GetOrCreateByName(ctx, parsed.AwayName)
	if err != nil {
		return stats, fmt.Errorf("resolve away team: %w", err)
	}
	if home.ID == away.ID {
		return stats, fmt.Errorf("%w: home and away resolve to the same team %q", ErrInvalidInput, home.Name)
	}
	comp, err := s.competitions.GetOrCreateByName(ctx, parsed.CompetitionName)
	if err != nil {
		return stats, fmt.Errorf("resolve competition: %w", err)
	}

	key := match.Key{
		Date:          parsed.Date,
		HomeTeamID:    home.ID,
		AwayTeamID:    away.ID,
		CompetitionID: comp.ID,
	}
	if err := key.Validate(); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	unlock := s.locks.Lock(key.String())
	defer unlock()

	err = s.upsertMatch(ctx, key, parsed.Markets, &stats)
	if errors.Is(err, match.ErrConflict) {
		// A concurrent writer got there first; the row exists now, so one
		// retry lands on the update path.
		s.logger.WarnContext(ctx, "write conflict, retrying upsert", "key", key.String())
		err = s.upsertMatch(ctx, key, parsed.Markets, &stats)
	}

	return stats, err
}

func (s *IngestService) upsertMatch(ctx context.Context, key match.Key, markets []payload.ParsedMarket, stats *ingestStats) error {
	existing, found, err := s.matches.GetByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("lookup match by key: %w", err)
	}

	if !found {
		created, err := s.matches.Create(ctx, match.Match{
			Date:          key.Date,
			HomeTeamID:    key.HomeTeamID,
			AwayTeamID:    key.AwayTeamID,
			CompetitionID: key.CompetitionID,
		})
		if err != nil {
			return fmt.Errorf("create match: %w", err)
		}
		existing = created
		stats.matchesCreated++
	} else {
		stats.matchesUpdated++
	}

	marketRows, err := s.matches.ListMarkets(ctx, existing.ID)
	if err != nil {
		return fmt.Errorf("list markets: %w", err)
	}
	byName := make(map[string]match.Market, len(marketRows))
	for _, row := range marketRows {
		if _, ok := byName[row.Name]; !ok {
			byName[row.Name] = row
		}
	}

	for _, parsed := range markets {
		target, ok := byName[parsed.Name]
		if !ok {
			created, err := s.matches.CreateMarket(ctx, match.Market{MatchID: existing.ID, Name: parsed.Name})
			if err != nil {
				return fmt.Errorf("create market %q: %w", parsed.Name, err)
			}
			target = created
			byName[parsed.Name] = created
			stats.marketsCreated++
		} else {
			stats.marketsUpdated++
		}

		// Overwrite-by-type lets a later, fuller scrape fill odds an
		// earlier partial scrape missed without dropping its markets.
		for _, odd := range parsed.Odds {
			if _, err := s.matches.UpsertOdd(ctx, match.Odd{
				MarketID: target.ID,
				Type:     odd.Type,
				Value:    odd.Value,
			}); err != nil {
				return fmt.Errorf("upsert odd %s on market %q: %w", odd.Type, parsed.Name, err)
			}
			stats.oddsWritten++
		}
	}

	return nil
}
