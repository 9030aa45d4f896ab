package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/Bandi86/2025-sub012/internal/domain/match"
	"github.com/Bandi86/2025-sub012/internal/domain/payload"
	"github.com/Bandi86/2025-sub012/internal/infrastructure/repository/memory"
	"github.com/Bandi86/2025-sub012/internal/platform/logging"
)

func newIngestFixture() (*IngestService, *memory.MatchRepository) {
	matches := memory.NewMatchRepository()
	svc := NewIngestService(
		memory.NewTeamRepository(),
		memory.NewCompetitionRepository(),
		matches,
		logging.NewNop(),
		4,
	)
	return svc, matches
}

func mainMarketPayload() payload.RawMatchPayload {
	return payload.RawMatchPayload{
		HomeTeam:    "Borussia Dortmund",
		AwayTeam:    "Monterrey",
		Competition: "Club World Cup",
		Date:        "2025-06-01 21:00",
		Markets: []payload.RawMarket{
			{Name: "Main Market", Odds1: "1,80", OddsX: "3,60", Odds2: "4,20"},
		},
	}
}

func TestIngestBatchIsIdempotent(t *testing.T) {
	svc, matches := newIngestFixture()
	ctx := context.Background()

	first, err := svc.IngestBatch(ctx, []payload.RawMatchPayload{mainMarketPayload()})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.MatchesCreated != 1 || first.MarketsCreated != 1 || first.OddsWritten != 3 {
		t.Fatalf("first ingest report = %+v, want 1 match, 1 market, 3 odds", first)
	}

	second, err := svc.IngestBatch(ctx, []payload.RawMatchPayload{mainMarketPayload()})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.MatchesCreated != 0 || second.MatchesUpdated != 1 {
		t.Fatalf("second ingest report = %+v, want update path", second)
	}

	all, err := matches.ListAll(ctx)
	if err != nil {
		t.Fatalf("list matches: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d matches after repeated ingest, want 1", len(all))
	}

	markets, err := matches.ListMarkets(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(markets) != 1 || markets[0].Name != "Main Market" {
		t.Fatalf("got markets %+v, want single Main Market", markets)
	}

	odds, err := matches.ListOdds(ctx, markets[0].ID)
	if err != nil {
		t.Fatalf("list odds: %v", err)
	}
	if len(odds) != 3 {
		t.Fatalf("got %d odds, want 3", len(odds))
	}
	want := map[string]float64{"home": 1.80, "draw": 3.60, "away": 4.20}
	for _, odd := range odds {
		if want[odd.Type] != odd.Value {
			t.Fatalf("odd %s = %v, want %v", odd.Type, odd.Value, want[odd.Type])
		}
	}
}

func TestIngestBatchUnionsMarkets(t *testing.T) {
	svc, matches := newIngestFixture()
	ctx := context.Background()

	if _, err := svc.IngestBatch(ctx, []payload.RawMatchPayload{mainMarketPayload()}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	withTotals := mainMarketPayload()
	withTotals.Markets = append(withTotals.Markets, payload.RawMarket{
		Name: "Gólszám 2,5", Over: "1,95", Under: "1,85",
	})
	rep, err := svc.IngestBatch(ctx, []payload.RawMatchPayload{withTotals})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if rep.MarketsCreated != 1 || rep.MarketsUpdated != 1 {
		t.Fatalf("report = %+v, want one new market and one existing", rep)
	}

	all, _ := matches.ListAll(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d matches, want 1", len(all))
	}
	markets, err := matches.ListMarkets(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("got %d markets, want union of 2", len(markets))
	}
}

func TestIngestBatchRejectsBadPayloadsAndKeepsRest(t *testing.T) {
	svc, matches := newIngestFixture()
	ctx := context.Background()

	badDate := mainMarketPayload()
	badDate.Date = "next tuesday"
	sameTeam := mainMarketPayload()
	sameTeam.AwayTeam = sameTeam.HomeTeam

	rep, err := svc.IngestBatch(ctx, []payload.RawMatchPayload{badDate, mainMarketPayload(), sameTeam})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rep.Rejected) != 2 {
		t.Fatalf("got %d rejections, want 2: %+v", len(rep.Rejected), rep.Rejected)
	}
	if rep.Rejected[0].Index != 0 || rep.Rejected[1].Index != 2 {
		t.Fatalf("rejected indexes = %+v, want 0 and 2", rep.Rejected)
	}
	if rep.MatchesCreated != 1 {
		t.Fatalf("report = %+v, want the valid payload ingested", rep)
	}

	all, _ := matches.ListAll(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d matches, want 1", len(all))
	}
}

func TestIngestBatchCountsOddParseFailures(t *testing.T) {
	svc, _ := newIngestFixture()

	broken := mainMarketPayload()
	broken.Markets[0].OddsX = "n/a"
	rep, err := svc.IngestBatch(context.Background(), []payload.RawMatchPayload{broken})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rep.Rejected) != 0 {
		t.Fatalf("unparseable odd must not reject the payload: %+v", rep.Rejected)
	}
	if rep.OddParseFailures != 1 {
		t.Fatalf("OddParseFailures = %d, want 1", rep.OddParseFailures)
	}
	if rep.OddsWritten != 2 {
		t.Fatalf("OddsWritten = %d, want the 2 parseable odds", rep.OddsWritten)
	}
}

func TestIngestBatchIgnoresParseFailuresOfRejectedPayloads(t *testing.T) {
	svc, _ := newIngestFixture()

	// Parses with one odd failure, then gets rejected at the key stage.
	rejected := mainMarketPayload()
	rejected.Markets[0].OddsX = "n/a"
	rejected.AwayTeam = rejected.HomeTeam

	rep, err := svc.IngestBatch(context.Background(), []payload.RawMatchPayload{rejected})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rep.Rejected) != 1 {
		t.Fatalf("got %d rejections, want 1: %+v", len(rep.Rejected), rep.Rejected)
	}
	if rep.OddParseFailures != 0 {
		t.Fatalf("OddParseFailures = %d, want 0: rejected payloads wrote nothing", rep.OddParseFailures)
	}
}

// conflictingMatchRepository simulates losing a natural-key insert race:
// the first Create reports a unique-constraint conflict after the
// concurrent winner's row has already landed in the store.
type conflictingMatchRepository struct {
	*memory.MatchRepository
	mu        sync.Mutex
	conflicts int
}

func (r *conflictingMatchRepository) Create(ctx context.Context, m match.Match) (match.Match, error) {
	r.mu.Lock()
	first := r.conflicts == 0
	if first {
		r.conflicts++
	}
	r.mu.Unlock()

	if first {
		if _, err := r.MatchRepository.Create(ctx, m); err != nil {
			return match.Match{}, err
		}
		return match.Match{}, match.ErrConflict
	}

	return r.MatchRepository.Create(ctx, m)
}

func TestIngestBatchRetriesOnWriteConflict(t *testing.T) {
	matches := &conflictingMatchRepository{MatchRepository: memory.NewMatchRepository()}
	svc := NewIngestService(
		memory.NewTeamRepository(),
		memory.NewCompetitionRepository(),
		matches,
		logging.NewNop(),
		1,
	)
	ctx := context.Background()

	rep, err := svc.IngestBatch(ctx, []payload.RawMatchPayload{mainMarketPayload()})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rep.Rejected) != 0 {
		t.Fatalf("conflict must be retried, not rejected: %+v", rep.Rejected)
	}
	if matches.conflicts != 1 {
		t.Fatalf("conflicts = %d, want exactly one simulated race", matches.conflicts)
	}
	if rep.MatchesCreated != 0 || rep.MatchesUpdated != 1 {
		t.Fatalf("report = %+v, want the retry to land on the update path", rep)
	}

	all, _ := matches.ListAll(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d matches after conflict retry, want 1", len(all))
	}
	markets, err := matches.ListMarkets(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("got %d markets, want 1", len(markets))
	}
	odds, _ := matches.ListOdds(ctx, markets[0].ID)
	if len(odds) != 3 {
		t.Fatalf("got %d odds after conflict retry, want 3", len(odds))
	}
}

func TestIngestBatchConcurrentSameKey(t *testing.T) {
	svc, matches := newIngestFixture()
	ctx := context.Background()

	batch := make([]payload.RawMatchPayload, 16)
	for i := range batch {
		batch[i] = mainMarketPayload()
	}
	rep, err := svc.IngestBatch(ctx, batch)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(rep.Rejected) != 0 {
		t.Fatalf("rejections: %+v", rep.Rejected)
	}
	if rep.MatchesCreated != 1 || rep.MatchesUpdated != 15 {
		t.Fatalf("report = %+v, want exactly one create for the shared key", rep)
	}

	all, _ := matches.ListAll(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d matches from concurrent ingest of one key, want 1", len(all))
	}
}
