package usecase

import (
	"context"
	"fmt"

	"github.com/Bandi86/2025-sub012/internal/domain/match"
	"github.com/Bandi86/2025-sub012/internal/domain/report"
	"github.com/Bandi86/2025-sub012/internal/platform/logging"
)

// ReconcileService collapses duplicate match rows that share one natural
// key. The pass is idempotent: a second run over an unchanged store finds
// no duplicate groups and does nothing, which is also what makes an aborted
// run safe to repeat.
type ReconcileService struct {
	matches match.Repository
	logger  *logging.Logger
}

func NewReconcileService(matches match.Repository, logger *logging.Logger) *ReconcileService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReconcileService{matches: matches, logger: logger}
}

type groupTally struct {
	matchesRemoved    int
	marketsReparented int
	marketsMerged     int
	oddsOverwritten   int
	oddsPreserved     int
}

func (s *ReconcileService) Run(ctx context.Context) (report.ReconcileSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Run")
	defer span.End()

	var summary report.ReconcileSummary

	keys, err := s.matches.ListDuplicateKeys(ctx)
	if err != nil {
		return summary, fmt.Errorf("list duplicate keys: %w", err)
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.GroupsProcessed++
		tally, err := s.reconcileGroup(ctx, key)
		if err != nil {
			// The group's merge is aborted as a whole; both rows stay
			// intact and the group is reported unresolved.
			s.logger.WarnContext(ctx, "duplicate group left unresolved", "key", key.String(), "error", err)
			summary.Unresolved = append(summary.Unresolved, report.UnresolvedGroup{
				Key:    key.String(),
				Reason: err.Error(),
			})
			continue
		}

		summary.MatchesRemoved += tally.matchesRemoved
		summary.MarketsReparented += tally.marketsReparented
		summary.MarketsMerged += tally.marketsMerged
		summary.OddsOverwritten += tally.oddsOverwritten
		summary.OddsPreserved += tally.oddsPreserved
	}

	s.logger.InfoContext(ctx, "reconcile pass done",
		"groups", summary.GroupsProcessed,
		"matches_removed", summary.MatchesRemoved,
		"unresolved", len(summary.Unresolved),
	)

	return summary, nil
}

// marketState tracks one merge-target market. baseCount is frozen at the
// moment the market became the target, so the richer-record comparison is
// always against the target's original odds, not state accumulated from
// earlier duplicates in the same group.
type marketState struct {
	id        int64
	odds      map[string]float64
	baseCount int
}

func (s *ReconcileService) reconcileGroup(ctx context.Context, key match.Key) (groupTally, error) {
	var tally groupTally

	members, err := s.matches.ListByKey(ctx, key)
	if err != nil {
		return tally, fmt.Errorf("list group members: %w", err)
	}
	if len(members) < 2 {
		return tally, nil
	}

	// Lowest id survives: deterministic, so repeated runs agree.
	survivor := members[0]
	plan := match.MergePlan{SurvivorID: survivor.ID}

	effective, err := s.loadMarketStates(ctx, survivor.ID)
	if err != nil {
		return tally, err
	}

	for _, dup := range members[1:] {
		dupMarkets, err := s.matches.ListMarkets(ctx, dup.ID)
		if err != nil {
			return tally, fmt.Errorf("list markets of match %d: %w", dup.ID, err)
		}

		for _, mk := range dupMarkets {
			state, exists := effective[mk.Name]
			if !exists {
				plan.ReparentMarketIDs = append(plan.ReparentMarketIDs, mk.ID)
				odds, err := s.matches.ListOdds(ctx, mk.ID)
				if err != nil {
					return tally, fmt.Errorf("list odds of market %d: %w", mk.ID, err)
				}
				effective[mk.Name] = newMarketState(mk.ID, odds)
				tally.marketsReparented++
				continue
			}

			dupOdds, err := s.matches.ListOdds(ctx, mk.ID)
			if err != nil {
				return tally, fmt.Errorf("list odds of market %d: %w", mk.ID, err)
			}

			// Richer record wins: a duplicate market carrying strictly more
			// odds entries than the target originally had overwrites
			// conflicting values; otherwise the target's values stand and
			// only missing types are filled.
			richer := len(dupOdds) > state.baseCount
			for _, odd := range dupOdds {
				if _, has := state.odds[odd.Type]; !has {
					plan.OddUpserts = append(plan.OddUpserts, match.Odd{MarketID: state.id, Type: odd.Type, Value: odd.Value})
					state.odds[odd.Type] = odd.Value
					continue
				}
				if richer {
					plan.OddUpserts = append(plan.OddUpserts, match.Odd{MarketID: state.id, Type: odd.Type, Value: odd.Value})
					state.odds[odd.Type] = odd.Value
					tally.oddsOverwritten++
					continue
				}
				tally.oddsPreserved++
			}

			plan.DeleteMarketIDs = append(plan.DeleteMarketIDs, mk.ID)
			tally.marketsMerged++
		}

		plan.DeleteMatchIDs = append(plan.DeleteMatchIDs, dup.ID)
		tally.matchesRemoved++
	}

	if err := s.matches.ApplyMerge(ctx, plan); err != nil {
		return groupTally{}, fmt.Errorf("apply merge: %w", err)
	}

	return tally, nil
}

func (s *ReconcileService) loadMarketStates(ctx context.Context, matchID int64) (map[string]*marketState, error) {
	markets, err := s.matches.ListMarkets(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list markets of match %d: %w", matchID, err)
	}

	states := make(map[string]*marketState, len(markets))
	for _, mk := range markets {
		if _, ok := states[mk.Name]; ok {
			// A survivor with duplicate market names is an anomaly the scan
			// pass reports; merging targets the first one.
			continue
		}
		odds, err := s.matches.ListOdds(ctx, mk.ID)
		if err != nil {
			return nil, fmt.Errorf("list odds of market %d: %w", mk.ID, err)
		}
		states[mk.Name] = newMarketState(mk.ID, odds)
	}

	return states, nil
}

func newMarketState(id int64, odds []match.Odd) *marketState {
	state := &marketState{id: id, odds: make(map[string]float64, len(odds)), baseCount: len(odds)}
	for _, odd := range odds {
		state.odds[odd.Type] = odd.Value
	}
	return state
}
