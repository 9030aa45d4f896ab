package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Bandi86/2025-sub012/internal/domain/match"
)

// MatchRepository mirrors the Postgres store in memory. Unlike the shipped
// schema it does not enforce natural-key uniqueness: Create admits duplicate
// keys so pre-constraint legacy data, the condition the reconcile pass
// exists for, can be seeded directly.
type MatchRepository struct {
	mu           sync.Mutex
	matches      map[int64]match.Match
	markets      map[int64]match.Market
	odds         map[int64]match.Odd
	nextMatchID  int64
	nextMarketID int64
	nextOddID    int64
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		matches:      make(map[int64]match.Match),
		markets:      make(map[int64]match.Market),
		odds:         make(map[int64]match.Odd),
		nextMatchID:  1,
		nextMarketID: 1,
		nextOddID:    1,
	}
}

func (r *MatchRepository) GetByKey(_ context.Context, key match.Key) (match.Match, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := key.String()
	var found match.Match
	foundAny := false
	for _, m := range r.matches {
		if m.Key().String() != want {
			continue
		}
		if !foundAny || m.ID < found.ID {
			found = m
			foundAny = true
		}
	}

	return found, foundAny, nil
}

func (r *MatchRepository) Create(_ context.Context, m match.Match) (match.Match, error) {
	if err := m.Key().Validate(); err != nil {
		return match.Match{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m.ID = r.nextMatchID
	r.nextMatchID++
	m.Date = m.Date.UTC()
	r.matches[m.ID] = m

	return m, nil
}

func (r *MatchRepository) ListMarkets(_ context.Context, matchID int64) ([]match.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []match.Market
	for _, mk := range r.markets {
		if mk.MatchID == matchID {
			out = append(out, mk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *MatchRepository) CreateMarket(_ context.Context, mk match.Market) (match.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[mk.MatchID]; !ok {
		return match.Market{}, fmt.Errorf("match %d not found", mk.MatchID)
	}

	mk.ID = r.nextMarketID
	r.nextMarketID++
	r.markets[mk.ID] = mk

	return mk, nil
}

func (r *MatchRepository) ListOdds(_ context.Context, marketID int64) ([]match.Odd, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listOddsLocked(marketID), nil
}

func (r *MatchRepository) listOddsLocked(marketID int64) []match.Odd {
	var out []match.Odd
	for _, o := range r.odds {
		if o.MarketID == marketID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func (r *MatchRepository) UpsertOdd(_ context.Context, o match.Odd) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.upsertOddLocked(o)
}

func (r *MatchRepository) upsertOddLocked(o match.Odd) (bool, error) {
	if _, ok := r.markets[o.MarketID]; !ok {
		return false, fmt.Errorf("market %d not found", o.MarketID)
	}

	for id, existing := range r.odds {
		if existing.MarketID == o.MarketID && existing.Type == o.Type {
			existing.Value = o.Value
			r.odds[id] = existing
			return false, nil
		}
	}

	o.ID = r.nextOddID
	r.nextOddID++
	r.odds[o.ID] = o

	return true, nil
}

func (r *MatchRepository) ListDuplicateKeys(_ context.Context) ([]match.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := make(map[string][]match.Match)
	for _, m := range r.matches {
		k := m.Key().String()
		groups[k] = append(groups[k], m)
	}

	var keyStrings []string
	byString := make(map[string]match.Key)
	for k, members := range groups {
		if len(members) < 2 {
			continue
		}
		keyStrings = append(keyStrings, k)
		byString[k] = members[0].Key()
	}
	sort.Strings(keyStrings)

	out := make([]match.Key, 0, len(keyStrings))
	for _, k := range keyStrings {
		out = append(out, byString[k])
	}

	return out, nil
}

func (r *MatchRepository) ListByKey(_ context.Context, key match.Key) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := key.String()
	var out []match.Match
	for _, m := range r.matches {
		if m.Key().String() == want {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// ApplyMerge applies the plan atomically under the repository lock and
// enforces merge-then-delete: a match slated for deletion that still owns
// markets afterwards aborts the whole plan.
func (r *MatchRepository) ApplyMerge(_ context.Context, plan match.MergePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[plan.SurvivorID]; !ok {
		return fmt.Errorf("survivor match %d not found", plan.SurvivorID)
	}

	for _, marketID := range plan.ReparentMarketIDs {
		mk, ok := r.markets[marketID]
		if !ok {
			return fmt.Errorf("re-parent market %d not found", marketID)
		}
		mk.MatchID = plan.SurvivorID
		r.markets[marketID] = mk
	}

	for _, o := range plan.OddUpserts {
		if _, err := r.upsertOddLocked(o); err != nil {
			return err
		}
	}

	for _, marketID := range plan.DeleteMarketIDs {
		for id, o := range r.odds {
			if o.MarketID == marketID {
				delete(r.odds, id)
			}
		}
		delete(r.markets, marketID)
	}

	for _, matchID := range plan.DeleteMatchIDs {
		for _, mk := range r.markets {
			if mk.MatchID == matchID {
				return fmt.Errorf("match %d still owns market %d", matchID, mk.ID)
			}
		}
		delete(r.matches, matchID)
	}

	return nil
}

func (r *MatchRepository) ListAll(_ context.Context) ([]match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]match.Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *MatchRepository) ListMarketSummaries(_ context.Context) ([]match.MarketSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]match.MarketSummary, 0, len(r.markets))
	for _, mk := range r.markets {
		owner := r.matches[mk.MatchID]
		out = append(out, match.MarketSummary{
			MatchID:    mk.MatchID,
			MatchDate:  owner.Date,
			MarketID:   mk.ID,
			MarketName: mk.Name,
			OddCount:   len(r.listOddsLocked(mk.ID)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })

	return out, nil
}
