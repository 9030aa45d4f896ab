package match

import "context"

// Repository is the store surface the ingestion and reconciliation passes
// share. Implementations must surface unique-constraint races as
// ErrConflict so callers can run the retry path.
type Repository interface {
	GetByKey(ctx context.Context, key Key) (Match, bool, error)
	Create(ctx context.Context, m Match) (Match, error)

	ListMarkets(ctx context.Context, matchID int64) ([]Market, error)
	CreateMarket(ctx context.Context, m Market) (Market, error)
	ListOdds(ctx context.Context, marketID int64) ([]Odd, error)
	// UpsertOdd writes the (marketID, type) pair, overwriting an existing
	// value. Reports whether a new row was created.
	UpsertOdd(ctx context.Context, o Odd) (bool, error)

	// ListDuplicateKeys returns every natural key held by more than one
	// match row (grouped count with a HAVING filter).
	ListDuplicateKeys(ctx context.Context) ([]Key, error)
	// ListByKey returns all rows for one natural key ordered by ascending
	// id, so the first element is the reconciliation survivor.
	ListByKey(ctx context.Context, key Key) ([]Match, error)
	// ApplyMerge applies one duplicate group's merge plan atomically.
	ApplyMerge(ctx context.Context, plan MergePlan) error

	ListAll(ctx context.Context) ([]Match, error)
	ListMarketSummaries(ctx context.Context) ([]MarketSummary, error)
}
