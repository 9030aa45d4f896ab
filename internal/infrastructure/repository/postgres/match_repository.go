package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Bandi86/2025-sub012/internal/domain/match"
	qb "github.com/Bandi86/2025-sub012/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func matchKeyConditions(key match.Key) []qb.Condition {
	return []qb.Condition{
		qb.Eq("date", key.Date),
		qb.Eq("home_team_id", key.HomeTeamID),
		qb.Eq("away_team_id", key.AwayTeamID),
		qb.Eq("competition_id", key.CompetitionID),
	}
}

// GetByKey returns the lowest-id row for the key. The table can hold
// several rows per key until a reconcile pass collapses them, and the
// lowest id is the row that pass would keep.
func (r *MatchRepository) GetByKey(ctx context.Context, key match.Key) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(matchKeyConditions(key)...).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match by key query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match by key: %w", err)
	}

	return matchFromRow(row), true, nil
}

func (r *MatchRepository) Create(ctx context.Context, m match.Match) (match.Match, error) {
	insertModel := matchInsertModel{
		Date:          m.Date.UTC(),
		HomeTeamID:    m.HomeTeamID,
		AwayTeamID:    m.AwayTeamID,
		CompetitionID: m.CompetitionID,
	}
	query, args, err := qb.InsertModel("matches", insertModel, "RETURNING id")
	if err != nil {
		return match.Match{}, fmt.Errorf("build insert match query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if isUniqueViolation(err) {
			return match.Match{}, match.ErrConflict
		}
		return match.Match{}, fmt.Errorf("insert match: %w", err)
	}

	m.ID = id
	return m, nil
}

func (r *MatchRepository) ListMarkets(ctx context.Context, matchID int64) ([]match.Market, error) {
	query, args, err := qb.Select("*").From("markets").
		Where(qb.Eq("match_id", matchID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select markets query: %w", err)
	}

	var rows []marketTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select markets of match %d: %w", matchID, err)
	}

	out := make([]match.Market, 0, len(rows))
	for _, row := range rows {
		out = append(out, match.Market{ID: row.ID, MatchID: row.MatchID, Name: row.Name})
	}

	return out, nil
}

func (r *MatchRepository) CreateMarket(ctx context.Context, m match.Market) (match.Market, error) {
	query, args, err := qb.InsertInto("markets").
		Columns("match_id", "name").
		Values(m.MatchID, m.Name).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return match.Market{}, fmt.Errorf("build insert market query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		return match.Market{}, fmt.Errorf("insert market %q: %w", m.Name, err)
	}

	m.ID = id
	return m, nil
}

func (r *MatchRepository) ListOdds(ctx context.Context, marketID int64) ([]match.Odd, error) {
	query, args, err := qb.Select("*").From("odds").
		Where(qb.Eq("market_id", marketID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select odds query: %w", err)
	}

	var rows []oddTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select odds of market %d: %w", marketID, err)
	}

	out := make([]match.Odd, 0, len(rows))
	for _, row := range rows {
		out = append(out, match.Odd{ID: row.ID, MarketID: row.MarketID, Type: row.Type, Value: row.Value})
	}

	return out, nil
}

func (r *MatchRepository) UpsertOdd(ctx context.Context, o match.Odd) (bool, error) {
	created, err := upsertOddExec(ctx, r.db, o)
	if err != nil {
		return false, err
	}
	return created, nil
}

// upsertOddExec runs against the pool or a transaction. xmax = 0 is true
// only for a freshly inserted row, which distinguishes insert from update
// without a second query.
func upsertOddExec(ctx context.Context, q sqlx.ExtContext, o match.Odd) (bool, error) {
	query, args, err := qb.InsertInto("odds").
		Columns("market_id", "type", "value").
		Values(o.MarketID, o.Type, o.Value).
		Suffix("ON CONFLICT (market_id, type) DO UPDATE SET value = EXCLUDED.value RETURNING (xmax = 0)").
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build upsert odd query: %w", err)
	}

	var created bool
	if err := sqlx.GetContext(ctx, q, &created, query, args...); err != nil {
		return false, fmt.Errorf("upsert odd %s on market %d: %w", o.Type, o.MarketID, err)
	}

	return created, nil
}

func (r *MatchRepository) ListDuplicateKeys(ctx context.Context) ([]match.Key, error) {
	query, args, err := qb.Select("date", "home_team_id", "away_team_id", "competition_id").
		From("matches").
		GroupBy("date", "home_team_id", "away_team_id", "competition_id").
		Having(qb.Expr("COUNT(*) > 1")).
		OrderBy("date", "home_team_id", "away_team_id", "competition_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select duplicate keys query: %w", err)
	}

	var rows []duplicateKeyModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select duplicate keys: %w", err)
	}

	out := make([]match.Key, 0, len(rows))
	for _, row := range rows {
		out = append(out, match.Key{
			Date:          row.Date.UTC(),
			HomeTeamID:    row.HomeTeamID,
			AwayTeamID:    row.AwayTeamID,
			CompetitionID: row.CompetitionID,
		})
	}

	return out, nil
}

func (r *MatchRepository) ListByKey(ctx context.Context, key match.Key) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(matchKeyConditions(key)...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches by key query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches by key: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}

	return out, nil
}

// ApplyMerge runs one duplicate group's whole write set in a single
// transaction. Deletes come after re-parenting and odds writes, so an
// aborted transaction leaves both match rows complete.
func (r *MatchRepository) ApplyMerge(ctx context.Context, plan match.MergePlan) error {
	if plan.Empty() {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if len(plan.ReparentMarketIDs) > 0 {
		query, args, err := qb.Update("markets").
			Set("match_id", plan.SurvivorID).
			Where(qb.In("id", int64Args(plan.ReparentMarketIDs))).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build reparent markets query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("reparent markets: %w", err)
		}
	}

	for _, odd := range plan.OddUpserts {
		if _, err := upsertOddExec(ctx, tx, odd); err != nil {
			return err
		}
	}

	if len(plan.DeleteMarketIDs) > 0 {
		// Odds go first; the odds table references markets.
		query, args, err := qb.DeleteFrom("odds").
			Where(qb.In("market_id", int64Args(plan.DeleteMarketIDs))).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build delete odds query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete merged odds: %w", err)
		}

		query, args, err = qb.DeleteFrom("markets").
			Where(qb.In("id", int64Args(plan.DeleteMarketIDs))).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build delete markets query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete merged markets: %w", err)
		}
	}

	if len(plan.DeleteMatchIDs) > 0 {
		query, args, err := qb.DeleteFrom("matches").
			Where(qb.In("id", int64Args(plan.DeleteMatchIDs))).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build delete matches query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete duplicate matches: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge tx: %w", err)
	}

	return nil
}

func (r *MatchRepository) ListAll(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}

	return out, nil
}

func (r *MatchRepository) ListMarketSummaries(ctx context.Context) ([]match.MarketSummary, error) {
	query, args, err := qb.Select(
		"mk.match_id AS match_id",
		"m.date AS match_date",
		"mk.id AS market_id",
		"mk.name AS market_name",
		"COUNT(o.id) AS odd_count",
	).
		From("markets mk JOIN matches m ON m.id = mk.match_id LEFT JOIN odds o ON o.market_id = mk.id").
		GroupBy("mk.match_id", "m.date", "mk.id", "mk.name").
		OrderBy("mk.match_id", "mk.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select market summaries query: %w", err)
	}

	var rows []marketSummaryModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select market summaries: %w", err)
	}

	out := make([]match.MarketSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, match.MarketSummary{
			MatchID:    row.MatchID,
			MatchDate:  row.MatchDate.UTC(),
			MarketID:   row.MarketID,
			MarketName: row.MarketName,
			OddCount:   row.OddCount,
		})
	}

	return out, nil
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:            row.ID,
		Date:          row.Date.UTC(),
		HomeTeamID:    row.HomeTeamID,
		AwayTeamID:    row.AwayTeamID,
		CompetitionID: row.CompetitionID,
	}
}

func int64Args(ids []int64) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}
