package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Bandi86/2025-sub012/internal/domain/team"
	qb "github.com/Bandi86/2025-sub012/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// GetOrCreateByName is a two-step insert-or-fetch. ON CONFLICT DO NOTHING
// makes the insert race-safe; when another writer wins, RETURNING yields no
// row and the follow-up select picks up the winner's id.
func (r *TeamRepository) GetOrCreateByName(ctx context.Context, name string) (team.Team, error) {
	name = team.NormalizeName(name)
	candidate := team.Team{Name: name}
	if err := candidate.Validate(); err != nil {
		return team.Team{}, err
	}

	query, args, err := qb.InsertModel("teams", teamInsertModel{Name: name}, "ON CONFLICT (name) DO NOTHING RETURNING id")
	if err != nil {
		return team.Team{}, fmt.Errorf("build insert team query: %w", err)
	}

	var id int64
	err = r.db.GetContext(ctx, &id, query, args...)
	if err == nil {
		return team.Team{ID: id, Name: name}, nil
	}
	if !isNotFound(err) {
		return team.Team{}, fmt.Errorf("insert team %q: %w", name, err)
	}

	return r.getByName(ctx, name)
}

func (r *TeamRepository) getByName(ctx context.Context, name string) (team.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("name", name)).
		ToSQL()
	if err != nil {
		return team.Team{}, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return team.Team{}, fmt.Errorf("select team %q: %w", name, err)
	}

	return team.Team{ID: row.ID, Name: row.Name, Country: row.Country}, nil
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, team.Team{ID: row.ID, Name: row.Name, Country: row.Country})
	}

	return out, nil
}
