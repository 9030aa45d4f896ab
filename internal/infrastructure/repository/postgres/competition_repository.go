package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Bandi86/2025-sub012/internal/domain/competition"
	qb "github.com/Bandi86/2025-sub012/internal/platform/querybuilder"
)

type CompetitionRepository struct {
	db *sqlx.DB
}

func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func (r *CompetitionRepository) GetOrCreateByName(ctx context.Context, name string) (competition.Competition, error) {
	name = strings.TrimSpace(name)
	if err := (competition.Competition{Name: name}).Validate(); err != nil {
		return competition.Competition{}, err
	}

	query, args, err := qb.InsertModel("competitions", competitionInsertModel{Name: name}, "ON CONFLICT (name) DO NOTHING RETURNING id")
	if err != nil {
		return competition.Competition{}, fmt.Errorf("build insert competition query: %w", err)
	}

	var id int64
	err = r.db.GetContext(ctx, &id, query, args...)
	if err == nil {
		return competition.Competition{ID: id, Name: name}, nil
	}
	if !isNotFound(err) {
		return competition.Competition{}, fmt.Errorf("insert competition %q: %w", name, err)
	}

	return r.getByName(ctx, name)
}

func (r *CompetitionRepository) getByName(ctx context.Context, name string) (competition.Competition, error) {
	query, args, err := qb.Select("*").From("competitions").
		Where(qb.Eq("name", name)).
		ToSQL()
	if err != nil {
		return competition.Competition{}, fmt.Errorf("build select competition query: %w", err)
	}

	var row competitionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return competition.Competition{}, fmt.Errorf("select competition %q: %w", name, err)
	}

	return competition.Competition{ID: row.ID, Name: row.Name}, nil
}

func (r *CompetitionRepository) List(ctx context.Context) ([]competition.Competition, error) {
	query, args, err := qb.Select("*").From("competitions").
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select competitions query: %w", err)
	}

	var rows []competitionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select competitions: %w", err)
	}

	out := make([]competition.Competition, 0, len(rows))
	for _, row := range rows {
		out = append(out, competition.Competition{ID: row.ID, Name: row.Name})
	}

	return out, nil
}
